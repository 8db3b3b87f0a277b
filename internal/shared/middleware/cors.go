package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// CORS applies cross-origin headers. With no allowed hosts configured every
// origin is accepted; otherwise a request carrying a foreign Origin is refused.
func CORS(allowedHosts []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			switch {
			case len(allowedHosts) == 0 || origin == "":
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case isOriginAllowed(origin, allowedHosts):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Add("Vary", "Origin")
			default:
				http.Error(w, "Origin not allowed", http.StatusForbidden)
				return
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isOriginAllowed(origin string, allowedHosts []string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return IsHostAllowed(u.Host, allowedHosts)
}

// IsHostAllowed reports whether host matches one of allowedHosts, either
// exactly or by hostname with the port ignored. An empty list allows all.
func IsHostAllowed(host string, allowedHosts []string) bool {
	if len(allowedHosts) == 0 {
		return true
	}

	full, name := splitHost(host)
	for _, allowed := range allowedHosts {
		allowedFull, allowedName := splitHost(allowed)
		if full == allowedFull || name == allowedName {
			return true
		}
	}
	return false
}

func splitHost(host string) (full, name string) {
	full = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(full); err == nil {
		return full, h
	}
	return full, strings.Trim(full, "[]")
}
