// Package auth issues and verifies the HS256 bearer tokens used by the API.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedToken = errors.New("invalid token format")
	ErrBadSignature   = errors.New("invalid signature")
	ErrTokenExpired   = errors.New("token expired")
)

const defaultTokenTTL = 24 * time.Hour

type Claims struct {
	UserID int64 `json:"userId"`
	Exp    int64 `json:"exp"`
	Iat    int64 `json:"iat"`
}

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), ttl: defaultTokenTTL, now: time.Now}
}

// WithTTL returns a copy of the signer issuing tokens that live for ttl.
func (s *Signer) WithTTL(ttl time.Duration) *Signer {
	cp := *s
	cp.ttl = ttl
	return &cp
}

func (s *Signer) Issue(userID int64) (string, error) {
	now := s.now()
	return s.encode(Claims{
		UserID: userID,
		Iat:    now.Unix(),
		Exp:    now.Add(s.ttl).Unix(),
	})
}

func (s *Signer) encode(claims Claims) (string, error) {
	headerJSON, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	message := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(claimsJSON)
	return message + "." + s.sign(message), nil
}

func (s *Signer) Verify(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformedToken
	}

	message := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(message))) {
		return nil, ErrBadSignature
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}

	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return nil, fmt.Errorf("failed to unmarshal claims: %w", err)
	}

	if s.now().Unix() > claims.Exp {
		return nil, ErrTokenExpired
	}
	if claims.UserID <= 0 {
		return nil, ErrMalformedToken
	}

	return &claims, nil
}

func (s *Signer) sign(message string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(message))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
