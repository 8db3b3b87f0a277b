package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSigner_IssueAndVerify(t *testing.T) {
	s := NewSigner("my-secret-key")

	token, err := s.Issue(123)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}
	if token == "" {
		t.Fatal("Issue() returned empty token")
	}

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if claims.UserID != 123 {
		t.Errorf("Verify() got UserID %d, want 123", claims.UserID)
	}
}

func TestSigner_TamperedSignature(t *testing.T) {
	s := NewSigner("my-secret-key")
	token, _ := s.Issue(1)

	parts := strings.Split(token, ".")
	_, err := s.Verify(parts[0] + "." + parts[1] + ".invalid-signature")
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestSigner_OtherSecret(t *testing.T) {
	token, _ := NewSigner("one").Issue(1)
	if _, err := NewSigner("two").Verify(token); !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestSigner_MalformedToken(t *testing.T) {
	s := NewSigner("my-secret-key")
	if _, err := s.Verify("invalid.token"); !errors.Is(err, ErrMalformedToken) {
		t.Errorf("Verify() error = %v, want ErrMalformedToken", err)
	}
}

func TestSigner_ExpiredToken(t *testing.T) {
	s := NewSigner("my-secret-key")
	s.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }

	token, err := s.Issue(1)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	s.now = time.Now
	if _, err := s.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestSigner_WithTTL(t *testing.T) {
	s := NewSigner("my-secret-key").WithTTL(time.Minute)
	token, _ := s.Issue(7)

	claims, err := s.Verify(token)
	if err != nil {
		t.Fatalf("Verify() failed: %v", err)
	}
	if got := claims.Exp - claims.Iat; got != 60 {
		t.Errorf("token lifetime = %ds, want 60s", got)
	}
}

func TestSigner_RejectsZeroUser(t *testing.T) {
	s := NewSigner("my-secret-key")
	token, _ := s.Issue(0)
	if _, err := s.Verify(token); !errors.Is(err, ErrMalformedToken) {
		t.Errorf("Verify() error = %v, want ErrMalformedToken", err)
	}
}
