package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	hash, err := HashPassword("correct-horse-battery")
	if err != nil {
		t.Fatal(err)
	}
	return NewService("test-secret", "operator", hash, time.Hour)
}

func TestLoginAndValidate(t *testing.T) {
	s := newTestService(t)

	token, err := s.Login("operator", "correct-horse-battery")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Operator != "operator" {
		t.Errorf("Operator = %q, want %q", claims.Operator, "operator")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestService(t)

	if _, err := s.Login("operator", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.Login("intruder", "correct-horse-battery"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong operator error = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	s := newTestService(t)
	if _, err := s.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	s := newTestService(t)
	other := NewService("other-secret", "operator", "", time.Hour)

	token, err := other.generateToken("operator")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("error = %v, want ErrInvalidToken", err)
	}
}
