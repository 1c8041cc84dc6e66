package auth

import (
	"errors"
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "hunter22" {
		t.Error("hash equals the plaintext password")
	}
	if !CheckPassword("hunter22", hash) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password accepted")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	svc := NewService("test-secret", time.Hour)
	token, err := svc.GenerateToken(7, "alice", true, false)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 7 || claims.Username != "alice" || !claims.IsAdmin {
		t.Errorf("claims = %+v", claims)
	}
	if claims.PasswordChangeRequired {
		t.Error("password change flag set unexpectedly")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := NewService("secret-a", time.Hour).GenerateToken(1, "alice", false, false)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := NewService("secret-b", time.Hour).ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenExpired(t *testing.T) {
	t.Parallel()

	svc := NewService("test-secret", -time.Minute)
	token, err := svc.GenerateToken(1, "alice", false, false)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	t.Parallel()

	svc := NewService("test-secret", time.Hour)
	if _, err := svc.ValidateToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateToken error = %v, want ErrInvalidToken", err)
	}
}
