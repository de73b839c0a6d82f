package utils_test

import (
	"errors"
	"testing"
	"time"

	"github.com/binhbb2204/litverse/pkg/utils"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := utils.GenerateJWT("user-1", "reader", "secret")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := utils.ValidateJWT(token, "secret")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Username != "reader" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestJWTWrongSecret(t *testing.T) {
	token, _ := utils.GenerateJWT("user-1", "reader", "secret")
	if _, err := utils.ValidateJWT(token, "other"); !errors.Is(err, utils.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWTExpired(t *testing.T) {
	token, _ := utils.GenerateJWTWithTTL("user-1", "reader", "secret", -time.Minute)
	if _, err := utils.ValidateJWT(token, "secret"); !errors.Is(err, utils.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := utils.HashPassword("Sup3rSecret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := utils.CheckPassword(hash, "Sup3rSecret"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := utils.CheckPassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestGenerateIDLength(t *testing.T) {
	id, err := utils.GenerateID(16)
	if err != nil {
		t.Fatalf("generate id: %v", err)
	}
	if len(id) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(id))
	}
}
