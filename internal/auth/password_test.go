package auth

import (
	"testing"
	"time"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("collect-all-the-things")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "collect-all-the-things" {
		t.Fatal("expected hash to differ from plaintext")
	}
	if !CheckPassword("collect-all-the-things", hash) {
		t.Fatal("expected matching password to verify")
	}
	if CheckPassword("wrong-password", hash) {
		t.Fatal("expected wrong password to fail")
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("3a4d5f60-0000-0000-0000-000000000001", "ana@example.com", "pro", "test-secret", "foldly", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := ParseToken(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "3a4d5f60-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected user id %q", claims.UserID)
	}
	if claims.Plan != "pro" {
		t.Fatalf("unexpected plan %q", claims.Plan)
	}

	if _, err := ParseToken(token, "other-secret"); err == nil {
		t.Fatal("expected token signed with another secret to fail")
	}
}
