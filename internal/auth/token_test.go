package auth

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	token, err := m.Generate("u1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "u1" || claims.Username != "alice" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).Generate("u1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := NewManager("secret-b", time.Hour).Verify(token); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Hour)
	token, err := m.Generate("u1", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if _, err := m.Verify(token); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	if _, err := m.Verify("not.a.token"); err == nil {
		t.Fatal("garbage must not verify")
	}
}
