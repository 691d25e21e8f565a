package token

import (
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	tok, err := m.Sign("alice", "Alice A.", []string{"ops", "checker"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "alice" || claims.Name != "Alice A." {
		t.Fatalf("claims = %+v", claims)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "ops" {
		t.Fatalf("roles = %v", claims.Roles)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	tok, err := NewManager("secret-a", time.Hour).Sign("alice", "", nil)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := NewManager("secret-b", time.Hour).Verify(tok); err == nil {
		t.Fatalf("token signed with another secret must not verify")
	}
}

func TestVerifyExpired(t *testing.T) {
	m := &Manager{secret: []byte("s"), ttl: -time.Minute}
	tok, err := m.Sign("alice", "", nil)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(tok); err == nil {
		t.Fatalf("expired token must not verify")
	}
}

func TestVerifyGarbage(t *testing.T) {
	if _, err := NewManager("s", time.Hour).Verify("not.a.token"); err == nil {
		t.Fatalf("garbage must not verify")
	}
}
