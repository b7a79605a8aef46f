package utils

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func TestTokenSignerRoundTrip(t *testing.T) {
	s := NewTokenSigner("secret", time.Hour)
	tok, err := s.Issue("a@example.com", "user-1")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := s.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Email != "a@example.com" || claims.ID != "user-1" {
		t.Fatalf("claims = %+v", claims)
	}
	if d := time.Until(claims.ExpiresAt.Time); d <= 59*time.Minute || d > time.Hour {
		t.Fatalf("unexpected expiry in %v", d)
	}
}

func TestTokenSignerRejects(t *testing.T) {
	s := NewTokenSigner("secret", time.Hour)
	tok, _ := s.Issue("a@example.com", "user-1")

	if _, err := NewTokenSigner("other", time.Hour).Parse(tok); err == nil {
		t.Fatal("token signed with another secret should not verify")
	}

	expired, _ := NewTokenSigner("secret", -time.Minute).Issue("a@example.com", "user-1")
	if _, err := s.Parse(expired); err == nil {
		t.Fatal("expired token should not verify")
	}
}

func TestDecodeExternalSubject(t *testing.T) {
	enc := base64.RawURLEncoding.EncodeToString
	tok := enc([]byte(`{"alg":"RS256"}`)) + "." + enc([]byte(`{"sub":"1098765"}`)) + ".sig"

	sub, err := DecodeExternalSubject(tok)
	if err != nil {
		t.Fatal(err)
	}
	if sub != "1098765" {
		t.Fatalf("sub = %q", sub)
	}

	noSub := enc([]byte(`{"alg":"RS256"}`)) + "." + enc([]byte(`{"iss":"x"}`)) + ".sig"
	if _, err := DecodeExternalSubject(noSub); err == nil {
		t.Fatal("expected error for token without subject")
	}
	if _, err := DecodeExternalSubject(strings.Repeat("x", 10)); err == nil {
		t.Fatal("expected error for non-JWS input")
	}
}

func TestRevocationListInMemory(t *testing.T) {
	l := NewRevocationList(nil)
	ctx := context.Background()

	if err := l.Revoke(ctx, "a", time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := l.Revoke(ctx, "b", time.Now().Add(-time.Second)); err != nil {
		t.Fatal(err)
	}
	if !l.IsRevoked(ctx, "a") {
		t.Fatal("a should be revoked")
	}
	if l.IsRevoked(ctx, "b") || l.IsRevoked(ctx, "c") {
		t.Fatal("expired or unknown tokens are not revoked")
	}
}

func TestUniqueStrings(t *testing.T) {
	got := UniqueStrings([]string{"a", "", "b", "a"})
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("UniqueStrings = %v", got)
	}
}
