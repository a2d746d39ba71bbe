package jwt

import (
	"testing"
	"time"
)

const testSecret = "una-clave-de-al-menos-32-bytes!!"

func TestIssueVerify_RoundTrip(t *testing.T) {
	iss, err := NewIssuer("antiforge-test", testSecret, time.Minute)
	if err != nil {
		t.Fatalf("NewIssuer err: %v", err)
	}
	tok, err := iss.IssueAccessToken("user-1", "spa")
	if err != nil {
		t.Fatalf("IssueAccessToken err: %v", err)
	}
	sub, err := iss.Verify(tok)
	if err != nil {
		t.Fatalf("Verify err: %v", err)
	}
	if sub != "user-1" {
		t.Fatalf("subject: got %q", sub)
	}
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	if _, err := NewIssuer("x", "", time.Minute); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	a, _ := NewIssuer("antiforge-test", testSecret, time.Minute)
	b, _ := NewIssuer("antiforge-test", "otra-clave-distinta-de-32-bytes!", time.Minute)

	tok, err := a.IssueAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("IssueAccessToken err: %v", err)
	}
	if _, err := b.Verify(tok); err == nil {
		t.Fatal("token signed with another secret should fail")
	}
}

func TestVerify_WrongIssuer(t *testing.T) {
	a, _ := NewIssuer("servicio-a", testSecret, time.Minute)
	b, _ := NewIssuer("servicio-b", testSecret, time.Minute)

	tok, err := a.IssueAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("IssueAccessToken err: %v", err)
	}
	if _, err := b.Verify(tok); err == nil {
		t.Fatal("token with foreign issuer should fail")
	}
}

func TestVerify_Expired(t *testing.T) {
	iss, _ := NewIssuer("antiforge-test", testSecret, -time.Minute)
	// TTL <= 0 cae al default en NewIssuer, así que se fuerza acá.
	iss.accessTTL = -time.Minute

	tok, err := iss.IssueAccessToken("user-1", "")
	if err != nil {
		t.Fatalf("IssueAccessToken err: %v", err)
	}
	if _, err := iss.Verify(tok); err == nil {
		t.Fatal("expired token should fail")
	}
}

func TestVerify_Garbage(t *testing.T) {
	iss, _ := NewIssuer("antiforge-test", testSecret, time.Minute)
	if _, err := iss.Verify("no.es.jwt"); err == nil {
		t.Fatal("garbage token should fail")
	}
}
