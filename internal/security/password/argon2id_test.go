package password

import (
	"strings"
	"testing"
)

// Parámetros bajos para no gastar CPU en tests.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "s3cret-p4ss")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if !strings.HasPrefix(phc, "$argon2id$v=19$") {
		t.Fatalf("unexpected PHC prefix: %q", phc)
	}
	if !Verify("s3cret-p4ss", phc) {
		t.Fatal("Verify rejected the correct password")
	}
	if Verify("s3cret-p4sS", phc) {
		t.Fatal("Verify accepted a wrong password")
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	if _, err := Hash(testParams, ""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := Hash(testParams, "misma")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	b, err := Hash(testParams, "misma")
	if err != nil {
		t.Fatalf("Hash err: %v", err)
	}
	if a == b {
		t.Fatal("two hashes of the same password should differ (random salt)")
	}
	if !Verify("misma", a) || !Verify("misma", b) {
		t.Fatal("both hashes should verify")
	}
}

func TestVerify_MalformedPHC(t *testing.T) {
	bad := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",  // variante equivocada
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs", // versión equivocada
		"$argon2id$v=19$m=8192$c2FsdA$ZGs",         // params incompletos
		"$argon2id$v=19$m=8192,t=1,p=1$!!$ZGs",     // salt no base64
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$!!",  // dk no base64
	}
	for _, phc := range bad {
		if Verify("whatever", phc) {
			t.Fatalf("Verify accepted malformed PHC: %q", phc)
		}
	}
}
