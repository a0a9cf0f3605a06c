package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHasherRoundTrip(t *testing.T) {
	h := security.NewHasher(fastArgon)
	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}

	match, outdated, err := h.Verify("correct horse battery staple", hash)
	if err != nil || !match || outdated {
		t.Fatalf("verify = %v %v %v", match, outdated, err)
	}

	match, _, err = h.Verify("Correct horse battery staple", hash)
	if err != nil || match {
		t.Fatalf("wrong password accepted: %v %v", match, err)
	}
}

func TestHasherFlagsOutdatedParameters(t *testing.T) {
	old, err := security.NewHasher(fastArgon).Hash("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	stronger := fastArgon
	stronger.ArgonTime = 2

	match, outdated, err := security.NewHasher(stronger).Verify("s3cret", old)
	if err != nil || !match {
		t.Fatalf("old hash must still verify: %v %v", match, err)
	}
	if !outdated {
		t.Fatalf("expected hash to be reported as outdated")
	}
}

func TestHasherRejectsMalformedHashes(t *testing.T) {
	h := security.NewHasher(fastArgon)
	for _, encoded := range []string{
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=16$m=8192,t=1,p=1$c2FsdHNhbHQ$a2V5a2V5",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdHNhbHQ",
		"$argon2id$v=19$m=8192,t=1,p=1$***$a2V5a2V5",
	} {
		if _, _, err := h.Verify("x", encoded); err != security.ErrInvalidHash {
			t.Fatalf("%q: expected ErrInvalidHash, got %v", encoded, err)
		}
	}
}

func TestHasherRejectsEmptyPassword(t *testing.T) {
	if _, err := security.NewHasher(fastArgon).Hash(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}

func TestRandomDigits(t *testing.T) {
	got, err := security.RandomDigits(10)
	if err != nil {
		t.Fatalf("RandomDigits returned error: %v", err)
	}
	if len(got) != 10 || strings.Trim(got, "0123456789") != "" {
		t.Fatalf("expected 10 digits, got %q", got)
	}
	if _, err := security.RandomDigits(0); err == nil {
		t.Fatal("expected error for zero length")
	}
}
