package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestNewSelectsAlgorithm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Argon2 = fastConfig()

	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New(argon2id) error: %v", err)
	}
	if _, ok := h.(*Argon2); !ok {
		t.Fatalf("expected *Argon2, got %T", h)
	}

	cfg.Algorithm = AlgorithmBcrypt
	cfg.BcryptCost = bcrypt.MinCost
	h, err = New(cfg)
	if err != nil {
		t.Fatalf("New(bcrypt) error: %v", err)
	}
	if _, ok := h.(*Bcrypt); !ok {
		t.Fatalf("expected *Bcrypt, got %T", h)
	}

	cfg.Algorithm = "md5"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected unknown algorithm to fail")
	}
}

func TestBcryptHashAndVerify(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)

	hash, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	if err != nil || !ok {
		t.Fatalf("expected match: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error: ok=%v err=%v", ok, err)
	}

	if _, err := h.Verify("x", "garbage"); err == nil {
		t.Fatal("expected malformed hash to error")
	}
}

func TestBcryptCostClamped(t *testing.T) {
	if got := NewBcrypt(1).Cost(); got != bcrypt.MinCost {
		t.Fatalf("expected cost clamped to %d, got %d", bcrypt.MinCost, got)
	}
	if got := NewBcrypt(99).Cost(); got != bcrypt.MaxCost {
		t.Fatalf("expected cost clamped to %d, got %d", bcrypt.MaxCost, got)
	}
}

func TestBcryptRejectsOverlongInput(t *testing.T) {
	h := NewBcrypt(bcrypt.MinCost)
	if _, err := h.Hash(strings.Repeat("x", 73)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestTokenDigestFitsBcrypt(t *testing.T) {
	token := strings.Repeat("eyJhbGciOiJIUzI1NiJ9.", 20)
	d := TokenDigest(token)

	if len(d) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(d))
	}
	if d != TokenDigest(token) {
		t.Fatal("expected deterministic digest")
	}
	if d == TokenDigest(token+"x") {
		t.Fatal("expected distinct digests for distinct tokens")
	}

	h := NewBcrypt(bcrypt.MinCost)
	hash, err := h.Hash(d)
	if err != nil {
		t.Fatalf("Hash(digest) error: %v", err)
	}
	ok, err := h.Verify(TokenDigest(token), hash)
	if err != nil || !ok {
		t.Fatalf("expected digest to verify: ok=%v err=%v", ok, err)
	}
}
