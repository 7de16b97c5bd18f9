package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	t.Parallel()

	h, err := NewHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	hash, err := h.Hash("Secret@1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "Secret@1" {
		t.Fatalf("hash must not equal plaintext")
	}

	ok, err := h.Compare(hash, "Secret@1")
	if err != nil || !ok {
		t.Fatalf("Compare(correct)=%v,%v want true,nil", ok, err)
	}
	ok, err = h.Compare(hash, "wrong")
	if err != nil || ok {
		t.Fatalf("Compare(wrong)=%v,%v want false,nil", ok, err)
	}
}

func TestHasher_CompareMalformedHash(t *testing.T) {
	t.Parallel()

	h, _ := NewHasher(bcrypt.MinCost)
	if _, err := h.Compare("not-a-bcrypt-hash", "x"); err == nil {
		t.Fatalf("expected error for malformed hash")
	}
}

func TestHasher_RejectsEmptyPasswordAndBadCost(t *testing.T) {
	t.Parallel()

	h, _ := NewHasher(bcrypt.MinCost)
	if _, err := h.Hash(""); err != ErrEmptyPassword {
		t.Fatalf("Hash(\"\") err=%v, want %v", err, ErrEmptyPassword)
	}
	if _, err := NewHasher(bcrypt.MaxCost + 1); err == nil {
		t.Fatalf("expected error for cost above max")
	}
}

func TestHasher_DummyHashUsesConfiguredCost(t *testing.T) {
	t.Parallel()

	const cost = bcrypt.MinCost + 1
	h, err := NewHasher(cost)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	got, err := bcrypt.Cost(h.dummyHash)
	if err != nil || got != cost {
		t.Fatalf("dummy hash cost=%d,%v want %d", got, err, cost)
	}

	hash, err := h.Hash("Secret@1")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if got, _ := bcrypt.Cost([]byte(hash)); got != cost {
		t.Fatalf("hash cost=%d want %d", got, cost)
	}
	h.CompareDummy("Secret@1")
}
