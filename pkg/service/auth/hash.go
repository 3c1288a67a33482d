package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Hasher hashes and checks passwords with bcrypt.
type Hasher struct {
	cost  int
	dummy func() string
}

// NewHasher creates a Hasher. A cost outside bcrypt's range falls back to bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	h := &Hasher{cost: cost}
	h.dummy = sync.OnceValue(func() string {
		b, _ := bcrypt.GenerateFromPassword([]byte("cashfake-dummy-password"), cost)
		return string(b)
	})
	return h
}

// Hash hashes a plain password.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	return string(b), err
}

// Compare reports whether password matches hash.
func (h *Hasher) Compare(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CompareDummy spends the time of a real comparison when there is no hash to compare
// against, so unknown emails are not distinguishable by latency.
func (h *Hasher) CompareDummy(password string) {
	_ = h.Compare(password, h.dummy())
}
