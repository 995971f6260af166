package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes passwords with bcrypt. Every hash carries its own
// random salt and cost.
type BcryptHasher struct {
	cost  int
	dummy []byte
}

// NewBcryptHasher returns a hasher using cost, or common.BcryptCost when
// cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = common.BcryptCost
	}
	// hash of a throwaway value so EqualizeTiming costs the same as Verify
	dummy, _ := bcrypt.GenerateFromPassword([]byte("tzikbal-timing-equalizer"), cost)
	return &BcryptHasher{cost: cost, dummy: dummy}
}

// Hash returns the bcrypt digest of password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password exceeds %d bytes", common.ErrorValidation, common.MaxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches digest.
func (h *BcryptHasher) Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// EqualizeTiming performs a comparison that always fails. Login calls it
// when there is no hash to check against so that an unknown email costs
// as much as a wrong password.
func (h *BcryptHasher) EqualizeTiming(password string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
