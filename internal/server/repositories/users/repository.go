// Package users is the credential store: user records keyed by email.
package users

import (
	"context"

	"github.com/dmitrijs2005/tzikbal/internal/server/models"
)

// Repository persists user records. Email uniqueness is enforced by the
// implementation atomically: Create returns common.ErrDuplicateEmail when
// the email is already taken. Lookups return common.ErrorNotFound when no
// record matches.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
