// Package client is the HTTP client of the Tzikbal API used by the CLI.
// It unwraps the response envelope, keeps the bearer token of the current
// session and maps transport failures to sentinel errors.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/tzikbal/internal/client/models"
)

var (
	// ErrUnavailable means the server could not be reached.
	ErrUnavailable = errors.New("server unavailable")
	// ErrNotLoggedIn is returned by calls that need a session token.
	ErrNotLoggedIn = errors.New("not logged in")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type Client interface {
	Ping(ctx context.Context) error
	Register(ctx context.Context, reg models.Registration) (*models.User, error)
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	Profile(ctx context.Context) (*models.User, error)
	Upload(ctx context.Context, fileName string, r io.Reader) (string, error)
	Logout()
}
