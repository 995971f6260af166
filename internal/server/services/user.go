// Package services contains server-side business logic. This file implements
// UserService, which handles local registration and login, federated
// (Google) sign-in, session token issuance and profile lookup.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/dbx"
	"github.com/dmitrijs2005/tzikbal/internal/logging"
	"github.com/dmitrijs2005/tzikbal/internal/server/auth"
	"github.com/dmitrijs2005/tzikbal/internal/server/models"
	"github.com/dmitrijs2005/tzikbal/internal/server/repositories/repomanager"
)

// RegisterInput carries the validated fields of a local registration.
// A nil Preferences selects models.DefaultPreferences.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	Picture     string
	Phone       string
	Preferences *models.Preferences
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	AccessToken string
	User        *models.SafeUser
}

// UserService provides authentication-related operations:
// - Register / Login: local email and password accounts
// - RegisterOrLinkFederated: accounts vouched for by an identity provider
// - IssueSession / GetProfile: bearer tokens and the profile behind them
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.BcryptHasher
	issuer      *auth.TokenIssuer
	log         logging.Logger
}

// NewUserService constructs a UserService. db may be nil when the
// repository manager does not need a connection.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.BcryptHasher,
	issuer *auth.TokenIssuer, log logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		issuer:      issuer,
		log:         log.With("module", "users"),
	}
}

// Register creates a local account. An email that is already present,
// including one inserted concurrently, yields ErrConflictAlreadyRegistered.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.SafeUser, error) {
	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return nil, common.ErrConflictAlreadyRegistered
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	prefs := models.DefaultPreferences()
	if in.Preferences != nil {
		if in.Preferences.Lang != "" {
			prefs.Lang = in.Preferences.Lang
		}
		if in.Preferences.Theme != "" {
			prefs.Theme = in.Preferences.Theme
		}
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		Name:         in.Name,
		Picture:      in.Picture,
		Phone:        in.Phone,
		Provider:     models.ProviderLocal,
		Preferences:  prefs,
		Status:       true,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrConflictAlreadyRegistered
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	if created == nil || created.ID == "" {
		s.log.Error(ctx, "user insert returned no record", "email", in.Email)
		return nil, common.ErrRegistrationFailed
	}

	s.log.Info(ctx, "user registered", "email", created.Email, "provider", string(created.Provider))
	return created.ToSafe(), nil
}

// Login checks email and password and issues a session token. Unknown
// email, federated-only account and wrong password are indistinguishable
// to the caller: all return ErrInvalidCredentials after one bcrypt compare.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.EqualizeTiming(password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !user.CanLoginWithPassword() {
		s.hasher.EqualizeTiming(password)
		return nil, common.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.log.Warn(ctx, "login failed", "email", email)
		return nil, common.ErrInvalidCredentials
	}

	token, err := s.IssueSession(user.ToSafe())
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user logged in", "email", user.Email)
	return &LoginResult{AccessToken: token, User: user.ToSafe()}, nil
}

// RegisterOrLinkFederated returns the account for a provider assertion,
// creating a google-provider account without a password on first sight.
// An existing account is returned unchanged.
func (s *UserService) RegisterOrLinkFederated(ctx context.Context, a models.Assertion) (*models.SafeUser, error) {
	if a.Email == "" {
		return nil, common.ErrMissingAssertion
	}

	var user *models.User
	err := s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		existing, err := repo.GetUserByEmail(ctx, a.Email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		name := a.Name
		if name == "" {
			name = a.Email
		}
		created, err := repo.Create(ctx, &models.User{
			Email:       a.Email,
			Name:        name,
			Picture:     a.Picture,
			Provider:    models.ProviderGoogle,
			Preferences: models.DefaultPreferences(),
			Status:      true,
		})
		if err != nil {
			return err
		}
		s.log.Info(ctx, "user registered", "email", created.Email, "provider", string(created.Provider))
		user = created
		return nil
	})

	// lost a first-login race: the winner's record is authoritative
	if errors.Is(err, common.ErrDuplicateEmail) {
		user, err = s.repomanager.Users(s.db).GetUserByEmail(ctx, a.Email)
	}
	if err != nil {
		return nil, fmt.Errorf("error linking federated user: %w", err)
	}
	if user == nil || user.ID == "" {
		return nil, common.ErrRegistrationFailed
	}

	return user.ToSafe(), nil
}

// IssueSession signs a bearer token for user.
func (s *UserService) IssueSession(user *models.SafeUser) (string, error) {
	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrorInternal, err)
	}
	return token, nil
}

// VerifySession validates a bearer token and returns the identity it
// carries. Every verification failure is reported as ErrUnauthorized
// wrapping the specific token error.
func (s *UserService) VerifySession(token string) (*models.Identity, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}
	return &models.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// GetProfile re-reads the account behind an authenticated identity. A
// record that no longer exists is ErrUnauthorized.
func (s *UserService) GetProfile(ctx context.Context, email string) (*models.SafeUser, error) {
	user, err := s.repomanager.Users(s.db).GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user.ToSafe(), nil
}

// withTx runs fn in a transaction when a database is configured and
// directly otherwise.
func (s *UserService) withTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	if s.db == nil {
		return fn(ctx, nil)
	}
	return dbx.WithTx(ctx, s.db, nil, fn)
}
