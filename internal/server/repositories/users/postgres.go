package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tzikbal/internal/common"
	"github.com/dmitrijs2005/tzikbal/internal/dbx"
	"github.com/dmitrijs2005/tzikbal/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const selectUserColumns = `id, email, password_hash, name, picture, phone, provider, lang, theme,
		 array_to_string(roles, ','), status, version, created_at, updated_at, last_login`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts user and fills the database-assigned fields. A taken
// email is reported as common.ErrDuplicateEmail via the users_email_key
// constraint, so concurrent inserts cannot both succeed.
func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (email, password_hash, name, picture, phone, provider, lang, theme, status)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, version, created_at, updated_at, last_login
		 `

	passwordHash := sql.NullString{String: user.PasswordHash, Valid: user.PasswordHash != ""}

	err := r.db.QueryRowContext(ctx, query,
		user.Email, passwordHash, user.Name, user.Picture, user.Phone,
		string(user.Provider), user.Preferences.Lang, string(user.Preferences.Theme), user.Status,
	).Scan(&user.ID, &user.Version, &user.CreatedAt, &user.UpdatedAt, &user.LastLogin)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users
		 WHERE email = $1
		 `
	return r.getOne(ctx, query, email)
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users
		 WHERE id = $1
		 `
	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var (
		user         models.User
		passwordHash sql.NullString
		provider     string
		theme        string
		roles        string
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &passwordHash, &user.Name, &user.Picture, &user.Phone,
		&provider, &user.Preferences.Lang, &theme, &roles, &user.Status, &user.Version,
		&user.CreatedAt, &user.UpdatedAt, &user.LastLogin,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.PasswordHash = passwordHash.String
	user.Provider = models.Provider(provider)
	user.Preferences.Theme = models.Theme(theme)
	if roles != "" {
		user.Roles = strings.Split(roles, ",")
	}

	return &user, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
