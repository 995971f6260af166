// Package models holds the server-side domain types shared by repositories,
// services and the REST layer.
package models

import "time"

// Provider tags how an account was created.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
)

// Theme is a UI theme preference.
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
	ThemeAuto  Theme = "auto"
)

// Default preference values applied when a client sends none.
const (
	DefaultLang  = "en"
	DefaultTheme = ThemeAuto
)

// Preferences are per-user UI settings.
type Preferences struct {
	Lang  string `json:"lang"`
	Theme Theme  `json:"theme"`
}

// DefaultPreferences returns {lang: "en", theme: "auto"}.
func DefaultPreferences() Preferences {
	return Preferences{Lang: DefaultLang, Theme: DefaultTheme}
}

// User is the stored account record. PasswordHash is empty for accounts
// created through a federated provider; such accounts cannot use password
// login. User must never be serialized to a client: use ToSafe.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	Picture      string
	Phone        string
	Provider     Provider
	Preferences  Preferences
	Roles        []string
	Status       bool
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLogin    time.Time
}

// CanLoginWithPassword reports whether the record carries a password hash.
func (u *User) CanLoginWithPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// SafeUser is the projection of User returned across the trust boundary.
// It has no password field by construction.
type SafeUser struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Picture     string      `json:"picture,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Provider    Provider    `json:"provider"`
	Preferences Preferences `json:"preferences"`
	Roles       []string    `json:"roles,omitempty"`
	Status      bool        `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	LastLogin   time.Time   `json:"lastLogin"`
}

// ToSafe projects u onto a SafeUser.
func (u *User) ToSafe() *SafeUser {
	if u == nil {
		return nil
	}
	var roles []string
	if len(u.Roles) > 0 {
		roles = append(roles, u.Roles...)
	}
	return &SafeUser{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Picture:     u.Picture,
		Phone:       u.Phone,
		Provider:    u.Provider,
		Preferences: u.Preferences,
		Roles:       roles,
		Status:      u.Status,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLogin:   u.LastLogin,
	}
}

// Identity is the authenticated principal attached to a request after the
// bearer token has been verified.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Assertion is the identity a federated provider vouches for after a
// successful exchange.
type Assertion struct {
	Email   string
	Name    string
	Picture string
}
