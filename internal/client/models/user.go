// Package models holds the client-side view of API payloads.
package models

import "time"

type Preferences struct {
	Lang  string `json:"lang,omitempty"`
	Theme string `json:"theme,omitempty"`
}

// User is the public account view returned by the API.
type User struct {
	ID          string      `json:"id"`
	Email       string      `json:"email"`
	Name        string      `json:"name"`
	Picture     string      `json:"picture,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	Provider    string      `json:"provider"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"createdAt"`
	LastLogin   time.Time   `json:"lastLogin"`
}

// Registration is the body of POST /auth/register.
type Registration struct {
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Password    string       `json:"password"`
	Phone       string       `json:"phone,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}
