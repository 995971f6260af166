package common

const (
	// AuthorizationHeaderName carries the bearer token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the authorization scheme prefix expected before the token.
	BearerScheme = "Bearer"

	// BcryptCost is the bcrypt work factor used for new password hashes.
	BcryptCost = 10

	// MaxPasswordBytes is bcrypt's input limit.
	MaxPasswordBytes = 72
)
