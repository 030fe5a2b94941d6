package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateSlug is returned when a tenant slug is already taken
	ErrDuplicateSlug = errors.New("tenant with this slug already exists")

	// ErrDuplicateState is returned when an authorization state value already exists
	ErrDuplicateState = errors.New("authorization state already exists")

	// ErrDuplicateToken is returned when trying to create a token with an existing hash
	ErrDuplicateToken = errors.New("token with this hash already exists")

	// ErrDuplicateClient is returned when an OAuth client id collides
	ErrDuplicateClient = errors.New("oauth client already exists")
)
