package repository

import "errors"

// Common repository errors
var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateEmail is returned when trying to create a user with an existing email
	ErrDuplicateEmail = errors.New("user with this email already exists")

	// ErrDuplicateIdentity is returned when a (provider, provider_user_id)
	// pair is already linked to a user
	ErrDuplicateIdentity = errors.New("linked identity already exists")

	// ErrDuplicateSlug is returned when trying to create a tag with an existing slug
	ErrDuplicateSlug = errors.New("tag with this slug already exists")
)
