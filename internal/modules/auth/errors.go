package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username or email already registered")
	ErrAdminSignup        = errors.New("admin accounts must be created internally")
	ErrInvalidRole        = errors.New("invalid role")
)
