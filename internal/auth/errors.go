package auth

import "errors"

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrInvalidInput  = errors.New("auth: invalid input")
	ErrConflict      = errors.New("auth: already exists")
	ErrUnauthorized  = errors.New("auth: unauthorized")
	ErrForbidden     = errors.New("auth: forbidden")
	ErrSessionActive = errors.New("auth: user already has an active session")
	ErrInvalidToken  = errors.New("auth: invalid token")
)
