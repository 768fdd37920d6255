package model

import "errors"

var (
	// Credential errors. ErrInvalidCredentials deliberately covers both
	// unknown username and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")

	// User errors
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidOldPassword = errors.New("invalid old password")

	// Token/session errors
	ErrSessionNotFound   = errors.New("session not found")
	ErrInvalidResetToken = errors.New("invalid reset token")
	ErrTokenInvalid      = errors.New("token invalid")

	// Generic errors
	ErrBadRequest = errors.New("bad request")
)
