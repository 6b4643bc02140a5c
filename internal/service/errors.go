package service

import "errors"

var (
	// ErrNotAuthorized: the caller is authenticated but has no account and no way in.
	ErrNotAuthorized         = errors.New("no account found for this identity")
	ErrInviteInvalid         = errors.New("invite code invalid or already used")
	ErrTooManyInviteAttempts = errors.New("too many invite attempts")
	ErrInvalidInviteCount    = errors.New("invite count out of range")
)
