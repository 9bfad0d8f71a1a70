package auth

import "errors"

// Sentinel causes carried inside apierr authentication errors.
var (
	ErrNoAccount         = errors.New("auth: no account bound")
	ErrEmptyToken        = errors.New("auth: identity client returned an empty access token")
	ErrTokenMalformed    = errors.New("auth: token malformed")
	ErrTokenExpired      = errors.New("auth: token expired")
	ErrAccountNotFound   = errors.New("auth: account not in token cache")
	ErrRefreshNotAllowed = errors.New("auth: silent acquisition cannot force a refresh")
)
