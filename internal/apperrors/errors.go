package apperrors

import (
	"errors"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token stored")
	ErrSessionExpired = errors.New("session expired")

	ErrStatusNotFound = errors.New("status not found")

	ErrFetchInProgress = errors.New("fetch already in progress")
	ErrNoMorePages     = errors.New("no more pages")
)
