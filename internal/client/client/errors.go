package client

import "errors"

var (
	ErrUnavailable     = errors.New("server unavailable")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAlreadyExists   = errors.New("already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUpstream        = errors.New("analysis service unavailable")
	ErrAlreadyEnrolled = errors.New("totp already configured")
	ErrBadResponse     = errors.New("malformed server response")
)
