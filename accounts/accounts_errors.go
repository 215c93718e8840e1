package accounts

import "errors"

var (
	ErrPasswordNotSet   = errors.New("password not set")
	ErrPasswordMismatch = errors.New("password mismatch")
)
