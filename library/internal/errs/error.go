package errs

import (
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrNotPermitted = errors.New("not permitted")
	ErrInvalidInput = errors.New("invalid input")
	ErrCorruptStore = errors.New("corrupt catalog record")
)

type ErrorResponse struct {
	Message string `json:"message"`
}
