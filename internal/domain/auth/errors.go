package auth

import (
	"fmt"

	"fieldwork/internal/pkg/apperror"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: email or password is incorrect", apperror.ErrUnauthorized)
	ErrEmailAlreadyExists = fmt.Errorf("%w: email already exists", apperror.ErrInvalidInput)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", apperror.ErrNotFound)
)
