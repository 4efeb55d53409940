package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDevice means the device_id is not in the registry.
	ErrUnknownDevice = errors.New("unknown device_id")
	// ErrUnauthorized means the role-appropriate secret was missing or wrong.
	ErrUnauthorized = errors.New("unauthorized")

	ErrInvalidAdminKey  = fmt.Errorf("%w: invalid admin API key", ErrUnauthorized)
	ErrInvalidDeviceKey = fmt.Errorf("%w: invalid device key", ErrUnauthorized)
)
