package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrValidation marks malformed documents, filters, or vectors.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing collection or document.
	ErrNotFound = errors.New("not found")
	// ErrConnectivity marks an unreachable or timed out backend or provider.
	ErrConnectivity = errors.New("connectivity failure")
	// ErrAlreadyExists is returned when creating a collection that exists.
	ErrAlreadyExists = errors.New("already exists")
)

// Validationf wraps ErrValidation with a formatted message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Connectivity wraps a transport failure so errors.Is(err, ErrConnectivity) holds.
func Connectivity(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectivity) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrConnectivity, err)
}

// IsConnectivity reports whether err is a transport or timeout failure.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectivity) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
