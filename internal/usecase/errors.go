package usecase

import (
	"errors"
	"fmt"

	"github.com/arklim/account-service/internal/repository"
)

// Kind classifies a usecase failure. The HTTP layer maps every kind to a status.
type Kind uint8

const (
	KindInternal Kind = iota
	KindBadRequest
	KindValidation
	KindInvalidCredentials
	KindUnauthorized
	KindRiskControlBlocked
	KindForbidden
	KindNotFound
	KindConflict
	KindStoreUnavailable
	KindCacheUnavailable
)

const serverErrorMessage = "Server error"

var errNoGenerator = errors.New("password generator not configured")

// String returns the snake_case name used in error bodies.
func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindUnauthorized:
		return "unauthorized"
	case KindRiskControlBlocked:
		return "risk_control_blocked"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindCacheUnavailable:
		return "cache_unavailable"
	default:
		return "internal"
	}
}

// Code returns the numeric code clients use to tell failures apart.
func (k Kind) Code() int {
	switch k {
	case KindBadRequest:
		return 400
	case KindValidation:
		return 422
	case KindInvalidCredentials, KindUnauthorized:
		return 401
	case KindRiskControlBlocked:
		return 403001
	case KindForbidden:
		return 403
	case KindNotFound:
		return 404
	case KindConflict:
		return 409
	case KindStoreUnavailable:
		return 100101
	case KindCacheUnavailable:
		return 100201
	default:
		return 600000
	}
}

// Exposed reports whether Message may be shown to the caller.
func (k Kind) Exposed() bool {
	switch k {
	case KindStoreUnavailable, KindCacheUnavailable, KindInternal:
		return false
	default:
		return true
	}
}

// Error is the single error type returned by the services in this package.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the numeric code of the error kind.
func (e *Error) Code() int {
	return e.Kind.Code()
}

// PublicMessage returns the caller-safe message.
func (e *Error) PublicMessage() string {
	if !e.Kind.Exposed() || e.Message == "" {
		return serverErrorMessage
	}
	return e.Message
}

// KindOf extracts the kind from err, treating foreign errors as internal.
func KindOf(err error) Kind {
	var ucErr *Error
	if errors.As(err, &ucErr) {
		return ucErr.Kind
	}
	return KindInternal
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func invalidCredentials() *Error {
	return newError(KindInvalidCredentials, "Invalid email or password", nil)
}

func validationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

func internalError(op string, err error) *Error {
	return newError(KindInternal, serverErrorMessage, fmt.Errorf("%s: %w", op, err))
}

func cacheError(op string, err error) *Error {
	return newError(KindCacheUnavailable, serverErrorMessage, fmt.Errorf("%s: %w", op, err))
}

// storeError translates repository sentinels into kinds.
func storeError(op string, err error) *Error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return newError(KindNotFound, "User not found", err)
	case errors.Is(err, repository.ErrConflict):
		return newError(KindConflict, "Username or email already exists", err)
	case errors.Is(err, repository.ErrStaleVersion):
		return newError(KindConflict, "Profile was modified concurrently, reload and retry", err)
	default:
		return newError(KindStoreUnavailable, serverErrorMessage, fmt.Errorf("%s: %w", op, err))
	}
}
