package platforms

import (
	"errors"
	"fmt"

	"github.com/white/campaign-manager/internal/models"
)

var (
	// ErrNotConnected means the user has no usable credential for the platform.
	ErrNotConnected = errors.New("account not connected")

	// ErrNotReady means a launch readiness check failed.
	ErrNotReady = errors.New("campaign not ready to launch")

	// ErrNoAdAccount means the vendor listed no ad accounts for the user.
	ErrNoAdAccount = errors.New("no ad accounts found")
)

// PlatformError is any failure talking to a vendor. Error returns the
// human-readable message stored on the campaign's platform link.
type PlatformError struct {
	Platform models.PlatformName
	Op       string
	Message  string
	Err      error
}

func (e *PlatformError) Error() string {
	return e.Message
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

// AuthExchangeError is a failed OAuth code exchange.
type AuthExchangeError struct {
	Platform models.PlatformName
	Message  string
	Err      error
}

func (e *AuthExchangeError) Error() string {
	return e.Message
}

func (e *AuthExchangeError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx vendor response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// kindError carries a vendor-facing message while matching a sentinel kind.
type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// notReady builds the readiness failure callers classify as a validation error.
func notReady(msg string) error {
	return &kindError{msg: msg, kind: ErrNotReady}
}

func noAdAccount() error {
	return &kindError{msg: "No ad accounts found for this user", kind: ErrNoAdAccount}
}

// IsNotReady reports whether err is a launch readiness failure.
func IsNotReady(err error) bool {
	return errors.Is(err, ErrNotReady)
}
