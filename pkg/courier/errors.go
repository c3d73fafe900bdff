package courier

import (
	"errors"
	"fmt"
)

// VendorError represents an error from a courier vendor API. Adapters keep
// these internal and surface them to callers as failed Outcomes with the
// vendor payload attached for diagnostics.
type VendorError struct {
	Vendor     string
	Op         string
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *VendorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s (%s): %s: %v", e.Vendor, e.Op, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s (%s): %s", e.Vendor, e.Op, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *VendorError) Unwrap() error {
	return e.Cause
}

// Is matches VendorErrors by code.
func (e *VendorError) Is(target error) bool {
	t, ok := target.(*VendorError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewVendorError creates a new VendorError.
func NewVendorError(vendor, op, code, message string) *VendorError {
	return &VendorError{
		Vendor:  vendor,
		Op:      op,
		Code:    code,
		Message: message,
	}
}

// WithCause attaches an underlying error.
func (e *VendorError) WithCause(err error) *VendorError {
	e.Cause = err
	return e
}

// WithStatusCode attaches the HTTP status.
func (e *VendorError) WithStatusCode(code int) *VendorError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *VendorError) WithRetryable(retryable bool) *VendorError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for common vendor scenarios.
var (
	// ErrVendorNotFound indicates the requested vendor is not registered.
	ErrVendorNotFound = errors.New("vendor not found")

	// ErrAuthTokenUnavailable indicates the vendor issued no auth token.
	// Callers degrade to "not serviceable", never fatal.
	ErrAuthTokenUnavailable = errors.New("auth token unavailable")

	// ErrNotServiceable indicates the route is outside the vendor's network.
	ErrNotServiceable = errors.New("route not serviceable")

	// ErrShipmentNotFound indicates the AWB is unknown to the vendor.
	ErrShipmentNotFound = errors.New("shipment not found")

	// ErrCancellationNotAllowed indicates the shipment can no longer be cancelled.
	ErrCancellationNotAllowed = errors.New("cancellation not allowed")

	// ErrServiceUnavailable indicates the vendor API is temporarily down.
	ErrServiceUnavailable = errors.New("vendor service unavailable")

	// ErrRateLimitExceeded indicates the vendor throttled us.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	var vendorErr *VendorError
	if errors.As(err, &vendorErr) {
		return vendorErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded)
}
