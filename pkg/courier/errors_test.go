package courier

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVendorError_Error(t *testing.T) {
	err := NewVendorError("shiprocket", "create_order", "422", "invalid pincode")
	assert.Equal(t, "shiprocket create_order (422): invalid pincode", err.Error())

	withCause := NewVendorError("delhivery", "track", "500", "upstream down").
		WithCause(errors.New("connection refused"))
	assert.Contains(t, withCause.Error(), "connection refused")
}

func TestVendorError_Unwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewVendorError("xpressbees", "login", "401", "bad credentials").WithCause(cause)

	assert.True(t, errors.Is(err, cause))
}

func TestVendorError_IsMatchesByCode(t *testing.T) {
	a := NewVendorError("shiprocket", "cancel", "CANCEL_DENIED", "too late")
	b := NewVendorError("delhivery", "cancel", "CANCEL_DENIED", "different message")
	c := NewVendorError("delhivery", "cancel", "OTHER", "other")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrServiceUnavailable))
	assert.True(t, IsRetryable(ErrRateLimitExceeded))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", ErrServiceUnavailable)))

	assert.False(t, IsRetryable(ErrNotServiceable))
	assert.False(t, IsRetryable(errors.New("random")))

	retryable := NewVendorError("shiprocket", "track", "503", "busy").WithRetryable(true)
	assert.True(t, IsRetryable(retryable))

	permanent := NewVendorError("shiprocket", "track", "404", "unknown awb")
	assert.False(t, IsRetryable(permanent))
}

func TestParseVendorCode(t *testing.T) {
	code, err := ParseVendorCode("delhivery-0.5")
	assert.NoError(t, err)
	assert.Equal(t, VendorDelhiveryHalfKG, code)

	code, err = ParseVendorCode("shiprocket")
	assert.NoError(t, err)
	assert.Equal(t, VendorShiprocket, code)

	_, err = ParseVendorCode("bluedart")
	assert.True(t, errors.Is(err, ErrVendorNotFound))
}
