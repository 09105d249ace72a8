package device

import (
	"errors"
	"fmt"
	"net"
	"os"
)

// Error types for device communication

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeOffline indicates the device did not answer within the retry budget
	ErrTypeOffline ErrorType = iota
	// ErrTypeProtocol indicates a broken internal invariant (unknown sequence, bad enum)
	ErrTypeProtocol
	// ErrTypeNetwork indicates a socket level failure
	ErrTypeNetwork
)

// ErrDeviceOffline is wrapped by every offline DeviceError so callers can use errors.Is.
var ErrDeviceOffline = errors.New("device offline")

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeOffline:
		return "Device Offline"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeNetwork:
		return "Network Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DeviceError represents an error that occurred while talking to a bulb
type DeviceError struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	MAC     string    // Device MAC address (for context)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	prefix := e.Type.String()
	if e.MAC != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, e.MAC)
	}
	if e.Err != nil && e.Err != ErrDeviceOffline {
		return fmt.Sprintf("%s: %s (caused by: %v)", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewOfflineError reports retry exhaustion for a request.
func NewOfflineError(mac string, attempts int, typeName string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeOffline,
		Message: fmt.Sprintf("no %s after %d attempts", typeName, attempts),
		MAC:     mac,
		Err:     ErrDeviceOffline,
	}
}

// NewProtocolError reports a broken request-tracking invariant.
func NewProtocolError(mac, message string) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeProtocol,
		Message: message,
		MAC:     mac,
	}
}

// NewNetworkError wraps a socket failure.
func NewNetworkError(mac, message string, err error) *DeviceError {
	return &DeviceError{
		Type:    ErrTypeNetwork,
		Message: message,
		MAC:     mac,
		Err:     err,
	}
}

// IsOffline checks if an error means the device stopped answering
func IsOffline(err error) bool {
	return errors.Is(err, ErrDeviceOffline)
}

// IsProtocolError checks if an error is a request-tracking fault
func IsProtocolError(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type == ErrTypeProtocol
	}
	return false
}

// IsNetworkError checks if an error is a network-related error
func IsNetworkError(err error) bool {
	var devErr *DeviceError
	if errors.As(err, &devErr) {
		return devErr.Type == ErrTypeNetwork
	}
	var netErr net.Error
	return errors.As(err, &netErr) || os.IsTimeout(err)
}
