package bridgeclient

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates nothing is listening at the bridge address
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeHTTP indicates a non-2xx reply not covered below
	ErrTypeHTTP
	// ErrTypeNotFound indicates the bridge does not know the device
	ErrTypeNotFound
	// ErrTypeBadRequest indicates the bridge rejected the command
	ErrTypeBadRequest
	// ErrTypeOffline indicates the bulb did not answer the bridge
	ErrTypeOffline
	// ErrTypeParse indicates a malformed reply
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeNotFound:
		return "Not Found"
	case ErrTypeBadRequest:
		return "Bad Request"
	case ErrTypeOffline:
		return "Device Offline"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// BridgeError is returned by every Client method.
type BridgeError struct {
	Type       ErrorType
	Message    string
	StatusCode int    // HTTP status code, if a reply arrived
	MAC        string // device the bridge reported, if any
	Err        error
	Retryable  bool
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// classifyNetworkError maps a transport failure to a BridgeError.
func classifyNetworkError(message string, err error) *BridgeError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	be := &BridgeError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case os.IsTimeout(err):
		be.Type = ErrTypeTimeout
	case errors.As(err, &dnsErr):
		be.Type = ErrTypeDNS
		be.Retryable = false
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED):
		be.Type = ErrTypeConnectionRefused
	case errors.Is(err, syscall.ECONNREFUSED):
		be.Type = ErrTypeConnectionRefused
	}
	return be
}

// statusError maps a non-2xx reply to a BridgeError. Only 503 is retried:
// the bridge was shutting down or restarting.
func statusError(status int, message, mac string) *BridgeError {
	be := &BridgeError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: status,
		MAC:        mac,
	}
	switch status {
	case http.StatusNotFound:
		be.Type = ErrTypeNotFound
	case http.StatusBadRequest:
		be.Type = ErrTypeBadRequest
	case http.StatusGatewayTimeout:
		be.Type = ErrTypeOffline
	case http.StatusServiceUnavailable:
		be.Retryable = true
	}
	return be
}

func hasType(err error, types ...ErrorType) bool {
	var be *BridgeError
	if !errors.As(err, &be) {
		return false
	}
	for _, t := range types {
		if be.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError reports whether the bridge could not be reached at all.
func IsNetworkError(err error) bool {
	return hasType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS)
}

// IsNotFound reports whether the bridge does not know the device.
func IsNotFound(err error) bool {
	return hasType(err, ErrTypeNotFound)
}

// IsOffline reports whether the bulb did not answer the bridge.
func IsOffline(err error) bool {
	return hasType(err, ErrTypeOffline)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var be *BridgeError
	if errors.As(err, &be) {
		return be.Retryable
	}
	return false
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	var be *BridgeError
	if !errors.As(err, &be) {
		return err.Error()
	}

	switch be.Type {
	case ErrTypeTimeout:
		return "Bridge not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Bridge refused connection - is lifx-bridge running?"
	case ErrTypeDNS:
		return "Cannot resolve bridge hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeNotFound:
		return "Bridge does not know this device"
	case ErrTypeOffline:
		return "Bulb did not answer the bridge"
	case ErrTypeParse:
		return "Failed to parse bridge response"
	default:
		return be.Message
	}
}
