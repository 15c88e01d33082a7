package rtu

import (
	"errors"

	"github.com/goburrow/modbus"
)

var (
	// ErrInvalidParameter reports a request the caller should not have made.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrTimeout means the device sent nothing within the configured timeout.
	ErrTimeout        = errors.New("timeout waiting for response")
	ErrChecksum       = errors.New("crc mismatch")
	ErrDeviceMismatch = errors.New("device address mismatch")
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrTransport wraps failures of the serial port itself.
	ErrTransport = errors.New("transport failure")
)

// Retryable reports whether repeating the same request may succeed.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrChecksum),
		errors.Is(err, ErrDeviceMismatch),
		errors.Is(err, ErrMalformedFrame):
		return true
	}
	var mErr *modbus.ModbusError
	if errors.As(err, &mErr) {
		return mErr.ExceptionCode == modbus.ExceptionCodeServerDeviceBusy
	}
	return false
}
