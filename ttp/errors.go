package ttp

import (
	"errors"
	"fmt"
	"strings"
)

// Error types for wire-level encoding and decoding.
//
// Decode errors are always recoverable: each line is self-delimited, so
// a caller can discard the offending line and keep parsing the stream.
// Encode errors are local validation failures raised before any byte is
// written.

// MalformedValueError reports a line that carried a recognized marker
// but whose payload could not be classified into any value production.
type MalformedValueError struct {
	Input  string // full line being parsed
	Pos    int    // byte offset where parsing failed
	Reason string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("ttp: malformed value at offset %d: %s", e.Pos, e.Reason)
}

// UnrecognizedLineError reports a line that does not start with any
// known response marker.
type UnrecognizedLineError struct {
	Line string
}

func (e *UnrecognizedLineError) Error() string {
	return fmt.Sprintf("ttp: unrecognized line %q", e.Line)
}

// IllegalValueError reports a command or value that cannot be
// represented in the textual grammar without ambiguity, for example a
// string containing an unescapable quote or line terminator.
type IllegalValueError struct {
	Reason string
}

func (e *IllegalValueError) Error() string {
	return "ttp: illegal value: " + e.Reason
}

// DeviceError is an error reported by the device in a -ERR reply.
// It is a protocol-level outcome, not a decode failure: the line itself
// parsed fine, the device refused the operation.
type DeviceError struct {
	// Code is the leading classification of the message when the
	// device provides one ("address not found", ...), empty otherwise.
	Code string

	// Message is the full error text after the -ERR marker.
	Message string
}

func (e *DeviceError) Error() string {
	if e.Message == "" {
		return "ttp: device reported an error"
	}
	return "ttp: device error: " + e.Message
}

func newDeviceError(message string) *DeviceError {
	code := ""
	if i := strings.IndexByte(message, ':'); i > 0 {
		code = strings.TrimSpace(message[:i])
	}
	return &DeviceError{Code: code, Message: message}
}

// IsDecodeError reports whether err is a recoverable per-line decode
// failure (malformed value or unrecognized line). Dispatchers use this
// to decide between dropping one line and tearing the session down.
func IsDecodeError(err error) bool {
	var malformed *MalformedValueError
	var unrecognized *UnrecognizedLineError
	return errors.As(err, &malformed) || errors.As(err, &unrecognized)
}
