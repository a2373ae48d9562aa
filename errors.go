// SPDX-License-Identifier: MIT
//
// This source code is licensed under the MIT license found in the
// LICENSE file in the root directory of this source tree or at
// https://spdx.org/licenses/MIT.html

package pake

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

var (
	// ErrConfiguration indicates that an engine configuration is invalid.
	ErrConfiguration = ErrCodeConfiguration.New("")

	// ErrRandomness indicates that the random source failed or was exhausted.
	// It is always propagated and never retried internally.
	ErrRandomness = ErrCodeRandomness.New("random source failure")

	// ErrInvalidPeer indicates that a received group element is the identity,
	// off-curve, non-canonical, or zero mod N. The handshake aborts.
	ErrInvalidPeer = ErrCodeInvalidPeer.New("invalid peer value")

	// ErrZeroChallenge indicates that a derived challenge scalar is zero.
	// The handshake aborts and is never retried with the same inputs.
	ErrZeroChallenge = ErrCodeZeroChallenge.New("derived challenge is zero")

	// ErrAuthentication indicates a confirmation tag mismatch. The reason for
	// the mismatch is deliberately not distinguished.
	ErrAuthentication = ErrCodeAuthentication.New("authentication failed")

	// ErrLookup indicates that a verifier record was not found. Servers must
	// not surface this mid-handshake; it exists for registration interfaces.
	ErrLookup = ErrCodeLookup.New("verifier lookup failed")

	// ErrEncoding indicates a malformed fixed-width field or a digest output
	// size mismatch.
	ErrEncoding = ErrCodeEncoding.New("invalid encoding")

	// ErrState indicates that a state machine was driven out of order or
	// reused after completion.
	ErrState = ErrCodeState.New("invalid handshake state")
)

// ErrorCode categorizes the failure conditions of the PAKE engines so that
// callers can dispatch on the kind of error without parsing messages.
type ErrorCode byte //nolint:errname // This is an error code, not an error type.

const (
	// ErrCodeUnknown represents an unknown error.
	ErrCodeUnknown ErrorCode = iota

	// ErrCodeConfiguration represents an invalid engine configuration.
	ErrCodeConfiguration

	// ErrCodeRandomness represents a failure of the random source.
	ErrCodeRandomness

	// ErrCodeInvalidPeer represents a rejected peer-supplied group element.
	ErrCodeInvalidPeer

	// ErrCodeZeroChallenge represents a zero-valued derived challenge.
	ErrCodeZeroChallenge

	// ErrCodeAuthentication represents a confirmation-tag mismatch.
	ErrCodeAuthentication

	// ErrCodeLookup represents a failed verifier lookup.
	ErrCodeLookup

	// ErrCodeEncoding represents a malformed or non-canonical encoding.
	ErrCodeEncoding

	// ErrCodeState represents an out-of-order state machine transition.
	ErrCodeState
)

// New creates a new Error with the given message and wrapped errors.
func (c ErrorCode) New(message string, errs ...error) *Error {
	if message == "" {
		message = strings.ReplaceAll(c.String(), "_", " ")
	}

	return &Error{
		Code:    c,
		Message: message,
		Err:     errors.Join(errs...),
	}
}

// String returns the string representation of the ErrorCode. If the code is
// not recognized, it returns "unknown_error".
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeUnknown:
		return "unknown_error"
	case ErrCodeConfiguration:
		return "configuration_error"
	case ErrCodeRandomness:
		return "randomness_error"
	case ErrCodeInvalidPeer:
		return "invalid_peer_value_error"
	case ErrCodeZeroChallenge:
		return "zero_challenge_error"
	case ErrCodeAuthentication:
		return "authentication_error"
	case ErrCodeLookup:
		return "lookup_error"
	case ErrCodeEncoding:
		return "encoding_error"
	case ErrCodeState:
		return "state_error"
	default:
		return "unknown_error"
	}
}

// Error implements the error interface for the ErrorCode type.
func (c ErrorCode) Error() string {
	return c.String()
}

// Is implements the errors.Is method for the ErrorCode type. It allows
// checking if the error is of a specific ErrorCode.
func (c ErrorCode) Is(target error) bool {
	var errCode ErrorCode
	if errors.As(target, &errCode) {
		return byte(c) == byte(errCode)
	}

	var pakeErr *Error
	if errors.As(target, &pakeErr) {
		return byte(c) == byte(pakeErr.Code)
	}

	return false
}

// As implements the errors.As method for the ErrorCode type.
func (c ErrorCode) As(target any) bool {
	switch t := target.(type) {
	case ErrorCode:
		return true
	case *ErrorCode:
		*t = c
		return true
	default:
		return false
	}
}

// Error represents a failure in one of the PAKE engines.
type Error struct {
	Err     error
	Message string
	Code    ErrorCode
}

// Error implements the error interface for the Error type. By convention, only
// the concise form of the current error is returned, without the cause. The
// cause can be retrieved with the Unwrap() method.
func (e *Error) Error() string { return e.Message }

// Unwrap implements the errors.Unwrap method for the Error type.
func (e *Error) Unwrap() error { return e.Err }

// Join wraps the provided errors into the current error.
func (e *Error) Join(errs ...error) error {
	return errors.Join(e, errors.Join(errs...))
}

// LogValue implements the slog.LogValuer interface for the Error type.
func (e *Error) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("code", int(e.Code)),
		slog.String("code_name", e.Code.String()),
		slog.String("message", e.Message),
	}
	if e.Err != nil {
		attrs = append(attrs, slog.Any("error", e.Err))
	}

	return slog.GroupValue(attrs...)
}

// Format implements the fmt.Formatter interface for the Error type.
func (e *Error) Format(f fmt.State, verb rune) {
	switch verb {
	case 'v':
		if f.Flag('+') {
			e.formatV(f)
			return
		}

		fallthrough
	case 's':
		_, _ = io.WriteString(f, e.Error())
	case 'q':
		_, _ = fmt.Fprintf(f, "%q", e.Error())
	default:
		_, _ = io.WriteString(f, e.Error())
	}
}

// Is implements the errors.Is method for the Error type.
func (e *Error) Is(target error) bool {
	return e.Code.Is(target) && strings.EqualFold(e.Message, target.Error())
}

// As implements the errors.As method for the Error type.
func (e *Error) As(target any) bool {
	switch t := target.(type) {
	case *ErrorCode:
		*t = e.Code
		return true
	case **Error:
		*t = e
		return true
	default:
		return false
	}
}

func printV(f fmt.State, err error, depth int) {
	if err == nil {
		return
	}

	prefix := strings.Repeat("  ", depth)
	_, _ = fmt.Fprintf(f, "\n%s↳ %v", prefix, err)

	var multiUnwrapper interface{ Unwrap() []error }
	if errors.As(err, &multiUnwrapper) {
		for _, child := range multiUnwrapper.Unwrap() {
			printV(f, child, depth+1)
		}

		return
	}

	var singleUnwrapper interface{ Unwrap() error }
	if errors.As(err, &singleUnwrapper) {
		printV(f, singleUnwrapper.Unwrap(), depth+1)
	}
}

func (e *Error) formatV(f fmt.State) {
	_, _ = fmt.Fprintf(f, "code=%d(%s)", e.Code, e.Code.String())
	if e.Message != "" {
		_, _ = fmt.Fprintf(f, " message=%q", e.Message)
	}

	if e.Err != nil {
		printV(f, e.Err, 0)
	}
}
