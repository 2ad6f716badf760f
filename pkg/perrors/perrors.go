// Package perrors provides the closed error-kind taxonomy used across the
// engine, following the same shape as an SDK's own error package: a Kind
// enum, an Error struct with Op/Message/Err, and Is/Unwrap support.
package perrors

import (
	"errors"
	"fmt"
)

// Kind categorizes an error. The zero value is KindUnknown.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindParse
	KindNotFound
	KindRateLimited
	KindNetwork
	KindRegistryProtocol
	KindCache
	KindConfiguration
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse_error"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindNetwork:
		return "network_error"
	case KindRegistryProtocol:
		return "registry_protocol_error"
	case KindCache:
		return "cache_error"
	case KindConfiguration:
		return "configuration_error"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the base error type for all engine errors.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Op != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// E constructs an Error from the given arguments. Arguments can be a Kind,
// a string (first is Op, second is Message), or an error.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			e.Kind = a
		case string:
			if e.Op == "" {
				e.Op = a
			} else {
				e.Message = a
			}
		case error:
			e.Err = a
		}
	}
	return e
}

// GetKind returns the Kind of err, or KindUnknown if err is not an *Error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the caller should retry the operation.
func IsRetryable(err error) bool {
	switch GetKind(err) {
	case KindRateLimited, KindNetwork, KindTimeout:
		return true
	default:
		return false
	}
}

// IsNotFound reports whether err represents a registry 404.
func IsNotFound(err error) bool {
	return GetKind(err) == KindNotFound
}

var (
	// ErrTimeout is returned when a fetch exceeds its deadline.
	ErrTimeout = &Error{Kind: KindTimeout, Message: "operation timed out"}

	// ErrRateLimited is returned when a registry rejects a request after
	// exhausting the retry budget.
	ErrRateLimited = &Error{Kind: KindRateLimited, Message: "rate limited"}

	// ErrNotFound is returned when a registry has no record of a package.
	ErrNotFound = &Error{Kind: KindNotFound, Message: "package not found"}
)
