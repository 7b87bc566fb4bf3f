// Package fault defines the error record every storage backend reports and
// the shared stack the UI surfaces to the user.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure independently of the backend that produced it.
type Kind int

const (
	Unexpected Kind = iota
	NotFound
	PermissionDenied
	AlreadyExists
	InvalidData
	IncompleteTransfer
	Unsupported
	Service
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "NotFound"
	case PermissionDenied:
		return "PermissionDenied"
	case AlreadyExists:
		return "AlreadyExists"
	case InvalidData:
		return "InvalidData"
	case IncompleteTransfer:
		return "IncompleteTransfer"
	case Unsupported:
		return "Unsupported"
	case Service:
		return "Service"
	default:
		return "Unexpected"
	}
}

// Error is a classified failure. Domain names the backend ("Local Filesystem",
// "S3", ...), Code is the backend's own code (or the Kind name when the
// backend has none) and Message is the human readable part.
type Error struct {
	Domain  string
	Code    string
	Message string
	Kind    Kind
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s Err: %s - %s", e.Domain, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error whose code is the kind name.
func New(domain string, kind Kind, message string) *Error {
	return &Error{Domain: domain, Code: kind.String(), Message: message, Kind: kind}
}

// Wrap builds an Error from an underlying cause. An empty code defaults to
// the kind name and an empty message to the cause's text.
func Wrap(domain string, kind Kind, code string, err error) *Error {
	if code == "" {
		code = kind.String()
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Domain: domain, Code: code, Message: msg, Kind: kind, Err: err}
}

// WithFile returns a copy of e whose message names the file involved.
func (e *Error) WithFile(path string) *Error {
	c := *e
	c.Message = fmt.Sprintf("(File: %s) %s", path, e.Message)
	return &c
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// KindOf returns the kind of err, Unexpected when err carries none.
func KindOf(err error) Kind {
	if fe, ok := As(err); ok {
		return fe.Kind
	}
	return Unexpected
}

// Ensure converts any error into an *Error, tagging foreign errors with
// domain as Unexpected.
func Ensure(domain string, err error) *Error {
	if err == nil {
		return nil
	}
	if fe, ok := As(err); ok {
		return fe
	}
	return Wrap(domain, Unexpected, "", err)
}
