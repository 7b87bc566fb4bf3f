package pane

import (
	"context"
	"io"
)

// UnknownSize is the Stream size reported when the producer cannot tell.
const UnknownSize int64 = -1

// Stream is an open byte stream of a file's content.
type Stream struct {
	io.ReadCloser
	Size int64
}

// NewStream wraps rc with a size. Use UnknownSize when it is not known.
func NewStream(rc io.ReadCloser, size int64) *Stream {
	return &Stream{ReadCloser: rc, Size: size}
}

// Backend is the storage capability set a pane is driven through. Locations
// are backend specific: an absolute path for hierarchical stores, a key
// prefix for object stores. Errors are returned already classified as
// *fault.Error.
type Backend interface {
	// List returns the entries directly under location.
	List(ctx context.Context, location string) ([]Entry, error)
	// Open starts reading the file name under location.
	Open(ctx context.Context, location, name string) (*Stream, error)
	// Put writes s to the file name under location, consuming s fully.
	Put(ctx context.Context, location, name string, s *Stream) error
	// Delete removes the file name under location.
	Delete(ctx context.Context, location, name string) error

	// Into returns the location of directory entry dir inside location.
	Into(location, dir string) (string, bool)
	// Out returns the parent of location, false at the root.
	Out(location string) (string, bool)
	// Join renders location and name as a single path for messages.
	Join(location, name string) string

	// Resource names what is being browsed (user name, bucket, host).
	Resource() string
	// Provider names the kind of store ("local", "S3", ...).
	Provider() string
	// Domain is the error domain reported in fault records.
	Domain() string
}
