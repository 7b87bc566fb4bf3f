// Package objstore presents a flat key/value object store as a browsable
// hierarchy. Keys are split on "/" into pseudo-directories; a location is a
// key prefix that is either empty (the container root) or ends in "/".
package objstore

import (
	"context"
	"io"
	"strings"
	"time"

	"dualfm/internal/fault"
	"dualfm/internal/pane"
)

// Delimiter separates pseudo-directory levels inside keys.
const Delimiter = "/"

// Object is one key returned by a listing.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Client is the flat key store a Backend navigates. Implementations return
// errors already classified as *fault.Error in their own domain.
type Client interface {
	// List returns every key starting with prefix.
	List(ctx context.Context, prefix string) ([]Object, error)
	// Get opens the object and reports its size.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	// Put stores size bytes read from r under key.
	Put(ctx context.Context, key string, r io.Reader, size int64) error
	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Container is the bucket or container name.
	Container() string
	// Provider names the service ("S3", "Azure", ...).
	Provider() string
	// Domain is the error domain of the client.
	Domain() string
}

// Backend implements pane.Backend on top of a Client.
type Backend struct {
	client Client
}

var _ pane.Backend = (*Backend)(nil)

// New wraps client.
func New(client Client) *Backend {
	return &Backend{client: client}
}

// Client returns the wrapped client.
func (b *Backend) Client() Client { return b.client }

// List lists the top level of prefix.
func (b *Backend) List(ctx context.Context, prefix string) ([]pane.Entry, error) {
	objs, err := b.client.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}
	return TopLevel(prefix, keys), nil
}

// TopLevel reduces keys to the entries directly under prefix. A key whose
// remainder has no delimiter is a file. A remainder ending in its only
// delimiter is a pseudo-directory marker. Deeper keys contribute their first
// path segment as a pseudo-directory, so folders without a marker object are
// still reachable. The prefix marker itself is dropped. Entries appear in the
// order of their first key.
func TopLevel(prefix string, keys []string) []pane.Entry {
	var entries []pane.Entry
	seen := make(map[string]bool)
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if rest == "" {
			continue
		}
		name, kind := rest, pane.KindFile
		if i := strings.Index(rest, Delimiter); i >= 0 {
			name, kind = rest[:i+1], pane.KindDirectory
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, pane.Entry{Name: name, Kind: kind})
	}
	return entries
}

// Into appends a pseudo-directory name (which keeps its trailing delimiter)
// to prefix.
func (b *Backend) Into(prefix, dir string) (string, bool) {
	return Into(prefix, dir)
}

// Out strips the last level from prefix.
func (b *Backend) Out(prefix string) (string, bool) {
	return Out(prefix)
}

// Into is the prefix arithmetic behind Backend.Into.
func Into(prefix, dir string) (string, bool) {
	if dir == Delimiter || !strings.HasSuffix(dir, Delimiter) {
		return prefix, false
	}
	return prefix + dir, true
}

// Out truncates prefix just after the last delimiter that precedes its
// final character. The empty prefix is the root.
func Out(prefix string) (string, bool) {
	if prefix == "" {
		return "", false
	}
	i := strings.LastIndex(prefix[:len(prefix)-1], Delimiter)
	if i < 0 {
		return "", true
	}
	return prefix[:i+1], true
}

// Open streams the object prefix+name.
func (b *Backend) Open(ctx context.Context, prefix, name string) (*pane.Stream, error) {
	if strings.HasSuffix(name, Delimiter) {
		return nil, fault.New(b.Domain(), fault.Unsupported, "Transfer of directories is unsupported!")
	}
	rc, size, err := b.client.Get(ctx, prefix+name)
	if err != nil {
		return nil, err
	}
	return pane.NewStream(rc, size), nil
}

// Put uploads s as prefix+name. Object stores need the length up front, so
// a stream of unknown size is refused.
func (b *Backend) Put(ctx context.Context, prefix, name string, s *pane.Stream) error {
	if s.Size < 0 {
		return &fault.Error{
			Domain:  b.Domain(),
			Code:    "UnknownSize",
			Message: "source stream did not report its size",
			Kind:    fault.Unexpected,
		}
	}
	return b.client.Put(ctx, prefix+name, s, s.Size)
}

// Delete removes the object prefix+name. Pseudo-directories are refused.
func (b *Backend) Delete(ctx context.Context, prefix, name string) error {
	if strings.HasSuffix(name, Delimiter) {
		return fault.New(b.Domain(), fault.Unsupported, "Deletion of directories is unsupported!")
	}
	return b.client.Delete(ctx, prefix+name)
}

// Join returns the full key.
func (b *Backend) Join(prefix, name string) string { return prefix + name }

// Resource is the container name.
func (b *Backend) Resource() string { return b.client.Container() }

// Provider is the client's provider label.
func (b *Backend) Provider() string { return b.client.Provider() }

// Domain is the client's error domain.
func (b *Backend) Domain() string { return b.client.Domain() }

// SplitLocation splits "container/some/prefix" into the container and a
// normalized prefix ("" or ending in the delimiter).
func SplitLocation(s string) (container, prefix string) {
	s = strings.TrimPrefix(s, Delimiter)
	container, prefix, _ = strings.Cut(s, Delimiter)
	return container, NormalizePrefix(prefix)
}

// NormalizePrefix makes p a valid location: empty, or ending in the
// delimiter, never starting with one.
func NormalizePrefix(p string) string {
	p = strings.TrimLeft(p, Delimiter)
	if p == "" || strings.HasSuffix(p, Delimiter) {
		return p
	}
	return p + Delimiter
}
