// Package local provides the local filesystem backend of a pane.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strings"

	"dualfm/internal/fault"
	"dualfm/internal/pane"
)

// Domain is the error domain of local filesystem failures.
const Domain = "Local Filesystem"

// Backend implements pane.Backend over absolute filesystem paths.
type Backend struct {
	username string
}

var _ pane.Backend = (*Backend)(nil)

// New creates a local backend labelled with the current user name.
func New() *Backend {
	name := "local"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	return &Backend{username: name}
}

// StartDir resolves the initial location for a pane: dir when given, the
// working directory otherwise.
func StartDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		return wd, nil
	}
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(home, strings.TrimPrefix(dir, "~"))
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	return abs, nil
}

// List returns the children of location, directories first. Entries that
// cannot be stat'ed are listed with an unknown kind.
func (b *Backend) List(_ context.Context, location string) ([]pane.Entry, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, classify(err)
	}
	if !info.IsDir() {
		return nil, fault.New(Domain, fault.Unsupported, "Given path points to a non-directory file")
	}
	children, err := os.ReadDir(location)
	if err != nil {
		return nil, classify(err)
	}

	entries := make([]pane.Entry, 0, len(children))
	for _, c := range children {
		name := c.Name()
		kind := pane.KindUnknown
		if fi, err := os.Stat(filepath.Join(location, name)); err == nil {
			if fi.IsDir() {
				name += "/"
				kind = pane.KindDirectory
			} else {
				kind = pane.KindFile
			}
		}
		entries = append(entries, pane.Entry{Name: name, Kind: kind})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		di := entries[i].Kind == pane.KindDirectory
		dj := entries[j].Kind == pane.KindDirectory
		if di != dj {
			return di
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Open returns the file content together with its size.
func (b *Backend) Open(_ context.Context, location, name string) (*pane.Stream, error) {
	f, err := os.Open(filepath.Join(location, name))
	if err != nil {
		return nil, classify(err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, classify(err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fault.New(Domain, fault.Unsupported, "Transfer of directories is unsupported!")
	}
	return pane.NewStream(f, info.Size()), nil
}

// Put writes s to a temporary file next to the target and renames it into
// place, so a failed transfer never leaves a truncated file behind. The
// caller keeps ownership of s and closes it.
func (b *Backend) Put(_ context.Context, location, name string, s *pane.Stream) (err error) {
	target := filepath.Join(location, name)
	tmp, err := os.CreateTemp(location, ".dualfm-*.tmp")
	if err != nil {
		return classify(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, s)
	if err != nil {
		_ = tmp.Close()
		return classify(err)
	}
	if err := tmp.Close(); err != nil {
		return classify(err)
	}
	if s.Size != pane.UnknownSize && n != s.Size {
		return fault.New(Domain, fault.IncompleteTransfer,
			fmt.Sprintf("wrote %d of %d bytes", n, s.Size))
	}
	if err := os.Rename(tmpName, target); err != nil {
		return classify(err)
	}
	return nil
}

// Delete removes a regular file. Directories are refused.
func (b *Backend) Delete(_ context.Context, location, name string) error {
	target := filepath.Join(location, name)
	info, err := os.Stat(target)
	if err != nil {
		return classify(err)
	}
	if info.IsDir() {
		return fault.New(Domain, fault.Unsupported, "Deletion of directories is unsupported!")
	}
	if err := os.Remove(target); err != nil {
		return classify(err)
	}
	return nil
}

// Into joins a directory entry (trailing "/" included) onto location.
func (b *Backend) Into(location, dir string) (string, bool) {
	name := strings.TrimSuffix(dir, "/")
	if name == "" {
		return location, false
	}
	return filepath.Join(location, name), true
}

// Out returns the parent directory, false at the filesystem root.
func (b *Backend) Out(location string) (string, bool) {
	parent := filepath.Dir(location)
	if parent == location {
		return location, false
	}
	return parent, true
}

// Join renders location/name.
func (b *Backend) Join(location, name string) string { return filepath.Join(location, name) }

// Resource is the user name the process runs as.
func (b *Backend) Resource() string { return b.username }

// Provider is always "local".
func (b *Backend) Provider() string { return "local" }

// Domain is the error domain.
func (b *Backend) Domain() string { return Domain }

// classify maps an OS error to a fault record. Path errors report only the
// underlying reason; callers attach the file name.
func classify(err error) error {
	if _, ok := fault.As(err); ok {
		return err
	}
	msg := err.Error()
	var pe *fs.PathError
	if errors.As(err, &pe) {
		msg = pe.Err.Error()
	}
	kind := fault.Unexpected
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = fault.NotFound
	case errors.Is(err, fs.ErrPermission):
		kind = fault.PermissionDenied
	case errors.Is(err, fs.ErrExist):
		kind = fault.AlreadyExists
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.ErrShortWrite):
		kind = fault.IncompleteTransfer
	}
	return &fault.Error{Domain: Domain, Code: kind.String(), Message: msg, Kind: kind, Err: err}
}
