// Package remote browses a host over SSH, moving file content with SCP.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"sort"
	"strings"

	"dualfm/internal/fault"
	"dualfm/internal/pane"
	sshclient "dualfm/internal/ssh"
)

// Domain is the error domain of SSH failures.
const Domain = "SSH"

// Conn is the part of the SSH client the backend drives.
type Conn interface {
	ListDir(dir string) ([]sshclient.RemoteFile, error)
	Open(ctx context.Context, p string) (io.ReadCloser, int64, error)
	Upload(ctx context.Context, r io.Reader, size int64, p, perm string) error
	Remove(p string) error
	User() string
	Host() string
}

// Backend implements pane.Backend with POSIX paths on the remote host.
type Backend struct {
	conn Conn
}

var _ pane.Backend = (*Backend)(nil)

// New wraps an established connection.
func New(conn Conn) *Backend {
	return &Backend{conn: conn}
}

// List returns the children of dir, directories first.
func (b *Backend) List(_ context.Context, dir string) ([]pane.Entry, error) {
	files, err := b.conn.ListDir(dir)
	if err != nil {
		return nil, classify(err)
	}
	entries := make([]pane.Entry, 0, len(files))
	for _, f := range files {
		e := pane.Entry{Name: f.Name, Kind: pane.KindFile}
		switch {
		case f.IsDir:
			e.Name += "/"
			e.Kind = pane.KindDirectory
		case f.IsLink:
			e.Kind = pane.KindUnknown
		}
		entries = append(entries, e)
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

// Open streams dir/name from the host.
func (b *Backend) Open(ctx context.Context, dir, name string) (*pane.Stream, error) {
	rc, size, err := b.conn.Open(ctx, path.Join(dir, name))
	if err != nil {
		return nil, classify(err)
	}
	return pane.NewStream(rc, size), nil
}

// Put uploads s to dir/name. SCP announces the length before the content,
// so the size must be known.
func (b *Backend) Put(ctx context.Context, dir, name string, s *pane.Stream) error {
	if s.Size < 0 {
		return &fault.Error{
			Domain:  Domain,
			Code:    "UnknownSize",
			Message: "source stream did not report its size",
			Kind:    fault.Unexpected,
		}
	}
	if err := b.conn.Upload(ctx, s, s.Size, path.Join(dir, name), "0644"); err != nil {
		return classify(err)
	}
	return nil
}

// Delete removes dir/name. Directories are refused.
func (b *Backend) Delete(_ context.Context, dir, name string) error {
	if err := b.conn.Remove(path.Join(dir, strings.TrimSuffix(name, "/"))); err != nil {
		return classify(err)
	}
	return nil
}

// Into descends into a directory entry.
func (b *Backend) Into(dir, entry string) (string, bool) {
	name := strings.TrimSuffix(entry, "/")
	if name == "" {
		return dir, false
	}
	return path.Join(dir, name), true
}

// Out returns the parent directory, false at "/".
func (b *Backend) Out(dir string) (string, bool) {
	parent := path.Dir(dir)
	if parent == dir {
		return dir, false
	}
	return parent, true
}

// Join renders dir/name.
func (b *Backend) Join(dir, name string) string { return path.Join(dir, name) }

// Resource is the login name.
func (b *Backend) Resource() string { return b.conn.User() }

// Provider is the host, so titles read like scp targets.
func (b *Backend) Provider() string { return b.conn.Host() }

// Domain is "SSH".
func (b *Backend) Domain() string { return Domain }

// classify maps remote command, SCP and network failures to fault records.
func classify(err error) error {
	if _, ok := fault.As(err); ok {
		return err
	}
	if errors.Is(err, sshclient.ErrIsDir) {
		return fault.New(Domain, fault.Unsupported, "Operations on directories are unsupported!")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return fault.Wrap(Domain, fault.IncompleteTransfer, "", err)
	}

	var ce *sshclient.CommandError
	if errors.As(err, &ce) {
		kind := fault.Service
		switch msg := ce.Error(); {
		case strings.Contains(msg, "No such file"):
			kind = fault.NotFound
		case strings.Contains(msg, "Permission denied"), strings.Contains(msg, "Operation not permitted"):
			kind = fault.PermissionDenied
		case strings.Contains(msg, "File exists"):
			kind = fault.AlreadyExists
		case strings.Contains(msg, "Is a directory"):
			kind = fault.Unsupported
		}
		code := kind.String()
		if kind == fault.Service {
			code = "Command Failed"
		}
		return &fault.Error{Domain: Domain, Code: code, Message: ce.Error(), Kind: kind, Err: err}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return fault.Wrap(Domain, fault.Service, "Connection Error", err)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "No such file"):
		return fault.Wrap(Domain, fault.NotFound, "", err)
	case strings.Contains(msg, "Permission denied"):
		return fault.Wrap(Domain, fault.PermissionDenied, "", err)
	}
	return fault.Wrap(Domain, fault.Unexpected, "", fmt.Errorf("scp: %w", err))
}
