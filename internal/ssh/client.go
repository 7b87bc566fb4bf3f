// Package ssh is a thin client over an SSH connection: remote directory
// listing and small shell commands over sessions, file content over SCP.
package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bramvdbogaerde/go-scp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"dualfm/internal/logging"
)

// ErrIsDir is returned when a file operation targets a directory.
var ErrIsDir = errors.New("is a directory")

// RemoteFile represents a file entry on the remote filesystem.
type RemoteFile struct {
	Name    string
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	IsDir   bool
	// IsLink is set for links ls could not follow.
	IsLink bool
}

// CommandError is a remote command that exited unsuccessfully.
type CommandError struct {
	Cmd    string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Client wraps an SSH connection.
type Client struct {
	client  *ssh.Client
	config  *ssh.ClientConfig
	address string
	user    string
	host    string
}

// New creates a new SSH client connected to host:port with the given auth methods.
func New(host, port, username string, authMethods []ssh.AuthMethod, hkCallback ssh.HostKeyCallback) (*Client, error) {
	cfg := &ssh.ClientConfig{
		User:            username,
		Auth:            authMethods,
		HostKeyCallback: hkCallback,
		Timeout:         10 * time.Second,
	}
	address := net.JoinHostPort(host, port)
	client, err := ssh.Dial("tcp", address, cfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	logging.L().Info().Str("address", address).Str("user", username).Msg("ssh connected")
	return &Client{
		client:  client,
		config:  cfg,
		address: address,
		user:    username,
		host:    host,
	}, nil
}

// User returns the login name.
func (c *Client) User() string { return c.user }

// Host returns the host the client dialed.
func (c *Client) Host() string { return c.host }

// PasswordAuth returns an AuthMethod for password authentication.
func PasswordAuth(password string) ssh.AuthMethod {
	return ssh.Password(password)
}

// PubKeyAuth returns an AuthMethod for public key authentication from a key file.
func PubKeyAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

// AgentAuth authenticates through the agent at $SSH_AUTH_SOCK. The returned
// closer releases the agent connection.
func AgentAuth() (ssh.AuthMethod, io.Closer, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to agent: %w", err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), conn, nil
}

// DefaultKeyPaths lists the private keys OpenSSH tries by default.
func DefaultKeyPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var paths []string
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		paths = append(paths, filepath.Join(home, ".ssh", name))
	}
	return paths
}

// AuthMethods collects every usable method in OpenSSH order: the explicit
// key, the agent, the default keys, then a password. The closer must be
// closed once the connection is no longer needed.
func AuthMethods(keyPath, password string) ([]ssh.AuthMethod, io.Closer) {
	var methods []ssh.AuthMethod
	var closer io.Closer = nopCloser{}

	if keyPath != "" {
		if am, err := PubKeyAuth(keyPath); err == nil {
			methods = append(methods, am)
		} else {
			logging.L().Warn().Str("key", keyPath).Err(err).Msg("cannot use identity file")
		}
	}
	if am, c, err := AgentAuth(); err == nil {
		methods = append(methods, am)
		closer = c
	}
	for _, kp := range DefaultKeyPaths() {
		if kp == keyPath {
			continue
		}
		if am, err := PubKeyAuth(kp); err == nil {
			methods = append(methods, am)
		}
	}
	if password != "" {
		methods = append(methods, PasswordAuth(password))
	}
	return methods, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// HostKeyCallback verifies hosts against a known_hosts file. When the file
// cannot be loaded and strict is false, any host key is accepted.
func HostKeyCallback(knownHostsPath string, strict bool) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
		}
	}
	cb, err := knownhosts.New(knownHostsPath)
	if err == nil {
		return cb, nil
	}
	if strict {
		return nil, fmt.Errorf("load known hosts %s: %w", knownHostsPath, err)
	}
	logging.L().Warn().Str("known_hosts", knownHostsPath).Err(err).Msg("host keys will not be verified")
	return ssh.InsecureIgnoreHostKey(), nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// run executes cmd in its own session and returns stdout.
func (c *Client) run(cmd string) (out []byte, retErr error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	defer func() {
		if cErr := session.Close(); cErr != nil && !errors.Is(cErr, io.EOF) {
			retErr = errors.Join(retErr, fmt.Errorf("close session: %w", cErr))
		}
	}()

	var stderr bytes.Buffer
	session.Stderr = &stderr
	out, err = session.Output(cmd)
	if err != nil {
		return nil, &CommandError{Cmd: cmd, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return out, nil
}

// Home returns the remote user's home directory.
func (c *Client) Home() (string, error) {
	out, err := c.run("echo $HOME")
	if err != nil {
		return "", err
	}
	home := strings.TrimSpace(string(out))
	if home == "" {
		return "/", nil
	}
	return home, nil
}

// ListDir lists the contents of a remote directory, following symlinks.
func (c *Client) ListDir(path string) ([]RemoteFile, error) {
	escapedPath := shellQuote(path)
	cmd := fmt.Sprintf("ls -laL --time-style='+%%Y-%%m-%%d %%H:%%M:%%S' %s || ls -laL %s", escapedPath, escapedPath)
	out, err := c.run(cmd)
	if err != nil {
		return nil, err
	}
	return parseLS(string(out)), nil
}

// Stat returns the size of path and whether it is a directory.
func (c *Client) Stat(path string) (size int64, isDir bool, err error) {
	out, err := c.run("stat -L -c '%s %F' -- " + shellQuote(path))
	if err != nil {
		return 0, false, err
	}
	sizeField, kind, ok := strings.Cut(strings.TrimSpace(string(out)), " ")
	if !ok {
		return 0, false, fmt.Errorf("unexpected stat output %q", out)
	}
	size, err = strconv.ParseInt(sizeField, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse size %q: %w", sizeField, err)
	}
	return size, kind == "directory", nil
}

// Open streams a remote file over SCP. The size is read before the transfer
// starts; the reader fails with the SCP error if the copy breaks.
func (c *Client) Open(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	size, isDir, err := c.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if isDir {
		return nil, 0, ErrIsDir
	}
	scpClient, err := scp.NewClientBySSH(c.client)
	if err != nil {
		return nil, 0, err
	}

	pr, pw := io.Pipe()
	go func() {
		defer scpClient.Close()
		err := scpClient.CopyFromRemotePassThru(ctx, pw, path, nil)
		pw.CloseWithError(err)
	}()
	return pr, size, nil
}

// Upload writes size bytes from r to path with the given octal permissions.
func (c *Client) Upload(ctx context.Context, r io.Reader, size int64, path, perm string) error {
	scpClient, err := scp.NewClientBySSH(c.client)
	if err != nil {
		return err
	}
	defer scpClient.Close()
	return scpClient.Copy(ctx, r, path, perm, size)
}

// Remove deletes a regular file. Directories are refused with ErrIsDir.
func (c *Client) Remove(path string) error {
	_, isDir, err := c.Stat(path)
	if err != nil {
		return err
	}
	if isDir {
		return ErrIsDir
	}
	_, err = c.run("rm -f -- " + shellQuote(path))
	return err
}

// parseLS parses `ls -la` output into RemoteFile entries.
func parseLS(output string) []RemoteFile {
	var files []RemoteFile
	lines := splitLines(output)
	for _, line := range lines {
		if line == "" || len(line) >= 5 && line[:5] == "total" {
			continue
		}
		f := parseLSLine(line)
		if f == nil {
			continue
		}
		if f.Name == "." || f.Name == ".." {
			continue
		}
		files = append(files, *f)
	}
	return files
}

// shellQuote wraps a path in single quotes and escapes any single quotes within it,
// preventing shell injection when the path is used in a remote command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\\''") + "'"
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// parseLSLine handles both the ISO time style (name is the 8th field) and
// the classic one (name is the 9th). Names may contain spaces.
func parseLSLine(line string) *RemoteFile {
	fields, offsets := splitFields(line)
	if len(fields) < 5 {
		return nil
	}
	perm := fields[0]

	nameIdx := 8
	var modTime time.Time
	if len(fields) > 7 {
		if t, err := time.Parse("2006-01-02 15:04:05", fields[5]+" "+fields[6]); err == nil {
			nameIdx = 7
			modTime = t
		}
	}
	name := ""
	if len(fields) > nameIdx {
		name = line[offsets[nameIdx]:]
	} else {
		name = fields[len(fields)-1]
	}
	if perm != "" && perm[0] == 'l' {
		if i := strings.Index(name, " -> "); i >= 0 {
			name = name[:i]
		}
	}
	if name == "" {
		return nil
	}

	var size int64
	_, _ = fmt.Sscanf(fields[4], "%d", &size)

	return &RemoteFile{
		Name:    name,
		Size:    size,
		Mode:    parsePerm(perm),
		ModTime: modTime,
		IsDir:   perm != "" && perm[0] == 'd',
		IsLink:  perm != "" && perm[0] == 'l',
	}
}

// splitFields splits on blanks and reports where each field starts.
func splitFields(s string) ([]string, []int) {
	var fields []string
	var offsets []int
	inField := false
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' || s[i] == '\t' {
			if inField {
				fields = append(fields, s[start:i])
				inField = false
			}
		} else {
			if !inField {
				start = i
				offsets = append(offsets, i)
				inField = true
			}
		}
	}
	if inField {
		fields = append(fields, s[start:])
	}
	return fields, offsets
}

func parsePerm(perm string) os.FileMode {
	if len(perm) < 10 {
		return 0
	}
	var mode os.FileMode
	bits := []os.FileMode{0400, 0200, 0100, 0040, 0020, 0010, 0004, 0002, 0001}
	for i, b := range bits {
		if perm[i+1] != '-' {
			mode |= b
		}
	}
	return mode
}
