package config

import (
	"fmt"
	"strings"
)

// Provider selects the backend of a pane.
type Provider string

const (
	ProviderLocal  Provider = "fs"
	ProviderS3     Provider = "s3"
	ProviderAzure  Provider = "azure"
	ProviderSSH    Provider = "ssh"
	ProviderMemory Provider = "mem"
)

// PaneSpec is a parsed --left/--right value: a provider and an optional
// provider specific target (a path, bucket/prefix, container/prefix or
// host:path).
type PaneSpec struct {
	Provider Provider
	Target   string
}

func (s PaneSpec) String() string {
	if s.Target == "" {
		return string(s.Provider)
	}
	return string(s.Provider) + ":" + s.Target
}

// ParsePaneSpec parses "provider[:target]".
func ParsePaneSpec(raw string) (PaneSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return PaneSpec{}, fmt.Errorf("empty pane spec")
	}
	name, target, _ := strings.Cut(raw, ":")
	p := Provider(strings.ToLower(name))
	switch p {
	case ProviderLocal, ProviderS3, ProviderAzure, ProviderMemory:
	case ProviderSSH:
		if target == "" {
			return PaneSpec{}, fmt.Errorf("pane spec %q: ssh needs a host", raw)
		}
	default:
		return PaneSpec{}, fmt.Errorf("pane spec %q: unknown provider %q (want fs, s3, azure, ssh or mem)", raw, name)
	}
	if p == ProviderAzure && target == "" {
		return PaneSpec{}, fmt.Errorf("pane spec %q: azure needs a container", raw)
	}
	return PaneSpec{Provider: p, Target: target}, nil
}

// SSHTarget splits an ssh target "[user@]host[:path]".
func (s PaneSpec) SSHTarget() (user, host, path string) {
	hostPart, path, _ := strings.Cut(s.Target, ":")
	if u, h, ok := strings.Cut(hostPart, "@"); ok {
		return u, h, path
	}
	return "", hostPart, path
}
