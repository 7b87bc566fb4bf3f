package config

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"dualfm/internal/logging"
)

// owner is a uid/gid pair.
type owner struct {
	uid, gid int
}

func ownerOf(path string) (owner, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return owner{}, false
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return owner{}, false
	}
	return owner{uid: int(st.Uid), gid: int(st.Gid)}, true
}

// homeOwner returns the owner of $HOME when the process runs as root and
// $HOME belongs to someone else.
func homeOwner() (string, owner, bool) {
	if os.Getuid() != 0 {
		return "", owner{}, false
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", owner{}, false
	}
	o, ok := ownerOf(home)
	if !ok || o.uid == 0 {
		return "", owner{}, false
	}
	return home, o, true
}

// insideHome reports whether dir is strictly below home.
func insideHome(home, dir string) bool {
	rel, err := filepath.Rel(home, dir)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// FixOwnership hands each path, and the directories created above it inside
// $HOME, back to the owner of $HOME. Running as root inside a dev container
// would otherwise leave the config file and the debug log owned by root.
// Outside that situation it does nothing.
func FixOwnership(paths ...string) {
	home, o, ok := homeOwner()
	if !ok {
		return
	}
	for _, p := range paths {
		if err := os.Lchown(p, o.uid, o.gid); err != nil {
			logging.L().Debug().Err(err).Str("path", p).Msg("chown skipped")
			continue
		}
		for dir := filepath.Dir(p); insideHome(home, dir); dir = filepath.Dir(dir) {
			cur, ok := ownerOf(dir)
			if !ok || cur.uid == o.uid {
				break
			}
			_ = os.Lchown(dir, o.uid, o.gid)
		}
	}
}
