package dispatch

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Environment is the KEY=VALUE list a child process is launched with.
type Environment []string

// SystemEnvironment returns the current process environment with binaryDir
// prefixed to PATH.
func SystemEnvironment(binaryDir string) Environment {
	return NewEnvironment(os.Environ(), binaryDir)
}

// NewEnvironment copies base and prefixes binaryDir to its PATH.
// An empty binaryDir leaves PATH untouched.
func NewEnvironment(base []string, binaryDir string) Environment {
	env := make(Environment, len(base))
	copy(env, base)
	if binaryDir == "" {
		return env
	}

	path := binaryDir
	if old := env.Get("PATH"); old != "" {
		path = binaryDir + string(os.PathListSeparator) + old
	}
	return env.With("PATH", path)
}

// Get returns the value of key, or "" if unset. The last assignment wins.
func (e Environment) Get(key string) string {
	prefix := key + "="
	for i := len(e) - 1; i >= 0; i-- {
		if strings.HasPrefix(e[i], prefix) {
			return e[i][len(prefix):]
		}
	}
	return ""
}

// With returns a copy of e with key set to value.
func (e Environment) With(key, value string) Environment {
	prefix := key + "="
	out := make(Environment, 0, len(e)+1)
	for _, kv := range e {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}

// LookPath resolves name against this environment's PATH, not the parent's.
// Names containing a path separator are checked as given.
func (e Environment) LookPath(name string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) {
		if err := checkExecutable(name); err != nil {
			return "", err
		}
		return name, nil
	}

	for _, dir := range filepath.SplitList(e.Get("PATH")) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		if checkExecutable(candidate) == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%q not found in launch PATH: %w", name, exec.ErrNotFound)
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory: %w", path, os.ErrPermission)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s is not executable: %w", path, os.ErrPermission)
	}
	return nil
}
