package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvConfig names the environment variable that overrides discovery. It may
// point at a file or at a directory holding config.toml, as with a mounted
// /config volume.
const EnvConfig = "EMBYTK_CONFIG"

const fileName = "config.toml"

// ErrNotFound is returned by Discover when no candidate exists.
var ErrNotFound = errors.New("config not found")

// DefaultPath returns $XDG_CONFIG_HOME/embytk/config.toml, the file `embytk
// init` writes when given no path.
func DefaultPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", fileName)
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "embytk", fileName)
}

// SearchPaths lists the locations Discover tries after EMBYTK_CONFIG, in
// order.
func SearchPaths() []string {
	return []string{
		filepath.Join(".", fileName),
		filepath.Join(".", "embytk.toml"),
		DefaultPath(),
		filepath.Join("/etc", "embytk", fileName),
	}
}

// Discover returns the configuration file to load: EMBYTK_CONFIG when set,
// otherwise the first of SearchPaths that exists.
func Discover() (string, error) {
	if env := os.Getenv(EnvConfig); env != "" {
		info, err := os.Stat(env)
		if err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfig, env, err)
		}
		if !info.IsDir() {
			return env, nil
		}
		path := filepath.Join(env, fileName)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s=%s: %w", EnvConfig, env, err)
		}
		return path, nil
	}

	paths := SearchPaths()
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w, checked %s; run 'embytk init' to write one",
		ErrNotFound, strings.Join(paths, ", "))
}
