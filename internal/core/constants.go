// Package core provides shared constants and path helpers for the cppc CLI.
package core

import (
	"os"
	"path/filepath"
)

// Toolchain defaults
const (
	DefaultCompiler       = "g++"
	DefaultCompileOptions = ""
	StaticLinkFlag        = "-static"
)

// Cache file configuration
const (
	// CacheFileName is shared with the editor extension that writes the same file.
	CacheFileName = ".cpp_compiler_cache.json"
	// CacheLockSuffix is appended to the cache path to name its lock file.
	CacheLockSuffix = ".lock"
)

// Redirect file extensions
const (
	InputExt  = ".in"
	OutputExt = ".out"
)

// Environment variables
const (
	ConfigEnvVar = "CPPC_CONFIG"
	AppDirName   = "cppc"
)

// Parallel status checks
const (
	DefaultStatusWorkers = 4
)

// CachePath returns the default location of the shared cache file.
func CachePath() string {
	return filepath.Join(os.TempDir(), CacheFileName)
}

// ConfigRoot returns the directory holding config.toml and files.toml.
func ConfigRoot() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		home, herr := os.UserHomeDir()
		if herr != nil {
			home = "."
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppDirName)
}

// Version is the current CLI version.
const Version = "0.3.0"
