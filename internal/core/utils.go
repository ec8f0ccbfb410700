package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ProgressPrint writes msg to stderr unless quiet is true.
func ProgressPrint(msg string, quiet bool) {
	if !quiet {
		fmt.Fprintln(os.Stderr, msg)
	}
}

// OutputBase returns src with its extension stripped, in the same directory.
// "dir/a.cpp" -> "dir/a".
func OutputBase(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src))
}

// ArtifactPath returns the executable produced for base on the given GOOS.
// Only Windows appends a suffix.
func ArtifactPath(base, goos string) string {
	if goos == "windows" {
		return base + ".exe"
	}
	return base
}

// BaseName returns the file name of src without directory or extension.
func BaseName(src string) string {
	name := filepath.Base(src)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// AbsPath resolves p to an absolute, cleaned path.
// Falls back to the cleaned input if the working directory is unavailable.
func AbsPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

// ParseBool accepts the boolean spellings used in env vars and `config set`.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean '%s' (expected true/false)", s)
}

// IsCppSource reports whether path has a C or C++ source extension.
func IsCppSource(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cpp", ".cc", ".cxx", ".c++", ".cp", ".c":
		return true
	}
	return false
}
