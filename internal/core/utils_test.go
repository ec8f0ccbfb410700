package core

import (
	"path/filepath"
	"testing"
)

func TestOutputBase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a.cpp", "a"},
		{filepath.Join("dir", "sub", "prog.cc"), filepath.Join("dir", "sub", "prog")},
		{"noext", "noext"},
		{"two.dots.cpp", "two.dots"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := OutputBase(tt.input); got != tt.want {
				t.Errorf("OutputBase(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestArtifactPath(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"windows", "prog.exe"},
		{"linux", "prog"},
		{"darwin", "prog"},
		{"freebsd", "prog"},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			if got := ArtifactPath("prog", tt.goos); got != tt.want {
				t.Errorf("ArtifactPath(prog, %s) = %q, want %q", tt.goos, got, tt.want)
			}
		})
	}
}

func TestBaseName(t *testing.T) {
	if got := BaseName(filepath.Join("x", "y", "sol.cpp")); got != "sol" {
		t.Errorf("BaseName = %q, want sol", got)
	}
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"true", true, false},
		{"1", true, false},
		{"On", true, false},
		{"false", false, false},
		{"0", false, false},
		{"maybe", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBool(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseBool(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseBool(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsCppSource(t *testing.T) {
	for _, p := range []string{"a.cpp", "b.CC", "c.cxx", "d.c"} {
		if !IsCppSource(p) {
			t.Errorf("IsCppSource(%q) = false, want true", p)
		}
	}
	for _, p := range []string{"a.go", "b", "c.h"} {
		if IsCppSource(p) {
			t.Errorf("IsCppSource(%q) = true, want false", p)
		}
	}
}

func TestCachePath(t *testing.T) {
	if filepath.Base(CachePath()) != CacheFileName {
		t.Errorf("CachePath() = %q, want basename %q", CachePath(), CacheFileName)
	}
}
