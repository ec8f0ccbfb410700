// Package settings keeps per-source-file run settings: redirect file names,
// which redirect modes are on, and panel expansion state.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/colthorp/cppc-go/internal/core"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// FileConfig holds the settings of one source file.
//
// Forward redirection feeds InputFile to the program's stdin and writes its
// stdout to OutputFile. Reverse redirection is for programs that open
// ReverseInputFile/ReverseOutputFile themselves: the console is copied into
// the input file and the output file is echoed back.
type FileConfig struct {
	InputFile          string `toml:"input_file"`
	OutputFile         string `toml:"output_file"`
	ReverseInputFile   string `toml:"reverse_input_file"`
	ReverseOutputFile  string `toml:"reverse_output_file"`
	UseFileRedirect    bool   `toml:"use_file_redirect"`
	UseReverseRedirect bool   `toml:"use_reverse_redirect"`
	CompileOptionsOpen bool   `toml:"compile_options_open"`
	RunControlOpen     bool   `toml:"run_control_open"`
	FileOperationsOpen bool   `toml:"file_operations_open"`
}

// Defaults derives the initial settings for src from its base name.
func Defaults(src string) FileConfig {
	base := core.BaseName(src)
	return FileConfig{
		InputFile:         base + core.InputExt,
		OutputFile:        base + core.OutputExt,
		ReverseInputFile:  base + core.InputExt,
		ReverseOutputFile: base + core.OutputExt,
		RunControlOpen:    true,
	}
}

type field struct {
	str *string
	b   *bool
}

func (f *FileConfig) fields() map[string]field {
	return map[string]field{
		"input_file":           {str: &f.InputFile},
		"output_file":          {str: &f.OutputFile},
		"reverse_input_file":   {str: &f.ReverseInputFile},
		"reverse_output_file":  {str: &f.ReverseOutputFile},
		"use_file_redirect":    {b: &f.UseFileRedirect},
		"use_reverse_redirect": {b: &f.UseReverseRedirect},
		"compile_options_open": {b: &f.CompileOptionsOpen},
		"run_control_open":     {b: &f.RunControlOpen},
		"file_operations_open": {b: &f.FileOperationsOpen},
	}
}

// Keys lists the setting names accepted by Registry.Set, sorted.
func Keys() []string {
	var fc FileConfig
	keys := make([]string, 0, 9)
	for k := range fc.fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the settings as strings keyed like Registry.Set.
func (f FileConfig) Values() map[string]string {
	out := make(map[string]string)
	for k, fl := range f.fields() {
		if fl.str != nil {
			out[k] = *fl.str
		} else {
			out[k] = strconv.FormatBool(*fl.b)
		}
	}
	return out
}

func (f *FileConfig) set(key, value string) error {
	fl, ok := f.fields()[key]
	if !ok {
		return fmt.Errorf("unknown file setting '%s' (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	if fl.str != nil {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be empty", key)
		}
		*fl.str = value
		return nil
	}
	v, err := core.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*fl.b = v
	return nil
}

type document struct {
	Files map[string]FileConfig `toml:"files"`
}

// Registry maps absolute source paths to their FileConfig. With an empty
// path it lives in process memory only; otherwise every change is written
// to a TOML file.
type Registry struct {
	fs     afero.Fs
	path   string
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	files  map[string]FileConfig
}

// NewRegistry creates a registry persisted at path (empty for memory only).
func NewRegistry(fs afero.Fs, path string, logger *zap.Logger) *Registry {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{fs: fs, path: path, logger: logger, files: make(map[string]FileConfig)}
}

// Persistent reports whether settings survive the process.
func (r *Registry) Persistent() bool {
	return r.path != ""
}

func (r *Registry) load() {
	if r.loaded || r.path == "" {
		r.loaded = true
		return
	}
	r.loaded = true

	data, err := afero.ReadFile(r.fs, r.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("Failed to read file settings; using defaults", zap.String("path", r.path), zap.Error(err))
		}
		return
	}
	var doc document
	if err := toml.Unmarshal(data, &doc); err != nil {
		r.logger.Warn("File settings are corrupt; using defaults", zap.String("path", r.path), zap.Error(err))
		return
	}
	for k, v := range doc.Files {
		r.files[k] = v
	}
}

func (r *Registry) save() error {
	if r.path == "" {
		return nil
	}
	data, err := toml.Marshal(document{Files: r.files})
	if err != nil {
		return err
	}
	if err := r.fs.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return err
	}
	tmpPath := r.path + ".tmp"
	if err := afero.WriteFile(r.fs, tmpPath, data, 0644); err != nil {
		return err
	}
	return r.fs.Rename(tmpPath, r.path)
}

// Get returns the settings for src, creating defaults on first access.
func (r *Registry) Get(src string) FileConfig {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.load()
	fc, ok := r.files[src]
	if !ok {
		fc = Defaults(src)
		r.files[src] = fc
	}
	return fc
}

// Set changes one setting of src and persists the registry.
func (r *Registry) Set(src, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.load()
	fc, ok := r.files[src]
	if !ok {
		fc = Defaults(src)
	}
	if err := fc.set(key, value); err != nil {
		return err
	}
	prev, had := r.files[src]
	r.files[src] = fc

	if err := r.save(); err != nil {
		if had {
			r.files[src] = prev
		} else {
			delete(r.files, src)
		}
		return fmt.Errorf("failed to save file settings: %w", err)
	}
	r.logger.Info("File setting updated", zap.String("file", src), zap.String("key", key), zap.String("value", value))
	return nil
}
