// Package config loads cppc settings from defaults, config.toml and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/colthorp/cppc-go/internal/core"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultLogLevel      = "info"
	DefaultLogMaxSizeMB  = 5
	DefaultLogMaxBackups = 3
	DefaultLogMaxAgeDays = 14
)

// Config holds the application configuration
type Config struct {
	Compiler       string
	CompileOptions string
	StaticLinking  bool
	UseConsoleInfo bool
	// CompileTimeoutSeconds of 0 means the compiler runs without a deadline.
	CompileTimeoutSeconds int

	CacheInMemory bool
	CachePath     string
	CacheLock     bool

	FilesPersist bool
	FilesPath    string

	TerminalCommand string

	LogLevel      string
	LogFile       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	ConfigPath string
}

type fileConfig struct {
	Compiler       string `toml:"compiler,omitempty"`
	CompileOptions string `toml:"compile_options"`
	StaticLinking  bool   `toml:"static_linking"`
	UseConsoleInfo bool   `toml:"use_console_info"`
	CompileTimeout int    `toml:"compile_timeout"`
	Cache          struct {
		InMemory bool   `toml:"in_memory"`
		Path     string `toml:"path,omitempty"`
		Lock     *bool  `toml:"lock,omitempty"`
	} `toml:"cache"`
	Files struct {
		Persist *bool  `toml:"persist,omitempty"`
		Path    string `toml:"path,omitempty"`
	} `toml:"files"`
	Terminal struct {
		Command string `toml:"command,omitempty"`
	} `toml:"terminal"`
	Log struct {
		Level      string `toml:"level,omitempty"`
		File       string `toml:"file,omitempty"`
		MaxSize    int    `toml:"max_size,omitempty"`
		MaxBackups int    `toml:"max_backups,omitempty"`
		MaxAge     int    `toml:"max_age,omitempty"`
	} `toml:"log"`
}

// DefaultConfigPath returns the config.toml location, honoring CPPC_CONFIG.
func DefaultConfigPath() string {
	if p := os.Getenv(core.ConfigEnvVar); p != "" {
		return p
	}
	return filepath.Join(core.ConfigRoot(), "config.toml")
}

// Default returns the built-in configuration for the given config file path.
func Default(configPath string) *Config {
	return &Config{
		Compiler:       core.DefaultCompiler,
		CompileOptions: core.DefaultCompileOptions,
		CachePath:      core.CachePath(),
		CacheLock:      true,
		FilesPersist:   true,
		FilesPath:      filepath.Join(filepath.Dir(configPath), "files.toml"),
		LogLevel:       DefaultLogLevel,
		LogMaxSize:     DefaultLogMaxSizeMB,
		LogMaxBackups:  DefaultLogMaxBackups,
		LogMaxAge:      DefaultLogMaxAgeDays,
		ConfigPath:     configPath,
	}
}

// LoadConfig loads configuration from file, environment variables, and defaults.
// An empty configPath selects DefaultConfigPath. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := LoadFile(configPath)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults and config.toml without the CPPC_* environment
// overrides. Edits that are saved back start from this layer, so values that
// only came from the environment never end up in the file.
func LoadFile(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	cfg := Default(configPath)

	if _, err := os.Stat(configPath); err == nil {
		fileData, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var parsed fileConfig
		if err := toml.Unmarshal(fileData, &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
		applyFile(cfg, &parsed)
	}
	return cfg, nil
}

func applyFile(cfg *Config, parsed *fileConfig) {
	if parsed.Compiler != "" {
		cfg.Compiler = parsed.Compiler
	}
	cfg.CompileOptions = parsed.CompileOptions
	cfg.StaticLinking = parsed.StaticLinking
	cfg.UseConsoleInfo = parsed.UseConsoleInfo
	cfg.CompileTimeoutSeconds = parsed.CompileTimeout

	cfg.CacheInMemory = parsed.Cache.InMemory
	if parsed.Cache.Path != "" {
		cfg.CachePath = parsed.Cache.Path
	}
	if parsed.Cache.Lock != nil {
		cfg.CacheLock = *parsed.Cache.Lock
	}

	if parsed.Files.Persist != nil {
		cfg.FilesPersist = *parsed.Files.Persist
	}
	if parsed.Files.Path != "" {
		cfg.FilesPath = parsed.Files.Path
	}

	cfg.TerminalCommand = parsed.Terminal.Command

	if parsed.Log.Level != "" {
		cfg.LogLevel = parsed.Log.Level
	}
	cfg.LogFile = parsed.Log.File
	if parsed.Log.MaxSize > 0 {
		cfg.LogMaxSize = parsed.Log.MaxSize
	}
	if parsed.Log.MaxBackups > 0 {
		cfg.LogMaxBackups = parsed.Log.MaxBackups
	}
	if parsed.Log.MaxAge > 0 {
		cfg.LogMaxAge = parsed.Log.MaxAge
	}
}

func applyEnv(cfg *Config) {
	if compiler := os.Getenv("CPPC_COMPILER"); compiler != "" {
		cfg.Compiler = compiler
	}
	if opts, ok := os.LookupEnv("CPPC_COMPILE_OPTIONS"); ok {
		cfg.CompileOptions = opts
	}
	if static := os.Getenv("CPPC_STATIC"); static != "" {
		if v, err := core.ParseBool(static); err == nil {
			cfg.StaticLinking = v
		}
	}
	if inMemory := os.Getenv("CPPC_CACHE_IN_MEMORY"); inMemory != "" {
		if v, err := core.ParseBool(inMemory); err == nil {
			cfg.CacheInMemory = v
		}
	}
	if cachePath := os.Getenv("CPPC_CACHE_PATH"); cachePath != "" {
		cfg.CachePath = cachePath
	}
	if timeoutStr := os.Getenv("CPPC_COMPILE_TIMEOUT"); timeoutStr != "" {
		if timeout, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.CompileTimeoutSeconds = timeout
		}
	}
	if level := os.Getenv("CPPC_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if logFile := os.Getenv("CPPC_LOG_FILE"); logFile != "" {
		cfg.LogFile = logFile
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Compiler) == "" {
		return fmt.Errorf("compiler must not be empty")
	}
	if c.CompileTimeoutSeconds < 0 {
		return fmt.Errorf("compile_timeout must be >= 0, got %d", c.CompileTimeoutSeconds)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "off":
	default:
		return fmt.Errorf("invalid log level '%s'", c.LogLevel)
	}
	return nil
}

// EffectiveOptions returns the compile options string actually passed to the
// compiler and used in cache keys: configured options plus " -static" when
// static linking is on.
func (c *Config) EffectiveOptions() string {
	if c.StaticLinking {
		return c.CompileOptions + " " + core.StaticLinkFlag
	}
	return c.CompileOptions
}

func (c *Config) toFile() fileConfig {
	var fc fileConfig
	if c.Compiler != core.DefaultCompiler {
		fc.Compiler = c.Compiler
	}
	fc.CompileOptions = c.CompileOptions
	fc.StaticLinking = c.StaticLinking
	fc.UseConsoleInfo = c.UseConsoleInfo
	fc.CompileTimeout = c.CompileTimeoutSeconds
	fc.Cache.InMemory = c.CacheInMemory
	if c.CachePath != core.CachePath() {
		fc.Cache.Path = c.CachePath
	}
	lock := c.CacheLock
	fc.Cache.Lock = &lock
	persist := c.FilesPersist
	fc.Files.Persist = &persist
	if c.FilesPath != filepath.Join(filepath.Dir(c.ConfigPath), "files.toml") {
		fc.Files.Path = c.FilesPath
	}
	fc.Terminal.Command = c.TerminalCommand
	fc.Log.Level = c.LogLevel
	fc.Log.File = c.LogFile
	fc.Log.MaxSize = c.LogMaxSize
	fc.Log.MaxBackups = c.LogMaxBackups
	fc.Log.MaxAge = c.LogMaxAge
	return fc
}

// Save writes the configuration back to c.ConfigPath.
func Save(c *Config) error {
	data, err := toml.Marshal(c.toFile())
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	tmpPath := c.ConfigPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.Rename(tmpPath, c.ConfigPath)
}

type setter func(c *Config, value string) error

func stringSetter(field func(c *Config) *string) setter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

func boolSetter(field func(c *Config) *bool) setter {
	return func(c *Config, value string) error {
		v, err := core.ParseBool(value)
		if err != nil {
			return err
		}
		*field(c) = v
		return nil
	}
}

func intSetter(field func(c *Config) *int) setter {
	return func(c *Config, value string) error {
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer '%s'", value)
		}
		*field(c) = v
		return nil
	}
}

var setters = map[string]setter{
	"compiler":         stringSetter(func(c *Config) *string { return &c.Compiler }),
	"compile_options":  stringSetter(func(c *Config) *string { return &c.CompileOptions }),
	"static_linking":   boolSetter(func(c *Config) *bool { return &c.StaticLinking }),
	"use_console_info": boolSetter(func(c *Config) *bool { return &c.UseConsoleInfo }),
	"compile_timeout":  intSetter(func(c *Config) *int { return &c.CompileTimeoutSeconds }),
	"cache.in_memory":  boolSetter(func(c *Config) *bool { return &c.CacheInMemory }),
	"cache.path":       stringSetter(func(c *Config) *string { return &c.CachePath }),
	"cache.lock":       boolSetter(func(c *Config) *bool { return &c.CacheLock }),
	"files.persist":    boolSetter(func(c *Config) *bool { return &c.FilesPersist }),
	"files.path":       stringSetter(func(c *Config) *string { return &c.FilesPath }),
	"terminal.command": stringSetter(func(c *Config) *string { return &c.TerminalCommand }),
	"log.level":        stringSetter(func(c *Config) *string { return &c.LogLevel }),
	"log.file":         stringSetter(func(c *Config) *string { return &c.LogFile }),
	"log.max_size":     intSetter(func(c *Config) *int { return &c.LogMaxSize }),
	"log.max_backups":  intSetter(func(c *Config) *int { return &c.LogMaxBackups }),
	"log.max_age":      intSetter(func(c *Config) *int { return &c.LogMaxAge }),
}

// Keys lists the dotted keys accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set applies value to the dotted key and re-validates the result.
func (c *Config) Set(key, value string) error {
	fn, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown config key '%s' (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := fn(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// Values returns the current settings keyed like Set, for display.
func (c *Config) Values() map[string]string {
	return map[string]string{
		"compiler":         c.Compiler,
		"compile_options":  c.CompileOptions,
		"static_linking":   strconv.FormatBool(c.StaticLinking),
		"use_console_info": strconv.FormatBool(c.UseConsoleInfo),
		"compile_timeout":  strconv.Itoa(c.CompileTimeoutSeconds),
		"cache.in_memory":  strconv.FormatBool(c.CacheInMemory),
		"cache.path":       c.CachePath,
		"cache.lock":       strconv.FormatBool(c.CacheLock),
		"files.persist":    strconv.FormatBool(c.FilesPersist),
		"files.path":       c.FilesPath,
		"terminal.command": c.TerminalCommand,
		"log.level":        c.LogLevel,
		"log.file":         c.LogFile,
		"log.max_size":     strconv.Itoa(c.LogMaxSize),
		"log.max_backups":  strconv.Itoa(c.LogMaxBackups),
		"log.max_age":      strconv.Itoa(c.LogMaxAge),
	}
}
