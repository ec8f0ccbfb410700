package cli

import (
	"runtime"
	"time"

	"github.com/colthorp/cppc-go/internal/cache"
	"github.com/colthorp/cppc-go/internal/config"
	"github.com/colthorp/cppc-go/internal/core"
	"github.com/colthorp/cppc-go/internal/logging"
	"github.com/colthorp/cppc-go/internal/settings"
	"github.com/colthorp/cppc-go/internal/toolchain"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app is the set of collaborators a command works with, built from config.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	fs       afero.Fs
	store    *cache.Store
	decider  *cache.Decider
	builder  *toolchain.Builder
	settings *settings.Registry
}

// sharedMemory backs the cache when cache.in_memory is set, so that
// commands run in one process share it.
var sharedMemory = cache.NewMemoryBackend()

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg, logging.Options{
		Verbose: verbose,
		Quiet:   quiet,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	fs := afero.NewOsFs()
	store := cache.NewStore(newBackend(cfg, fs), logger.Named("cache"))
	decider := cache.NewDecider(fs, store, runtime.GOOS, logger.Named("cache"))

	compiler := toolchain.NewGCC(cfg.Compiler, time.Duration(cfg.CompileTimeoutSeconds)*time.Second)
	builder := toolchain.NewBuilder(compiler, decider, fs, logger.Named("build"))

	filesPath := ""
	if cfg.FilesPersist {
		filesPath = cfg.FilesPath
	}

	if cfg.CacheInMemory {
		logger.Info("cache.in_memory is on; entries last for this process only, so every compile rebuilds")
	}

	logger.Debug("Configuration loaded",
		zap.String("config", cfg.ConfigPath),
		zap.String("cache", store.Path()),
		zap.String("compiler", cfg.Compiler))

	return &app{
		cfg:      cfg,
		logger:   logger,
		fs:       fs,
		store:    store,
		decider:  decider,
		builder:  builder,
		settings: settings.NewRegistry(fs, filesPath, logger.Named("settings")),
	}, nil
}

func newBackend(cfg *config.Config, fs afero.Fs) cache.Backend {
	if cfg.CacheInMemory {
		return sharedMemory
	}
	backend := cache.NewFileBackend(fs, cfg.CachePath)
	if cfg.CacheLock {
		backend = backend.WithLock(cfg.CachePath + core.CacheLockSuffix)
	}
	return backend
}

func (a *app) close() {
	_ = a.logger.Sync()
}
