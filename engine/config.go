package engine

import (
	"sync"

	"github.com/tetratelabs/wazero"
)

// Config holds engine configuration
type Config struct {
	// CompilationCache is shared by every engine built with this config.
	// nil selects a process-wide in-memory cache so reloading the same
	// bundle skips compilation.
	CompilationCache wazero.CompilationCache

	// CacheDir, when set and CompilationCache is nil, persists compiled
	// units on disk.
	CacheDir string

	// MemoryLimitPages sets the maximum memory per node in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	MemoryLimitPages uint32

	// EnableWASI instantiates wasi_snapshot_preview1 for units built with a
	// libc that imports it. Units get no filesystem and discarded stdio.
	EnableWASI bool

	// Interpreter forces the interpreter even where the compiler is available.
	Interpreter bool
}

// DefaultConfig returns the configuration used when none is supplied
func DefaultConfig() *Config {
	return &Config{EnableWASI: true}
}

var (
	sharedCache     wazero.CompilationCache
	sharedCacheOnce sync.Once
)

func defaultCache() wazero.CompilationCache {
	sharedCacheOnce.Do(func() {
		sharedCache = wazero.NewCompilationCache()
	})
	return sharedCache
}

// runtimeConfig builds the wazero config. The returned cache is non-nil when
// it was opened here and must be closed with the runtime.
func (c *Config) runtimeConfig() (wazero.RuntimeConfig, wazero.CompilationCache, error) {
	var rc wazero.RuntimeConfig
	if c.Interpreter {
		rc = wazero.NewRuntimeConfigInterpreter()
	} else {
		rc = wazero.NewRuntimeConfig()
	}

	if c.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(c.MemoryLimitPages)
	}

	if c.CompilationCache != nil {
		return rc.WithCompilationCache(c.CompilationCache), nil, nil
	}
	if c.CacheDir != "" {
		owned, err := wazero.NewCompilationCacheWithDir(c.CacheDir)
		if err != nil {
			return nil, nil, err
		}
		return rc.WithCompilationCache(owned), owned, nil
	}
	return rc.WithCompilationCache(defaultCache()), nil, nil
}
