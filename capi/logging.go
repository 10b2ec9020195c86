package capi

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/aa-wasm/engine"
	"github.com/wippyai/aa-wasm/fetch"
	"github.com/wippyai/aa-wasm/module"
)

// LogEnv names the environment variable that enables library logging.
const LogEnv = "AA_LOG"

var logOnce sync.Once

func setupLogging() {
	logOnce.Do(func() {
		l, ok := loggerFromEnv(os.Getenv(LogEnv))
		if !ok {
			return
		}
		SetLogger(l)
	})
}

// SetLogger routes every package's logging through l.
func SetLogger(l *zap.Logger) {
	engine.SetLogger(l.Named("engine"))
	fetch.SetLogger(l.Named("fetch"))
	module.SetLogger(l.Named("module"))
}

// loggerFromEnv builds a production logger on stderr for a level named in
// value. Empty or unknown levels leave logging off.
func loggerFromEnv(value string) (*zap.Logger, bool) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" || value == "off" {
		return nil, false
	}
	level, err := zapcore.ParseLevel(value)
	if err != nil {
		return nil, false
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return nil, false
	}
	return l, true
}
