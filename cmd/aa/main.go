// Command aa lists, inspects, renders and auditions audio modules.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/aa-wasm/engine"
	"github.com/wippyai/aa-wasm/fetch"
	"github.com/wippyai/aa-wasm/internal/config"
	"github.com/wippyai/aa-wasm/module"
)

const usage = `Usage: aa [-v] [-config file] [-base url] <command> [args]

Commands:
  list                  list the modules published at the base URL
  info <module>         show a module's description and channel layout
  render [flags] <module>
                        render a module to a WAV file
  play [flags] <module> play a module through the sound card

Run "aa <command> -h" for command flags.
`

// app carries what every command needs
type app struct {
	cfg    config.Config
	logger *zap.Logger
	styled bool
}

func main() {
	var (
		verbose    = flag.Bool("v", false, "Verbose logging")
		configPath = flag.String("config", "", "Config file (default $XDG_CONFIG_HOME/aa/config.yaml)")
		baseURL    = flag.String("base", "", "Base URL of the module server")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	a, err := newApp(*configPath, *baseURL, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer a.logger.Sync()

	if err := a.run(context.Background(), flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(configPath, baseURL string, verbose bool) (*app, error) {
	if configPath == "" {
		p, err := config.Path()
		if err == nil {
			configPath = p
		}
	}
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return nil, err
	}
	engine.SetLogger(logger.Named("engine"))
	fetch.SetLogger(logger.Named("fetch"))
	module.SetLogger(logger.Named("module"))

	return &app{cfg: cfg, logger: logger, styled: isTerminal(os.Stdout)}, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "list":
		return a.list(ctx, args)
	case "info":
		return a.info(ctx, args)
	case "render":
		return a.render(ctx, args)
	case "play":
		return a.play(ctx, args)
	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func (a *app) base() (string, error) {
	if a.cfg.BaseURL == "" {
		return "", fmt.Errorf("no base URL: pass -base or set base_url in the config file")
	}
	return a.cfg.BaseURL, nil
}

func (a *app) moduleOptions() []module.Option {
	return []module.Option{
		module.WithFetcher(fetch.New(
			fetch.WithAttempts(a.cfg.FetchAttempts),
			fetch.WithTimeout(a.cfg.FetchTimeout),
		)),
		module.WithEngineFactory(engine.Factory(engine.DefaultConfig())),
	}
}

// resolveModule maps a listing name onto its manifest path. Names absent
// from the listing, or an unreachable listing, are used as manifest paths.
func (a *app) resolveModule(ctx context.Context, base, name string) string {
	listing, err := module.Modules(ctx, base, a.moduleOptions()...)
	if err != nil {
		a.logger.Debug("listing unavailable", zap.Error(err))
		return name
	}
	if e, ok := listing.Find(name); ok {
		return e.JSONURL
	}
	return name
}

// open builds the named module and initializes it at the configured rate
func (a *app) open(ctx context.Context, name string, rate float64) (*module.Module, error) {
	base, err := a.base()
	if err != nil {
		return nil, err
	}
	id := a.resolveModule(ctx, base, name)
	m, err := module.New(ctx, base, id, a.moduleOptions()...)
	if err != nil {
		return nil, err
	}
	if err := m.Init(rate); err != nil {
		m.Close(ctx)
		return nil, fmt.Errorf("init: %w", err)
	}
	return m, nil
}

func oneModuleArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one module name", fs.Name())
	}
	return fs.Arg(0), nil
}
