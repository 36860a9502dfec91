// Command mudra turns hand gestures seen by the camera into volume changes
// and media key presses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logger"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var version = "dev"

type options struct {
	configPath    string
	addr          string
	logLevel      string
	volumeBackend string
	noTray        bool
	printConfig   bool
	showVersion   bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "YAML config file (default $MUDRA_CONFIG)")
	flag.StringVar(&opts.addr, "addr", "", "HTTP listen address")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flag.StringVar(&opts.volumeBackend, "volume-backend", "", "volume backend (auto, coreaudio, pulse, endpoint, camilladsp, memory)")
	flag.BoolVar(&opts.noTray, "no-tray", false, "run without the system tray")
	flag.BoolVar(&opts.printConfig, "print-config", false, "print the effective configuration and exit")
	flag.BoolVar(&opts.showVersion, "version", false, "print the version and exit")
	flag.Parse()

	if opts.showVersion {
		fmt.Println("mudra", version)
		return
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, "mudra:", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	overrides := opts.overrides()

	// The settings database lives in data_dir, so the file and environment
	// are read once before the store can be layered in.
	boot, err := config.NewLoader(config.WithFile(opts.configPath)).LoadWith(overrides)
	if err != nil {
		return err
	}

	logger.Init(logger.Options{
		Level:   boot.Log.Level,
		Format:  boot.Log.Format,
		Service: "mudra",
	})
	log := logger.Named("main")

	if err := os.MkdirAll(boot.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	st, err := store.New(boot.DBPath())
	if err != nil {
		return err
	}
	defer st.Close()

	source := &flagSource{
		loader:    config.NewLoader(config.WithFile(opts.configPath), config.WithSettings(st.Provider())),
		overrides: overrides,
	}
	cfg, err := source.Load()
	if err != nil {
		return err
	}
	if cfg.Log.Level != boot.Log.Level {
		logger.SetLevel(cfg.Log.Level)
	}

	if opts.printConfig {
		out, err := cfg.Dump()
		if err != nil {
			return err
		}
		os.Stdout.Write(out)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewManager(metrics.WithRuntimeMetrics())

	appCfg, cleanup, err := buildApp(cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	a := app.New(appCfg)
	if err := a.Start(); err != nil {
		// Gestures can still be injected through the API.
		log.Warn().Err(err).Msg("camera unavailable, capture disabled")
	}
	defer a.Stop()

	log.Info().
		Str("version", version).
		Str("volume_backend", string(cfg.Volume.Backend)).
		Str("media_keys", cfg.MediaKeys.Backend).
		Bool("camera", a.HasCamera()).
		Msg("mudra started")

	errCh := make(chan error, 1)
	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir: cfg.Server.StaticDir,
			App:       a,
			Store:     st,
			Source:    source,
			Apply: func(c *config.Config) error {
				return a.ApplyDispatcherConfig(c.Dispatcher)
			},
			Metrics: m,
		})
		go func() {
			if err := srv.Run(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	if opts.noTray {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			return err
		}
		log.Info().Msg("shutting down")
		return nil
	}

	t := tray.New(a.IsEnabled())
	a.AddObserver(t)
	t.OnToggle(func(enabled bool) {
		a.SetEnabled(enabled)
		log.Info().Bool("enabled", enabled).Msg("gesture control toggled")
	})
	t.OnSettings(func() {
		if !cfg.Server.Enabled {
			return
		}
		if err := openBrowser(settingsURL(cfg.Server.Addr)); err != nil {
			log.Warn().Err(err).Msg("failed to open settings")
		}
	})
	t.OnQuit(stop)

	go func() {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
		t.Quit()
	}()

	// systray needs the main goroutine.
	t.Run()
	log.Info().Msg("shutting down")
	return nil
}

func (o options) overrides() map[string]string {
	out := make(map[string]string)
	if o.addr != "" {
		out["server.addr"] = o.addr
	}
	if o.logLevel != "" {
		out["log.level"] = o.logLevel
	}
	if o.volumeBackend != "" {
		out["volume.backend"] = o.volumeBackend
	}
	return out
}

// flagSource keeps command-line overrides in effect when the settings API
// reloads the configuration.
type flagSource struct {
	loader    *config.Loader
	overrides map[string]string
}

func (s *flagSource) Load() (*config.Config, error) {
	return s.loader.LoadWith(s.overrides)
}

func (s *flagSource) LoadWith(overrides map[string]string) (*config.Config, error) {
	merged := make(map[string]string, len(s.overrides)+len(overrides))
	for k, v := range overrides {
		merged[k] = v
	}
	for k, v := range s.overrides {
		merged[k] = v
	}
	return s.loader.LoadWith(merged)
}
