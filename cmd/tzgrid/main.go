package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"tzgrid/internal/capture"
	"tzgrid/internal/config"
	"tzgrid/internal/grid"
	"tzgrid/internal/ics"
	appLog "tzgrid/internal/log"
	"tzgrid/internal/metrics"
	"tzgrid/internal/model"
	"tzgrid/internal/roster"
	"tzgrid/internal/roster/sqlite"
	"tzgrid/internal/scheduler"
	"tzgrid/internal/tz"
	"tzgrid/internal/web"
)

const shutdownTimeout = 10 * time.Second

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	debug      bool
}

func main() {
	appLog.Info("tzgrid starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	level := appLog.ParseLevel(conf.LogLevel)
	if flags.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"listen", conf.Listen,
		"base_timezone", conf.BaseTimezone,
		"refresh", conf.RefreshCron,
		"db_path", conf.DBPath,
		"catalog_size", len(conf.Timezones),
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags.once); err != nil {
		appLog.Error("tzgrid exited with error", err)
		os.Exit(1)
	}
	appLog.Info("tzgrid exiting")
}

// run wires every component and blocks until ctx is cancelled, or until the
// single refresh finishes when once is set.
func run(ctx context.Context, conf *config.Config, once bool) error {
	// The catalog only gates input. Stored people are resolved against the
	// full database, so shrinking the catalog never breaks existing rows.
	zones := tz.NewDatabase()
	catalog, err := tz.NewCatalog(zones, conf.Timezones)
	if err != nil {
		return err
	}

	store, err := sqlite.New(conf.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	clock := clockwork.NewRealClock()
	svc, err := roster.NewService(store, catalog,
		model.BaseContext{Timezone: conf.BaseTimezone, Label: conf.BaseLabel}, clock)
	if err != nil {
		return err
	}

	resolver := grid.NewResolver(zones)
	m := metrics.New(prometheus.DefaultRegisterer)

	var opts []scheduler.RefresherOption
	if conf.Capture.Enabled {
		opts = append(opts, scheduler.WithCapture(capture.Chromium{}, capture.Options{
			URL:        conf.CaptureURL(),
			OutputPath: conf.Capture.Output,
			Width:      conf.Capture.Width,
			Height:     conf.Capture.Height,
			Timeout:    time.Duration(conf.Capture.TimeoutSec) * time.Second,
		}))
	}
	refresher := scheduler.NewRefresher(clock, svc, resolver, m, opts...)

	srv := web.NewServer(web.Deps{
		Config:   conf,
		Roster:   svc,
		Catalog:  catalog,
		Resolver: resolver,
		Exporter: ics.NewExporter(zones),
		Metrics:  m,
		Clock:    clock,
		Refresh:  refresher,
	})
	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Bind before anything else runs so the capture step can reach /grid.
	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return httpServer.Shutdown(shutdownCtx)
	})

	if once {
		// The server stays up for exactly one refresh.
		g.Go(func() error {
			defer cancel()
			return refresher.Tick(ctx)
		})
		return g.Wait()
	}

	sched, err := scheduler.New(conf.RefreshCron, refresher)
	if err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	g.Go(func() error {
		if err := refresher.Tick(ctx); err != nil {
			appLog.Error("initial refresh failed", err)
		}
		return sched.Run(ctx)
	})

	return g.Wait()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./tzgrid.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one refresh (grid + capture) and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
