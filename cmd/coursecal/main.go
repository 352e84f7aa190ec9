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

	"coursecal/internal/capture"
	"coursecal/internal/config"
	appLog "coursecal/internal/log"
	"coursecal/internal/schedule"
	"coursecal/internal/session"
	"coursecal/internal/web"
)

// flagConfig holds CLI flag values; they override the config file.
type flagConfig struct {
	configPath string
	envFile    string
	listen     string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if err := conf.ApplyEnv(flags.envFile); err != nil {
		appLog.Error("failed to apply environment", err, "env_file", flags.envFile)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err)
		os.Exit(1)
	}
	level, _ := appLog.ParseLevel(conf.LogLevel)
	appLog.SetLevel(level)

	appLog.Info("coursecal starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"week_start", conf.WeekStart,
		"show_weekends", conf.ShowWeekends,
		"capture", conf.Capture.Enabled,
		"once", flags.once,
	)

	ctrl, err := buildController(conf)
	if err != nil {
		appLog.Error("failed to build calendar", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, ctrl, flags.once); err != nil {
		appLog.Error("coursecal stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("coursecal exiting")
}

func buildController(conf *config.Config) (*session.Controller, error) {
	scfg, err := web.SessionConfig(conf)
	if err != nil {
		return nil, err
	}
	termStart, termEnd, err := conf.TermBounds(scfg.Location)
	if err != nil {
		return nil, err
	}
	store, err := schedule.Load(schedule.Options{
		Location:  scfg.Location,
		TermStart: termStart,
		TermEnd:   termEnd,
	})
	if err != nil {
		return nil, err
	}
	return session.NewController(store, scfg), nil
}

// run serves HTTP until ctx is done. With once set it takes a single
// preview capture of the served page and returns.
func run(ctx context.Context, conf *config.Config, ctrl *session.Controller, once bool) error {
	srv := web.NewServer(conf, ctrl, conf.Capture.Output)
	httpSrv := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String())
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	job := capture.Job{Options: captureOptions(conf, ln.Addr().String())}

	if once {
		err := job.Run(ctx)
		shutdown(httpSrv)
		return err
	}

	if conf.Capture.Enabled {
		c, err := capture.Schedule(ctx, conf.Capture.Cron, job)
		if err != nil {
			shutdown(httpSrv)
			return err
		}
		defer func() { <-c.Stop().Done() }()
	}

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		return err
	}
	shutdown(httpSrv)
	return nil
}

func captureOptions(conf *config.Config, addr string) capture.CaptureOptions {
	url := conf.Capture.URL
	if url == "" {
		url = "http://" + addr + "/calendar"
	}
	opts := capture.CaptureOptions{
		URL:        url,
		OutputPath: conf.Capture.Output,
		Width:      conf.Capture.Width,
		Height:     conf.Capture.Height,
	}
	// A hashed password cannot be replayed; the page must then be reachable
	// without auth through capture.url.
	if a := conf.BasicAuth; a != nil && a.Password != "" {
		opts.Username, opts.Password = a.Username, a.Password
	}
	return opts
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", config.DefaultPath, "Path to config file")
	flag.StringVar(&cfg.envFile, "env", ".env", "Optional .env file with COURSECAL_* overrides")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Capture one preview PNG and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
