package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"kindledash/internal/calendar"
	"kindledash/internal/capture"
	"kindledash/internal/config"
	"kindledash/internal/dashboard"
	appLog "kindledash/internal/log"
	"kindledash/internal/provider"
	"kindledash/internal/transit"
	"kindledash/internal/weather"
	"kindledash/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	once       bool
	renderOnly bool
}

func main() {
	appLog.Info("kindledash starting", "version", "0.1.0")

	flags := parseFlags()

	// Credentials commonly live in a local .env; absence is fine.
	if err := godotenv.Load(); err == nil {
		appLog.Debug(".env loaded")
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"calendar_count", len(conf.CalendarIDs),
		"ics_count", len(conf.ICSFeeds),
		"transit_stop", conf.Transit.StopID,
		"once", flags.once,
		"render_only", flags.renderOnly,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	// One shared transport for all providers; its timeout is the only
	// outbound deadline (no retries, no per-adapter timeout).
	httpClient := provider.NewHTTPClient()

	service := dashboard.NewService(
		weather.NewClient(httpClient, conf.Latitude, conf.Longitude, conf.Timezone),
		calendar.NewClient(calendar.Options{
			HTTPClient:   httpClient,
			Timezone:     conf.Timezone,
			CalendarIDs:  conf.CalendarIDs,
			ClientID:     conf.Google.ClientID,
			ClientSecret: conf.Google.ClientSecret,
			RefreshToken: conf.Google.RefreshToken,
			ICSFeeds:     icsFeeds(conf),
		}),
		transit.NewClient(httpClient, conf.Transit.StopID, conf.Timezone, conf.Transit.Products),
	)

	srv, err := web.NewServer(conf, service)
	if err != nil {
		appLog.Error("failed to build web server", err)
		os.Exit(1)
	}

	httpServer := &http.Server{Addr: conf.Listen, Handler: srv.Handler()}
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Error("HTTP server failed", err)
			cancel()
		}
	}()

	pageURL := "http://" + conf.Listen + "/"
	runCapture := func() {
		if flags.renderOnly {
			appLog.Info("render-only mode; skipping screenshot capture")
			return
		}
		if err := capture.ScreenPNG(ctx, capture.Options{
			URL:        pageURL,
			OutputPath: conf.ScreenPath,
		}); err != nil {
			appLog.Error("capture failed", err, "url", pageURL)
			return
		}
		appLog.Info("capture completed", "output", conf.ScreenPath)
	}

	if flags.once {
		runCapture()
		shutdown(httpServer)
		return
	}

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, runCapture); err != nil {
		appLog.Error("invalid refresh cron expression", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	<-ctx.Done()
	shutdown(httpServer)
	appLog.Info("kindledash exiting")
}

func shutdown(s *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.Shutdown(ctx)
}

func icsFeeds(conf *config.Config) []calendar.ICSFeed {
	feeds := make([]calendar.ICSFeed, 0, len(conf.ICSFeeds))
	for _, f := range conf.ICSFeeds {
		id := f.ID
		if id == "" {
			id = f.URL
		}
		feeds = append(feeds, calendar.ICSFeed{ID: id, URL: f.URL})
	}
	return feeds
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/kindledash/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one capture cycle and exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Serve the page only; do not capture screenshots")

	flag.Parse()

	return cfg
}
