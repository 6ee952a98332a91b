package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/geoanchor/internal/adapters/http"
	natsadapter "github.com/samirrijal/geoanchor/internal/adapters/nats"
	"github.com/samirrijal/geoanchor/internal/adapters/simulator"
	"github.com/samirrijal/geoanchor/internal/core/domain"
	"github.com/samirrijal/geoanchor/internal/core/ports"
	"github.com/samirrijal/geoanchor/internal/core/usecases"
	"github.com/samirrijal/geoanchor/internal/pkg/config"
	"github.com/samirrijal/geoanchor/internal/pkg/logging"
	"github.com/samirrijal/geoanchor/internal/pkg/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load("geoanchor-sessiond")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			logger.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Storage
	store, closeStore, err := openStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer closeStore()

	// NATS
	var publisher ports.EventPublisher
	var natsConn *nats.Conn
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			logger.Warn("nats unavailable, session events disabled", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			natsConn = pub.Conn()
		}
	}

	// Tracking
	script, err := simulator.LoadScript(cfg.Simulator.Script)
	if err != nil {
		log.Fatalf("simulator: %v", err)
	}
	clock := usecases.SystemClock{}
	tracking, err := simulator.NewTracking(script, clock)
	if err != nil {
		log.Fatalf("simulator: %v", err)
	}

	quit := make(chan string, 1)
	terminator := usecases.NewTerminator(cfg.Tracking.ErrorDisplay, func(reason string) {
		quit <- reason
	}, logger)

	history := usecases.NewHistoryStore(store, clock, usecases.HistoryConfig{
		Key:      cfg.History.Key,
		Limit:    cfg.History.Limit,
		Eviction: usecases.EvictionPolicy(cfg.History.Eviction),
		MaxAge:   cfg.History.MaxAge,
		Timeout:  cfg.Storage.Timeout,
	}, logger)

	session, err := usecases.NewSessionController(usecases.SessionDeps{
		Tracking:   tracking,
		Location:   simulator.NewLocation(tracking),
		History:    history,
		Prefs:      store,
		Presenter:  newLogPresenter(logger),
		Publisher:  publisher,
		Clock:      clock,
		Terminator: terminator,
		Logger:     logger,
		Config: usecases.TrackingConfig{
			HeadingAccuracyThreshold:    cfg.Tracking.HeadingAccuracyThreshold,
			HorizontalAccuracyThreshold: cfg.Tracking.HorizontalAccuracyThreshold,
			LocalizationTimeout:         cfg.Tracking.LocalizationTimeout,
			FeatureEnableGrace:          cfg.Tracking.FeatureEnableGrace,
			ErrorDisplay:                cfg.Tracking.ErrorDisplay,
		},
	})
	if err != nil {
		logger.Error(domain.MessageMissingComponents, "error", err)
		os.Exit(1)
	}

	if err := session.Enable(ctx); err != nil {
		logger.Warn("session enabled without history", "error", err)
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "geoanchor sessiond",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "http://localhost:3000, http://localhost:5173",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, &http.Dependencies{
		Session:     session,
		Storage:     store,
		StorageName: cfg.Storage.Backend,
		NATS:        natsConn,
		Version:     version,
	}, logger)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("session server starting", "addr", addr, "storage", cfg.Storage.Backend)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	go runTicks(ctx, session, cfg.Tracking.TickInterval)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		logger.Info("shutdown signal received, draining connections...", "signal", sig.String())
	case reason := <-quit:
		logger.Error("session terminated", "reason", reason)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := session.Disable(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("save history on shutdown", "error", err)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}

	logger.Info("server stopped")
}

// runTicks drives the session once per interval with the measured time since the previous tick.
func runTicks(ctx context.Context, session *usecases.SessionController, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			session.Tick(ctx, now.Sub(last))
			last = now
		}
	}
}

// logPresenter logs the presentation whenever its message or controls change.
type logPresenter struct {
	logger *slog.Logger
	last   domain.Presentation
}

func newLogPresenter(logger *slog.Logger) *logPresenter {
	return &logPresenter{logger: logger.With("component", "presenter")}
}

func (p *logPresenter) Present(v domain.Presentation) {
	if v.Message == p.last.Message && v.Buttons == p.last.Buttons && v.InARView == p.last.InARView {
		return
	}
	p.last = v
	p.logger.Info(v.Message,
		"ar_view", v.InARView,
		"place_anchor", v.Buttons.PlaceAnchor,
		"clear_all", v.Buttons.ClearAll,
	)
}
