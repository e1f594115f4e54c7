// Command server boots the matching engine behind the HTTP/WS shell,
// wired together with go.uber.org/fx the way the teacher's cmd/ws and
// cmd/gateway binaries are.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matchcore/clob/internal/api"
	"github.com/matchcore/clob/internal/config"
	"github.com/matchcore/clob/internal/events"
	"github.com/matchcore/clob/internal/facade"
	"github.com/matchcore/clob/internal/matching"
	"github.com/matchcore/clob/internal/metrics"
	"github.com/matchcore/clob/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	flag.Parse()

	app := fx.New(
		fx.Provide(
			func() (*config.Config, error) { return config.Load(*configPath) },
			newLogger,
			newBus,
			newEngine,
			newSessionStore,
			newRateLimiter,
			newMetrics,
			facade.New,
			api.NewHTTPServer,
			api.NewEventServer,
		),
		fx.Invoke(registerRoutes, registerMetricsEndpoint, registerEventLog, runServer),
	)
	app.Run()
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	switch cfg.Logging.Level {
	case "debug":
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zcfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zcfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	if cfg.Logging.Format == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		zcfg.EncoderConfig = zap.NewProductionEncoderConfig()
		zcfg.EncoderConfig.TimeKey = "timestamp"
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	return zcfg.Build()
}

func newBus(cfg *config.Config, logger *zap.Logger) *events.Bus {
	return events.New(events.Config{
		QueueSize: cfg.Bus.QueueSize,
		Workers:   cfg.Bus.Workers,
		TestMode:  cfg.Bus.TestMode,
	}, logger)
}

func newEngine(bus *events.Bus) *matching.Engine {
	return matching.New(bus)
}

func newSessionStore(cfg *config.Config, logger *zap.Logger) *session.Store {
	return session.New(session.Config{
		Secret:   cfg.Auth.JWTSecret,
		TokenTTL: cfg.Auth.TokenTTL,
	}, logger)
}

func newRateLimiter(cfg *config.Config) *limiter.Limiter {
	rate := limiter.Rate{
		Period: time.Second,
		Limit:  int64(cfg.Server.RateLimitRPS),
	}
	return limiter.New(memory.NewStore(), rate)
}

func newMetrics() *metrics.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

var auditedEventTypes = []events.Type{
	events.OrderAdded,
	events.OrderCancelled,
	events.OrderPartiallyFilled,
	events.OrderFilled,
	events.Trade,
}

func registerEventLog(lc fx.Lifecycle, cfg *config.Config, bus *events.Bus, logger *zap.Logger) error {
	if cfg.Logging.EventLogPath == "" {
		return nil
	}
	sub, err := events.NewFileLogSubscriber(cfg.Logging.EventLogPath)
	if err != nil {
		return fmt.Errorf("open event audit log: %w", err)
	}
	for _, t := range auditedEventTypes {
		bus.Subscribe(t, sub.Handle)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			if err := sub.Close(); err != nil {
				logger.Warn("failed to close event audit log", zap.Error(err))
			}
			return nil
		},
	})
	return nil
}

func registerRoutes(httpServer *api.HTTPServer, wsServer *api.EventServer) {
	wsServer.Register(httpServer.Engine())
	httpServer.Engine().GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func registerMetricsEndpoint(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) {
	if !cfg.Metrics.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Metrics.Port), Handler: mux}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

func runServer(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger, bus *events.Bus, httpServer *api.HTTPServer) {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      httpServer.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("HTTP server shutdown error", zap.Error(err))
			}
			// Drain the bus before the process exits so no event published
			// during shutdown is lost.
			bus.Shutdown()
			return nil
		},
	})
}
