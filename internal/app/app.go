// Package app assembles the goShare server from its configuration and runs
// it until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	goShare "github.com/MrEthical07/goShare"
	"github.com/MrEthical07/goShare/blob"
	"github.com/MrEthical07/goShare/credstore"
	"github.com/MrEthical07/goShare/files"
	"github.com/MrEthical07/goShare/gateway"
	"github.com/MrEthical07/goShare/internal/config"
	"github.com/MrEthical07/goShare/internal/httpapi"
	"github.com/MrEthical07/goShare/internal/logging"
	"github.com/MrEthical07/goShare/internal/rate"
	"github.com/MrEthical07/goShare/metrics/export/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	rateLimitPrefix        = "goshare:rl"
	defaultShutdownTimeout = 10 * time.Second
)

// App owns every long-lived component of the server.
type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *gorm.DB
	redis   redis.UniversalClient
	store   *credstore.Store
	engine  *goShare.Engine
	gateway *gateway.Gateway
	handler http.Handler

	auditFile *os.File
}

// New connects the datastores and wires the engine, the file service, the
// event gateway and the HTTP API. Without a Redis address the session
// ledger, OTP store and rate limiter stay in process memory; without a
// bucket uploads are kept in memory.
func New(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	app := &App{config: c, logger: logger}

	db, err := credstore.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	if err := credstore.Migrate(db); err != nil {
		app.Close()
		return nil, fmt.Errorf("db migrate error: %w", err)
	}
	app.store = credstore.New(db)

	sinks := goShare.MultiSink{credstore.NewAuditSink(db, logger)}
	if c.AuditLogPath != "" {
		f, err := os.OpenFile(c.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("audit log open error: %w", err)
		}
		app.auditFile = f
		sinks = append(sinks, goShare.NewJSONWriterSink(f))
	}

	ec := c.Engine()
	lintConfig(ctx, &ec, logger)

	builder := goShare.New().
		WithConfig(ec).
		WithCredentialStore(app.store).
		WithAuditSink(sinks).
		WithLogger(logger)

	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		app.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			app.Close()
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		builder.WithRedis(client)
	} else {
		logger.Warn(ctx, "redis not configured, sessions and reset codes are process-local")
	}

	engine, err := builder.Build()
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("engine init error: %w", err)
	}
	app.engine = engine

	blobs, err := newBlobStore(ctx, c, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.gateway = gateway.New(engine, gateway.Options{
		Heartbeat: c.HeartbeatInterval,
		Logger:    logger.With("component", "gateway"),
	})

	svc := files.NewService(files.Deps{
		Repo:   app.store,
		Blobs:  blobs,
		Events: app.gateway,
		Logger: logger.With("component", "files"),
	})

	app.handler = httpapi.NewHandler(httpapi.Deps{
		Auth:           engine,
		Files:          svc,
		Gateway:        app.gateway,
		Metrics:        prometheus.NewExporter(engine).WithGateway(app.gateway).Handler(),
		Limiter:        rate.New(app.redis, rate.Config{MaxRequests: c.AuthRateLimit, Window: c.AuthRateWindow, Prefix: rateLimitPrefix}),
		Logger:         logger.With("component", "http"),
		MaxUploadBytes: c.MaxUploadBytes,
	})

	if name := c.AdminUsername; name != "" {
		err := app.PromoteAdmin(ctx, name)
		switch {
		case errors.Is(err, goShare.ErrUserNotFound):
			logger.Warn(ctx, "admin account not found", "username", name)
		case err != nil:
			app.Close()
			return nil, err
		}
	}

	return app, nil
}

// lintConfig logs every Lint finding. HIGH and WARN findings go out at warn
// level.
func lintConfig(ctx context.Context, ec *goShare.Config, logger logging.Logger) {
	for _, w := range ec.Lint() {
		args := []any{"code", w.Code, "severity", w.Severity.String(), "detail", w.Message}
		if w.Severity >= goShare.LintWarn {
			logger.Warn(ctx, "config lint", args...)
			continue
		}
		logger.Info(ctx, "config lint", args...)
	}
}

func newBlobStore(ctx context.Context, c *config.Config, logger logging.Logger) (blob.Store, error) {
	if c.S3Bucket == "" {
		logger.Warn(ctx, "s3 bucket not configured, uploads are kept in memory")
		return blob.NewMemoryStore(), nil
	}
	store, err := blob.NewS3Store(ctx, blob.S3Config{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}
	return store, nil
}

// PromoteAdmin grants the admin role to an existing account. At startup a
// missing AdminUsername account is logged and skipped so the first start
// can precede signup.
func (app *App) PromoteAdmin(ctx context.Context, username string) error {
	if err := app.store.SetRole(ctx, username, goShare.RoleAdmin); err != nil {
		if errors.Is(err, goShare.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("promote admin: %w", err)
	}
	app.logger.Info(ctx, "admin role granted", "username", username)
	return nil
}

// Handler returns the routed HTTP handler.
func (app *App) Handler() http.Handler {
	return app.handler
}

// Engine returns the session engine.
func (app *App) Engine() *goShare.Engine {
	return app.engine
}

// Run serves HTTP on the configured address and drives the gateway
// heartbeat and the in-memory store sweeper until ctx is cancelled, then
// shuts down gracefully.
func (app *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.ListenAddr, err)
	}
	return app.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go app.gateway.Run(ctx)
	go app.engine.RunSweeper(ctx)

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "Starting app...", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info(context.Background(), "shutting down")
	app.gateway.Close()

	timeout := app.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close releases every component. It is safe to call on a partially
// built App.
func (app *App) Close() {
	if app.gateway != nil {
		app.gateway.Close()
	}
	if app.engine != nil {
		app.engine.Close()
	}
	if app.auditFile != nil {
		_ = app.auditFile.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
	if app.db != nil {
		if sqlDB, err := app.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
