// Package app wires configuration, the backend driver and the HTTP layer
// into a runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/medease/internal/audit"
	"github.com/BruksfildServices01/medease/internal/backend"
	"github.com/BruksfildServices01/medease/internal/backend/memory"
	"github.com/BruksfildServices01/medease/internal/backend/redisstore"
	"github.com/BruksfildServices01/medease/internal/backend/selfhosted"
	"github.com/BruksfildServices01/medease/internal/backend/supabase"
	"github.com/BruksfildServices01/medease/internal/config"
	"github.com/BruksfildServices01/medease/internal/db"
	"github.com/BruksfildServices01/medease/internal/handlers"
	"github.com/BruksfildServices01/medease/internal/live"
	"github.com/BruksfildServices01/medease/internal/middleware"
	"github.com/BruksfildServices01/medease/internal/routes"
	"github.com/BruksfildServices01/medease/internal/store"
	"github.com/BruksfildServices01/medease/internal/ticket"
	"github.com/BruksfildServices01/medease/internal/timezone"
	"github.com/BruksfildServices01/medease/internal/web"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	db       *gorm.DB
	rdb      *redis.Client
	natsConn *nats.Conn

	driver     backend.Driver
	dispatcher *audit.Dispatcher
	registry   *store.Registry
	limiter    *middleware.RateLimiter
	server     *http.Server
}

// New connects to everything cfg names. On error whatever was already
// opened is closed again.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (a *App, err error) {
	a = &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	var storage backend.SessionStorage = backend.NewMemoryStorage()
	if cfg.RedisURL != "" {
		if a.rdb, err = redisstore.Connect(ctx, cfg.RedisURL, logger); err != nil {
			return a, err
		}
		storage = redisstore.New(a.rdb, cfg.SessionTTL)
	}

	if a.driver, err = a.newDriver(storage); err != nil {
		return a, err
	}

	sinks := audit.MultiSink{audit.NewLogSink(logger)}
	if a.db != nil {
		sinks = append(sinks, audit.NewGormSink(a.db))
	}
	if cfg.NATSURL != "" {
		nc, natsErr := audit.ConnectNATS(ctx, cfg.NATSURL, logger)
		if natsErr != nil {
			logger.Warn().Err(natsErr).Msg("audit events will not be published to nats")
		} else {
			a.natsConn = nc
			sinks = append(sinks, audit.NewNATSSink(nc, cfg.NATSAuditSubject))
		}
	}
	a.dispatcher = audit.NewDispatcher(sinks, logger)

	hub := live.NewHub(logger)
	a.registry = store.NewRegistry(a.driver, store.Options{
		MinPasswordLength: cfg.PasswordMinLength,
		Logger:            logger,
		Audit:             a.dispatcher,
		OnChange:          hub.Notify,
		FetchTimeout:      cfg.BackendTimeout,
	}, cfg.StoreIdleTTL)

	var archiver handlers.TicketArchiver
	if cfg.TicketBucket != "" {
		archiver = ticket.NewArchiver(ticket.ArchiveConfig{
			Bucket:          cfg.TicketBucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			URLTTL:          cfg.TicketURLTTL,
		})
	}

	tmpl, err := web.Templates()
	if err != nil {
		return a, fmt.Errorf("parse templates: %w", err)
	}

	if !cfg.IsLocal() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.SetHTMLTemplate(tmpl)

	loc := timezone.Location(cfg.ClinicTimezone)
	clinicNow := func() time.Time { return timezone.NowIn(cfg.ClinicTimezone) }
	a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	routes.RegisterRoutes(engine, routes.Deps{
		Stores: a.registry,
		Visitor: middleware.VisitorConfig{
			CookieName: cfg.SessionCookie,
			TTL:        cfg.SessionTTL,
			Secure:     !cfg.IsLocal(),
		},
		CORSOrigins: cfg.CORSAllowedOrigins,
		Limiter:     a.limiter,
		Hub:         hub,
		Pages: handlers.NewPageHandler(handlers.PageConfig{
			Location:    loc,
			LoadingWait: cfg.LoadingWait,
			MinPassword: cfg.PasswordMinLength,
			Archiver:    archiver,
			Logger:      logger,
			Now:         clinicNow,
		}),
		API:    handlers.NewAPIHandler(loc, cfg.LoadingWait, cfg.PasswordMinLength, clinicNow),
		Logger: logger,
	})

	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func (a *App) newDriver(storage backend.SessionStorage) (backend.Driver, error) {
	cfg := a.cfg
	switch cfg.BackendDriver {
	case config.DriverSelfHosted:
		gdb, err := db.Open(cfg.DBUrl)
		if err != nil {
			return nil, err
		}
		a.db = gdb
		return selfhosted.New(gdb, selfhosted.Config{
			JWTSecret:  cfg.JWTSecret,
			AccessTTL:  cfg.JWTTTL,
			RefreshTTL: cfg.SessionTTL,
		}, storage, a.logger), nil
	case config.DriverMemory:
		a.logger.Warn().Msg("using the in-memory backend, data is lost on restart")
		return memory.New(storage), nil
	default:
		return supabase.New(supabase.Config{
			URL:     cfg.SupabaseURL,
			AnonKey: cfg.SupabaseAnonKey,
			Timeout: cfg.BackendTimeout,
		}, storage, a.logger), nil
	}
}

// Run serves until ctx is cancelled, then shuts the server down.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.server.Addr).Str("driver", a.cfg.BackendDriver).Msg("starting server")
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close stops the stores before the audit queue so their last events are
// still written, and the connections last.
func (a *App) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.natsConn != nil {
		_ = a.natsConn.Drain()
	}
	if a.driver != nil {
		if err := a.driver.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("backend close failed")
		}
	} else if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}
