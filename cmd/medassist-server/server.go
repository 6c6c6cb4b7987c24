package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/medassist/medassist/internal/config"
	"github.com/medassist/medassist/internal/domain/analysis"
	"github.com/medassist/medassist/internal/domain/audit"
	"github.com/medassist/medassist/internal/domain/identity"
	"github.com/medassist/medassist/internal/domain/nutrition"
	"github.com/medassist/medassist/internal/platform/auth"
	"github.com/medassist/medassist/internal/platform/blobstore"
	"github.com/medassist/medassist/internal/platform/db"
	"github.com/medassist/medassist/internal/platform/events"
	"github.com/medassist/medassist/internal/platform/hipaa"
	"github.com/medassist/medassist/internal/platform/middleware"
	"github.com/medassist/medassist/internal/platform/ocr"
	"github.com/rs/zerolog"
)

const version = "1.1.0"

// stores holds the repositories for the configured backend.
type stores struct {
	backend   string
	users     identity.UserRepository
	audit     audit.AuditEventRepository
	analysis  analysis.Repository
	nutrition nutrition.Repository
	pinger    db.Pinger
	migrator  *db.Migrator
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreBackend {
	case db.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return &stores{
			backend:   db.BackendPostgres,
			users:     identity.NewUserRepoPG(pool),
			audit:     audit.NewAuditEventRepoPG(pool),
			analysis:  analysis.NewRepoPG(pool),
			nutrition: nutrition.NewRepoPG(pool),
			pinger:    pool,
			migrator:  db.NewPostgresMigrator(pool),
			close:     pool.Close,
		}, nil
	case db.BackendSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			backend:   db.BackendSQLite,
			users:     identity.NewUserRepoSQLite(conn),
			audit:     audit.NewAuditEventRepoSQLite(conn),
			analysis:  analysis.NewRepoSQLite(conn),
			nutrition: nutrition.NewRepoSQLite(conn),
			pinger:    db.SQLitePinger{DB: conn},
			migrator:  db.NewSQLiteMigrator(conn),
			close:     func() { conn.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openArchive(ctx context.Context, cfg *config.Config, vault *hipaa.Vault, logger zerolog.Logger) (*blobstore.Archive, error) {
	switch cfg.ArchiveBackend {
	case "memory":
		logger.Info().Msg("upload archive: in-memory")
		return blobstore.NewArchive(blobstore.NewInMemoryBlobStore(), vault, logger), nil
	case "s3":
		s3, err := blobstore.NewS3Store(ctx, cfg.ArchiveBucket)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("bucket", cfg.ArchiveBucket).Msg("upload archive: s3")
		return blobstore.NewArchive(s3, vault, logger), nil
	default:
		return nil, nil
	}
}

func healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":     "online",
		"compliance": "HIPAA-ready",
		"version":    version,
	})
}

// app is a wired server plus whatever must be closed after it stops.
type app struct {
	echo    *echo.Echo
	closers []func() error
}

func (a *app) close(logger zerolog.Logger) {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logger.Warn().Err(err).Msg("close failed")
		}
	}
}

func newApp(ctx context.Context, cfg *config.Config, st *stores, vault *hipaa.Vault, logger zerolog.Logger) (*app, error) {
	a := &app{}

	// Audit sinks: the database first, then Kafka when configured.
	sinks := []hipaa.AuditSink{st.audit}
	if len(cfg.KafkaBrokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		sinks = append(sinks, pub)
		a.closers = append(a.closers, pub.Close)
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaAuditTopic).Msg("audit fan-out to kafka enabled")
	}
	recorder := hipaa.NewRecorder(logger, sinks...)

	archive, err := openArchive(ctx, cfg, vault, logger)
	if err != nil {
		return nil, fmt.Errorf("open upload archive: %w", err)
	}

	userSvc := identity.NewService(st.users, logger)
	recordStore := analysis.NewRecordStore(st.analysis, vault, cfg.StoreTimeout, logger)
	analysisSvc := analysis.NewService(recordStore, ocr.NewTesseract("eng"), archive, recorder, logger)
	nutritionSvc := nutrition.NewService(st.nutrition, logger)
	auditSvc := audit.NewService(st.audit)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	switch cfg.ResolvedAuthMode() {
	case "development":
		logger.Warn().Msg("development auth: requests without a token act as the local dev user")
		e.Use(auth.DevAuthMiddleware())
		if _, _, err := userSvc.Register(ctx, auth.DevIdentity()); err != nil {
			return nil, fmt.Errorf("seed dev user: %w", err)
		}
	default:
		jwtCfg := auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}
		if cfg.AuthSigningKey != "" {
			jwtCfg.SigningKey, _ = hex.DecodeString(cfg.AuthSigningKey)
		}
		e.Use(auth.JWTMiddleware(auth.NewVerifier(jwtCfg)))
	}

	e.GET("/health", healthHandler)
	e.GET("/health/db", db.HealthHandler(st.backend, st.pinger))

	root := e.Group("")
	identity.NewHandler(userSvc).RegisterRoutes(root)
	uploads := middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	analysis.NewHandler(analysisSvc, userSvc, cfg.UploadMaxSize, uploads).RegisterRoutes(root)
	nutrition.NewHandler(nutritionSvc, userSvc).RegisterRoutes(root)

	apiV1 := e.Group("/api/v1")
	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)

	a.echo = e
	return a, nil
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer st.close()
	logger.Info().Str("backend", st.backend).Msg("connected to store")

	if st.backend == db.BackendSQLite {
		n, err := st.migrator.Up(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite migration failed")
		}
		logger.Info().Int("applied", n).Msg("sqlite schema up to date")
	}

	vault, err := hipaa.OpenVault(cfg.EncryptionKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize vault")
	}

	a, err := newApp(ctx, cfg, st, vault, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	defer a.close(logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.echo.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
