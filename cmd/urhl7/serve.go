package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/URMC/urHL7/internal/config"
	"github.com/URMC/urHL7/internal/domain/archive"
	"github.com/URMC/urHL7/internal/platform/auth"
	"github.com/URMC/urHL7/internal/platform/db"
	"github.com/URMC/urHL7/internal/platform/hl7v2"
	"github.com/URMC/urHL7/internal/platform/metrics"
	"github.com/URMC/urHL7/internal/platform/middleware"
	"github.com/URMC/urHL7/internal/platform/rules"
	"github.com/URMC/urHL7/internal/platform/spool"
)

const version = "0.1.0"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HL7 v2 API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, newLogger(cfg, os.Stdout), spoolReader(cmd, cfg))
		},
	}
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger, reader spool.Reader) error {
	if cfg.IsDev() {
		logger.Warn().Msg("running in development mode: authentication is disabled")
	}

	ruleSet, err := loadRules(cfg.RulesFile)
	if err != nil {
		return err
	}

	// Database is optional; without it the archive is not served.
	var (
		pool       *pgxpool.Pool
		archiveSvc *archive.Service
	)
	if cfg.ArchiveEnabled() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
		archiveSvc = archive.NewService(archive.NewRepoPG(pool), logger)
	} else {
		logger.Info().Msg("DATABASE_URL not set, archive disabled")
	}

	e := newServer(cfg, logger, pool, archiveSvc, ruleSet)

	if cfg.SpoolDir != "" {
		p := &pipeline{reader: reader, rules: ruleSet, archive: archiveSvc, outDir: cfg.SpoolOutDir, log: logger}
		w, err := p.watch(ctx, cfg.SpoolDir, true)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires middleware and routes. pool and archiveSvc may be nil.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, archiveSvc *archive.Service, ruleSet rules.Set) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.JWTIssuer,
			Audience:   cfg.JWTAudience,
			SigningKey: []byte(cfg.JWTSigningKey),
		}))
	}
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/metrics", metrics.EchoHandler())
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	apiV1 := e.Group("/api/v1")
	if cfg.RateLimitRPS > 0 {
		apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}))
	}

	hl7v2.NewHandler().RegisterRoutes(apiV1)
	if len(ruleSet) > 0 {
		rules.NewHandler(ruleSet).RegisterRoutes(apiV1)
	}
	if archiveSvc != nil {
		archive.NewHandler(archiveSvc).RegisterRoutes(apiV1)
	}
	return e
}

func loadRules(path string) (rules.Set, error) {
	if path == "" {
		return nil, nil
	}
	return rules.LoadFile(path)
}
