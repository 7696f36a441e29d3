package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carehub/carehub/internal/config"
	"github.com/carehub/carehub/internal/domain/cashcount"
	"github.com/carehub/carehub/internal/domain/incident"
	"github.com/carehub/carehub/internal/domain/resident"
	"github.com/carehub/carehub/internal/platform/appctx"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/backend"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/middleware"
	"github.com/carehub/carehub/internal/platform/validate"
	"github.com/carehub/carehub/migrations"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carehub-server",
		Short: "Group home care dashboard API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(financeCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printStatus(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(ctx context.Context, m *db.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for migrations")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, db.NewMigrator(pool, migrations.FS))
}

func financeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Cash reconciliation tools",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the finance rows of a group home to an .xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, _ := cmd.Flags().GetInt64("group-home")
			staff, _ := cmd.Flags().GetInt64("staff")
			out, _ := cmd.Flags().GetString("out")
			if home <= 0 {
				return fmt.Errorf("--group-home is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := context.Background()
			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			svc := cashcount.NewService(st.cash, st.tx, cfg.CashMismatchToleranceCents, logger)
			data, err := svc.ExportWorkbook(ctx, home, staff, time.Now())
			if err != nil {
				return fmt.Errorf("export finance rows: %w", err)
			}
			if out == "" {
				out = fmt.Sprintf("finance-%d-%s.xlsx", home, cashcount.Today(time.Now()))
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", out)
			return nil
		},
	}
	exportCmd.Flags().Int64("group-home", 0, "Group home to export")
	exportCmd.Flags().Int64("staff", 0, "Staff member the missing-count rows are addressed to")
	exportCmd.Flags().String("out", "", "Output path (default finance-<home>-<date>.xlsx)")
	cmd.AddCommand(exportCmd)

	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// stores holds the record repositories for whichever source is configured.
type stores struct {
	cash      cashcount.Repository
	incidents incident.Repository
	residents resident.Repository
	tx        db.TxRunner
	ping      db.Pinger
	stats     db.StatsFunc
	close     func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if cfg.UsesBackend() {
		api := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout, logger)
		logger.Info().Str("backend", cfg.BackendURL).Msg("using upstream records service")
		return &stores{
			cash:      cashcount.NewRepoHTTP(api),
			incidents: incident.NewRepoHTTP(api),
			residents: resident.NewRepoHTTP(api),
			tx:        db.NoTx,
			ping:      api,
			close:     func() {},
		}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Msg("connected to database")
	return &stores{
		cash:      cashcount.NewRepoPG(pool),
		incidents: incident.NewRepoPG(pool),
		residents: resident.NewRepoPG(pool),
		tx:        db.PoolTx(pool),
		ping:      pool,
		stats:     db.PoolStatsFunc(pool),
		close:     pool.Close,
	}, nil
}

func openKV(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (appctx.KV, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, sessions are kept in memory")
		return appctx.NewMemoryKV(), func() {}, nil
	}
	rc, err := appctx.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return appctx.NewRedisKV(rc), func() { _ = rc.Close() }, nil
}

func newServer(cfg *config.Config, st *stores, kv appctx.KV, logger zerolog.Logger) (*echo.Echo, error) {
	policy, err := incident.PolicyByName(cfg.IncidentTransitionPolicy)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("4MB"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", appctx.GroupHomeHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/ready", db.HealthHandler(st.ping, st.stats))

	var authn echo.MiddlewareFunc
	if cfg.IsDev() {
		authn = auth.DevAuthMiddleware()
	} else {
		authn = auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			JWKSURL:    cfg.AuthJWKSURL,
			SigningKey: []byte(cfg.AuthSigningKey),
		})
	}

	store := appctx.NewStore(kv, cfg.SessionTTL)
	apiV1 := e.Group("/api/v1", authn,
		middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			BurstSize:         cfg.RateLimitBurst,
		}),
		appctx.Middleware(store, logger))

	residentSvc := resident.NewService(st.residents, logger)
	resident.NewHandler(residentSvc, logger).RegisterRoutes(apiV1)
	appctx.NewHandler(store, residentSvc, logger).RegisterRoutes(apiV1)

	cashSvc := cashcount.NewService(st.cash, st.tx, cfg.CashMismatchToleranceCents, logger)
	cashcount.NewHandler(cashSvc, logger).RegisterRoutes(apiV1)

	incidentSvc := incident.NewService(st.incidents, residentSvc, policy, logger)
	incident.NewHandler(incidentSvc, logger).RegisterRoutes(apiV1)

	return e, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open record stores")
	}
	defer st.close()

	kv, closeKV, err := openKV(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer closeKV()

	e, err := newServer(cfg, st, kv, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("policy", cfg.IncidentTransitionPolicy).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
