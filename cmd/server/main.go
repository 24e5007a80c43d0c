package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/teresa-solution/housezen-portal/internal/auth"
	"github.com/teresa-solution/housezen-portal/internal/config"
	"github.com/teresa-solution/housezen-portal/internal/crypto"
	"github.com/teresa-solution/housezen-portal/internal/landlordapp"
	"github.com/teresa-solution/housezen-portal/internal/monitoring"
	"github.com/teresa-solution/housezen-portal/internal/ops"
	"github.com/teresa-solution/housezen-portal/internal/storage"
	"github.com/teresa-solution/housezen-portal/internal/store"
	"github.com/teresa-solution/housezen-portal/internal/tenantapp"
	"github.com/teresa-solution/housezen-portal/internal/view"
	"github.com/teresa-solution/housezen-portal/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "housezen",
		Short:         "Housezen tenant and landlord portals",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level: %w", err)
			}
			zerolog.SetGlobalLevel(level)
			return nil
		},
	}

	// Flags default to the environment and override it when set.
	flags := root.PersistentFlags()
	flags.StringVar(&logLevel, "log-level", "info", "Log level")
	flags.IntVar(&cfg.HTTPPort, "port", cfg.HTTPPort, "Port of the web app")
	flags.IntVar(&cfg.OpsPort, "ops-port", cfg.OpsPort, "Port for health checks and metrics")
	flags.IntVar(&cfg.GRPCPort, "grpc-port", cfg.GRPCPort, "Port of the gRPC health service")
	flags.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "Database host")
	flags.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "Database port")
	flags.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "Database user")
	flags.StringVar(&cfg.DBPass, "db-pass", cfg.DBPass, "Database password")
	flags.StringVar(&cfg.DBName, "db-name", cfg.DBName, "Database name")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	flags.StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS server for auth events; in-process when empty")
	flags.StringVar(&cfg.PublicURL, "public-url", cfg.PublicURL, "Public base URL of the app")

	for _, app := range []string{config.AppTenant, config.AppLandlord} {
		root.AddCommand(&cobra.Command{
			Use:   app,
			Short: fmt.Sprintf("Serve the %s app", app),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg.App = app
				return run(cmd.Context(), cfg)
			},
		})
	}
	return root
}

func run(parent context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	monitoring.InitMetrics()

	db, err := store.New(ctx, cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	var sealer *crypto.Sealer
	if cfg.SnapshotKey != "" {
		if sealer, err = crypto.NewSealerFromHex(cfg.SnapshotKey); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("HOUSEZEN_SNAPSHOT_KEY not set, local snapshots are stored unsealed")
	}

	checks := map[string]ops.Check{
		"postgres": db.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}

	var bus auth.Bus = auth.NewLocalBus()
	if cfg.NATSURL != "" {
		natsBus, err := auth.NewNATSBus(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer natsBus.Close()
		bus = natsBus
		checks["nats"] = natsBus.Check
	}

	provider, err := auth.NewOIDCProvider(ctx, auth.OIDCConfig{
		IssuerURL:    cfg.OIDCIssuer,
		ClientID:     cfg.OIDCClientID,
		ClientSecret: cfg.OIDCClientSecret,
		RedirectURL:  cfg.RedirectURL(),
	})
	if err != nil {
		return err
	}
	controller := auth.NewController(cfg.App, provider, auth.NewRedisSessions(rdb, cfg.Namespace()), bus)

	renderer, err := view.New()
	if err != nil {
		return err
	}
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	server, err := web.New(web.Options{
		App:          cfg.App,
		Controller:   controller,
		Local:        &storage.RedisProvider{Client: rdb, Prefix: cfg.Namespace(), Sealer: sealer},
		Renderer:     renderer,
		ResetDelay:   cfg.ResetDelay,
		SecureCookie: cfg.SecureCookie,
	})
	if err != nil {
		return err
	}
	defer server.Close()

	switch cfg.App {
	case config.AppTenant:
		tenantapp.Register(server, db)
	case config.AppLandlord:
		landlordapp.Register(server, db)
	}

	opsServer := ops.New("housezen-"+cfg.App, cfg.OpsPort, cfg.GRPCPort, checks)
	if err := opsServer.Start(ctx); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           server.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Msgf("Starting Housezen %s app on port %d", cfg.App, cfg.HTTPPort)
	err = serve(ctx, httpServer)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	opsServer.Shutdown(shutdownCtx)

	log.Info().Msg("Server exiting")
	return err
}

// serve runs srv until ctx is done or the listener fails, then shuts it down.
// A listener failure is returned.
func serve(ctx context.Context, srv *http.Server) error {
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
		log.Error().Err(runErr).Msg("HTTP server error")
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop HTTP server")
	}
	if runErr != nil {
		return fmt.Errorf("serve http: %w", runErr)
	}
	return nil
}
