package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/prosblk/paychangu-service/internal/adapters/memory"
	"github.com/prosblk/paychangu-service/internal/adapters/notify"
	"github.com/prosblk/paychangu-service/internal/adapters/paychangu"
	"github.com/prosblk/paychangu-service/internal/adapters/postgres"
	"github.com/prosblk/paychangu-service/internal/adapters/secrets"
	"github.com/prosblk/paychangu-service/internal/config"
	"github.com/prosblk/paychangu-service/internal/domain/ports"
	callbackHandler "github.com/prosblk/paychangu-service/internal/handlers/callback"
	checkoutHandler "github.com/prosblk/paychangu-service/internal/handlers/checkout"
	webhookHandler "github.com/prosblk/paychangu-service/internal/handlers/webhook"
	appMiddleware "github.com/prosblk/paychangu-service/internal/middleware"
	paymentService "github.com/prosblk/paychangu-service/internal/services/payment"
	pkghttp "github.com/prosblk/paychangu-service/pkg/http"
	"github.com/prosblk/paychangu-service/pkg/logging"
	pkgMiddleware "github.com/prosblk/paychangu-service/pkg/middleware"
	"github.com/prosblk/paychangu-service/pkg/observability"
)

func main() {
	_ = godotenv.Load()

	zapLogger := initLogger()
	defer zapLogger.Sync()
	logger := logging.NewZapLogger(zapLogger)

	zapLogger.Info("Starting paychangu service",
		zap.String("version", "0.1.0"),
	)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx := context.Background()

	// Ledger backend
	var ledger ports.Ledger
	var dbPool *pgxpool.Pool
	switch cfg.Database.LedgerBackend {
	case "memory":
		ledger = memory.NewLedger()
		zapLogger.Info("Using in-memory ledger")
	default:
		dbPool, err = initDatabase(ctx, cfg)
		if err != nil {
			zapLogger.Fatal("Failed to initialize database", zap.Error(err))
		}
		defer dbPool.Close()

		executor := postgres.NewDBExecutor(dbPool)
		ledger = postgres.NewLedgerRepository(executor)
		zapLogger.Info("Database connection established",
			zap.String("database", cfg.Database.Database),
		)
	}

	// Gateway credentials, possibly resolved through a secrets backend
	secretKey, webhookSecret, err := resolveSecrets(ctx, cfg, logger)
	if err != nil {
		zapLogger.Fatal("Failed to resolve gateway secrets", zap.Error(err))
	}

	// PayChangu client over a pooled HTTP client tuned for a single host
	gatewayTimeout := time.Duration(cfg.Gateway.Timeout) * time.Second
	httpClient := pkghttp.NewHTTPClient(pkghttp.GatewayClientConfig(), gatewayTimeout)
	gateway := paychangu.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.PublicKey, secretKey, httpClient, logger)

	// Services
	actions := notify.NewLoggingActions(logger)
	processor := paymentService.NewProcessor(ledger, gateway, actions, logger)
	initiation := paymentService.NewInitiationService(gateway, ledger, logger, cfg.Gateway.CallbackURL, cfg.Gateway.ReturnURL)

	// Handlers and middleware
	checkoutHdlr := checkoutHandler.NewHandler(initiation, logger)
	callbackHdlr := callbackHandler.NewHandler(processor, logger)
	webhookHdlr := webhookHandler.NewHandler(processor, logger)

	signatureAuth := appMiddleware.NewSignatureAuth(webhookSecret, logger)
	securityHeaders := appMiddleware.NewSecurityHeaders(cfg.Logger.Development)
	rateLimiter := pkgMiddleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Shutdown()

	mux := http.NewServeMux()
	mux.HandleFunc("/", rateLimiter.HTTPHandlerFunc(
		observability.InstrumentHandlerFunc("/", checkoutHdlr.HandleForm)))
	mux.HandleFunc("/pay", rateLimiter.HTTPHandlerFunc(
		observability.InstrumentHandlerFunc("/pay", checkoutHdlr.HandlePay)))
	mux.HandleFunc("/callback", rateLimiter.HTTPHandlerFunc(
		observability.InstrumentHandlerFunc("/callback", callbackHdlr.Handle)))
	mux.HandleFunc("/failed", rateLimiter.HTTPHandlerFunc(
		observability.InstrumentHandlerFunc("/failed", callbackHdlr.HandleFailed)))

	// Webhook is authenticated, not rate limited: the gateway retries rejects.
	mux.HandleFunc("/webhook", observability.InstrumentHandlerFunc("/webhook",
		signatureAuth.Middleware(webhookHdlr.Handle)))

	healthChecker := observability.NewHealthChecker(dbPool)
	mux.HandleFunc("/healthz", healthChecker.HealthHandler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      securityHeaders.Middleware(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Metrics and health on a separate port
	metricsServer := observability.StartMetricsServer(
		strconv.Itoa(cfg.Server.MetricsPort),
		healthChecker,
		func(err error) { zapLogger.Error("Metrics server error", zap.Error(err)) },
	)

	go func() {
		zapLogger.Info("HTTP server listening",
			zap.String("address", httpServer.Addr),
			zap.Int("metrics_port", cfg.Server.MetricsPort),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := observability.ShutdownMetricsServer(metricsServer); err != nil {
		zapLogger.Error("Metrics server shutdown error", zap.Error(err))
	}

	zapLogger.Info("Servers stopped")
}

// initLogger initializes the logger
func initLogger() *zap.Logger {
	env := os.Getenv("ENVIRONMENT")

	if env == "production" {
		zapCfg := zap.NewProductionConfig()
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		logger, _ := zapCfg.Build()
		return logger
	}

	logger, _ := zap.NewDevelopment()
	return logger
}

// initDatabase initializes the PostgreSQL connection pool
func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	pool, err := pgxpool.NewWithConfig(connCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// resolveSecrets returns the gateway secret key and webhook secret, fetching
// them from the configured secrets backend when one is enabled.
func resolveSecrets(ctx context.Context, cfg *config.Config, logger ports.Logger) (string, string, error) {
	var manager ports.SecretManager
	var err error

	switch cfg.Secrets.Backend {
	case "env":
		return cfg.Gateway.SecretKey, cfg.Gateway.WebhookSecret, nil

	case "local":
		manager = secrets.NewLocalSecretManager(cfg.Secrets.LocalPath, logger)

	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion)
		awsCfg.Endpoint = cfg.Secrets.AWSEndpoint
		manager, err = secrets.NewAWSSecretsManagerAdapter(ctx, awsCfg, logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress, cfg.Secrets.VaultToken)
		vaultCfg.MountPath = cfg.Secrets.VaultMount
		manager, err = secrets.NewVaultAdapter(vaultCfg, logger)

	default:
		return "", "", fmt.Errorf("unknown secrets backend %q", cfg.Secrets.Backend)
	}
	if err != nil {
		return "", "", err
	}

	secretKey, err := manager.GetSecret(ctx, cfg.Secrets.SecretKeyPath)
	if err != nil {
		return "", "", fmt.Errorf("resolve gateway secret key: %w", err)
	}
	webhookSecret, err := manager.GetSecret(ctx, cfg.Secrets.WebhookSecretPath)
	if err != nil {
		return "", "", fmt.Errorf("resolve webhook secret: %w", err)
	}

	return secretKey.Value, webhookSecret.Value, nil
}
