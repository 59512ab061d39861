// Package main initializes and starts the inventory API server, setting up
// configuration, logging, database connections, repositories, services,
// the backup scheduler, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/auth"
	"github.com/atinyakov/FieldInventory/internal/backup"
	"github.com/atinyakov/FieldInventory/internal/certgen"
	"github.com/atinyakov/FieldInventory/internal/config"
	"github.com/atinyakov/FieldInventory/internal/db"
	"github.com/atinyakov/FieldInventory/internal/logger"
	"github.com/atinyakov/FieldInventory/internal/metrics"
	"github.com/atinyakov/FieldInventory/internal/middleware"
	"github.com/atinyakov/FieldInventory/internal/repository"
	"github.com/atinyakov/FieldInventory/internal/server/handler/http"
	"github.com/atinyakov/FieldInventory/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, log.Log); err != nil {
		log.Log.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("cannot init database: %w", err)
	}
	defer postgresDB.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	itemRepo := repository.NewPostgresInventoryRepository(postgresDB)
	auditRepo := repository.NewPostgresAuditRepository(postgresDB)
	statsRepo := repository.NewPostgresStatsRepository(postgresDB)
	snapshotRepo := repository.NewPostgresSnapshotRepository(postgresDB)

	secret := options.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		zapLogger.Warn("SECRET_KEY is not set; using a random signing key, sessions end on restart")
	}
	issuer, err := auth.NewIssuer(secret, options.TokenTTL.Duration, userRepo)
	if err != nil {
		return err
	}

	// Business-logic services.
	auditLog := service.NewAuditLogger(auditRepo, zapLogger, m)
	authService, err := service.NewAuthService(userRepo, auth.NewHasher(options.BcryptCost), issuer, auditLog, zapLogger)
	if err != nil {
		return err
	}
	snapshotter := backup.NewSnapshotter(snapshotRepo, backup.Options{
		Dir:        options.BackupDir,
		Prefix:     options.BackupPrefix,
		Retention:  options.BackupRetention,
		AuditLimit: options.BackupAuditLimit,
	}, zapLogger, m)
	inventoryService := service.NewInventoryService(itemRepo, auditLog, zapLogger)
	statsService := service.NewStatsService(statsRepo, auditRepo, snapshotter, zapLogger)
	reportService := service.NewReportService(itemRepo, statsService, auditLog, zapLogger)
	backupService := service.NewBackupService(snapshotter, auditLog, zapLogger)

	created, err := authService.EnsureAdmin(ctx, service.BootstrapAdmin{
		Username: options.AdminUsername,
		Email:    options.AdminEmail,
		FullName: "Administrador INEI",
		Password: options.AdminPassword,
	})
	if err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		zapLogger.Warn("bootstrap admin created; change its password",
			zap.String("username", options.AdminUsername))
	}

	if options.BackupEnabled {
		scheduler := backup.NewScheduler(snapshotter, options.BackupInterval.Duration, zapLogger)
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:      &http.AuthHandler{AuthService: authService, Metrics: m, Log: zapLogger},
		Inventory: &http.InventoryHandler{Inventory: inventoryService, Log: zapLogger},
		Stats:     &http.StatsHandler{Stats: statsService, Log: zapLogger},
		Admin:     &http.AdminHandler{Backups: backupService, Audit: auditLog, Log: zapLogger},
		Reports:   &http.ReportHandler{Reports: reportService, Log: zapLogger},
		System:    &http.SystemHandler{DB: postgresDB, Log: zapLogger},
	}, http.RouterOptions{
		Tokens:       issuer,
		LoginLimiter: middleware.NewRateLimiter(options.LoginRate, options.LoginBurst),
		Metrics:      m,
		MaxBodyBytes: options.MaxBodyBytes,
		Logger:       zapLogger,
	})

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	certFile, keyFile := options.TLSCert, options.TLSKey
	if options.TLSAutoGenerate && !options.TLSEnabled() {
		p, wrote, err := certgen.EnsureDevPair("certs", []string{"localhost", "127.0.0.1"})
		if err != nil {
			return fmt.Errorf("generate dev certificates: %w", err)
		}
		if wrote {
			zapLogger.Warn("development certificates generated", zap.String("ca", p.CACert))
		}
		certFile, keyFile = p.ServerCert, p.ServerKey
	}

	errCh := make(chan error, 1)
	go func() {
		if certFile != "" {
			// Load server TLS certificate and key.
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				errCh <- fmt.Errorf("failed to load server TLS cert/key: %w", err)
				return
			}
			server.TLSConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			errCh <- server.ListenAndServeTLS("", "")
			return
		}
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout.Duration)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}
	return hex.EncodeToString(b), nil
}
