// Package main initializes and starts the TalentKeeper HTTP server,
// setting up configuration, logging, storage, the remote catalog, the image
// cache, the access gate, the Patreon OAuth flow and the handlers.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/TalentKeeper/internal/access"
	"github.com/atinyakov/TalentKeeper/internal/config"
	"github.com/atinyakov/TalentKeeper/internal/db"
	"github.com/atinyakov/TalentKeeper/internal/httpclient"
	"github.com/atinyakov/TalentKeeper/internal/imagecache"
	"github.com/atinyakov/TalentKeeper/internal/logger"
	"github.com/atinyakov/TalentKeeper/internal/patreon"
	"github.com/atinyakov/TalentKeeper/internal/remote"
	"github.com/atinyakov/TalentKeeper/internal/repository"
	"github.com/atinyakov/TalentKeeper/internal/server/handler/http"
	"github.com/atinyakov/TalentKeeper/internal/service"
	"github.com/atinyakov/TalentKeeper/internal/thumbnail"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	shutdownTimeout = 15 * time.Second
	// authRetention is how long expired OAuth sessions are kept.
	authRetention = 30 * 24 * time.Hour
)

func main() {
	// Parse .env, command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel, options.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, options *config.Options, zapLogger *zap.Logger) error {
	dataDir, err := filepath.Abs(options.DataDir)
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// OAuth sessions live in PostgreSQL when a DSN is given, else in a file.
	var tokens patreon.TokenStore = repository.NewFileAuthRepository(filepath.Join(dataDir, ".patreon_auth.json"))
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("cannot init database: %w", err)
		}
		defer func(d *sql.DB) { _ = d.Close() }(postgresDB)

		db.StartExpiredAuthCleaner(ctx, postgresDB, time.Hour, authRetention, zapLogger)
		tokens = repository.NewPostgresAuthRepository(postgresDB)
		zapLogger.Info("using postgres session store")
	}

	// Outbound clients. The per-call budgets are set by each component.
	client := httpclient.New(&httpclient.Config{UserAgent: "Morpheus-TalentKeeper"})

	source, err := catalogSource(options, client)
	if err != nil {
		return err
	}
	fetcher := remote.NewFetcher(source,
		repository.NewFileSnapshotRepository(filepath.Join(dataDir, ".remote_catalog_cache.json")),
		remote.WithLogger(zapLogger),
	)

	images, err := imagecache.New(filepath.Join(dataDir, "cache", "remote_images"), client,
		imagecache.WithLogger(zapLogger),
	)
	if err != nil {
		return fmt.Errorf("init image cache: %w", err)
	}

	gate := access.NewGate(client, access.Config{
		FunctionsURL: options.FunctionsURL(),
		MinCents:     options.MinTierCents,
		Creators:     options.Creators,
	}, zapLogger)

	// Business-logic services.
	talentService := service.NewTalentService(
		service.Config{DataDir: dataDir, CatalogBaseURL: options.CatalogBaseURL, RoutePrefix: service.DefaultRoutePrefix},
		repository.NewFileCatalogRepository(),
		fetcher,
		images,
		gate,
		thumbnail.NewGenerator(),
		service.WithLogger(zapLogger),
	)
	uiStateService := service.NewUIStateService(repository.NewUIStateFile(filepath.Join(dataDir, "morpheus_ui_state.json")))
	patreonService := patreon.NewService(patreon.Config{
		ClientID:     options.Patreon.ClientID,
		ClientSecret: options.Patreon.ClientSecret,
		RedirectURL:  options.Patreon.RedirectURI,
		CampaignID:   options.Patreon.CampaignID,
		StateSecret:  []byte(options.Patreon.StateSecret),
	}, tokens, client, patreon.WithLogger(zapLogger))
	if !patreonService.Configured() {
		zapLogger.Warn("patreon oauth not configured, /patreon endpoints will fail")
	}

	devices := repository.NewDeviceIDFile(filepath.Join(dataDir, ".device_id"))

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Talents: &http.TalentHandler{TalentService: talentService, Log: zapLogger},
		Devices: &http.DeviceHandler{Devices: devices, UIState: uiStateService, Log: zapLogger},
		Patreon: &http.PatreonHandler{
			PatreonService: patreonService,
			CookiePath:     service.DefaultRoutePrefix + "/patreon",
			Log:            zapLogger,
		},
	}, devices, service.DefaultRoutePrefix, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if options.TLSCert != "" && options.TLSKey != "" {
			server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
			err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
		} else {
			zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
			err = server.ListenAndServe()
		}
		if !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown error", zap.Error(err))
	}
	if err := images.WaitContext(shutdownCtx); err != nil {
		zapLogger.Warn("image prefetch did not drain", zap.Error(err))
	}
	zapLogger.Info("server stopped")
	return nil
}

// catalogSource reads the remote catalog from S3 when an endpoint is
// configured, and over HTTP otherwise.
func catalogSource(options *config.Options, client *httpclient.Client) (remote.Source, error) {
	if options.S3.Endpoint == "" {
		return remote.NewHTTPSource(client, options.CatalogJSONURL), nil
	}
	src, err := remote.NewObjectSource(remote.ObjectConfig{
		Endpoint:  options.S3.Endpoint,
		AccessKey: options.S3.AccessKey,
		SecretKey: options.S3.SecretKey,
		Region:    options.S3.Region,
		Bucket:    options.S3.Bucket,
		Key:       options.S3.Key,
		UseSSL:    options.S3.UseSSL,
		PathStyle: options.S3.PathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("init object source: %w", err)
	}
	return src, nil
}
