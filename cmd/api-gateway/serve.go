package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/edumarket-api/internal/handler"
	"github.com/noah-isme/edumarket-api/internal/repository"
	"github.com/noah-isme/edumarket-api/internal/router"
	"github.com/noah-isme/edumarket-api/internal/service"
	"github.com/noah-isme/edumarket-api/pkg/cache"
	"github.com/noah-isme/edumarket-api/pkg/config"
	"github.com/noah-isme/edumarket-api/pkg/database"
	"github.com/noah-isme/edumarket-api/pkg/jobs"
	"github.com/noah-isme/edumarket-api/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(rt *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, rt.cfg, rt.logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	cacheEnabled := cfg.Cache.Enabled
	redisClient, err := cache.NewRedis(ctx, cfg.Redis, cacheEnabled)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		cacheEnabled = false
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cacheSvc := service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metrics, cfg.Cache.DashboardTTL, logr, cacheEnabled && redisClient != nil)

	store, publicDirs, err := openStore(ctx, cfg.Storage, logr)
	if err != nil {
		return err
	}

	cleaner := service.NewStorageCleaner(store, metrics, logr, cfg.Jobs.Retries)
	cleanupQueue := jobs.NewQueue("storage-cleanup", cleaner.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		MaxRetries: cfg.Jobs.Retries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	cleanupQueue.Start(context.WithoutCancel(ctx))
	defer cleanupQueue.Stop()

	validate := validator.New()
	auditRepo := repository.NewAuditRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	listingRepo := repository.NewListingRepository(db)

	authSvc := service.NewAuthService(profileRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	profileSvc := service.NewProfileService(profileRepo, auditRepo, cacheSvc, validate, logr)
	categorySvc := service.NewCategoryService(repository.NewCategoryRepository(db), auditRepo, cacheSvc, cfg.Cache.CategoriesTTL, validate, logr)
	listingSvc := service.NewListingService(service.ListingServiceParams{
		Repo:      listingRepo,
		Store:     store,
		Cleanup:   cleanupQueue,
		Audit:     auditRepo,
		Cache:     cacheSvc,
		Metrics:   metrics,
		Validator: validate,
		Logger:    logr,
		Config: service.ListingServiceConfig{
			FilesBucket:     cfg.Storage.FilesBucket,
			PreviewsBucket:  cfg.Storage.PreviewsBucket,
			MaxFileSize:     cfg.Storage.MaxFileSizeBytes,
			MaxPreviews:     cfg.Storage.MaxPreviewImages,
			AllowedMIMEs:    cfg.Storage.AllowedMIMEs,
			AutoApprove:     cfg.Listings.AutoApprove,
			DefaultLanguage: cfg.Listings.DefaultLanguage,
		},
	})
	signer := storage.NewSignedURLSigner(cfg.Storage.SignedURLSecret, cfg.Storage.SignedURLTTL)
	downloadSvc := service.NewDownloadService(listingRepo, repository.NewDownloadRepository(db), store, signer, auditRepo, cacheSvc, metrics, logr, service.DownloadServiceConfig{
		FilesBucket: cfg.Storage.FilesBucket,
		APIPrefix:   cfg.APIPrefix,
	})
	reportSvc := service.NewReportService(repository.NewReportRepository(db), auditRepo, cacheSvc, validate, logr)
	dashboardSvc := service.NewDashboardService(repository.NewDashboardRepository(db), cacheSvc, cfg.Cache.DashboardTTL, logr)

	maxUpload := cfg.Storage.MaxFileSizeBytes + int64(cfg.Storage.MaxPreviewImages)*service.DefaultPreviewBytes
	engine := router.New(router.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
		Audit:          auditRepo,
		PublicDirs:     publicDirs,
	}, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Profile:   handler.NewProfileHandler(profileSvc),
		Category:  handler.NewCategoryHandler(categorySvc),
		Listing:   handler.NewListingHandler(listingSvc, maxUpload),
		Download:  handler.NewDownloadHandler(downloadSvc),
		Report:    handler.NewReportHandler(reportSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc),
		Metrics:   handler.NewMetricsHandler(metrics, db),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("storage", cfg.Storage.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore selects the object store. The local driver also returns the
// preview directory so the router can serve it publicly.
func openStore(ctx context.Context, cfg config.StorageConfig, logr *zap.Logger) (storage.ObjectStore, map[string]string, error) {
	switch cfg.Driver {
	case config.StorageDriverMinio:
		store, err := storage.NewMinioStore(ctx, cfg, logr)
		if err != nil {
			return nil, nil, fmt.Errorf("connect object storage: %w", err)
		}
		return store, nil, nil
	case config.StorageDriverLocal, "":
		store, err := storage.NewLocalStore(cfg.LocalDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open local storage: %w", err)
		}
		return store, map[string]string{"/storage/" + cfg.PreviewsBucket: store.Root(cfg.PreviewsBucket)}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
