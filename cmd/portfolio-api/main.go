package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-portfolio-api/api/swagger"
	"github.com/noah-isme/student-portfolio-api/internal/datacache"
	"github.com/noah-isme/student-portfolio-api/internal/handler"
	"github.com/noah-isme/student-portfolio-api/internal/middleware"
	"github.com/noah-isme/student-portfolio-api/internal/realtime"
	"github.com/noah-isme/student-portfolio-api/internal/repository"
	"github.com/noah-isme/student-portfolio-api/internal/service"
	"github.com/noah-isme/student-portfolio-api/pkg/cache"
	"github.com/noah-isme/student-portfolio-api/pkg/config"
	"github.com/noah-isme/student-portfolio-api/pkg/database"
	"github.com/noah-isme/student-portfolio-api/pkg/logger"
	"github.com/noah-isme/student-portfolio-api/pkg/middleware/bodylimit"
	corsmiddleware "github.com/noah-isme/student-portfolio-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-portfolio-api/pkg/middleware/requestid"
	"github.com/noah-isme/student-portfolio-api/pkg/storage"
)

// @title Student Portfolio API
// @version 1.0.0
// @description Student work submissions, moderation and the public gallery
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without it", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close() //nolint:errcheck
		}
	}

	metrics := service.NewMetricsService()

	hub := realtime.NewHub(cfg.Realtime.SubscriberBuffer, logr)
	defer hub.Close()
	publisher := startRealtime(ctx, cfg, hub, db, redisClient, logr)

	submissionRepo := repository.NewSubmissionRepository(db)
	workRepo := repository.NewApprovedWorkRepository(db)
	logRepo := repository.NewModerationLogRepository(db)
	visitorRepo := repository.NewVisitorRepository(db)
	accessRequestRepo := repository.NewAccessRequestRepository(db)

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, cfg.Cache.Enabled)
	go cacheSvc.WatchWorks(ctx, hub)

	validate := validator.New()
	submissionSvc := service.NewSubmissionService(submissionRepo, workRepo, publisher, cacheSvc, validate, metrics, logr, service.SubmissionServiceConfig{
		SentinelName: cfg.Portal.SentinelName,
		MaxFiles:     cfg.Portal.MaxFiles,
	})
	moderationSvc := service.NewModerationService(submissionRepo, workRepo, logRepo, publisher, cacheSvc, metrics, logr)

	dashboard := datacache.New(submissionSvc, moderationSvc, hub, logr)
	dashboard.Mount(ctx)
	defer dashboard.Unmount()

	authSvc, err := service.NewAuthService(logRepo, dashboard, validate, logr, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		Issuer:              cfg.JWT.Issuer,
		DeveloperPassphrase: cfg.Portal.DeveloperPassphrase,
		TeacherPassphrase:   cfg.Portal.TeacherPassphrase,
	})
	if err != nil {
		logr.Fatal("failed to init auth", zap.Error(err))
	}
	if cfg.Portal.DeveloperPassphrase == "" {
		logr.Warn("developer passphrase not set, moderation login disabled")
	}

	downloadSvc := service.NewDownloadService(submissionRepo, workRepo,
		storage.NewSignedURLSigner(cfg.Downloads.SignedURLSecret, cfg.Downloads.SignedURLTTL), logr,
		service.DownloadConfig{PublicBaseURL: cfg.Portal.PublicBaseURL, APIPrefix: cfg.APIPrefix})
	visitorSvc := service.NewVisitorService(visitorRepo, validate, logr)
	accessRequestSvc := service.NewAccessRequestService(accessRequestRepo, logRepo, validate, metrics, logr)
	exportSvc := service.NewExportService(workRepo, logRepo, service.ExportConfig{SentinelName: cfg.Portal.SentinelName}, logr)

	moderationHandler := handler.NewModerationHandler(moderationSvc, nil, exportSvc)
	if cfg.Purge.Enabled {
		archive, err := newArchiveStore(cfg.Archive)
		if err != nil {
			logr.Fatal("failed to init archive storage", zap.String("driver", cfg.Archive.Driver), zap.Error(err))
		}
		purgeSvc := service.NewPurgeService(workRepo, archive, logRepo, publisher, metrics, logr, service.PurgeConfig{
			Retention: cfg.Purge.Retention,
			BatchSize: cfg.Purge.BatchSize,
		})
		worker := service.NewPurgeWorker(purgeSvc, service.PurgeWorkerConfig{
			Interval:   cfg.Purge.Interval,
			MaxRetries: cfg.Purge.WorkerRetries,
		}, logr)
		worker.Start(ctx)
		defer worker.Stop()
		moderationHandler = handler.NewModerationHandler(moderationSvc, worker, exportSvc)
	}

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(bodylimit.New(cfg.HTTP.MaxBodyBytes))
	r.Use(middleware.Metrics(metrics))

	handler.Register(r, handler.RouterConfig{
		APIPrefix:      cfg.APIPrefix,
		Tokens:         authSvc,
		MetricsEnabled: cfg.Metrics.Enabled,
	}, handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc),
		Submissions:    handler.NewSubmissionHandler(submissionSvc, moderationSvc, downloadSvc),
		Works:          handler.NewWorkHandler(submissionSvc, moderationSvc, downloadSvc),
		Changes:        handler.NewChangesHandler(hub, metrics, 0),
		Visitors:       handler.NewVisitorHandler(visitorSvc),
		AccessRequests: handler.NewAccessRequestHandler(accessRequestSvc),
		Dashboard:      handler.NewDashboardHandler(dashboard, downloadSvc),
		Moderation:     moderationHandler,
		Metrics:        handler.NewMetricsHandler(metrics.Handler(), checks),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// Change streams end with the process context.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// startRealtime picks the change fan-out for this instance. The hub always
// delivers locally; a bridge additionally relays events between instances.
func startRealtime(ctx context.Context, cfg *config.Config, hub *realtime.Hub, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) realtime.Publisher {
	var bridge realtime.Bridge
	switch cfg.Realtime.Driver {
	case config.RealtimeDriverRedis:
		if redisClient == nil {
			logr.Warn("redis realtime driver needs redis, using in-process delivery")
			return hub
		}
		bridge = realtime.NewRedisBridge(redisClient, cfg.Realtime.Channel, hub, logr)
	case config.RealtimeDriverPostgres:
		bridge = realtime.NewPostgresBridge(db, database.DSN(cfg.Database), cfg.Realtime.Channel, hub, logr)
	default:
		return hub
	}

	go func() {
		if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("realtime bridge stopped", zap.String("driver", cfg.Realtime.Driver), zap.Error(err))
		}
	}()
	logr.Info("realtime bridge started", zap.String("driver", cfg.Realtime.Driver), zap.String("channel", cfg.Realtime.Channel))
	return bridge
}

func newArchiveStore(cfg config.ArchiveConfig) (storage.ObjectStore, error) {
	if cfg.Driver == config.ArchiveDriverS3 {
		s3, err := storage.NewS3Storage(cfg.S3)
		if err != nil {
			return nil, err
		}
		return s3, nil
	}
	local, err := storage.NewLocalStorage(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return local, nil
}
