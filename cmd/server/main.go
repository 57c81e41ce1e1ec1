package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/config"
	apphttp "blog-server/internal/http"
	"blog-server/internal/repository/sqlite"
	"blog-server/internal/service"
	"blog-server/internal/storage"
	"blog-server/web"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	postRepo := sqlite.NewPostRepository(db)
	sessionRepo := sqlite.NewSessionRepository(db)

	// users first, posts reference them
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := postRepo.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}
	if err := sessionRepo.Init(ctx); err != nil {
		logger.Fatalf("init session repository: %v", err)
	}

	postService := service.NewPostService(postRepo, userRepo)
	userService := service.NewUserService(userRepo)
	sessionService := service.NewSessionService(sessionRepo, time.Duration(cfg.Session.TTLHours)*time.Hour)

	go sweepSessions(ctx, sessionService, logger)

	storageSvc := buildStorage(ctx, cfg, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	templates, err := web.Templates()
	if err != nil {
		logger.Fatalf("parse templates: %v", err)
	}
	router.SetHTMLTemplate(templates)

	handler := apphttp.NewHandler(
		postService,
		userService,
		sessionService,
		storageSvc,
		storage.UploadOptions{Bucket: cfg.Storage.Bucket, KeyPrefix: cfg.Storage.KeyPrefix},
		logger,
		cfg.App.Environment,
		cfg.Session.Secure,
	)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: apphttp.MethodOverride(router),
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// sweepSessions drops expired sessions once at startup and then hourly.
func sweepSessions(ctx context.Context, sessions service.SessionService, logger *logrus.Logger) {
	if err := sessions.PurgeExpired(ctx); err != nil {
		logger.Warnf("purge expired sessions: %v", err)
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.PurgeExpired(ctx); err != nil {
				logger.Warnf("purge expired sessions: %v", err)
			}
		}
	}
}

// buildStorage sets up the avatar object store. Uploads are disabled when
// no bucket is configured.
func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) storage.Service {
	if cfg.Storage.Bucket == "" {
		logger.Info("no storage bucket configured, avatar uploads disabled")
		return nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Warnf("load aws config: %v, avatar uploads disabled", err)
		return nil
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Region, cfg.Storage.Endpoint)
}
