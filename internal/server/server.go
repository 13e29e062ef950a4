package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"anoa.com/attachments/internal/config"
	"anoa.com/attachments/internal/middleware"
	"anoa.com/attachments/internal/scheduler"
	"anoa.com/attachments/pkg/storage"
	"anoa.com/attachments/pkg/token"

	attachmentHttp "anoa.com/attachments/internal/modules/attachment/delivery/http"
	attachmentRepo "anoa.com/attachments/internal/modules/attachment/repository"
	attachmentService "anoa.com/attachments/internal/modules/attachment/service"

	authzService "anoa.com/attachments/internal/modules/authz/service"
	changefeedService "anoa.com/attachments/internal/modules/changefeed/service"

	healthHttp "anoa.com/attachments/internal/modules/health/delivery/http"
	healthService "anoa.com/attachments/internal/modules/health/service"

	searchService "anoa.com/attachments/internal/modules/search/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const actionCreateAttachment = "attachment_create"

type Server struct {
	engine        *gin.Engine
	db            *gorm.DB
	redisClient   *redis.Client
	background    *attachmentService.Background
	attachmentSvc attachmentService.AttachmentService
	scheduler     *scheduler.Scheduler
	runOnStart    bool
	startupRuns   sync.WaitGroup
	logger        *zap.Logger
}

// NewServer wires every module. db is required; redisClient may be nil.
func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger *zap.Logger) *Server {
	verifier := token.NewHMACVerifier(cfg.JWTSecret)
	fileStorage := newFileStore(cfg, logger)
	decider := newDecider(cfg, verifier, logger)
	meiliSvc := newSearchIndex(cfg, logger)

	background := attachmentService.NewBackground(fileStorage, logger)
	changes := changefeedService.NewRedisPublisher(redisClient)

	attachmentRepo := attachmentRepo.NewAttachmentRepository(db)
	attachmentSvc := attachmentService.NewAttachmentService(attachmentRepo, verifier, decider, background, changes, meiliSvc, cfg.OrphanMaxAge, logger)
	attachmentHandler := attachmentHttp.NewAttachmentHandler(attachmentSvc, logger)

	jobs := scheduler.NewScheduler(logger)
	if err := jobs.Register(&orphanSweepJob{service: attachmentSvc, schedule: cfg.OrphanSweepSchedule()}); err != nil {
		logger.Error("Failed to schedule orphan attachment cleanup", zap.Error(err))
	}

	healthHandler := healthHttp.NewHealthHandler(&healthService.HealthChecker{DB: db, Redis: redisClient})

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(logger, "/api/health"))

	api := router.Group("/api")
	api.GET("/health", healthHandler.Check)

	attachments := api.Group("/attachments")
	attachments.Use(middleware.ExtractToken())
	{
		createLimit := middleware.RateLimit(redisClient, verifier, actionCreateAttachment, cfg.RateLimitCreate, logger)
		attachments.POST("", createLimit, attachmentHandler.CreateAttachment)

		// Without an id the pipeline answers with a field error on "id".
		attachments.PATCH("", attachmentHandler.UpdateAttachment)
		attachments.PATCH("/:id", attachmentHandler.UpdateAttachment)
		attachments.DELETE("", attachmentHandler.DeleteAttachment)
		attachments.DELETE("/:id", attachmentHandler.DeleteAttachment)
	}

	return &Server{
		engine:        router,
		db:            db,
		redisClient:   redisClient,
		background:    background,
		attachmentSvc: attachmentSvc,
		scheduler:     jobs,
		runOnStart:    cfg.RunJobsOnStart,
		logger:        logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// StartJobs runs the scheduled jobs with ctx until StopJobs. With
// JOBS_RUN_ON_START every job also runs once right away.
func (s *Server) StartJobs(ctx context.Context) {
	s.scheduler.Start(ctx)
	if !s.runOnStart {
		return
	}

	for _, name := range s.scheduler.Jobs() {
		s.startupRuns.Add(1)
		go func(name string) {
			defer s.startupRuns.Done()
			if err := s.scheduler.RunByName(ctx, name); err != nil {
				s.logger.Warn("Startup job run failed", zap.String("job", name), zap.Error(err))
			}
		}(name)
	}
}

func (s *Server) StopJobs() {
	s.scheduler.Stop()
	s.startupRuns.Wait()
}

// Drain waits for detached side effects (file cleanup, change feed, search
// index) started by earlier requests.
func (s *Server) Drain() {
	s.background.Wait()
}

func newFileStore(cfg *config.Config, logger *zap.Logger) storage.FileStore {
	var (
		fileStorage storage.FileStore
		err         error
	)

	switch strings.ToLower(cfg.StorageDriver) {
	case "s3":
		fileStorage, err = storage.NewS3Storage(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL, logger)
	case "cloudinary":
		fileStorage, err = storage.NewCloudinaryStorage(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	case "", "none":
		logger.Warn("No file storage configured, attachment files will not be deleted")
		return storage.NewNoopStorage()
	default:
		logger.Warn("Unknown STORAGE_DRIVER, attachment files will not be deleted", zap.String("driver", cfg.StorageDriver))
		return storage.NewNoopStorage()
	}

	if err != nil {
		logger.Warn("Failed to initialize file storage, attachment files will not be deleted",
			zap.String("driver", cfg.StorageDriver),
			zap.Error(err),
		)
		return storage.NewNoopStorage()
	}
	return fileStorage
}

func newDecider(cfg *config.Config, verifier token.Verifier, logger *zap.Logger) authzService.Decider {
	if cfg.AuthzURL == "" {
		logger.Info("AUTHZ_URL is empty, using the owner policy")
		return authzService.NewOwnerPolicy(verifier, logger)
	}
	return authzService.NewRemoteDecider(cfg.AuthzURL, &http.Client{Timeout: 5 * time.Second})
}

// newSearchIndex returns nil when no meilisearch host is configured.
func newSearchIndex(cfg *config.Config, logger *zap.Logger) searchService.MeiliSearchService {
	meiliHost := cfg.MeiliSearchHost
	if meiliHost == "" {
		return nil
	}
	if !strings.HasPrefix(meiliHost, "http") {
		meiliHost = "http://" + meiliHost + ":7700"
	}

	meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
	return searchService.NewMeiliSearchService(meiliClient, logger)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		for _, origin := range strings.Split(allowedOrigins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
