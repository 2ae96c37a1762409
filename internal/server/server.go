package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"merchbase/internal/config"
	"merchbase/internal/database"
	custommiddleware "merchbase/internal/middleware"
	"merchbase/internal/printful"
	"merchbase/internal/repository"
	"merchbase/internal/service"
	"merchbase/internal/storage"
	"merchbase/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
}

func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db *sql.DB,
	redisClient *redis.Client,
	store storage.ObjectStore,
) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(database.Health(db))
	})

	// Initialize repositories
	adminRepo := repository.NewAdminUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	syncRunRepo := repository.NewSyncRunRepository(db)
	imageRepo := repository.NewImageRepository(db)

	// Initialize remote catalog client
	printfulClient := printful.NewClient(cfg.Printful, nil)

	// Initialize services
	authService := service.NewAuthService(adminRepo, refreshTokenRepo, cfg.JWT.Secret)
	syncService := service.NewSyncService(printfulClient, catalogRepo, syncRunRepo, logger, cfg.Sync.Concurrency)
	importService := service.NewImportService(catalogRepo, imageRepo, store, logger)
	imageService := service.NewImageService(catalogRepo, imageRepo, logger)

	// Initialize handlers
	authHandler := transport.NewAuthHandler(authService, logger)
	syncHandler := transport.NewSyncHandler(syncService, logger)
	mockupHandler := transport.NewMockupHandler(importService, logger)
	imageHandler := transport.NewImageHandler(imageService, logger)
	webhookHandler := transport.NewWebhookHandler(syncService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	automationMiddleware := custommiddleware.AutomationAuth(cfg.Sync.Secret, logger)

	// Register routes
	authHandler.RegisterRoutes(router, authMiddleware)
	syncHandler.RegisterRoutes(router, authMiddleware, automationMiddleware)
	mockupHandler.RegisterRoutes(router, authMiddleware)
	imageHandler.RegisterRoutes(router, authMiddleware)
	webhookHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
		db:     db,
		redis:  redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	// Close database connection
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
