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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"linguachat-backend/internal/config"
	"linguachat-backend/internal/database"
	authhandler "linguachat-backend/internal/handler/http/auth"
	chathandler "linguachat-backend/internal/handler/http/chat"
	storagehandler "linguachat-backend/internal/handler/http/storage"
	userhandler "linguachat-backend/internal/handler/http/user"
	"linguachat-backend/internal/handler/ws"
	"linguachat-backend/internal/middleware"
	pgrepo "linguachat-backend/internal/repository/postgres"
	redisrepo "linguachat-backend/internal/repository/redis"
	authservice "linguachat-backend/internal/service/auth"
	chatservice "linguachat-backend/internal/service/chat"
	storageservice "linguachat-backend/internal/service/storage"
	translationservice "linguachat-backend/internal/service/translation"
	"linguachat-backend/internal/translator"
	"linguachat-backend/pkg/jwt"
	"linguachat-backend/pkg/logger"
	"linguachat-backend/pkg/metrics"
)

func main() {
	// Missing .env is fine in containerized deployments
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Fatal("service exited", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Storage connections
	postgresDB, err := database.NewPostgresDB(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer postgresDB.Close()
	logger.Info("connected to postgres", zap.String("host", cfg.Database.Host))

	redisDB, err := database.NewRedisDB(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisDB.Close()
	go redisDB.StartHealthCheck(ctx, 30*time.Second)
	logger.Info("connected to redis", zap.String("host", cfg.Redis.Host))

	minioDB, err := database.NewMinIOClient(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("minio: %w", err)
	}

	// Repositories
	userRepo := pgrepo.NewUserRepository(postgresDB.Pool)
	conversationRepo := pgrepo.NewConversationRepository(postgresDB.Pool)
	messageRepo := pgrepo.NewMessageRepository(postgresDB.Pool)
	presenceRepo := redisrepo.NewPresenceRepository(redisDB.Client)

	// Services
	tokenManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	translationSvc := translationservice.NewService(
		translator.NewClient(cfg.Translator),
		cfg.Translator.Timeout,
	)
	translationSvc.WarmUp(ctx, 15*time.Second)

	hub := ws.NewHub(tokenManager, presenceRepo, userRepo, conversationRepo)

	chatSvc := chatservice.NewService(userRepo, messageRepo, conversationRepo, hub, translationSvc)
	hub.SetReadMarker(chatSvc)

	authSvc := authservice.NewService(userRepo, tokenManager)
	authSvc.SetCacheInvalidator(chatSvc)

	storageScheme := "http"
	if cfg.MinIO.UseSSL {
		storageScheme = "https"
	}
	storageSvc := storageservice.NewService(minioDB, fmt.Sprintf("%s://%s", storageScheme, cfg.MinIO.Endpoint))

	// HTTP surface
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	httpMetrics := metrics.NewMetrics(cfg.Server.ServiceName)
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		middleware.CORS(nil),
		middleware.Prometheus(httpMetrics),
	)

	router.GET("/health", healthHandler(postgresDB, redisDB, translationSvc))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRequired := middleware.Auth(tokenManager)

	v1 := router.Group("/v1")
	authhandler.NewHandler(authSvc).RegisterRoutes(v1, authRequired)

	protected := v1.Group("")
	protected.Use(authRequired)
	userhandler.NewHandler(authSvc, hub).RegisterRoutes(protected)
	chathandler.NewHandler(chatSvc).RegisterRoutes(protected)
	storagehandler.NewHandler(storageSvc, authSvc).RegisterRoutes(protected)

	// WebSocket endpoint authenticates via query token inside the hub
	router.GET("/ws", hub.ServeWS)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func healthHandler(postgresDB *database.PostgresDB, redisDB *database.RedisDB, translationSvc *translationservice.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{
			"postgres":   "ok",
			"redis":      "ok",
			"translator": "ok",
		}

		if err := postgresDB.Ping(ctx); err != nil {
			checks["postgres"] = "down"
			status = http.StatusServiceUnavailable
		}
		if err := redisDB.Client.Ping(ctx).Err(); err != nil {
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		}
		// Translator cold start degrades translations, not delivery, so it
		// never fails the health check
		if !translationSvc.IsReady() {
			checks["translator"] = "warming_up"
		}

		c.JSON(status, gin.H{"status": checks})
	}
}
