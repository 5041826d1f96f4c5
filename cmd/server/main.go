package main

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	config "demand-copilot-api/configs"
	"demand-copilot-api/pkg/gemini"
	"demand-copilot-api/pkg/handlers"
	"demand-copilot-api/pkg/services"
	"demand-copilot-api/pkg/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		logger.WithError(err).Warn(".env file not found or could not be loaded")
	}

	cfg := config.LoadConfig()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()
	store := openStore(ctx, cfg, logger)
	sessions := openSessions(cfg, logger)

	generator := gemini.NewClient(cfg.GeminiEndpoint, cfg.GeminiAPIKey, cfg.GeminiModel)
	systemPrompt := config.ResolveSystemPrompt("")

	monitoringService := services.NewMonitoringService(logger)
	intentService := services.NewIntentService(services.DefaultIntentRules())
	contextService := services.NewContextService(store, logger)
	predictionService := services.NewPredictionService(store, logger)
	reportService := services.NewReportService(store, logger)
	seedService := services.NewSeedService(store, logger)
	chatService := services.NewChatService(
		intentService,
		contextService,
		generator,
		sessions,
		store,
		logger,
		services.ChatOptions{
			SystemPrompt: systemPrompt,
			Temperature:  cfg.GeminiTemperature,
			MaxTokens:    cfg.GeminiMaxTokens,
		},
	)

	chatHandler := handlers.NewChatHandler(chatService, logger)
	forecastHandler := handlers.NewForecastHandler(store, predictionService, reportService, seedService, logger, cfg.ModelPath)
	adminHandler := handlers.NewAdminHandler(cfg, store)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	r.GET("/health", adminHandler.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/chat", chatHandler.HandleChat)
		api.POST("/chat/reset", chatHandler.ResetSession)

		api.GET("/predictions", forecastHandler.GetPredictions)
		api.GET("/ranking", forecastHandler.GetRanking)
		api.GET("/hospitals", forecastHandler.GetHospitals)
		api.GET("/products", forecastHandler.GetProducts)
		api.GET("/catalog", forecastHandler.GetCatalog)
		api.GET("/stats", forecastHandler.GetStats)

		api.POST("/forecasts/run", forecastHandler.RunForecast)
		api.GET("/forecasts/export", forecastHandler.ExportForecasts)
		api.POST("/orders/upload", forecastHandler.UploadOrders)

		admin := api.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
			admin.GET("/logs", monitoringHandler.GetLogs)
			admin.POST("/seed", forecastHandler.SeedDemo)
		}
	}

	logger.WithField("port", cfg.Port).Info("starting demand co-pilot API")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}

// openStore connects to Postgres when DATABASE_URL is set and falls
// back to the in-memory store otherwise, so local development works
// without infrastructure.
func openStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) storage.Store {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return storage.NewMemoryStore()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	store, err := storage.NewPostgresStore(connectCtx, cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("connecting to Postgres")
	}
	if err := store.EnsureSchema(connectCtx); err != nil {
		logger.WithError(err).Fatal("initializing database schema")
	}
	logger.Info("connected to Postgres")
	return store
}

// openSessions uses Redis-backed chat sessions when REDIS_ADDR is set.
func openSessions(cfg *config.Config, logger *logrus.Logger) services.SessionStore {
	if cfg.RedisAddr == "" {
		logger.Info("REDIS_ADDR not set, using in-memory chat sessions")
		return services.NewMemorySessionStore(cfg.SessionTTL)
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, using in-memory chat sessions")
		return services.NewMemorySessionStore(cfg.SessionTTL)
	}
	logger.WithField("addr", cfg.RedisAddr).Info("connected to Redis")
	return services.NewRedisSessionStore(client, cfg.SessionTTL)
}
