package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/JLAD75/fileManagerRAG/auth"
	"github.com/JLAD75/fileManagerRAG/config"
	"github.com/JLAD75/fileManagerRAG/controller"
	"github.com/JLAD75/fileManagerRAG/services"
	"github.com/JLAD75/fileManagerRAG/store"
	"github.com/JLAD75/fileManagerRAG/worker"
)

func main() {
	// A missing .env is fine; deployments set real environment variables.
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load configuration", "path", configPath, "error", err)
		os.Exit(1)
	}

	jwtSecret := os.Getenv(cfg.Auth.JWTSecretEnv)
	if jwtSecret == "" {
		logger.Error("JWT secret not set", "env", cfg.Auth.JWTSecretEnv)
		os.Exit(1)
	}

	db, err := store.NewStore(cfg.Storage.DataDir)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	uploads, err := services.NewUploadStore(cfg.Storage.UploadsDir)
	if err != nil {
		logger.Error("failed to prepare uploads directory", "error", err)
		os.Exit(1)
	}

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		logger.Error("failed to create embedder", "provider", cfg.Embedder.Provider, "error", err)
		os.Exit(1)
	}

	completer, err := buildCompleter(cfg, logger)
	if err != nil {
		logger.Error("failed to create completion client", "provider", cfg.LLM.Provider, "error", err)
		os.Exit(1)
	}

	adapter := auth.NewAdapter(jwtSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	vectors := services.NewVectorStoreService(cfg.Storage.VectorDir, embedder, logger)
	extractor := services.NewExtractorService(logger)
	chunker := services.NewChunkerService(services.WithChunkerLogger(logger))
	retrieval := services.NewRetrievalService(vectors, logger)
	chat := services.NewChatService(completer, logger)

	queue := worker.NewKeyedQueue(logger, 16)
	defer queue.Stop()
	processing := services.NewProcessingService(db, uploads, extractor, chunker, vectors, queue, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch.Enabled {
		if cfg.Watch.Dir == "" || cfg.Watch.UserID == "" {
			logger.Error("watch.dir and watch.user_id must be set when the watcher is enabled")
			os.Exit(1)
		}
		watcher := services.NewWatchService(db, processing, vectors, cfg.Watch.UserID, logger)
		go watcher.WatchDirectory(ctx, cfg.Watch.Dir)
	}

	authController := controller.NewAuthController(db, adapter, logger)
	fileController := controller.NewFileController(db, uploads, processing, vectors,
		cfg.Server.MaxUploadMB*1024*1024, logger)
	chatController := controller.NewChatController(retrieval, chat, cfg.LLM.DefaultModel, logger)

	router := gin.Default()
	router.Use(controller.CORS())
	router.MaxMultipartMemory = cfg.Server.MaxUploadMB * 1024 * 1024

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authController.Register)
			authGroup.POST("/login", authController.Login)
		}

		protected := api.Group("")
		protected.Use(controller.AuthRequired(adapter))
		{
			protected.POST("/files/upload", fileController.Upload)
			protected.GET("/files", fileController.List)
			protected.GET("/files/:id", fileController.Status)
			protected.GET("/files/:id/download", fileController.Download)
			protected.DELETE("/files/:id", fileController.Delete)

			protected.POST("/chat", chatController.Chat)
			protected.GET("/chat/models", chatController.Models)
		}
	}

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func buildEmbedder(cfg *config.AppConfig, logger *slog.Logger) (services.Embedder, error) {
	switch cfg.Embedder.Provider {
	case "openai":
		return services.NewOpenAIEmbedder(cfg.Embedder.OpenAI)
	default:
		ollama := cfg.Embedder.Ollama
		if ollama == nil {
			ollama = &config.OllamaConfig{BaseURL: "http://localhost:11434", Model: "nomic-embed-text:v1.5"}
		}
		httpClient := &http.Client{Timeout: 30 * time.Second}
		logger.Info("using ollama embeddings", "baseUrl", ollama.BaseURL, "model", ollama.Model)
		return services.NewOllamaEmbedder(httpClient, ollama.BaseURL, ollama.Model), nil
	}
}

func buildCompleter(cfg *config.AppConfig, logger *slog.Logger) (services.Completer, error) {
	switch cfg.LLM.Provider {
	case "gemini":
		gemini := cfg.LLM.Gemini
		apiKeyEnv := "GEMINI_API_KEY"
		if gemini != nil && gemini.APIKeyEnv != "" {
			apiKeyEnv = gemini.APIKeyEnv
		}
		logger.Info("using gemini completions", "defaultModel", cfg.LLM.DefaultModel)
		return services.NewGeminiCompleter(context.Background(), os.Getenv(apiKeyEnv))
	default:
		var token, baseURL string
		if oa := cfg.LLM.OpenAI; oa != nil {
			token = os.Getenv(oa.APIKeyEnv)
			baseURL = oa.BaseURL
		}
		logger.Info("using openai completions", "defaultModel", cfg.LLM.DefaultModel)
		return services.NewOpenAICompleter(token, baseURL)
	}
}
