package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github/itish2003/ragchat/config"
	"github/itish2003/ragchat/controller"
	"github/itish2003/ragchat/logger"
	"github/itish2003/ragchat/observability"
	"github/itish2003/ragchat/services"
	"github/itish2003/ragchat/sessions"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Options{Level: cfg.LogLevel, FilePath: cfg.LogFile, IsProd: cfg.IsProduction()})
	if err != nil {
		log.Fatalf("FATAL: Failed to create logger: %v", err)
	}
	defer zl.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.UsesDefaultSecret() {
		zl.Warn("SESSION_SECRET is not set; using the development default")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	sessionStore, err := sessions.New(ctx, cfg.SessionBackend, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		zl.Fatal("failed to open session store", zap.Error(err))
	}
	defer sessionStore.Close()

	// The pipeline is built on the first chat request so the server starts even
	// when the index or the model provider is not ready yet.
	pipelineCfg := pipelineConfig(cfg)
	pipeline := services.NewLazyPipeline(func(ctx context.Context) (services.Invoker, error) {
		return services.BuildPipeline(ctx, pipelineCfg, zl)
	}, metrics, zl)
	defer pipeline.Close()

	chatService := services.NewChatService(pipeline, sessionStore, services.ChatSettings{
		ChunkSize:  cfg.StreamChunkSize,
		ChunkDelay: cfg.StreamDelay,
	}, zl)
	chatController := controller.NewChatController(chatService, metrics, pipeline.Ready, zl)

	router := controller.NewRouter(chatController, metrics, controller.RouterConfig{
		CORSOrigins:   cfg.CORSOrigins,
		SessionSecret: cfg.SessionSecret,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.IsProduction(),
	}, zl)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zl.Info("RAG chat server starting",
			zap.String("addr", "http://localhost:"+cfg.Port),
			zap.String("llm_provider", cfg.LLMProvider),
			zap.String("model", cfg.ModelID),
			zap.String("vector_store", cfg.VectorStore),
			zap.String("session_backend", cfg.SessionBackend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}

func pipelineConfig(cfg config.Config) services.PipelineConfig {
	llmBaseURL := cfg.LLMBaseURL
	if llmBaseURL == "" && cfg.LLMProvider == services.ProviderOllama {
		llmBaseURL = cfg.OllamaURL
	}
	return services.PipelineConfig{
		VectorStore:      cfg.VectorStore,
		IndexPath:        cfg.IndexPath,
		ChromaURL:        cfg.ChromaURL,
		ChromaCollection: cfg.ChromaCollection,
		Embedder: services.EmbedderSettings{
			Provider:  cfg.Embedder,
			Model:     cfg.EmbeddingModel,
			OllamaURL: cfg.OllamaURL,
			BaseURL:   cfg.EmbeddingBaseURL,
			APIToken:  cfg.EmbeddingToken,
		},
		LLM: services.LLMSettings{
			Provider:   cfg.LLMProvider,
			HFProvider: cfg.HFProvider,
			ModelID:    cfg.ModelID,
			APIToken:   cfg.APIToken,
			BaseURL:    llmBaseURL,
			MaxTokens:  cfg.MaxTokens,
		},
		K: cfg.RetrievalK,
	}
}
