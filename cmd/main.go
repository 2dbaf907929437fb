package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/voxnote/voxnote-backend/internal/db"
	"github.com/voxnote/voxnote-backend/internal/handlers"
	"github.com/voxnote/voxnote-backend/internal/jobs"
	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/platform/gemini"
	"github.com/voxnote/voxnote-backend/internal/platform/openai"
	"github.com/voxnote/voxnote-backend/internal/repos"
	"github.com/voxnote/voxnote-backend/internal/server"
	"github.com/voxnote/voxnote-backend/internal/services"
	"github.com/voxnote/voxnote-backend/internal/utils"
)

func main() {
	// Local dev convenience; in deployment the environment is already set.
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// DB
	dbService, err := db.New(log)
	if err != nil {
		log.Fatal("Database init failed", "error", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Fatal("Auto migration failed", "error", err)
	}
	gdb := dbService.DB()

	// Repos
	transcriptRepo := repos.NewTranscriptRepo(gdb, log)
	documentRepo := repos.NewDocumentRepo(gdb, log)
	tagRepo := repos.NewTagRepo(gdb, log)
	threadRepo := repos.NewChatThreadRepo(gdb, log)
	messageRepo := repos.NewChatMessageRepo(gdb, log)

	// Model providers
	oaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("OpenAI client init failed", "error", err)
	}
	openaiProvider := services.NewOpenAIProvider(oaiClient)

	var extraProviders []services.GenerationProvider
	geminiClient, err := gemini.NewClient(log)
	if err != nil {
		log.Warn("Gemini unavailable, chat model selection falls back to OpenAI", "error", err)
	} else {
		extraProviders = append(extraProviders, services.NewGeminiProvider(geminiClient))
	}
	providers := services.NewProviderSet(openaiProvider, extraProviders...)
	embedder := services.NewOpenAIEmbedder(oaiClient)

	// Pricing
	pricing, err := services.NewPricingService(os.Getenv("PRICING_FILE"))
	if err != nil {
		log.Fatal("Pricing table init failed", "error", err)
	}

	// Media tooling
	mediaTools := services.NewMediaToolsService(log)
	if err := mediaTools.AssertReady(context.Background()); err != nil {
		log.Warn("Media tooling unavailable, transcription endpoints will fail", "error", err)
	}

	// Uploads dir for document storage and static serving
	uploadsDir := utils.GetEnv("UPLOADS_DIR", "uploads", log)
	if err := os.MkdirAll(uploadsDir, 0o755); err != nil {
		log.Fatal("Failed to create uploads dir", "path", uploadsDir, "error", err)
	}

	// Background indexing
	queueSize := utils.GetEnvAsInt("INDEX_QUEUE_SIZE", 64, log)
	workers := utils.GetEnvAsInt("INDEX_WORKERS", 2, log)
	indexer := jobs.NewIndexer(log, transcriptRepo, documentRepo, embedder, queueSize, workers)

	// Services
	ranker := services.NewCosineRanker(log)
	historyLimit := utils.GetEnvAsInt("CHAT_HISTORY_LIMIT", 10, log)
	topK := utils.GetEnvAsInt("CHAT_TOP_K", 10, log)
	publicBaseURL := utils.GetEnv("PUBLIC_BASE_URL", "http://localhost:3001", log)

	chatService := services.NewChatService(
		gdb, log,
		threadRepo, messageRepo, transcriptRepo, documentRepo,
		embedder, providers, ranker, pricing,
		historyLimit, topK, publicBaseURL,
	)
	libraryService := services.NewLibraryService(gdb, log, transcriptRepo, indexer)
	documentService := services.NewDocumentService(gdb, log, documentRepo, indexer, uploadsDir)
	tagService := services.NewTagService(gdb, log, tagRepo)
	transcriptionService := services.NewTranscriptionService(
		log, oaiClient, providers, mediaTools, pricing,
		utils.GetEnv("TRANSCRIBE_LANGUAGE", "zh", log),
	)

	// Handlers
	chatHandler := handlers.NewChatHandler(log, chatService)
	libraryHandler := handlers.NewLibraryHandler(log, libraryService)
	documentHandler := handlers.NewDocumentHandler(log, documentService, services.NewPlainTextExtractor(), uploadsDir)
	tagHandler := handlers.NewTagHandler(log, tagService)
	transcribeHandler := handlers.NewTranscribeHandler(log, transcriptionService, os.Getenv("MEDIA_WORK_ROOT"))

	var allowedOrigins []string
	if raw := os.Getenv("CORS_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				allowedOrigins = append(allowedOrigins, origin)
			}
		}
	}

	router := server.NewRouter(server.RouterConfig{
		Log:            log,
		Mode:           os.Getenv("GIN_MODE"),
		AllowedOrigins: allowedOrigins,
		UploadsDir:     uploadsDir,
		Chat:           chatHandler,
		Library:        libraryHandler,
		Documents:      documentHandler,
		Tags:           tagHandler,
		Transcribe:     transcribeHandler,
	})

	port := utils.GetEnv("PORT", "3001", log)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	indexer.Start(ctx)

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("Server exited with error", "error", err)
	}
	indexer.Wait()
	log.Info("Shutdown complete")
}
