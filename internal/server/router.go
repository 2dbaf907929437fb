package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/voxnote/voxnote-backend/internal/handlers"
	"github.com/voxnote/voxnote-backend/internal/logger"
	"github.com/voxnote/voxnote-backend/internal/middleware"
)

type RouterConfig struct {
	Log            *logger.Logger
	Mode           string // gin.DebugMode or gin.ReleaseMode
	AllowedOrigins []string
	UploadsDir     string

	Chat       *handlers.ChatHandler
	Library    *handlers.LibraryHandler
	Documents  *handlers.DocumentHandler
	Tags       *handlers.TagHandler
	Transcribe *handlers.TranscribeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLog(cfg.Log))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.UploadsDir != "" {
		router.Static("/uploads", cfg.UploadsDir)
	}

	api := router.Group("/api")
	{
		api.GET("/ping", handlers.Ping)

		api.POST("/transcribe", cfg.Transcribe.TranscribeURL)
		api.POST("/transcribe-long", cfg.Transcribe.TranscribeLongURL)
		api.POST("/transcribe-file", cfg.Transcribe.TranscribeFile)
		api.POST("/meeting/process", cfg.Transcribe.ProcessMeeting)

		api.POST("/library/save", cfg.Library.Save)
		api.GET("/library/history", cfg.Library.History)
		api.DELETE("/library/:id", cfg.Library.Delete)
		api.PATCH("/library/:id/tag", cfg.Library.SetTag)

		api.POST("/documents/upload", cfg.Documents.Upload)
		api.GET("/documents", cfg.Documents.List)
		api.PATCH("/documents/:id/tag", cfg.Documents.SetTag)
		api.DELETE("/documents/:id", cfg.Documents.Delete)

		api.GET("/tags", cfg.Tags.List)
		api.POST("/tags", cfg.Tags.Create)
		api.DELETE("/tags/:id", cfg.Tags.Delete)

		api.POST("/chat", cfg.Chat.Chat)
		api.GET("/chat/threads", cfg.Chat.ListThreads)
		api.GET("/chat/threads/:id/messages", cfg.Chat.ListMessages)
		api.DELETE("/chat/threads/:id", cfg.Chat.DeleteThread)
	}

	return router
}
