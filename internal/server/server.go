package server

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/johannesrosenbaum/chatilo-server/internal/config"
	"github.com/johannesrosenbaum/chatilo-server/internal/handler"
	"github.com/johannesrosenbaum/chatilo-server/internal/middleware"
	"github.com/johannesrosenbaum/chatilo-server/internal/repository"
	"github.com/johannesrosenbaum/chatilo-server/internal/service"
	"github.com/johannesrosenbaum/chatilo-server/pkg/storage"
)

type Server struct {
	engine      *gin.Engine
	cfg         *config.Config
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	mediaStorage, err := storage.NewCloudinaryStorage()
	if err != nil {
		log.Printf("media uploads disabled: %v", err)
		mediaStorage = nil
	}

	var searchSvc service.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		searchSvc = service.NewSearchService(meiliClient)
	}

	var llmProvider service.LLMProvider
	if provider, err := service.NewGeminiProvider(context.Background(), cfg.GeminiModel); err != nil {
		log.Printf("LLM provider disabled: %v", err)
	} else {
		llmProvider = provider
	}
	welcomeSvc := service.NewWelcomeService(llmProvider)

	geocoder := service.NewCachedGeocoder(
		service.NewNominatimGeocoder(""),
		redisClient,
		cfg.GeocodeCacheTTL,
	)

	authSvc := service.NewAuthService(userRepo)
	authHandler := handler.NewAuthHandler(authSvc)

	notificationSvc := service.NewNotificationService(notificationRepo, roomRepo, redisClient)
	notificationHandler := handler.NewNotificationHandler(notificationSvc, redisClient)

	roomSvc := service.NewRoomService(roomRepo, messageRepo, notificationSvc, geocoder, welcomeSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)

	treeBuilder := service.NewThreadBuilder(messageRepo)
	messageSvc := service.NewMessageService(
		messageRepo, roomRepo, userRepo, voteRepo,
		treeBuilder, notificationSvc, searchSvc, redisClient,
		cfg.RateLimitGlobal, cfg.RateLimitMessage,
	)
	messageHandler := handler.NewMessageHandler(messageSvc, searchSvc)

	uploadHandler := handler.NewUploadHandler(mediaStorage)

	router := gin.New()
	setupCORS(router, cfg.AllowedOrigins)
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware()

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Room routes
		protected.GET("/rooms", roomHandler.NearbyRooms)
		protected.POST("/rooms", roomHandler.CreateRoom)
		protected.POST("/rooms/:room_id/join", roomHandler.Join)
		protected.POST("/rooms/:room_id/leave", roomHandler.Leave)
		protected.POST("/rooms/:room_id/favorite", roomHandler.Favorite)
		protected.DELETE("/rooms/:room_id/favorite", roomHandler.Unfavorite)

		// Message routes
		protected.GET("/rooms/:room_id/messages", messageHandler.GetRoomMessages)
		protected.POST("/rooms/:room_id/messages", messageHandler.CreateMessage)
		protected.DELETE("/messages/:message_id", messageHandler.DeleteMessage)
		protected.POST("/messages/:message_id/vote", messageHandler.Vote)
		protected.GET("/search", messageHandler.Search)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		// Media upload
		protected.POST("/upload", uploadHandler.Upload)
	}

	return &Server{
		engine:      router,
		cfg:         cfg,
		db:          db,
		redisClient: redisClient,
	}
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	if allowedOrigins != "" {
		origins = strings.Split(allowedOrigins, ",")
	} else {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
