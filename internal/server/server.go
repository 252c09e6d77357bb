package server

import (
	"context"
	"log"
	"strings"
	"time"

	"devsocial.app/backend/internal/config"
	"devsocial.app/backend/internal/middleware"
	"devsocial.app/backend/pkg/storage"

	adminHttp "devsocial.app/backend/internal/modules/admin/delivery/http"
	adminService "devsocial.app/backend/internal/modules/admin/service"

	leaderboardHttp "devsocial.app/backend/internal/modules/leaderboard/delivery/http"
	leaderboardRepo "devsocial.app/backend/internal/modules/leaderboard/repository"
	leaderboardService "devsocial.app/backend/internal/modules/leaderboard/service"

	notiHttp "devsocial.app/backend/internal/modules/notification/delivery/http"
	notifRepo "devsocial.app/backend/internal/modules/notification/repository"
	notifService "devsocial.app/backend/internal/modules/notification/service"

	postHttp "devsocial.app/backend/internal/modules/post/delivery/http"
	postRepo "devsocial.app/backend/internal/modules/post/repository"
	postService "devsocial.app/backend/internal/modules/post/service"

	profileHttp "devsocial.app/backend/internal/modules/profile/delivery/http"
	profileService "devsocial.app/backend/internal/modules/profile/service"

	referralHttp "devsocial.app/backend/internal/modules/referral/delivery/http"
	referralRepo "devsocial.app/backend/internal/modules/referral/repository"
	referralService "devsocial.app/backend/internal/modules/referral/service"

	searchService "devsocial.app/backend/internal/modules/search/service"

	userHttp "devsocial.app/backend/internal/modules/user/delivery/http"
	userRepo "devsocial.app/backend/internal/modules/user/repository"
	userService "devsocial.app/backend/internal/modules/user/service"

	xpHttp "devsocial.app/backend/internal/modules/xp/delivery/http"
	xpRepo "devsocial.app/backend/internal/modules/xp/repository"
	xpService "devsocial.app/backend/internal/modules/xp/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/meilisearch/meilisearch-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Server struct {
	engine      *gin.Engine
	db          *gorm.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *Server {
	userRepo := userRepo.NewUserRepository(db)

	var imageStorage storage.ImageStorage
	if st, err := storage.NewCloudinaryStorage(); err != nil {
		log.Printf("Cloudinary storage unavailable, avatar uploads disabled: %v", err)
	} else {
		imageStorage = st
	}

	var meiliSvc searchService.SearchService
	if cfg.MeiliSearchHost != "" {
		meiliHost := cfg.MeiliSearchHost
		if !strings.HasPrefix(meiliHost, "http") {
			meiliHost = "http://" + meiliHost + ":7700"
		}
		meiliClient := meilisearch.New(meiliHost, meilisearch.WithAPIKey(cfg.MeiliMasterKey))
		meiliSvc = searchService.NewSearchService(meiliClient)
	}

	// Notification Module
	notificationRepository := notifRepo.NewNotificationRepository(db)
	notificationSvc := notifService.NewNotificationService(notificationRepository, redisClient)
	notificationHandler := notiHttp.NewNotificationHandler(notificationSvc, redisClient)

	// Gamification
	statsRepository := leaderboardRepo.NewStatsRepository(db)
	leaderboardSvc := leaderboardService.NewLeaderboardService(statsRepository)
	leaderboardHandler := leaderboardHttp.NewLeaderboardHandler(leaderboardSvc)

	xpRepository := xpRepo.NewXPRepository(db)
	xpSvc := xpService.NewXPService(xpRepository, notificationSvc)
	xpHandler := xpHttp.NewXPHandler(xpSvc)

	// Referral engine
	referralRepository := referralRepo.NewReferralRepository(db)
	referralSvc := referralService.NewReferralService(referralRepository, userRepo, statsRepository, xpSvc, notificationSvc)
	referralHandler := referralHttp.NewReferralHandler(referralSvc)

	// Every XP award can complete a referral; wired here because the two
	// services depend on each other.
	xpSvc.SetCompletionChecker(referralSvc)

	authSvc := userService.NewAuthService(userRepo, referralSvc, xpSvc, meiliSvc, cfg.JWTSecret)
	userHandler := userHttp.NewUserHandler(authSvc, meiliSvc, redisClient, cfg.RateLimitSignup)

	profileSvc := profileService.NewProfileService(userRepo, statsRepository, meiliSvc, imageStorage)
	profileHandler := profileHttp.NewProfileHandler(profileSvc)

	postRepository := postRepo.NewPostRepository(db)
	postSvc := postService.NewPostService(postRepository, statsRepository, xpSvc, notificationSvc)
	postHandler := postHttp.NewPostHandler(postSvc)

	adminSvc := adminService.NewAdminService(userRepo, referralSvc, meiliSvc)
	adminHandler := adminHttp.NewAdminHandler(adminSvc)

	// Referral expiration sweep. The HTTP endpoint below serves external
	// schedulers; this ticker keeps single-instance deployments covered.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for range ticker.C {
			count, err := referralSvc.ExpireOldReferrals(context.Background())
			if err != nil {
				log.Printf("Referral expiration sweep failed: %v", err)
				continue
			}
			if count > 0 {
				log.Printf("Referral expiration sweep marked %d referrals expired", count)
			}
		}
	}()

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	authMiddleware := middleware.NewAuthMiddleware(userRepo)

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
	}
	api.GET("/referrals/validate", referralHandler.ValidateCode)
	api.GET("/leaderboard", leaderboardHandler.GetLeaderboard)

	// Internal routes, guarded by the shared cron secret instead of a JWT
	internal := api.Group("/internal")
	internal.Use(middleware.RequireCronSecret(cfg.CronSecret))
	{
		internal.POST("/referrals/expire", referralHandler.ExpireReferrals)
	}

	// Protected routes (apply auth middleware explicitly)
	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		// Admin routes
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/users", adminHandler.ListUsers)
			adminGroup.DELETE("/users/:id", adminHandler.DeleteUser)
			adminGroup.GET("/overview", adminHandler.GetOverview)
		}

		// User routes
		protected.GET("/users/me", userHandler.Me)
		protected.GET("/users/search", userHandler.SearchUsers)

		// Referral routes
		protected.GET("/referrals/code", referralHandler.GetMyCode)
		protected.GET("/referrals/stats", referralHandler.GetStats)

		// XP routes
		protected.GET("/xp/ledger", xpHandler.GetLedger)

		// Post routes
		protected.POST("/posts", postHandler.CreatePost)
		protected.GET("/posts", postHandler.GetFeed)
		protected.GET("/posts/:id", postHandler.GetPost)
		protected.DELETE("/posts/:id", postHandler.DeletePost)
		protected.POST("/posts/:id/comments", postHandler.CreateComment)
		protected.GET("/posts/:id/comments", postHandler.GetComments)

		// Profile routes
		protected.GET("/profile/:username", profileHandler.GetProfile)
		protected.PUT("/profile", profileHandler.UpdateProfile)
		protected.POST("/profile/avatar", profileHandler.UploadAvatar)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)
	}

	return &Server{
		engine:      router,
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
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Cron-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
