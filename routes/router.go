package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/controllers"
	"github.com/flowvahq/rewards/middleware"
	"github.com/flowvahq/rewards/services"
	"github.com/flowvahq/rewards/utils"
)

// SetupRouter wires routes, middlewares, services and controllers.
func SetupRouter(db *gorm.DB, catalog *config.Catalog) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Aggregate API hits per day for the stats endpoint
	r.Use(middleware.UsageRecorder(db))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	notifier := utils.RedisNotifier{}

	ledgerService := services.NewLedgerService(db)
	referralService := services.NewReferralService(db)
	referralService.Notify = notifier
	streakService := services.NewStreakService(db)
	streakService.Notify = notifier
	claimService := services.NewClaimService(db, catalog, utils.FulfillmentMailer{})
	claimService.Notify = notifier

	authController := controllers.NewAuthController(db, referralService)
	checkinController := controllers.NewCheckinController(streakService, referralService)
	rewardsController := controllers.NewRewardsController(ledgerService, claimService, referralService)
	referralController := controllers.NewReferralController(db, referralService)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	// Public stats endpoint
	api.GET("/stats", statsController.GetStats)
	// Public reward catalog
	api.GET("/rewards/catalog", rewardsController.Catalog)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())

	protected.POST("/checkin/daily", checkinController.DailyCheckin)
	protected.GET("/checkin/status", checkinController.Status)
	protected.POST("/checkin/spin", checkinController.BonusSpin)

	protected.GET("/points/balance", rewardsController.Balance)
	protected.GET("/points/history", rewardsController.History)
	protected.GET("/points/activity", rewardsController.RecentActivity)
	protected.POST("/earn/:source", rewardsController.ClaimDailyAction)

	protected.POST("/rewards/claim", rewardsController.ClaimReward)
	protected.GET("/rewards/claimed", rewardsController.ClaimedRewards)

	protected.GET("/referral", referralController.Info)
	protected.POST("/referral/link", referralController.Link)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
