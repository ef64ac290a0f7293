package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flowvahq/rewards/models"
	"github.com/flowvahq/rewards/utils"
)

// StatsController provides public aggregate statistics for the rewards program.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// leaderboardEntry is one row of the public top-balance list.
type leaderboardEntry struct {
	Username    string `json:"username"`
	TotalPoints int    `json:"total_points"`
}

// GetStats returns program-wide aggregates and the points leaderboard.
// Cached in Redis for a minute since every count is a full-table aggregate.
func (s *StatsController) GetStats(ctx *gin.Context) {
	const cacheKey = "cache:stats"
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(200, "application/json", b)
		return
	}

	var userCount int64
	var eventCount int64
	var pointsIssued int64
	var claimsToday int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		userCount = 0
	}
	if err := s.db.Model(&models.PointEvent{}).Count(&eventCount).Error; err != nil {
		eventCount = 0
	}
	if err := s.db.Model(&models.PointEvent{}).
		Where("delta > 0").
		Select("COALESCE(SUM(delta),0)").
		Scan(&pointsIssued).Error; err != nil {
		pointsIssued = 0
	}

	today := time.Now().UTC().Format("2006-01-02")
	if err := s.db.Model(&models.DailyClaim{}).Where("claim_date = ?", today).Count(&claimsToday).Error; err != nil {
		claimsToday = 0
	}

	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var requestsToday int64
	if err := s.db.Model(&models.DailyUsage{}).
		Where("date = ?", midnight).
		Select("COALESCE(SUM(count),0)").
		Scan(&requestsToday).Error; err != nil {
		requestsToday = 0
	}

	var top []leaderboardEntry
	if err := s.db.Model(&models.User{}).
		Select("username, total_points").
		Order("total_points DESC").
		Limit(10).
		Scan(&top).Error; err != nil {
		top = nil
	}

	payload := gin.H{
		"user_count":     userCount,
		"event_count":    eventCount,
		"points_issued":  pointsIssued,
		"claims_today":   claimsToday,
		"requests_today": requestsToday,
		"leaderboard":    top,
	}

	wrapper := utils.JSONResponse{Code: 0, Message: "success", Data: payload}
	utils.CacheSetJSON(cacheKey, wrapper, time.Minute)
	utils.Success(ctx, payload)
}
