package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flowvahq/rewards/models"
	"github.com/flowvahq/rewards/services"
	"github.com/flowvahq/rewards/utils"
)

// RewardsController exposes the point ledger, the daily earn actions and
// reward redemption.
type RewardsController struct {
	ledger    *services.LedgerService
	claims    *services.ClaimService
	referrals *services.ReferralService
}

// NewRewardsController creates a new controller instance.
func NewRewardsController(ledger *services.LedgerService, claims *services.ClaimService, referrals *services.ReferralService) *RewardsController {
	return &RewardsController{ledger: ledger, claims: claims, referrals: referrals}
}

// Balance returns the user's cached point balance.
func (r *RewardsController) Balance(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	balance, err := r.ledger.GetBalance(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to load balance")
		return
	}

	utils.Success(ctx, gin.H{"balance": balance})
}

// History returns the user's point events, newest first, paginated.
func (r *RewardsController) History(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	page, pageSize := 1, 20
	if v := strings.TrimSpace(ctx.Query("page")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := strings.TrimSpace(ctx.Query("page_size")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	events, total, err := r.ledger.History(userID, page, pageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to load history")
		return
	}

	utils.Success(ctx, gin.H{
		"items": events,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	})
}

// earnSources maps URL action names to ledger sources.
var earnSources = map[string]models.PointSource{
	"try":    models.SourceTryTool,
	"share":  models.SourceShareStack,
	"review": models.SourceReview,
}

// ClaimDailyAction credits one of the daily earn actions (try, share, review).
func (r *RewardsController) ClaimDailyAction(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	source, ok := earnSources[strings.ToLower(ctx.Param("source"))]
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40040, "unknown earn action")
		return
	}

	event, err := r.claims.ClaimDailyAction(userID, source)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAlreadyClaimedToday):
			utils.Error(ctx, http.StatusConflict, 40940, "already claimed today, come back tomorrow")
		case errors.Is(err, services.ErrUnsupportedSource):
			utils.Error(ctx, http.StatusBadRequest, 40040, "unknown earn action")
		default:
			utils.Sugar.Errorf("daily action failed user=%d source=%s err=%v", userID, source, err)
			utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to record action")
		}
		return
	}

	if err := r.referrals.CreditOnQualifyingAction(userID); err != nil {
		utils.Sugar.Warnf("referral credit hook failed user=%d err=%v", userID, err)
	}

	utils.Success(ctx, gin.H{
		"points_awarded": event.Delta,
		"source":         event.Source,
	})
}

// Catalog lists the claimable rewards.
func (r *RewardsController) Catalog(ctx *gin.Context) {
	utils.Success(ctx, r.claims.Catalog.All())
}

// ClaimReward redeems a catalog reward for points. A failed fulfillment
// dispatch still consumes the points: the claim is recorded and delivery is
// retried out of band, so the caller gets a 502 with the claim attached.
func (r *RewardsController) ClaimReward(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	type request struct {
		RewardID string `json:"reward_id" binding:"required"`
		Email    string `json:"email" binding:"required,email"`
		Name     string `json:"name"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid request payload")
		return
	}

	claim, err := r.claims.ClaimReward(userID, req.RewardID, strings.TrimSpace(req.Email), strings.TrimSpace(req.Name))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownReward):
			utils.Error(ctx, http.StatusNotFound, 40440, "reward not found")
		case errors.Is(err, services.ErrInsufficientBalance):
			utils.Error(ctx, http.StatusBadRequest, 40042, "not enough points for this reward")
		case errors.Is(err, services.ErrDeliveryFailed):
			utils.Sugar.Warnf("fulfillment dispatch failed user=%d claim=%s", userID, claim.ID)
			utils.Respond(ctx, http.StatusBadGateway, 50243, "reward claimed, delivery pending retry", claim)
		default:
			utils.Sugar.Errorf("reward claim failed user=%d reward=%s err=%v", userID, req.RewardID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50044, "failed to claim reward")
		}
		return
	}

	utils.Success(ctx, claim)
}

// ClaimedRewards lists the user's redemption history.
func (r *RewardsController) ClaimedRewards(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	claims, err := r.claims.ListClaims(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50045, "failed to load claimed rewards")
		return
	}

	utils.Success(ctx, claims)
}

// RecentActivity returns the user's latest point notifications from Redis.
func (r *RewardsController) RecentActivity(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}
	utils.Success(ctx, gin.H{"items": utils.RecentActivity(userID)})
}
