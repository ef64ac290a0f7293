package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flowvahq/rewards/services"
	"github.com/flowvahq/rewards/utils"
)

// CheckinController handles the daily check-in streak and bonus spin endpoints.
type CheckinController struct {
	streaks   *services.StreakService
	referrals *services.ReferralService
}

// NewCheckinController creates a new controller instance.
func NewCheckinController(streaks *services.StreakService, referrals *services.ReferralService) *CheckinController {
	return &CheckinController{streaks: streaks, referrals: referrals}
}

// DailyCheckin records the daily check-in and updates streak and points.
// A repeat on the same day is a 409 with its own code so the UI can show
// "already checked in" rather than a generic error.
func (c *CheckinController) DailyCheckin(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	result, err := c.streaks.ClaimToday(userID)
	if err != nil {
		if errors.Is(err, services.ErrAlreadyClaimed) {
			utils.Error(ctx, http.StatusConflict, 40930, "already checked in today")
			return
		}
		utils.Sugar.Errorf("daily check-in failed user=%d err=%v", userID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to record check-in")
		return
	}

	// A check-in is a qualifying action for referral credit; failures here
	// must not fail the check-in itself.
	if err := c.referrals.CreditOnQualifyingAction(userID); err != nil {
		utils.Sugar.Warnf("referral credit hook failed user=%d err=%v", userID, err)
	}

	utils.Success(ctx, result)
}

// Status returns the user's evaluated streak state. Stale streaks are reset
// as part of the read.
func (c *CheckinController) Status(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	status, err := c.streaks.Status(userID)
	if err != nil {
		utils.Sugar.Errorf("streak status failed user=%d err=%v", userID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load streak")
		return
	}

	utils.Success(ctx, status)
}

// BonusSpin runs the weekly reward wheel when the streak sits on a 7-day
// multiple and the spin has not been used yet.
func (c *CheckinController) BonusSpin(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	result, err := c.streaks.ClaimBonusSpin(userID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSpinNotUnlocked):
			utils.Error(ctx, http.StatusBadRequest, 40031, "bonus spin is not unlocked")
		case errors.Is(err, services.ErrAlreadyClaimed):
			utils.Error(ctx, http.StatusConflict, 40931, "bonus spin already used")
		default:
			utils.Sugar.Errorf("bonus spin failed user=%d err=%v", userID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to run bonus spin")
		}
		return
	}

	utils.Success(ctx, result)
}
