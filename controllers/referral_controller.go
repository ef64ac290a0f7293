package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flowvahq/rewards/models"
	"github.com/flowvahq/rewards/services"
	"github.com/flowvahq/rewards/utils"
)

// ReferralController exposes a user's referral code and standing, and lets a
// user who signed up without a code apply one afterwards.
type ReferralController struct {
	db        *gorm.DB
	referrals *services.ReferralService
}

// NewReferralController creates a new controller instance.
func NewReferralController(db *gorm.DB, referrals *services.ReferralService) *ReferralController {
	return &ReferralController{db: db, referrals: referrals}
}

// Info returns the user's own referral code plus referred/credited counts.
func (r *ReferralController) Info(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var user models.User
	if err := r.db.First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50050, "failed to load user")
		return
	}

	referred, credited, err := r.referrals.InfoFor(userID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50051, "failed to load referral info")
		return
	}

	utils.Success(ctx, gin.H{
		"referral_code":  user.ReferralCode,
		"referred_count": referred,
		"credited_count": credited,
	})
}

// Link applies a referral code to the authenticated user. Distinct codes for
// the two expected rejections so the UI can tell "bad code" from "already
// referred".
func (r *ReferralController) Link(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	type request struct {
		Code string `json:"code" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40050, "invalid request payload")
		return
	}

	link, err := r.referrals.LinkReferral(userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCode):
			utils.Error(ctx, http.StatusBadRequest, 40051, "referral code not recognized")
		case errors.Is(err, services.ErrAlreadyLinked):
			utils.Error(ctx, http.StatusConflict, 40950, "account already has a referrer")
		default:
			utils.Sugar.Errorf("referral link failed user=%d err=%v", userID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50052, "failed to link referral")
		}
		return
	}

	utils.Success(ctx, link)
}
