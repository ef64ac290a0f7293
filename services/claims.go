package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/models"
)

// FulfillmentDispatcher delivers a redeemed reward out of band (email, gift
// card API). Dispatch happens after the ledger commit and is best-effort.
type FulfillmentDispatcher interface {
	Dispatch(email, name, rewardTitle string) error
}

// ClaimService gates the "earn more" daily actions and reward redemptions.
type ClaimService struct {
	DB         *gorm.DB
	Catalog    *config.Catalog
	Dispatcher FulfillmentDispatcher
	Notify     Notifier

	Now func() time.Time
}

// NewClaimService creates a claim coordinator over the given database.
func NewClaimService(db *gorm.DB, catalog *config.Catalog, dispatcher FulfillmentDispatcher) *ClaimService {
	return &ClaimService{DB: db, Catalog: catalog, Dispatcher: dispatcher, Now: time.Now}
}

func actionPoints(source models.PointSource) (int, bool) {
	cfg := config.Get()
	switch source {
	case models.SourceTryTool:
		return cfg.TryToolPoints, true
	case models.SourceShareStack:
		return cfg.ShareStackPoints, true
	case models.SourceReview:
		return cfg.ReviewPoints, true
	}
	return 0, false
}

// ClaimDailyAction credits one of the daily earn actions. Each source can be
// claimed at most once per UTC calendar day; the second attempt returns
// ErrAlreadyClaimedToday so the caller can show "come back tomorrow" instead
// of a generic failure.
func (s *ClaimService) ClaimDailyAction(userID uint, source models.PointSource) (*models.PointEvent, error) {
	points, ok := actionPoints(source)
	if !ok {
		return nil, ErrUnsupportedSource
	}
	today := s.Now().UTC().Format(dateLayout)

	var event *models.PointEvent
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		var existing models.DailyClaim
		err = tx.Where("user_id = ? AND source = ? AND claim_date = ?", userID, source, today).First(&existing).Error
		if err == nil {
			return ErrAlreadyClaimedToday
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		marker := models.DailyClaim{
			UserID:    userID,
			Source:    source,
			ClaimDate: today,
			CreatedAt: s.Now(),
		}
		if err := tx.Create(&marker).Error; err != nil {
			// Unique index backstop: a racing claim already took today.
			return ErrAlreadyClaimedToday
		}

		event, err = appendEventTx(tx, user, source, points)
		return err
	})
	if err != nil {
		return nil, err
	}
	notifyEarned(s.Notify, userID, source, points)
	return event, nil
}

// ClaimReward redeems a catalog reward: debit and claim record commit
// together, then fulfillment is dispatched outside the transaction. When
// dispatch fails the debit stays committed and the persisted claim is
// returned together with ErrDeliveryFailed; support retries delivery from the
// claim record.
func (s *ClaimService) ClaimReward(userID uint, rewardID, email, name string) (*models.ClaimedReward, error) {
	reward, ok := s.Catalog.Lookup(rewardID)
	if !ok {
		return nil, ErrUnknownReward
	}

	claim := models.ClaimedReward{
		ID:             uuid.NewString(),
		UserID:         userID,
		RewardID:       reward.ID,
		RewardTitle:    reward.Title,
		PointsSpent:    reward.CostPoints,
		RecipientEmail: email,
		RecipientName:  name,
		CreatedAt:      s.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if reward.CostPoints > user.TotalPoints {
			return ErrInsufficientBalance
		}
		if _, err := appendEventTx(tx, user, models.SourceRedeem, -reward.CostPoints); err != nil {
			return err
		}
		return tx.Create(&claim).Error
	})
	if err != nil {
		return nil, err
	}
	notifyEarned(s.Notify, userID, models.SourceRedeem, -reward.CostPoints)

	if s.Dispatcher != nil {
		if err := s.Dispatcher.Dispatch(email, name, reward.Title); err != nil {
			return &claim, ErrDeliveryFailed
		}
		claim.Delivered = true
		// Delivery bookkeeping only; the claim itself is already committed.
		s.DB.Model(&models.ClaimedReward{}).Where("id = ?", claim.ID).Update("delivered", true)
	}
	return &claim, nil
}

// ListClaims returns the user's redemption history, newest first.
func (s *ClaimService) ListClaims(userID uint) ([]models.ClaimedReward, error) {
	var claims []models.ClaimedReward
	err := s.DB.Where("user_id = ?", userID).Order("created_at DESC").Find(&claims).Error
	return claims, err
}
