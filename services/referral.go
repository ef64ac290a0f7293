package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/models"
)

// ReferralService attributes signups to referrers exactly once. The unique
// index on referral_links.referred_user_id is the durable guard against a
// user being referred twice, and crediting rides on a conditional update so
// only the false-to-true transition pays out.
type ReferralService struct {
	DB     *gorm.DB
	Notify Notifier

	Now func() time.Time
}

// NewReferralService creates a referral service over the given database.
func NewReferralService(db *gorm.DB) *ReferralService {
	return &ReferralService{DB: db, Now: time.Now}
}

// GenerateCode produces a short shareable referral code.
func GenerateCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// LinkReferral records that the given code referred userID. Fails with
// ErrInvalidCode when no user owns the code (or the user referred themselves)
// and ErrAlreadyLinked when the user already has a referrer.
func (s *ReferralService) LinkReferral(referredUserID uint, code string) (*models.ReferralLink, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidCode
	}

	var referrer models.User
	if err := s.DB.Where("referral_code = ?", code).First(&referrer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, err
	}
	if referrer.ID == referredUserID {
		return nil, ErrInvalidCode
	}

	var existing models.ReferralLink
	if err := s.DB.Where("referred_user_id = ?", referredUserID).First(&existing).Error; err == nil {
		return nil, ErrAlreadyLinked
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	link := models.ReferralLink{
		ReferrerID:     referrer.ID,
		ReferredUserID: referredUserID,
		CodeUsed:       code,
		CreatedAt:      s.Now(),
	}
	if err := s.DB.Create(&link).Error; err != nil {
		// Unique index backstop when two sessions race the same signup.
		return nil, ErrAlreadyLinked
	}
	return &link, nil
}

// CreditIfEligible pays the referrer once the referred user has qualified.
// The referred account must still be inside the eligibility window. Safe
// under concurrent and repeated invocation: the conditional update means a
// second call on an already credited link is a no-op.
func (s *ReferralService) CreditIfEligible(link *models.ReferralLink) error {
	if link == nil || link.Credited {
		return nil
	}
	cfg := config.Get()

	var referred models.User
	if err := s.DB.First(&referred, link.ReferredUserID).Error; err != nil {
		return err
	}
	if s.Now().Sub(referred.CreatedAt) > time.Duration(cfg.ReferralWindowDays)*24*time.Hour {
		return nil
	}

	credited := false
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		now := s.Now()
		res := tx.Model(&models.ReferralLink{}).
			Where("id = ? AND credited = ?", link.ID, false).
			Updates(map[string]interface{}{"credited": true, "credited_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // another session got there first
		}

		referrer, err := lockUser(tx, link.ReferrerID)
		if err != nil {
			return err
		}
		if _, err := appendEventTx(tx, referrer, models.SourceReferral, cfg.ReferralPoints); err != nil {
			return err
		}
		link.Credited = true
		link.CreditedAt = &now
		credited = true
		return nil
	})
	if err != nil {
		return err
	}
	if credited {
		notifyEarned(s.Notify, link.ReferrerID, models.SourceReferral, cfg.ReferralPoints)
	}
	return nil
}

// CreditOnQualifyingAction is the hook invoked after a user's first
// point-earning actions. It finds the user's uncredited link, if any, and
// attempts the credit. No-op when the user was not referred.
func (s *ReferralService) CreditOnQualifyingAction(userID uint) error {
	var link models.ReferralLink
	err := s.DB.Where("referred_user_id = ? AND credited = ?", userID, false).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return s.CreditIfEligible(&link)
}

// InfoFor summarizes a user's referral standing for display.
func (s *ReferralService) InfoFor(userID uint) (referred int64, credited int64, err error) {
	if err = s.DB.Model(&models.ReferralLink{}).Where("referrer_id = ?", userID).Count(&referred).Error; err != nil {
		return
	}
	err = s.DB.Model(&models.ReferralLink{}).Where("referrer_id = ? AND credited = ?", userID, true).Count(&credited).Error
	return
}
