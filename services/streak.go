package services

import (
	"errors"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/models"
)

const dateLayout = "2006-01-02"

// wheelOutcomes are the regular bonus wheel values, each equally likely. The
// jackpot is drawn separately with its own configured odds.
var wheelOutcomes = []int{0, 50, 100, 200, 500, 1000}

// StreakService tracks consecutive-day check-ins with once-per-day claim
// semantics. All dates are UTC calendar dates stored as YYYY-MM-DD strings on
// the user row.
type StreakService struct {
	DB     *gorm.DB
	Notify Notifier

	// Now and Roll are swappable for tests. Roll(n) returns [0, n).
	Now  func() time.Time
	Roll func(n int) int
}

// NewStreakService creates a streak service over the given database.
func NewStreakService(db *gorm.DB) *StreakService {
	return &StreakService{DB: db, Now: time.Now, Roll: rand.Intn}
}

func (s *StreakService) today() string {
	return s.Now().UTC().Format(dateLayout)
}

func yesterdayOf(today string) string {
	t, err := time.Parse(dateLayout, today)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dateLayout)
}

// StreakStatus is the evaluated state of a user's streak.
type StreakStatus struct {
	Streak          int    `json:"streak"`
	LastClaimedDate string `json:"last_claimed_date,omitempty"`
	ClaimedToday    bool   `json:"claimed_today"`
	SpinAvailable   bool   `json:"spin_available"`
	TotalPoints     int    `json:"total_points"`
}

// CheckinResult reports a successful daily claim.
type CheckinResult struct {
	Streak        int  `json:"streak"`
	PointsAwarded int  `json:"points_awarded"`
	SpinUnlocked  bool `json:"spin_unlocked"`
}

// SpinResult reports the outcome of a bonus wheel spin. Points may be zero.
type SpinResult struct {
	Points  int  `json:"points"`
	Jackpot bool `json:"jackpot"`
}

// Status evaluates the user's streak. A last-claimed date older than yesterday
// means the streak is broken; the stale row is repaired here rather than by a
// background job, so the read has a correcting side effect.
func (s *StreakService) Status(userID uint) (*StreakStatus, error) {
	today := s.today()
	yesterday := yesterdayOf(today)

	var status StreakStatus
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if user.LastClaimedDate != "" && user.LastClaimedDate != today && user.LastClaimedDate != yesterday {
			user.CurrentStreak = 0
			user.LastClaimedDate = ""
			if err := tx.Save(user).Error; err != nil {
				return err
			}
		}
		spin, err := s.spinAvailableTx(tx, user, today)
		if err != nil {
			return err
		}
		status = StreakStatus{
			Streak:          user.CurrentStreak,
			LastClaimedDate: user.LastClaimedDate,
			ClaimedToday:    user.LastClaimedDate == today,
			SpinAvailable:   spin,
			TotalPoints:     user.TotalPoints,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// ClaimToday performs the daily check-in. Claiming twice on the same UTC date
// returns ErrAlreadyClaimed and credits nothing. Streak, last-claimed date and
// the ledger event are committed together.
func (s *StreakService) ClaimToday(userID uint) (*CheckinResult, error) {
	cfg := config.Get()
	today := s.today()
	yesterday := yesterdayOf(today)

	var result CheckinResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if user.LastClaimedDate == today {
			return ErrAlreadyClaimed
		}

		streak := 1
		if user.LastClaimedDate == yesterday {
			streak = user.CurrentStreak + 1
		}

		points := cfg.StreakBasePoints
		if streak > cfg.StreakLongAfter {
			points = cfg.StreakLongPoints
		}

		user.CurrentStreak = streak
		user.LastClaimedDate = today
		if _, err := appendEventTx(tx, user, models.SourceDailyStreak, points); err != nil {
			return err
		}

		result = CheckinResult{
			Streak:        streak,
			PointsAwarded: points,
			SpinUnlocked:  streak%7 == 0,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	notifyEarned(s.Notify, userID, models.SourceDailyStreak, result.PointsAwarded)
	return &result, nil
}

// spinAvailableTx reports whether the weekly bonus spin is open for the user:
// today's check-in landed on a 7-day multiple and the spin has not been used.
func (s *StreakService) spinAvailableTx(tx *gorm.DB, user *models.User, today string) (bool, error) {
	if user.CurrentStreak == 0 || user.CurrentStreak%7 != 0 || user.LastClaimedDate != today {
		return false, nil
	}
	var marker models.DailyClaim
	err := tx.Where("user_id = ? AND source = ? AND claim_date = ?",
		user.ID, models.SourceStreakSpin, today).First(&marker).Error
	if err == nil {
		return false, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true, nil
	}
	return false, err
}

// ClaimBonusSpin runs the weekly reward wheel. Gated on the streak sitting on
// a 7-day multiple with today's check-in done, and guarded by a one-shot
// marker for the unlock day. A zero outcome consumes the spin but records no
// ledger event, since ledger deltas are non-zero by definition.
func (s *StreakService) ClaimBonusSpin(userID uint) (*SpinResult, error) {
	cfg := config.Get()
	today := s.today()

	var result SpinResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		open, err := s.spinAvailableTx(tx, user, today)
		if err != nil {
			return err
		}
		if user.CurrentStreak == 0 || user.CurrentStreak%7 != 0 || user.LastClaimedDate != today {
			return ErrSpinNotUnlocked
		}
		if !open {
			return ErrAlreadyClaimed
		}

		marker := models.DailyClaim{
			UserID:    userID,
			Source:    models.SourceStreakSpin,
			ClaimDate: today,
			CreatedAt: s.Now(),
		}
		if err := tx.Create(&marker).Error; err != nil {
			// The unique index is the backstop against a racing second spin.
			return ErrAlreadyClaimed
		}

		if s.Roll(cfg.SpinJackpotOneIn) == 0 {
			result = SpinResult{Points: cfg.SpinJackpotPoints, Jackpot: true}
		} else {
			result = SpinResult{Points: wheelOutcomes[s.Roll(len(wheelOutcomes))]}
		}

		if result.Points > 0 {
			if _, err := appendEventTx(tx, user, models.SourceStreakSpin, result.Points); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Points > 0 {
		notifyEarned(s.Notify, userID, models.SourceStreakSpin, result.Points)
	}
	return &result, nil
}
