package services

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowvahq/rewards/models"
)

// LedgerService owns the append-only point ledger and the cached balance on
// the user row. Every event insert and its balance update happen in one
// transaction; no partial application is ever observable.
type LedgerService struct {
	DB *gorm.DB
}

// NewLedgerService creates a ledger service over the given database.
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// lockForUpdate applies a row lock where the dialect supports it. SQLite
// (used in tests) serializes writers on its own and rejects FOR UPDATE.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockUser loads the user row under a write lock so concurrent claims from
// the same user (double-click, second tab) serialize instead of losing updates.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := lockForUpdate(tx).First(&user, userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// appendEventTx inserts a ledger event and applies its delta to the already
// locked user row, persisting any other pending field changes on it. The
// caller owns the surrounding transaction.
func appendEventTx(tx *gorm.DB, user *models.User, source models.PointSource, delta int) (*models.PointEvent, error) {
	if delta == 0 {
		return nil, ErrInvalidDelta
	}
	event := models.PointEvent{
		UserID:    user.ID,
		Source:    source,
		Delta:     delta,
		CreatedAt: time.Now(),
	}
	if err := tx.Create(&event).Error; err != nil {
		return nil, err
	}
	user.TotalPoints += delta
	if err := tx.Save(user).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// RecordEvent appends an immutable point event and updates the cached balance
// atomically. Fails with ErrInvalidDelta when delta is zero.
func (s *LedgerService) RecordEvent(userID uint, source models.PointSource, delta int) (*models.PointEvent, error) {
	if delta == 0 {
		return nil, ErrInvalidDelta
	}
	var event *models.PointEvent
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		event, err = appendEventTx(tx, user, source, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// GetBalance returns the cached balance for the user.
func (s *LedgerService) GetBalance(userID uint) (int, error) {
	var user models.User
	if err := s.DB.First(&user, userID).Error; err != nil {
		return 0, err
	}
	return user.TotalPoints, nil
}

// SumEvents replays the ledger for a user. The result must always equal
// GetBalance; exposed for reconciliation and tests.
func (s *LedgerService) SumEvents(userID uint) (int, error) {
	var sum *int
	err := s.DB.Model(&models.PointEvent{}).
		Where("user_id = ?", userID).
		Select("SUM(delta)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

// Debit records a negative event for the given amount. Fails with
// ErrInsufficientBalance when the amount exceeds the current balance; the
// balance is untouched on failure.
func (s *LedgerService) Debit(userID uint, amount int, source models.PointSource) (*models.PointEvent, error) {
	if amount <= 0 {
		return nil, ErrInvalidDelta
	}
	var event *models.PointEvent
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if amount > user.TotalPoints {
			return ErrInsufficientBalance
		}
		event, err = appendEventTx(tx, user, source, -amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// History returns the user's point events, newest first.
func (s *LedgerService) History(userID uint, page, pageSize int) ([]models.PointEvent, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	var total int64
	if err := s.DB.Model(&models.PointEvent{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var events []models.PointEvent
	err := s.DB.Where("user_id = ?", userID).
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}
