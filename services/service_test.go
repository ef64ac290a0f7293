package services

import (
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.SetForTesting(config.AppConfig{JWTSecret: "test-secret"})

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	// A single connection keeps the in-memory database alive for the test.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.PointEvent{},
		&models.ReferralLink{},
		&models.DailyClaim{},
		&models.ClaimedReward{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		ReferralCode: GenerateCode(),
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &user
}

func countEvents(t *testing.T, db *gorm.DB, userID uint, source models.PointSource) int64 {
	t.Helper()
	var n int64
	q := db.Model(&models.PointEvent{}).Where("user_id = ?", userID)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func mustBalance(t *testing.T, ledger *LedgerService, userID uint) int {
	t.Helper()
	balance, err := ledger.GetBalance(userID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	return balance
}

// checkReplay asserts the balance replay invariant: the cached balance must
// equal the sum of all ledger deltas for the user.
func checkReplay(t *testing.T, ledger *LedgerService, userID uint) {
	t.Helper()
	balance := mustBalance(t, ledger, userID)
	sum, err := ledger.SumEvents(userID)
	if err != nil {
		t.Fatalf("sum events: %v", err)
	}
	if balance != sum {
		t.Fatalf("replay invariant broken: balance=%d sum=%d", balance, sum)
	}
}
