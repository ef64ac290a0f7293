package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/models"
)

type fakeDispatcher struct {
	sent []string
	fail bool
}

func (d *fakeDispatcher) Dispatch(email, name, rewardTitle string) error {
	if d.fail {
		return fmt.Errorf("smtp: connection refused")
	}
	d.sent = append(d.sent, rewardTitle)
	return nil
}

func testCatalog(t *testing.T) *config.Catalog {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return catalog
}

func TestClaimDailyActionOncePerDay(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewClaimService(db, testCatalog(t), nil)
	user := createUser(t, db, "alice")

	event, err := svc.ClaimDailyAction(user.ID, models.SourceTryTool)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if event.Delta != 10 {
		t.Fatalf("try_tool delta: got %d want 10", event.Delta)
	}
	if got := mustBalance(t, ledger, user.ID); got != 10 {
		t.Fatalf("balance after claim: got %d want 10", got)
	}

	if _, err := svc.ClaimDailyAction(user.ID, models.SourceTryTool); !errors.Is(err, ErrAlreadyClaimedToday) {
		t.Fatalf("second claim: want ErrAlreadyClaimedToday, got %v", err)
	}
	if got := mustBalance(t, ledger, user.ID); got != 10 {
		t.Fatalf("balance after rejected claim: got %d want 10", got)
	}
	checkReplay(t, ledger, user.ID)
}

func TestClaimDailyActionSourcesIndependent(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewClaimService(db, testCatalog(t), nil)
	user := createUser(t, db, "alice")

	cases := []struct {
		source models.PointSource
		points int
	}{
		{models.SourceTryTool, 10},
		{models.SourceShareStack, 25},
		{models.SourceReview, 15},
	}
	total := 0
	for _, tc := range cases {
		event, err := svc.ClaimDailyAction(user.ID, tc.source)
		if err != nil {
			t.Fatalf("claim %s: %v", tc.source, err)
		}
		if event.Delta != tc.points {
			t.Fatalf("%s delta: got %d want %d", tc.source, event.Delta, tc.points)
		}
		total += tc.points
	}
	if got := mustBalance(t, ledger, user.ID); got != total {
		t.Fatalf("balance: got %d want %d", got, total)
	}
}

func TestClaimDailyActionRejectsUnsupportedSource(t *testing.T) {
	db := newTestDB(t)
	svc := NewClaimService(db, testCatalog(t), nil)
	user := createUser(t, db, "alice")

	for _, source := range []models.PointSource{models.SourceDailyStreak, models.SourceRedeem, "made_up"} {
		if _, err := svc.ClaimDailyAction(user.ID, source); !errors.Is(err, ErrUnsupportedSource) {
			t.Fatalf("source %s: want ErrUnsupportedSource, got %v", source, err)
		}
	}
}

func TestClaimRewardDebitsAndRecords(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	dispatcher := &fakeDispatcher{}
	svc := NewClaimService(db, testCatalog(t), dispatcher)
	user := createUser(t, db, "alice")

	if _, err := ledger.RecordEvent(user.ID, models.SourceShareStack, 600); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	claim, err := svc.ClaimReward(user.ID, "amazon-gift-card-5", "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claim.PointsSpent != 500 || !claim.Delivered {
		t.Fatalf("unexpected claim: %+v", claim)
	}
	if got := mustBalance(t, ledger, user.ID); got != 100 {
		t.Fatalf("balance after claim: got %d want 100", got)
	}
	if len(dispatcher.sent) != 1 {
		t.Fatalf("dispatcher calls: got %d want 1", len(dispatcher.sent))
	}

	var stored models.ClaimedReward
	if err := db.Where("id = ?", claim.ID).First(&stored).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if !stored.Delivered {
		t.Fatal("stored claim not marked delivered")
	}
	checkReplay(t, ledger, user.ID)
}

func TestClaimRewardNeverOverdraws(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewClaimService(db, testCatalog(t), &fakeDispatcher{})
	user := createUser(t, db, "alice")

	if _, err := ledger.RecordEvent(user.ID, models.SourceShareStack, 1000); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	// cash-transfer-10 costs 1500.
	if _, err := svc.ClaimReward(user.ID, "cash-transfer-10", "alice@example.com", "Alice"); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if got := mustBalance(t, ledger, user.ID); got != 1000 {
		t.Fatalf("balance after rejection: got %d want 1000", got)
	}

	var n int64
	if err := db.Model(&models.ClaimedReward{}).Where("user_id = ?", user.ID).Count(&n).Error; err != nil {
		t.Fatalf("count claims: %v", err)
	}
	if n != 0 {
		t.Fatalf("rejected claim left %d records", n)
	}
}

func TestClaimRewardRejectsUnknownReward(t *testing.T) {
	db := newTestDB(t)
	svc := NewClaimService(db, testCatalog(t), &fakeDispatcher{})
	user := createUser(t, db, "alice")

	if _, err := svc.ClaimReward(user.ID, "free-yacht", "alice@example.com", "Alice"); !errors.Is(err, ErrUnknownReward) {
		t.Fatalf("want ErrUnknownReward, got %v", err)
	}
}

func TestClaimRewardKeepsDebitWhenDeliveryFails(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	dispatcher := &fakeDispatcher{fail: true}
	svc := NewClaimService(db, testCatalog(t), dispatcher)
	user := createUser(t, db, "alice")

	if _, err := ledger.RecordEvent(user.ID, models.SourceShareStack, 600); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	claim, err := svc.ClaimReward(user.ID, "amazon-gift-card-5", "alice@example.com", "Alice")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Fatalf("want ErrDeliveryFailed, got %v", err)
	}
	if claim == nil {
		t.Fatal("failed delivery must still return the persisted claim")
	}
	if claim.Delivered {
		t.Fatal("undelivered claim marked delivered")
	}
	if got := mustBalance(t, ledger, user.ID); got != 100 {
		t.Fatalf("debit must stay committed: got %d want 100", got)
	}

	var stored models.ClaimedReward
	if err := db.Where("id = ?", claim.ID).First(&stored).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if stored.Delivered {
		t.Fatal("stored claim marked delivered after failed dispatch")
	}
	checkReplay(t, ledger, user.ID)
}

func TestListClaims(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	svc := NewClaimService(db, testCatalog(t), &fakeDispatcher{})
	user := createUser(t, db, "alice")

	if _, err := ledger.RecordEvent(user.ID, models.SourceShareStack, 2000); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	for _, id := range []string{"amazon-gift-card-5", "amazon-gift-card-10"} {
		if _, err := svc.ClaimReward(user.ID, id, "alice@example.com", "Alice"); err != nil {
			t.Fatalf("claim %s: %v", id, err)
		}
	}

	claims, err := svc.ListClaims(user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("claims: got %d want 2", len(claims))
	}
}
