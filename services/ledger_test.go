package services

import (
	"errors"
	"testing"

	"github.com/flowvahq/rewards/models"
)

func TestRecordEventUpdatesBalance(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createUser(t, db, "alice")

	cases := []struct {
		source models.PointSource
		delta  int
		want   int
	}{
		{models.SourceTryTool, 10, 10},
		{models.SourceShareStack, 25, 35},
		{models.SourceReferral, 25, 60},
		{models.SourceRedeem, -40, 20},
	}
	for _, c := range cases {
		event, err := ledger.RecordEvent(user.ID, c.source, c.delta)
		if err != nil {
			t.Fatalf("record %s %+d: %v", c.source, c.delta, err)
		}
		if event.Delta != c.delta || event.Source != c.source {
			t.Fatalf("event mismatch: got %+v", event)
		}
		if got := mustBalance(t, ledger, user.ID); got != c.want {
			t.Fatalf("balance after %s: got %d want %d", c.source, got, c.want)
		}
		checkReplay(t, ledger, user.ID)
	}

	if n := countEvents(t, db, user.ID, ""); n != int64(len(cases)) {
		t.Fatalf("event count: got %d want %d", n, len(cases))
	}
}

func TestRecordEventRejectsZeroDelta(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createUser(t, db, "alice")

	if _, err := ledger.RecordEvent(user.ID, models.SourceTryTool, 0); !errors.Is(err, ErrInvalidDelta) {
		t.Fatalf("want ErrInvalidDelta, got %v", err)
	}
	if n := countEvents(t, db, user.ID, ""); n != 0 {
		t.Fatalf("zero delta must not create events, got %d", n)
	}
}

func TestDebitNeverOverdraws(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createUser(t, db, "alice")

	if _, err := ledger.RecordEvent(user.ID, models.SourceReferral, 1000); err != nil {
		t.Fatalf("fund user: %v", err)
	}

	if _, err := ledger.Debit(user.ID, 1500, models.SourceRedeem); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance, got %v", err)
	}
	if got := mustBalance(t, ledger, user.ID); got != 1000 {
		t.Fatalf("balance must be unchanged on failed debit, got %d", got)
	}
	if n := countEvents(t, db, user.ID, models.SourceRedeem); n != 0 {
		t.Fatalf("failed debit must not create events, got %d", n)
	}

	event, err := ledger.Debit(user.ID, 400, models.SourceRedeem)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if event.Delta != -400 {
		t.Fatalf("debit delta: got %d want -400", event.Delta)
	}
	if got := mustBalance(t, ledger, user.ID); got != 600 {
		t.Fatalf("balance after debit: got %d want 600", got)
	}
	checkReplay(t, ledger, user.ID)
}

func TestDebitRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createUser(t, db, "alice")

	for _, amount := range []int{0, -5} {
		if _, err := ledger.Debit(user.ID, amount, models.SourceRedeem); !errors.Is(err, ErrInvalidDelta) {
			t.Fatalf("amount %d: want ErrInvalidDelta, got %v", amount, err)
		}
	}
}

func TestHistoryPagination(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedgerService(db)
	user := createUser(t, db, "alice")

	for i := 0; i < 5; i++ {
		if _, err := ledger.RecordEvent(user.ID, models.SourceTryTool, 10); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	events, total, err := ledger.History(user.ID, 1, 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if total != 5 || len(events) != 2 {
		t.Fatalf("page 1: got total=%d len=%d", total, len(events))
	}
	// Newest first
	if events[0].ID < events[1].ID {
		t.Fatalf("history not newest first: %d before %d", events[0].ID, events[1].ID)
	}

	events, _, err = ledger.History(user.ID, 3, 2)
	if err != nil {
		t.Fatalf("history page 3: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("page 3: got len=%d want 1", len(events))
	}
}
