package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotency_CreateGetExpireDuplicate(t *testing.T) {
	db := newDB(t, "idem_basic")
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "l1", "s1", "k1", "result-1", 201, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ResultID != "result-1" || rec.Status != 201 {
		t.Fatalf("record = %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "l1", "s1", "k1", now)
	if err != nil || got.ID != rec.ID {
		t.Fatalf("GetIdempotency: %+v err=%v", got, err)
	}

	// Same tuple again is a duplicate.
	if _, err := CreateIdempotency(ctx, db, "l1", "s1", "k1", "result-2", 201, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Different session with the same key is its own record.
	if _, err := CreateIdempotency(ctx, db, "l1", "s2", "k1", "result-3", 200, time.Hour); err != nil {
		t.Fatalf("cross-session create: %v", err)
	}

	// Expired records do not match.
	if _, err := GetIdempotency(ctx, db, "l1", "s1", "k1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired, got %v", err)
	}
}

func TestGetIdempotency_BlankSessionShortCircuits(t *testing.T) {
	db := newDB(t, "idem_blank")
	if _, err := GetIdempotency(context.Background(), db, "l1", "  ", "k", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
