package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger owns events.registered_count. No other code writes that column.
//
// Both adjustments are single conditional UPDATE statements, so the counter
// never goes through a read-modify-write in application code and can neither
// exceed capacity nor drop below zero, whatever the interleaving.
type Ledger struct {
	conn
}

// NewLedger constructs a Ledger.
func NewLedger(pool *pgxpool.Pool, timeout time.Duration) *Ledger {
	return &Ledger{conn{pool: pool, timeout: timeout}}
}

// Increment adds one registration to the event. It returns
// ErrCapacityReached when the event is already full.
func (l *Ledger) Increment(ctx context.Context, eventID string) error {
	return l.adjust(ctx, eventID,
		`UPDATE events SET registered_count = registered_count + 1
		 WHERE id = $1 AND registered_count < capacity`,
		ErrCapacityReached,
	)
}

// Decrement removes one registration from the event. It returns
// ErrInvalidState when the counter is already zero.
func (l *Ledger) Decrement(ctx context.Context, eventID string) error {
	return l.adjust(ctx, eventID,
		`UPDATE events SET registered_count = registered_count - 1
		 WHERE id = $1 AND registered_count > 0`,
		ErrInvalidState,
	)
}

func (l *Ledger) adjust(ctx context.Context, eventID, query string, guardErr error) error {
	db, ctx, cancel := l.db(ctx)
	defer cancel()

	tag, err := db.Exec(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("adjust registered_count: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the event is missing or the guard rejected the update.
	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
		return fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return guardErr
}
