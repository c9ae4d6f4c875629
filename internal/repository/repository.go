// Package repository implements all database queries for the ticketing system.
// It uses pgx directly (no ORM). Every method runs on the transaction carried
// by ctx when there is one, so services can compose several calls atomically.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/database"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with a uniqueness rule.
	ErrConflict = errors.New("conflict")

	// ErrCapacityReached is returned by the ledger when an increment would
	// push registered_count past capacity.
	ErrCapacityReached = errors.New("event capacity reached")

	// ErrTicketCodeTaken is returned when a generated ticket code collides.
	ErrTicketCodeTaken = errors.New("ticket code already exists")

	// ErrInvalidState is returned when a conditional write finds the row in
	// an unexpected state.
	ErrInvalidState = errors.New("invalid state")
)

// conn is embedded by every repository.
type conn struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// db returns the executor for ctx and a context bounded by the query timeout.
// Inside a transaction the transaction's own deadline applies.
func (c conn) db(ctx context.Context) (database.DBTX, context.Context, context.CancelFunc) {
	if tx, ok := database.TxFrom(ctx); ok {
		return tx, ctx, func() {}
	}
	if c.timeout <= 0 {
		return c.pool, ctx, func() {}
	}
	tctx, cancel := context.WithTimeout(ctx, c.timeout)
	return c.pool, tctx, cancel
}
