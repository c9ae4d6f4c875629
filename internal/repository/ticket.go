package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

const (
	constraintTicketCode = "tickets_ticket_code_key"
	constraintTicketPair = "tickets_event_id_attendee_id_key"
)

const ticketColumns = `id, ticket_code, status, qr_code, checked_in_at,
	event_id, attendee_id, created_at, updated_at`

// ticketJoin selects a ticket together with its event and attendee.
const ticketJoin = `SELECT t.id, t.ticket_code, t.status, t.qr_code, t.checked_in_at,
	t.event_id, t.attendee_id, t.created_at, t.updated_at,
	e.id, e.title, e.description, e.location, e.capacity, e.registered_count,
	e.start_date, e.end_date, e.is_active, e.organizer_id, e.created_at,
	u.id, u.email, u.full_name, u.company, u.role, u.created_at
	FROM tickets t
	JOIN events e ON e.id = t.event_id
	JOIN users u ON u.id = t.attendee_id`

// TicketRepository handles persistence for tickets.
type TicketRepository struct {
	conn
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(pool *pgxpool.Pool, timeout time.Duration) *TicketRepository {
	return &TicketRepository{conn{pool: pool, timeout: timeout}}
}

// Create inserts a ticket. A duplicate ticket code yields ErrTicketCodeTaken,
// a second row for the same (event, attendee) pair yields ErrConflict.
//
// Inside a transaction the insert runs under a savepoint: a unique violation
// would otherwise abort the whole transaction and the caller could not retry
// with a fresh code.
func (r *TicketRepository) Create(ctx context.Context, t *model.Ticket) error {
	const q = `INSERT INTO tickets (` + ticketColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	args := []any{
		t.ID, t.TicketCode, string(t.Status), t.QRCode, t.CheckedInAt,
		t.EventID, t.AttendeeID, t.CreatedAt, t.UpdatedAt,
	}

	if tx, ok := database.TxFrom(ctx); ok {
		sp, err := tx.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin savepoint: %w", err)
		}
		if _, err := sp.Exec(ctx, q, args...); err != nil {
			_ = sp.Rollback(ctx)
			return translateInsert(err)
		}
		if err := sp.Commit(ctx); err != nil {
			return fmt.Errorf("release savepoint: %w", err)
		}
		return nil
	}

	db, ctx, cancel := r.db(ctx)
	defer cancel()
	if _, err := db.Exec(ctx, q, args...); err != nil {
		return translateInsert(err)
	}
	return nil
}

func translateInsert(err error) error {
	if name, ok := database.UniqueViolation(err); ok {
		switch name {
		case constraintTicketCode:
			return ErrTicketCodeTaken
		case constraintTicketPair:
			return ErrConflict
		}
		return fmt.Errorf("%w: %s", ErrConflict, name)
	}
	return fmt.Errorf("insert ticket: %w", err)
}

// GetByID returns a ticket with its event and attendee populated.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*model.Ticket, error) {
	return r.getJoined(ctx, ticketJoin+` WHERE t.id = $1`, id)
}

// GetByCode returns the ticket for a ticket code with relations populated.
func (r *TicketRepository) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	return r.getJoined(ctx, ticketJoin+` WHERE t.ticket_code = $1`, code)
}

// FindByPair returns the ticket of an attendee for an event, whatever its
// status. Cancelled tickets are returned too so they can be reactivated.
func (r *TicketRepository) FindByPair(ctx context.Context, eventID, attendeeID string) (*model.Ticket, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	var t model.Ticket
	err := scanTicket(db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE event_id = $1 AND attendee_id = $2`,
		eventID, attendeeID,
	), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find ticket by pair: %w", err)
	}
	return &t, nil
}

// GetForUpdate returns the bare ticket row and locks it for the rest of the
// surrounding transaction.
func (r *TicketRepository) GetForUpdate(ctx context.Context, id string) (*model.Ticket, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	var t model.Ticket
	err := scanTicket(db.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1 FOR UPDATE`, id,
	), &t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock ticket: %w", err)
	}
	return &t, nil
}

// List returns tickets matching the filter, newest first.
func (r *TicketRepository) List(ctx context.Context, f model.TicketFilter) ([]model.Ticket, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	var (
		where []string
		args  []any
	)
	if f.EventID != "" {
		args = append(args, f.EventID)
		where = append(where, fmt.Sprintf("t.event_id = $%d", len(args)))
	}
	if f.AttendeeID != "" {
		args = append(args, f.AttendeeID)
		where = append(where, fmt.Sprintf("t.attendee_id = $%d", len(args)))
	}
	q := ticketJoin
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY t.created_at DESC"

	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanJoined(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// Reactivate flips a cancelled ticket back to confirmed and stores the
// regenerated QR artifact. The ticket code is left untouched.
// Returns ErrInvalidState if the ticket is no longer cancelled.
func (r *TicketRepository) Reactivate(ctx context.Context, id, qrCode string, now time.Time) error {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	tag, err := db.Exec(ctx,
		`UPDATE tickets SET status = $2, qr_code = $3, updated_at = $4
		 WHERE id = $1 AND status = $5`,
		id, string(model.TicketConfirmed), qrCode, now, string(model.TicketCancelled),
	)
	if err != nil {
		return fmt.Errorf("reactivate ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOr(ctx, db, id, ErrInvalidState)
	}
	return nil
}

// SetStatus writes a new status. Moving into checked_in stamps checked_in_at
// only if it was never set; the timestamp is never overwritten.
func (r *TicketRepository) SetStatus(ctx context.Context, id string, status model.TicketStatus, now time.Time) error {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	tag, err := db.Exec(ctx,
		`UPDATE tickets SET status = $2, updated_at = $3,
		   checked_in_at = CASE WHEN $2 = 'checked_in' THEN COALESCE(checked_in_at, $3) ELSE checked_in_at END
		 WHERE id = $1`,
		id, string(status), now,
	)
	if err != nil {
		return fmt.Errorf("set ticket status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkCheckedIn is the check-in transition. It only succeeds while the ticket
// is confirmed or pending, so of two racing check-ins exactly one wins.
// It reports false when the ticket was not in a checkable status.
func (r *TicketRepository) MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	tag, err := db.Exec(ctx,
		`UPDATE tickets SET status = 'checked_in', updated_at = $2,
		   checked_in_at = COALESCE(checked_in_at, $2)
		 WHERE id = $1 AND status IN ('confirmed', 'pending')`,
		id, at,
	)
	if err != nil {
		return false, fmt.Errorf("check in ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Delete removes a ticket row.
func (r *TicketRepository) Delete(ctx context.Context, id string) error {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	tag, err := db.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TicketRepository) missingOr(ctx context.Context, db database.DBTX, id string, err error) error {
	var exists bool
	if qerr := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id = $1)`, id).Scan(&exists); qerr != nil {
		return fmt.Errorf("check ticket: %w", qerr)
	}
	if !exists {
		return ErrNotFound
	}
	return err
}

func (r *TicketRepository) getJoined(ctx context.Context, query, arg string) (*model.Ticket, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	t, err := scanJoined(db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func scanTicket(row pgx.Row, t *model.Ticket) error {
	return row.Scan(
		&t.ID, &t.TicketCode, &t.Status, &t.QRCode, &t.CheckedInAt,
		&t.EventID, &t.AttendeeID, &t.CreatedAt, &t.UpdatedAt,
	)
}

func scanJoined(row pgx.Row) (*model.Ticket, error) {
	var (
		t model.Ticket
		e model.Event
		a model.Attendee
	)
	err := row.Scan(
		&t.ID, &t.TicketCode, &t.Status, &t.QRCode, &t.CheckedInAt,
		&t.EventID, &t.AttendeeID, &t.CreatedAt, &t.UpdatedAt,
		&e.ID, &e.Title, &e.Description, &e.Location, &e.Capacity, &e.RegisteredCount,
		&e.StartDate, &e.EndDate, &e.IsActive, &e.OrganizerID, &e.CreatedAt,
		&a.ID, &a.Email, &a.FullName, &a.Company, &a.Role, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Event = &e
	t.Attendee = &a
	return &t, nil
}
