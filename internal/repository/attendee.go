package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

// AttendeeInput describes the attendee named on a registration form.
type AttendeeInput struct {
	Email    string
	FullName string
	Company  string
}

// PlaceholderPasswordHash hashes a random secret that is never shown to
// anyone. Accounts created through registration therefore cannot log in
// until a password reset sets a known credential.
func PlaceholderPasswordHash() (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash placeholder password: %w", err)
	}
	return string(hash), nil
}

// AttendeeRepository resolves attendees in the users table.
type AttendeeRepository struct {
	conn
}

// NewAttendeeRepository constructs an AttendeeRepository.
func NewAttendeeRepository(pool *pgxpool.Pool, timeout time.Duration) *AttendeeRepository {
	return &AttendeeRepository{conn{pool: pool, timeout: timeout}}
}

// FindByEmail looks a user up by its (lower-case) email, whatever its role.
func (r *AttendeeRepository) FindByEmail(ctx context.Context, email string) (*model.Attendee, error) {
	db, ctx, cancel := r.db(ctx)
	defer cancel()

	var a model.Attendee
	err := db.QueryRow(ctx,
		`SELECT id, email, full_name, company, role, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&a.ID, &a.Email, &a.FullName, &a.Company, &a.Role, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &a, nil
}

// FindOrCreate returns the user owning the email, creating an attendee with
// a placeholder password when none exists. created reports whether this call
// inserted the row. Two concurrent calls for the same new email both resolve
// to the single row that wins the insert; only the winner sees created.
func (r *AttendeeRepository) FindOrCreate(ctx context.Context, in AttendeeInput) (_ *model.Attendee, created bool, err error) {
	existing, err := r.FindByEmail(ctx, in.Email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	hash, err := PlaceholderPasswordHash()
	if err != nil {
		return nil, false, err
	}

	db, qctx, cancel := r.db(ctx)
	defer cancel()

	a := model.Attendee{
		ID:        uuid.NewString(),
		Email:     in.Email,
		FullName:  in.FullName,
		Company:   in.Company,
		Role:      model.RoleAttendee,
		CreatedAt: time.Now().UTC(),
	}
	tag, err := db.Exec(qctx,
		`INSERT INTO users (id, email, password_hash, full_name, company, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (email) DO NOTHING`,
		a.ID, a.Email, hash, a.FullName, a.Company, string(a.Role), a.CreatedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert attendee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Lost the race to a concurrent insert of the same email.
		winner, err := r.FindByEmail(ctx, in.Email)
		return winner, false, err
	}
	return &a, true, nil
}
