// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . AttendeeDirectory,EventPublisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/apperr"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/events"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
)

var tracer = otel.Tracer("github.com/Shivanand-hulikatti/event-ticketing/internal/service")

// Transactor runs fn inside one storage transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventStore persists events.
type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	GetForUpdate(ctx context.Context, id string) (*model.Event, error)
}

// Ledger adjusts an event's registered count by one, atomically.
type Ledger interface {
	Increment(ctx context.Context, eventID string) error
	Decrement(ctx context.Context, eventID string) error
}

// TicketStore persists tickets.
type TicketStore interface {
	Create(ctx context.Context, t *model.Ticket) error
	GetByID(ctx context.Context, id string) (*model.Ticket, error)
	GetByCode(ctx context.Context, code string) (*model.Ticket, error)
	FindByPair(ctx context.Context, eventID, attendeeID string) (*model.Ticket, error)
	GetForUpdate(ctx context.Context, id string) (*model.Ticket, error)
	List(ctx context.Context, f model.TicketFilter) ([]model.Ticket, error)
	Reactivate(ctx context.Context, id, qrCode string, now time.Time) error
	SetStatus(ctx context.Context, id string, status model.TicketStatus, now time.Time) error
	MarkCheckedIn(ctx context.Context, id string, at time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
}

// AttendeeDirectory resolves the attendee behind a registration email,
// creating the account when it does not exist yet. created is true only for
// the call that inserted the account.
type AttendeeDirectory interface {
	FindOrCreate(ctx context.Context, in repository.AttendeeInput) (attendee *model.Attendee, created bool, err error)
}

// QRRenderer renders the QR artifact of a ticket code.
type QRRenderer interface {
	PNG(ctx context.Context, code string) ([]byte, error)
	DataURL(ctx context.Context, code string) (string, error)
}

// EventPublisher delivers ticket lifecycle events.
type EventPublisher = events.Publisher

// EventService orchestrates event-related business operations.
type EventService struct {
	events  EventStore
	tickets TicketStore
	now     func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore, tickets TicketStore) *EventService {
	return &EventService{events: events, tickets: tickets, now: time.Now}
}

// CreateEvent validates the request and stores a new active event owned by
// organizerID.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest, organizerID string) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, apperr.BadRequest("event title is required")
	}
	if req.Capacity <= 0 {
		return nil, apperr.BadRequest("capacity must be a positive integer")
	}
	if req.Capacity > 100_000 {
		return nil, apperr.BadRequest("capacity cannot exceed 100,000")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, apperr.BadRequest("endDate must be after startDate")
	}
	if organizerID == "" {
		return nil, apperr.BadRequest("organizer is required")
	}

	event := &model.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		Capacity:    req.Capacity,
		StartDate:   req.StartDate.UTC(),
		EndDate:     req.EndDate.UTC(),
		IsActive:    true,
		OrganizerID: organizerID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// ListEvents returns all events.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, apperr.BadRequest("event id is required")
	}
	if !validID(id) {
		return nil, ErrEventNotFound
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// ListEventTickets returns all tickets of an event.
func (s *EventService) ListEventTickets(ctx context.Context, eventID string) ([]model.Ticket, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.tickets.List(ctx, model.TicketFilter{EventID: eventID})
}

// isValidEmail does a basic structural check; handlers run the full
// validator before the service is reached.
func isValidEmail(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	return len(parts[0]) > 0 && strings.Contains(parts[1], ".")
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// outcome is the metrics label for an operation result.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return "not_found"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindBadRequest:
		return "rejected"
	}
	return "error"
}
