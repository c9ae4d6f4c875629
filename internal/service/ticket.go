package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/apperr"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/events"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/logger/sl"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/metrics"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
)

// maxCodeAttempts bounds ticket code regeneration after collisions.
const maxCodeAttempts = 5

// Deps are the collaborators of a TicketService.
type Deps struct {
	Tx        Transactor
	Events    EventStore
	Ledger    Ledger
	Tickets   TicketStore
	Attendees AttendeeDirectory
	QR        QRRenderer
	Publisher EventPublisher
	Metrics   *metrics.Metrics
	Log       *slog.Logger
}

// Option customises a TicketService.
type Option func(*TicketService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *TicketService) { s.now = now }
}

// WithCodeGenerator replaces NewTicketCode.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *TicketService) { s.newCode = gen }
}

// TicketService owns the ticket lifecycle: registration, check-in and the
// status changes that keep each event's registered count in step with its
// tickets. Every mutation runs in one transaction together with its ledger
// adjustment.
type TicketService struct {
	tx        Transactor
	events    EventStore
	ledger    Ledger
	tickets   TicketStore
	attendees AttendeeDirectory
	qr        QRRenderer
	publisher EventPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger

	now     func() time.Time
	newCode CodeGenerator
}

// NewTicketService constructs a TicketService.
func NewTicketService(d Deps, opts ...Option) *TicketService {
	s := &TicketService{
		tx:        d.Tx,
		events:    d.Events,
		ledger:    d.Ledger,
		tickets:   d.Tickets,
		attendees: d.Attendees,
		qr:        d.QR,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		log:       d.Log,
		now:       time.Now,
		newCode:   NewTicketCode,
	}
	if s.publisher == nil {
		s.publisher = events.Nop{}
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	s.log = s.log.With(sl.Module("service.tickets"))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterInput is a registration form after decoding.
type RegisterInput struct {
	EventID  string
	Email    string
	FullName string
	Company  string
}

func (in RegisterInput) normalize() RegisterInput {
	in.EventID = strings.TrimSpace(in.EventID)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FullName = strings.TrimSpace(in.FullName)
	in.Company = strings.TrimSpace(in.Company)
	return in
}

func (in RegisterInput) validate() error {
	if in.EventID == "" {
		return apperr.BadRequest("eventId is required")
	}
	if !validID(in.EventID) {
		return apperr.BadRequest("eventId must be a UUID")
	}
	if in.Email == "" {
		return apperr.BadRequest("email is required")
	}
	if !isValidEmail(in.Email) {
		return apperr.BadRequest("email is not a valid email address")
	}
	if in.FullName == "" {
		return apperr.BadRequest("fullName is required")
	}
	return nil
}

// Register issues a ticket for the attendee owning in.Email, creating the
// attendee if needed. actingUserID is the authenticated caller, or "" for an
// anonymous registration; a caller may not register an email that belongs to
// a different account.
//
// The event row is locked for the whole transaction, so the capacity check
// and the ledger increment are atomic with respect to every other
// registration for the same event. A cancelled ticket for the same pair is
// reactivated with its original code instead of issuing a new one.
func (s *TicketService) Register(ctx context.Context, in RegisterInput, actingUserID string) (_ *model.Ticket, err error) {
	in = in.normalize()
	ctx, span := tracer.Start(ctx, "TicketService.Register",
		trace.WithAttributes(attribute.String("event.id", in.EventID)))
	defer func() { endSpan(span, err) }()

	if err := in.validate(); err != nil {
		s.metrics.Registration(outcome(err))
		return nil, err
	}

	var (
		out         *model.Ticket
		reactivated bool
	)
	now := s.now()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		event, err := s.events.GetForUpdate(ctx, in.EventID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrEventNotFound
			}
			return fmt.Errorf("lock event: %w", err)
		}
		if !event.IsActive {
			return ErrEventInactive
		}
		if event.HasStarted(now) {
			return ErrEventStarted
		}
		if event.IsFull() {
			return ErrEventFull
		}

		attendee, created, err := s.attendees.FindOrCreate(ctx, repository.AttendeeInput{
			Email:    in.Email,
			FullName: in.FullName,
			Company:  in.Company,
		})
		if err != nil {
			return fmt.Errorf("resolve attendee: %w", err)
		}
		// A freshly created account has no owner yet.
		if actingUserID != "" && !created && attendee.ID != actingUserID {
			return ErrEmailOwnedByOther
		}

		var ticketID string
		existing, err := s.tickets.FindByPair(ctx, event.ID, attendee.ID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			ticketID, err = s.issue(ctx, event.ID, attendee.ID, now)
			if err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("find existing ticket: %w", err)
		case existing.Status == model.TicketCancelled:
			if err := s.reactivate(ctx, existing, now); err != nil {
				return err
			}
			ticketID, reactivated = existing.ID, true
		default:
			return ErrAlreadyRegistered
		}

		if err := s.adjust(ctx, event.ID, +1); err != nil {
			return err
		}

		out, err = s.tickets.GetByID(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("reload ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		s.metrics.Registration(outcome(err))
		s.logFailure("registration", err, slog.String("event_id", in.EventID))
		return nil, err
	}

	typ, label := events.TicketRegistered, "created"
	if reactivated {
		typ, label = events.TicketReactivated, "reactivated"
	}
	s.metrics.Registration(label)
	s.metrics.Ledger(+1)
	s.log.Info("ticket registered",
		slog.String("ticket_id", out.ID),
		slog.String("event_id", out.EventID),
		slog.String("attendee_id", out.AttendeeID),
		slog.Bool("reactivated", reactivated),
	)
	prev := model.TicketStatus("")
	if reactivated {
		prev = model.TicketCancelled
	}
	s.publish(ctx, events.FromTicket(typ, out, prev, now))
	return out, nil
}

// issue inserts a new confirmed ticket, retrying with a fresh code when the
// generated one is already taken.
func (s *TicketService) issue(ctx context.Context, eventID, attendeeID string, now time.Time) (string, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code := s.newCode(eventID, now)
		qr, err := s.qr.DataURL(ctx, code)
		if err != nil {
			return "", fmt.Errorf("render qr code: %w", err)
		}

		t := &model.Ticket{
			ID:         uuid.NewString(),
			TicketCode: code,
			Status:     model.TicketConfirmed,
			QRCode:     qr,
			EventID:    eventID,
			AttendeeID: attendeeID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = s.tickets.Create(ctx, t)
		switch {
		case err == nil:
			return t.ID, nil
		case errors.Is(err, repository.ErrTicketCodeTaken):
			s.log.Warn("ticket code collision, regenerating",
				slog.String("event_id", eventID),
				slog.Int("attempt", attempt),
			)
			continue
		case errors.Is(err, repository.ErrConflict):
			return "", ErrAlreadyRegistered
		default:
			return "", fmt.Errorf("create ticket: %w", err)
		}
	}
	return "", fmt.Errorf("create ticket: no unique code after %d attempts", maxCodeAttempts)
}

func (s *TicketService) reactivate(ctx context.Context, t *model.Ticket, now time.Time) error {
	qr, err := s.qr.DataURL(ctx, t.TicketCode)
	if err != nil {
		return fmt.Errorf("render qr code: %w", err)
	}
	if err := s.tickets.Reactivate(ctx, t.ID, qr, now); err != nil {
		if errors.Is(err, repository.ErrInvalidState) {
			return ErrAlreadyRegistered
		}
		return fmt.Errorf("reactivate ticket: %w", err)
	}
	return nil
}

// CheckIn admits the holder of ticketCode. Only confirmed (or pending)
// tickets of an event that has started can be checked in, and only once:
// the transition is a conditional write, so of two concurrent scans of the
// same code exactly one succeeds. checkedInAt is set by the first success
// and never changes afterwards.
func (s *TicketService) CheckIn(ctx context.Context, ticketCode string) (_ *model.Ticket, err error) {
	ticketCode = strings.TrimSpace(ticketCode)
	ctx, span := tracer.Start(ctx, "TicketService.CheckIn",
		trace.WithAttributes(attribute.String("ticket.code", ticketCode)))
	defer func() { endSpan(span, err) }()

	if ticketCode == "" {
		err := apperr.BadRequest("ticket code is required")
		s.metrics.CheckIn(outcome(err))
		return nil, err
	}

	var (
		out      *model.Ticket
		previous model.TicketStatus
	)
	now := s.now()

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.tickets.GetByCode(ctx, ticketCode)
		if err != nil {
			return ticketLookupErr(err)
		}
		if err := checkInAllowed(t.Status); err != nil {
			return err
		}
		event := t.Event
		if event == nil {
			if event, err = s.events.GetByID(ctx, t.EventID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrEventNotFound
				}
				return fmt.Errorf("load event: %w", err)
			}
		}
		if event.StartDate.After(now) {
			return ErrEventNotStarted
		}

		ok, err := s.tickets.MarkCheckedIn(ctx, t.ID, now)
		if err != nil {
			return fmt.Errorf("mark checked in: %w", err)
		}
		if !ok {
			// Lost a race; report the status the winner left behind.
			cur, err := s.tickets.GetForUpdate(ctx, t.ID)
			if err != nil {
				return ticketLookupErr(err)
			}
			if err := checkInAllowed(cur.Status); err != nil {
				return err
			}
			return fmt.Errorf("check in ticket %s: %w", t.ID, repository.ErrInvalidState)
		}

		previous = t.Status
		// pending does not occupy capacity, checked_in does.
		if err := s.adjust(ctx, t.EventID, model.CapacityDelta(t.Status, model.TicketCheckedIn)); err != nil {
			return err
		}

		out, err = s.tickets.GetByID(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("reload ticket: %w", err)
		}
		return nil
	})
	s.metrics.CheckIn(outcome(err))
	if err != nil {
		s.logFailure("check-in", err, slog.String("ticket_code", ticketCode))
		return nil, err
	}

	s.metrics.Ledger(model.CapacityDelta(previous, model.TicketCheckedIn))
	s.log.Info("ticket checked in",
		slog.String("ticket_id", out.ID),
		slog.String("event_id", out.EventID),
	)
	s.publish(ctx, events.FromTicket(events.TicketCheckedIn, out, previous, now))
	return out, nil
}

func checkInAllowed(status model.TicketStatus) error {
	switch status {
	case model.TicketConfirmed, model.TicketPending:
		return nil
	case model.TicketCancelled:
		return ErrTicketCancelled
	case model.TicketCheckedIn:
		return ErrAlreadyCheckedIn
	}
	return ErrInvalidStatus
}

// Get returns a ticket by id.
func (s *TicketService) Get(ctx context.Context, id string) (*model.Ticket, error) {
	if !validID(id) {
		return nil, ErrTicketNotFound
	}
	t, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, ticketLookupErr(err)
	}
	return t, nil
}

// GetByCode looks a ticket up by its code without changing it.
func (s *TicketService) GetByCode(ctx context.Context, code string) (*model.Ticket, error) {
	t, err := s.tickets.GetByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, ticketLookupErr(err)
	}
	return t, nil
}

// List returns tickets matching f, newest first.
func (s *TicketService) List(ctx context.Context, f model.TicketFilter) ([]model.Ticket, error) {
	tickets, err := s.tickets.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

// QRCode renders the PNG QR code of a ticket.
func (s *TicketService) QRCode(ctx context.Context, id string) ([]byte, error) {
	t, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	png, err := s.qr.PNG(ctx, t.TicketCode)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	return png, nil
}

// adjust routes a capacity delta through the ledger.
func (s *TicketService) adjust(ctx context.Context, eventID string, delta int) error {
	switch delta {
	case 0:
		return nil
	case 1:
		err := s.ledger.Increment(ctx, eventID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrCapacityReached):
			return ErrEventFull
		case errors.Is(err, repository.ErrNotFound):
			return ErrEventNotFound
		}
		return fmt.Errorf("ledger increment: %w", err)
	case -1:
		err := s.ledger.Decrement(ctx, eventID)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrNotFound):
			return ErrEventNotFound
		case errors.Is(err, repository.ErrInvalidState):
			s.log.Warn("ledger underflow", slog.String("event_id", eventID))
		}
		return fmt.Errorf("ledger decrement: %w", err)
	}
	return fmt.Errorf("ledger: unsupported delta %d", delta)
}

func (s *TicketService) publish(ctx context.Context, ev events.TicketEvent) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("publish ticket event failed",
			slog.String("type", string(ev.Type)),
			slog.String("ticket_id", ev.TicketID),
			sl.Err(err),
		)
	}
}

func (s *TicketService) logFailure(op string, err error, attrs ...any) {
	if apperr.KindOf(err) == apperr.KindInternal {
		s.log.Error(op+" failed", append(attrs, sl.Err(err))...)
		return
	}
	s.log.Debug(op+" rejected", append(attrs, sl.Err(err))...)
}

// validID reports whether id is a UUID. Anything else cannot name a row.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}

func ticketLookupErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTicketNotFound
	}
	return fmt.Errorf("get ticket: %w", err)
}
