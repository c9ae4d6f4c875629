//go:build integration

package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/database"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/repository"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/testutil/containers"
)

type PostgresRepositorySuite struct {
	suite.Suite
	ctx       context.Context
	pg        *containers.PostgresContainer
	tx        *database.Transactor
	events    *repository.EventRepository
	ledger    *repository.Ledger
	tickets   *repository.TicketRepository
	attendees *repository.AttendeeRepository
}

func TestPostgresRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresRepositorySuite))
}

func (s *PostgresRepositorySuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgres(s.T())
	pool, timeout := s.pg.Pool, s.pg.Config.QueryTimeout

	s.tx = database.NewTransactor(pool, timeout)
	s.events = repository.NewEventRepository(pool, timeout)
	s.ledger = repository.NewLedger(pool, timeout)
	s.tickets = repository.NewTicketRepository(pool, timeout)
	s.attendees = repository.NewAttendeeRepository(pool, timeout)
}

func (s *PostgresRepositorySuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func (s *PostgresRepositorySuite) newEvent(capacity int) *model.Event {
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Microsecond)
	e := &model.Event{
		ID:          uuid.NewString(),
		Title:       "Postgres Day",
		Capacity:    capacity,
		StartDate:   start,
		EndDate:     start.Add(time.Hour),
		IsActive:    true,
		OrganizerID: uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
	}
	s.Require().NoError(s.events.Create(s.ctx, e))
	return e
}

func (s *PostgresRepositorySuite) newAttendee(email string) *model.Attendee {
	a, _, err := s.attendees.FindOrCreate(s.ctx, repository.AttendeeInput{Email: email, FullName: "Test"})
	s.Require().NoError(err)
	return a
}

func (s *PostgresRepositorySuite) newTicket(eventID, attendeeID, code string) *model.Ticket {
	now := time.Now().UTC()
	return &model.Ticket{
		ID:         uuid.NewString(),
		TicketCode: code,
		Status:     model.TicketConfirmed,
		EventID:    eventID,
		AttendeeID: attendeeID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *PostgresRepositorySuite) count(eventID string) int {
	e, err := s.events.GetByID(s.ctx, eventID)
	s.Require().NoError(err)
	return e.RegisteredCount
}

func (s *PostgresRepositorySuite) TestEventRoundTrip() {
	e := s.newEvent(3)

	got, err := s.events.GetByID(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.Title, got.Title)
	s.Equal(3, got.Capacity)
	s.Zero(got.RegisteredCount)
	s.True(e.StartDate.Equal(got.StartDate))

	_, err = s.events.GetByID(s.ctx, uuid.NewString())
	s.ErrorIs(err, repository.ErrNotFound)

	list, err := s.events.List(s.ctx)
	s.Require().NoError(err)
	s.Len(list, 1)
}

func (s *PostgresRepositorySuite) TestLedgerBounds() {
	e := s.newEvent(1)

	s.Require().NoError(s.ledger.Increment(s.ctx, e.ID))
	s.ErrorIs(s.ledger.Increment(s.ctx, e.ID), repository.ErrCapacityReached)
	s.Equal(1, s.count(e.ID))

	s.Require().NoError(s.ledger.Decrement(s.ctx, e.ID))
	s.ErrorIs(s.ledger.Decrement(s.ctx, e.ID), repository.ErrInvalidState)
	s.Zero(s.count(e.ID))

	s.ErrorIs(s.ledger.Increment(s.ctx, uuid.NewString()), repository.ErrNotFound)
}

func (s *PostgresRepositorySuite) TestConcurrentIncrementsStopAtCapacity() {
	e := s.newEvent(5)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, full int
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ledger.Increment(s.ctx, e.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrCapacityReached):
				full++
			}
		}()
	}
	wg.Wait()

	s.Equal(5, ok)
	s.Equal(25, full)
	s.Equal(5, s.count(e.ID))
}

func (s *PostgresRepositorySuite) TestTicketConstraints() {
	e := s.newEvent(5)
	a := s.newAttendee("a@example.com")
	b := s.newAttendee("b@example.com")

	first := s.newTicket(e.ID, a.ID, "CODE-1")
	s.Require().NoError(s.tickets.Create(s.ctx, first))

	s.ErrorIs(s.tickets.Create(s.ctx, s.newTicket(e.ID, b.ID, "CODE-1")), repository.ErrTicketCodeTaken)
	s.ErrorIs(s.tickets.Create(s.ctx, s.newTicket(e.ID, a.ID, "CODE-2")), repository.ErrConflict)

	got, err := s.tickets.GetByCode(s.ctx, "CODE-1")
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)
	s.Require().NotNil(got.Event)
	s.Equal(e.ID, got.Event.ID)
	s.Require().NotNil(got.Attendee)
	s.Equal("a@example.com", got.Attendee.Email)

	pair, err := s.tickets.FindByPair(s.ctx, e.ID, a.ID)
	s.Require().NoError(err)
	s.Equal(first.ID, pair.ID)
}

// A code collision inside a transaction must not poison it.
func (s *PostgresRepositorySuite) TestCodeCollisionInsideTransaction() {
	e := s.newEvent(5)
	a := s.newAttendee("a@example.com")
	b := s.newAttendee("b@example.com")
	s.Require().NoError(s.tickets.Create(s.ctx, s.newTicket(e.ID, a.ID, "TAKEN")))

	err := s.tx.WithinTx(s.ctx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, s.newTicket(e.ID, b.ID, "TAKEN")); !errors.Is(err, repository.ErrTicketCodeTaken) {
			return errors.New("expected code collision")
		}
		if err := s.tickets.Create(ctx, s.newTicket(e.ID, b.ID, "FRESH")); err != nil {
			return err
		}
		return s.ledger.Increment(ctx, e.ID)
	})
	s.Require().NoError(err)

	_, err = s.tickets.GetByCode(s.ctx, "FRESH")
	s.NoError(err)
	s.Equal(1, s.count(e.ID))
}

func (s *PostgresRepositorySuite) TestTransactionRollsBack() {
	e := s.newEvent(5)
	a := s.newAttendee("a@example.com")

	boom := errors.New("boom")
	err := s.tx.WithinTx(s.ctx, func(ctx context.Context) error {
		if _, err := s.events.GetForUpdate(ctx, e.ID); err != nil {
			return err
		}
		if err := s.tickets.Create(ctx, s.newTicket(e.ID, a.ID, "ROLLED")); err != nil {
			return err
		}
		if err := s.ledger.Increment(ctx, e.ID); err != nil {
			return err
		}
		return boom
	})
	s.ErrorIs(err, boom)

	_, err = s.tickets.GetByCode(s.ctx, "ROLLED")
	s.ErrorIs(err, repository.ErrNotFound)
	s.Zero(s.count(e.ID))
}

func (s *PostgresRepositorySuite) TestStatusWrites() {
	e := s.newEvent(5)
	a := s.newAttendee("a@example.com")
	t := s.newTicket(e.ID, a.ID, "STATUS")
	s.Require().NoError(s.tickets.Create(s.ctx, t))

	first := time.Now().UTC().Truncate(time.Microsecond)
	ok, err := s.tickets.MarkCheckedIn(s.ctx, t.ID, first)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.tickets.MarkCheckedIn(s.ctx, t.ID, first.Add(time.Hour))
	s.Require().NoError(err)
	s.False(ok)

	s.Require().NoError(s.tickets.SetStatus(s.ctx, t.ID, model.TicketConfirmed, first.Add(2*time.Hour)))
	s.Require().NoError(s.tickets.SetStatus(s.ctx, t.ID, model.TicketCheckedIn, first.Add(3*time.Hour)))

	got, err := s.tickets.GetByID(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(model.TicketCheckedIn, got.Status)
	s.Require().NotNil(got.CheckedInAt)
	s.True(first.Equal(*got.CheckedInAt))

	s.ErrorIs(s.tickets.Reactivate(s.ctx, t.ID, "qr", time.Now()), repository.ErrInvalidState)
	s.Require().NoError(s.tickets.SetStatus(s.ctx, t.ID, model.TicketCancelled, time.Now()))
	s.Require().NoError(s.tickets.Reactivate(s.ctx, t.ID, "qr", time.Now()))
	s.ErrorIs(s.tickets.Reactivate(s.ctx, uuid.NewString(), "qr", time.Now()), repository.ErrNotFound)

	s.Require().NoError(s.tickets.Delete(s.ctx, t.ID))
	s.ErrorIs(s.tickets.Delete(s.ctx, t.ID), repository.ErrNotFound)
	s.ErrorIs(s.tickets.SetStatus(s.ctx, t.ID, model.TicketConfirmed, time.Now()), repository.ErrNotFound)
}

func (s *PostgresRepositorySuite) TestListFilters() {
	e1 := s.newEvent(5)
	e2 := s.newEvent(5)
	a := s.newAttendee("a@example.com")
	b := s.newAttendee("b@example.com")

	older := s.newTicket(e1.ID, a.ID, "L-1")
	older.CreatedAt = older.CreatedAt.Add(-time.Minute)
	s.Require().NoError(s.tickets.Create(s.ctx, older))
	s.Require().NoError(s.tickets.Create(s.ctx, s.newTicket(e1.ID, b.ID, "L-2")))
	s.Require().NoError(s.tickets.Create(s.ctx, s.newTicket(e2.ID, a.ID, "L-3")))

	byEvent, err := s.tickets.List(s.ctx, model.TicketFilter{EventID: e1.ID})
	s.Require().NoError(err)
	s.Require().Len(byEvent, 2)
	s.Equal("L-2", byEvent[0].TicketCode)

	byAttendee, err := s.tickets.List(s.ctx, model.TicketFilter{AttendeeID: a.ID})
	s.Require().NoError(err)
	s.Len(byAttendee, 2)

	both, err := s.tickets.List(s.ctx, model.TicketFilter{EventID: e2.ID, AttendeeID: a.ID})
	s.Require().NoError(err)
	s.Len(both, 1)
}

func (s *PostgresRepositorySuite) TestConcurrentFindOrCreateResolvesOneUser() {
	const callers = 10
	ids := make([]string, callers)
	created := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, c, err := s.attendees.FindOrCreate(s.ctx, repository.AttendeeInput{Email: "same@example.com", FullName: "Same"})
			if err == nil {
				ids[i], created[i] = a.ID, c
			}
		}()
	}
	wg.Wait()

	inserts := 0
	for i, id := range ids {
		s.Equal(ids[0], id)
		if created[i] {
			inserts++
		}
	}
	s.NotEmpty(ids[0])
	s.Equal(1, inserts)
}
