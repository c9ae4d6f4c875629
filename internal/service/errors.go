package service

import "github.com/Shivanand-hulikatti/event-ticketing/internal/apperr"

var (
	ErrEventNotFound     = apperr.NotFound("event not found")
	ErrEventInactive     = apperr.BadRequest("event is not active")
	ErrEventStarted      = apperr.BadRequest("event has already started")
	ErrEventFull         = apperr.BadRequest("event is at full capacity")
	ErrEmailOwnedByOther = apperr.Conflict("email already registered to another account")
	ErrAlreadyRegistered = apperr.Conflict("already registered for this event")

	ErrTicketNotFound   = apperr.NotFound("ticket not found")
	ErrTicketCancelled  = apperr.BadRequest("ticket has been cancelled")
	ErrAlreadyCheckedIn = apperr.BadRequest("ticket already checked in")
	ErrEventNotStarted  = apperr.BadRequest("event has not started yet")
	ErrInvalidStatus    = apperr.BadRequest("invalid ticket status")
)
