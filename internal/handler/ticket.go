package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/apperr"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/auth"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/logger/sl"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
	"github.com/Shivanand-hulikatti/event-ticketing/internal/service"
)

var errNotOwner = apperr.Forbidden("you can only access your own tickets")

// TicketHandler serves the ticket endpoints.
type TicketHandler struct {
	svc *service.TicketService
	log *slog.Logger
}

// NewTicketHandler constructs a TicketHandler.
func NewTicketHandler(svc *service.TicketService, log *slog.Logger) *TicketHandler {
	return &TicketHandler{svc: svc, log: log.With(sl.Module("handler.tickets"))}
}

// Register handles POST /tickets
// Anonymous callers may register any email. An authenticated attendee may
// only register the email of their own account; staff may register anyone.
func (h *TicketHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var acting string
	if user := auth.UserFrom(r.Context()); user != nil && !user.IsStaff() {
		acting = user.ID
	}

	ticket, err := h.svc.Register(r.Context(), service.RegisterInput{
		EventID:  req.EventID,
		Email:    req.Email,
		FullName: req.FullName,
		Company:  req.Company,
	}, acting)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, ticket)
}

// List handles GET /tickets?eventId=&attendeeId=
// Attendees only ever see their own tickets.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.TicketFilter{
		EventID:    q.Get("eventId"),
		AttendeeID: q.Get("attendeeId"),
	}
	if user := auth.UserFrom(r.Context()); !user.IsStaff() {
		f.AttendeeID = user.ID
	}

	tickets, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}

	writeJSON(w, r, http.StatusOK, tickets)
}

// Verify handles GET /tickets/verify/{ticketCode}
// This is the check-in scan: it admits the ticket holder.
func (h *TicketHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.svc.CheckIn(r.Context(), chi.URLParam(r, "ticketCode"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, r, http.StatusOK, ticket)
}

// GetByCode handles GET /tickets/code/{ticketCode}
func (h *TicketHandler) GetByCode(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.svc.GetByCode(r.Context(), chi.URLParam(r, "ticketCode"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, r, http.StatusOK, ticket)
}

// Get handles GET /tickets/{id}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, r, http.StatusOK, ticket)
}

// QRCode handles GET /tickets/{id}/qr.png
func (h *TicketHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.owned(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	png, err := h.svc.QRCode(r.Context(), ticket.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Update handles PATCH /tickets/{id}
// Attendees may only cancel their own tickets.
func (h *TicketHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := validateStruct(req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	status, err := model.ParseTicketStatus(req.Status)
	if err != nil {
		writeError(w, r, h.log, service.ErrInvalidStatus)
		return
	}

	id := chi.URLParam(r, "id")
	if user := auth.UserFrom(r.Context()); !user.IsStaff() {
		if status != model.TicketCancelled {
			writeError(w, r, h.log, apperr.Forbidden("attendees can only cancel tickets"))
			return
		}
		if _, err := h.owned(r); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}

	ticket, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	writeJSON(w, r, http.StatusOK, ticket)
}

// Delete handles DELETE /tickets/{id}
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// owned loads the ticket named in the path and checks that an attendee
// caller holds it.
func (h *TicketHandler) owned(r *http.Request) (*model.Ticket, error) {
	ticket, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	if user := auth.UserFrom(r.Context()); !user.IsStaff() && ticket.AttendeeID != user.ID {
		return nil, errNotOwner
	}
	return ticket, nil
}
