package handlers

import (
	"net/http"

	"rental-backend/internal/availability"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type BookingHandler struct {
	Service *services.BookingService
}

func NewBookingHandler(s *services.BookingService) *BookingHandler {
	return &BookingHandler{Service: s}
}

// CheckAvailability answers whether [start_date, end_date) is free
func (h *BookingHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	var req models.AvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rng, err := availability.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		utils.Error(w, err)
		return
	}
	res, err := h.Service.CheckAvailability(r.Context(), req.PropertyID, rng)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.CreateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rng, err := availability.ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		utils.Error(w, err)
		return
	}
	b, err := h.Service.CreateBooking(r.Context(), p, req.PropertyID, rng)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, b)
}

// List returns the caller's bookings, optionally filtered by ?status=
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	status := models.BookingStatus(r.URL.Query().Get("status"))
	bookings, err := h.Service.ListForPrincipal(r.Context(), p, status)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, bookings)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.Service.Get(r.Context(), p, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, b)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.Service.Cancel(r.Context(), p, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, b)
}

// History returns the audit trail of a booking and its payments
func (h *BookingHandler) History(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logs, err := h.Service.History(r.Context(), p, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, logs)
}
