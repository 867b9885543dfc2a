package handlers

import (
	"net/http"

	"rental-backend/internal/availability"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type PropertyHandler struct {
	Service  *services.PropertyService
	Bookings *services.BookingService
}

func NewPropertyHandler(s *services.PropertyService, bookings *services.BookingService) *PropertyHandler {
	return &PropertyHandler{Service: s, Bookings: bookings}
}

// List serves the bookable catalogue; ?mine=true lists the owner's own listings
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	props, err := h.Service.List(r.Context(), p, r.URL.Query().Get("mine") == "true")
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, props)
}

func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	prop, err := h.Service.Get(r.Context(), p, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, prop)
}

func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.CreatePropertyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	prop, err := h.Service.Create(r.Context(), p, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, prop)
}

func (h *PropertyHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.SetAvailabilityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	prop, err := h.Service.SetAvailability(r.Context(), p, id, req.IsAvailable)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, prop)
}

// Occupied lists the committed date ranges that have not ended yet, for calendar greying
func (h *PropertyHandler) Occupied(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ranges, err := h.Bookings.Occupied(r.Context(), id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	if ranges == nil {
		ranges = []availability.DateRange{}
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"property_id": id,
		"occupied":    ranges,
	})
}
