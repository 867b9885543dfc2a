package handlers

import (
	"net/http"

	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

type ReviewHandler struct {
	Service *services.ReviewService
}

func NewReviewHandler(s *services.ReviewService) *ReviewHandler {
	return &ReviewHandler{Service: s}
}

// PendingPayments returns one page of payments awaiting review, oldest first
// GET /api/reviews/payments?after=<cursor>&limit=
func (h *ReviewHandler) PendingPayments(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	page, err := h.Service.PendingReviewPage(r.Context(), p, r.URL.Query().Get("after"), limit)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, page)
}

// DecidePayment approves or rejects a wallet payment
// POST /api/reviews/payments/{id}
func (h *ReviewHandler) DecidePayment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ReviewDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := h.Service.Decide(r.Context(), p, id, req.Outcome)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// PendingListings is the admin queue of listings awaiting approval
// GET /api/reviews/listings
func (h *ReviewHandler) PendingListings(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	props, err := h.Service.PendingListings(r.Context(), p)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, props)
}

// ReviewListing approves or rejects a pending listing
// POST /api/reviews/listings/{id}
func (h *ReviewHandler) ReviewListing(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.ReviewDecisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	prop, err := h.Service.ReviewListing(r.Context(), p, id, req.Outcome)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, prop)
}
