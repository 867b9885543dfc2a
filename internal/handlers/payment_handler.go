package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/models"
	"rental-backend/internal/services"
	"rental-backend/pkg/utils"
)

// multipart overhead allowed on top of the receipt itself
const uploadSlack = 64 << 10

type PaymentHandler struct {
	Service *services.PaymentService
}

func NewPaymentHandler(s *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Service: s}
}

// Submit records a payment for a pending booking
// POST /api/payments
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.SubmitPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := h.Service.SubmitPayment(r.Context(), p, &req)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, payment)
}

// StartCardCheckout creates the provider intent the client checkout pays against
// POST /api/payments/card/checkout
func (h *PaymentHandler) StartCardCheckout(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.CardCheckoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	checkout, err := h.Service.StartCardCheckout(r.Context(), p, req.BookingID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, checkout)
}

// Refund returns an approved card payment to the tenant. Admin only; the body is optional.
// POST /api/payments/{id}/refund
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req models.RefundRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	payment, err := h.Service.Refund(r.Context(), p, id, req.Reason)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// List is "my payments"; ?status= filters
// GET /api/payments
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	status := models.PaymentStatus(r.URL.Query().Get("status"))
	payments, err := h.Service.ListForPrincipal(r.Context(), p, status)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.Service.Get(r.Context(), p, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payment)
}

// ListForBooking returns every attempt on one booking
// GET /api/bookings/{id}/payments
func (h *PaymentHandler) ListForBooking(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	payments, err := h.Service.ListForBooking(r.Context(), p, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, payments)
}

// Methods tells the tenant how a property can be paid
// GET /api/payments/methods?property_id=
func (h *PaymentHandler) Methods(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := queryInt(w, r, "property_id", 0)
	if !ok {
		return
	}
	if propertyID <= 0 {
		utils.ErrorMessage(w, apperrors.KindValidation, "property_id is required")
		return
	}
	resp, err := h.Service.Methods(r.Context(), propertyID)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// ReceiptPDF streams the printable receipt
// GET /api/payments/{id}/receipt.pdf
func (h *PaymentHandler) ReceiptPDF(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, filename, err := h.Service.ReceiptPDF(r.Context(), p, id)
	if err != nil {
		utils.Error(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// UploadReceipt takes a multipart form with booking_id and file, stores the image and
// returns its URL for use as receipt_ref
// POST /api/receipts
func (h *PaymentHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	limit := h.Service.ReceiptMaxBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadSlack)
	if err := r.ParseMultipartForm(limit + uploadSlack); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			utils.ErrorMessage(w, apperrors.KindValidation, fmt.Sprintf("receipt exceeds %d bytes", limit))
			return
		}
		utils.ErrorMessage(w, apperrors.KindValidation, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	bookingID, err := strconv.Atoi(r.FormValue("booking_id"))
	if err != nil || bookingID <= 0 {
		utils.ErrorMessage(w, apperrors.KindValidation, "booking_id is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		utils.ErrorMessage(w, apperrors.KindValidation, "file is required")
		return
	}
	defer file.Close()

	url, err := h.Service.UploadReceipt(r.Context(), p, bookingID, header.Filename,
		header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		utils.Error(w, err)
		return
	}
	utils.JSON(w, http.StatusCreated, map[string]string{"url": url})
}
