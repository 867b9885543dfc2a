package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/handlers"
	"rental-backend/internal/middleware"
	"rental-backend/internal/models"
	"rental-backend/pkg/utils"
)

func NewRouter(
	authHandler *handlers.AuthHandler,
	propertyHandler *handlers.PropertyHandler,
	bookingHandler *handlers.BookingHandler,
	paymentHandler *handlers.PaymentHandler,
	reviewHandler *handlers.ReviewHandler,
	eventsHandler *handlers.EventsHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware *middleware.AuthMiddleware,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.PanicRecovery, middleware.RequestLogger, middleware.MetricsMiddleware)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		utils.ErrorMessage(w, apperrors.KindNotFound, "route not found")
	})

	// Public API routes - Authentication
	r.HandleFunc("/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Reviews - owners decide on their properties' payments, admins on everything.
	// Registered before /api so the narrower role checks apply.
	listingsAPI := r.PathPrefix("/api/reviews/listings").Subrouter()
	listingsAPI.Use(authMiddleware.RequireAdmin)
	listingsAPI.HandleFunc("", reviewHandler.PendingListings).Methods("GET")
	listingsAPI.HandleFunc("/{id:[0-9]+}", reviewHandler.ReviewListing).Methods("POST")

	// Refunds - admin only
	refundsAPI := r.PathPrefix("/api/payments/{id:[0-9]+}/refund").Subrouter()
	refundsAPI.Use(authMiddleware.RequireAdmin)
	refundsAPI.HandleFunc("", paymentHandler.Refund).Methods("POST")

	reviewsAPI := r.PathPrefix("/api/reviews").Subrouter()
	reviewsAPI.Use(authMiddleware.RequireRole(models.RoleOwner, models.RoleAdmin))
	reviewsAPI.HandleFunc("/payments", reviewHandler.PendingPayments).Methods("GET")
	reviewsAPI.HandleFunc("/payments/{id:[0-9]+}", reviewHandler.DecidePayment).Methods("POST")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(authMiddleware.Authenticate)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/me/logins", authHandler.Logins).Methods("GET")

	// Properties
	api.HandleFunc("/properties", propertyHandler.List).Methods("GET")
	api.HandleFunc("/properties", propertyHandler.Create).Methods("POST")
	api.HandleFunc("/properties/{id:[0-9]+}", propertyHandler.Get).Methods("GET")
	api.HandleFunc("/properties/{id:[0-9]+}/availability", propertyHandler.SetAvailability).Methods("PATCH")
	api.HandleFunc("/properties/{id:[0-9]+}/occupied", propertyHandler.Occupied).Methods("GET")

	// Availability and bookings
	api.HandleFunc("/availability/check", bookingHandler.CheckAvailability).Methods("POST")
	api.HandleFunc("/bookings", bookingHandler.Create).Methods("POST")
	api.HandleFunc("/bookings", bookingHandler.List).Methods("GET")
	api.HandleFunc("/bookings/{id:[0-9]+}", bookingHandler.Get).Methods("GET")
	api.HandleFunc("/bookings/{id:[0-9]+}/cancel", bookingHandler.Cancel).Methods("POST")
	api.HandleFunc("/bookings/{id:[0-9]+}/history", bookingHandler.History).Methods("GET")
	api.HandleFunc("/bookings/{id:[0-9]+}/payments", paymentHandler.ListForBooking).Methods("GET")

	// Payments
	api.HandleFunc("/payments", paymentHandler.Submit).Methods("POST")
	api.HandleFunc("/payments", paymentHandler.List).Methods("GET")
	api.HandleFunc("/payments/methods", paymentHandler.Methods).Methods("GET")
	api.HandleFunc("/payments/card/checkout", paymentHandler.StartCardCheckout).Methods("POST")
	api.HandleFunc("/payments/{id:[0-9]+}", paymentHandler.Get).Methods("GET")
	api.HandleFunc("/payments/{id:[0-9]+}/receipt.pdf", paymentHandler.ReceiptPDF).Methods("GET")
	api.HandleFunc("/receipts", paymentHandler.UploadReceipt).Methods("POST")

	// Live events
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(authMiddleware.Authenticate)
	ws.HandleFunc("/events", eventsHandler.Stream).Methods("GET")

	// Health endpoints (no auth required - for Kubernetes health checks)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")

	// Metrics endpoint (Prometheus format)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
