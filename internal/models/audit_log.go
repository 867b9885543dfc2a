package models

import "time"

// Audit actions recorded for booking and payment transitions
const (
	AuditBookingCreated   = "booking_created"
	AuditBookingCancelled = "booking_cancelled"
	AuditBookingConfirmed = "booking_confirmed"
	AuditBookingCompleted = "booking_completed"
	AuditPaymentSubmitted = "payment_submitted"
	AuditPaymentReviewed  = "payment_reviewed"
	AuditPaymentRefunded  = "payment_refunded"
	AuditListingReviewed  = "listing_reviewed"
)

type AuditLog struct {
	ID          int       `json:"id"`
	UserID      *int      `json:"user_id,omitempty"` // nil for system jobs
	Action      string    `json:"action"`
	EntityType  string    `json:"entity_type"`
	EntityID    int       `json:"entity_id"`
	Description string    `json:"description"`
	OldValue    *string   `json:"old_value,omitempty"`
	NewValue    *string   `json:"new_value,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Audit entity types
const (
	EntityBooking  = "booking"
	EntityPayment  = "payment"
	EntityProperty = "property"
)
