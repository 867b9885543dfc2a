package models

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

// Committed bookings hold their date interval on the property
func (s BookingStatus) Committed() bool {
	return s == BookingPending || s == BookingConfirmed
}

type Booking struct {
	ID          int           `json:"id"`
	PropertyID  int           `json:"property_id"`
	TenantID    int           `json:"tenant_id"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Months      int           `json:"months"`
	TotalAmount Amount        `json:"total_amount"`
	Status      BookingStatus `json:"status"`
	CancelledBy *int          `json:"cancelled_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// ReservationToken is only set on the response to a successful create
	ReservationToken string `json:"reservation_token,omitempty"`
}

// CreateBookingRequest carries calendar dates as YYYY-MM-DD
type CreateBookingRequest struct {
	PropertyID int    `json:"property_id" validate:"required,gt=0"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

type AvailabilityRequest struct {
	PropertyID int    `json:"property_id" validate:"required,gt=0"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// BookingFilter narrows booking listings. Zero values mean "any".
type BookingFilter struct {
	TenantID   int
	OwnerID    int
	PropertyID int
	Status     BookingStatus
}
