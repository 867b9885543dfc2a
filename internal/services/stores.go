package services

import (
	"context"
	"time"

	"rental-backend/internal/models"
)

// Persistence contracts used by the services. The Postgres repositories satisfy them;
// tests use in-memory versions.

type PropertyStore interface {
	Create(ctx context.Context, p *models.Property) error
	Get(ctx context.Context, id int) (*models.Property, error)
	List(ctx context.Context, f models.PropertyFilter) ([]*models.Property, error)
	SetAvailability(ctx context.Context, id int, available bool) error
	UpdateStatus(ctx context.Context, id int, status models.PropertyStatus) error
}

type BookingStore interface {
	Create(ctx context.Context, b *models.Booking) error
	Get(ctx context.Context, id int) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id int, from, to models.BookingStatus, cancelledBy *int) error
	List(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error)
	CompleteElapsed(ctx context.Context, today time.Time) ([]*models.Booking, error)
}

type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	Get(ctx context.Context, id int) (*models.Payment, error)
	ListByBooking(ctx context.Context, bookingID int) ([]*models.Payment, error)
	HasActive(ctx context.Context, bookingID int) (bool, error)
	UpdateReview(ctx context.Context, p *models.Payment) error
	RejectPending(ctx context.Context, bookingID int, reason string) (int, error)
	MarkRefunded(ctx context.Context, p *models.Payment) error
	PendingReviewPage(ctx context.Context, ownerID int, after *models.ReviewCursor, limit int) ([]*models.Payment, error)
	List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Get(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuditStore interface {
	Record(ctx context.Context, log *models.AuditLog) error
	ListForEntity(ctx context.Context, entityType string, entityID int) ([]*models.AuditLog, error)
}

// TxRunner runs fn in one transaction; stores called with the ctx it passes join it
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
