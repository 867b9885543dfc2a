package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/availability"
	"rental-backend/internal/lock"
	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
	"rental-backend/internal/models"
	"rental-backend/internal/notify"
	"rental-backend/internal/timeutil"
)

// BookingService owns the booking state machine:
//
//	pending -> confirmed   (payment approved)
//	pending -> cancelled   (payment rejected, or cancel)
//	confirmed -> cancelled (owner/admin cancel)
//	confirmed -> completed (stay has ended)
type BookingService struct {
	Bookings   BookingStore
	Properties PropertyStore
	Payments   PaymentStore
	Audit      AuditStore
	Tx         TxRunner
	Index      *availability.Index
	Locker     lock.Locker
	LockWait   time.Duration
	Events     notify.Publisher

	log *logrus.Entry
}

func NewBookingService(
	bookings BookingStore,
	properties PropertyStore,
	payments PaymentStore,
	audit AuditStore,
	tx TxRunner,
	index *availability.Index,
	locker lock.Locker,
	lockWait time.Duration,
	events notify.Publisher,
) *BookingService {
	if events == nil {
		events = notify.Discard{}
	}
	return &BookingService{
		Bookings:   bookings,
		Properties: properties,
		Payments:   payments,
		Audit:      audit,
		Tx:         tx,
		Index:      index,
		Locker:     locker,
		LockWait:   lockWait,
		Events:     events,
		log:        logger.WithComponent("bookings"),
	}
}

// LockBooking serializes cancel, payment submission and review decisions on one booking
func (s *BookingService) LockBooking(ctx context.Context, bookingID int) (func(), error) {
	return lock.Acquire(ctx, s.Locker, lock.BookingKey(bookingID), s.LockWait)
}

// LockProperty serializes listing changes with reservations on the same property
func (s *BookingService) LockProperty(ctx context.Context, propertyID int) (func(), error) {
	return lock.Acquire(ctx, s.Locker, lock.PropertyKey(propertyID), s.LockWait)
}

// CheckAvailability reports whether rng is free on the property
func (s *BookingService) CheckAvailability(ctx context.Context, propertyID int, rng availability.DateRange) (*availability.Availability, error) {
	if _, err := s.Properties.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.Index.Check(ctx, propertyID, rng)
}

// Occupied lists the upcoming committed intervals of a property
func (s *BookingService) Occupied(ctx context.Context, propertyID int) ([]availability.DateRange, error) {
	if _, err := s.Properties.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	return s.Index.Occupied(ctx, propertyID)
}

// CreateBooking reserves rng on the property for the calling tenant.
// total = ceil(days/30) * price_per_month, priced at creation time.
func (s *BookingService) CreateBooking(ctx context.Context, p auth.Principal, propertyID int, rng availability.DateRange) (*models.Booking, error) {
	if p.Role != models.RoleTenant {
		return nil, apperrors.New(apperrors.KindForbidden, "only tenants can book properties")
	}
	if err := s.Index.Validate(rng); err != nil {
		return nil, err
	}

	prop, err := s.Properties.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if !prop.Bookable() {
		metrics.BookingsTotal.WithLabelValues("unavailable").Inc()
		return nil, apperrors.New(apperrors.KindPropertyUnavailable, "property %d is not available for booking", propertyID)
	}

	months := rng.Months()
	b := &models.Booking{
		PropertyID:  propertyID,
		TenantID:    p.UserID,
		StartDate:   rng.Start,
		EndDate:     rng.End,
		Months:      months,
		TotalAmount: prop.PricePerMonth.Mul(months),
		Status:      models.BookingPending,
	}

	res, err := s.Index.Reserve(ctx, propertyID, rng, func(ctx context.Context) (int, error) {
		err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.Bookings.Create(ctx, b); err != nil {
				return err
			}
			return recordAudit(ctx, s.Audit, auditEntry{
				Actor:      actor(p.UserID),
				Action:     models.AuditBookingCreated,
				EntityType: models.EntityBooking,
				EntityID:   b.ID,
				Description: fmt.Sprintf("Created booking for property #%d (%s, %d month(s), %s)",
					propertyID, rng, months, b.TotalAmount.Display()),
				To: string(b.Status),
			})
		})
		return b.ID, err
	})
	if err != nil {
		return nil, err
	}
	b.ReservationToken = res.Token

	s.log.WithFields(logrus.Fields{
		"booking_id":  b.ID,
		"property_id": propertyID,
		"tenant_id":   p.UserID,
		"total":       b.TotalAmount.String(),
	}).Info("booking created")
	s.publish(notify.BookingCreated, b, prop.OwnerID)
	return b, nil
}

// Get returns a booking visible to the principal
func (s *BookingService) Get(ctx context.Context, p auth.Principal, id int) (*models.Booking, error) {
	b, err := s.Bookings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.TenantID == p.UserID {
		return b, nil
	}
	prop, err := s.Properties.Get(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	if !p.CanManageProperty(prop) {
		return nil, apperrors.New(apperrors.KindForbidden, "booking %d belongs to another account", id)
	}
	return b, nil
}

// ListForPrincipal scopes the listing by role: tenants see their own bookings,
// owners the bookings of their properties, admins everything.
func (s *BookingService) ListForPrincipal(ctx context.Context, p auth.Principal, status models.BookingStatus) ([]*models.Booking, error) {
	f := models.BookingFilter{Status: status}
	switch p.Role {
	case models.RoleTenant:
		f.TenantID = p.UserID
	case models.RoleOwner:
		f.OwnerID = p.UserID
	case models.RoleAdmin:
	default:
		return nil, apperrors.Forbidden
	}
	bookings, err := s.Bookings.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if bookings == nil {
		bookings = []*models.Booking{}
	}
	return bookings, nil
}

// Cancel releases the booking's interval. Tenants may cancel their own booking while it is
// pending; the property owner or an admin may cancel anything not yet completed.
// Payments still awaiting review are rejected in the same transaction.
func (s *BookingService) Cancel(ctx context.Context, p auth.Principal, bookingID int) (*models.Booking, error) {
	unlock, err := s.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.Bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	prop, err := s.Properties.Get(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}

	manager := p.CanManageProperty(prop)
	if !manager && b.TenantID != p.UserID {
		return nil, apperrors.New(apperrors.KindForbidden, "not allowed to cancel booking %d", bookingID)
	}
	switch {
	case b.Status == models.BookingCancelled || b.Status == models.BookingCompleted:
		return nil, apperrors.New(apperrors.KindInvalidTransition, "booking %d is already %s", bookingID, b.Status)
	case !manager && b.Status != models.BookingPending:
		return nil, apperrors.New(apperrors.KindInvalidTransition, "booking %d is %s; only pending bookings can be cancelled by the tenant", bookingID, b.Status)
	}

	from := b.Status
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Bookings.UpdateStatus(ctx, b.ID, from, models.BookingCancelled, actor(p.UserID)); err != nil {
			return err
		}
		if _, err := s.Payments.RejectPending(ctx, b.ID, "booking cancelled"); err != nil {
			return err
		}
		return recordAudit(ctx, s.Audit, auditEntry{
			Actor:       actor(p.UserID),
			Action:      models.AuditBookingCancelled,
			EntityType:  models.EntityBooking,
			EntityID:    b.ID,
			Description: fmt.Sprintf("Cancelled booking #%d", b.ID),
			From:        string(from),
			To:          string(models.BookingCancelled),
		})
	})
	if err != nil {
		return nil, err
	}

	b.Status = models.BookingCancelled
	b.CancelledBy = actor(p.UserID)
	s.afterTransition(ctx, b, prop.OwnerID)
	s.log.WithFields(logrus.Fields{"booking_id": b.ID, "by": p.UserID, "from": from}).Info("booking cancelled")
	return b, nil
}

// ApplyPaymentOutcome moves a pending booking to confirmed (approve) or cancelled (reject).
// Re-applying an outcome the booking already reflects is a no-op.
func (s *BookingService) ApplyPaymentOutcome(ctx context.Context, bookingID int, outcome models.Outcome) (*models.Booking, error) {
	unlock, err := s.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.Bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	var changed bool
	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		changed, err = s.applyOutcome(ctx, b, outcome, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.notifyTransition(ctx, b)
	}
	return b, nil
}

// applyOutcome is the lock-free core of ApplyPaymentOutcome. The caller holds the booking
// lock and runs it inside its transaction; b is updated in place.
func (s *BookingService) applyOutcome(ctx context.Context, b *models.Booking, outcome models.Outcome, by *int) (bool, error) {
	var target models.BookingStatus
	switch outcome {
	case models.OutcomeApprove:
		target = models.BookingConfirmed
	case models.OutcomeReject:
		target = models.BookingCancelled
	default:
		return false, apperrors.New(apperrors.KindValidation, "unknown outcome %q", outcome)
	}

	switch {
	case b.Status == target:
		return false, nil
	case outcome == models.OutcomeApprove && b.Status == models.BookingCompleted:
		return false, nil
	case b.Status != models.BookingPending:
		return false, apperrors.New(apperrors.KindInvalidTransition, "cannot %s payment for booking %d in status %s", outcome, b.ID, b.Status)
	}

	if err := s.Bookings.UpdateStatus(ctx, b.ID, b.Status, target, nil); err != nil {
		return false, err
	}
	action := models.AuditBookingConfirmed
	if target == models.BookingCancelled {
		action = models.AuditBookingCancelled
	}
	err := recordAudit(ctx, s.Audit, auditEntry{
		Actor:       by,
		Action:      action,
		EntityType:  models.EntityBooking,
		EntityID:    b.ID,
		Description: fmt.Sprintf("Payment %s for booking #%d", outcome.Past(), b.ID),
		From:        string(b.Status),
		To:          string(target),
	})
	if err != nil {
		return false, err
	}
	b.Status = target
	return true, nil
}

// notifyTransition looks up the owner for the event audience, then runs afterTransition
func (s *BookingService) notifyTransition(ctx context.Context, b *models.Booking) {
	ownerID := 0
	if prop, err := s.Properties.Get(ctx, b.PropertyID); err == nil {
		ownerID = prop.OwnerID
	} else {
		s.log.WithError(err).WithField("property_id", b.PropertyID).Warn("owner lookup for event failed")
	}
	s.afterTransition(ctx, b, ownerID)
}

// afterTransition runs the side effects of a committed status change
func (s *BookingService) afterTransition(ctx context.Context, b *models.Booking, ownerID int) {
	s.Index.Invalidate(ctx, b.PropertyID)
	metrics.BookingTransitions.WithLabelValues(string(b.Status)).Inc()

	var ev string
	switch b.Status {
	case models.BookingConfirmed:
		ev = notify.BookingConfirmed
	case models.BookingCancelled:
		ev = notify.BookingCancelled
	case models.BookingCompleted:
		ev = notify.BookingCompleted
	default:
		return
	}
	s.publish(ev, b, ownerID)
}

func (s *BookingService) publish(evType string, b *models.Booking, ownerID int) {
	audience := []int{b.TenantID}
	if ownerID != 0 {
		audience = append(audience, ownerID)
	}
	s.Events.Publish(notify.Event{
		Type:      evType,
		Data:      b,
		Timestamp: timeutil.Now(),
		Audience:  audience,
	})
}

// CompleteElapsed marks confirmed bookings whose end date is on or before today as completed
func (s *BookingService) CompleteElapsed(ctx context.Context, today time.Time) (int, error) {
	var done []*models.Booking
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		done, err = s.Bookings.CompleteElapsed(ctx, today)
		if err != nil {
			return err
		}
		for _, b := range done {
			err := recordAudit(ctx, s.Audit, auditEntry{
				Action:      models.AuditBookingCompleted,
				EntityType:  models.EntityBooking,
				EntityID:    b.ID,
				Description: fmt.Sprintf("Stay ended %s", b.EndDate.Format(timeutil.DateLayout)),
				From:        string(models.BookingConfirmed),
				To:          string(models.BookingCompleted),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, b := range done {
		s.notifyTransition(ctx, b)
	}
	return len(done), nil
}
