package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/cache"
	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
	"rental-backend/internal/models"
	"rental-backend/internal/notify"
	"rental-backend/internal/timeutil"
)

const (
	defaultReviewPageSize = 50
	maxReviewPageSize     = 200
	pendingListingTTL     = time.Minute
)

// ReviewService handles owner/admin decisions on wallet payments and admin decisions on listings
type ReviewService struct {
	Bookings *BookingService
	Payments PaymentStore
	PageSize int

	log *logrus.Entry
}

func NewReviewService(bookings *BookingService, payments PaymentStore) *ReviewService {
	return &ReviewService{
		Bookings: bookings,
		Payments: payments,
		PageSize: defaultReviewPageSize,
		log:      logger.WithComponent("reviews"),
	}
}

// reviewScope returns the owner filter for pending reviews (0 = all properties)
func reviewScope(p auth.Principal) (int, error) {
	switch p.Role {
	case models.RoleAdmin:
		return 0, nil
	case models.RoleOwner:
		return p.UserID, nil
	default:
		return 0, apperrors.New(apperrors.KindForbidden, "only owners and admins review payments")
	}
}

// PendingReviews yields payments awaiting review, oldest first, fetching one keyset page
// at a time as the caller ranges. Every range over the returned sequence starts again
// from the oldest pending payment.
func (s *ReviewService) PendingReviews(ctx context.Context, p auth.Principal) iter.Seq2[*models.Payment, error] {
	return func(yield func(*models.Payment, error) bool) {
		ownerID, err := reviewScope(p)
		if err != nil {
			yield(nil, err)
			return
		}

		var after *models.ReviewCursor
		for {
			page, err := s.Payments.PendingReviewPage(ctx, ownerID, after, s.pageSize())
			if err != nil {
				yield(nil, err)
				return
			}
			for _, payment := range page {
				if !yield(payment, nil) {
					return
				}
			}
			if len(page) < s.pageSize() {
				return
			}
			last := page[len(page)-1]
			after = &models.ReviewCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

// PendingReviewPage serves one page of PendingReviews to HTTP callers. cursor is the opaque
// value returned as NextCursor by the previous page; empty starts from the oldest.
func (s *ReviewService) PendingReviewPage(ctx context.Context, p auth.Principal, cursor string, limit int) (*models.PendingReviewPage, error) {
	ownerID, err := reviewScope(p)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.pageSize()
	}
	if limit > maxReviewPageSize {
		limit = maxReviewPageSize
	}
	after, err := DecodeReviewCursor(cursor)
	if err != nil {
		return nil, err
	}

	items, err := s.Payments.PendingReviewPage(ctx, ownerID, after, limit)
	if err != nil {
		return nil, err
	}
	page := &models.PendingReviewPage{Items: items}
	if page.Items == nil {
		page.Items = []*models.Payment{}
	}
	if len(items) == limit {
		last := items[len(items)-1]
		page.NextCursor = EncodeReviewCursor(models.ReviewCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}

func (s *ReviewService) pageSize() int {
	if s.PageSize <= 0 {
		return defaultReviewPageSize
	}
	return s.PageSize
}

// EncodeReviewCursor renders a keyset position as an opaque URL-safe token
func EncodeReviewCursor(c models.ReviewCursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + ":" + strconv.Itoa(c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeReviewCursor parses a token from EncodeReviewCursor. Empty means "from the start".
func DecodeReviewCursor(token string) (*models.ReviewCursor, error) {
	if token == "" {
		return nil, nil
	}
	invalid := apperrors.New(apperrors.KindValidation, "invalid cursor")
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, invalid
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, invalid
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, invalid
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return nil, invalid
	}
	return &models.ReviewCursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: n}, nil
}

// Decide records an owner/admin decision on a wallet payment. approve confirms the booking;
// reject cancels it and frees the dates. Only pending_review payments on pending bookings
// can be decided; anything else is InvalidTransition.
func (s *ReviewService) Decide(ctx context.Context, p auth.Principal, paymentID int, outcome models.Outcome) (*models.Payment, error) {
	if !outcome.Valid() {
		return nil, apperrors.New(apperrors.KindValidation, "outcome must be approve or reject")
	}

	payment, err := s.Payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.Bookings.LockBooking(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// reload under the lock; a cancel or another decision may have landed meanwhile
	payment, err = s.Payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	b, err := s.Bookings.Bookings.Get(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	prop, err := s.Bookings.Properties.Get(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	if !p.CanManageProperty(prop) {
		return nil, apperrors.New(apperrors.KindForbidden, "only the property owner or an admin can review payment %d", paymentID)
	}
	if payment.Status != models.PaymentPendingReview {
		return nil, apperrors.New(apperrors.KindInvalidTransition, "payment %d is %s, not pending_review", paymentID, payment.Status)
	}
	if b.Status != models.BookingPending {
		return nil, apperrors.New(apperrors.KindInvalidTransition, "booking %d is already %s", b.ID, b.Status)
	}

	from := payment.Status
	now := timeutil.Now()
	payment.ReviewedBy = actor(p.UserID)
	payment.ReviewedAt = &now
	if outcome == models.OutcomeApprove {
		payment.Status = models.PaymentApproved
	} else {
		payment.Status = models.PaymentRejected
		payment.FailureReason = "rejected by reviewer"
	}

	var changed bool
	err = s.Bookings.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Payments.UpdateReview(ctx, payment); err != nil {
			return err
		}
		err := recordAudit(ctx, s.Bookings.Audit, auditEntry{
			Actor:       actor(p.UserID),
			Action:      models.AuditPaymentReviewed,
			EntityType:  models.EntityPayment,
			EntityID:    payment.ID,
			Description: fmt.Sprintf("Payment %s %s", payment.ReceiptNumber, outcome.Past()),
			From:        string(from),
			To:          string(payment.Status),
		})
		if err != nil {
			return err
		}
		changed, err = s.Bookings.applyOutcome(ctx, b, outcome, actor(p.UserID))
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.ReviewDecisions.WithLabelValues("payment", string(outcome)).Inc()
	s.log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"booking_id": b.ID,
		"reviewer":   p.UserID,
		"outcome":    outcome,
	}).Info("payment reviewed")

	s.Bookings.Events.Publish(notify.Event{
		Type:      notify.PaymentReviewed,
		Data:      payment,
		Timestamp: now,
		Audience:  []int{b.TenantID, prop.OwnerID},
	})
	if changed {
		s.Bookings.afterTransition(ctx, b, prop.OwnerID)
	}
	return payment, nil
}

// ReviewListing moves a pending listing to approved or rejected. Admin only. Repeating the
// decision already recorded is a no-op; reversing it is InvalidTransition.
func (s *ReviewService) ReviewListing(ctx context.Context, p auth.Principal, propertyID int, outcome models.Outcome) (*models.Property, error) {
	if !p.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins review listings")
	}
	if !outcome.Valid() {
		return nil, apperrors.New(apperrors.KindValidation, "outcome must be approve or reject")
	}

	unlock, err := s.Bookings.LockProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prop, err := s.Bookings.Properties.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	target := models.PropertyApproved
	if outcome == models.OutcomeReject {
		target = models.PropertyRejected
	}
	switch prop.Status {
	case target:
		return prop, nil
	case models.PropertyPending:
	default:
		return nil, apperrors.New(apperrors.KindInvalidTransition, "listing %d is already %s", propertyID, prop.Status)
	}

	from := prop.Status
	err = s.Bookings.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Bookings.Properties.UpdateStatus(ctx, propertyID, target); err != nil {
			return err
		}
		return recordAudit(ctx, s.Bookings.Audit, auditEntry{
			Actor:       actor(p.UserID),
			Action:      models.AuditListingReviewed,
			EntityType:  models.EntityProperty,
			EntityID:    propertyID,
			Description: fmt.Sprintf("Listing %q %s", prop.Name, outcome.Past()),
			From:        string(from),
			To:          string(target),
		})
	})
	if err != nil {
		return nil, err
	}
	prop.Status = target

	cache.InvalidatePropertyCaches(ctx, propertyID)
	metrics.ReviewDecisions.WithLabelValues("listing", string(outcome)).Inc()
	s.log.WithFields(logrus.Fields{"property_id": propertyID, "outcome": outcome}).Info("listing reviewed")
	s.Bookings.Events.Publish(notify.Event{
		Type:      notify.ListingReviewed,
		Data:      prop,
		Timestamp: timeutil.Now(),
		Audience:  []int{prop.OwnerID},
	})
	return prop, nil
}

// PendingListings returns listings awaiting approval, oldest first. Admin only.
func (s *ReviewService) PendingListings(ctx context.Context, p auth.Principal) ([]*models.Property, error) {
	if !p.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins review listings")
	}
	var props []*models.Property
	if cache.GetJSON(ctx, cache.PendingListingKey, &props) {
		return props, nil
	}
	props, err := s.Bookings.Properties.List(ctx, models.PropertyFilter{Status: models.PropertyPending})
	if err != nil {
		return nil, err
	}
	if props == nil {
		props = []*models.Property{}
	}
	cache.SetJSON(ctx, cache.PendingListingKey, props, pendingListingTTL)
	return props, nil
}
