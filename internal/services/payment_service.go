package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/gateway"
	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
	"rental-backend/internal/models"
	"rental-backend/internal/notify"
	"rental-backend/internal/receipt"
	"rental-backend/internal/storage"
	"rental-backend/internal/timeutil"
)

const (
	defaultCardTimeout = 15 * time.Second
	// lockWaitMargin covers the database work after a charge returns
	lockWaitMargin = 5 * time.Second
)

// PaymentService validates a payment submission against its booking and routes it by method
type PaymentService struct {
	Payments    PaymentStore
	Bookings    *BookingService
	Gateway     gateway.CardGateway
	CardTimeout time.Duration
	Receipts    storage.ReceiptStore
	// ReceiptMaxBytes caps receipt uploads; 0 means no limit
	ReceiptMaxBytes int64

	log *logrus.Entry
}

func NewPaymentService(payments PaymentStore, bookings *BookingService, gw gateway.CardGateway, cardTimeout time.Duration, receipts storage.ReceiptStore, receiptMaxBytes int64) *PaymentService {
	if cardTimeout <= 0 {
		cardTimeout = defaultCardTimeout
	}
	// A card charge holds the booking lock for up to cardTimeout; cancels and review
	// decisions queued behind it must not give up first.
	if bookings.LockWait > 0 && bookings.LockWait <= cardTimeout {
		bookings.log.WithFields(logrus.Fields{
			"lock_wait":    bookings.LockWait,
			"card_timeout": cardTimeout,
		}).Warn("booking lock wait raised above card timeout")
		bookings.LockWait = cardTimeout + lockWaitMargin
	}
	return &PaymentService{
		Payments:        payments,
		Bookings:        bookings,
		Gateway:         gw,
		CardTimeout:     cardTimeout,
		Receipts:        receipts,
		ReceiptMaxBytes: receiptMaxBytes,
		log:             logger.WithComponent("payments"),
	}
}

// SubmitPayment records one payment attempt for a pending booking.
//
// Checks run in order: amount equals the booking total (AmountMismatch), method is accepted
// by the property (InvalidMethod), method specific input is present (InvalidMethod), and the
// booking has no active payment (DuplicatePayment). Then:
//
//	card   -> intent + confirm under CardTimeout; approved confirms the booking, anything
//	          else (decline, error, timeout) rejects the payment and cancels the booking
//	wallet -> pending_review; the booking waits for a review decision
//	cash   -> not_required; the booking is confirmed
func (s *PaymentService) SubmitPayment(ctx context.Context, p auth.Principal, req *models.SubmitPaymentRequest) (*models.Payment, error) {
	unlock, err := s.Bookings.LockBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.Bookings.Bookings.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.TenantID != p.UserID && !p.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "booking %d belongs to another tenant", b.ID)
	}
	if b.Status != models.BookingPending {
		return nil, apperrors.New(apperrors.KindInvalidTransition, "booking %d is %s; payments are only accepted while pending", b.ID, b.Status)
	}
	prop, err := s.Bookings.Properties.Get(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}

	if req.Amount != b.TotalAmount {
		return nil, apperrors.New(apperrors.KindAmountMismatch, "amount %s does not match booking total %s",
			req.Amount.Display(), b.TotalAmount.Display())
	}
	if !req.Method.Valid() || !prop.Accepts(req.Method) {
		return nil, apperrors.New(apperrors.KindInvalidMethod, "payment method %q is not accepted for this property", req.Method)
	}
	receiptRef := strings.TrimSpace(req.ReceiptRef)
	if req.Method == models.MethodWallet && receiptRef == "" {
		return nil, apperrors.New(apperrors.KindInvalidMethod, "receipt required for wallet payments")
	}
	if req.Method == models.MethodCard && req.Card == nil {
		return nil, apperrors.New(apperrors.KindInvalidMethod, "card details required for card payments")
	}

	active, err := s.Payments.HasActive(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("check active payment: %w", err)
	}
	if active {
		return nil, apperrors.New(apperrors.KindDuplicatePayment, "booking %d already has an active payment", b.ID)
	}

	payment := &models.Payment{
		BookingID:     b.ID,
		PropertyID:    b.PropertyID,
		TenantID:      b.TenantID,
		Method:        req.Method,
		Amount:        req.Amount,
		ReceiptNumber: receiptNumber(req.Method),
	}

	var outcome models.Outcome
	switch req.Method {
	case models.MethodCard:
		res := s.chargeCard(ctx, b, *req.Card)
		payment.IntentID = res.intentID
		if res.approved {
			payment.Status = models.PaymentApproved
			outcome = models.OutcomeApprove
		} else {
			payment.Status = models.PaymentRejected
			payment.FailureReason = res.reason
			outcome = models.OutcomeReject
		}
		// the provider may already hold the money; record the outcome even if the caller left
		ctx = context.WithoutCancel(ctx)
	case models.MethodWallet:
		payment.Status = models.PaymentPendingReview
		payment.ReceiptRef = receiptRef
	case models.MethodCash:
		payment.Status = models.PaymentNotRequired
		outcome = models.OutcomeApprove
	default:
		return nil, apperrors.New(apperrors.KindInvalidMethod, "unsupported payment method %q", req.Method)
	}

	var changed bool
	err = s.Bookings.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Payments.Create(ctx, payment); err != nil {
			return err
		}
		err := recordAudit(ctx, s.Bookings.Audit, auditEntry{
			Actor:       actor(p.UserID),
			Action:      models.AuditPaymentSubmitted,
			EntityType:  models.EntityPayment,
			EntityID:    payment.ID,
			Description: fmt.Sprintf("%s payment %s for booking #%d (%s)", payment.Method, payment.ReceiptNumber, b.ID, payment.Amount.Display()),
			To:          string(payment.Status),
		})
		if err != nil {
			return err
		}
		if outcome == "" {
			return nil
		}
		changed, err = s.Bookings.applyOutcome(ctx, b, outcome, actor(p.UserID))
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsTotal.WithLabelValues(string(payment.Method), string(payment.Status)).Inc()
	s.log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"booking_id": b.ID,
		"method":     payment.Method,
		"status":     payment.Status,
	}).Info("payment submitted")

	s.Bookings.Events.Publish(notify.Event{
		Type:      notify.PaymentSubmitted,
		Data:      payment,
		Timestamp: timeutil.Now(),
		Audience:  []int{b.TenantID, prop.OwnerID},
	})
	if changed {
		s.Bookings.afterTransition(ctx, b, prop.OwnerID)
	}
	return payment, nil
}

type cardResult struct {
	intentID string
	approved bool
	reason   string
}

// chargeCard runs intent creation and confirmation in a goroutine raced against CardTimeout.
// It never returns an error: every failure is a rejection.
func (s *PaymentService) chargeCard(ctx context.Context, b *models.Booking, card models.CardDetails) cardResult {
	cctx, cancel := context.WithTimeout(ctx, s.CardTimeout)
	defer cancel()

	type confirmation struct {
		intentID string
		res      *gateway.Result
		err      error
	}
	done := make(chan confirmation, 1)
	start := time.Now()

	go func() {
		// an intent from StartCardCheckout is reused, otherwise one is created now
		intentID := card.OrderID
		if intentID == "" {
			var err error
			intentID, err = s.Gateway.CreateIntent(cctx, b.ID, b.TotalAmount)
			if err != nil {
				done <- confirmation{err: fmt.Errorf("create intent: %w", err)}
				return
			}
		}
		intent := gateway.Intent{ID: intentID, BookingID: b.ID, Amount: b.TotalAmount}
		res, err := s.Gateway.Confirm(cctx, intent, card)
		done <- confirmation{intentID: intentID, res: res, err: err}
	}()

	var out cardResult
	select {
	case c := <-done:
		out.intentID = c.intentID
		switch {
		case c.err != nil && errors.Is(c.err, context.DeadlineExceeded):
			out.reason = "card confirmation timed out"
		case c.err != nil:
			out.reason = "card gateway error"
			s.log.WithError(c.err).WithField("booking_id", b.ID).Warn("card gateway call failed")
		case c.res == nil:
			out.reason = "card gateway returned no result"
		case c.res.Outcome == gateway.Approved:
			out.approved = true
		default:
			out.reason = c.res.Reason
			if out.reason == "" {
				out.reason = "card declined"
			}
		}
	case <-cctx.Done():
		out.reason = "card confirmation timed out"
	}

	result := "approved"
	if !out.approved {
		result = "rejected"
	}
	metrics.CardGatewayDuration.WithLabelValues(s.Gateway.Name(), result).Observe(time.Since(start).Seconds())
	if !out.approved {
		s.log.WithFields(logrus.Fields{"booking_id": b.ID, "reason": out.reason}).Info("card payment rejected")
	}
	return out
}

// StartCardCheckout creates the provider intent before the tenant pays, for client checkouts that
// need one up front (Razorpay orders). The returned intent id goes back as card.order_id on submit.
func (s *PaymentService) StartCardCheckout(ctx context.Context, p auth.Principal, bookingID int) (*models.CardCheckout, error) {
	unlock, err := s.Bookings.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	b, err := s.Bookings.Bookings.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.TenantID != p.UserID && !p.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "booking %d belongs to another tenant", b.ID)
	}
	if b.Status != models.BookingPending {
		return nil, apperrors.New(apperrors.KindInvalidTransition, "booking %d is %s; payments are only accepted while pending", b.ID, b.Status)
	}
	prop, err := s.Bookings.Properties.Get(ctx, b.PropertyID)
	if err != nil {
		return nil, err
	}
	if !prop.Accepts(models.MethodCard) {
		return nil, apperrors.New(apperrors.KindInvalidMethod, "payment method %q is not accepted for this property", models.MethodCard)
	}
	active, err := s.Payments.HasActive(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("check active payment: %w", err)
	}
	if active {
		return nil, apperrors.New(apperrors.KindDuplicatePayment, "booking %d already has an active payment", b.ID)
	}

	cctx, cancel := context.WithTimeout(ctx, s.CardTimeout)
	defer cancel()
	intentID, err := s.Gateway.CreateIntent(cctx, b.ID, b.TotalAmount)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, apperrors.Wrap(apperrors.KindExternalTimeout, err, "card gateway timed out")
	}
	if err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}
	return &models.CardCheckout{
		BookingID: b.ID,
		Gateway:   s.Gateway.Name(),
		IntentID:  intentID,
		Amount:    b.TotalAmount,
	}, nil
}

// Refund returns an approved card payment to the tenant. Admin only. The provider refund runs
// under the booking lock; once it succeeds the payment becomes refunded and a booking that is
// still pending or confirmed is cancelled, which frees its dates.
func (s *PaymentService) Refund(ctx context.Context, p auth.Principal, paymentID int, reason string) (*models.Payment, error) {
	if !p.IsAdmin() {
		return nil, apperrors.New(apperrors.KindForbidden, "only admins can refund payments")
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

	// re-read under the lock; a concurrent refund may have won
	payment, err = s.Payments.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Method != models.MethodCard || payment.IntentID == "" {
		return nil, apperrors.New(apperrors.KindInvalidMethod, "only card payments can be refunded")
	}
	if payment.Status != models.PaymentApproved {
		return nil, apperrors.New(apperrors.KindInvalidTransition, "payment %d is %s; only approved payments can be refunded", payment.ID, payment.Status)
	}
	b, err := s.Bookings.Bookings.Get(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}

	rctx, cancel := context.WithTimeout(ctx, s.CardTimeout)
	defer cancel()
	refundID, err := s.Gateway.Refund(rctx, gateway.Intent{ID: payment.IntentID, BookingID: b.ID, Amount: payment.Amount})
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, apperrors.Wrap(apperrors.KindExternalTimeout, err, "card gateway timed out")
	}
	if err != nil {
		return nil, fmt.Errorf("refund payment %d: %w", payment.ID, err)
	}

	// the provider has returned the money; record it even if the caller left
	ctx = context.WithoutCancel(ctx)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "refunded"
	}
	now := timeutil.Now()
	payment.Status = models.PaymentRefunded
	payment.RefundID = refundID
	payment.FailureReason = reason
	payment.RefundedBy = actor(p.UserID)
	payment.RefundedAt = &now

	from := b.Status
	cancelBooking := from == models.BookingPending || from == models.BookingConfirmed
	err = s.Bookings.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.Payments.MarkRefunded(ctx, payment); err != nil {
			return err
		}
		err := recordAudit(ctx, s.Bookings.Audit, auditEntry{
			Actor:       actor(p.UserID),
			Action:      models.AuditPaymentRefunded,
			EntityType:  models.EntityPayment,
			EntityID:    payment.ID,
			Description: fmt.Sprintf("Refunded %s for booking #%d (%s): %s", payment.Amount.Display(), b.ID, refundID, reason),
			From:        string(models.PaymentApproved),
			To:          string(models.PaymentRefunded),
		})
		if err != nil || !cancelBooking {
			return err
		}
		if err := s.Bookings.Bookings.UpdateStatus(ctx, b.ID, from, models.BookingCancelled, actor(p.UserID)); err != nil {
			return err
		}
		return recordAudit(ctx, s.Bookings.Audit, auditEntry{
			Actor:       actor(p.UserID),
			Action:      models.AuditBookingCancelled,
			EntityType:  models.EntityBooking,
			EntityID:    b.ID,
			Description: fmt.Sprintf("Cancelled booking #%d after refund of payment #%d", b.ID, payment.ID),
			From:        string(from),
			To:          string(models.BookingCancelled),
		})
	})
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"payment_id": payment.ID,
			"refund_id":  refundID,
		}).Error("refund issued but not recorded")
		return nil, err
	}

	metrics.PaymentsTotal.WithLabelValues(string(payment.Method), string(payment.Status)).Inc()
	s.log.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"booking_id": b.ID,
		"refund_id":  refundID,
		"by":         p.UserID,
	}).Info("payment refunded")

	s.Bookings.Events.Publish(notify.Event{
		Type:      notify.PaymentRefunded,
		Data:      payment,
		Timestamp: now,
		Audience:  []int{b.TenantID},
	})
	if cancelBooking {
		b.Status = models.BookingCancelled
		b.CancelledBy = actor(p.UserID)
		s.Bookings.notifyTransition(ctx, b)
	}
	return payment, nil
}

// receiptNumber is REF-XXXXXXXX, or CASH-XXXXXXXX for cash
func receiptNumber(m models.PaymentMethod) string {
	prefix := "REF-"
	if m == models.MethodCash {
		prefix = "CASH-"
	}
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// Get returns a payment visible to the principal
func (s *PaymentService) Get(ctx context.Context, p auth.Principal, id int) (*models.Payment, error) {
	payment, err := s.Payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment.TenantID == p.UserID || p.IsAdmin() {
		return payment, nil
	}
	prop, err := s.Bookings.Properties.Get(ctx, payment.PropertyID)
	if err != nil {
		return nil, err
	}
	if !p.CanManageProperty(prop) {
		return nil, apperrors.New(apperrors.KindForbidden, "payment %d belongs to another account", id)
	}
	return payment, nil
}

// ListForBooking returns every attempt on a booking the principal may see
func (s *PaymentService) ListForBooking(ctx context.Context, p auth.Principal, bookingID int) ([]*models.Payment, error) {
	if _, err := s.Bookings.Get(ctx, p, bookingID); err != nil {
		return nil, err
	}
	payments, err := s.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

// ListForPrincipal is "my payments" for tenants, payments on own properties for owners
func (s *PaymentService) ListForPrincipal(ctx context.Context, p auth.Principal, status models.PaymentStatus) ([]*models.Payment, error) {
	f := models.PaymentFilter{Status: status}
	switch p.Role {
	case models.RoleTenant:
		f.TenantID = p.UserID
	case models.RoleOwner:
		f.OwnerID = p.UserID
	case models.RoleAdmin:
	default:
		return nil, apperrors.Forbidden
	}
	payments, err := s.Payments.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	return payments, nil
}

// Methods describes how a property can be paid
func (s *PaymentService) Methods(ctx context.Context, propertyID int) (*models.PaymentMethodsResponse, error) {
	prop, err := s.Bookings.Properties.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	methods := make([]models.PaymentMethod, 0, len(models.PaymentMethods))
	for _, m := range models.PaymentMethods {
		if prop.Accepts(m) {
			methods = append(methods, m)
		}
	}
	return &models.PaymentMethodsResponse{
		PropertyID:        prop.ID,
		Methods:           methods,
		WalletName:        prop.WalletName,
		WalletNumber:      prop.WalletNumber,
		BankName:          prop.BankName,
		BankAccountNumber: prop.BankAccountNumber,
	}, nil
}

// UploadReceipt stores a wallet transfer receipt for the tenant's booking and returns its URL
func (s *PaymentService) UploadReceipt(ctx context.Context, p auth.Principal, bookingID int, filename, contentType string, body io.Reader, size int64) (string, error) {
	if s.Receipts == nil {
		return "", apperrors.New(apperrors.KindInternal, "receipt storage is not configured")
	}
	b, err := s.Bookings.Bookings.Get(ctx, bookingID)
	if err != nil {
		return "", err
	}
	if b.TenantID != p.UserID && !p.IsAdmin() {
		return "", apperrors.New(apperrors.KindForbidden, "booking %d belongs to another tenant", bookingID)
	}
	if _, ok := storage.Extension(contentType); !ok {
		return "", apperrors.New(apperrors.KindValidation, "unsupported receipt type %q", contentType)
	}
	if s.ReceiptMaxBytes > 0 && size > s.ReceiptMaxBytes {
		return "", apperrors.New(apperrors.KindValidation, "receipt exceeds %d bytes", s.ReceiptMaxBytes)
	}

	url, err := s.Receipts.Put(ctx, bookingID, filename, contentType, body, size)
	if err != nil {
		return "", fmt.Errorf("store receipt: %w", err)
	}
	s.log.WithFields(logrus.Fields{"booking_id": bookingID, "url": url}).Info("receipt uploaded")
	return url, nil
}

// ReceiptPDF renders the printable receipt of a payment
func (s *PaymentService) ReceiptPDF(ctx context.Context, p auth.Principal, paymentID int) ([]byte, string, error) {
	payment, err := s.Get(ctx, p, paymentID)
	if err != nil {
		return nil, "", err
	}
	b, err := s.Bookings.Bookings.Get(ctx, payment.BookingID)
	if err != nil {
		return nil, "", err
	}
	prop, err := s.Bookings.Properties.Get(ctx, b.PropertyID)
	if err != nil {
		return nil, "", err
	}
	out, err := receipt.Render(receipt.Data{Payment: payment, Booking: b, Property: prop})
	if err != nil {
		return nil, "", err
	}
	return out, payment.ReceiptNumber + ".pdf", nil
}
