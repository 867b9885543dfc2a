package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/db"
	"rental-backend/internal/models"
)

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: pool}
}

const paymentSelect = `SELECT pm.id, pm.booking_id, b.property_id, b.tenant_id, pm.method, pm.amount, pm.status,
	pm.receipt_ref, pm.receipt_number, pm.intent_id, pm.failure_reason, pm.reviewed_by, pm.reviewed_at,
	pm.refund_id, pm.refunded_by, pm.refunded_at, pm.created_at, pm.updated_at
	FROM payments pm
	JOIN bookings b ON b.id = pm.booking_id
	JOIN properties p ON p.id = b.property_id`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.PropertyID, &p.TenantID, &p.Method, &p.Amount, &p.Status,
		&p.ReceiptRef, &p.ReceiptNumber, &p.IntentID, &p.FailureReason, &p.ReviewedBy, &p.ReviewedAt,
		&p.RefundID, &p.RefundedBy, &p.RefundedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a payment. A second active payment for the booking violates
// uq_payments_active_booking and is reported as DuplicatePayment.
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	err := db.Conn(ctx, r.DB).QueryRow(ctx,
		`INSERT INTO payments(booking_id, method, amount, status, receipt_ref, receipt_number,
			intent_id, failure_reason)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		p.BookingID, string(p.Method), int64(p.Amount), string(p.Status), p.ReceiptRef, p.ReceiptNumber,
		p.IntentID, p.FailureReason,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if name, ok := constraintName(err, pgUniqueViolation); ok && name == "uq_payments_active_booking" {
		return apperrors.Wrap(apperrors.KindDuplicatePayment, err, "booking already has an active payment")
	}
	return err
}

func (r *PaymentRepository) Get(ctx context.Context, id int) (*models.Payment, error) {
	p, err := scanPayment(db.Conn(ctx, r.DB).QueryRow(ctx, paymentSelect+` WHERE pm.id=$1`, id))
	if err != nil {
		return nil, notFound(err, "payment")
	}
	return p, nil
}

// ListByBooking returns every attempt for a booking, oldest first
func (r *PaymentRepository) ListByBooking(ctx context.Context, bookingID int) ([]*models.Payment, error) {
	return r.queryPayments(ctx, paymentSelect+` WHERE pm.booking_id=$1 ORDER BY pm.created_at, pm.id`, bookingID)
}

// HasActive reports whether the booking has a payment that is not rejected
func (r *PaymentRepository) HasActive(ctx context.Context, bookingID int) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE booking_id=$1 AND status <> 'rejected')`,
		bookingID).Scan(&exists)
	return exists, err
}

// UpdateReview stores a review outcome on the payment
func (r *PaymentRepository) UpdateReview(ctx context.Context, p *models.Payment) error {
	err := db.Conn(ctx, r.DB).QueryRow(ctx,
		`UPDATE payments SET status=$1, failure_reason=$2, reviewed_by=$3, reviewed_at=$4, updated_at=NOW()
		 WHERE id=$5
		 RETURNING updated_at`,
		string(p.Status), p.FailureReason, p.ReviewedBy, p.ReviewedAt, p.ID,
	).Scan(&p.UpdatedAt)
	return notFound(err, "payment")
}

// MarkRefunded records a provider refund on an approved payment. A payment that is no
// longer approved yields InvalidTransition.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, p *models.Payment) error {
	err := db.Conn(ctx, r.DB).QueryRow(ctx,
		`UPDATE payments SET status='refunded', refund_id=$1, failure_reason=$2, refunded_by=$3, refunded_at=$4,
			updated_at=NOW()
		 WHERE id=$5 AND status='approved'
		 RETURNING updated_at`,
		p.RefundID, p.FailureReason, p.RefundedBy, p.RefundedAt, p.ID,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.New(apperrors.KindInvalidTransition, "payment %d is not an approved payment", p.ID)
	}
	return err
}

// RejectPending rejects any payment still awaiting review on the booking
func (r *PaymentRepository) RejectPending(ctx context.Context, bookingID int, reason string) (int, error) {
	tag, err := db.Conn(ctx, r.DB).Exec(ctx,
		`UPDATE payments SET status='rejected', failure_reason=$1, updated_at=NOW()
		 WHERE booking_id=$2 AND status='pending_review'`,
		reason, bookingID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// PendingReviewPage returns up to limit pending_review payments after the cursor, ordered
// by (created_at, id). ownerID 0 means every property.
func (r *PaymentRepository) PendingReviewPage(ctx context.Context, ownerID int, after *models.ReviewCursor, limit int) ([]*models.Payment, error) {
	args := []any{}
	conds := []string{"pm.status='pending_review'"}
	if ownerID != 0 {
		args = append(args, ownerID)
		conds = append(conds, fmt.Sprintf("p.owner_id=$%d", len(args)))
	}
	if after != nil {
		args = append(args, after.CreatedAt, after.ID)
		conds = append(conds, fmt.Sprintf("(pm.created_at, pm.id) > ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, limit)

	query := paymentSelect + ` WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(` ORDER BY pm.created_at, pm.id LIMIT $%d`, len(args))
	return r.queryPayments(ctx, query, args...)
}

// List returns payments matching the filter, newest first
func (r *PaymentRepository) List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	var (
		conds []string
		args  []any
	)
	if f.TenantID != 0 {
		args = append(args, f.TenantID)
		conds = append(conds, fmt.Sprintf("b.tenant_id=$%d", len(args)))
	}
	if f.OwnerID != 0 {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("p.owner_id=$%d", len(args)))
	}
	if f.BookingID != 0 {
		args = append(args, f.BookingID)
		conds = append(conds, fmt.Sprintf("pm.booking_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("pm.status=$%d", len(args)))
	}

	query := paymentSelect
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY pm.created_at DESC, pm.id DESC`
	return r.queryPayments(ctx, query, args...)
}

func (r *PaymentRepository) queryPayments(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
