package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/availability"
	"rental-backend/internal/db"
	"rental-backend/internal/models"
)

// BookingRepository also serves as the availability.Store
type BookingRepository struct {
	DB *pgxpool.Pool
}

var _ availability.Store = (*BookingRepository)(nil)

func NewBookingRepository(pool *pgxpool.Pool) *BookingRepository {
	return &BookingRepository{DB: pool}
}

const bookingColumns = `b.id, b.property_id, b.tenant_id, b.start_date, b.end_date, b.months,
	b.total_amount, b.status, b.cancelled_by, b.created_at, b.updated_at`

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	err := row.Scan(&b.ID, &b.PropertyID, &b.TenantID, &b.StartDate, &b.EndDate, &b.Months,
		&b.TotalAmount, &b.Status, &b.CancelledBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a pending booking. The property row is locked for the rest of the
// transaction and the bookings_no_overlap constraint backs up the in-process check.
func (r *BookingRepository) Create(ctx context.Context, b *models.Booking) error {
	conn := db.Conn(ctx, r.DB)

	var propertyID int
	err := conn.QueryRow(ctx, `SELECT id FROM properties WHERE id=$1 FOR UPDATE`, b.PropertyID).Scan(&propertyID)
	if err != nil {
		return notFound(err, "property")
	}

	if b.Status == "" {
		b.Status = models.BookingPending
	}
	err = conn.QueryRow(ctx,
		`INSERT INTO bookings(property_id, tenant_id, start_date, end_date, months, total_amount, status)
		 VALUES($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		b.PropertyID, b.TenantID, b.StartDate, b.EndDate, b.Months, int64(b.TotalAmount), string(b.Status),
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if _, ok := constraintName(err, pgExclusionViolation); ok {
		return apperrors.Wrap(apperrors.KindDateConflict, err, "dates are already booked")
	}
	return err
}

func (r *BookingRepository) Get(ctx context.Context, id int) (*models.Booking, error) {
	b, err := scanBooking(db.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.id=$1`, id))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return b, nil
}

// UpdateStatus moves a booking from one status to another. The write only applies while the
// row is still in from; a row moved by someone else in between yields InvalidTransition.
// cancelledBy is only stored for cancellations.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int, from, to models.BookingStatus, cancelledBy *int) error {
	conn := db.Conn(ctx, r.DB)
	tag, err := conn.Exec(ctx,
		`UPDATE bookings SET status=$1, cancelled_by=COALESCE($2, cancelled_by), updated_at=NOW()
		 WHERE id=$3 AND status=$4`,
		string(to), cancelledBy, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	if err := conn.QueryRow(ctx, `SELECT status FROM bookings WHERE id=$1`, id).Scan(&current); err != nil {
		return notFound(err, "booking")
	}
	return apperrors.New(apperrors.KindInvalidTransition, "booking %d is %s; cannot move it from %s to %s", id, current, from, to)
}

// List returns bookings matching the filter, newest first
func (r *BookingRepository) List(ctx context.Context, f models.BookingFilter) ([]*models.Booking, error) {
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
	if f.PropertyID != 0 {
		args = append(args, f.PropertyID)
		conds = append(conds, fmt.Sprintf("b.property_id=$%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("b.status=$%d", len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings b JOIN properties p ON p.id = b.property_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY b.created_at DESC, b.id DESC`

	return r.queryBookings(ctx, query, args...)
}

// CompleteElapsed marks confirmed bookings whose stay ended on or before today as completed
func (r *BookingRepository) CompleteElapsed(ctx context.Context, today time.Time) ([]*models.Booking, error) {
	return r.queryBookings(ctx,
		`UPDATE bookings b SET status='completed', updated_at=NOW()
		 WHERE b.status='confirmed' AND b.end_date <= $1
		 RETURNING `+bookingColumns, today)
}

func (r *BookingRepository) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// FindConflict returns the id of a pending or confirmed booking overlapping rng, or 0
func (r *BookingRepository) FindConflict(ctx context.Context, propertyID int, rng availability.DateRange) (int, error) {
	var id int
	err := db.Conn(ctx, r.DB).QueryRow(ctx,
		`SELECT id FROM bookings
		 WHERE property_id=$1 AND status IN ('pending', 'confirmed')
		   AND start_date < $3 AND $2 < end_date
		 ORDER BY start_date
		 LIMIT 1`,
		propertyID, rng.Start, rng.End).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

// OccupiedRanges lists committed intervals ending after from
func (r *BookingRepository) OccupiedRanges(ctx context.Context, propertyID int, from time.Time) ([]availability.DateRange, error) {
	rows, err := db.Conn(ctx, r.DB).Query(ctx,
		`SELECT start_date, end_date FROM bookings
		 WHERE property_id=$1 AND status IN ('pending', 'confirmed') AND end_date > $2
		 ORDER BY start_date`,
		propertyID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranges []availability.DateRange
	for rows.Next() {
		var rng availability.DateRange
		if err := rows.Scan(&rng.Start, &rng.End); err != nil {
			return nil, err
		}
		ranges = append(ranges, rng)
	}
	return ranges, rows.Err()
}
