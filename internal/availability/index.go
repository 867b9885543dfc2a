// Package availability answers "is this property free for these dates" and
// reserves intervals under a per-property lock.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/cache"
	"rental-backend/internal/lock"
	"rental-backend/internal/metrics"
	"rental-backend/internal/timeutil"
)

const occupiedTTL = 5 * time.Minute

// Store reads committed (pending or confirmed) bookings
type Store interface {
	// FindConflict returns the id of a committed booking overlapping r, or 0
	FindConflict(ctx context.Context, propertyID int, r DateRange) (int, error)
	// OccupiedRanges lists committed intervals that have not ended yet, ordered by start
	OccupiedRanges(ctx context.Context, propertyID int, from time.Time) ([]DateRange, error)
}

type Availability struct {
	Available            bool `json:"available"`
	ConflictingBookingID *int `json:"conflicting_booking_id,omitempty"`
}

// Reservation is returned by a successful Reserve
type Reservation struct {
	Token      string    `json:"token"`
	PropertyID int       `json:"property_id"`
	Range      DateRange `json:"range"`
	BookingID  int       `json:"booking_id"`
}

// CommitFunc persists the booking row while the property lock is held and returns its id
type CommitFunc func(ctx context.Context) (int, error)

type Index struct {
	store       Store
	locker      lock.Locker
	lockTimeout time.Duration
	today       func() time.Time
}

func NewIndex(store Store, locker lock.Locker, lockTimeout time.Duration) *Index {
	return &Index{
		store:       store,
		locker:      locker,
		lockTimeout: lockTimeout,
		today:       timeutil.Today,
	}
}

// SetClock overrides the current-day source
func (ix *Index) SetClock(today func() time.Time) {
	ix.today = today
}

// Validate rejects ranges that start before today
func (ix *Index) Validate(r DateRange) error {
	if !r.End.After(r.Start) {
		return apperrors.New(apperrors.KindInvalidRange, "end date must be after start date")
	}
	if r.Start.Before(ix.today()) {
		return apperrors.New(apperrors.KindInvalidRange, "start date %s is in the past", r.Start.Format(timeutil.DateLayout))
	}
	return nil
}

// Check reports whether r is free on the property
func (ix *Index) Check(ctx context.Context, propertyID int, r DateRange) (*Availability, error) {
	if err := ix.Validate(r); err != nil {
		return nil, err
	}
	id, err := ix.store.FindConflict(ctx, propertyID, r)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}
	if id != 0 {
		return &Availability{Available: false, ConflictingBookingID: &id}, nil
	}
	return &Availability{Available: true}, nil
}

// Reserve holds the property lock for conflict check plus commit. The loser of a race gets DateConflict.
func (ix *Index) Reserve(ctx context.Context, propertyID int, r DateRange, commit CommitFunc) (*Reservation, error) {
	if err := ix.Validate(r); err != nil {
		return nil, err
	}

	unlock, err := lock.Acquire(ctx, ix.locker, lock.PropertyKey(propertyID), ix.lockTimeout)
	if err != nil {
		return nil, err
	}
	defer unlock()

	conflict, err := ix.store.FindConflict(ctx, propertyID, r)
	if err != nil {
		return nil, fmt.Errorf("reserve: %w", err)
	}
	if conflict != 0 {
		metrics.BookingsTotal.WithLabelValues("conflict").Inc()
		return nil, apperrors.New(apperrors.KindDateConflict, "dates overlap booking %d", conflict)
	}

	bookingID, err := commit(ctx)
	if err != nil {
		if errors.Is(err, apperrors.DateConflict) {
			metrics.BookingsTotal.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	ix.Invalidate(ctx, propertyID)
	metrics.BookingsTotal.WithLabelValues("created").Inc()
	return &Reservation{
		Token:      uuid.NewString(),
		PropertyID: propertyID,
		Range:      r,
		BookingID:  bookingID,
	}, nil
}

// Invalidate drops cached occupancy after an interval is committed or freed
func (ix *Index) Invalidate(ctx context.Context, propertyID int) {
	cache.InvalidateOccupied(ctx, propertyID)
}

// Occupied lists upcoming committed intervals for calendar display
func (ix *Index) Occupied(ctx context.Context, propertyID int) ([]DateRange, error) {
	key := cache.OccupiedKey(propertyID)
	var ranges []DateRange
	if cache.GetJSON(ctx, key, &ranges) {
		return ranges, nil
	}

	ranges, err := ix.store.OccupiedRanges(ctx, propertyID, ix.today())
	if err != nil {
		return nil, fmt.Errorf("occupied ranges: %w", err)
	}
	if ranges == nil {
		ranges = []DateRange{}
	}
	cache.SetJSON(ctx, key, ranges, occupiedTTL)
	return ranges, nil
}
