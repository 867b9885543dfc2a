package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/lock"
)

type memBooking struct {
	id         int
	propertyID int
	r          DateRange
	committed  bool
}

type memStore struct {
	mu       sync.Mutex
	bookings []*memBooking
	nextID   int
}

func (m *memStore) FindConflict(_ context.Context, propertyID int, r DateRange) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.propertyID == propertyID && b.committed && b.r.Overlaps(r) {
			return b.id, nil
		}
	}
	return 0, nil
}

func (m *memStore) OccupiedRanges(_ context.Context, propertyID int, from time.Time) ([]DateRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DateRange
	for _, b := range m.bookings {
		if b.propertyID == propertyID && b.committed && b.r.End.After(from) {
			out = append(out, b.r)
		}
	}
	return out, nil
}

func (m *memStore) insert(propertyID int, r DateRange) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.bookings = append(m.bookings, &memBooking{id: m.nextID, propertyID: propertyID, r: r, committed: true})
	return m.nextID
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}

func newTestIndex(store Store) *Index {
	ix := NewIndex(store, lock.NewKeyedMutex(), time.Second)
	ix.SetClock(func() time.Time { return day("2024-01-01") })
	return ix
}

func TestOverlapIsHalfOpen(t *testing.T) {
	a := mustRange(t, "2024-01-01", "2024-01-10")

	tests := []struct {
		name  string
		other DateRange
		want  bool
	}{
		{"adjacent after", mustRange(t, "2024-01-10", "2024-01-15"), false},
		{"adjacent before", mustRange(t, "2023-12-25", "2024-01-01"), false},
		{"inside", mustRange(t, "2024-01-03", "2024-01-04"), true},
		{"covering", mustRange(t, "2023-12-01", "2024-02-01"), true},
		{"tail overlap", mustRange(t, "2024-01-09", "2024-01-20"), true},
		{"identical", a, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(a))
		})
	}
}

func TestNewDateRangeRejectsEmpty(t *testing.T) {
	_, err := ParseDateRange("2024-01-10", "2024-01-10")
	assert.ErrorIs(t, err, apperrors.InvalidRange)

	_, err = ParseDateRange("2024-01-10", "2024-01-09")
	assert.ErrorIs(t, err, apperrors.InvalidRange)

	_, err = ParseDateRange("10/01/2024", "2024-01-09")
	assert.ErrorIs(t, err, apperrors.InvalidRange)
}

func TestCheckRejectsPastStart(t *testing.T) {
	ix := newTestIndex(&memStore{})

	_, err := ix.Check(context.Background(), 1, mustRange(t, "2023-12-31", "2024-01-05"))
	assert.ErrorIs(t, err, apperrors.InvalidRange)

	av, err := ix.Check(context.Background(), 1, mustRange(t, "2024-01-01", "2024-01-05"))
	require.NoError(t, err)
	assert.True(t, av.Available)
}

func TestCheckReportsConflictingBooking(t *testing.T) {
	store := &memStore{}
	id := store.insert(1, mustRange(t, "2024-02-01", "2024-02-10"))
	ix := newTestIndex(store)

	av, err := ix.Check(context.Background(), 1, mustRange(t, "2024-02-05", "2024-02-07"))
	require.NoError(t, err)
	assert.False(t, av.Available)
	require.NotNil(t, av.ConflictingBookingID)
	assert.Equal(t, id, *av.ConflictingBookingID)

	// other property and adjacent dates are free
	av, err = ix.Check(context.Background(), 2, mustRange(t, "2024-02-05", "2024-02-07"))
	require.NoError(t, err)
	assert.True(t, av.Available)

	av, err = ix.Check(context.Background(), 1, mustRange(t, "2024-02-10", "2024-02-12"))
	require.NoError(t, err)
	assert.True(t, av.Available)
}

func TestReserveConcurrentSameRange(t *testing.T) {
	store := &memStore{}
	ix := newTestIndex(store)
	r := mustRange(t, "2024-03-01", "2024-04-01")

	const n = 25
	var wg sync.WaitGroup
	errs := make([]error, n)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = ix.Reserve(context.Background(), 7, r, func(ctx context.Context) (int, error) {
				time.Sleep(time.Millisecond)
				return store.insert(7, r), nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperrors.DateConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, store.bookings, 1)
}

func TestReserveReturnsTokenAndPropagatesCommitError(t *testing.T) {
	store := &memStore{}
	ix := newTestIndex(store)
	r := mustRange(t, "2024-05-01", "2024-05-03")

	res, err := ix.Reserve(context.Background(), 1, r, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, res.BookingID)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, 2, r.Days())

	boom := errors.New("insert failed")
	_, err = ix.Reserve(context.Background(), 1, r, func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestOccupiedSkipsEndedBookings(t *testing.T) {
	store := &memStore{}
	store.insert(3, mustRange(t, "2023-11-01", "2023-12-01"))
	store.insert(3, mustRange(t, "2024-01-05", "2024-01-09"))
	ix := newTestIndex(store)

	ranges, err := ix.Occupied(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, ranges, 1)
	assert.Equal(t, day("2024-01-05"), ranges[0].Start)
}

func TestDateRangeJSON(t *testing.T) {
	r := mustRange(t, "2024-03-01", "2024-04-01")
	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"start_date":"2024-03-01","end_date":"2024-04-01"}`, string(data))

	var back DateRange
	require.NoError(t, back.UnmarshalJSON(data))
	assert.Equal(t, r, back)
	assert.Equal(t, 2, back.Months())
}
