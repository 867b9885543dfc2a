package services

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rental-backend/internal/apperrors"
	"rental-backend/internal/auth"
	"rental-backend/internal/availability"
	"rental-backend/internal/gateway"
	"rental-backend/internal/lock"
	"rental-backend/internal/models"
	"rental-backend/internal/notify"
)

// memDB is an in-memory stand-in for Postgres. WithinTx snapshots the tables and
// restores them when fn fails, so rollbacks are observable in tests.
type memDB struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	users      map[int]models.User
	properties map[int]models.Property
	bookings   map[int]models.Booking
	payments   map[int]models.Payment
	audits     []models.AuditLog
	nextID     int
	epoch      time.Time

	// failAudit makes every audit write fail
	failAudit error
}

func newMemDB() *memDB {
	return &memDB{
		users:      map[int]models.User{},
		properties: map[int]models.Property{},
		bookings:   map[int]models.Booking{},
		payments:   map[int]models.Payment{},
		epoch:      time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// id hands out ids and a strictly increasing created_at. Callers hold mu.
func (m *memDB) id() (int, time.Time) {
	m.nextID++
	return m.nextID, m.epoch.Add(time.Duration(m.nextID) * time.Second)
}

type memSnapshot struct {
	users      map[int]models.User
	properties map[int]models.Property
	bookings   map[int]models.Booking
	payments   map[int]models.Payment
	audits     []models.AuditLog
}

func copyMap[V any](in map[int]V) map[int]V {
	out := make(map[int]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *memDB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snap := memSnapshot{
		users:      copyMap(m.users),
		properties: copyMap(m.properties),
		bookings:   copyMap(m.bookings),
		payments:   copyMap(m.payments),
		audits:     append([]models.AuditLog(nil), m.audits...),
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.users, m.properties, m.bookings, m.payments, m.audits =
			snap.users, snap.properties, snap.bookings, snap.payments, snap.audits
		m.mu.Unlock()
		return err
	}
	return nil
}

// ---- properties ----

type memProperties struct{ db *memDB }

func (s memProperties) Create(_ context.Context, p *models.Property) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p.ID, p.CreatedAt = s.db.id()
	p.UpdatedAt = p.CreatedAt
	s.db.properties[p.ID] = *p
	return nil
}

func (s memProperties) Get(_ context.Context, id int) (*models.Property, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.properties[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "property not found")
	}
	return &p, nil
}

func (s memProperties) List(_ context.Context, f models.PropertyFilter) ([]*models.Property, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Property
	for _, p := range s.db.properties {
		if f.OwnerID != 0 && p.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Bookable && !p.Bookable() {
			continue
		}
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memProperties) SetAvailability(_ context.Context, id int, available bool) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.properties[id]
	if !ok {
		return apperrors.NotFound
	}
	p.IsAvailable = available
	s.db.properties[id] = p
	return nil
}

func (s memProperties) UpdateStatus(_ context.Context, id int, status models.PropertyStatus) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.properties[id]
	if !ok {
		return apperrors.NotFound
	}
	p.Status = status
	s.db.properties[id] = p
	return nil
}

// ---- bookings (also the availability store) ----

type memBookings struct {
	db *memDB
	// afterGet runs once a Get has read its row, before the caller acts on it
	afterGet func(ctx context.Context, id int)
}

func rangeOf(b models.Booking) availability.DateRange {
	return availability.DateRange{Start: b.StartDate, End: b.EndDate}
}

func (s memBookings) Create(_ context.Context, b *models.Booking) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.properties[b.PropertyID]; !ok {
		return apperrors.New(apperrors.KindNotFound, "property not found")
	}
	// same guarantee as the bookings_no_overlap constraint
	for _, other := range s.db.bookings {
		if other.PropertyID == b.PropertyID && other.Status.Committed() && rangeOf(other).Overlaps(rangeOf(*b)) {
			return apperrors.DateConflict
		}
	}
	b.ID, b.CreatedAt = s.db.id()
	b.UpdatedAt = b.CreatedAt
	s.db.bookings[b.ID] = *b
	return nil
}

func (s memBookings) Get(ctx context.Context, id int) (*models.Booking, error) {
	s.db.mu.Lock()
	b, ok := s.db.bookings[id]
	s.db.mu.Unlock()
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "booking not found")
	}
	if s.afterGet != nil {
		s.afterGet(ctx, id)
	}
	return &b, nil
}

func (s memBookings) UpdateStatus(_ context.Context, id int, from, to models.BookingStatus, cancelledBy *int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	b, ok := s.db.bookings[id]
	if !ok {
		return apperrors.NotFound
	}
	if b.Status != from {
		return apperrors.New(apperrors.KindInvalidTransition, "booking %d is %s", id, b.Status)
	}
	b.Status = to
	if cancelledBy != nil {
		by := *cancelledBy
		b.CancelledBy = &by
	}
	s.db.bookings[id] = b
	return nil
}

func (s memBookings) List(_ context.Context, f models.BookingFilter) ([]*models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Booking
	for _, b := range s.db.bookings {
		if f.TenantID != 0 && b.TenantID != f.TenantID {
			continue
		}
		if f.OwnerID != 0 && s.db.properties[b.PropertyID].OwnerID != f.OwnerID {
			continue
		}
		if f.PropertyID != 0 && b.PropertyID != f.PropertyID {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s memBookings) CompleteElapsed(_ context.Context, today time.Time) ([]*models.Booking, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Booking
	for id, b := range s.db.bookings {
		if b.Status == models.BookingConfirmed && !b.EndDate.After(today) {
			b.Status = models.BookingCompleted
			s.db.bookings[id] = b
			b := b
			out = append(out, &b)
		}
	}
	return out, nil
}

func (s memBookings) FindConflict(_ context.Context, propertyID int, r availability.DateRange) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, b := range s.db.bookings {
		if b.PropertyID == propertyID && b.Status.Committed() && rangeOf(b).Overlaps(r) {
			return b.ID, nil
		}
	}
	return 0, nil
}

func (s memBookings) OccupiedRanges(_ context.Context, propertyID int, from time.Time) ([]availability.DateRange, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []availability.DateRange
	for _, b := range s.db.bookings {
		if b.PropertyID == propertyID && b.Status.Committed() && b.EndDate.After(from) {
			out = append(out, rangeOf(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// ---- payments ----

type memPayments struct{ db *memDB }

// fill copies booking-derived fields the SQL join would provide. Callers hold mu.
func (s memPayments) fill(p models.Payment) *models.Payment {
	b := s.db.bookings[p.BookingID]
	p.PropertyID = b.PropertyID
	p.TenantID = b.TenantID
	return &p
}

func (s memPayments) Create(_ context.Context, p *models.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if p.Status.Active() {
		for _, other := range s.db.payments {
			if other.BookingID == p.BookingID && other.Status.Active() {
				return apperrors.DuplicatePayment
			}
		}
	}
	p.ID, p.CreatedAt = s.db.id()
	p.UpdatedAt = p.CreatedAt
	s.db.payments[p.ID] = *p
	return nil
}

func (s memPayments) Get(_ context.Context, id int) (*models.Payment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	p, ok := s.db.payments[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "payment not found")
	}
	return s.fill(p), nil
}

func (s memPayments) ListByBooking(_ context.Context, bookingID int) ([]*models.Payment, error) {
	return s.filter(func(p models.Payment) bool { return p.BookingID == bookingID }, false), nil
}

func (s memPayments) HasActive(_ context.Context, bookingID int) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, p := range s.db.payments {
		if p.BookingID == bookingID && p.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (s memPayments) UpdateReview(_ context.Context, p *models.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.payments[p.ID]
	if !ok {
		return apperrors.NotFound
	}
	stored.Status = p.Status
	stored.FailureReason = p.FailureReason
	stored.ReviewedBy = p.ReviewedBy
	stored.ReviewedAt = p.ReviewedAt
	s.db.payments[p.ID] = stored
	return nil
}

func (s memPayments) MarkRefunded(_ context.Context, p *models.Payment) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	stored, ok := s.db.payments[p.ID]
	if !ok {
		return apperrors.NotFound
	}
	if stored.Status != models.PaymentApproved {
		return apperrors.New(apperrors.KindInvalidTransition, "payment %d is %s", p.ID, stored.Status)
	}
	stored.Status = models.PaymentRefunded
	stored.RefundID = p.RefundID
	stored.FailureReason = p.FailureReason
	stored.RefundedBy = p.RefundedBy
	stored.RefundedAt = p.RefundedAt
	s.db.payments[p.ID] = stored
	return nil
}

func (s memPayments) RejectPending(_ context.Context, bookingID int, reason string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for id, p := range s.db.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentPendingReview {
			p.Status = models.PaymentRejected
			p.FailureReason = reason
			s.db.payments[id] = p
			n++
		}
	}
	return n, nil
}

func (s memPayments) PendingReviewPage(_ context.Context, ownerID int, after *models.ReviewCursor, limit int) ([]*models.Payment, error) {
	all := s.filter(func(p models.Payment) bool { return p.Status == models.PaymentPendingReview }, false)
	var out []*models.Payment
	for _, p := range all {
		if ownerID != 0 && s.ownerOf(p) != ownerID {
			continue
		}
		if after != nil && (p.CreatedAt.Before(after.CreatedAt) ||
			(p.CreatedAt.Equal(after.CreatedAt) && p.ID <= after.ID)) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s memPayments) ownerOf(p *models.Payment) int {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.properties[p.PropertyID].OwnerID
}

func (s memPayments) List(_ context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	out := s.filter(func(p models.Payment) bool {
		return (f.BookingID == 0 || p.BookingID == f.BookingID) && (f.Status == "" || p.Status == f.Status)
	}, true)
	var filtered []*models.Payment
	for _, p := range out {
		if f.TenantID != 0 && p.TenantID != f.TenantID {
			continue
		}
		if f.OwnerID != 0 && s.ownerOf(p) != f.OwnerID {
			continue
		}
		filtered = append(filtered, p)
	}
	return filtered, nil
}

// filter returns matching payments ordered by (created_at, id), or newest first when desc
func (s memPayments) filter(match func(models.Payment) bool, desc bool) []*models.Payment {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.Payment
	for _, p := range s.db.payments {
		if match(p) {
			out = append(out, s.fill(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ---- users, audit ----

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, u *models.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, other := range s.db.users {
		if other.Email == u.Email {
			return apperrors.New(apperrors.KindValidation, "email is already registered")
		}
	}
	u.ID, u.CreatedAt = s.db.id()
	u.IsActive = true
	s.db.users[u.ID] = *u
	return nil
}

func (s memUsers) Get(_ context.Context, id int) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "user not found")
	}
	return &u, nil
}

func (s memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.New(apperrors.KindNotFound, "user not found")
}

type memAudit struct{ db *memDB }

func (s memAudit) Record(_ context.Context, l *models.AuditLog) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if s.db.failAudit != nil {
		return s.db.failAudit
	}
	l.ID, l.CreatedAt = s.db.id()
	s.db.audits = append(s.db.audits, *l)
	return nil
}

func (s memAudit) ListForEntity(_ context.Context, entityType string, entityID int) ([]*models.AuditLog, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*models.AuditLog
	for _, a := range s.db.audits {
		if a.EntityType == entityType && a.EntityID == entityID {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (m *memDB) auditActions(entityType string, entityID int) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, a := range m.audits {
		if a.EntityType == entityType && a.EntityID == entityID {
			out = append(out, a.Action)
		}
	}
	return out
}

// ---- collaborators ----

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recordingPublisher) Publish(ev notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type memReceipts struct {
	puts int
	err  error
}

func (m *memReceipts) Put(_ context.Context, bookingID int, filename, contentType string, body io.Reader, size int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return "", err
	}
	m.puts++
	return "https://receipts.example.test/receipts/" + filename, nil
}

var errBoom = errors.New("boom")

// ---- fixture ----

const (
	ownerID       = 1
	tenantID      = 2
	otherTenantID = 3
	otherOwnerID  = 4
	adminID       = 9
)

var (
	owner       = auth.Principal{UserID: ownerID, Role: models.RoleOwner}
	tenant      = auth.Principal{UserID: tenantID, Role: models.RoleTenant}
	otherTenant = auth.Principal{UserID: otherTenantID, Role: models.RoleTenant}
	otherOwner  = auth.Principal{UserID: otherOwnerID, Role: models.RoleOwner}
	admin       = auth.Principal{UserID: adminID, Role: models.RoleAdmin}
)

type fixture struct {
	db         *memDB
	events     *recordingPublisher
	gw         *gateway.MockGateway
	receipts   *memReceipts
	index      *availability.Index
	bookings   *BookingService
	payments   *PaymentService
	reviews    *ReviewService
	properties *PropertyService
	// propertyID is an approved listing priced at PHP 35,000 accepting every method
	propertyID int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	events := &recordingPublisher{}
	gw := gateway.NewMockGateway()
	receipts := &memReceipts{}

	locker := lock.NewKeyedMutex()
	index := availability.NewIndex(memBookings{db: db}, locker, time.Second)
	index.SetClock(func() time.Time { return mustDay(t, "2024-01-01") })

	bookings := NewBookingService(memBookings{db: db}, memProperties{db}, memPayments{db}, memAudit{db}, db,
		index, locker, time.Second, events)
	payments := NewPaymentService(memPayments{db}, bookings, gw, time.Second, receipts, 1<<20)
	reviews := NewReviewService(bookings, memPayments{db})

	f := &fixture{
		db:         db,
		events:     events,
		gw:         gw,
		receipts:   receipts,
		index:      index,
		bookings:   bookings,
		payments:   payments,
		reviews:    reviews,
		properties: NewPropertyService(memProperties{db}),
	}
	f.propertyID = f.addProperty(t, ownerID, models.PropertyApproved, true, models.PaymentMethods...)
	return f
}

func (f *fixture) addProperty(t *testing.T, owner int, status models.PropertyStatus, available bool, methods ...models.PaymentMethod) int {
	t.Helper()
	p := &models.Property{
		OwnerID:                owner,
		Name:                   "Unit 4B",
		Address:                "Makati City",
		PricePerMonth:          models.Pesos(35000),
		IsAvailable:            available,
		Status:                 status,
		AcceptedPaymentMethods: methods,
		WalletName:             "GCash",
		WalletNumber:           "09171234567",
	}
	require.NoError(t, memProperties{f.db}.Create(context.Background(), p))
	return p.ID
}

func (f *fixture) book(t *testing.T, p auth.Principal, start, end string) *models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), p, f.propertyID, mustRange(t, start, end))
	require.NoError(t, err)
	return b
}

func (f *fixture) booking(t *testing.T, id int) *models.Booking {
	t.Helper()
	b, err := memBookings{db: f.db}.Get(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) payment(t *testing.T, id int) *models.Payment {
	t.Helper()
	p, err := memPayments{f.db}.Get(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (f *fixture) submitWallet(t *testing.T, b *models.Booking) *models.Payment {
	t.Helper()
	p, err := f.payments.SubmitPayment(context.Background(), tenant, &models.SubmitPaymentRequest{
		BookingID:  b.ID,
		Method:     models.MethodWallet,
		Amount:     b.TotalAmount,
		ReceiptRef: "https://receipts.example.test/r1.jpg",
	})
	require.NoError(t, err)
	return p
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func mustRange(t *testing.T, start, end string) availability.DateRange {
	t.Helper()
	r, err := availability.ParseDateRange(start, end)
	require.NoError(t, err)
	return r
}
