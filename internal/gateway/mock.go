package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rental-backend/internal/models"
)

// Test card tokens understood by MockGateway
const (
	TokenApprove = "tok_visa"
	TokenDecline = "tok_chargeDeclined"
)

// MockGateway approves every card except TokenDecline. Used for local runs and tests.
type MockGateway struct {
	mu       sync.Mutex
	intents  map[string]int
	refunded map[string]string
	// Delay is applied to Confirm to simulate provider latency
	Delay time.Duration
	// Err, if set, is returned by Confirm
	Err error
	// RefundErr, if set, is returned by Refund
	RefundErr error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{intents: make(map[string]int), refunded: make(map[string]string)}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreateIntent(ctx context.Context, bookingID int, amount models.Amount) (string, error) {
	id := "pi_mock_" + uuid.NewString()[:8]
	g.mu.Lock()
	g.intents[id] = bookingID
	g.mu.Unlock()
	return id, nil
}

func (g *MockGateway) Confirm(ctx context.Context, intent Intent, card models.CardDetails) (*Result, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.Err != nil {
		return nil, g.Err
	}

	g.mu.Lock()
	bookingID, ok := g.intents[intent.ID]
	g.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown intent %s", intent.ID)
	}
	if bookingID != intent.BookingID {
		return &Result{Outcome: Declined, Reason: "intent belongs to another booking"}, nil
	}

	if card.Token == TokenDecline {
		return &Result{Outcome: Declined, Reason: "card declined"}, nil
	}
	return &Result{Outcome: Approved}, nil
}

func (g *MockGateway) Refund(ctx context.Context, intent Intent) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.RefundErr != nil {
		return "", g.RefundErr
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	bookingID, ok := g.intents[intent.ID]
	if !ok || bookingID != intent.BookingID {
		return "", fmt.Errorf("unknown intent %s", intent.ID)
	}
	if _, done := g.refunded[intent.ID]; done {
		return "", fmt.Errorf("intent %s is already refunded", intent.ID)
	}
	id := "re_mock_" + uuid.NewString()[:8]
	g.refunded[intent.ID] = id
	return id, nil
}

// Refunded reports the refund id recorded for an intent (tests)
func (g *MockGateway) Refunded(intentID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.refunded[intentID]
	return id, ok
}
