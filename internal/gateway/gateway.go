// Package gateway talks to card payment providers. Every provider is reduced to
// two synchronous calls: create an intent for a booking, then confirm it. An approved
// intent can later be refunded in full.
package gateway

import (
	"context"
	"fmt"

	"rental-backend/internal/config"
	"rental-backend/internal/models"
)

type Outcome string

const (
	Approved Outcome = "approved"
	Declined Outcome = "declined"
)

// Result of confirming an intent. Reason is set for declines.
type Result struct {
	Outcome Outcome
	Reason  string
}

// Intent identifies a provider-side charge and what it must be for. Confirm declines an
// intent the provider reports for a different booking or amount.
type Intent struct {
	ID        string
	BookingID int
	Amount    models.Amount
}

type CardGateway interface {
	Name() string
	CreateIntent(ctx context.Context, bookingID int, amount models.Amount) (string, error)
	Confirm(ctx context.Context, intent Intent, card models.CardDetails) (*Result, error)
	// Refund returns the full amount of an approved intent and reports the provider's refund id
	Refund(ctx context.Context, intent Intent) (string, error)
}

// New picks the provider named by payments.card_gateway
func New(cfg *config.Config) (CardGateway, error) {
	switch cfg.Payments.CardGateway {
	case "stripe":
		if cfg.Stripe.SecretKey == "" {
			return nil, fmt.Errorf("stripe gateway selected but STRIPE_SECRET_KEY is empty")
		}
		return NewStripeGateway(cfg.Stripe.SecretKey, cfg.Payments.Currency), nil
	case "razorpay":
		if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
			return nil, fmt.Errorf("razorpay gateway selected but credentials are empty")
		}
		return NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Payments.Currency), nil
	case "mock", "":
		return NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("unknown card gateway %q", cfg.Payments.CardGateway)
	}
}
