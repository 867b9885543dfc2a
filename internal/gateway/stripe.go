package gateway

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"

	"rental-backend/internal/models"
)

// StripeGateway uses PaymentIntents. Amounts are sent in centavos.
type StripeGateway struct {
	sc       *stripe.Client
	currency string
}

func NewStripeGateway(secretKey, currency string) *StripeGateway {
	return &StripeGateway{sc: stripe.NewClient(secretKey), currency: currency}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateIntent(ctx context.Context, bookingID int, amount models.Amount) (string, error) {
	params := &stripe.PaymentIntentCreateParams{
		Amount:             stripe.Int64(amount.Centavos()),
		Currency:           stripe.String(g.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String(fmt.Sprintf("Booking #%d", bookingID)),
	}
	params.AddMetadata("booking_id", strconv.Itoa(bookingID))

	pi, err := g.sc.V1PaymentIntents.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("stripe create intent: %w", err)
	}
	return pi.ID, nil
}

func (g *StripeGateway) Confirm(ctx context.Context, intent Intent, card models.CardDetails) (*Result, error) {
	if card.Token == "" {
		return &Result{Outcome: Declined, Reason: "missing card payment method"}, nil
	}

	existing, err := g.sc.V1PaymentIntents.Retrieve(ctx, intent.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("stripe retrieve intent: %w", err)
	}
	if existing.Amount != intent.Amount.Centavos() || existing.Metadata["booking_id"] != strconv.Itoa(intent.BookingID) {
		return &Result{Outcome: Declined, Reason: "payment intent does not match booking"}, nil
	}

	pi, err := g.sc.V1PaymentIntents.Confirm(ctx, intent.ID, &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(card.Token),
	})
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.Type == stripe.ErrorTypeCard {
			return &Result{Outcome: Declined, Reason: se.Msg}, nil
		}
		return nil, fmt.Errorf("stripe confirm intent: %w", err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return &Result{Outcome: Approved}, nil
	default:
		// requires_action (3DS) cannot complete inside a synchronous request
		return &Result{Outcome: Declined, Reason: fmt.Sprintf("payment intent status %s", pi.Status)}, nil
	}
}

func (g *StripeGateway) Refund(ctx context.Context, intent Intent) (string, error) {
	params := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(intent.ID),
		Amount:        stripe.Int64(intent.Amount.Centavos()),
		Reason:        stripe.String("requested_by_customer"),
	}
	params.AddMetadata("booking_id", strconv.Itoa(intent.BookingID))

	re, err := g.sc.V1Refunds.Create(ctx, params)
	if err != nil {
		return "", fmt.Errorf("stripe create refund: %w", err)
	}
	switch re.Status {
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		return "", fmt.Errorf("stripe refund %s is %s", re.ID, re.Status)
	}
	return re.ID, nil
}
