package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	razorpay "github.com/razorpay/razorpay-go"

	"rental-backend/internal/models"
)

// RazorpayGateway maps an intent to a Razorpay order. The client completes checkout and
// sends back payment_id, order_id and signature, which Confirm verifies.
type RazorpayGateway struct {
	client    *razorpay.Client
	keySecret string
	currency  string
}

func NewRazorpayGateway(keyID, keySecret, currency string) *RazorpayGateway {
	return &RazorpayGateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keySecret: keySecret,
		currency:  strings.ToUpper(currency),
	}
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

func (g *RazorpayGateway) CreateIntent(ctx context.Context, bookingID int, amount models.Amount) (string, error) {
	orderData := map[string]interface{}{
		"amount":   amount.Centavos(),
		"currency": g.currency,
		"receipt":  fmt.Sprintf("booking_%d", bookingID),
		"notes": map[string]interface{}{
			"booking_id": bookingID,
		},
	}

	order, err := g.client.Order.Create(orderData, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay create order: %w", err)
	}
	orderID, ok := order["id"].(string)
	if !ok || orderID == "" {
		return "", fmt.Errorf("razorpay create order: response has no id")
	}
	return orderID, nil
}

func (g *RazorpayGateway) Confirm(ctx context.Context, intent Intent, card models.CardDetails) (*Result, error) {
	if card.OrderID != intent.ID {
		return &Result{Outcome: Declined, Reason: "order does not match intent"}, nil
	}
	if !VerifyRazorpaySignature(g.keySecret, card.OrderID, card.PaymentID, card.Signature) {
		return &Result{Outcome: Declined, Reason: "invalid payment signature"}, nil
	}

	order, err := g.client.Order.Fetch(intent.ID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order: %w", err)
	}
	if !orderMatches(order, intent) {
		return &Result{Outcome: Declined, Reason: "order does not match booking"}, nil
	}

	payment, err := g.client.Payment.Fetch(card.PaymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch payment: %w", err)
	}

	status, _ := payment["status"].(string)
	switch status {
	case "captured", "authorized":
		return &Result{Outcome: Approved}, nil
	default:
		reason, _ := payment["error_description"].(string)
		if reason == "" {
			reason = fmt.Sprintf("payment status %s", status)
		}
		return &Result{Outcome: Declined, Reason: reason}, nil
	}
}

// Refund looks up the captured payment of the order and refunds it in full
func (g *RazorpayGateway) Refund(ctx context.Context, intent Intent) (string, error) {
	payments, err := g.client.Order.Payments(intent.ID, nil, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay fetch order payments: %w", err)
	}
	paymentID, ok := capturedPaymentID(payments)
	if !ok {
		return "", fmt.Errorf("razorpay order %s has no captured payment", intent.ID)
	}

	refund, err := g.client.Payment.Refund(paymentID, int(intent.Amount.Centavos()), map[string]interface{}{
		"notes": map[string]interface{}{
			"booking_id": intent.BookingID,
		},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay refund payment: %w", err)
	}
	refundID, ok := refund["id"].(string)
	if !ok || refundID == "" {
		return "", fmt.Errorf("razorpay refund payment: response has no id")
	}
	return refundID, nil
}

// capturedPaymentID picks the captured payment out of an order's payment collection
func capturedPaymentID(collection map[string]interface{}) (string, bool) {
	items, _ := collection["items"].([]interface{})
	for _, item := range items {
		payment, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if status, _ := payment["status"].(string); status != "captured" {
			continue
		}
		if id, _ := payment["id"].(string); id != "" {
			return id, true
		}
	}
	return "", false
}

// orderMatches checks the receipt and amount recorded when the order was created
func orderMatches(order map[string]interface{}, intent Intent) bool {
	receipt, _ := order["receipt"].(string)
	if receipt != fmt.Sprintf("booking_%d", intent.BookingID) {
		return false
	}
	// JSON numbers decode as float64
	amount, ok := order["amount"].(float64)
	return ok && int64(amount) == intent.Amount.Centavos()
}

// VerifyRazorpaySignature checks HMAC-SHA256(order_id|payment_id) against the checkout signature
func VerifyRazorpaySignature(keySecret, orderID, paymentID, signature string) bool {
	if keySecret == "" {
		return false
	}
	h := hmac.New(sha256.New, []byte(keySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
