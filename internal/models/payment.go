package models

import "time"

// PaymentMethod is the closed set of ways a tenant can settle a booking
type PaymentMethod string

const (
	MethodCard   PaymentMethod = "card"
	MethodWallet PaymentMethod = "wallet"
	MethodCash   PaymentMethod = "cash"
)

// PaymentMethods lists every supported method
var PaymentMethods = []PaymentMethod{MethodCard, MethodWallet, MethodCash}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodWallet, MethodCash:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPendingReview PaymentStatus = "pending_review"
	PaymentApproved      PaymentStatus = "approved"
	PaymentRejected      PaymentStatus = "rejected"
	PaymentNotRequired   PaymentStatus = "not_required"
	// PaymentRefunded is an approved card payment whose money went back to the tenant
	PaymentRefunded PaymentStatus = "refunded"
)

// Active payments block another submission for the same booking
func (s PaymentStatus) Active() bool {
	return s != PaymentRejected
}

type Payment struct {
	ID            int           `json:"id"`
	BookingID     int           `json:"booking_id"`
	PropertyID    int           `json:"property_id"`
	TenantID      int           `json:"tenant_id"`
	Method        PaymentMethod `json:"method"`
	Amount        Amount        `json:"amount"`
	Status        PaymentStatus `json:"status"`
	ReceiptRef    string        `json:"receipt_ref,omitempty"`
	ReceiptNumber string        `json:"receipt_number"`
	IntentID      string        `json:"intent_id,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	ReviewedBy    *int          `json:"reviewed_by,omitempty"`
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty"`
	RefundID      string        `json:"refund_id,omitempty"`
	RefundedBy    *int          `json:"refunded_by,omitempty"`
	RefundedAt    *time.Time    `json:"refunded_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CardDetails is what the client obtained from the card provider's checkout.
// Stripe uses Token as a payment method id; Razorpay uses PaymentID/OrderID/Signature.
// OrderID, when set, is the intent id returned by the checkout start call.
type CardDetails struct {
	Token     string `json:"token,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
	Signature string `json:"signature,omitempty"`
}

type SubmitPaymentRequest struct {
	BookingID  int           `json:"booking_id" validate:"required,gt=0"`
	Method     PaymentMethod `json:"method"`
	Amount     Amount        `json:"amount"`
	ReceiptRef string        `json:"receipt_ref,omitempty" validate:"omitempty,max=1024"`
	Card       *CardDetails  `json:"card,omitempty"`
}

// CardCheckout is a provider intent created ahead of the client checkout
type CardCheckout struct {
	BookingID int    `json:"booking_id"`
	Gateway   string `json:"gateway"`
	IntentID  string `json:"intent_id"`
	Amount    Amount `json:"amount"`
}

type RefundRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CardCheckoutRequest struct {
	BookingID int `json:"booking_id" validate:"required,gt=0"`
}

// PaymentMethodsResponse tells the tenant how a property can be paid
type PaymentMethodsResponse struct {
	PropertyID        int             `json:"property_id"`
	Methods           []PaymentMethod `json:"methods"`
	WalletName        string          `json:"wallet_name,omitempty"`
	WalletNumber      string          `json:"wallet_number,omitempty"`
	BankName          string          `json:"bank_name,omitempty"`
	BankAccountNumber string          `json:"bank_account_number,omitempty"`
}

// ReviewCursor is the keyset position for pending review pagination
type ReviewCursor struct {
	CreatedAt time.Time
	ID        int
}

// PaymentFilter narrows payment listings. Zero values mean "any".
type PaymentFilter struct {
	TenantID  int
	OwnerID   int
	BookingID int
	Status    PaymentStatus
}
