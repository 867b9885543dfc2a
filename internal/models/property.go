package models

import "time"

type PropertyStatus string

const (
	PropertyPending  PropertyStatus = "pending"
	PropertyApproved PropertyStatus = "approved"
	PropertyRejected PropertyStatus = "rejected"
)

type Property struct {
	ID                     int             `json:"id"`
	OwnerID                int             `json:"owner_id"`
	Name                   string          `json:"name"`
	Address                string          `json:"address"`
	PricePerMonth          Amount          `json:"price_per_month"`
	IsAvailable            bool            `json:"is_available"`
	Status                 PropertyStatus  `json:"status"`
	AcceptedPaymentMethods []PaymentMethod `json:"accepted_payment_methods"`
	WalletName             string          `json:"wallet_name,omitempty"`
	WalletNumber           string          `json:"wallet_number,omitempty"`
	BankName               string          `json:"bank_name,omitempty"`
	BankAccountNumber      string          `json:"bank_account_number,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// Accepts reports whether the property takes the given payment method
func (p *Property) Accepts(m PaymentMethod) bool {
	for _, am := range p.AcceptedPaymentMethods {
		if am == m {
			return true
		}
	}
	return false
}

// Bookable is true only for approved listings the owner has not disabled
func (p *Property) Bookable() bool {
	return p.Status == PropertyApproved && p.IsAvailable
}

// CreatePropertyRequest is the owner's listing submission
type CreatePropertyRequest struct {
	Name                   string          `json:"name" validate:"required,max=200"`
	Address                string          `json:"address" validate:"required,max=500"`
	PricePerMonth          Amount          `json:"price_per_month" validate:"gt=0"`
	AcceptedPaymentMethods []PaymentMethod `json:"accepted_payment_methods" validate:"required,min=1,dive,oneof=card wallet cash"`
	WalletName             string          `json:"wallet_name"`
	WalletNumber           string          `json:"wallet_number"`
	BankName               string          `json:"bank_name"`
	BankAccountNumber      string          `json:"bank_account_number"`
}

type SetAvailabilityRequest struct {
	IsAvailable bool `json:"is_available"`
}

// PropertyFilter narrows property listings. Zero values mean "any".
type PropertyFilter struct {
	OwnerID  int
	Status   PropertyStatus
	Bookable bool
}
