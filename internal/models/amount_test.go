package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"35000", Pesos(35000), false},
		{"34999.5", 3499950, false},
		{"0.05", 5, false},
		{"70000.00", Pesos(70000), false},
		{"1.234", 0, true},
		{"abc", 0, true},
		{"1.", 0, true},
		{"1.-5", 0, true},
		{"1.+5", 0, true},
		{"+1.50", 0, true},
		{"--5", 0, true},
		{"-12.50", -1250, false},
		{"92233720368547758", 0, true},
		{"92233720368547757.99", 9223372036854775799, false},
		{"92233720368547757", 9223372036854775700, false},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestAmountJSON(t *testing.T) {
	var req struct {
		Amount Amount `json:"amount"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"amount": 69999.99}`), &req))
	assert.Equal(t, Amount(6999999), req.Amount)

	out, err := json.Marshal(map[string]Amount{"total": Pesos(70000), "half": 3499950})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":70000,"half":34999.5}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"amount": 1.001}`), &req))
}

func TestAmountDisplay(t *testing.T) {
	assert.Equal(t, "PHP 70,000.00", Pesos(70000).Display())
	assert.Equal(t, "PHP 999.05", Amount(99905).Display())
	assert.Equal(t, "PHP 1,234,567.89", Amount(123456789).Display())
}

func TestPropertyAccepts(t *testing.T) {
	p := &Property{AcceptedPaymentMethods: []PaymentMethod{MethodCard, MethodCash}, Status: PropertyApproved, IsAvailable: true}
	assert.True(t, p.Accepts(MethodCard))
	assert.False(t, p.Accepts(MethodWallet))
	assert.True(t, p.Bookable())

	p.Status = PropertyPending
	assert.False(t, p.Bookable())
}
