package models

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a peso value stored as integer centavos so that equality checks are exact
type Amount int64

// Pesos builds an Amount from whole pesos
func Pesos(p int64) Amount {
	return Amount(p * 100)
}

// Centavos returns the raw centavo count (used by card gateways)
func (a Amount) Centavos() int64 {
	return int64(a)
}

// Mul returns a * n
func (a Amount) Mul(n int) Amount {
	return a * Amount(n)
}

func (a Amount) String() string {
	neg := a < 0
	v := int64(a)
	if neg {
		v = -v
	}
	s := strconv.FormatInt(v/100, 10)
	if frac := v % 100; frac != 0 {
		s += fmt.Sprintf(".%02d", frac)
		s = strings.TrimRight(s, "0")
	}
	if neg {
		s = "-" + s
	}
	return s
}

// Display formats the amount for receipts, e.g. "PHP 70,000.00"
func (a Amount) Display() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := strconv.FormatInt(v/100, 10)
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("PHP %s%s.%02d", sign, b.String(), v%100)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		return errors.New("amount is required")
	}
	v, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// maxWholePesos keeps whole*100 + 99 inside int64
const maxWholePesos = (math.MaxInt64 - 99) / 100

// ParseAmount parses a decimal peso string with at most two fractional digits
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	raw := s
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, hasFrac := strings.Cut(s, ".")
	if !isDigits(whole) || (hasFrac && !isDigits(frac)) {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("invalid amount %q: at most two decimal places", raw)
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > maxWholePesos {
		return 0, fmt.Errorf("invalid amount %q: out of range", raw)
	}
	var c int64
	if frac != "" {
		for len(frac) < 2 {
			frac += "0"
		}
		c, _ = strconv.ParseInt(frac, 10, 64)
	}
	v := Amount(w*100 + c)
	if neg {
		v = -v
	}
	return v, nil
}

// isDigits reports whether s is a non-empty run of ASCII digits
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
