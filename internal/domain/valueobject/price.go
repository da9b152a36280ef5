package valueobject

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount   = errors.New("amount must be non-negative")
	ErrInvalidCurrency = errors.New("invalid currency code")
)

// Price is a store price as reported by the native SDK
type Price struct {
	Amount    float64
	Currency  string // ISO 4217 currency code (e.g., "USD", "EUR")
	Formatted string // localized string from the store, e.g. "$4.99"
}

// NewPrice creates a new Price value object
func NewPrice(amount float64, currency, formatted string) (*Price, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: %f", ErrInvalidAmount, amount)
	}
	if !isValidCurrency(currency) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCurrency, currency)
	}
	return &Price{
		Amount:    amount,
		Currency:  currency,
		Formatted: formatted,
	}, nil
}

// isValidCurrency checks if the currency code is valid (3 letters)
func isValidCurrency(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, c := range currency {
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')) {
			return false
		}
	}
	return true
}

// String prefers the store's localized string
func (p *Price) String() string {
	if p.Formatted != "" {
		return p.Formatted
	}
	return fmt.Sprintf("%.2f %s", p.Amount, p.Currency)
}

// IsFree returns true if the amount is zero
func (p *Price) IsFree() bool {
	return p.Amount == 0
}
