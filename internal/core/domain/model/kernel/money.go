package kernel

import (
	"errors"
	"fmt"
	"strings"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

// ErrMoneyIsNotConstructed is returned when a Money value was not built by NewMoney.
var ErrMoneyIsNotConstructed = errors.New("Money must be created via NewMoney constructor")

// Currency is the settlement currency of an order.
type Currency string

const (
	// IRT is the Iranian toman. It has no minor unit.
	IRT Currency = "IRT"
	// USD amounts are kept in cents.
	USD Currency = "USD"
)

// ParseCurrency accepts a currency code in any letter case.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return "", err
	}
	return c, nil
}

// Validate rejects currencies the service does not settle in.
func (c Currency) Validate() error {
	switch c {
	case IRT, USD:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("currency", fmt.Errorf("%q is not one of IRT, USD", string(c)))
	}
}

func (c Currency) String() string {
	return string(c)
}

// Money is a non-negative amount in the minor unit of its currency.
type Money struct {
	amount   int64
	currency Currency
	guard    guard.ConstructorGuard
}

// NewMoney validates amount and currency.
func NewMoney(amount int64, currency Currency) (Money, error) {
	if err := errors.Join(
		validateAmount(amount),
		currency.Validate(),
	); err != nil {
		return Money{}, err
	}

	return Money{
		amount:   amount,
		currency: currency,
		guard:    guard.NewConstructorGuard(),
	}, nil
}

func validateAmount(amount int64) error {
	if amount < 0 {
		return errs.NewValueIsInvalidErrorWithCause("amount", fmt.Errorf("%d is negative", amount))
	}
	return nil
}

// Amount returns the value in minor units.
func (m Money) Amount() int64 {
	return m.amount
}

// Currency returns the settlement currency.
func (m Money) Currency() Currency {
	return m.currency
}

// Validate ensures the value was built by NewMoney.
func (m Money) Validate() error {
	return m.guard.Validate(ErrMoneyIsNotConstructed)
}

// SameCurrency reports whether both values settle in one currency.
func (m Money) SameCurrency(other Money) bool {
	return m.currency == other.currency
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}
