package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JohnCGriffin/overflow"
)

const (
	USD = "USD"
	CHF = "CHF"
)

var (
	ErrEmptyCurrency  = errors.New("currency is required")
	ErrAmountOverflow = errors.New("amount overflows int64")
)

// Money represents a whole-number amount in a single currency.
// It is a value type: every operation returns a new Money.
type Money struct {
	amount   int64
	currency string
}

// New creates a Money value. The currency identifier is kept as given.
func New(amount int64, currency string) (Money, error) {
	if strings.TrimSpace(currency) == "" {
		return Money{}, ErrEmptyCurrency
	}
	return Money{amount: amount, currency: currency}, nil
}

// Dollar returns an amount in US dollars.
func Dollar(amount int64) Money {
	return Money{amount: amount, currency: USD}
}

// Franc returns an amount in Swiss francs.
func Franc(amount int64) Money {
	return Money{amount: amount, currency: CHF}
}

func (m Money) Amount() int64 {
	return m.amount
}

func (m Money) Currency() string {
	return m.currency
}

// Times returns a new Money with the amount multiplied, in the same currency.
// It panics with ErrAmountOverflow if the product does not fit in int64;
// use the package-level Times for amounts that come from callers.
func (m Money) Times(multiplier int64) Money {
	product, err := m.times(multiplier)
	if err != nil {
		panic(err)
	}
	return product
}

func (m Money) times(multiplier int64) (Money, error) {
	amount, ok := overflow.Mul64(m.amount, multiplier)
	if !ok {
		return Money{}, fmt.Errorf("%s times %d: %w", m, multiplier, ErrAmountOverflow)
	}
	return Money{amount: amount, currency: m.currency}, nil
}

// Plus defers the addition. The result needs a Converter to become a Money again.
func (m Money) Plus(addend Expression) Expression {
	return Sum{Augend: m, Addend: addend}
}

// Reduce converts m into the target currency through c.
func (m Money) Reduce(c Converter, to string) (Money, error) {
	return c.Convert(m, to)
}

func (m Money) scale(multiplier int64) (Expression, error) {
	return m.times(multiplier)
}

// Equals reports whether other is a Money with the same amount and currency.
// Values of any other type never compare equal.
func (m Money) Equals(other any) bool {
	switch o := other.(type) {
	case Money:
		return m.amount == o.amount && m.currency == o.currency
	case *Money:
		return o != nil && m.amount == o.amount && m.currency == o.currency
	default:
		return false
	}
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.amount, m.currency)
}
