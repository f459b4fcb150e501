package bank

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/ayo6706/moneybank/internal/money"
	"github.com/shopspring/decimal"
)

var (
	ErrRateNotFound = errors.New("exchange rate not found")
	ErrInvalidRate  = errors.New("invalid exchange rate")
)

var (
	maxAmount = decimal.NewFromInt(math.MaxInt64)
	minAmount = decimal.NewFromInt(math.MinInt64)
)

// RateNotFoundError names the currency pair that has no registered rate.
type RateNotFoundError struct {
	From string
	To   string
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s/%s", ErrRateNotFound, e.From, e.To)
}

func (e *RateNotFoundError) Unwrap() error {
	return ErrRateNotFound
}

// Pair is a directional currency pair.
type Pair struct {
	From string
	To   string
}

// Rate is a registered conversion: amountInTo = amountInFrom * Value.
type Rate struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Value decimal.Decimal `json:"rate"`
}

// Bank owns the exchange-rate table and reduces expressions against it.
// Rates are directional; registering CHF->USD says nothing about USD->CHF.
// It is safe for concurrent use.
type Bank struct {
	mu    sync.RWMutex
	rates map[Pair]decimal.Decimal
}

func New() *Bank {
	return &Bank{rates: make(map[Pair]decimal.Decimal)}
}

// AddRate registers or overwrites the rate for from->to.
func (b *Bank) AddRate(from, to string, rate decimal.Decimal) error {
	if err := ValidateRate(from, to, rate); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rates[Pair{From: from, To: to}] = rate
	return nil
}

// Rate returns the multiplier converting from into to. Identical currencies
// always yield 1 without a lookup.
func (b *Bank) Rate(from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	b.mu.RLock()
	rate, ok := b.rates[Pair{From: from, To: to}]
	b.mu.RUnlock()
	if !ok {
		return decimal.Zero, &RateNotFoundError{From: from, To: to}
	}
	return rate, nil
}

// Convert reduces a single Money into currency to. The converted amount is
// truncated toward zero.
func (b *Bank) Convert(m money.Money, to string) (money.Money, error) {
	if strings.TrimSpace(to) == "" {
		return money.Money{}, money.ErrEmptyCurrency
	}
	rate, err := b.Rate(m.Currency(), to)
	if err != nil {
		return money.Money{}, err
	}
	converted := decimal.NewFromInt(m.Amount()).Mul(rate).Truncate(0)
	if converted.GreaterThan(maxAmount) || converted.LessThan(minAmount) {
		return money.Money{}, fmt.Errorf("convert %s to %s: %w", m, to, money.ErrAmountOverflow)
	}
	return money.New(converted.IntPart(), to)
}

// Reduce resolves e into a single Money in currency to.
func (b *Bank) Reduce(e money.Expression, to string) (money.Money, error) {
	if e == nil {
		return money.Money{}, fmt.Errorf("reduce to %s: %w", to, money.ErrInvalidExpression)
	}
	if strings.TrimSpace(to) == "" {
		return money.Money{}, money.ErrEmptyCurrency
	}
	result, err := e.Reduce(b, to)
	if err != nil {
		return money.Money{}, fmt.Errorf("reduce to %s: %w", to, err)
	}
	return result, nil
}

// Rates returns a snapshot of the registered rates ordered by pair.
func (b *Bank) Rates() []Rate {
	b.mu.RLock()
	out := make([]Rate, 0, len(b.rates))
	for pair, value := range b.rates {
		out = append(out, Rate{From: pair.From, To: pair.To, Value: value})
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		return out[i].To < out[j].To
	})
	return out
}

// Replace swaps the whole table for rates. Nothing changes if any rate is invalid.
func (b *Bank) Replace(rates []Rate) error {
	next := make(map[Pair]decimal.Decimal, len(rates))
	for _, r := range rates {
		if err := ValidateRate(r.From, r.To, r.Value); err != nil {
			return err
		}
		if r.From == r.To {
			continue
		}
		next[Pair{From: r.From, To: r.To}] = r.Value
	}
	b.mu.Lock()
	b.rates = next
	b.mu.Unlock()
	return nil
}

// Bounds on a rate's decimal representation. Conversion cost grows with the
// exponent, so rates outside these bounds are rejected before they are stored.
const (
	maxRateExponent = 18
	maxRateDigits   = 36
)

// ValidateRate checks a rate before it is registered.
func ValidateRate(from, to string, rate decimal.Decimal) error {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return money.ErrEmptyCurrency
	}
	if exp := rate.Exponent(); exp < -maxRateExponent || exp > maxRateExponent {
		return fmt.Errorf("%w: %s/%s exponent %d is outside [-%d, %d]", ErrInvalidRate, from, to, exp, maxRateExponent, maxRateExponent)
	}
	if rate.NumDigits() > maxRateDigits {
		return fmt.Errorf("%w: %s/%s has more than %d digits", ErrInvalidRate, from, to, maxRateDigits)
	}
	if !rate.IsPositive() {
		return fmt.Errorf("%w: %s/%s must be positive, got %s", ErrInvalidRate, from, to, rate)
	}
	if from == to && !rate.Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: %s/%s must be 1, got %s", ErrInvalidRate, from, to, rate)
	}
	return nil
}
