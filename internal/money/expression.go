package money

import (
	"fmt"

	"github.com/JohnCGriffin/overflow"
)

// Converter turns a single Money into an amount of another currency.
// bank.Bank is the production implementation.
type Converter interface {
	Convert(m Money, to string) (Money, error)
}

// Expression is deferred arithmetic over Money values. The variants are
// Money (a leaf) and Sum; the set is closed to this package.
type Expression interface {
	// Plus returns a new expression adding addend to the receiver.
	Plus(addend Expression) Expression
	// Reduce evaluates the expression into a single Money in currency to.
	Reduce(c Converter, to string) (Money, error)

	scale(multiplier int64) (Expression, error)
}

// Times multiplies every leaf of e by multiplier. Unlike Plus it is applied
// immediately. It fails with ErrAmountOverflow if any leaf overflows.
func Times(e Expression, multiplier int64) (Expression, error) {
	if e == nil {
		return nil, ErrInvalidExpression
	}
	return e.scale(multiplier)
}

// Sum adds two sub-expressions once they are reduced to a common currency.
type Sum struct {
	Augend Expression
	Addend Expression
}

// Times distributes the multiplier over both operands. Like Money.Times it
// panics on overflow.
func (s Sum) Times(multiplier int64) Sum {
	scaled, err := s.times(multiplier)
	if err != nil {
		panic(err)
	}
	return scaled
}

func (s Sum) times(multiplier int64) (Sum, error) {
	augend, err := s.Augend.scale(multiplier)
	if err != nil {
		return Sum{}, err
	}
	addend, err := s.Addend.scale(multiplier)
	if err != nil {
		return Sum{}, err
	}
	return Sum{Augend: augend, Addend: addend}, nil
}

func (s Sum) Plus(addend Expression) Expression {
	return Sum{Augend: s, Addend: addend}
}

// Reduce reduces both operands to the target currency and adds the results.
// The first failing operand aborts the whole reduction.
func (s Sum) Reduce(c Converter, to string) (Money, error) {
	augend, err := s.Augend.Reduce(c, to)
	if err != nil {
		return Money{}, err
	}
	addend, err := s.Addend.Reduce(c, to)
	if err != nil {
		return Money{}, err
	}
	amount, ok := overflow.Add64(augend.amount, addend.amount)
	if !ok {
		return Money{}, fmt.Errorf("sum %d + %d %s: %w", augend.amount, addend.amount, to, ErrAmountOverflow)
	}
	return Money{amount: amount, currency: to}, nil
}

func (s Sum) scale(multiplier int64) (Expression, error) {
	return s.times(multiplier)
}

func (s Sum) String() string {
	return fmt.Sprintf("(%v + %v)", s.Augend, s.Addend)
}

// Leaves counts the Money values in e.
func Leaves(e Expression) int {
	switch v := e.(type) {
	case Money:
		return 1
	case Sum:
		return Leaves(v.Augend) + Leaves(v.Addend)
	default:
		return 0
	}
}
