package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidExpression = errors.New("invalid expression")

// Node is the JSON form of an Expression. Exactly one field is set.
// Currency codes are upper-cased on decode.
//
//	{"money": {"amount": 5, "currency": "USD"}}
//	{"sum": {"augend": <node>, "addend": <node>}}
//	{"times": {"multiplier": 2, "expression": <node>}}
type Node struct {
	Money *MoneyNode `json:"money,omitempty"`
	Sum   *SumNode   `json:"sum,omitempty"`
	Times *TimesNode `json:"times,omitempty"`
}

type MoneyNode struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type SumNode struct {
	Augend *Node `json:"augend"`
	Addend *Node `json:"addend"`
}

// TimesNode is only accepted on input; it is applied while decoding.
type TimesNode struct {
	Multiplier int64 `json:"multiplier"`
	Expression *Node `json:"expression"`
}

// Decode builds the Expression described by n.
func Decode(n *Node) (Expression, error) {
	return decode(n, "$")
}

func decode(n *Node, path string) (Expression, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: %s is missing", ErrInvalidExpression, path)
	}
	set := 0
	for _, present := range []bool{n.Money != nil, n.Sum != nil, n.Times != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: %s must have exactly one of money, sum or times", ErrInvalidExpression, path)
	}

	switch {
	case n.Money != nil:
		m, err := New(n.Money.Amount, strings.ToUpper(strings.TrimSpace(n.Money.Currency)))
		if err != nil {
			return nil, fmt.Errorf("%w: %s.money: %w", ErrInvalidExpression, path, err)
		}
		return m, nil
	case n.Sum != nil:
		augend, err := decode(n.Sum.Augend, path+".sum.augend")
		if err != nil {
			return nil, err
		}
		addend, err := decode(n.Sum.Addend, path+".sum.addend")
		if err != nil {
			return nil, err
		}
		return Sum{Augend: augend, Addend: addend}, nil
	default:
		inner, err := decode(n.Times.Expression, path+".times.expression")
		if err != nil {
			return nil, err
		}
		scaled, err := Times(inner, n.Times.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("%s.times: %w", path, err)
		}
		return scaled, nil
	}
}

// Encode returns the JSON form of e.
func Encode(e Expression) *Node {
	switch v := e.(type) {
	case Money:
		return &Node{Money: &MoneyNode{Amount: v.amount, Currency: v.currency}}
	case Sum:
		return &Node{Sum: &SumNode{Augend: Encode(v.Augend), Addend: Encode(v.Addend)}}
	default:
		return nil
	}
}

// ParseJSON decodes an expression from its JSON form.
func ParseJSON(data []byte) (Expression, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExpression, err)
	}
	return Decode(&n)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(MoneyNode{Amount: m.amount, Currency: m.currency})
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var n MoneyNode
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v, err := New(n.Amount, n.Currency)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
