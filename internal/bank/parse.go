package bank

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseRate parses "FROM:TO=VALUE", e.g. "CHF:USD=0.5".
func ParseRate(s string) (Rate, error) {
	pair, value, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q is not FROM:TO=VALUE", ErrInvalidRate, s)
	}
	from, to, ok := strings.Cut(pair, ":")
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q is not FROM:TO=VALUE", ErrInvalidRate, s)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Rate{}, fmt.Errorf("%w: %q: %w", ErrInvalidRate, s, err)
	}
	r := Rate{
		From:  strings.ToUpper(strings.TrimSpace(from)),
		To:    strings.ToUpper(strings.TrimSpace(to)),
		Value: d,
	}
	if err := ValidateRate(r.From, r.To, r.Value); err != nil {
		return Rate{}, err
	}
	return r, nil
}

// ParseRates parses a comma separated list of rates. Blank entries are skipped.
func ParseRates(s string) ([]Rate, error) {
	var out []Rate
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		r, err := ParseRate(part)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (r Rate) String() string {
	return fmt.Sprintf("%s:%s=%s", r.From, r.To, r.Value.String())
}
