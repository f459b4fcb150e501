package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/shopspring/decimal"
)

// RateRepository persists the directional exchange-rate table.
type RateRepository struct {
	store *Store
}

func NewRateRepository(store *Store) *RateRepository {
	return &RateRepository{store: store}
}

// UpsertRate stores rate and appends it to the rate history in one transaction.
func (r *RateRepository) UpsertRate(ctx context.Context, rate bank.Rate) error {
	return r.store.RunInTx(ctx, func(q DBTX) error {
		_, err := q.Exec(ctx, `
			INSERT INTO exchange_rates (from_currency, to_currency, rate, updated_at)
			VALUES ($1, $2, $3::numeric, NOW())
			ON CONFLICT (from_currency, to_currency)
			DO UPDATE SET rate = EXCLUDED.rate, updated_at = NOW()
		`, rate.From, rate.To, rate.Value.String())
		if err != nil {
			return fmt.Errorf("failed to upsert rate %s/%s: %w", rate.From, rate.To, err)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO exchange_rate_history (from_currency, to_currency, rate, recorded_at)
			VALUES ($1, $2, $3::numeric, NOW())
		`, rate.From, rate.To, rate.Value.String())
		if err != nil {
			return fmt.Errorf("failed to record rate history %s/%s: %w", rate.From, rate.To, err)
		}
		return nil
	})
}

// ListRates returns every stored rate ordered by pair.
func (r *RateRepository) ListRates(ctx context.Context) ([]bank.Rate, error) {
	rows, err := r.store.DB().Query(ctx, `
		SELECT from_currency, to_currency, rate::text
		FROM exchange_rates
		ORDER BY from_currency, to_currency
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rates: %w", err)
	}
	defer rows.Close()

	var rates []bank.Rate
	for rows.Next() {
		var (
			rate  bank.Rate
			value string
		)
		if err := rows.Scan(&rate.From, &rate.To, &value); err != nil {
			return nil, fmt.Errorf("failed to scan rate: %w", err)
		}
		rate.Value, err = decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate %s/%s: %w", rate.From, rate.To, err)
		}
		rates = append(rates, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rates: %w", err)
	}
	return rates, nil
}

// History returns the recorded values for one pair, newest first.
func (r *RateRepository) History(ctx context.Context, from, to string, limit int) ([]bank.Rate, error) {
	if limit < 1 {
		limit = 10
	}
	rows, err := r.store.DB().Query(ctx, `
		SELECT rate::text
		FROM exchange_rate_history
		WHERE from_currency = $1 AND to_currency = $2
		ORDER BY recorded_at DESC, id DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate history: %w", err)
	}
	defer rows.Close()

	var history []bank.Rate
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan rate history: %w", err)
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse rate history %s/%s: %w", from, to, err)
		}
		history = append(history, bank.Rate{From: from, To: to, Value: d})
	}
	return history, rows.Err()
}
