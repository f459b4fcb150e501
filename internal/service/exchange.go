package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/ayo6706/moneybank/internal/money"
	"github.com/ayo6706/moneybank/internal/observability"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoRateStore is returned for operations that need persisted rates.
var ErrNoRateStore = errors.New("rate store not configured")

// RateRepository persists exchange rates across restarts.
type RateRepository interface {
	UpsertRate(ctx context.Context, rate bank.Rate) error
	ListRates(ctx context.Context) ([]bank.Rate, error)
	History(ctx context.Context, from, to string, limit int) ([]bank.Rate, error)
}

// ExchangeService registers rates and reduces expressions against a Bank.
// The repository is optional; without it rates live only in memory.
type ExchangeService struct {
	bank *bank.Bank
	repo RateRepository
}

func NewExchangeService(b *bank.Bank, repo RateRepository) *ExchangeService {
	return &ExchangeService{bank: b, repo: repo}
}

// Bank exposes the underlying rate table.
func (s *ExchangeService) Bank() *bank.Bank {
	return s.bank
}

// RegisterRate validates, persists, and then registers from->to.
func (s *ExchangeService) RegisterRate(ctx context.Context, from, to string, value decimal.Decimal) (bank.Rate, error) {
	rate := bank.Rate{From: normalize(from), To: normalize(to), Value: value}
	if err := bank.ValidateRate(rate.From, rate.To, rate.Value); err != nil {
		observability.IncrementRateRegistration("invalid")
		return bank.Rate{}, err
	}

	if s.repo != nil && rate.From != rate.To {
		if err := s.repo.UpsertRate(ctx, rate); err != nil {
			observability.IncrementRateRegistration("store_error")
			return bank.Rate{}, fmt.Errorf("persist rate %s: %w", rate, err)
		}
	}
	if err := s.bank.AddRate(rate.From, rate.To, rate.Value); err != nil {
		observability.IncrementRateRegistration("invalid")
		return bank.Rate{}, err
	}

	observability.IncrementRateRegistration("success")
	observability.SetRateTableSize(len(s.bank.Rates()))
	zap.L().Info("exchange rate registered",
		zap.String("from", rate.From),
		zap.String("to", rate.To),
		zap.String("rate", rate.Value.String()),
	)
	return rate, nil
}

// Seed registers each rate in order and stops at the first failure. Pairs
// the bank already holds, typically loaded by Refresh, keep their current
// value so a restart does not undo rates registered through the API.
func (s *ExchangeService) Seed(ctx context.Context, rates []bank.Rate) error {
	for _, r := range rates {
		from, to := normalize(r.From), normalize(r.To)
		if err := bank.ValidateRate(from, to, r.Value); err != nil {
			return fmt.Errorf("seed rate %s: %w", r, err)
		}
		if from != to {
			if current, err := s.bank.Rate(from, to); err == nil {
				zap.L().Debug("seed rate skipped, pair already registered",
					zap.String("from", from),
					zap.String("to", to),
					zap.String("current", current.String()),
				)
				continue
			}
		}
		if _, err := s.RegisterRate(ctx, from, to, r.Value); err != nil {
			return fmt.Errorf("seed rate %s: %w", r, err)
		}
	}
	return nil
}

func (s *ExchangeService) GetRate(ctx context.Context, from, to string) (bank.Rate, error) {
	if err := ctx.Err(); err != nil {
		return bank.Rate{}, err
	}
	from, to = normalize(from), normalize(to)
	value, err := s.bank.Rate(from, to)
	if err != nil {
		observability.IncrementRateLookup("not_found")
		return bank.Rate{}, err
	}
	observability.IncrementRateLookup("found")
	return bank.Rate{From: from, To: to, Value: value}, nil
}

func (s *ExchangeService) ListRates(ctx context.Context) ([]bank.Rate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.bank.Rates(), nil
}

// RateHistory returns past values for a pair, newest first.
func (s *ExchangeService) RateHistory(ctx context.Context, from, to string, limit int) ([]bank.Rate, error) {
	if s.repo == nil {
		return nil, ErrNoRateStore
	}
	return s.repo.History(ctx, normalize(from), normalize(to), limit)
}

// Reduce resolves expr into a single Money in currency to.
func (s *ExchangeService) Reduce(ctx context.Context, expr money.Expression, to string) (money.Money, error) {
	if err := ctx.Err(); err != nil {
		return money.Money{}, err
	}
	to = normalize(to)
	leaves := money.Leaves(expr)

	result, err := s.bank.Reduce(expr, to)
	if err != nil {
		observability.ObserveReduction(to, reductionOutcome(err), leaves)
		zap.L().Warn("reduction failed", zap.String("to", to), zap.Int("leaves", leaves), zap.Error(err))
		return money.Money{}, err
	}
	observability.ObserveReduction(to, "success", leaves)
	zap.L().Debug("expression reduced",
		zap.String("to", to),
		zap.Int("leaves", leaves),
		zap.Int64("amount", result.Amount()),
	)
	return result, nil
}

// Refresh replaces the in-memory table with the persisted one.
func (s *ExchangeService) Refresh(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	rates, err := s.repo.ListRates(ctx)
	if err != nil {
		return fmt.Errorf("load rates: %w", err)
	}
	if err := s.bank.Replace(rates); err != nil {
		return fmt.Errorf("apply rates: %w", err)
	}
	observability.SetRateTableSize(len(rates))
	zap.L().Debug("exchange rates refreshed", zap.Int("count", len(rates)))
	return nil
}

func reductionOutcome(err error) string {
	switch {
	case errors.Is(err, bank.ErrRateNotFound):
		return "rate_not_found"
	case errors.Is(err, money.ErrAmountOverflow):
		return "overflow"
	default:
		return "invalid"
	}
}

func normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}
