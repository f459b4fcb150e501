package handler

import (
	"time"

	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/ayo6706/moneybank/internal/money"
	"github.com/shopspring/decimal"
)

// CreateRateRequest registers the rate for converting From into To.
type CreateRateRequest struct {
	From string          `json:"from" validate:"required,alphanum,max=16"`
	To   string          `json:"to" validate:"required,alphanum,max=16"`
	Rate decimal.Decimal `json:"rate"`
}

type RateResponse struct {
	From string          `json:"from"`
	To   string          `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

type RateListResponse struct {
	Rates []RateResponse `json:"rates"`
	Count int            `json:"count"`
}

// ReduceRequest asks for Expression to be reduced into currency To.
type ReduceRequest struct {
	Expression *money.Node `json:"expression" validate:"required"`
	To         string      `json:"to" validate:"required,alphanum,max=16"`
}

type ReduceResponse struct {
	Amount     int64     `json:"amount"`
	Currency   string    `json:"currency"`
	Expression string    `json:"expression"`
	Leaves     int       `json:"leaves"`
	ReducedAt  time.Time `json:"reduced_at"`
}

func toRateResponse(r bank.Rate) RateResponse {
	return RateResponse{From: r.From, To: r.To, Rate: r.Value}
}

func toRateList(rates []bank.Rate) RateListResponse {
	out := RateListResponse{Rates: make([]RateResponse, 0, len(rates)), Count: len(rates)}
	for _, r := range rates {
		out.Rates = append(out.Rates, toRateResponse(r))
	}
	return out
}
