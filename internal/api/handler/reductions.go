package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/ayo6706/moneybank/internal/money"
	"github.com/ayo6706/moneybank/internal/service"
)

type ReductionHandler struct {
	svc *service.ExchangeService
	now func() time.Time
}

func NewReductionHandler(svc *service.ExchangeService) *ReductionHandler {
	return &ReductionHandler{svc: svc, now: time.Now}
}

// Reduce converts an expression into a single amount in the target currency.
func (h *ReductionHandler) Reduce(w http.ResponseWriter, r *http.Request) {
	var req ReduceRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}

	expr, err := money.Decode(req.Expression)
	if err != nil {
		if errors.Is(err, money.ErrAmountOverflow) {
			RespondError(w, r, http.StatusUnprocessableEntity, "expressions/overflow", err.Error())
			return
		}
		RespondError(w, r, http.StatusBadRequest, "expressions/invalid", err.Error())
		return
	}

	result, err := h.svc.Reduce(r.Context(), expr, req.To)
	if err != nil {
		var notFound *bank.RateNotFoundError
		switch {
		case errors.As(err, &notFound):
			RespondError(w, r, http.StatusUnprocessableEntity, "rates/not-found", notFound.Error())
		case errors.Is(err, money.ErrAmountOverflow):
			RespondError(w, r, http.StatusUnprocessableEntity, "expressions/overflow", err.Error())
		case errors.Is(err, money.ErrEmptyCurrency), errors.Is(err, money.ErrInvalidExpression):
			RespondError(w, r, http.StatusBadRequest, "expressions/invalid", err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			RespondError(w, r, http.StatusServiceUnavailable, "request/canceled", "request canceled")
		default:
			RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "failed to reduce expression")
		}
		return
	}

	RespondJSON(w, http.StatusOK, ReduceResponse{
		Amount:     result.Amount(),
		Currency:   result.Currency(),
		Expression: expressionString(expr),
		Leaves:     money.Leaves(expr),
		ReducedAt:  h.now().UTC(),
	})
}

func expressionString(e money.Expression) string {
	if s, ok := e.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}
