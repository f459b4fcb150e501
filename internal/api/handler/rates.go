package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/ayo6706/moneybank/internal/money"
	"github.com/ayo6706/moneybank/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 500
)

type RateHandler struct {
	svc *service.ExchangeService
}

func NewRateHandler(svc *service.ExchangeService) *RateHandler {
	return &RateHandler{svc: svc}
}

// CreateRate registers or overwrites a rate.
func (h *RateHandler) CreateRate(w http.ResponseWriter, r *http.Request) {
	var req CreateRateRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}

	rate, err := h.svc.RegisterRate(r.Context(), req.From, req.To, req.Rate)
	if err != nil {
		if errors.Is(err, bank.ErrInvalidRate) || errors.Is(err, money.ErrEmptyCurrency) {
			RespondError(w, r, http.StatusBadRequest, "rates/invalid", err.Error())
			return
		}
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		zap.L().Error("register rate failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "failed to register rate")
		return
	}

	RespondJSON(w, http.StatusCreated, toRateResponse(rate))
}

// GetRate looks up the rate for a pair.
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.svc.GetRate(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to"))
	if err != nil {
		var notFound *bank.RateNotFoundError
		if errors.As(err, &notFound) {
			RespondError(w, r, http.StatusNotFound, "rates/not-found", notFound.Error())
			return
		}
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "failed to look up rate")
		return
	}
	RespondJSON(w, http.StatusOK, toRateResponse(rate))
}

// ListRates returns every registered rate.
func (h *RateHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.svc.ListRates(r.Context())
	if err != nil {
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "failed to list rates")
		return
	}
	RespondJSON(w, http.StatusOK, toRateList(rates))
}

// RateHistory lists past values of a rate, newest first.
func (h *RateHandler) RateHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-limit", "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	history, err := h.svc.RateHistory(r.Context(), chi.URLParam(r, "from"), chi.URLParam(r, "to"), limit)
	if err != nil {
		if errors.Is(err, service.ErrNoRateStore) {
			RespondError(w, r, http.StatusNotImplemented, "rates/history-unavailable", "rate history requires a database")
			return
		}
		if status, problemType, message, ok := mapDBError(err); ok {
			RespondError(w, r, status, problemType, message)
			return
		}
		zap.L().Error("rate history failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "internal-server-error", "failed to load rate history")
		return
	}
	RespondJSON(w, http.StatusOK, toRateList(history))
}
