package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ayo6706/moneybank/internal/api"
	"github.com/ayo6706/moneybank/internal/api/handler"
	"github.com/ayo6706/moneybank/internal/api/middleware"
	"github.com/ayo6706/moneybank/internal/api/problem"
	"github.com/ayo6706/moneybank/internal/bank"
	"github.com/ayo6706/moneybank/internal/config"
	"github.com/ayo6706/moneybank/internal/idempotency"
	"github.com/ayo6706/moneybank/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testJWTSecret   = "test-secret-0123456789-test-secret"
	testJWTIssuer   = "moneybank-test"
	testJWTAudience = "moneybank-api-test"
)

type historyRepo struct {
	mu      sync.Mutex
	history []bank.Rate
}

func (h *historyRepo) UpsertRate(ctx context.Context, rate bank.Rate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append([]bank.Rate{rate}, h.history...)
	return nil
}

func (h *historyRepo) ListRates(ctx context.Context) ([]bank.Rate, error) { return nil, nil }

func (h *historyRepo) History(ctx context.Context, from, to string, limit int) ([]bank.Rate, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []bank.Rate
	for _, r := range h.history {
		if r.From == from && r.To == to && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type replayStore struct {
	mu      sync.Mutex
	records map[string]*idempotency.Record
}

func (s *replayStore) Lookup(ctx context.Context, key, hash string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, idempotency.ErrNotFound
	}
	if rec.RequestHash != hash {
		return nil, idempotency.ErrHashMismatch
	}
	return rec, nil
}

func (s *replayStore) Reserve(ctx context.Context, key, hash, method, path string) (bool, error) {
	return true, nil
}

func (s *replayStore) Finalize(ctx context.Context, key, hash string, status int, body []byte, contentType string) (*idempotency.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &idempotency.Record{Key: key, RequestHash: hash, Status: status, Body: body, ContentType: contentType, ServedBy: "memory"}
	s.records[key] = rec
	return rec, nil
}

func (s *replayStore) Release(ctx context.Context, key string) error { return nil }

func (s *replayStore) WaitForCompletion(ctx context.Context, key, hash string) (*idempotency.Record, error) {
	return s.Lookup(ctx, key, hash)
}

type fixture struct {
	client http.Handler
	svc    *service.ExchangeService
	repo   *historyRepo
}

func testConfig(auth bool) *config.Config {
	cfg := &config.Config{
		PublicRateLimitRPS: 1000,
		JWTIssuer:          testJWTIssuer,
		JWTAudience:        testJWTAudience,
	}
	if auth {
		cfg.JWTSecret = testJWTSecret
	}
	return cfg
}

func setupAPI(t *testing.T, cfg *config.Config, withRepo bool, health map[string]handler.Pinger) fixture {
	t.Helper()
	f := fixture{}
	var repo service.RateRepository
	if withRepo {
		f.repo = &historyRepo{}
		repo = f.repo
	}
	f.svc = service.NewExchangeService(bank.New(), repo)
	store := &replayStore{records: map[string]*idempotency.Record{}}
	f.client = api.NewRouter(cfg, zap.NewNop(), f.svc, store, health).Routes()
	return f
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) problem.Details {
	t.Helper()
	var d problem.Details
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	return d
}

func adminToken(t *testing.T) string {
	t.Helper()
	token, err := middleware.NewAuthenticator(testJWTSecret, testJWTIssuer, testJWTAudience).IssueToken("ops", middleware.RoleAdmin, time.Hour)
	require.NoError(t, err)
	return token
}

const mixedSum = `{"expression":{"sum":{"augend":{"money":{"amount":5,"currency":"USD"}},"addend":{"money":{"amount":10,"currency":"CHF"}}}},"to":"USD"}`

func TestCreateRateAndReduce(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)

	w := do(t, f.client, http.MethodPost, "/v1/rates", `{"from":"CHF","to":"USD","rate":"0.5"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rate handler.RateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rate))
	assert.Equal(t, "CHF", rate.From)
	assert.Equal(t, "0.5", rate.Rate.String())

	w = do(t, f.client, http.MethodPost, "/v1/reductions", mixedSum, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out handler.ReduceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, int64(10), out.Amount)
	assert.Equal(t, "USD", out.Currency)
	assert.Equal(t, "(5 USD + 10 CHF)", out.Expression)
	assert.Equal(t, 2, out.Leaves)
}

func TestReduce_TimesAndLowercaseCurrencies(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)
	require.Equal(t, http.StatusCreated, do(t, f.client, http.MethodPost, "/v1/rates", `{"from":"chf","to":"usd","rate":0.5}`, nil).Code)

	body := `{"expression":{"times":{"multiplier":2,"expression":{"sum":{"augend":{"money":{"amount":5,"currency":"usd"}},"addend":{"money":{"amount":10,"currency":"chf"}}}}}},"to":"usd"}`
	w := do(t, f.client, http.MethodPost, "/v1/reductions", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out handler.ReduceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, int64(20), out.Amount)
	assert.Equal(t, "USD", out.Currency)
}

func TestReduce_MissingRate(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)

	w := do(t, f.client, http.MethodPost, "/v1/reductions", mixedSum, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	d := decodeProblem(t, w)
	assert.Equal(t, problem.Type("rates/not-found"), d.Type)
	assert.Contains(t, d.Detail, "CHF/USD")
	assert.NotEmpty(t, d.RequestID)
}

func TestReduce_Overflow(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)
	body := `{"expression":{"sum":{"augend":{"money":{"amount":9223372036854775807,"currency":"USD"}},"addend":{"money":{"amount":1,"currency":"USD"}}}},"to":"USD"}`

	w := do(t, f.client, http.MethodPost, "/v1/reductions", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, problem.Type("expressions/overflow"), decodeProblem(t, w).Type)
}

func TestReduce_TimesOverflow(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)
	body := `{"expression":{"times":{"multiplier":2,"expression":{"money":{"amount":9223372036854775807,"currency":"USD"}}}},"to":"USD"}`

	w := do(t, f.client, http.MethodPost, "/v1/reductions", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, problem.Type("expressions/overflow"), p.Type)
	assert.Contains(t, p.Detail, "overflows")
}

func TestReduce_BadRequests(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)

	cases := []struct {
		name string
		body string
		typ  string
	}{
		{name: "not json", body: `{`, typ: "request/invalid-body"},
		{name: "missing expression", body: `{"to":"USD"}`, typ: "request/invalid-body"},
		{name: "missing target", body: `{"expression":{"money":{"amount":1,"currency":"USD"}}}`, typ: "request/invalid-body"},
		{name: "unknown field", body: `{"expression":{"money":{"amount":1,"currency":"USD"}},"to":"USD","x":1}`, typ: "request/invalid-body"},
		{name: "two variants", body: `{"expression":{"money":{"amount":1,"currency":"USD"},"sum":{}},"to":"USD"}`, typ: "expressions/invalid"},
		{name: "blank currency", body: `{"expression":{"money":{"amount":1,"currency":" "}},"to":"USD"}`, typ: "expressions/invalid"},
		{name: "empty sum", body: `{"expression":{"sum":{"augend":{"money":{"amount":1,"currency":"USD"}}}},"to":"USD"}`, typ: "expressions/invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, f.client, http.MethodPost, "/v1/reductions", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, problem.Type(tc.typ), decodeProblem(t, w).Type)
		})
	}
}

func TestCreateRate_Validation(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)

	cases := map[string]struct {
		body string
		typ  string
	}{
		"zero rate":       {`{"from":"CHF","to":"USD","rate":"0"}`, "rates/invalid"},
		"negative rate":   {`{"from":"CHF","to":"USD","rate":"-1"}`, "rates/invalid"},
		"identity not 1":  {`{"from":"USD","to":"USD","rate":"2"}`, "rates/invalid"},
		"missing rate":    {`{"from":"CHF","to":"USD"}`, "rates/invalid"},
		"tiny exponent":   {`{"from":"CHF","to":"USD","rate":"1e-200000000"}`, "rates/invalid"},
		"missing from":    {`{"to":"USD","rate":"1"}`, "request/invalid-body"},
		"bad currency":    {`{"from":"C-F","to":"USD","rate":"1"}`, "request/invalid-body"},
		"non numeric":     {`{"from":"CHF","to":"USD","rate":"abc"}`, "request/invalid-body"},
		"trailing object": {`{"from":"CHF","to":"USD","rate":"1"}{}`, "request/invalid-body"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, f.client, http.MethodPost, "/v1/rates", tc.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, problem.Type(tc.typ), decodeProblem(t, w).Type)
		})
	}

	w := do(t, f.client, http.MethodGet, "/v1/rates", nil, nil)
	var list handler.RateListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Zero(t, list.Count, "rejected rates are never registered")
}

func TestGetRate(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)
	require.Equal(t, http.StatusCreated, do(t, f.client, http.MethodPost, "/v1/rates", `{"from":"CHF","to":"USD","rate":"0.5"}`, nil).Code)

	w := do(t, f.client, http.MethodGet, "/v1/rates/chf/usd", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rate handler.RateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rate))
	assert.Equal(t, "0.5", rate.Rate.String())

	w = do(t, f.client, http.MethodGet, "/v1/rates/GBP/GBP", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rate))
	assert.Equal(t, "1", rate.Rate.String())

	w = do(t, f.client, http.MethodGet, "/v1/rates/USD/CHF", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "rates are directional")
	assert.Equal(t, problem.Type("rates/not-found"), decodeProblem(t, w).Type)
}

func TestListRates(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)
	for _, body := range []string{
		`{"from":"USD","to":"CHF","rate":"2"}`,
		`{"from":"CHF","to":"USD","rate":"0.5"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, f.client, http.MethodPost, "/v1/rates", body, nil).Code)
	}

	w := do(t, f.client, http.MethodGet, "/v1/rates", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list handler.RateListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "CHF", list.Rates[0].From)
}

func TestRateHistory(t *testing.T) {
	t.Run("without store", func(t *testing.T) {
		f := setupAPI(t, testConfig(false), false, nil)
		w := do(t, f.client, http.MethodGet, "/v1/rates/CHF/USD/history", nil, nil)
		assert.Equal(t, http.StatusNotImplemented, w.Code)
	})

	t.Run("with store", func(t *testing.T) {
		f := setupAPI(t, testConfig(false), true, nil)
		for _, body := range []string{
			`{"from":"CHF","to":"USD","rate":"0.5"}`,
			`{"from":"CHF","to":"USD","rate":"0.6"}`,
		} {
			require.Equal(t, http.StatusCreated, do(t, f.client, http.MethodPost, "/v1/rates", body, nil).Code)
		}

		w := do(t, f.client, http.MethodGet, "/v1/rates/CHF/USD/history?limit=1", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var list handler.RateListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
		require.Len(t, list.Rates, 1)
		assert.Equal(t, "0.6", list.Rates[0].Rate.String())

		w = do(t, f.client, http.MethodGet, "/v1/rates/CHF/USD/history?limit=zero", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCreateRate_RequiresAdminWhenAuthEnabled(t *testing.T) {
	f := setupAPI(t, testConfig(true), false, nil)
	body := `{"from":"CHF","to":"USD","rate":"0.5"}`

	assert.Equal(t, http.StatusUnauthorized, do(t, f.client, http.MethodPost, "/v1/rates", body, nil).Code)

	viewer, err := middleware.NewAuthenticator(testJWTSecret, testJWTIssuer, testJWTAudience).IssueToken("bob", "viewer", time.Hour)
	require.NoError(t, err)
	w := do(t, f.client, http.MethodPost, "/v1/rates", body, map[string]string{"Authorization": "Bearer " + viewer})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, f.client, http.MethodPost, "/v1/rates", body, map[string]string{"Authorization": "Bearer " + adminToken(t)})
	assert.Equal(t, http.StatusCreated, w.Code)

	// Reads and reductions stay public.
	assert.Equal(t, http.StatusOK, do(t, f.client, http.MethodGet, "/v1/rates/CHF/USD", nil, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, f.client, http.MethodPost, "/v1/reductions", mixedSum, nil).Code)
}

func TestCreateRate_IdempotentReplay(t *testing.T) {
	f := setupAPI(t, testConfig(false), true, nil)
	headers := map[string]string{"Idempotency-Key": "rate-1"}

	first := do(t, f.client, http.MethodPost, "/v1/rates", `{"from":"CHF","to":"USD","rate":"0.5"}`, headers)
	second := do(t, f.client, http.MethodPost, "/v1/rates", `{"from":"CHF","to":"USD","rate":"0.5"}`, headers)

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "memory", second.Header().Get("X-Idempotent-Replay"))
	assert.Len(t, f.repo.history, 1, "the replayed request never reached the service")

	conflict := do(t, f.client, http.MethodPost, "/v1/rates", `{"from":"CHF","to":"USD","rate":"0.7"}`, headers)
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, map[string]handler.Pinger{
		"database": handler.PingFunc(func(ctx context.Context) error { return nil }),
	})

	cases := []struct {
		name string
		path string
	}{
		{name: "live", path: "/health/live"},
		{name: "ready", path: "/health/ready"},
		{name: "metrics", path: "/metrics"},
		{name: "openapi", path: "/openapi.yaml"},
		{name: "swagger", path: "/swagger/index.html"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, f.client, http.MethodGet, tc.path, nil, nil)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, map[string]handler.Pinger{
		"redis": handler.PingFunc(func(ctx context.Context) error { return errors.New("connection refused") }),
	})

	w := do(t, f.client, http.MethodGet, "/health/ready", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeProblem(t, w).Detail, "redis")
}

func TestTraceIDIsEchoed(t *testing.T) {
	f := setupAPI(t, testConfig(false), false, nil)
	w := do(t, f.client, http.MethodGet, "/v1/rates", nil, map[string]string{"X-Trace-ID": "trace-123"})
	assert.Equal(t, "trace-123", w.Header().Get("X-Trace-ID"))
}
