package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/skillflow/internal/clock"
	"github.com/sudo-init-do/skillflow/internal/config"
	"github.com/sudo-init-do/skillflow/internal/events"
	"github.com/sudo-init-do/skillflow/internal/logger"
	"github.com/sudo-init-do/skillflow/internal/marketplace"
	mware "github.com/sudo-init-do/skillflow/internal/middleware"
	"github.com/sudo-init-do/skillflow/internal/oracle"
	"github.com/sudo-init-do/skillflow/internal/skilltoken"
	"github.com/sudo-init-do/skillflow/internal/wallet"
)

var secret = []byte("api-test-secret")

type fakeJournal struct {
	events []events.Event
	err    error
}

func (f *fakeJournal) History(_ context.Context, serviceID uint64) ([]events.Event, error) {
	var out []events.Event
	for _, e := range f.events {
		if e.ServiceID == serviceID {
			out = append(out, e)
		}
	}
	return out, f.err
}

type testServer struct {
	e       *echo.Echo
	engine  *marketplace.Engine
	journal *fakeJournal
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	book := wallet.NewBook()
	_, err := book.Deposit("client", 50_000_000, "seed")
	require.NoError(t, err)
	tokens := skilltoken.NewMemory(true)
	require.NoError(t, tokens.Mint("provider", 10_000_000))

	journal := &fakeJournal{}
	engine, err := marketplace.New(marketplace.Deps{
		Params:  config.DefaultParams(),
		Clock:   clock.NewLogical(1),
		Wallets: book,
		Oracle:  oracle.NewStatic(2_000_000, 90, 250, 50),
		Tokens:  tokens,
		Events: events.SinkFunc(func(_ context.Context, e events.Event) error {
			journal.events = append(journal.events, e)
			return nil
		}),
		Log:                logger.Discard(),
		Admins:             []string{"admin"},
		Treasury:           "treasury",
		SuggestionOperator: "operator",
	})
	require.NoError(t, err)

	e := echo.New()
	New(engine, Options{Secret: secret, Journal: journal, Log: logger.Discard()}).Routes(e)
	return &testServer{e: e, engine: engine, journal: journal}
}

func (ts *testServer) do(t *testing.T, method, path, account, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload string
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = string(raw)
	}
	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if account != "" {
		tok, err := mware.IssueToken(secret, account, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

var newService = echo.Map{
	"category":    "design",
	"description": "logo for a bakery",
	"amount":      5_000_000,
	"duration":    480,
}

var application = echo.Map{
	"message":         "ten years of brand identity work",
	"timeline":        300,
	"portfolio_links": []string{"https://portfolio.example/brand"},
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health", "", "", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/ready", "", "", nil).Code)
}

func TestServiceLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/services", "", "", newService).Code)

	rec := ts.do(t, http.MethodPost, "/services", "client", "client", newService)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc := decode(t, rec)
	assert.Equal(t, "open", svc["status"])
	assert.EqualValues(t, 1, svc["id"])

	rec = ts.do(t, http.MethodPost, "/services/1/applications", "provider", "provider", application)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/services/1/applications", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["applications"], 1)

	rec = ts.do(t, http.MethodPost, "/services/1/select", "client", "client", echo.Map{"provider": "provider"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "matched", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodPost, "/services/1/session", "provider", "provider", echo.Map{"meeting_ref": "meet://room-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/services/1/complete", "provider", "provider", echo.Map{"evidence": "ipfs://delivery"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/services/1/confirm", "provider", "provider", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/services/1/confirm", "client", "client", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = ts.do(t, http.MethodPost, "/services/1/rating", "client", "client", echo.Map{"score": 45})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/providers/provider/reputation", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["completed_services"])

	rec = ts.do(t, http.MethodGet, "/wallet/balance", "provider", "provider", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 4_875_000, decode(t, rec)["balance"])

	rec = ts.do(t, http.MethodGet, "/services/1/events", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["events"], 7)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/services/99", "", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 101, body["code"])
	assert.NotEmpty(t, body["hint"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/services/abc", "", "", nil).Code)

	bad := echo.Map{"category": "design", "description": "x", "amount": 1, "duration": 480}
	rec = ts.do(t, http.MethodPost, "/services", "client", "client", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, 110, decode(t, rec)["code"])

	rec = ts.do(t, http.MethodPost, "/services", "pauper", "client", newService)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestJournalFailure(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/services", "client", "client", newService).Code)
	ts.journal.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, ts.do(t, http.MethodGet, "/services/1/events", "", "", nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/admin/wallets/alice/topup", "client", "client", echo.Map{"amount": 1_000_000})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(t, http.MethodPost, "/admin/wallets/alice/topup", "mallory", "admin", echo.Map{"amount": 1_000_000})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/wallets/alice/topup", "admin", "admin", echo.Map{"amount": 1_000_000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint64(1_000_000), ts.engine.WalletBalance("alice"))

	rec = ts.do(t, http.MethodPost, "/admin/platform/active", "admin", "admin", echo.Map{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["active"])

	rec = ts.do(t, http.MethodPost, "/services", "client", "client", newService)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.EqualValues(t, 116, decode(t, rec)["code"])

	rec = ts.do(t, http.MethodPost, "/admin/treasury", "admin", "admin", echo.Map{"treasury": config.BurnPrincipal})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/platform/emergency", "admin", "admin", echo.Map{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["emergency_mode"])
}

func TestMintSkillThenApply(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/services", "client", "client", newService).Code)

	rec := ts.do(t, http.MethodPost, "/services/1/applications", "newcomer", "provider", application)
	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
	assert.EqualValues(t, 136, decode(t, rec)["code"])

	rec = ts.do(t, http.MethodPost, "/admin/tokens/newcomer/mint", "client", "client", echo.Map{"amount": 1_000_000})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/admin/tokens/newcomer/mint", "admin", "admin", echo.Map{"amount": 1_000_000})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 1_000_000, decode(t, rec)["skill_balance"])

	rec = ts.do(t, http.MethodPost, "/services/1/applications", "newcomer", "provider", application)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/wallet/skill", "newcomer", "provider", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["skill_balance"])
}

func TestTreasuryCannotBeEscrowPool(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/admin/treasury", "admin", "admin", echo.Map{"treasury": "escrow-pool"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.EqualValues(t, 117, decode(t, rec)["code"])
}

func TestSuggestionRoutesRequireOperator(t *testing.T) {
	ts := newTestServer(t)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/services", "client", "client", newService).Code)

	rec := ts.do(t, http.MethodPost, "/services/1/suggestions/init", "client", "client", echo.Map{"slate_size": 3})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(t, http.MethodPost, "/services/1/suggestions/init", "operator", "operator", echo.Map{"slate_size": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	suggestion := echo.Map{
		"provider":            "newbie",
		"bucket":              "new_provider",
		"estimated_timeline":  200,
		"success_probability": 75,
	}
	rec = ts.do(t, http.MethodPost, "/services/1/suggestions", "operator", "operator", suggestion)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	suggestion["bucket"] = "other"
	rec = ts.do(t, http.MethodPost, "/services/1/suggestions", "operator", "operator", suggestion)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/services/1/quota", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["suggestions"], 1)
}

func TestQuote(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/quote?usd=10000000", "", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 5_000_000, decode(t, rec)["amount"])

	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodGet, "/quote?usd=-1", "", "", nil).Code)
}
