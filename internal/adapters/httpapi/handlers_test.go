package httpapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/adapters/httpapi"
	"github.com/alejandrodnm/tradejournal/internal/adapters/storage"
	"github.com/alejandrodnm/tradejournal/internal/application/analytics"
	"github.com/alejandrodnm/tradejournal/internal/application/journal"
	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := journal.NewService(db).WithClock(func() time.Time { return t0 })
	agg := analytics.NewAggregator(db, domain.Calendar{Mode: domain.WeekLegacy, Loc: time.UTC})
	srv := httptest.NewServer(httpapi.NewRouter(httpapi.NewHandler(svc, agg)))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestAPI_SessionLifecycle(t *testing.T) {
	srv := newServer(t)
	base := srv.URL + "/api/v1"

	var sess httpapi.SessionResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base+"/sessions", map[string]string{"starting_balance": "1000"}, &sess))
	assert.Equal(t, "EMPTY", sess.State)
	require.NotNil(t, sess.StartingBalance)
	assert.Equal(t, "1000.00", *sess.StartingBalance)

	var lossID int64
	for i, result := range []string{"win", "win", "win", "loss", "loss"} {
		ts := t0.Add(time.Duration(i+1) * time.Minute)
		var logged httpapi.LogTradeResponse
		status := do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/trades", map[string]any{
			"timestamp":     ts,
			"confirmations": []string{"trend"},
			"result":        result,
			"loss_reasons":  []string{"fomo"},
		}, &logged)
		require.Equal(t, http.StatusCreated, status)
		if result == "loss" {
			lossID = logged.Trade.ID
			assert.Equal(t, []string{"fomo"}, logged.Trade.LossReasons)
		} else {
			assert.Empty(t, logged.Trade.LossReasons)
		}
	}

	var got httpapi.SessionResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/sessions/"+sess.ID, nil, &got))
	assert.Equal(t, 5, got.TradeCount)
	assert.Equal(t, 60, got.WinRate)
	assert.Equal(t, "ACTIVE", got.State)

	var del httpapi.DeleteTradeResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodDelete, srv.URL+"/api/v1/trades/"+itoa(lossID), nil, &del))
	assert.Equal(t, 4, del.Session.TradeCount)
	assert.Equal(t, 1, del.Session.LossCount)
	assert.Equal(t, 75, del.Session.WinRate)
	assert.False(t, del.Emptied)

	var trades []httpapi.TradeResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/sessions/"+sess.ID+"/trades", nil, &trades))
	assert.Len(t, trades, 4)

	var ended httpapi.SessionResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/end", map[string]string{"closing_balance": "1200"}, &ended))
	assert.Equal(t, "ENDED", ended.State)
	require.NotNil(t, ended.Earnings)
	assert.Equal(t, "200.00", *ended.Earnings)

	var clock httpapi.ClockResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/sessions/"+sess.ID+"/clock", nil, &clock))
	assert.False(t, clock.Active)
	assert.Equal(t, "1m", clock.Interval)

	var list []httpapi.SessionResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/sessions", nil, &list))
	assert.Len(t, list, 1)

	require.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, base+"/sessions/"+sess.ID, nil, nil))
	require.Equal(t, http.StatusNotFound, do(t, http.MethodGet, base+"/sessions/"+sess.ID, nil, nil))
}

func TestAPI_ErrorMapping(t *testing.T) {
	srv := newServer(t)
	base := srv.URL + "/api/v1"

	var e httpapi.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/sessions", map[string]string{"starting_balance": "lots"}, &e))
	assert.Equal(t, "validation failed", e.Error)
	assert.NotEmpty(t, e.Details)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodDelete, base+"/trades/999", nil, &e))
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, base+"/sessions/nope/trades", nil, &e))

	var sess httpapi.SessionResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base+"/sessions", nil, &sess))
	// Cerrar sin trades es validación, no un fin de sesión.
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/end", map[string]string{"closing_balance": "10"}, &e))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/trades", map[string]any{"result": "win"}, &e))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/trades", map[string]any{"result": "maybe", "confirmations": []string{"x"}}, &e))

	resp, err := http.Post(base+"/sessions", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_NumericBalances(t *testing.T) {
	srv := newServer(t)
	base := srv.URL + "/api/v1"

	var sess httpapi.SessionResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base+"/sessions", map[string]any{"starting_balance": 1000.5}, &sess))
	require.NotNil(t, sess.StartingBalance)
	assert.Equal(t, "1000.50", *sess.StartingBalance)

	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/trades",
		map[string]any{"result": "win", "confirmations": []string{"trend"}}, nil))

	var e httpapi.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/end", map[string]any{"closing_balance": true}, &e))

	var ended httpapi.SessionResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/end", map[string]any{"closing_balance": 1200}, &ended))
	require.NotNil(t, ended.ClosingBalance)
	assert.Equal(t, "1200.00", *ended.ClosingBalance)
}

func TestAPI_DeleteOnlyTradeReportsEmptied(t *testing.T) {
	srv := newServer(t)
	base := srv.URL + "/api/v1"

	var sess httpapi.SessionResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base+"/sessions", nil, &sess))
	var logged httpapi.LogTradeResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base+"/sessions/"+sess.ID+"/trades",
		map[string]any{"result": "draw", "confirmations": []string{"x"}}, &logged))

	var del httpapi.DeleteTradeResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodDelete, base+"/trades/"+itoa(logged.Trade.ID), nil, &del))
	assert.True(t, del.Emptied)
	assert.Equal(t, "EMPTY", del.Session.State)
}

func TestAPI_Buckets(t *testing.T) {
	srv := newServer(t)
	base := srv.URL + "/api/v1"

	var sess httpapi.SessionResponse
	require.Equal(t, http.StatusCreated, do(t, http.MethodPost, base+"/sessions", nil, &sess))

	// Sesión sin trades en marzo: registro explícito a cero.
	var bucket *httpapi.BucketResponse
	require.Equal(t, http.StatusOK, do(t, http.MethodGet, base+"/buckets/month/2026/3", nil, &bucket))
	require.NotNil(t, bucket)
	assert.Equal(t, 0, bucket.Trades)
	assert.Equal(t, "0.00", bucket.Earnings)

	// Sin sesiones en julio: null.
	resp, err := http.Get(base + "/buckets/month/2026/7")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(body)))

	var e httpapi.ErrorResponse
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, base+"/buckets/week/2026/53", nil, &e))
	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodGet, base+"/buckets/day/2026/1", nil, &e))
}

func TestAPI_MetricsAndHealth(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
