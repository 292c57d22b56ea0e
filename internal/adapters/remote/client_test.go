package remote_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/adapters/remote"
	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var march = domain.BucketSpec{Year: 2026, Granularity: domain.GranularityMonth, Index: 3}

func TestClient_QueryBucket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/buckets/month/2026/3", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"year":2026,"granularity":"month","index":3,"trades":10,"wins":6,"losses":3,"sessions":3,"earnings":"150.00","win_rate":60}`))
	}))
	defer srv.Close()

	got, err := remote.NewClient(srv.URL+"/", 0).QueryBucket(context.Background(), march)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 10, got.Trades)
	assert.Equal(t, 6, got.Wins)
	assert.Equal(t, 3, got.Sessions)
	assert.Equal(t, "150.00", got.Earnings.StringFixed(2))
	assert.Equal(t, 60, got.WinRate)
}

func TestClient_NullMeansNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("null\n"))
	}))
	defer srv.Close()

	got, err := remote.NewClient(srv.URL, 0).QueryBucket(context.Background(), march)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"trades":1,"wins":1,"earnings":"0","win_rate":100}`))
	}))
	defer srv.Close()

	got, err := remote.NewClient(srv.URL, 0).WithRetryWait(time.Millisecond).QueryBucket(context.Background(), march)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 100, got.WinRate)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got, err := remote.NewClient(srv.URL, 0).WithRetryWait(time.Millisecond).QueryBucket(context.Background(), march)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int32(4), calls.Load())
}

func TestClient_ClientErrorsMapToDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"validation failed","details":"week index 53 out of range"}`))
	}))
	defer srv.Close()

	_, err := remote.NewClient(srv.URL, 0).QueryBucket(context.Background(), march)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "out of range")
}
