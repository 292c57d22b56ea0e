package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/alejandrodnm/tradejournal/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	defaultRatePerSec = 20
	maxRetries        = 3
	baseRetryWait     = 250 * time.Millisecond
)

// Client consulta buckets a una API remota del diario con rate limiting y
// retries. Implementa ports.BucketQuerier.
type Client struct {
	http      *http.Client
	base      string
	limiter   *rate.Limiter
	retryWait time.Duration
}

// NewClient crea un Client contra baseURL (sin /api/v1).
// ratePerSec <= 0 usa el límite por defecto.
func NewClient(baseURL string, ratePerSec float64) *Client {
	if ratePerSec <= 0 {
		ratePerSec = defaultRatePerSec
	}
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		base:      strings.TrimRight(baseURL, "/"),
		limiter:   rate.NewLimiter(rate.Limit(ratePerSec), 5),
		retryWait: baseRetryWait,
	}
}

// WithRetryWait cambia la espera base del backoff (tests).
func (c *Client) WithRetryWait(d time.Duration) *Client {
	c.retryWait = d
	return c
}

// bucketWire es el cuerpo de GET /buckets/{granularity}/{year}/{index}.
type bucketWire struct {
	Trades   int             `json:"trades"`
	Wins     int             `json:"wins"`
	Losses   int             `json:"losses"`
	Sessions int             `json:"sessions"`
	Earnings decimal.Decimal `json:"earnings"`
	WinRate  int             `json:"win_rate"`
}

type errorWire struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// QueryBucket devuelve el agregado remoto del bucket, o nil si el servidor
// responde null (sin datos).
func (c *Client) QueryBucket(ctx context.Context, spec domain.BucketSpec) (*domain.BucketStats, error) {
	url := fmt.Sprintf("%s/api/v1/buckets/%s/%d/%d", c.base, spec.Granularity, spec.Year, spec.Index)

	var out *bucketWire
	if err := c.get(ctx, url, &out); err != nil {
		return nil, fmt.Errorf("remote.QueryBucket %s: %w", spec, err)
	}
	if out == nil {
		return nil, nil
	}
	return &domain.BucketStats{
		Trades:   out.Trades,
		Wins:     out.Wins,
		Losses:   out.Losses,
		Sessions: out.Sessions,
		Earnings: out.Earnings,
		WinRate:  out.WinRate,
	}, nil
}

// get hace un GET con rate limiting y retries.
func (c *Client) get(ctx context.Context, url string, out any) error {
	return c.doWithRetry(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial. Los 4xx no se
// reintentan y se traducen a los errores del dominio.
func (c *Client) doWithRetry(ctx context.Context, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries || ctx.Err() != nil {
				return fmt.Errorf("request failed after %d retries: %w", attempt, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by journal API", "attempt", attempt+1)
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			return clientError(resp)
		}

		defer resp.Body.Close()
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

func clientError(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var e errorWire
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Details != "" {
		msg = e.Details
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrValidation, msg)
	}
	return fmt.Errorf("client error %d: %s", resp.StatusCode, msg)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
