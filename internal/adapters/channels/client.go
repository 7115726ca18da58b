package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"hotel_rates/internal/adapters/observability"
	"hotel_rates/internal/domain"
)

// Client pushes applied rate changes to the distribution (channel-manager)
// API. Pushes are best effort from the engine's point of view: the caller
// logs failures and never folds them into a BatchResult.
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

func New(base, key string, rps int) (*Client, error) {
	if key == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: base,
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

var (
	ErrNotFound     = errors.New("channels: not found")
	ErrUnauthorized = errors.New("channels: unauthorized")
	ErrForbidden    = errors.New("channels: forbidden")
)

const maxUpdatesPerPush = 500

// PushRates ships updates in chunks the remote accepts. Chunks already
// delivered are not resent when a later chunk fails.
func (c *Client) PushRates(ctx context.Context, updates []domain.RateUpdate) error {
	for len(updates) > 0 {
		n := len(updates)
		if n > maxUpdatesPerPush {
			n = maxUpdatesPerPush
		}
		if err := c.post(ctx, c.base+"/v1/rates/push", map[string]any{"updates": updates[:n]}); err != nil {
			return err
		}
		updates = updates[n:]
	}
	return nil
}

// post performs a POST with client-side rate limiting and bounded retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, url string, payload any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 4; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.key)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hotel-rates/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sleep(ctx, backoff(i))
			continue
		}

		observability.ObserveExternal("channels", "rates_push", resp.StatusCode, time.Since(start))

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			drain(resp)
			return nil
		case resp.StatusCode == http.StatusNotFound:
			drain(resp)
			return ErrNotFound
		case resp.StatusCode == http.StatusUnauthorized:
			drain(resp)
			return ErrUnauthorized
		case resp.StatusCode == http.StatusForbidden:
			drain(resp)
			return ErrForbidden
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			wait := backoff(i)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, perr := strconv.Atoi(ra); perr == nil {
					wait = time.Duration(secs) * time.Second
				}
			}
			drain(resp)
			lastErr = fmt.Errorf("channels: status %d", resp.StatusCode)
			sleep(ctx, wait)
			continue
		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return fmt.Errorf("channels: status %d: %s", resp.StatusCode, string(b))
		}
	}
	return lastErr
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<attempt) * 250 * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
