// Package esp32 fetches soil readings from the sensor board's HTTP endpoint.
// Every request goes through a circuit breaker; a short backoff retries
// transient failures while the breaker is closed.
package esp32

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/LeonardoBeccarini/soil_advisor/internal/model/messages"
)

var (
	// ErrInvalidPayload: the board answered but no metric carried a number.
	ErrInvalidPayload = errors.New("esp32: payload has no valid reading")
	// ErrBreakerOpen: too many recent failures, request not attempted.
	ErrBreakerOpen = errors.New("esp32: circuit breaker open")
)

const DefaultPath = "/sensor"

type Config struct {
	BaseURL string
	Path    string
	Timeout time.Duration
	// Retries per Fetch while the breaker is closed (0 = single attempt).
	Retries int
	// BreakerFails consecutive failures that open the breaker.
	BreakerFails int
	// BreakerOpen is how long the breaker stays open.
	BreakerOpen time.Duration
}

type Client struct {
	http    *resty.Client
	cb      *gobreaker.CircuitBreaker
	path    string
	retries int
	base    string
}

func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPath
	}
	path = "/" + strings.TrimLeft(path, "/")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	fails := cfg.BreakerFails
	if fails <= 0 {
		fails = 3
	}
	open := cfg.BreakerOpen
	if open <= 0 {
		open = 30 * time.Second
	}

	hc := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "esp32",
		Timeout: open,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("esp32: breaker %s %s -> %s", name, from, to)
		},
		// payload vuoto non è un guasto del dispositivo
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrInvalidPayload)
		},
	})

	return &Client{http: hc, cb: cb, path: path, retries: cfg.Retries, base: base}
}

// BaseURL returns the normalised board address.
func (c *Client) BaseURL() string { return c.base }

// State exposes the breaker state for readiness checks.
func (c *Client) State() gobreaker.State { return c.cb.State() }

// Fetch returns the current board reading. ErrInvalidPayload is returned when
// every metric is missing or unparsable.
func (c *Client) Fetch(ctx context.Context) (messages.SoilReading, error) {
	var out messages.SoilReading

	bo := backoff.WithContext(
		backoff.WithMaxRetries(newBackoff(), uint64(max(0, c.retries))),
		ctx,
	)
	err := backoff.Retry(func() error {
		res, err := c.cb.Execute(func() (any, error) {
			return c.get(ctx)
		})
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(ErrBreakerOpen)
		case errors.Is(err, ErrInvalidPayload):
			return backoff.Permanent(err)
		case err != nil:
			return err
		}
		out = res.(messages.SoilReading)
		return nil
	}, bo)
	if err != nil {
		return messages.SoilReading{}, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context) (messages.SoilReading, error) {
	if c.base == "" {
		return messages.SoilReading{}, fmt.Errorf("esp32: no base url configured")
	}
	resp, err := c.http.R().SetContext(ctx).Get(c.path)
	if err != nil {
		return messages.SoilReading{}, fmt.Errorf("esp32 request: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return messages.SoilReading{}, fmt.Errorf("esp32 status %d", resp.StatusCode())
	}
	var sr messages.SoilReading
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return messages.SoilReading{}, fmt.Errorf("esp32 decode: %w", err)
	}
	if sr.ToReading().AllInvalid() {
		return messages.SoilReading{}, ErrInvalidPayload
	}
	if sr.Timestamp.IsZero() {
		sr.Timestamp = time.Now().UTC()
	}
	return sr, nil
}

func newBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 10 * time.Second
	return bo
}
