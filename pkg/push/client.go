// Package push delivers JSON payloads to browser push endpoints. It reports
// permanent endpoint failure (gone/invalid) distinctly from transient faults
// so the caller can retire dead subscriptions.
package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEndpointGone signals a permanently invalid endpoint. The subscription
// owning it should be deactivated, not retried.
var ErrEndpointGone = errors.New("push endpoint gone")

// IsPermanent reports whether err means the endpoint will never work again.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrEndpointGone)
}

// Subscription carries the endpoint and keying material for one target.
type Subscription struct {
	Endpoint string
	P256DH   string
	Auth     string
}

// Transport attempts delivery of one payload to one subscription.
type Transport interface {
	Send(ctx context.Context, sub Subscription, payload []byte) error
}

type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	Timeout         time.Duration
	TTL             int
}

type client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns an HTTP push transport.
func NewClient(cfg Config) Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 60
	}
	return &client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *client) Send(ctx context.Context, sub Subscription, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", fmt.Sprintf("%d", c.cfg.TTL))
	if c.cfg.VAPIDPublicKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("vapid t=%s, k=%s", c.cfg.VAPIDPrivateKey, c.cfg.VAPIDPublicKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("push request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("endpoint returned %d: %w", resp.StatusCode, ErrEndpointGone)
	default:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
}
