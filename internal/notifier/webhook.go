// Package notifier posts price notifications to webhook targets.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
	"github.com/JakeFAU/goldwatch/internal/policy/retry"
)

const maxErrorBody = 4 << 10

// Config controls webhook delivery.
type Config struct {
	Timeout time.Duration
	Retry   retry.Config
}

// WebhookNotifier implements goldprice.Notifier over HTTP POST.
type WebhookNotifier struct {
	client *http.Client
	policy *retry.ExponentialPolicy
	logger *zap.Logger
}

// NewWebhookNotifier builds a notifier. A nil client gets one with cfg.Timeout.
func NewWebhookNotifier(client *http.Client, cfg Config, logger *zap.Logger) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookNotifier{
		client: client,
		policy: retry.NewExponentialPolicy(cfg.Retry),
		logger: logger,
	}
}

// Notify posts the variant-specific payload for current/previous to target.
func (w *WebhookNotifier) Notify(ctx context.Context, target goldprice.Target, current float64, previous *float64) error {
	body, err := json.Marshal(BuildPayload(target.Variant, current, previous))
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %w", goldprice.ErrDelivery, err)
	}

	err = w.policy.Do(ctx, func(ctx context.Context, _ int) error {
		return w.post(ctx, target.URL, body)
	}, func(attempt int, wait time.Duration, err error) {
		w.logger.Warn("webhook post failed; retrying",
			zap.String("target", target.DisplayName()),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		return fmt.Errorf("%w: post %s: %w", goldprice.ErrDelivery, target.DisplayName(), err)
	}
	return nil
}

func (w *WebhookNotifier) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSpace(url), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &goldprice.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}
