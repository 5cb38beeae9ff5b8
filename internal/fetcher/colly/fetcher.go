// Package collyfetcher implements goldprice.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/goldwatch/internal/goldprice"
	"github.com/JakeFAU/goldwatch/internal/metrics"
	"github.com/JakeFAU/goldwatch/internal/policy/retry"
)

// DefaultUserAgent mimics a desktop Chrome; the source site rejects bot agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	LegacyTLS bool
	Retry     retry.Config
}

// Fetcher implements goldprice.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	policy        *retry.ExponentialPolicy
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// attemptResult collects what one collector visit observed.
type attemptResult struct {
	status int
	body   []byte
	err    error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = true
	// Status handling happens in Fetch so 4xx/5xx reach OnResponse.
	c.ParseHTTPErrorResponse = true
	c.UserAgent = cfg.UserAgent
	c.WithTransport(newHTTPTransport(cfg.LegacyTLS))
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		policy:        retry.NewExponentialPolicy(cfg.Retry),
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch GETs url, retrying transient failures, and returns the body as text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var body []byte
	err := f.policy.Do(ctx, func(ctx context.Context, _ int) error {
		res := f.visitOnce(ctx, url)
		if res.err != nil {
			metrics.ObserveFetchAttempt("error")
			return res.err
		}
		if res.status < 200 || res.status > 299 {
			metrics.ObserveFetchAttempt("status_" + strconv.Itoa(res.status))
			return &goldprice.StatusError{StatusCode: res.status}
		}
		metrics.ObserveFetchAttempt("ok")
		body = res.body
		return nil
	}, func(attempt int, wait time.Duration, err error) {
		f.logger.Warn("fetch attempt failed; retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
	if err != nil {
		return "", fmt.Errorf("%w: fetch %s: %w", goldprice.ErrNetwork, url, err)
	}
	return string(body), nil
}

func (f *Fetcher) visitOnce(ctx context.Context, url string) attemptResult {
	var result attemptResult
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, &result)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return attemptResult{err: fmt.Errorf("colly fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if result.err != nil {
			return result
		}
		if err != nil {
			return attemptResult{err: fmt.Errorf("colly visit failed: %w", err)}
		}
		return result
	}
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *attemptResult) {
	hooks.OnRequest(func(r *colly.Request) {
		setBrowserHeaders(r.Headers)
	})

	hooks.OnResponse(func(r *colly.Response) {
		result.status = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			result.status = r.StatusCode
		}
		result.err = err
	})
}

func setBrowserHeaders(h *http.Header) {
	if h == nil {
		return
	}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
}

func newHTTPTransport(legacyTLS bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       TLSConfig(legacyTLS),
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}

// TLSConfig returns the client TLS settings. With legacy enabled the cipher
// list also offers the suites Go marks insecure, which the source host needs.
func TLSConfig(legacy bool) *tls.Config {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if !legacy {
		return cfg
	}
	suites := make([]uint16, 0, len(tls.CipherSuites())+len(tls.InsecureCipherSuites()))
	for _, s := range tls.CipherSuites() {
		suites = append(suites, s.ID)
	}
	for _, s := range tls.InsecureCipherSuites() {
		suites = append(suites, s.ID)
	}
	cfg.CipherSuites = suites //nolint:gosec // target server only negotiates legacy suites
	return cfg
}
