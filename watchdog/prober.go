package watchdog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// HTTPProber checks reachability with plain HTTP requests. Only
// transport-level success matters: redirects are not followed, the
// status code is ignored and the body is never read.
type HTTPProber struct {
	timeout   time.Duration
	userAgent string
	logger    *zap.Logger
}

func NewHTTPProber(timeout time.Duration, userAgent string, logger *zap.Logger) *HTTPProber {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProber{timeout: timeout, userAgent: userAgent, logger: logger}
}

// Probe tries urls in order and stops at the first success. When all
// fail it returns one *ProbeError per URL, combined in probe order.
func (p *HTTPProber) Probe(ctx context.Context, urls []string, proxy *ProxyConfig) error {
	client := p.client(proxy)
	defer client.CloseIdleConnections()

	var errs error
	for _, u := range urls {
		perr := p.check(ctx, client, u)
		if perr == nil {
			p.logger.Debug("URL check succeeded", zap.String("url", u))
			return nil
		}
		p.logger.Debug("URL check failed", zap.String("url", u), zap.String("reason", perr.Reason))
		errs = multierr.Append(errs, perr)
	}
	return errs
}

func (p *HTTPProber) client(proxy *ProxyConfig) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	if proxy != nil {
		// Same proxy for http and https targets.
		transport.Proxy = http.ProxyURL(proxy.URL())
	}
	return &http.Client{
		Transport: transport,
		Timeout:   p.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (p *HTTPProber) check(ctx context.Context, client *http.Client, rawURL string) *ProbeError {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &ProbeError{URL: rawURL, Reason: fmt.Sprintf("error creating request: %v", err)}
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return &ProbeError{URL: rawURL, Reason: err.Error()}
	}
	_ = resp.Body.Close()
	return nil
}
