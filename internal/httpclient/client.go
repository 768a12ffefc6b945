// Package httpclient builds the outbound HTTP clients used by signal providers.
package httpclient

import (
	"net/http"
	"time"

	"wayfarer/internal/logging"
)

const userAgent = "wayfarer/0.1"

type loggingRoundTripper struct {
	base   http.RoundTripper
	logger logging.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", userAgent)
	}
	started := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.logger.Debug("%s %s failed after %v: %v", req.Method, req.URL.Host, time.Since(started), err)
		return nil, err
	}
	t.logger.Debug("%s %s -> %d in %v", req.Method, req.URL.Host, resp.StatusCode, time.Since(started))
	return resp, nil
}

// New returns a client with the given timeout that tags requests with the
// wayfarer user agent and logs round trips at debug level.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingRoundTripper{
			base:   http.DefaultTransport,
			logger: logging.OrNop(logger),
		},
	}
}
