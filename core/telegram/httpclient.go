package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/datepoll/core/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	tlsTimeout       = 5 * time.Second
	idleConnTimeout  = 30 * time.Second
	keepAlive        = 30 * time.Second
	responseSlack    = 5 * time.Second
	requestSlack     = 20 * time.Second
	defaultAttempts  = 3
	defaultBackoff   = 2 * time.Second
	maxIdlePerHost   = 10
	maxIdleOverall   = 100
	expectContinueTO = time.Second
)

// HTTPClientOptions tunes BuildHTTPClient. Zero values select defaults.
type HTTPClientOptions struct {
	// LongPoll is how long getUpdates may hang; response timeouts start after it.
	LongPoll      time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
}

// BuildHTTPClient returns a client for Bot API calls that retries transient
// network failures.
func BuildHTTPClient(opts HTTPClientOptions) *http.Client {
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = defaultAttempts
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = defaultBackoff
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: keepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          maxIdleOverall,
		MaxIdleConnsPerHost:   maxIdlePerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsTimeout,
		ResponseHeaderTimeout: opts.LongPoll + responseSlack,
		ExpectContinueTimeout: expectContinueTO,
	}

	rt := &retryTransport{
		base:     transport,
		attempts: opts.RetryAttempts,
		backoff:  opts.RetryBackoff,
	}
	return &http.Client{
		Timeout:   opts.LongPoll + requestSlack,
		Transport: rt,
	}
}

// retryTransport repeats a request after transient failures, waiting
// backoff*n before attempt n+1. Requests whose body cannot be rewound are
// tried once.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.attempts
	if req.Body != nil && req.GetBody == nil {
		attempts = 1
	}

	var lastErr error
	for n := 1; n <= attempts; n++ {
		r := req
		if n > 1 {
			r = req.Clone(req.Context())
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				r.Body = body
			}
		}

		resp, err := base.RoundTrip(r)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if n == attempts || !netutil.ShouldRetry(err) {
			break
		}

		timer := time.NewTimer(t.backoff * time.Duration(n))
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
