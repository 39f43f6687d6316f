package rest

import (
	"bitunix/internal/exchange/retry"
	"bitunix/internal/exchange/timesync"
	"bitunix/internal/logger"
	"bitunix/internal/metrics"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type Option func(*Client)

// WithHTTPClient replaces the transport. Per-attempt timeouts are applied
// through the request context, so the doer needs no timeout of its own.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.httpClient = doer
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) {
		c.retry = p
	}
}

// WithSleeper replaces the delay strategy used between attempts.
func WithSleeper(s retry.Sleeper) Option {
	return func(c *Client) {
		if s != nil {
			c.sleeper = s
		}
	}
}

func WithLanguage(lang string) Option {
	return func(c *Client) {
		if lang != "" {
			c.language = lang
		}
	}
}

func WithTimePath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.timePath = path
		}
	}
}

func WithTimeSyncTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.syncTTL = ttl
	}
}

// WithSkewPredicate replaces the heuristic that recognizes timestamp
// rejections in API error messages. nil disables reactive resync.
func WithSkewPredicate(p SkewPredicate) Option {
	return func(c *Client) {
		c.skew = p
	}
}

func WithNonceFunc(f func() string) Option {
	return func(c *Client) {
		if f != nil {
			c.nonce = f
		}
	}
}

// WithNow sets the local clock used for signed timestamps.
func WithNow(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRateLimit paces outgoing attempts on the client side.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func New(baseURL, apiKey, secret string, log *logger.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if log == nil {
		log = logger.Nop()
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secret:     secret,
		language:   DefaultLanguage,
		timePath:   DefaultTimePath,
		timeout:    DefaultTimeout,
		syncTTL:    timesync.DefaultTTL,
		httpClient: &http.Client{},
		retry:      retry.DefaultPolicy(),
		sleeper:    retry.DefaultSleeper,
		skew:       LooksLikeTimestampError,
		nonce:      NewNonce,
		now:        time.Now,
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}

	syncOpts := []timesync.Option{
		timesync.WithNow(c.now),
		timesync.WithLogger(c.log),
		timesync.WithPath(c.timePath),
		timesync.WithTimeout(c.syncTimeout()),
	}
	if c.metrics != nil {
		syncOpts = append(syncOpts, timesync.WithObserver(c.metrics))
	}
	c.clock = timesync.New(
		timesync.SourceFunc(c.serverTimeFromEndpoint),
		timesync.SourceFunc(c.serverTimeFromDateHeader),
		c.syncTTL,
		syncOpts...,
	)

	return c
}

// syncTimeout covers every attempt of the primary time source, the
// backoff between them and the Date fallback.
func (c *Client) syncTimeout() time.Duration {
	attempts := time.Duration(c.retry.MaxRetries + 2)
	return attempts*c.timeout + time.Duration(c.retry.MaxRetries)*c.retry.BackoffMax
}
