package rest

import (
	"bitunix/internal/exchange/apierr"
	"bitunix/internal/exchange/timesync"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Do executes one logical call: it signs private requests, dispatches
// attempts and retries transient failures within the retry budget. A
// private call rejected for its timestamp on the first attempt is
// retried once, immediately, after a forced clock sync.
//
// Cancelling ctx is observed between attempts and during the per-attempt
// timeout; there is no overall deadline besides ctx.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	body, err := CanonicalBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("Не удалось подготовить тело запроса: %w", err)
	}

	entry := c.log.WithRequestID(uuid.NewString()).WithFields(logrus.Fields{
		"component": "bitunix-rest",
		"method":    method,
		"path":      req.Path,
		"private":   req.Private,
	})

	attempt := 0
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, apierr.Network(method, req.Path, "запрос отменён", err)
			}
		}

		resp, cls := c.attempt(ctx, method, req, body, attempt)
		entry.WithFields(logrus.Fields{
			"attempt": attempt,
			"outcome": cls.verdict.String(),
		}).Debug("Попытка запроса завершена.")

		switch cls.verdict {
		case verdictSuccess:
			resp.Attempts = attempt + 1
			return resp, nil

		case verdictFatal:
			return nil, cls.err

		case verdictClockSkew:
			entry.WithError(cls.err).Warn("Биржа отклонила timestamp, синхронизируем время и повторяем запрос.")
			if err := c.clock.Sync(ctx, timesync.TriggerReactive); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		if ctx.Err() != nil {
			return nil, apierr.Network(method, req.Path, "запрос отменён", ctx.Err())
		}
		if attempt >= c.retry.MaxRetries {
			return nil, cls.err
		}

		wait := c.retry.Wait(attempt, cls.err.RetryAfter)
		c.metrics.ObserveRetry(cls.err.Kind.String())
		entry.WithError(cls.err).WithFields(logrus.Fields{
			"attempt": attempt,
			"wait":    wait.String(),
		}).Warn("Ошибка, повторяем запрос.")

		if err := c.sleeper.Sleep(ctx, wait); err != nil {
			return nil, apierr.Network(method, req.Path, "запрос отменён", err)
		}
		attempt++
	}
}

func (c *Client) attempt(ctx context.Context, method string, req Request, body string, attempt int) (*Response, classification) {
	urlStr := c.baseURL + req.Path
	if len(req.Query) > 0 {
		urlStr += "?" + req.Query.Encode()
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, urlStr, bodyReader)
	if err != nil {
		apiErr := apierr.HTTP(0, method, req.Path, "не удалось создать запрос", "")
		apiErr.Err = err
		return nil, classification{verdict: verdictFatal, err: apiErr}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("language", c.language)

	if req.Private {
		if err := c.signRequest(ctx, httpReq, req, body); err != nil {
			return nil, classification{verdict: verdictFatal, err: asAPIError(err, method, req.Path)}
		}
	}

	start := time.Now()
	o := outcome{
		method:  method,
		path:    req.Path,
		private: req.Private,
		attempt: attempt,
	}

	sentAt := c.now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		o.err = err
		cls := classify(o, c.skew)
		c.metrics.ObserveAttempt(req.Path, cls.verdict.String(), time.Since(start))
		return nil, cls
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		o.err = fmt.Errorf("Не удалось прочитать ответ: %w", err)
	} else {
		o.status = resp.StatusCode
		o.header = resp.Header
		o.body = data
	}

	cls := classify(o, c.skew)
	c.metrics.ObserveAttempt(req.Path, cls.verdict.String(), time.Since(start))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		SentAt:     sentAt,
	}, cls
}

// signRequest attaches api-key, nonce, timestamp and sign. Every attempt
// gets a fresh nonce and timestamp.
func (c *Client) signRequest(ctx context.Context, httpReq *http.Request, req Request, body string) error {
	timestamp, err := c.clock.Timestamp(ctx)
	if err != nil {
		return err
	}

	nonce := c.nonce()
	signature := Sign(nonce, timestamp, c.apiKey, CanonicalQuery(req.Query), body, c.secret)

	httpReq.Header.Set("api-key", c.apiKey)
	httpReq.Header.Set("nonce", nonce)
	httpReq.Header.Set("timestamp", timestamp)
	httpReq.Header.Set("sign", signature)
	return nil
}

func asAPIError(err error, method, path string) *apierr.Error {
	if apiErr, ok := apierr.As(err); ok {
		return apiErr
	}
	apiErr := apierr.HTTP(0, method, path, err.Error(), "")
	apiErr.Err = err
	return apiErr
}
