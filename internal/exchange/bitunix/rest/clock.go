package rest

import (
	"bitunix/internal/exchange/timesync"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ServerTime returns the exchange clock in unix milliseconds, read from
// the public time endpoint.
func (c *Client) ServerTime(ctx context.Context) (int64, error) {
	sample, err := c.serverTimeFromEndpoint(ctx)
	if err != nil {
		return 0, err
	}
	return sample.ServerMs, nil
}

// SyncTime forces a clock offset refresh.
func (c *Client) SyncTime(ctx context.Context) error {
	return c.clock.Sync(ctx, timesync.TriggerManual)
}

func (c *Client) ClockOffset() timesync.Offset {
	return c.clock.Offset()
}

// serverTimeFromEndpoint reads the time endpoint through the executor. The
// sample is stamped with the send time of the attempt that answered, so
// failed attempts and backoff do not leak into the offset.
func (c *Client) serverTimeFromEndpoint(ctx context.Context) (timesync.Sample, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: c.timePath})
	if err != nil {
		return timesync.Sample{}, err
	}

	ms, ok := timesync.ServerTimeFromPayload(resp.Body)
	if !ok {
		return timesync.Sample{}, fmt.Errorf("Неизвестный формат ответа времени: %s", truncateForLog(resp.Body))
	}
	return timesync.Sample{ServerMs: ms, SentAt: resp.SentAt}, nil
}

// serverTimeFromDateHeader issues a single plain GET against the time
// endpoint and reads the Date header, whatever the status code.
func (c *Client) serverTimeFromDateHeader(ctx context.Context) (timesync.Sample, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, c.baseURL+c.timePath, nil)
	if err != nil {
		return timesync.Sample{}, fmt.Errorf("Не удалось создать запрос: %w", err)
	}
	req.Header.Set("language", c.language)

	sentAt := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return timesync.Sample{}, fmt.Errorf("Ошибка запроса: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	date := resp.Header.Get("Date")
	if date == "" {
		return timesync.Sample{}, errors.New("в ответе нет заголовка Date")
	}
	ms, err := timesync.ServerTimeFromDate(date)
	if err != nil {
		return timesync.Sample{}, err
	}
	return timesync.Sample{ServerMs: ms, SentAt: sentAt}, nil
}

func truncateForLog(b []byte) string {
	const limit = 120
	if len(b) <= limit {
		return string(b)
	}
	return string(b[:limit]) + "..."
}
