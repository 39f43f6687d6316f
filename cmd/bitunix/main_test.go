package main

import (
	"bitunix/internal/config"
	"bitunix/internal/exchange/bitunix/rest"
	"bitunix/internal/logger"
	"bitunix/internal/metrics"
	"bitunix/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const localMs int64 = 1_700_000_000_000

var credentials = &config.Config{Exchange: config.ExchangeConfig{ApiKey: "key", Secret: "secret"}}

type exchangeStub struct {
	orderHits atomic.Int32
	orderBody []byte
	pairs     string
}

func (s *exchangeStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case rest.DefaultTimePath:
		_, _ = io.WriteString(w, `{"code":0,"data":{"serverTime":1700000001000}}`)
	case "/api/v1/futures/market/trading_pairs":
		_, _ = io.WriteString(w, `{"code":0,"data":`+s.pairs+`}`)
	case "/api/v1/futures/trade/place_order":
		s.orderHits.Add(1)
		s.orderBody, _ = io.ReadAll(r.Body)
		_, _ = io.WriteString(w, `{"code":0,"data":{"orderId":"42","clientId":"cli-1"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newStubClient(t *testing.T, stub *exchangeStub) *rest.Client {
	t.Helper()

	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	return rest.New(srv.URL, "key", "secret", logger.Nop(),
		rest.WithHTTPClient(srv.Client()),
		rest.WithNow(func() time.Time { return time.UnixMilli(localMs) }),
	)
}

func TestParseOrder(t *testing.T) {
	order, err := parseOrder([]string{
		"-symbol", "btcusdt", "-side", "buy", "-type", "limit",
		"-qty", "0.01", "-price", "65000.5", "-reduce-only",
	})
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", order.Symbol)
	assert.Equal(t, models.OrderSideBuy, order.Side)
	assert.Equal(t, models.OrderTypeLimit, order.Type)
	assert.Equal(t, models.TradeSideOpen, order.TradeSide)
	assert.Equal(t, models.TimeInForceGTC, order.TimeInForce)
	assert.Equal(t, "0.01", order.Qty.String())
	assert.Equal(t, "65000.5", order.Price.String())
	assert.True(t, order.ReduceOnly)
}

func TestParseOrderRejectsBadQty(t *testing.T) {
	_, err := parseOrder([]string{"-symbol", "BTCUSDT", "-side", "BUY", "-qty", "lots"})
	require.Error(t, err)
}

func TestUpper(t *testing.T) {
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, upper([]string{"btcusdt", "EthUsdt"}))
	assert.Empty(t, upper(nil))
}

func TestDispatchTime(t *testing.T) {
	client := newStubClient(t, &exchangeStub{})

	result, err := dispatch(context.Background(), client, &config.Config{}, "time", nil)
	require.NoError(t, err)

	out, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, `{"server_time":1700000001000,"offset_ms":1000}`, string(out))
}

func TestDispatchOrderAppliesPairSteps(t *testing.T) {
	stub := &exchangeStub{pairs: `[{"symbol":"BTCUSDT","basePrecision":3,"quotePrecision":1}]`}
	client := newStubClient(t, stub)

	result, err := dispatch(context.Background(), client, credentials, "order", []string{
		"-symbol", "btcusdt", "-side", "buy", "-type", "limit",
		"-qty", "0.0129", "-price", "65000.55", "-client-id", "cli-1",
	})
	require.NoError(t, err)

	order, ok := result.(models.Order)
	require.True(t, ok)
	assert.Equal(t, "42", order.ID)
	assert.Equal(t, "0.001", order.QtyStep.String())
	assert.Equal(t, "0.1", order.PriceStep.String())
	assert.Equal(t,
		`{"symbol":"BTCUSDT","qty":"0.012","price":"65000.5","side":"BUY","tradeSide":"OPEN","orderType":"LIMIT","effect":"GTC","clientId":"cli-1"}`,
		string(stub.orderBody))
}

func TestDispatchOrderUnknownPair(t *testing.T) {
	stub := &exchangeStub{pairs: `[]`}
	client := newStubClient(t, stub)

	_, err := dispatch(context.Background(), client, credentials, "order", []string{
		"-symbol", "NOPEUSDT", "-side", "BUY", "-qty", "1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPEUSDT")
	assert.EqualValues(t, 0, stub.orderHits.Load())
}

func TestDispatchPrivateCommandsNeedCredentials(t *testing.T) {
	stub := &exchangeStub{}
	client := newStubClient(t, stub)

	for _, cmd := range []string{"account", "order"} {
		_, err := dispatch(context.Background(), client, &config.Config{}, cmd, nil)
		assert.Error(t, err, cmd)
	}
	assert.EqualValues(t, 0, stub.orderHits.Load())
}

func TestDispatchUnknownCommand(t *testing.T) {
	client := newStubClient(t, &exchangeStub{})

	_, err := dispatch(context.Background(), client, credentials, "withdraw", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "withdraw")
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.ObserveRetry("http")

	var buf bytes.Buffer
	writeMetrics(reg, &buf)

	assert.Contains(t, buf.String(), "bitunix_client_retries_total{kind=http} 1")
}
