package rest

import (
	"bitunix/internal/exchange/retry"
	"bitunix/internal/exchange/timesync"
	"bitunix/internal/logger"
	"bitunix/internal/metrics"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "https://fapi.bitunix.com"
	DefaultLanguage = "en-US"
	DefaultTimePath = "/api/v1/futures/market/time"
	DefaultTimeout  = 10 * time.Second
)

// HTTPDoer sends a single HTTP request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL  string
	apiKey   string
	secret   string
	language string
	timePath string
	timeout  time.Duration
	syncTTL  time.Duration

	httpClient HTTPDoer
	retry      retry.Policy
	sleeper    retry.Sleeper
	skew       SkewPredicate
	nonce      func() string
	now        func() time.Time
	limiter    *rate.Limiter
	metrics    *metrics.Collector
	log        *logger.Logger

	clock *timesync.Synchronizer
}

// Request describes one logical call. Query and Body are canonicalized
// once and reused by every attempt.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Body    any
	Private bool
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Attempts counts every attempt of the call, including a resync retry.
	Attempts int
	// SentAt is the local time the answering attempt went out.
	SentAt time.Time
}

func (r *Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("Не удалось разобрать ответ: %w", err)
	}
	return nil
}

type apiResponse[T any] struct {
	Code json.RawMessage `json:"code"`
	Msg  string          `json:"msg"`
	Data T               `json:"data"`
}

type tickerItem struct {
	Symbol    string `json:"symbol"`
	MarkPrice string `json:"markPrice"`
	LastPrice string `json:"lastPrice"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	BaseVol   string `json:"baseVol"`
	QuoteVol  string `json:"quoteVol"`
}

type tradingPairItem struct {
	Symbol               string `json:"symbol"`
	Base                 string `json:"base"`
	Quote                string `json:"quote"`
	BasePrecision        int32  `json:"basePrecision"`
	QuotePrecision       int32  `json:"quotePrecision"`
	MinTradeVolume       string `json:"minTradeVolume"`
	MaxLimitOrderVolume  string `json:"maxLimitOrderVolume"`
	MaxMarketOrderVolume string `json:"maxMarketOrderVolume"`
	MinLeverage          int    `json:"minLeverage"`
	MaxLeverage          int    `json:"maxLeverage"`
	SymbolStatus         string `json:"symbolStatus"`
}

type accountItem struct {
	MarginCoin             string `json:"marginCoin"`
	Available              string `json:"available"`
	Frozen                 string `json:"frozen"`
	Margin                 string `json:"margin"`
	Transfer               string `json:"transfer"`
	PositionMode           string `json:"positionMode"`
	CrossUnrealizedPNL     string `json:"crossUnrealizedPNL"`
	IsolationUnrealizedPNL string `json:"isolationUnrealizedPNL"`
	Bonus                  string `json:"bonus"`
}
