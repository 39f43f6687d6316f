package rest

import (
	"bitunix/internal/models"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	pathTickers      = "/api/v1/futures/market/tickers"
	pathTradingPairs = "/api/v1/futures/market/trading_pairs"
)

func (c *Client) GetTickers(ctx context.Context, symbols ...string) ([]models.Ticker, error) {
	var resp apiResponse[[]tickerItem]
	if err := c.doJSON(ctx, Request{Method: http.MethodGet, Path: pathTickers, Query: symbolsQuery(symbols)}, &resp); err != nil {
		return nil, err
	}

	now := c.now()
	tickers := make([]models.Ticker, 0, len(resp.Data))
	for _, item := range resp.Data {
		t := models.Ticker{Symbol: item.Symbol, Timestamp: now}

		fields := []struct {
			name string
			raw  string
			dst  *decimal.Decimal
		}{
			{"lastPrice", item.LastPrice, &t.LastPrice},
			{"markPrice", item.MarkPrice, &t.MarkPrice},
			{"open", item.Open, &t.Open},
			{"high", item.High, &t.High},
			{"low", item.Low, &t.Low},
			{"baseVol", item.BaseVol, &t.BaseVolume},
			{"quoteVol", item.QuoteVol, &t.QuoteVolume},
		}
		for _, f := range fields {
			v, err := parseDecimalOrZero(f.raw)
			if err != nil {
				return nil, fmt.Errorf("Некорректное значение %s=%q для %s: %w", f.name, f.raw, item.Symbol, err)
			}
			*f.dst = v
		}
		tickers = append(tickers, t)
	}
	return tickers, nil
}

func (c *Client) GetTradingPairs(ctx context.Context, symbols ...string) ([]models.TradingPair, error) {
	var resp apiResponse[[]tradingPairItem]
	if err := c.doJSON(ctx, Request{Method: http.MethodGet, Path: pathTradingPairs, Query: symbolsQuery(symbols)}, &resp); err != nil {
		return nil, err
	}

	pairs := make([]models.TradingPair, 0, len(resp.Data))
	for _, item := range resp.Data {
		minQty, err := parseDecimalOrZero(item.MinTradeVolume)
		if err != nil {
			return nil, fmt.Errorf("Некорректное значение minTradeVolume=%q: %w", item.MinTradeVolume, err)
		}
		maxLimit, err := parseDecimalOrZero(item.MaxLimitOrderVolume)
		if err != nil {
			return nil, fmt.Errorf("Некорректное значение maxLimitOrderVolume=%q: %w", item.MaxLimitOrderVolume, err)
		}
		maxMarket, err := parseDecimalOrZero(item.MaxMarketOrderVolume)
		if err != nil {
			return nil, fmt.Errorf("Некорректное значение maxMarketOrderVolume=%q: %w", item.MaxMarketOrderVolume, err)
		}

		pairs = append(pairs, models.TradingPair{
			Symbol:         item.Symbol,
			Base:           item.Base,
			Quote:          item.Quote,
			BasePrecision:  item.BasePrecision,
			QuotePrecision: item.QuotePrecision,
			MinQty:         minQty,
			MaxLimitQty:    maxLimit,
			MaxMarketQty:   maxMarket,
			MinLeverage:    item.MinLeverage,
			MaxLeverage:    item.MaxLeverage,
			Status:         item.SymbolStatus,
		})
	}
	return pairs, nil
}

func (c *Client) doJSON(ctx context.Context, req Request, out any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func symbolsQuery(symbols []string) url.Values {
	if len(symbols) == 0 {
		return nil
	}
	params := url.Values{}
	params.Set("symbols", strings.Join(symbols, ","))
	return params
}
