package exchange

import (
	"bitunix/internal/models"
	"context"
)

// Client is the surface trading code depends on. The Bitunix REST
// adapter implements it on top of its signing and retry engine.
type Client interface {
	ServerTime(ctx context.Context) (int64, error)
	GetTickers(ctx context.Context, symbols ...string) ([]models.Ticker, error)
	GetTradingPairs(ctx context.Context, symbols ...string) ([]models.TradingPair, error)
	GetAccount(ctx context.Context, marginCoin string) (models.Account, error)
	PlaceOrder(ctx context.Context, order models.Order) (models.Order, error)
}
