package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderSide string
type OrderType string
type TradeSide string
type TimeInForce string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"

	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"

	TradeSideOpen  TradeSide = "OPEN"
	TradeSideClose TradeSide = "CLOSE"

	TimeInForceGTC      TimeInForce = "GTC"
	TimeInForceIOC      TimeInForce = "IOC"
	TimeInForceFOK      TimeInForce = "FOK"
	TimeInForcePostOnly TimeInForce = "POST_ONLY"
)

type Order struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"client_id"`
	Symbol      string          `json:"symbol"`
	Side        OrderSide       `json:"side"`
	TradeSide   TradeSide       `json:"trade_side"`
	Type        OrderType       `json:"type"`
	Price       decimal.Decimal `json:"price"`
	Qty         decimal.Decimal `json:"qty"`
	PriceStep   decimal.Decimal `json:"price_step"`
	QtyStep     decimal.Decimal `json:"qty_step"`
	TimeInForce TimeInForce     `json:"time_in_force"`
	ReduceOnly  bool            `json:"reduce_only"`
}

type Ticker struct {
	Symbol      string          `json:"symbol"`
	LastPrice   decimal.Decimal `json:"last_price"`
	MarkPrice   decimal.Decimal `json:"mark_price"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	BaseVolume  decimal.Decimal `json:"base_volume"`
	QuoteVolume decimal.Decimal `json:"quote_volume"`
	Timestamp   time.Time       `json:"timestamp"`
}

type TradingPair struct {
	Symbol         string          `json:"symbol"`
	Base           string          `json:"base"`
	Quote          string          `json:"quote"`
	BasePrecision  int32           `json:"base_precision"`
	QuotePrecision int32           `json:"quote_precision"`
	MinQty         decimal.Decimal `json:"min_qty"`
	MaxLimitQty    decimal.Decimal `json:"max_limit_qty"`
	MaxMarketQty   decimal.Decimal `json:"max_market_qty"`
	MinLeverage    int             `json:"min_leverage"`
	MaxLeverage    int             `json:"max_leverage"`
	Status         string          `json:"status"`
}

// QtyStep is the smallest quantity increment implied by BasePrecision.
func (p TradingPair) QtyStep() decimal.Decimal {
	return decimal.New(1, -p.BasePrecision)
}

// PriceStep is the smallest price increment implied by QuotePrecision.
func (p TradingPair) PriceStep() decimal.Decimal {
	return decimal.New(1, -p.QuotePrecision)
}

type Account struct {
	MarginCoin          string          `json:"margin_coin"`
	Available           decimal.Decimal `json:"available"`
	Frozen              decimal.Decimal `json:"frozen"`
	Margin              decimal.Decimal `json:"margin"`
	Transfer            decimal.Decimal `json:"transfer"`
	Bonus               decimal.Decimal `json:"bonus"`
	CrossUnrealized     decimal.Decimal `json:"cross_unrealized_pnl"`
	IsolationUnrealized decimal.Decimal `json:"isolation_unrealized_pnl"`
	PositionMode        string          `json:"position_mode"`
}
