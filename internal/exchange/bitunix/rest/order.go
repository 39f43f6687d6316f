package rest

import (
	"bitunix/internal/models"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
)

const pathPlaceOrder = "/api/v1/futures/trade/place_order"

// PlaceOrder submits a futures order. Qty and Price are floored to
// QtyStep and PriceStep when those are set. An empty ClientID is filled
// with a fresh nonce so that the order can be looked up later.
func (c *Client) PlaceOrder(ctx context.Context, order models.Order) (models.Order, error) {
	if err := validateOrder(order); err != nil {
		return models.Order{}, err
	}
	if order.ClientID == "" {
		order.ClientID = c.nonce()
	}
	if order.TradeSide == "" {
		order.TradeSide = models.TradeSideOpen
	}

	body := Body{
		{Key: "symbol", Value: strings.ToUpper(order.Symbol)},
		{Key: "qty", Value: formatWithStep(order.Qty, order.QtyStep)},
	}
	if order.Type == models.OrderTypeLimit {
		body = append(body, Field{Key: "price", Value: formatWithStep(order.Price, order.PriceStep)})
	}
	body = append(body,
		Field{Key: "side", Value: order.Side},
		Field{Key: "tradeSide", Value: order.TradeSide},
		Field{Key: "orderType", Value: order.Type},
	)
	if order.Type == models.OrderTypeLimit && order.TimeInForce != "" {
		body = append(body, Field{Key: "effect", Value: order.TimeInForce})
	}
	body = append(body, Field{Key: "clientId", Value: order.ClientID})
	if order.ReduceOnly {
		body = append(body, Field{Key: "reduceOnly", Value: true})
	}

	var resp apiResponse[struct {
		OrderID  string `json:"orderId"`
		ClientID string `json:"clientId"`
	}]
	if err := c.doJSON(ctx, Request{Method: http.MethodPost, Path: pathPlaceOrder, Body: body, Private: true}, &resp); err != nil {
		return models.Order{}, err
	}

	order.ID = resp.Data.OrderID
	if resp.Data.ClientID != "" {
		order.ClientID = resp.Data.ClientID
	}

	c.log.WithSymbol(order.Symbol).WithFields(logrus.Fields{
		"order_id":  order.ID,
		"client_id": order.ClientID,
		"side":      order.Side,
		"type":      order.Type,
	}).Info("Ордер размещён.")
	return order, nil
}

func validateOrder(order models.Order) error {
	if strings.TrimSpace(order.Symbol) == "" {
		return errors.New("Не указан символ ордера")
	}
	switch order.Side {
	case models.OrderSideBuy, models.OrderSideSell:
	default:
		return fmt.Errorf("Неизвестная сторона ордера: %q", order.Side)
	}
	switch order.Type {
	case models.OrderTypeMarket:
	case models.OrderTypeLimit:
		if !order.Price.IsPositive() {
			return errors.New("Для лимитного ордера нужна положительная цена")
		}
	default:
		return fmt.Errorf("Неизвестный тип ордера: %q", order.Type)
	}
	if !order.Qty.IsPositive() {
		return errors.New("Количество должно быть положительным")
	}
	return nil
}
