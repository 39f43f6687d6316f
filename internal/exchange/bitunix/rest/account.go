package rest

import (
	"bitunix/internal/exchange"
	"bitunix/internal/models"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const pathAccount = "/api/v1/futures/account"

var _ exchange.Client = (*Client)(nil)

func (c *Client) GetAccount(ctx context.Context, marginCoin string) (models.Account, error) {
	marginCoin = strings.ToUpper(strings.TrimSpace(marginCoin))
	if marginCoin == "" {
		return models.Account{}, fmt.Errorf("Не указана маржинальная монета")
	}

	params := url.Values{}
	params.Set("marginCoin", marginCoin)

	var resp apiResponse[json.RawMessage]
	if err := c.doJSON(ctx, Request{Method: http.MethodGet, Path: pathAccount, Query: params, Private: true}, &resp); err != nil {
		return models.Account{}, err
	}

	item, err := decodeAccountItem(resp.Data)
	if err != nil {
		return models.Account{}, err
	}
	if item.MarginCoin == "" {
		item.MarginCoin = marginCoin
	}

	return item.toModel()
}

// decodeAccountItem accepts data as a single object or as a list whose
// first element describes the requested coin.
func decodeAccountItem(data json.RawMessage) (accountItem, error) {
	var item accountItem

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return item, fmt.Errorf("Пустой ответ по счёту")
	}

	if trimmed[0] == '[' {
		var list []accountItem
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return item, fmt.Errorf("Не удалось разобрать данные счёта: %w", err)
		}
		if len(list) == 0 {
			return item, fmt.Errorf("Пустой ответ по счёту")
		}
		return list[0], nil
	}

	if err := json.Unmarshal(trimmed, &item); err != nil {
		return item, fmt.Errorf("Не удалось разобрать данные счёта: %w", err)
	}
	return item, nil
}

func (a accountItem) toModel() (models.Account, error) {
	acc := models.Account{
		MarginCoin:   a.MarginCoin,
		PositionMode: a.PositionMode,
	}

	var err error
	if acc.Available, err = parseDecimalOrZero(a.Available); err != nil {
		return acc, fmt.Errorf("Некорректное значение available=%q: %w", a.Available, err)
	}
	if acc.Frozen, err = parseDecimalOrZero(a.Frozen); err != nil {
		return acc, fmt.Errorf("Некорректное значение frozen=%q: %w", a.Frozen, err)
	}
	if acc.Margin, err = parseDecimalOrZero(a.Margin); err != nil {
		return acc, fmt.Errorf("Некорректное значение margin=%q: %w", a.Margin, err)
	}
	if acc.Transfer, err = parseDecimalOrZero(a.Transfer); err != nil {
		return acc, fmt.Errorf("Некорректное значение transfer=%q: %w", a.Transfer, err)
	}
	if acc.Bonus, err = parseDecimalOrZero(a.Bonus); err != nil {
		return acc, fmt.Errorf("Некорректное значение bonus=%q: %w", a.Bonus, err)
	}
	if acc.CrossUnrealized, err = parseDecimalOrZero(a.CrossUnrealizedPNL); err != nil {
		return acc, fmt.Errorf("Некорректное значение crossUnrealizedPNL=%q: %w", a.CrossUnrealizedPNL, err)
	}
	if acc.IsolationUnrealized, err = parseDecimalOrZero(a.IsolationUnrealizedPNL); err != nil {
		return acc, fmt.Errorf("Некорректное значение isolationUnrealizedPNL=%q: %w", a.IsolationUnrealizedPNL, err)
	}
	return acc, nil
}
