package main

import (
	"bitunix/internal/config"
	"bitunix/internal/exchange/bitunix/rest"
	"bitunix/internal/logger"
	"bitunix/internal/metrics"
	"bitunix/internal/models"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const usage = `Использование: bitunix [-metrics] <команда> [аргументы]

Команды:
  time                     серверное время и смещение часов
  tickers [SYMBOL...]      тикеры фьючерсов
  pairs [SYMBOL...]        торговые пары
  account [COIN]           баланс счёта (по умолчанию USDT)
  order -symbol S -side BUY|SELL -qty Q [-type LIMIT -price P] [-trade-side OPEN|CLOSE] [-tif GTC] [-reduce-only]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	global := flag.NewFlagSet("bitunix", flag.ContinueOnError)
	dumpMetrics := global.Bool("metrics", false, "вывести метрики клиента в stderr")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("не указана команда")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})

	log.Debug("Конфигурация загружена.")

	reg := prometheus.NewRegistry()
	client := rest.New(cfg.Exchange.BaseUrl, cfg.Exchange.ApiKey, cfg.Exchange.Secret, log,
		rest.WithLanguage(cfg.Exchange.Language),
		rest.WithTimePath(cfg.Exchange.TimePath),
		rest.WithTimeout(cfg.Exchange.Timeout),
		rest.WithTimeSyncTTL(cfg.Exchange.TimeSyncTTL),
		rest.WithRetryPolicy(cfg.Retry),
		rest.WithRateLimit(cfg.Exchange.RateLimit, cfg.Exchange.RateBurst),
		rest.WithMetrics(metrics.New(reg)),
	)

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	log.WithComponent("cli").WithField("command", cmd).Debug("Запуск команды.")

	result, err := dispatch(ctx, client, cfg, cmd, cmdArgs)
	if *dumpMetrics {
		writeMetrics(reg, os.Stderr)
	}
	if err != nil {
		return err
	}
	log.Info("Команда " + cmd + " выполнена.")

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func dispatch(ctx context.Context, client *rest.Client, cfg *config.Config, cmd string, args []string) (any, error) {
	switch cmd {
	case "time":
		ms, err := client.ServerTime(ctx)
		if err != nil {
			return nil, err
		}
		if err := client.SyncTime(ctx); err != nil {
			return nil, err
		}
		return struct {
			ServerTime int64 `json:"server_time"`
			OffsetMs   int64 `json:"offset_ms"`
		}{ms, client.ClockOffset().OffsetMs}, nil

	case "tickers":
		return client.GetTickers(ctx, upper(args)...)

	case "pairs":
		return client.GetTradingPairs(ctx, upper(args)...)

	case "account":
		if !cfg.HasCredentials() {
			return nil, errors.New("не заданы api_key и secret")
		}
		coin := "USDT"
		if len(args) > 0 {
			coin = args[0]
		}
		return client.GetAccount(ctx, coin)

	case "order":
		if !cfg.HasCredentials() {
			return nil, errors.New("не заданы api_key и secret")
		}
		order, err := parseOrder(args)
		if err != nil {
			return nil, err
		}
		if err := applySteps(ctx, client, &order); err != nil {
			return nil, err
		}
		return client.PlaceOrder(ctx, order)

	default:
		return nil, fmt.Errorf("неизвестная команда %q\n\n%s", cmd, usage)
	}
}

func parseOrder(args []string) (models.Order, error) {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	symbol := fs.String("symbol", "", "символ, например BTCUSDT")
	side := fs.String("side", "", "BUY или SELL")
	orderType := fs.String("type", string(models.OrderTypeMarket), "MARKET или LIMIT")
	tradeSide := fs.String("trade-side", string(models.TradeSideOpen), "OPEN или CLOSE")
	qty := fs.String("qty", "", "количество")
	price := fs.String("price", "", "цена для LIMIT")
	tif := fs.String("tif", string(models.TimeInForceGTC), "GTC, IOC, FOK или POST_ONLY")
	clientID := fs.String("client-id", "", "клиентский идентификатор")
	reduceOnly := fs.Bool("reduce-only", false, "только сокращение позиции")
	if err := fs.Parse(args); err != nil {
		return models.Order{}, err
	}

	order := models.Order{
		ClientID:    *clientID,
		Symbol:      strings.ToUpper(*symbol),
		Side:        models.OrderSide(strings.ToUpper(*side)),
		TradeSide:   models.TradeSide(strings.ToUpper(*tradeSide)),
		Type:        models.OrderType(strings.ToUpper(*orderType)),
		TimeInForce: models.TimeInForce(strings.ToUpper(*tif)),
		ReduceOnly:  *reduceOnly,
	}

	var err error
	if order.Qty, err = decimal.NewFromString(*qty); err != nil {
		return models.Order{}, fmt.Errorf("некорректное количество %q: %w", *qty, err)
	}
	if *price != "" {
		if order.Price, err = decimal.NewFromString(*price); err != nil {
			return models.Order{}, fmt.Errorf("некорректная цена %q: %w", *price, err)
		}
	}
	return order, nil
}

// applySteps looks up the pair precision so that qty and price are
// rounded the way the exchange expects.
func applySteps(ctx context.Context, client *rest.Client, order *models.Order) error {
	pairs, err := client.GetTradingPairs(ctx, order.Symbol)
	if err != nil {
		return err
	}
	for _, p := range pairs {
		if p.Symbol == order.Symbol {
			order.QtyStep = p.QtyStep()
			order.PriceStep = p.PriceStep()
			return nil
		}
	}
	return fmt.Errorf("торговая пара %s не найдена", order.Symbol)
}

func upper(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToUpper(s))
	}
	return out
}

func writeMetrics(reg *prometheus.Registry, w io.Writer) {
	families, err := reg.Gather()
	if err != nil {
		fmt.Fprintln(w, "метрики недоступны:", err)
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}

			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				value = float64(m.GetHistogram().GetSampleCount())
			}
			fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
}
