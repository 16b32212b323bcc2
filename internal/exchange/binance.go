// Package exchange hosts the Binance futures connector and the pluggable
// tick feed implementations.
package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"trendbot-go/internal/market"
)

// quantityPrecision is the decimal precision used when formatting order
// quantities for the futures REST API.
const quantityPrecision = 6

// Client wraps the Binance USDⓈ-M futures REST API: historical candles for
// warm-up, market orders for mirroring, account snapshots, and mark prices.
type Client struct {
	futures *futures.Client
	log     zerolog.Logger
}

// NewClient builds a futures client. Empty credentials are fine for the
// public endpoints (klines, mark price).
func NewClient(apiKey, apiSecret string, testnet bool, log zerolog.Logger) *Client {
	futures.UseTestnet = testnet
	c := futures.NewClient(apiKey, apiSecret)
	return &Client{futures: c, log: log}
}

// HistoricalCandles fetches the most recent closed klines for a symbol.
func (c *Client) HistoricalCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	klines, err := c.futures.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
	}

	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		candle, err := parseKline(k)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("skipping malformed kline")
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseKline(k *futures.Kline) (market.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("parse low: %w", err)
	}
	closePx, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return market.Candle{}, fmt.Errorf("parse volume: %w", err)
	}
	return market.Candle{
		OpenTime: time.UnixMilli(k.OpenTime),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePx,
		Volume:   volume,
	}, nil
}

// PlaceMarketOrder submits a market order. Closes pass the opposite side
// with reduceOnly set so they can never flip a live position.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side market.Side, reduceOnly bool, qty float64) (string, error) {
	if qty <= 0 {
		return "", fmt.Errorf("non-positive quantity %f for %s", qty, symbol)
	}
	orderSide := futures.SideTypeBuy
	if side == market.Short {
		orderSide = futures.SideTypeSell
	}
	quantity := decimal.NewFromFloat(qty).Round(quantityPrecision)
	if quantity.IsZero() {
		return "", fmt.Errorf("quantity %f rounds to zero for %s", qty, symbol)
	}

	svc := c.futures.NewCreateOrderService().
		Symbol(symbol).
		Side(orderSide).
		Type(futures.OrderTypeMarket).
		Quantity(quantity.String())
	if reduceOnly {
		svc = svc.ReduceOnly(true)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return "", fmt.Errorf("place %s %s: %w", orderSide, symbol, err)
	}
	return strconv.FormatInt(resp.OrderID, 10), nil
}

// AccountSnapshot returns the wallet balance and total unrealized PnL of
// the futures account.
func (c *Client) AccountSnapshot(ctx context.Context) (float64, float64, error) {
	acct, err := c.futures.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch account: %w", err)
	}
	wallet, err := strconv.ParseFloat(acct.TotalWalletBalance, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse wallet balance: %w", err)
	}
	unrealized, err := strconv.ParseFloat(acct.TotalUnrealizedProfit, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse unrealized pnl: %w", err)
	}
	return wallet, unrealized, nil
}

// MarkPrice returns the current futures mark price for a symbol. Used by
// the polling feed.
func (c *Client) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	rates, err := c.futures.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch mark price for %s: %w", symbol, err)
	}
	if len(rates) == 0 {
		return 0, fmt.Errorf("no mark price returned for %s", symbol)
	}
	px, err := strconv.ParseFloat(rates[0].MarkPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("parse mark price for %s: %w", symbol, err)
	}
	return px, nil
}
