//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package marketdata

import (
	"context"
	"net/url"
	"strconv"
)

// PriceBar is one historical OHLCV bar.
type PriceBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// TechnicalIndicators is the locally computed indicator set for a symbol.
// All values derive from the most recent daily closes, newest first in the
// source series.
type TechnicalIndicators struct {
	Symbol     string  `json:"symbol"`
	AsOf       string  `json:"asOf"`
	Close      float64 `json:"close"`
	SMA20      float64 `json:"sma20"`
	SMA50      float64 `json:"sma50"`
	EMA12      float64 `json:"ema12"`
	EMA26      float64 `json:"ema26"`
	RSI14      float64 `json:"rsi14"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macdSignal"`
}

type historicalResponse struct {
	Symbol     string     `json:"symbol"`
	Historical []PriceBar `json:"historical"`
}

// GetHistoricalPrices fetches up to limit daily bars, newest first.
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol string, limit int) ([]PriceBar, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("timeseries", strconv.Itoa(limit))
	}
	var resp historicalResponse
	if err := c.get(ctx, c.baseURL, "/historical-price-full/"+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, err
	}
	if len(resp.Historical) == 0 {
		return nil, nil
	}
	return resp.Historical, nil
}

// GetTechnicalIndicators fetches recent history and computes moving
// averages, RSI and MACD for the symbol. Returns nil when the provider has
// too little history to compute anything.
func (c *Client) GetTechnicalIndicators(ctx context.Context, symbol string) (*TechnicalIndicators, error) {
	bars, err := c.GetHistoricalPrices(ctx, symbol, 200)
	if err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		return nil, nil
	}

	// Oldest-first closes for the window math.
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[len(bars)-1-i] = b.Close
	}

	macd, signal := macdSeries(closes)
	return &TechnicalIndicators{
		Symbol:     symbol,
		AsOf:       bars[0].Date,
		Close:      bars[0].Close,
		SMA20:      sma(closes, 20),
		SMA50:      sma(closes, 50),
		EMA12:      ema(closes, 12),
		EMA26:      ema(closes, 26),
		RSI14:      rsi(closes, 14),
		MACD:       macd,
		MACDSignal: signal,
	}, nil
}

// sma returns the simple moving average of the last period closes, or 0 when
// the series is shorter than the period.
func sma(closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// ema returns the exponential moving average over the whole series with the
// standard 2/(period+1) smoothing factor.
func ema(closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}
	k := 2.0 / float64(period+1)
	avg := sma(closes[:period], period)
	for _, c := range closes[period:] {
		avg = c*k + avg*(1-k)
	}
	return avg
}

// rsi returns Wilder's relative strength index over the last period moves.
func rsi(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 0
	}
	var gains, losses float64
	start := len(closes) - period - 1
	for i := start + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}
	if losses == 0 {
		return 100
	}
	rs := gains / losses
	return 100 - 100/(1+rs)
}

// macdSeries computes the MACD line and its 9-period signal line.
func macdSeries(closes []float64) (macd, signal float64) {
	if len(closes) < 35 {
		return 0, 0
	}
	// MACD history over the tail so the signal EMA has points to smooth.
	var line []float64
	for i := 35; i <= len(closes); i++ {
		window := closes[:i]
		line = append(line, ema(window, 12)-ema(window, 26))
	}
	macd = line[len(line)-1]
	signal = ema(line, 9)
	return macd, signal
}
