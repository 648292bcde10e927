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

// CompanyProfile is the provider's company profile record.
type CompanyProfile struct {
	Symbol      string  `json:"symbol"`
	CompanyName string  `json:"companyName"`
	Exchange    string  `json:"exchange"`
	Industry    string  `json:"industry"`
	Sector      string  `json:"sector"`
	CEO         string  `json:"ceo"`
	Website     string  `json:"website"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	MarketCap   float64 `json:"mktCap"`
	Beta        float64 `json:"beta"`
	IPODate     string  `json:"ipoDate"`
}

// Quote is a real-time stock quote.
type Quote struct {
	Symbol            string  `json:"symbol"`
	Name              string  `json:"name"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	ChangesPercentage float64 `json:"changesPercentage"`
	DayLow            float64 `json:"dayLow"`
	DayHigh           float64 `json:"dayHigh"`
	YearLow           float64 `json:"yearLow"`
	YearHigh          float64 `json:"yearHigh"`
	MarketCap         float64 `json:"marketCap"`
	Volume            int64   `json:"volume"`
	AvgVolume         int64   `json:"avgVolume"`
	Open              float64 `json:"open"`
	PreviousClose     float64 `json:"previousClose"`
	EPS               float64 `json:"eps"`
	PE                float64 `json:"pe"`
	Timestamp         int64   `json:"timestamp"`
}

// GetCompanyProfile fetches the company profile for a symbol.
func (c *Client) GetCompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error) {
	var rows []CompanyProfile
	if err := c.get(ctx, c.baseURL, "/profile/"+url.PathEscape(symbol), nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetRealTimeQuote fetches the current quote for a symbol.
func (c *Client) GetRealTimeQuote(ctx context.Context, symbol string) (*Quote, error) {
	var rows []Quote
	if err := c.get(ctx, c.baseURL, "/quote/"+url.PathEscape(symbol), nil, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// GetInsiderTrades fetches insider trading records for a symbol, paginated.
func (c *Client) GetInsiderTrades(ctx context.Context, symbol string, page int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("page", strconv.Itoa(page))
	return c.getList(ctx, c.v4BaseURL, "/insider-trading", q)
}

// GetAnalystEstimates fetches analyst estimates. Period is "annual" or
// "quarter"; limit bounds the number of records, 0 for the provider default.
func (c *Client) GetAnalystEstimates(ctx context.Context, symbol, period string, limit int) ([]map[string]any, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.getList(ctx, c.baseURL, "/analyst-estimates/"+url.PathEscape(symbol), q)
}

// GetAnalystRecommendations fetches analyst buy/hold/sell recommendations.
func (c *Client) GetAnalystRecommendations(ctx context.Context, symbol string) ([]map[string]any, error) {
	return c.getList(ctx, c.baseURL, "/analyst-stock-recommendations/"+url.PathEscape(symbol), nil)
}

// GetUpgradesDowngrades fetches recent rating upgrades and downgrades.
func (c *Client) GetUpgradesDowngrades(ctx context.Context, symbol string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	return c.getList(ctx, c.v4BaseURL, "/upgrades-downgrades", q)
}
