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
)

// GetEconomicCalendar fetches scheduled economic events for a date range.
// Dates are YYYY-MM-DD; either may be empty for the provider default window.
func (c *Client) GetEconomicCalendar(ctx context.Context, from, to string) ([]map[string]any, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return c.getList(ctx, c.baseURL, "/economic_calendar", q)
}

// GetEconomicIndicators fetches a named indicator series, e.g. "GDP",
// "realGDP", "CPI", "unemploymentRate".
func (c *Client) GetEconomicIndicators(ctx context.Context, name string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("name", name)
	return c.getList(ctx, c.v4BaseURL, "/economic", q)
}

// GetTreasuryRates fetches treasury yields for a date range.
func (c *Client) GetTreasuryRates(ctx context.Context, from, to string) ([]map[string]any, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	return c.getList(ctx, c.v4BaseURL, "/treasury", q)
}

// GetMarketRiskPremium fetches the per-country market risk premium table.
func (c *Client) GetMarketRiskPremium(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, c.v4BaseURL, "/market_risk_premium", nil)
}
