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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key",
		WithBaseURL(srv.URL),
		WithV4BaseURL(srv.URL+"/v4"),
	)
}

func TestGetCompanyProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profile/AAPL", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`[{"symbol":"AAPL","companyName":"Apple Inc.","price":230.1}]`))
	})

	p, err := c.GetCompanyProfile(context.Background(), "AAPL")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Apple Inc.", p.CompanyName)
	assert.Equal(t, 230.1, p.Price)
}

func TestGetCompanyProfileNoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	p, err := c.GetCompanyProfile(context.Background(), "NOPE")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "limit reached", http.StatusTooManyRequests)
	})

	_, err := c.GetRealTimeQuote(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGetFinancialStatements(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/income-statement/MSFT":
			assert.Equal(t, "annual", r.URL.Query().Get("period"))
			w.Write([]byte(`[{"date":"2025-06-30","symbol":"MSFT","revenue":200,"grossProfit":140,"operatingIncome":90,"netIncome":72}]`))
		case "/balance-sheet-statement/MSFT":
			w.Write([]byte(`[{"date":"2025-06-30","symbol":"MSFT","totalCurrentAssets":160,"totalCurrentLiabilities":80,"inventory":10,"cashAndCashEquivalents":40,"totalAssets":400,"totalLiabilities":160,"totalDebt":60,"totalStockholdersEquity":240}]`))
		case "/cash-flow-statement/MSFT":
			w.Write([]byte(`[{"date":"2025-06-30","freeCashFlow":65}]`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	stmts, err := c.GetFinancialStatements(context.Background(), "MSFT", "annual", 1)
	require.NoError(t, err)
	require.NotNil(t, stmts)
	require.Len(t, stmts.Income, 1)
	require.Len(t, stmts.BalanceSheets, 1)
	require.Len(t, stmts.CashFlow, 1)
	assert.Equal(t, 200.0, stmts.Income[0].Revenue)
}

func TestCalculateFinancialRatios(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/income-statement/MSFT":
			w.Write([]byte(`[{"date":"2025-06-30","revenue":200,"grossProfit":140,"operatingIncome":90,"netIncome":72}]`))
		case "/balance-sheet-statement/MSFT":
			w.Write([]byte(`[{"date":"2025-06-30","totalCurrentAssets":160,"totalCurrentLiabilities":80,"inventory":10,"cashAndCashEquivalents":40,"totalAssets":400,"totalLiabilities":160,"totalDebt":60,"totalStockholdersEquity":240}]`))
		default:
			w.Write([]byte(`[]`))
		}
	})

	r, err := c.CalculateFinancialRatios(context.Background(), "MSFT")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.InDelta(t, 2.0, r.CurrentRatio, 1e-9)
	assert.InDelta(t, 1.875, r.QuickRatio, 1e-9)
	assert.InDelta(t, 0.25, r.DebtToEquity, 1e-9)
	assert.InDelta(t, 0.36, r.NetProfitMargin, 1e-9)
	assert.InDelta(t, 0.3, r.ReturnOnEquity, 1e-9)
}

func TestGetEconomicIndicatorsV4Route(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/economic", r.URL.Path)
		assert.Equal(t, "GDP", r.URL.Query().Get("name"))
		w.Write([]byte(`[{"date":"2025-03-31","value":28500.0}]`))
	})

	rows, err := c.GetEconomicIndicators(context.Background(), "GDP")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 28500.0, rows[0]["value"])
}
