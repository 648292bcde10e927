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

	"golang.org/x/sync/errgroup"
)

// IncomeStatement carries the income-statement fields ratio computation needs.
// The raw provider record has many more; unrecognized fields are dropped.
type IncomeStatement struct {
	Date             string  `json:"date"`
	Symbol           string  `json:"symbol"`
	Period           string  `json:"period"`
	Revenue          float64 `json:"revenue"`
	GrossProfit      float64 `json:"grossProfit"`
	OperatingIncome  float64 `json:"operatingIncome"`
	NetIncome        float64 `json:"netIncome"`
	InterestExpense  float64 `json:"interestExpense"`
	IncomeTaxExpense float64 `json:"incomeTaxExpense"`
	EPS              float64 `json:"eps"`
}

// BalanceSheet carries the balance-sheet fields ratio computation needs.
type BalanceSheet struct {
	Date                    string  `json:"date"`
	Symbol                  string  `json:"symbol"`
	Period                  string  `json:"period"`
	TotalCurrentAssets      float64 `json:"totalCurrentAssets"`
	TotalCurrentLiabilities float64 `json:"totalCurrentLiabilities"`
	Inventory               float64 `json:"inventory"`
	CashAndCashEquivalents  float64 `json:"cashAndCashEquivalents"`
	TotalAssets             float64 `json:"totalAssets"`
	TotalLiabilities        float64 `json:"totalLiabilities"`
	TotalDebt               float64 `json:"totalDebt"`
	TotalStockholdersEquity float64 `json:"totalStockholdersEquity"`
}

// FinancialStatements bundles the three statements for one symbol.
type FinancialStatements struct {
	Symbol        string            `json:"symbol"`
	Income        []IncomeStatement `json:"incomeStatements,omitempty"`
	BalanceSheets []BalanceSheet    `json:"balanceSheets,omitempty"`
	CashFlow      []map[string]any  `json:"cashFlowStatements,omitempty"`
}

// FinancialRatios is the locally computed ratio set for a symbol's most
// recent statements.
type FinancialRatios struct {
	Symbol           string  `json:"symbol"`
	Date             string  `json:"date"`
	CurrentRatio     float64 `json:"currentRatio"`
	QuickRatio       float64 `json:"quickRatio"`
	CashRatio        float64 `json:"cashRatio"`
	DebtToEquity     float64 `json:"debtToEquity"`
	DebtRatio        float64 `json:"debtRatio"`
	GrossMargin      float64 `json:"grossMargin"`
	OperatingMargin  float64 `json:"operatingMargin"`
	NetProfitMargin  float64 `json:"netProfitMargin"`
	ReturnOnAssets   float64 `json:"returnOnAssets"`
	ReturnOnEquity   float64 `json:"returnOnEquity"`
}

// GetFinancialStatements fetches income, balance-sheet and cash-flow
// statements concurrently. Period is "annual" or "quarter". A symbol unknown
// to the provider yields nil.
func (c *Client) GetFinancialStatements(ctx context.Context, symbol, period string, limit int) (*FinancialStatements, error) {
	q := url.Values{}
	if period != "" {
		q.Set("period", period)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	out := &FinancialStatements{Symbol: symbol}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, c.baseURL, "/income-statement/"+url.PathEscape(symbol), clone(q), &out.Income)
	})
	g.Go(func() error {
		return c.get(gctx, c.baseURL, "/balance-sheet-statement/"+url.PathEscape(symbol), clone(q), &out.BalanceSheets)
	})
	g.Go(func() error {
		return c.get(gctx, c.baseURL, "/cash-flow-statement/"+url.PathEscape(symbol), clone(q), &out.CashFlow)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(out.Income) == 0 && len(out.BalanceSheets) == 0 && len(out.CashFlow) == 0 {
		return nil, nil
	}
	return out, nil
}

// CalculateFinancialRatios computes liquidity, leverage and profitability
// ratios from the symbol's most recent annual statements.
func (c *Client) CalculateFinancialRatios(ctx context.Context, symbol string) (*FinancialRatios, error) {
	stmts, err := c.GetFinancialStatements(ctx, symbol, "annual", 1)
	if err != nil {
		return nil, err
	}
	if stmts == nil || len(stmts.Income) == 0 || len(stmts.BalanceSheets) == 0 {
		return nil, nil
	}
	inc, bs := stmts.Income[0], stmts.BalanceSheets[0]

	return &FinancialRatios{
		Symbol:          symbol,
		Date:            bs.Date,
		CurrentRatio:    ratio(bs.TotalCurrentAssets, bs.TotalCurrentLiabilities),
		QuickRatio:      ratio(bs.TotalCurrentAssets-bs.Inventory, bs.TotalCurrentLiabilities),
		CashRatio:       ratio(bs.CashAndCashEquivalents, bs.TotalCurrentLiabilities),
		DebtToEquity:    ratio(bs.TotalDebt, bs.TotalStockholdersEquity),
		DebtRatio:       ratio(bs.TotalLiabilities, bs.TotalAssets),
		GrossMargin:     ratio(inc.GrossProfit, inc.Revenue),
		OperatingMargin: ratio(inc.OperatingIncome, inc.Revenue),
		NetProfitMargin: ratio(inc.NetIncome, inc.Revenue),
		ReturnOnAssets:  ratio(inc.NetIncome, bs.TotalAssets),
		ReturnOnEquity:  ratio(inc.NetIncome, bs.TotalStockholdersEquity),
	}, nil
}

// GetDiscountedCashFlow fetches the provider's DCF valuation.
func (c *Client) GetDiscountedCashFlow(ctx context.Context, symbol string) ([]map[string]any, error) {
	return c.getList(ctx, c.baseURL, "/discounted-cash-flow/"+url.PathEscape(symbol), nil)
}

// GetAdvancedDCF fetches the advanced DCF projection.
func (c *Client) GetAdvancedDCF(ctx context.Context, symbol string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	return c.getList(ctx, c.v4BaseURL, "/advanced_discounted_cash_flow", q)
}

// GetLeveredDCF fetches the levered DCF projection.
func (c *Client) GetLeveredDCF(ctx context.Context, symbol string) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	return c.getList(ctx, c.v4BaseURL, "/advanced_levered_discounted_cash_flow", q)
}

// GetCompanyRating fetches the provider's current company rating.
func (c *Client) GetCompanyRating(ctx context.Context, symbol string) ([]map[string]any, error) {
	return c.getList(ctx, c.baseURL, "/rating/"+url.PathEscape(symbol), nil)
}

// GetHistoricalRating fetches the rating history.
func (c *Client) GetHistoricalRating(ctx context.Context, symbol string, limit int) ([]map[string]any, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.getList(ctx, c.baseURL, "/historical-rating/"+url.PathEscape(symbol), q)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func clone(q url.Values) url.Values {
	out := url.Values{}
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
