//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"context"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/marketdata"
	"github.com/finsight-ai/finsight/run"
	"github.com/finsight-ai/finsight/session"
	"github.com/finsight-ai/finsight/tool"
	"github.com/finsight-ai/finsight/tool/function"
)

type symbolArgs struct {
	Symbol string `json:"symbol" description:"Stock ticker symbol, e.g. AAPL"`
}

type symbolPageArgs struct {
	Symbol string `json:"symbol" description:"Stock ticker symbol, e.g. AAPL"`
	Page   int    `json:"page,omitempty" description:"Result page, starting at 0"`
}

type estimatesArgs struct {
	Symbol string `json:"symbol" description:"Stock ticker symbol, e.g. AAPL"`
	Period string `json:"period,omitempty" description:"Reporting period" enum:"annual,quarter"`
	Limit  int    `json:"limit,omitempty" description:"Maximum number of records"`
}

type statementsArgs struct {
	Symbol string `json:"symbol" description:"Stock ticker symbol, e.g. AAPL"`
	Period string `json:"period,omitempty" description:"Reporting period" enum:"annual,quarter"`
	Limit  int    `json:"limit,omitempty" description:"Number of reporting periods to return"`
}

type symbolLimitArgs struct {
	Symbol string `json:"symbol" description:"Stock ticker symbol, e.g. AAPL"`
	Limit  int    `json:"limit,omitempty" description:"Maximum number of records"`
}

type dateRangeArgs struct {
	From string `json:"from,omitempty" description:"Start date, YYYY-MM-DD"`
	To   string `json:"to,omitempty" description:"End date, YYYY-MM-DD"`
}

type indicatorArgs struct {
	Name string `json:"name" description:"Indicator series name" enum:"GDP,realGDP,nominalPotentialGDP,CPI,inflationRate,unemploymentRate,federalFunds,retailSales,consumerSentiment,durableGoods,totalNonfarmPayroll"`
}

type sentimentFilterArgs struct {
	Type   string `json:"type,omitempty" description:"Sentiment direction" enum:"bullish,bearish"`
	Source string `json:"source,omitempty" description:"Social platform" enum:"twitter,stocktwits"`
}

// NewCompanyProfile builds the specialist that answers company profile,
// quote, insider trading and analyst coverage questions.
func NewCompanyProfile(api assistant.API, store session.Store, md *marketdata.Client, model string, runOpts ...run.Option) *Agent {
	tools := []tool.CallableTool{
		function.New(
			func(ctx context.Context, a symbolArgs) (*marketdata.CompanyProfile, error) {
				return md.GetCompanyProfile(ctx, a.Symbol)
			},
			function.WithName("fetchCompanyProfile"),
			function.WithDescription("Fetch the company profile: description, sector, industry, market cap, executives and key metadata."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) (*marketdata.Quote, error) {
				return md.GetRealTimeQuote(ctx, a.Symbol)
			},
			function.WithName("fetchRealTimeQuote"),
			function.WithDescription("Fetch the real-time quote: price, change, volume, day range and market cap."),
		),
		function.New(
			func(ctx context.Context, a symbolPageArgs) ([]map[string]any, error) {
				return md.GetInsiderTrades(ctx, a.Symbol, a.Page)
			},
			function.WithName("fetchInsiderTradesSearch"),
			function.WithDescription("Fetch recent insider trades for the company."),
		),
		function.New(
			func(ctx context.Context, a estimatesArgs) ([]map[string]any, error) {
				return md.GetAnalystEstimates(ctx, a.Symbol, a.Period, a.Limit)
			},
			function.WithName("fetchAnalystEstimates"),
			function.WithDescription("Fetch analyst revenue and earnings estimates."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) ([]map[string]any, error) {
				return md.GetAnalystRecommendations(ctx, a.Symbol)
			},
			function.WithName("fetchAnalystRecommendations"),
			function.WithDescription("Fetch the analyst buy/hold/sell recommendation breakdown."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) ([]map[string]any, error) {
				return md.GetUpgradesDowngrades(ctx, a.Symbol)
			},
			function.WithName("fetchUpgradesDowngrades"),
			function.WithDescription("Fetch recent analyst upgrades and downgrades with price targets."),
		),
	}
	return New(api, store, Config{
		Name:  "CompanyProfile",
		Model: model,
		Instructions: "You are a company profile specialist. Use your tools to retrieve company " +
			"profiles, real-time quotes, insider trades and analyst coverage, then answer " +
			"concisely with the figures you retrieved. State the symbol and date of the data " +
			"you used. If a tool returns no data, say so rather than guessing.",
		Tools: tools,
	}, runOpts...)
}

// NewFinancialAnalysis builds the specialist for statements, ratios,
// valuation models and ratings.
func NewFinancialAnalysis(api assistant.API, store session.Store, md *marketdata.Client, model string, runOpts ...run.Option) *Agent {
	tools := []tool.CallableTool{
		function.New(
			func(ctx context.Context, a statementsArgs) (*marketdata.FinancialStatements, error) {
				return md.GetFinancialStatements(ctx, a.Symbol, a.Period, a.Limit)
			},
			function.WithName("fetchFinancialStatements"),
			function.WithDescription("Fetch income statements, balance sheets and cash flow statements."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) (*marketdata.FinancialRatios, error) {
				return md.CalculateFinancialRatios(ctx, a.Symbol)
			},
			function.WithName("calculateFinancialRatios"),
			function.WithDescription("Compute liquidity, leverage and profitability ratios from the latest annual statements."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) ([]map[string]any, error) {
				return md.GetDiscountedCashFlow(ctx, a.Symbol)
			},
			function.WithName("fetchDiscountedCashFlow"),
			function.WithDescription("Fetch the baseline discounted cash flow valuation."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) ([]map[string]any, error) {
				return md.GetAdvancedDCF(ctx, a.Symbol)
			},
			function.WithName("fetchAdvancedDCF"),
			function.WithDescription("Fetch the advanced DCF projection with explicit growth assumptions."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) ([]map[string]any, error) {
				return md.GetLeveredDCF(ctx, a.Symbol)
			},
			function.WithName("fetchLeveredDCF"),
			function.WithDescription("Fetch the levered DCF projection accounting for debt."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) ([]map[string]any, error) {
				return md.GetCompanyRating(ctx, a.Symbol)
			},
			function.WithName("fetchCompanyRating"),
			function.WithDescription("Fetch the current composite company rating."),
		),
		function.New(
			func(ctx context.Context, a symbolLimitArgs) ([]map[string]any, error) {
				return md.GetHistoricalRating(ctx, a.Symbol, a.Limit)
			},
			function.WithName("fetchHistoricalRating"),
			function.WithDescription("Fetch the company rating history."),
		),
	}
	return New(api, store, Config{
		Name:  "FinancialAnalysis",
		Model: model,
		Instructions: "You are a financial analysis specialist. Use your tools to retrieve " +
			"financial statements, computed ratios, DCF valuations and ratings, then explain " +
			"what the numbers mean for the company's financial health. Always cite the fiscal " +
			"period the figures come from.",
		Tools: tools,
	}, runOpts...)
}

// NewTechnicalAnalysis builds the specialist for price history and computed
// technical indicators.
func NewTechnicalAnalysis(api assistant.API, store session.Store, md *marketdata.Client, model string, runOpts ...run.Option) *Agent {
	tools := []tool.CallableTool{
		function.New(
			func(ctx context.Context, a symbolLimitArgs) ([]marketdata.PriceBar, error) {
				return md.GetHistoricalPrices(ctx, a.Symbol, a.Limit)
			},
			function.WithName("fetchHistoricalData"),
			function.WithDescription("Fetch daily OHLCV price history, newest first."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) (*marketdata.Quote, error) {
				return md.GetRealTimeQuote(ctx, a.Symbol)
			},
			function.WithName("fetchRealTimeQuote"),
			function.WithDescription("Fetch the real-time quote: price, change, volume, day range and market cap."),
		),
		function.New(
			func(ctx context.Context, a symbolArgs) (*marketdata.TechnicalIndicators, error) {
				return md.GetTechnicalIndicators(ctx, a.Symbol)
			},
			function.WithName("calculateTechnicalIndicators"),
			function.WithDescription("Compute SMA, EMA, RSI and MACD from recent daily closes."),
		),
	}
	return New(api, store, Config{
		Name:  "TechnicalAnalysis",
		Model: model,
		Instructions: "You are a technical analysis specialist. Use your tools to retrieve " +
			"price history and computed indicators, then describe the trend, momentum and " +
			"notable levels. Note the as-of date of every indicator you cite.",
		Tools: tools,
	}, runOpts...)
}

// NewEconomicData builds the specialist for macro releases, indicator
// series, treasury yields and risk premia.
func NewEconomicData(api assistant.API, store session.Store, md *marketdata.Client, model string, runOpts ...run.Option) *Agent {
	tools := []tool.CallableTool{
		function.New(
			func(ctx context.Context, a dateRangeArgs) ([]map[string]any, error) {
				return md.GetEconomicCalendar(ctx, a.From, a.To)
			},
			function.WithName("fetchEconomicCalendar"),
			function.WithDescription("Fetch scheduled economic releases for a date range."),
		),
		function.New(
			func(ctx context.Context, a indicatorArgs) ([]map[string]any, error) {
				return md.GetEconomicIndicators(ctx, a.Name)
			},
			function.WithName("fetchEconomicIndicators"),
			function.WithDescription("Fetch a named macroeconomic indicator series such as GDP or CPI."),
		),
		function.New(
			func(ctx context.Context, a dateRangeArgs) ([]map[string]any, error) {
				return md.GetTreasuryRates(ctx, a.From, a.To)
			},
			function.WithName("fetchTreasuryRates"),
			function.WithDescription("Fetch treasury yields across maturities for a date range."),
		),
		function.New(
			func(ctx context.Context, a struct{}) ([]map[string]any, error) {
				return md.GetMarketRiskPremium(ctx)
			},
			function.WithName("fetchMarketRiskPremium"),
			function.WithDescription("Fetch the market risk premium by country."),
		),
	}
	return New(api, store, Config{
		Name:  "EconomicData",
		Model: model,
		Instructions: "You are an economic data specialist. Use your tools to retrieve macro " +
			"releases, indicator series, treasury yields and risk premia, then summarize the " +
			"macro picture relevant to the question. Quote values with their release dates.",
		Tools: tools,
	}, runOpts...)
}

// NewSentimentAnalysis builds the specialist for social sentiment data.
func NewSentimentAnalysis(api assistant.API, store session.Store, md *marketdata.Client, model string, runOpts ...run.Option) *Agent {
	tools := []tool.CallableTool{
		function.New(
			func(ctx context.Context, a symbolPageArgs) ([]map[string]any, error) {
				return md.GetHistoricalSocialSentiment(ctx, a.Symbol, a.Page)
			},
			function.WithName("fetchHistoricalSocialSentiment"),
			function.WithDescription("Fetch the social sentiment history for a symbol."),
		),
		function.New(
			func(ctx context.Context, a sentimentFilterArgs) ([]map[string]any, error) {
				return md.GetSocialSentimentChanges(ctx, a.Type, a.Source)
			},
			function.WithName("fetchSocialSentimentChanges"),
			function.WithDescription("Fetch the symbols with the largest recent sentiment changes."),
		),
		function.New(
			func(ctx context.Context, a sentimentFilterArgs) ([]map[string]any, error) {
				return md.GetTrendingSocialSentiment(ctx, a.Type, a.Source)
			},
			function.WithName("fetchTrendingSocialSentiment"),
			function.WithDescription("Fetch the symbols currently trending on social platforms."),
		),
	}
	return New(api, store, Config{
		Name:  "SentimentAnalysis",
		Model: model,
		Instructions: "You are a market sentiment specialist. Use your tools to retrieve social " +
			"sentiment history, movers and trending symbols, then characterize the crowd's " +
			"positioning. Distinguish platform sources when they disagree.",
		Tools: tools,
	}, runOpts...)
}
