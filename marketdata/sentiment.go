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

// GetHistoricalSocialSentiment fetches the social sentiment history for a
// symbol, paginated from newest.
func (c *Client) GetHistoricalSocialSentiment(ctx context.Context, symbol string, page int) ([]map[string]any, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return c.getList(ctx, c.v4BaseURL, "/historical/social-sentiment", q)
}

// GetSocialSentimentChanges fetches the biggest sentiment movers.
// Type is "bullish" or "bearish"; source is "twitter" or "stocktwits".
func (c *Client) GetSocialSentimentChanges(ctx context.Context, sentimentType, source string) ([]map[string]any, error) {
	q := url.Values{}
	if sentimentType != "" {
		q.Set("type", sentimentType)
	}
	if source != "" {
		q.Set("source", source)
	}
	return c.getList(ctx, c.v4BaseURL, "/social-sentiments/change", q)
}

// GetTrendingSocialSentiment fetches the currently trending symbols by
// social sentiment.
func (c *Client) GetTrendingSocialSentiment(ctx context.Context, sentimentType, source string) ([]map[string]any, error) {
	q := url.Values{}
	if sentimentType != "" {
		q.Set("type", sentimentType)
	}
	if source != "" {
		q.Set("source", source)
	}
	return c.getList(ctx, c.v4BaseURL, "/social-sentiments/trending", q)
}
