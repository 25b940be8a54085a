package supra

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"SupraView/internal/domain/models"
	"SupraView/pkg/cache"
	xhttp "SupraView/pkg/http"
	xlogger "SupraView/pkg/logger"
	"SupraView/pkg/util"
)

const pricesGraphQuery = `
    query GetCatalogTradingPairPricesGraph($input: CatalogTradingPairPricesAndGraphInput) {
      catalogTradingPairPricesGraph(input: $input) {
        average
        median
        high
        low
        timestamp
        __typename
      }
    }
  `

// CatalogOption configures CatalogClient.
type CatalogOption func(*CatalogClient)

// CatalogClient fetches OHLC price statistics from the Supra price catalog
// GraphQL endpoint. It implements repository.QuoteSource.
type CatalogClient struct {
	http *xhttp.Client
	url  string

	providerID       string
	instrumentTypeID string
	doraType         string

	cache    cache.Service
	cacheTTL time.Duration
	logger   *xlogger.Logger
}

// NewCatalogClient creates a catalog price client.
func NewCatalogClient(url string, opts ...CatalogOption) *CatalogClient {
	c := &CatalogClient{
		http:             xhttp.NewClient(xhttp.WithTimeout(5 * time.Second)),
		url:              url,
		providerID:       "20",
		instrumentTypeID: "1",
		doraType:         "2",
		cacheTTL:         15 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithCatalogTimeout sets the per-request timeout.
func WithCatalogTimeout(timeout time.Duration) CatalogOption {
	return func(c *CatalogClient) {
		c.http = xhttp.NewClient(xhttp.WithTimeout(timeout))
	}
}

// WithCatalogProvider sets catalog provider identifiers.
func WithCatalogProvider(providerID, instrumentTypeID, doraType string) CatalogOption {
	return func(c *CatalogClient) {
		c.providerID = providerID
		c.instrumentTypeID = instrumentTypeID
		c.doraType = doraType
	}
}

// WithCatalogCache enables short-TTL caching of quote responses. A query
// with ForceUpdate set bypasses the cache on both read and write.
func WithCatalogCache(svc cache.Service, ttl time.Duration) CatalogOption {
	return func(c *CatalogClient) {
		c.cache = svc
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithCatalogLogger sets the logger.
func WithCatalogLogger(l *xlogger.Logger) CatalogOption {
	return func(c *CatalogClient) {
		c.logger = l
	}
}

type catalogInput struct {
	InstrumentTypeID          string `json:"instrumentTypeId"`
	InstrumentID              string `json:"instrumentId"`
	DoraType                  string `json:"doraType"`
	InstrumentPairDisplayName string `json:"instrumentPairDisplayName"`
	CreatedAtStart            string `json:"createdAtStart"`
	CreatedAtEnd              string `json:"createdAtEnd"`
	Interval                  int    `json:"interval"`
	ProviderID                string `json:"providerId"`
	ForceUpdate               bool   `json:"forceUpdate"`
}

type graphQLOperation struct {
	OperationName string                 `json:"operationName"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
}

type priceRow struct {
	Average   string `json:"average"`
	Median    string `json:"median"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Timestamp string `json:"timestamp"`
}

type graphQLResponse struct {
	Data struct {
		CatalogTradingPairPricesGraph []priceRow `json:"catalogTradingPairPricesGraph"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchQuotes issues one point-in-time request for price statistics over a
// time range. The returned order is the remote's; it is not guaranteed to be
// sorted by timestamp. An empty slice with nil error is a valid outcome.
func (c *CatalogClient) FetchQuotes(ctx context.Context, q models.QuoteQuery) ([]models.Quote, error) {
	const op = "catalog quotes"

	var cacheKey string
	if c.cache != nil && !q.ForceUpdate {
		cacheKey = c.cacheKey(q)
		var cached []models.Quote
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	ops := []graphQLOperation{{
		OperationName: "GetCatalogTradingPairPricesGraph",
		Query:         pricesGraphQuery,
		Variables: map[string]interface{}{
			"input": catalogInput{
				InstrumentTypeID:          c.instrumentTypeID,
				InstrumentID:              q.InstrumentID,
				DoraType:                  c.doraType,
				InstrumentPairDisplayName: q.Pair,
				CreatedAtStart:            q.Start.UTC().Format(time.RFC3339),
				CreatedAtEnd:              q.End.UTC().Format(time.RFC3339),
				Interval:                  q.Granularity,
				ProviderID:                c.providerID,
				ForceUpdate:               q.ForceUpdate,
			},
		},
	}}

	var resp []graphQLResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url,
		Body:   ops,
	}, &resp)
	if err != nil {
		return nil, models.TransportErrorf(op, err)
	}
	if len(resp) == 0 {
		return nil, models.NormalizationErrorf(op, "empty operations response")
	}
	if len(resp[0].Errors) > 0 {
		return nil, models.TransportErrorf(op, fmt.Errorf("graphql: %s", resp[0].Errors[0].Message))
	}

	rows := resp[0].Data.CatalogTradingPairPricesGraph
	quotes := make([]models.Quote, 0, len(rows))
	for _, r := range rows {
		quote, err := r.toQuote()
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, quote)
	}

	if c.cache != nil && !q.ForceUpdate && len(quotes) > 0 {
		if err := c.cache.Set(ctx, cacheKey, quotes, c.cacheTTL); err != nil && c.logger != nil {
			c.logger.Warn("quote cache set failed", xlogger.Error(err))
		}
	}

	return quotes, nil
}

// cacheKey buckets the query's time bounds by its granularity. Live callers
// anchor Start/End to the current time, so the raw unix seconds would make
// every key unique and the cache useless; within one granularity bucket the
// remote serves the same sampled series anyway.
func (c *CatalogClient) cacheKey(q models.QuoteQuery) string {
	bucket := int64(q.Granularity)
	if bucket <= 0 {
		bucket = 1
	}
	return cache.GenerateKeyWithParams("quotes",
		q.InstrumentID, q.Granularity, q.Start.Unix()/bucket, q.End.Unix()/bucket)
}

func (r priceRow) toQuote() (models.Quote, error) {
	const op = "catalog quotes"

	ts, ok := util.ParseTime(r.Timestamp)
	if !ok {
		return models.Quote{}, models.NormalizationErrorf(op, "bad timestamp %q", r.Timestamp)
	}

	vals := [4]decimal.Decimal{}
	for i, s := range [4]string{r.Average, r.Median, r.High, r.Low} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.Quote{}, models.NormalizationErrorf(op, "bad decimal %q: %v", s, err)
		}
		vals[i] = d
	}

	return models.Quote{
		Timestamp: ts,
		Average:   vals[0],
		Median:    vals[1],
		High:      vals[2],
		Low:       vals[3],
	}, nil
}
