// Package provider implements HTTP clients for the upstream market data services.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/nicholaslie90/stock-scanner/internal/flow"
	"github.com/nicholaslie90/stock-scanner/internal/metrics"
)

const defaultFlowBaseURL = "https://api.goapi.io"

// FlowClient fetches per-broker transaction summaries. Every call waits on
// a fixed-interval limiter so the upstream pacing contract holds even when
// responses return quickly.
type FlowClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// FlowOption configures FlowClient construction parameters.
type FlowOption func(*FlowClient)

// WithFlowBaseURL overrides the provider endpoint, mainly for tests.
func WithFlowBaseURL(baseURL string) FlowOption {
	return func(c *FlowClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithFlowTimeout overrides the per-request HTTP timeout.
func WithFlowTimeout(d time.Duration) FlowOption {
	return func(c *FlowClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// NewFlowClient builds a flow client enforcing requestDelay between calls.
func NewFlowClient(apiKey string, requestDelay time.Duration, log zerolog.Logger, opts ...FlowOption) *FlowClient {
	if requestDelay <= 0 {
		requestDelay = 250 * time.Millisecond
	}
	c := &FlowClient{
		baseURL: defaultFlowBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(requestDelay), 1),
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type summaryData struct {
	TopBuyers    []brokerEntry `json:"top_buyers"`
	TopSellers   []brokerEntry `json:"top_sellers"`
	Transactions []brokerEntry `json:"transactions"`
}

type brokerEntry struct {
	Code     string      `json:"code"`
	Value    json.Number `json:"value"`
	AvgPrice json.Number `json:"avg_price"`
}

// FlowSummary implements flow.Fetcher. HTTP 429 maps to flow.ErrRateLimited;
// any other failure is reported as a plain error the locator treats as
// absent data for that date.
func (c *FlowClient) FlowSummary(ctx context.Context, symbol string, date time.Time) (flow.Payload, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return flow.Payload{}, err
	}
	metrics.FlowFetches.WithLabelValues(symbol).Inc()

	url := fmt.Sprintf("%s/stock/idx/%s/broker_summary?date=%s", c.baseURL, symbol, date.Format("2006-01-02"))
	raw, err := c.get(ctx, url)
	if err != nil {
		return flow.Payload{}, err
	}
	c.log.Debug().Str("symbol", symbol).Str("date", date.Format("2006-01-02")).Msg("flow summary fetched")
	return decodeFlowPayload(raw)
}

// Brokers fetches the provider's broker directory (code to display name).
// Callers treat failure as non-fatal; codes render bare without it.
func (c *FlowClient) Brokers(ctx context.Context) (map[string]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	raw, err := c.get(ctx, c.baseURL+"/stock/idx/brokers")
	if err != nil {
		return nil, err
	}

	var listing []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &listing); err != nil {
		return nil, fmt.Errorf("decode broker listing: %w", err)
	}
	names := make(map[string]string, len(listing))
	for _, b := range listing {
		if b.ID != "" {
			names[b.ID] = b.Name
		}
	}
	return names, nil
}

func (c *FlowClient) get(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "stock-scanner/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		metrics.RateLimitTrips.Inc()
		return nil, flow.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Status != "success" {
		return nil, fmt.Errorf("provider status %q: %s", env.Status, env.Message)
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("empty data field")
	}
	return env.Data, nil
}

// decodeFlowPayload probes the data shape: a JSON array is the flat
// transaction list, an object is the nested buy/sell summary.
func decodeFlowPayload(raw json.RawMessage) (flow.Payload, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return flow.Payload{}, fmt.Errorf("empty payload")
	}

	switch trimmed[0] {
	case '[':
		var entries []brokerEntry
		if err := json.Unmarshal(raw, &entries); err != nil {
			return flow.Payload{}, fmt.Errorf("decode flat payload: %w", err)
		}
		p := flow.Payload{Transactions: make([]flow.Transaction, 0, len(entries))}
		for _, e := range entries {
			p.Transactions = append(p.Transactions, flow.Transaction{
				Participant: e.Code,
				Value:       numberOrZero(e.Value),
				AvgPrice:    numberOrZero(e.AvgPrice),
			})
		}
		return p, nil
	case '{':
		var data summaryData
		if err := json.Unmarshal(raw, &data); err != nil {
			return flow.Payload{}, fmt.Errorf("decode summary payload: %w", err)
		}
		if len(data.Transactions) > 0 && len(data.TopBuyers) == 0 && len(data.TopSellers) == 0 {
			p := flow.Payload{Transactions: make([]flow.Transaction, 0, len(data.Transactions))}
			for _, e := range data.Transactions {
				p.Transactions = append(p.Transactions, flow.Transaction{
					Participant: e.Code,
					Value:       numberOrZero(e.Value),
					AvgPrice:    numberOrZero(e.AvgPrice),
				})
			}
			return p, nil
		}
		summary := &flow.Summary{}
		for _, e := range data.TopBuyers {
			summary.Buyers = append(summary.Buyers, flow.SideEntry{
				Participant: e.Code,
				Value:       numberOrZero(e.Value),
				AvgPrice:    numberOrZero(e.AvgPrice),
			})
		}
		for _, e := range data.TopSellers {
			summary.Sellers = append(summary.Sellers, flow.SideEntry{
				Participant: e.Code,
				Value:       numberOrZero(e.Value),
				AvgPrice:    numberOrZero(e.AvgPrice),
			})
		}
		return flow.Payload{Summary: summary}, nil
	default:
		return flow.Payload{}, fmt.Errorf("unrecognized payload shape")
	}
}

func numberOrZero(n json.Number) float64 {
	v, err := n.Float64()
	if err != nil {
		return 0
	}
	return v
}
