package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicholaslie90/stock-scanner/internal/technical"
)

// PriceClient fetches trailing OHLCV history for one instrument.
type PriceClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// PriceOption configures PriceClient construction parameters.
type PriceOption func(*PriceClient)

// WithPriceBaseURL overrides the provider endpoint, mainly for tests.
func WithPriceBaseURL(baseURL string) PriceOption {
	return func(c *PriceClient) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithPriceTimeout overrides the per-request HTTP timeout.
func WithPriceTimeout(d time.Duration) PriceOption {
	return func(c *PriceClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// NewPriceClient builds a price-history client.
func NewPriceClient(apiKey string, log zerolog.Logger, opts ...PriceOption) *PriceClient {
	c := &PriceClient{
		baseURL: defaultFlowBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type historyBar struct {
	Date   string      `json:"date"`
	Open   json.Number `json:"open"`
	High   json.Number `json:"high"`
	Low    json.Number `json:"low"`
	Close  json.Number `json:"close"`
	Volume json.Number `json:"volume"`
}

// History returns up to days trailing daily candles for symbol, oldest
// first. The provider may answer with a flat bar table or, for batch
// endpoints, a table nested per instrument; both decode uniformly here.
func (c *PriceClient) History(ctx context.Context, symbol string, days int) ([]technical.Candle, error) {
	if days <= 0 {
		days = 90
	}
	to := time.Now().UTC()
	from := to.AddDate(0, 0, -days)

	url := fmt.Sprintf("%s/stock/idx/%s/historical?from=%s&to=%s",
		c.baseURL, symbol, from.Format("2006-01-02"), to.Format("2006-01-02"))

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
	candles, err := decodeHistory(env.Data, symbol)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("symbol", symbol).Int("bars", len(candles)).Msg("price history fetched")
	return candles, nil
}

// decodeHistory accepts either a flat bar table (optionally under a
// "results" key) or a per-instrument nested table from batch requests.
func decodeHistory(raw json.RawMessage, symbol string) ([]technical.Candle, error) {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty history payload")
	}

	var bars []historyBar
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(raw, &bars); err != nil {
			return nil, fmt.Errorf("decode flat history: %w", err)
		}
	case '{':
		var wrapped struct {
			Results []historyBar `json:"results"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Results) > 0 {
			bars = wrapped.Results
			break
		}
		var nested map[string][]historyBar
		if err := json.Unmarshal(raw, &nested); err != nil {
			return nil, fmt.Errorf("decode nested history: %w", err)
		}
		for key, table := range nested {
			if strings.EqualFold(key, symbol) {
				bars = table
				break
			}
		}
		if bars == nil {
			return nil, fmt.Errorf("symbol %s absent from nested history", symbol)
		}
	default:
		return nil, fmt.Errorf("unrecognized history shape")
	}

	candles := make([]technical.Candle, 0, len(bars))
	for _, b := range bars {
		date, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			continue
		}
		candles = append(candles, technical.Candle{
			Date:   date,
			Open:   numberOrZero(b.Open),
			High:   numberOrZero(b.High),
			Low:    numberOrZero(b.Low),
			Close:  numberOrZero(b.Close),
			Volume: numberOrZero(b.Volume),
		})
	}
	return candles, nil
}
