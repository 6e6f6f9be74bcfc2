// Package universe resolves the ordered instrument list scanned per run.
package universe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	SourceStatic   = "static"
	SourceFile     = "file"
	SourceScreener = "screener"
)

// Source yields the ticker universe from one of three backends: a static
// configured list, a newline-delimited file, or a ranked screener query
// that falls back to the static list on failure.
type Source struct {
	mode        string
	static      []string
	filePath    string
	stripSuffix string
	screener    *ScreenerClient
	log         zerolog.Logger
}

// NewSource builds a universe source. An unknown mode behaves as static.
func NewSource(mode string, static []string, filePath, stripSuffix string, screener *ScreenerClient, log zerolog.Logger) *Source {
	return &Source{
		mode:        strings.ToLower(mode),
		static:      static,
		filePath:    filePath,
		stripSuffix: stripSuffix,
		screener:    screener,
		log:         log,
	}
}

// Resolve returns the deduplicated, uppercased ticker list in a stable
// order. Screener failure degrades to the static list with a warning.
func (s *Source) Resolve(ctx context.Context) ([]string, error) {
	switch s.mode {
	case SourceFile:
		return s.fromFile()
	case SourceScreener:
		if s.screener != nil {
			tickers, err := s.screener.TopByVolume(ctx)
			if err == nil && len(tickers) > 0 {
				return sanitize(tickers, s.stripSuffix), nil
			}
			s.log.Warn().Err(err).Msg("screener query failed, using static universe")
		}
		return sanitize(s.static, s.stripSuffix), nil
	default:
		return sanitize(s.static, s.stripSuffix), nil
	}
}

func (s *Source) fromFile() ([]string, error) {
	file, err := os.Open(s.filePath)
	if err != nil {
		return nil, fmt.Errorf("open universe file: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read universe file: %w", err)
	}
	return sanitize(lines, s.stripSuffix), nil
}

// sanitize uppercases, strips the configured suffix, and deduplicates
// while preserving first-seen order.
func sanitize(raw []string, stripSuffix string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if stripSuffix != "" {
			t = strings.TrimSuffix(t, strings.ToUpper(stripSuffix))
		}
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ScreenerClient queries a TradingView-style scan endpoint for the most
// active tickers above price and traded-value floors.
type ScreenerClient struct {
	baseURL        string
	market         string
	minClose       float64
	minValueTraded float64
	limit          int
	client         *http.Client
}

// NewScreenerClient builds a screener client with defaulted bounds.
func NewScreenerClient(baseURL, market string, minClose, minValueTraded float64, limit int) *ScreenerClient {
	if baseURL == "" {
		baseURL = "https://scanner.tradingview.com"
	}
	if market == "" {
		market = "indonesia"
	}
	if limit <= 0 {
		limit = 20
	}
	return &ScreenerClient{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		market:         market,
		minClose:       minClose,
		minValueTraded: minValueTraded,
		limit:          limit,
		client:         &http.Client{Timeout: 15 * time.Second},
	}
}

type scanRequest struct {
	Filter  []scanFilter `json:"filter"`
	Sort    scanSort     `json:"sort"`
	Range   [2]int       `json:"range"`
	Columns []string     `json:"columns"`
}

type scanFilter struct {
	Left      string  `json:"left"`
	Operation string  `json:"operation"`
	Right     float64 `json:"right"`
}

type scanSort struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

type scanResponse struct {
	Data []struct {
		Symbol string `json:"s"`
	} `json:"data"`
}

// TopByVolume returns the ranked ticker list, exchange prefix stripped.
func (c *ScreenerClient) TopByVolume(ctx context.Context) ([]string, error) {
	reqBody := scanRequest{
		Filter: []scanFilter{
			{Left: "close", Operation: "egreater", Right: c.minClose},
			{Left: "Value.Traded", Operation: "greater", Right: c.minValueTraded},
		},
		Sort:    scanSort{SortBy: "volume", SortOrder: "desc"},
		Range:   [2]int{0, c.limit},
		Columns: []string{"name", "close", "volume", "Value.Traded"},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal scan request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/scan", c.baseURL, c.market)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "stock-scanner/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode scan response: %w", err)
	}

	tickers := make([]string, 0, len(parsed.Data))
	for _, row := range parsed.Data {
		sym := row.Symbol
		if idx := strings.IndexByte(sym, ':'); idx >= 0 {
			sym = sym[idx+1:]
		}
		if sym != "" {
			tickers = append(tickers, sym)
		}
	}
	return tickers, nil
}
