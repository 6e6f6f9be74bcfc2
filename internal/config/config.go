// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Provider describes connectivity and pacing for the broker-flow and price-history API.
type Provider struct {
	BaseURL         string `yaml:"base_url"`
	APIKeyEnv       string `yaml:"api_key_env"`
	RequestDelayMs  int    `yaml:"request_delay_ms"`
	TimeoutMs       int    `yaml:"timeout_ms"`
	MaxLookbackDays int    `yaml:"max_lookback_days"`
}

// Screener configures the ranked screener query used to build a dynamic universe.
type Screener struct {
	BaseURL        string  `yaml:"base_url"`
	Market         string  `yaml:"market"`
	MinClose       float64 `yaml:"min_close"`
	MinValueTraded float64 `yaml:"min_value_traded"`
	Limit          int     `yaml:"limit"`
}

// Universe selects where the scanned ticker list comes from.
type Universe struct {
	Source      string   `yaml:"source"`
	Tickers     []string `yaml:"tickers"`
	FilePath    string   `yaml:"file_path"`
	StripSuffix string   `yaml:"strip_suffix"`
	Screener    Screener `yaml:"screener"`
}

// Classifier supplies the participant capability classes as configuration, not code.
type Classifier struct {
	Institutional []string `yaml:"institutional"`
	Retail        []string `yaml:"retail"`
}

// Scoring groups the tunable thresholds of the flow scoring cascade.
type Scoring struct {
	TopN                int     `yaml:"top_n"`
	BigAccumThreshold   float64 `yaml:"big_accum_threshold"`
	SevereDistThreshold float64 `yaml:"severe_dist_threshold"`
}

// Technical groups window lengths for the price/volume context engine.
type Technical struct {
	Mode             string `yaml:"mode"`
	IntradayWindow   int    `yaml:"intraday_window"`
	PositionalWindow int    `yaml:"positional_window"`
	TrendWindow      int    `yaml:"trend_window"`
	HistoryDays      int    `yaml:"history_days"`
}

// Ranking holds the composite ranking knobs applied after both signals resolve.
type Ranking struct {
	MinValueTraded float64 `yaml:"min_value_traded"`
}

// Report bounds the rendered output.
type Report struct {
	MaxChunkLen int `yaml:"max_chunk_len"`
	TopK        int `yaml:"top_k"`
}

// Telegram names the environment variables carrying notification credentials.
type Telegram struct {
	TokenEnv  string `yaml:"token_env"`
	ChatIDEnv string `yaml:"chat_id_env"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Provider   Provider   `yaml:"provider"`
	Universe   Universe   `yaml:"universe"`
	Classifier Classifier `yaml:"classifier"`
	Scoring    Scoring    `yaml:"scoring"`
	Technical  Technical  `yaml:"technical"`
	Ranking    Ranking    `yaml:"ranking"`
	Report     Report     `yaml:"report"`
	Telegram   Telegram   `yaml:"telegram"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
