package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Market  MarketConfig  `yaml:"market"`
	Dhan    DhanConfig    `yaml:"dhan"`
	Yahoo   YahooConfig   `yaml:"yahoo"`
	Store   StoreConfig   `yaml:"store"`
	Symbols SymbolsConfig `yaml:"symbols"`
}

type ServerConfig struct {
	Port int        `yaml:"port"`
	CORS CORSConfig `yaml:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type MarketConfig struct {
	Timezone     string `yaml:"timezone"`
	SessionOpen  string `yaml:"session_open"`
	SessionClose string `yaml:"session_close"`
}

type DhanConfig struct {
	BaseURL          string `yaml:"base_url"`
	TimeoutMs        int    `yaml:"timeout_ms"`
	Instrument       string `yaml:"instrument"`
	SessionTTLSec    int    `yaml:"session_ttl_sec"`
	MaxSessions      int    `yaml:"max_sessions"`
	SessionSweepSpec string `yaml:"session_sweep_spec"`
}

type YahooConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
	Suffix    string `yaml:"suffix"`
}

type StoreConfig struct {
	Sqlite SqliteConfig `yaml:"sqlite"`
}

type SqliteConfig struct {
	// Path empty disables the fetch log and the security-ID table.
	Path string `yaml:"path"`
}

type SymbolsConfig struct {
	// SecurityIDs seeds the symbol -> Dhan security ID table.
	SecurityIDs map[string]string `yaml:"security_ids"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: 5001,
			CORS: CORSConfig{AllowedOrigins: []string{
				"http://localhost:3001",
				"http://localhost:5173",
				"http://localhost:3000",
			}},
		},
		Log: LogConfig{Level: "info"},
		Market: MarketConfig{
			Timezone:     "Asia/Kolkata",
			SessionOpen:  "09:15",
			SessionClose: "15:30",
		},
		Dhan: DhanConfig{
			BaseURL:          "https://api.dhan.co",
			TimeoutMs:        10000,
			Instrument:       "EQUITY",
			SessionTTLSec:    3600,
			MaxSessions:      1000,
			SessionSweepSpec: "@every 5m",
		},
		Yahoo: YahooConfig{
			BaseURL:   "https://query1.finance.yahoo.com",
			TimeoutMs: 10000,
			Suffix:    ".NS",
		},
		Store: StoreConfig{
			Sqlite: SqliteConfig{Path: "data/proxy.db"},
		},
	}
}

// Load reads .env (if present), then the YAML file over the defaults, then
// environment overrides. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return fmt.Errorf("invalid PORT: %q", v)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.CORS.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("DHAN_BASE_URL"); v != "" {
		cfg.Dhan.BaseURL = v
	}
	if v := os.Getenv("YAHOO_BASE_URL"); v != "" {
		cfg.Yahoo.BaseURL = v
	}
	if v, ok := os.LookupEnv("SQLITE_PATH"); ok {
		cfg.Store.Sqlite.Path = v
	}
	return nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Dhan.TimeoutMs <= 0 {
		return fmt.Errorf("invalid dhan.timeout_ms: %d", c.Dhan.TimeoutMs)
	}
	if c.Yahoo.TimeoutMs <= 0 {
		return fmt.Errorf("invalid yahoo.timeout_ms: %d", c.Yahoo.TimeoutMs)
	}
	if c.Market.Timezone == "" {
		return fmt.Errorf("market.timezone is required")
	}
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
