// Package config loads application configuration from environment variables,
// .env files and the YAML exchange-rates file.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dvloznov/budget-tracker/internal/currency"
)

// Config represents the application configuration.
type Config struct {
	// BaseCurrency is the currency all balances are kept in.
	BaseCurrency string
	// DBPath is the path of the bbolt database file.
	DBPath string
	// RatesPath points at the YAML exchange-rates file; empty disables
	// conversion and non-base transactions are rejected.
	RatesPath string
	// UserID identifies the balance documents a CLI session operates on.
	UserID string

	HTTP   HTTPConfig
	Export ExportConfig
	Backup BackupConfig
	Notion NotionConfig
}

// HTTPConfig represents API server configuration.
type HTTPConfig struct {
	Port string
}

// ExportConfig represents BigQuery export configuration.
type ExportConfig struct {
	ProjectID string
	Dataset   string
	Table     string
}

// BackupConfig represents GCS backup configuration.
type BackupConfig struct {
	Bucket string
	Prefix string
}

// NotionConfig represents Notion sync configuration.
type NotionConfig struct {
	Token      string
	DatabaseID string
}

// Load loads configuration from environment variables. It automatically
// loads a .env file from the current directory if one exists; a custom
// path can be passed instead.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Missing .env in the working directory is fine.
		_ = godotenv.Load()
	}

	cfg := &Config{
		BaseCurrency: getEnvOrDefault("BASE_CURRENCY", "EUR"),
		DBPath:       getEnvOrDefault("BUDGET_DB_PATH", "budget.db"),
		RatesPath:    os.Getenv("RATES_PATH"),
		UserID:       getEnvOrDefault("BUDGET_USER", "default"),
		HTTP: HTTPConfig{
			Port: getEnvOrDefault("PORT", "8080"),
		},
		Export: ExportConfig{
			ProjectID: os.Getenv("BQ_PROJECT_ID"),
			Dataset:   getEnvOrDefault("BQ_DATASET", "budget"),
			Table:     getEnvOrDefault("BQ_TABLE", "transactions"),
		},
		Backup: BackupConfig{
			Bucket: os.Getenv("GCS_BUCKET"),
			Prefix: getEnvOrDefault("GCS_PREFIX", "backups"),
		},
		Notion: NotionConfig{
			Token:      os.Getenv("NOTION_TOKEN"),
			DatabaseID: os.Getenv("NOTION_DATABASE_ID"),
		},
	}

	if _, ok := currency.Lookup(cfg.BaseCurrency); !ok {
		return nil, fmt.Errorf("unsupported base currency %q", cfg.BaseCurrency)
	}

	return cfg, nil
}

// ratesFile is the on-disk shape of the exchange-rates file.
type ratesFile struct {
	Base  string             `yaml:"base"`
	Rates map[string]float64 `yaml:"rates"`
}

// LoadRates reads the YAML exchange-rates file. Rates are units of the
// listed currency per one unit of the base currency. An empty path yields
// an empty snapshot.
func LoadRates(path string) (currency.Rates, error) {
	if path == "" {
		return currency.Rates{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rates file: %w", err)
	}

	var file ratesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rates file: %w", err)
	}

	rates := make(currency.Rates, len(file.Rates))
	for code, rate := range file.Rates {
		if rate <= 0 {
			return nil, fmt.Errorf("rate for %s must be positive, got %v", code, rate)
		}
		if _, ok := currency.Lookup(code); !ok {
			return nil, fmt.Errorf("%w: %s", currency.ErrUnknownCurrency, code)
		}
		rates[code] = rate
	}
	return rates, nil
}

// getEnvOrDefault returns the value of the environment variable or a
// default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
