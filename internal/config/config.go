package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/mamadbah2/tirecost/internal/domain/models"
	"github.com/mamadbah2/tirecost/internal/service/costing"
)

// Metric store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
	StoreRedis  = "redis"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Sheets    SheetsConfig
	Metrics   MetricsConfig
	Reporting ReportingConfig
	Costing   CostingConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// MetricsConfig selects where published metrics are kept and who is told.
type MetricsConfig struct {
	Store      string
	MongoURI   string
	MongoDB    string
	RedisURL   string
	WebhookURL string
}

// ReportingConfig holds scheduler-related settings.
type ReportingConfig struct {
	CronSchedule string
	Timezone     string
	SaleCategory string
}

// CostingConfig holds the default cost options of the views.
type CostingConfig struct {
	IncludeLabor                bool
	IncludeCashFlowExpenses     bool
	IncludeProductionLosses     bool
	IncludeDefectiveSalesCredit bool
	IncludeWarrantyValue        bool
	DivideByProduction          bool
}

// Options converts the defaults to models.CostOptions.
func (c CostingConfig) Options() models.CostOptions {
	return models.CostOptions{
		IncludeLabor:                c.IncludeLabor,
		IncludeCashFlowExpenses:     c.IncludeCashFlowExpenses,
		IncludeProductionLosses:     c.IncludeProductionLosses,
		IncludeDefectiveSalesCredit: c.IncludeDefectiveSalesCredit,
		IncludeWarrantyValue:        c.IncludeWarrantyValue,
		DivideByProduction:          c.DivideByProduction,
	}
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are acceptable when configuration comes from
		// the environment directly.
		_ = godotenv.Load()
	}

	costs, err := loadCosting()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Metrics: MetricsConfig{
			Store:      strings.ToLower(getenvWithDefault("METRIC_STORE", StoreMemory)),
			MongoURI:   getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			MongoDB:    getenvWithDefault("MONGODB_DB_NAME", "tirecost"),
			RedisURL:   os.Getenv("REDIS_URL"),
			WebhookURL: os.Getenv("METRICS_WEBHOOK_URL"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getenvWithDefault("REFRESH_CRON", "*/15 * * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "America/Sao_Paulo"),
			SaleCategory: getenvWithDefault("SALE_CATEGORY", costing.DefaultSaleCategory),
		},
		Costing:  costs,
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Sheets.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}

	if c.Sheets.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}

	switch c.Metrics.Store {
	case StoreMemory:
	case StoreMongo:
		if c.Metrics.MongoURI == "" {
			return errors.New("MONGODB_URI must be provided when METRIC_STORE=mongo")
		}
		if c.Metrics.MongoDB == "" {
			return errors.New("MONGODB_DB_NAME must be provided when METRIC_STORE=mongo")
		}
	case StoreRedis:
		if c.Metrics.RedisURL == "" {
			return errors.New("REDIS_URL must be provided when METRIC_STORE=redis")
		}
	default:
		return fmt.Errorf("METRIC_STORE %q is not one of memory, mongo, redis", c.Metrics.Store)
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REFRESH_CRON must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}

	return nil
}

func loadCosting() (CostingConfig, error) {
	var (
		c   CostingConfig
		err error
	)
	fields := []struct {
		key string
		dst *bool
		def bool
	}{
		{"COST_INCLUDE_LABOR", &c.IncludeLabor, false},
		{"COST_INCLUDE_CASH_FLOW", &c.IncludeCashFlowExpenses, false},
		{"COST_INCLUDE_LOSSES", &c.IncludeProductionLosses, false},
		{"COST_INCLUDE_DEFECTIVE_CREDIT", &c.IncludeDefectiveSalesCredit, false},
		{"COST_INCLUDE_WARRANTY", &c.IncludeWarrantyValue, false},
		{"COST_DIVIDE_BY_PRODUCTION", &c.DivideByProduction, true},
	}
	for _, f := range fields {
		if *f.dst, err = getenvBool(f.key, f.def); err != nil {
			return CostingConfig{}, err
		}
	}
	return c, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
