package config

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the full application configuration loaded from environment variables or .env file.
//
// Example ENV equivalent:
//
//	SERVER_PORT=8080
//	POSTGRES_HOST=localhost
//	POSTGRES_PORT=5432
//	POSTGRES_USER=admin
//	POSTGRES_PASSWORD=secret
//	POSTGRES_DB=cryptonorm
//	POSTGRES_SSLMODE=disable
//	REPORTING_CURRENCY=GBP
//	ZERO_FEE_BUY_AS_REFERRAL=false
//	IMPORT_PARALLEL=0
//	IMPORT_HEADER_SCAN=10
//	RATES_FILE=./data/rates.json
//	RATE_LIMIT_PER_MINUTE=60
type Config struct {
	Server   ServerConfig   // HTTP server configuration
	Postgres PostgresConfig // PostgreSQL connection settings
	Import   ImportConfig   // Normalization policy and batch settings
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string // The TCP port the HTTP server will listen on (e.g., "8080")
	RateLimitPerMinute int    // Requests allowed per client IP per minute
}

// PostgresConfig defines connection details for PostgreSQL.
//
// Fields:
//   - Host: hostname of the database server.
//   - Port: port number of the database server (default 5432).
//   - User: username for authentication.
//   - Password: password for authentication.
//   - DBName: target database name.
//   - SSLMode: SSL mode (e.g., "disable", "require").
//   - URL: computed DSN used by database/sql to connect.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

// ImportConfig holds the read-only policy applied while normalizing files.
//
// Fields:
//   - ReportingCurrency: three-letter code all advisory values are expressed in.
//   - ZeroFeeBuyAsReferral: classify a plain "Buy" with a zero fee as a Referral.
//   - Parallel: files processed concurrently (0 = automatic).
//   - HeaderScan: leading rows searched for a recognizable header.
//   - RatesFile: optional JSON rate table; empty means rates come from Postgres.
type ImportConfig struct {
	ReportingCurrency    string
	ZeroFeeBuyAsReferral bool
	Parallel             int
	HeaderScan           int
	RatesFile            string
}

// AppConfig is the globally accessible configuration instance.
//
// It is populated once via LoadConfig() and never mutated mid-run.
var AppConfig Config

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// LoadConfig initializes the global AppConfig by reading from .env file
// or directly from environment variables.
//
// Precedence (from lowest to highest):
//  1. Defaults set in this function.
//  2. Values from .env file (if present).
//  3. Environment variables.
//
// Fatal exit:
//   - If required variables are missing or invalid, validateConfig() terminates the app.
func LoadConfig() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 60)

	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", 5432)
	viper.SetDefault("POSTGRES_USER", "postgres")
	viper.SetDefault("POSTGRES_PASSWORD", "postgres")
	viper.SetDefault("POSTGRES_DB", "cryptonorm")
	viper.SetDefault("POSTGRES_SSLMODE", "disable")

	viper.SetDefault("REPORTING_CURRENCY", "GBP")
	viper.SetDefault("ZERO_FEE_BUY_AS_REFERRAL", false)
	viper.SetDefault("IMPORT_PARALLEL", 0)
	viper.SetDefault("IMPORT_HEADER_SCAN", 10)
	viper.SetDefault("RATES_FILE", "")

	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig() // ignore error if no .env

	viper.AutomaticEnv()

	AppConfig = Config{
		Server: ServerConfig{
			Port:               viper.GetString("SERVER_PORT"),
			RateLimitPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("POSTGRES_HOST"),
			Port:     viper.GetInt("POSTGRES_PORT"),
			User:     viper.GetString("POSTGRES_USER"),
			Password: viper.GetString("POSTGRES_PASSWORD"),
			DBName:   viper.GetString("POSTGRES_DB"),
			SSLMode:  viper.GetString("POSTGRES_SSLMODE"),
		},
		Import: ImportConfig{
			ReportingCurrency:    strings.ToUpper(strings.TrimSpace(viper.GetString("REPORTING_CURRENCY"))),
			ZeroFeeBuyAsReferral: viper.GetBool("ZERO_FEE_BUY_AS_REFERRAL"),
			Parallel:             viper.GetInt("IMPORT_PARALLEL"),
			HeaderScan:           viper.GetInt("IMPORT_HEADER_SCAN"),
			RatesFile:            viper.GetString("RATES_FILE"),
		},
	}

	AppConfig.Postgres.URL = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		AppConfig.Postgres.User,
		AppConfig.Postgres.Password,
		AppConfig.Postgres.Host,
		AppConfig.Postgres.Port,
		AppConfig.Postgres.DBName,
		AppConfig.Postgres.SSLMode,
	)

	validateConfig()
}

// validateConfig ensures required variables are present and terminates
// the application if they are missing or malformed.
func validateConfig() {
	if problems := checkConfig(AppConfig); len(problems) > 0 {
		log.Fatalf("missing or invalid environment variables: %v\n", problems)
	}
}

// checkConfig lists the variables that are missing or invalid in cfg.
func checkConfig(cfg Config) []string {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "SERVER_PORT")
	}
	if cfg.Postgres.Host == "" {
		missing = append(missing, "POSTGRES_HOST")
	}
	if cfg.Postgres.Port == 0 {
		missing = append(missing, "POSTGRES_PORT")
	}
	if cfg.Postgres.User == "" {
		missing = append(missing, "POSTGRES_USER")
	}
	if cfg.Postgres.Password == "" {
		missing = append(missing, "POSTGRES_PASSWORD")
	}
	if cfg.Postgres.DBName == "" {
		missing = append(missing, "POSTGRES_DB")
	}
	if !currencyCode.MatchString(cfg.Import.ReportingCurrency) {
		missing = append(missing, "REPORTING_CURRENCY")
	}

	return missing
}
