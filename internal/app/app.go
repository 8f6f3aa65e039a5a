package app

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/cryptonorm/config"
	"github.com/guttosm/cryptonorm/internal/api"
	"github.com/guttosm/cryptonorm/internal/exchanges"
	"github.com/guttosm/cryptonorm/internal/logger"
	"github.com/guttosm/cryptonorm/internal/middleware"
	"github.com/guttosm/cryptonorm/internal/normalize"
	"github.com/guttosm/cryptonorm/internal/pricing"
	"github.com/guttosm/cryptonorm/internal/service"
	"github.com/guttosm/cryptonorm/internal/storage"
)

// NewRateSource picks where exchange rates come from: the JSON table named by
// RATES_FILE when set, otherwise the fx_rates table behind db. It returns nil
// when neither is available, so only reporting-currency amounts get values.
// A table whose base is not the reporting currency is rejected.
func NewRateSource(cfg config.Config, db *sql.DB) (pricing.RateSource, error) {
	if cfg.Import.RatesFile != "" {
		t, err := pricing.LoadTable(cfg.Import.RatesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rate table: %w", err)
		}
		if !strings.EqualFold(t.Base, cfg.Import.ReportingCurrency) {
			return nil, fmt.Errorf("rate table base %s does not match reporting currency %s", t.Base, cfg.Import.ReportingCurrency)
		}
		return t, nil
	}
	if db != nil {
		return storage.NewRatesRepository(db), nil
	}
	return nil, nil
}

// NewDispatcher builds the normalization pipeline for reg from the import
// policy in cfg. rates may be nil.
func NewDispatcher(cfg config.Config, reg *normalize.Registry, rates pricing.RateSource) *normalize.Dispatcher {
	policy := normalize.Policy{
		ReportingCurrency:    cfg.Import.ReportingCurrency,
		ZeroFeeBuyAsReferral: cfg.Import.ZeroFeeBuyAsReferral,
	}
	opts := []normalize.Option{normalize.WithHeaderScan(cfg.Import.HeaderScan)}
	if rates != nil {
		opts = append(opts, normalize.WithConverterFactory(pricing.Factory(rates, policy.ReportingCurrency)))
	}
	return normalize.NewDispatcher(reg, policy, opts...)
}

// InitializeService connects to PostgreSQL and builds the import service.
//
// Returns:
//   - service.ImportService: service backed by Postgres.
//   - storage.ImportsRepository: the repository, for readiness checks.
//   - func(): cleanup closing the database.
//   - error: any initialization error that occurred.
func InitializeService() (service.ImportService, storage.ImportsRepository, func(), error) {
	cfg := config.AppConfig

	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rates, err := NewRateSource(cfg, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, err
	}

	reg := exchanges.NewRegistry()
	repo := storage.NewImportsRepository(db)
	svc := service.NewImportService(repo, reg, NewDispatcher(cfg, reg, rates))

	logger.L().Info().
		Int("formats", len(reg.Formats())).
		Str("reporting_currency", cfg.Import.ReportingCurrency).
		Bool("rates_file", cfg.Import.RatesFile != "").
		Msg("import service ready")

	cleanup := func() {
		_ = db.Close()
	}
	return svc, repo, cleanup, nil
}

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Builds the import service with InitializeService().
//   - Applies the per-client rate limit from configuration.
//   - Configures the Gin router with all API routes.
//   - Registers health and readiness probes.
func InitializeApp() (*gin.Engine, func(), error) {
	svc, repo, cleanup, err := InitializeService()
	if err != nil {
		return nil, nil, err
	}

	middleware.SetRateLimit(config.AppConfig.Server.RateLimitPerMinute, time.Minute)
	router := api.NewRouter(api.NewHandler(svc))
	api.NewHealthHandler(repo.Ping).Register(router)

	return router, cleanup, nil
}
