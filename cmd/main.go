package main

//
//  @title           cryptonorm API
//  @version         1.0
//  @description     Crypto exchange export normalization service.
//  @termsOfService  https://github.com/guttosm/cryptonorm
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/cryptonorm
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        imports
//  @tag.description Upload and inspect stored imports
//
//  @tag.name        normalize
//  @tag.description Classify exports without storing them
//
//  @tag.name        formats
//  @tag.description Recognized export layouts
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/cryptonorm/config"
	_ "github.com/guttosm/cryptonorm/docs" // swagger docs
	"github.com/guttosm/cryptonorm/internal/app"
	"github.com/guttosm/cryptonorm/internal/exchanges"
	"github.com/guttosm/cryptonorm/internal/ingestion"
	"github.com/guttosm/cryptonorm/internal/logger"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown gracefully terminates the HTTP server and cleans up resources
// when an OS interrupt signal (SIGINT, SIGTERM) is received.
//
// Parameters:
//   - ctx (context.Context): A context with timeout for graceful shutdown.
//   - server (*http.Server): The HTTP server instance to shut down.
//   - cleanup (func()): Cleanup callback to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// runImport normalizes every export in dir and stores the results, printing
// the per-file report to out.
func runImport(ctx context.Context, dir string, parallel int, force bool, out io.Writer) error {
	svc, _, cleanup, err := app.InitializeService()
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := ingestion.ProcessDirectory(ctx, dir, svc, parallel, force)
	if report != nil {
		if werr := writeJSON(out, report); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

// runNormalize classifies every export in dir without a database and writes
// the results as JSON to out. Rates come from RATES_FILE when set.
func runNormalize(ctx context.Context, cfg config.Config, dir string, parallel int, out io.Writer) error {
	files, err := ingestion.ListInputFiles(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files in %s", dir)
	}

	rates, err := app.NewRateSource(cfg, nil)
	if err != nil {
		return err
	}
	d := app.NewDispatcher(cfg, exchanges.NewRegistry(), rates)
	results, err := d.ProcessFiles(ctx, files, parallel)
	if err != nil {
		return err
	}
	return writeJSON(out, results)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// main is the entry point of the cryptonorm application.
//
// Modes (selected via --mode flag):
//   - import:    Normalizes every .csv/.xls export in --dir and stores it in Postgres.
//   - normalize: Same classification without a database; JSON result on stdout.
//   - api:       Starts the REST API.
//
// Flags:
//   - --mode:     Execution mode ("import", "normalize" or "api"). Default: "import".
//   - --dir:      Directory containing exchange exports. Default: "./data/input".
//   - --parallel: Files processed concurrently. Defaults to IMPORT_PARALLEL.
//   - --force:    Re-import files whose content was already imported.
//   - --port:     Port for the API server. Defaults to value from config (SERVER_PORT).
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration from environment or .env file
	config.LoadConfig()

	// Parse CLI flags (override config defaults if provided)
	mode := flag.String("mode", "import", "Mode: import, normalize or api")
	dir := flag.String("dir", "./data/input", "Directory with exchange exports (.csv, .xls)")
	parallel := flag.Int("parallel", config.AppConfig.Import.Parallel, "How many files to process concurrently (0=auto up to CPU, max 8)")
	force := flag.Bool("force", false, "Re-import files already imported (replaces the previous import)")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	// stdout carries the JSON result in normalize mode
	if *mode == "normalize" {
		_ = os.Setenv("LOG_OUTPUT", "stderr")
	}
	logger.Init()

	switch *mode {
	case "import":
		logger.L().Info().Str("dir", *dir).Msg("running import")
		if err := runImport(ctx, *dir, *parallel, *force, os.Stdout); err != nil {
			logger.L().Fatal().Err(err).Msg("import failed")
		}
		logger.L().Info().Msg("import completed successfully")

	case "normalize":
		if err := runNormalize(ctx, config.AppConfig, *dir, *parallel, os.Stdout); err != nil {
			logger.L().Fatal().Err(err).Msg("normalize failed")
		}

	case "api":
		logger.L().Info().Msg("starting API server")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, *port)
		stop() // gracefulShutdown installs its own signal handler
		gracefulShutdown(context.Background(), server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}
