//go:build integration
// +build integration

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	goose "github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/pricing"
)

// startPostgres spins up a Postgres container and returns a DSN and terminate func.
func startPostgres(t *testing.T) (dsn string, terminate func()) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "cryptonorm",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
		},
		WaitingFor: wait.ForSQL("5432/tcp", "postgres", func(host string, port nat.Port) string {
			return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=cryptonorm sslmode=disable", host, port.Port())
		}).WithStartupTimeout(60 * time.Second),
	}

	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", "postgres", "postgres", host, port.Port(), "cryptonorm")
	terminate = func() { _ = container.Terminate(context.Background()) }
	return dsn, terminate
}

func openDB(t *testing.T, dsn string) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
	return db
}

func runMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	if err := goose.SetDialect("postgres"); err != nil {
		t.Fatalf("dialect: %v", err)
	}
	// migrations path relative to this test file (internal/storage → ../../db/migrations)
	path := filepath.Join("..", "..", "db", "migrations")
	if err := goose.Up(db, path); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
}

func TestRepository_Integration(t *testing.T) {
	dsn, terminate := startPostgres(t)
	defer terminate()
	db := openDB(t, dsn)
	defer db.Close()
	runMigrations(t, db)

	ctx := context.Background()
	repo := NewImportsRepository(db)
	imp := &models.Import{ID: uuid.New(), Checksum: strings.Repeat("a", 64), Filename: "coinbase.csv", SourceName: "Coinbase", Grouping: "Coinbase", RecordCount: 2, FailureCount: 1, WarningCount: 1}
	batch := ImportBatch{
		Import:     imp,
		Records:    sampleRecords(),
		Failures:   []models.StoredFailure{{Line: 4, Kind: "UnexpectedType", Column: "Transaction Type", Value: "Airdrop", Detail: "unrecognised"}},
		Advisories: []models.StoredAdvisory{{Line: 2, Kind: "CurrencyMismatchWarning", Column: "Notes", Detail: "EUR amount/fee is not available"}},
	}
	count := func(t *testing.T, table string, id uuid.UUID) int {
		t.Helper()
		var n int
		if err := db.QueryRow("SELECT COUNT(*) FROM "+table+" WHERE import_id=$1", id).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		return n
	}

	t.Run("store and find", func(t *testing.T) {
		if err := repo.StoreImport(ctx, batch, uuid.Nil); err != nil {
			t.Fatalf("store: %v", err)
		}
		got, err := repo.FindImportByChecksum(ctx, imp.Checksum)
		if err != nil || got == nil || got.ID != imp.ID || got.WarningCount != 1 {
			t.Fatalf("find: %+v %v", got, err)
		}
		missing, err := repo.GetImport(ctx, uuid.New())
		if err != nil || missing != nil {
			t.Fatalf("unknown id: %+v %v", missing, err)
		}
		if count(t, "row_failures", imp.ID) != 1 || count(t, "row_advisories", imp.ID) != 1 {
			t.Fatalf("failures and advisories not stored")
		}
	})

	t.Run("records round trip", func(t *testing.T) {
		recs, err := repo.ListRecords(ctx, imp.ID)
		if err != nil || len(recs) != 2 {
			t.Fatalf("list: %d %v", len(recs), err)
		}
		if !recs[0].Buy.Quantity.Equal(decimal.RequireFromString("0.01")) || recs[0].Fee.Asset != "GBP" {
			t.Fatalf("trade not restored: %+v", recs[0])
		}
		if recs[1].Label() != "Unmapped(Duplicate)" {
			t.Fatalf("label: %s", recs[1].Label())
		}
	})

	t.Run("failed replace keeps previous import", func(t *testing.T) {
		bad := batch
		bad.Import = &models.Import{ID: uuid.New(), Checksum: imp.Checksum, Filename: "again.csv", SourceName: "Coinbase", Grouping: "Coinbase"}
		// duplicate line numbers break the transactions primary key
		bad.Records = append(sampleRecords(), sampleRecords()...)
		if err := repo.StoreImport(ctx, bad, imp.ID); err == nil {
			t.Fatalf("expected store error")
		}
		got, err := repo.FindImportByChecksum(ctx, imp.Checksum)
		if err != nil || got == nil || got.ID != imp.ID {
			t.Fatalf("previous import lost: %+v %v", got, err)
		}
		if count(t, "transactions", imp.ID) != 2 {
			t.Fatalf("previous records lost")
		}
	})

	t.Run("replace cascades", func(t *testing.T) {
		next := batch
		next.Import = &models.Import{ID: uuid.New(), Checksum: imp.Checksum, Filename: "again.csv", SourceName: "Coinbase", Grouping: "Coinbase", RecordCount: 2}
		next.Failures, next.Advisories = nil, nil
		if err := repo.StoreImport(ctx, next, imp.ID); err != nil {
			t.Fatalf("replace: %v", err)
		}
		for _, table := range []string{"transactions", "row_failures", "row_advisories"} {
			if n := count(t, table, imp.ID); n != 0 {
				t.Fatalf("expected 0 %s rows after replace, got %d", table, n)
			}
		}
		if count(t, "transactions", next.Import.ID) != 2 {
			t.Fatalf("new records not stored")
		}
	})

	t.Run("rates", func(t *testing.T) {
		if _, err := db.Exec(`INSERT INTO fx_rates (currency, rate_date, rate) VALUES ('USD', '2024-01-02', 0.79), ('USD', '2024-01-04', 0.80)`); err != nil {
			t.Fatalf("seed rates: %v", err)
		}
		rates := NewRatesRepository(db)
		cases := []struct {
			at   time.Time
			want string
		}{
			{time.Date(2024, 1, 2, 23, 0, 0, 0, time.UTC), "0.79"},
			{time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC), "0.79"},
			{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "0.80"},
		}
		for _, c := range cases {
			got, err := rates.Rate(ctx, "USD", c.at)
			if err != nil || !got.Equal(decimal.RequireFromString(c.want)) {
				t.Fatalf("rate at %s: %s %v", c.at, got, err)
			}
		}
		if _, err := rates.Rate(ctx, "USD", time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)); !errors.Is(err, pricing.ErrRateNotFound) {
			t.Fatalf("want ErrRateNotFound, got %v", err)
		}
	})
}
