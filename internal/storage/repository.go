package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/pricing"
)

// ImportsRepository defines contract for DB operations on imports and their
// records. Lookups return nil, nil when nothing matches.
type ImportsRepository interface {
	FindImportByChecksum(ctx context.Context, checksum string) (*models.Import, error)
	StoreImport(ctx context.Context, batch ImportBatch, replaces uuid.UUID) error
	GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error)
	ListRecords(ctx context.Context, importID uuid.UUID) ([]models.Record, error)
	Ping(ctx context.Context) error
}

// ImportBatch is everything stored for one import.
type ImportBatch struct {
	Import     *models.Import
	Records    []models.Record
	Failures   []models.StoredFailure
	Advisories []models.StoredAdvisory
}

type importsRepository struct {
	db *sql.DB
}

func NewImportsRepository(db *sql.DB) ImportsRepository {
	return &importsRepository{db: db}
}

const importColumns = `id, checksum, filename, source_name, source_group, record_count, failure_count, warning_count, imported_at`

var (
	transactionsCopy = pq.CopyIn(
		"transactions",
		"import_id",
		"line",
		"kind",
		"unmapped_reason",
		"occurred_at",
		"wallet",
		"buy_quantity",
		"buy_asset",
		"buy_value",
		"sell_quantity",
		"sell_asset",
		"sell_value",
		"fee_quantity",
		"fee_asset",
	)
	failuresCopy   = pq.CopyIn("row_failures", "import_id", "line", "kind", "column_name", "value", "detail")
	advisoriesCopy = pq.CopyIn("row_advisories", "import_id", "line", "kind", "column_name", "value", "detail")
)

func scanImport(row *sql.Row) (*models.Import, error) {
	var imp models.Import
	err := row.Scan(&imp.ID, &imp.Checksum, &imp.Filename, &imp.SourceName, &imp.Grouping,
		&imp.RecordCount, &imp.FailureCount, &imp.WarningCount, &imp.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// FindImportByChecksum returns the import of an identical file, if any.
func (r *importsRepository) FindImportByChecksum(ctx context.Context, checksum string) (*models.Import, error) {
	return scanImport(r.db.QueryRowContext(ctx, `SELECT `+importColumns+` FROM imports WHERE checksum = $1`, checksum))
}

// GetImport returns an import by id.
func (r *importsRepository) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	return scanImport(r.db.QueryRowContext(ctx, `SELECT `+importColumns+` FROM imports WHERE id = $1`, id))
}

func (r *importsRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// StoreImport writes the import summary with its records, failures and
// advisories in a single transaction. When replaces is not uuid.Nil that
// import is deleted in the same transaction, so a failed store leaves it in
// place. ImportedAt is set by the database and written back into
// batch.Import.
func (r *importsRepository) StoreImport(ctx context.Context, batch ImportBatch, replaces uuid.UUID) error {
	imp := batch.Import
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// Small optimization for bulk load
	if _, err := tx.ExecContext(ctx, `SET LOCAL synchronous_commit = OFF`); err != nil {
		return err
	}

	if replaces != uuid.Nil {
		// records, failures and advisories go with it
		if _, err := tx.ExecContext(ctx, `DELETE FROM imports WHERE id = $1`, replaces); err != nil {
			return fmt.Errorf("delete previous import: %w", err)
		}
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO imports (id, checksum, filename, source_name, source_group, record_count, failure_count, warning_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING imported_at
	`, imp.ID, imp.Checksum, imp.Filename, imp.SourceName, imp.Grouping,
		imp.RecordCount, imp.FailureCount, imp.WarningCount).Scan(&imp.ImportedAt)
	if err != nil {
		return fmt.Errorf("create import: %w", err)
	}

	if err := copyIn(ctx, tx, transactionsCopy, recordRows(imp.ID, batch.Records)); err != nil {
		return fmt.Errorf("copy transactions: %w", err)
	}
	if err := copyIn(ctx, tx, failuresCopy, failureRows(imp.ID, batch.Failures)); err != nil {
		return fmt.Errorf("copy failures: %w", err)
	}
	if err := copyIn(ctx, tx, advisoriesCopy, advisoryRows(imp.ID, batch.Advisories)); err != nil {
		return fmt.Errorf("copy advisories: %w", err)
	}

	return tx.Commit()
}

func recordRows(importID uuid.UUID, records []models.Record) [][]any {
	rows := make([][]any, len(records))
	for i, rec := range records {
		buyQty, buyAsset, buyValue := legValues(rec.Buy)
		sellQty, sellAsset, sellValue := legValues(rec.Sell)
		var feeQty, feeAsset any
		if rec.Fee != nil {
			feeQty, feeAsset = rec.Fee.Quantity, rec.Fee.Asset
		}
		rows[i] = []any{
			importID,
			rec.Line,
			string(rec.Kind),
			nullString(rec.UnmappedReason),
			rec.Timestamp,
			rec.Wallet,
			buyQty, buyAsset, buyValue,
			sellQty, sellAsset, sellValue,
			feeQty, feeAsset,
		}
	}
	return rows
}

func failureRows(importID uuid.UUID, failures []models.StoredFailure) [][]any {
	rows := make([][]any, len(failures))
	for i, f := range failures {
		rows[i] = []any{importID, f.Line, f.Kind, nullString(f.Column), nullString(f.Value), f.Detail}
	}
	return rows
}

func advisoryRows(importID uuid.UUID, advisories []models.StoredAdvisory) [][]any {
	rows := make([][]any, len(advisories))
	for i, a := range advisories {
		rows[i] = []any{importID, a.Line, a.Kind, nullString(a.Column), nullString(a.Value), a.Detail}
	}
	return rows
}

// copyIn streams rows through a COPY statement inside tx. Nothing is sent
// for an empty batch.
func copyIn(ctx context.Context, tx *sql.Tx, query string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return err
		}
	}
	_, err = stmt.ExecContext(ctx)
	return err
}

// ListRecords returns the records of an import ordered by line.
func (r *importsRepository) ListRecords(ctx context.Context, importID uuid.UUID) ([]models.Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT line, kind, unmapped_reason, occurred_at, wallet,
		       buy_quantity, buy_asset, buy_value,
		       sell_quantity, sell_asset, sell_value,
		       fee_quantity, fee_asset
		FROM transactions
		WHERE import_id = $1
		ORDER BY line
	`, importID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := []models.Record{}
	for rows.Next() {
		var (
			rec                         models.Record
			kind                        string
			reason                      sql.NullString
			buyQty, buyValue            decimal.NullDecimal
			sellQty, sellValue          decimal.NullDecimal
			feeQty                      decimal.NullDecimal
			buyAsset, sellAsset, feeCcy sql.NullString
		)
		if err := rows.Scan(&rec.Line, &kind, &reason, &rec.Timestamp, &rec.Wallet,
			&buyQty, &buyAsset, &buyValue,
			&sellQty, &sellAsset, &sellValue,
			&feeQty, &feeCcy); err != nil {
			return nil, err
		}
		rec.Kind = models.Kind(kind)
		rec.UnmappedReason = reason.String
		rec.Timestamp = rec.Timestamp.UTC()
		rec.Buy = legFrom(buyQty, buyAsset, buyValue)
		rec.Sell = legFrom(sellQty, sellAsset, sellValue)
		if feeQty.Valid {
			rec.Fee = &models.Fee{Quantity: feeQty.Decimal, Asset: feeCcy.String}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RatesRepository reads daily exchange rates from the fx_rates table. It
// implements pricing.RateSource.
type RatesRepository struct {
	db *sql.DB
}

func NewRatesRepository(db *sql.DB) *RatesRepository {
	return &RatesRepository{db: db}
}

// Rate returns the most recent rate on or before the day of at.
func (r *RatesRepository) Rate(ctx context.Context, currency string, at time.Time) (decimal.Decimal, error) {
	day := at.UTC().Format(time.DateOnly)
	var rate decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT rate FROM fx_rates
		WHERE currency = $1 AND rate_date <= $2
		ORDER BY rate_date DESC
		LIMIT 1
	`, currency, day).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", pricing.ErrRateNotFound, currency, day)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return rate, nil
}

func legValues(l *models.Leg) (qty, asset, value any) {
	if l == nil {
		return nil, nil, nil
	}
	return l.Quantity, l.Asset, l.Value
}

func legFrom(qty decimal.NullDecimal, asset sql.NullString, value decimal.NullDecimal) *models.Leg {
	if !qty.Valid {
		return nil
	}
	return &models.Leg{Quantity: qty.Decimal, Asset: asset.String, Value: value}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
