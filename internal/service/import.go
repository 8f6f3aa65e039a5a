package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/logger"
	"github.com/guttosm/cryptonorm/internal/normalize"
	"github.com/guttosm/cryptonorm/internal/storage"
)

var (
	// ErrImportNotFound is returned when an import id is unknown.
	ErrImportNotFound = errors.New("import not found")
	// ErrUnreadableFile wraps failures to parse a file as CSV or workbook.
	ErrUnreadableFile = errors.New("unreadable file")
)

// ImportResult is the outcome of Import. When Skipped is set the file had
// already been imported and File is nil.
type ImportResult struct {
	Import  *models.Import
	Skipped bool
	File    *normalize.FileResult
}

// ImportService defines business logic for normalizing and storing exports.
type ImportService interface {
	Import(ctx context.Context, filename string, content []byte, force bool) (*ImportResult, error)
	Normalize(ctx context.Context, filename string, content []byte) (*normalize.FileResult, error)
	GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error)
	ListRecords(ctx context.Context, id uuid.UUID) ([]models.Record, error)
	Formats() []normalize.Format
}

type importService struct {
	repo       storage.ImportsRepository
	dispatcher *normalize.Dispatcher
	registry   *normalize.Registry
	log        zerolog.Logger
}

func NewImportService(repo storage.ImportsRepository, reg *normalize.Registry, d *normalize.Dispatcher) ImportService {
	return &importService{repo: repo, dispatcher: d, registry: reg, log: logger.Component("import")}
}

// Checksum is the hex SHA-256 of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Normalize classifies a file without storing anything. A file-level failure
// is returned as the error together with the partial result.
func (s *importService) Normalize(ctx context.Context, filename string, content []byte) (*normalize.FileResult, error) {
	rows, err := normalize.ReadTable(filename, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrUnreadableFile, filename, err)
	}
	return s.dispatcher.Process(ctx, filename, rows)
}

// Import normalizes a file and stores its records, failures and advisories.
// Identical content is only imported once unless force is set, in which case
// the previous import is replaced once the new one is stored.
func (s *importService) Import(ctx context.Context, filename string, content []byte, force bool) (*ImportResult, error) {
	checksum := Checksum(content)

	existing, err := s.repo.FindImportByChecksum(ctx, checksum)
	if err != nil {
		return nil, fmt.Errorf("lookup import: %w", err)
	}
	if existing != nil && !force {
		s.log.Info().Str("file", filename).Str("import_id", existing.ID.String()).Msg("already imported, skipping")
		return &ImportResult{Import: existing, Skipped: true}, nil
	}

	res, err := s.Normalize(ctx, filename, content)
	if err != nil {
		return nil, err
	}

	imp := &models.Import{
		ID:           uuid.New(),
		Checksum:     checksum,
		Filename:     filename,
		SourceName:   res.SourceName,
		Grouping:     res.Grouping,
		RecordCount:  len(res.Records),
		FailureCount: len(res.Failures),
		WarningCount: len(res.Advisories),
	}
	var replaces uuid.UUID
	if existing != nil {
		replaces = existing.ID
	}
	if err := s.repo.StoreImport(ctx, newBatch(imp, res), replaces); err != nil {
		return nil, fmt.Errorf("store import: %w", err)
	}

	ev := s.log.Info().
		Str("file", filename).
		Str("import_id", imp.ID.String()).
		Int("records", imp.RecordCount).
		Int("failures", imp.FailureCount).
		Int("warnings", imp.WarningCount)
	if existing != nil {
		ev = ev.Str("replaced", existing.ID.String())
	}
	ev.Msg("import stored")
	return &ImportResult{Import: imp, File: res}, nil
}

func newBatch(imp *models.Import, res *normalize.FileResult) storage.ImportBatch {
	b := storage.ImportBatch{
		Import:     imp,
		Records:    res.Records,
		Failures:   make([]models.StoredFailure, len(res.Failures)),
		Advisories: make([]models.StoredAdvisory, len(res.Advisories)),
	}
	for i, f := range res.Failures {
		b.Failures[i] = models.StoredFailure{Line: f.Line, Kind: string(f.Kind), Column: f.Column, Value: f.Value, Detail: f.Detail}
	}
	for i, a := range res.Advisories {
		b.Advisories[i] = models.StoredAdvisory{Line: a.Line, Kind: string(a.Kind), Column: a.Column, Value: a.Value, Detail: a.Detail}
	}
	return b
}

func (s *importService) GetImport(ctx context.Context, id uuid.UUID) (*models.Import, error) {
	imp, err := s.repo.GetImport(ctx, id)
	if err != nil {
		return nil, err
	}
	if imp == nil {
		return nil, ErrImportNotFound
	}
	return imp, nil
}

func (s *importService) ListRecords(ctx context.Context, id uuid.UUID) ([]models.Record, error) {
	if _, err := s.GetImport(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListRecords(ctx, id)
}

// Formats returns the registered formats in resolution order.
func (s *importService) Formats() []normalize.Format {
	return s.registry.Formats()
}
