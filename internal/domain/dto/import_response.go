package dto

import (
	"time"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/normalize"
)

// ImportSummary describes a stored import.
type ImportSummary struct {
	ID         string    `json:"id" example:"3fa85f64-5717-4562-b3fc-2c963f66afa6"`
	Filename   string    `json:"filename" example:"coinbase.csv"`
	Checksum   string    `json:"checksum"`
	SourceName string    `json:"source_name" example:"Coinbase"`
	Grouping   string    `json:"grouping" example:"Coinbase"`
	Records    int       `json:"records" example:"42"`
	Failures   int       `json:"failures" example:"1"`
	Warnings   int       `json:"warnings" example:"0"`
	ImportedAt time.Time `json:"imported_at"`
}

// NormalizeResponse is the classification of one file.
type NormalizeResponse struct {
	File       string                 `json:"file" example:"coinbase.csv"`
	SourceName string                 `json:"source_name" example:"Coinbase"`
	Grouping   string                 `json:"grouping" example:"Coinbase"`
	Records    []models.Record        `json:"records"`
	Failures   []normalize.RowFailure `json:"failures"`
	Advisories []normalize.Advisory   `json:"advisories"`
	Error      string                 `json:"error,omitempty"`
}

// ImportResponse is returned by POST /api/v1/imports. Result is omitted when
// the file had already been imported.
type ImportResponse struct {
	Import  ImportSummary      `json:"import"`
	Skipped bool               `json:"skipped"`
	Result  *NormalizeResponse `json:"result,omitempty"`
}

// RecordsResponse lists the stored records of an import.
type RecordsResponse struct {
	ImportID string          `json:"import_id"`
	Records  []models.Record `json:"records"`
}

// NewImportSummary maps a stored import.
func NewImportSummary(imp *models.Import) ImportSummary {
	return ImportSummary{
		ID:         imp.ID.String(),
		Filename:   imp.Filename,
		Checksum:   imp.Checksum,
		SourceName: imp.SourceName,
		Grouping:   imp.Grouping,
		Records:    imp.RecordCount,
		Failures:   imp.FailureCount,
		Warnings:   imp.WarningCount,
		ImportedAt: imp.ImportedAt,
	}
}

// NewNormalizeResponse maps a file result. Slices are never nil so they
// encode as [].
func NewNormalizeResponse(res *normalize.FileResult) NormalizeResponse {
	out := NormalizeResponse{
		File:       res.File,
		SourceName: res.SourceName,
		Grouping:   res.Grouping,
		Records:    res.Records,
		Failures:   res.Failures,
		Advisories: res.Advisories,
		Error:      res.Error,
	}
	if out.Records == nil {
		out.Records = []models.Record{}
	}
	if out.Failures == nil {
		out.Failures = []normalize.RowFailure{}
	}
	if out.Advisories == nil {
		out.Advisories = []normalize.Advisory{}
	}
	return out
}

// FormatResponse describes one recognized export layout.
type FormatResponse struct {
	SourceName string   `json:"source_name" example:"Coinbase"`
	Grouping   string   `json:"grouping" example:"Coinbase"`
	Category   string   `json:"category" example:"exchange"`
	Columns    []string `json:"columns"`
}

// NewFormatResponses maps the registry formats in resolution order.
func NewFormatResponses(formats []normalize.Format) []FormatResponse {
	out := make([]FormatResponse, len(formats))
	for i, f := range formats {
		cols := make([]string, len(f.Columns))
		for j, m := range f.Columns {
			cols[j] = m.String()
		}
		out[i] = FormatResponse{SourceName: f.SourceName, Grouping: f.Grouping, Category: f.Category, Columns: cols}
	}
	return out
}
