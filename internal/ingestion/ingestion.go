package ingestion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/cryptonorm/internal/logger"
	"github.com/guttosm/cryptonorm/internal/normalize"
	"github.com/guttosm/cryptonorm/internal/service"
)

// inputExts are the file types picked up from a directory.
var inputExts = map[string]bool{".csv": true, ".xls": true}

// FileReport is the outcome of importing one file.
type FileReport struct {
	File       string               `json:"file"`
	ImportID   string               `json:"import_id,omitempty"`
	SourceName string               `json:"source_name,omitempty"`
	Records    int                  `json:"records"`
	Failures   int                  `json:"failures"`
	Warnings   int                  `json:"warnings"`
	Advisories []normalize.Advisory `json:"advisories,omitempty"`
	Skipped    bool                 `json:"skipped"`
	Error      string               `json:"error,omitempty"`
}

// Report summarizes a directory run. Files keep the sorted order of names.
type Report struct {
	Files    []FileReport `json:"files"`
	Imported int          `json:"imported"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
}

// ListInputFiles returns the .csv and .xls files of dir sorted by name.
func ListInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !inputExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

//   - dir:      directory containing exchange exports (.csv, .xls).
//   - svc:      import service that normalizes and stores each file.
//   - parallel: files processed at once; 0 picks min(NumCPU, 8).
//   - force:    re-import files whose content was already imported.
//
// Behavior:
//   - One worker per file, bounded by a semaphore.
//   - A failing file (unreadable, unrecognized, storage error) is recorded in
//     the report and does not stop the others.
//   - Only cancellation of ctx aborts the run.
//
// Returns:
//   - *Report: per-file outcome.
//   - error:   listing failure, no input files, or ctx error.
func ProcessDirectory(ctx context.Context, dir string, svc service.ImportService, parallel int, force bool) (*Report, error) {
	files, err := ListInputFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files in %s", dir)
	}

	maxParallel := normalize.ParallelFiles(parallel)
	logger.L().Info().Int("files", len(files)).Str("dir", dir).Int("max_parallel", maxParallel).Msg("ingestion start")

	report := &Report{Files: make([]FileReport, len(files))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxParallel)

	for i, file := range files {
		select {
		case sem <- struct{}{}:
		case <-gctx.Done():
			_ = g.Wait()
			return report, gctx.Err()
		}

		g.Go(func() error {
			defer func() { <-sem }()
			start := time.Now()
			base := filepath.Base(file)
			logger.L().Info().Int("idx", i+1).Int("total", len(files)).Str("file", base).Msg("file start")

			fr := importFile(gctx, svc, file, force)

			mu.Lock()
			report.Files[i] = fr
			mu.Unlock()

			if fr.Error != "" {
				if err := gctx.Err(); err != nil {
					return err
				}
				logger.L().Error().Str("file", base).Dur("elapsed", time.Since(start)).Str("error", fr.Error).Msg("file failed")
				return nil
			}
			logger.L().Info().
				Int("idx", i+1).
				Int("total", len(files)).
				Str("file", base).
				Int("records", fr.Records).
				Int("failures", fr.Failures).
				Bool("skipped", fr.Skipped).
				Dur("elapsed", time.Since(start)).
				Msg("file done")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, fr := range report.Files {
		switch {
		case fr.Error != "":
			report.Failed++
		case fr.Skipped:
			report.Skipped++
		default:
			report.Imported++
		}
	}
	logger.L().Info().Int("imported", report.Imported).Int("skipped", report.Skipped).Int("failed", report.Failed).Msg("ingestion done")
	return report, nil
}

func importFile(ctx context.Context, svc service.ImportService, path string, force bool) FileReport {
	fr := FileReport{File: filepath.Base(path)}
	content, err := os.ReadFile(path)
	if err != nil {
		fr.Error = err.Error()
		return fr
	}

	res, err := svc.Import(ctx, fr.File, content, force)
	if err != nil {
		var ue *normalize.UnrecognizedError
		if errors.As(err, &ue) {
			fr.Error = "unrecognized format"
		} else {
			fr.Error = err.Error()
		}
		return fr
	}

	fr.ImportID = res.Import.ID.String()
	fr.SourceName = res.Import.SourceName
	fr.Records = res.Import.RecordCount
	fr.Failures = res.Import.FailureCount
	fr.Warnings = res.Import.WarningCount
	fr.Skipped = res.Skipped
	if res.File != nil {
		fr.Advisories = res.File.Advisories
	}
	return fr
}
