package normalize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/logger"
)

const (
	defaultHeaderScan = 10
	maxParallelFiles  = 8
)

// FileResult is the outcome of normalizing one file. Records and failures are
// ordered by line number. Err holds the file-level failure (unrecognized
// format, unreadable file) and is nil when rows were processed.
type FileResult struct {
	File       string          `json:"file"`
	SourceName string          `json:"source_name,omitempty"`
	Grouping   string          `json:"grouping,omitempty"`
	Records    []models.Record `json:"records"`
	Failures   []RowFailure    `json:"failures"`
	Advisories []Advisory      `json:"advisories"`
	Error      string          `json:"error,omitempty"`
	Err        error           `json:"-"`
}

func (r *FileResult) setErr(err error) {
	r.Err = err
	r.Error = err.Error()
}

// Dispatcher resolves the format of a file and runs its row handler over
// every data row.
type Dispatcher struct {
	registry     *Registry
	policy       Policy
	headerScan   int
	newConverter func() Converter
	log          zerolog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithHeaderScan sets how many leading non-empty rows are tried as header.
func WithHeaderScan(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.headerScan = n
		}
	}
}

// WithConverterFactory sets the constructor of the per-file converter. A
// fresh converter (and therefore a fresh lookup cache) is created per file.
func WithConverterFactory(f func() Converter) Option {
	return func(d *Dispatcher) { d.newConverter = f }
}

// WithLogger replaces the dispatcher's component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// NewDispatcher returns a dispatcher over reg. Without a converter factory
// only amounts already in the reporting currency can be valued.
func NewDispatcher(reg *Registry, policy Policy, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:   reg,
		policy:     policy,
		headerScan: defaultHeaderScan,
		log:        logger.Component("dispatcher"),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Process normalizes the rows of one file. Row failures are collected in the
// result; the returned error is file-level: *UnrecognizedError when no header
// resolves, or the context error when ctx is done.
func (d *Dispatcher) Process(ctx context.Context, name string, rows []TableRow) (*FileResult, error) {
	start := time.Now()
	res := &FileResult{File: name, Records: []models.Record{}, Failures: []RowFailure{}, Advisories: []Advisory{}}

	f, caps, headerAt, err := d.resolveHeader(rows)
	if err != nil {
		d.log.Warn().Str("file", name).Err(err).Msg("unrecognized file")
		res.setErr(err)
		return res, err
	}
	res.SourceName, res.Grouping = f.SourceName, f.Grouping

	header := rows[headerAt].Cells
	index := headerIndex(header)
	var conv Converter
	if d.newConverter != nil {
		conv = d.newConverter()
	}
	rc := NewRowContext(ctx, f, caps, d.policy, conv)

	for _, tr := range rows[headerAt+1:] {
		select {
		case <-ctx.Done():
			res.setErr(ctx.Err())
			return res, ctx.Err()
		default:
		}

		if blank(tr.Cells) {
			continue
		}
		cells := trimTrailingEmpty(tr.Cells, len(header))
		if len(cells) != len(header) {
			d.fail(res, tr.Line, &UnexpectedContentError{
				Index:  -1,
				Reason: fmt.Sprintf("expected %d fields, got %d", len(header), len(cells)),
			})
			continue
		}

		row := newRawRow(header, index, cells, tr.Line)
		mark := len(rc.advisories)
		rec, err := runHandler(f.Handler, rc, row)
		if err != nil {
			// advisories of a row that produced no record are dropped
			rc.advisories = rc.advisories[:mark]
			d.fail(res, row.Line, err)
			continue
		}
		rec.Line = row.Line
		res.Records = append(res.Records, rec)
	}

	res.Advisories = append(res.Advisories, rc.advisories...)
	sort.SliceStable(res.Records, func(i, j int) bool { return res.Records[i].Line < res.Records[j].Line })
	sort.SliceStable(res.Failures, func(i, j int) bool { return res.Failures[i].Line < res.Failures[j].Line })
	sort.SliceStable(res.Advisories, func(i, j int) bool { return res.Advisories[i].Line < res.Advisories[j].Line })
	for _, a := range res.Advisories {
		d.log.Warn().
			Str("file", name).
			Int("line", a.Line).
			Str("kind", string(a.Kind)).
			Str("column", a.Column).
			Str("value", a.Value).
			Str("detail", a.Detail).
			Msg("row advisory")
	}

	d.log.Info().
		Str("file", name).
		Str("source", f.SourceName).
		Int("records", len(res.Records)).
		Int("failures", len(res.Failures)).
		Int("warnings", len(res.Advisories)).
		Dur("elapsed", time.Since(start)).
		Msg("file normalized")
	return res, nil
}

// ProcessFiles reads and normalizes paths concurrently, one worker per file
// and at most parallel at a time (0 picks min(NumCPU, 8)). File-level
// failures are reported in each result's Err; the returned error is only set
// when ctx is cancelled. Results keep the order of paths.
func (d *Dispatcher) ProcessFiles(ctx context.Context, paths []string, parallel int) ([]*FileResult, error) {
	results := make([]*FileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ParallelFiles(parallel))

	for i, p := range paths {
		g.Go(func() error {
			res, err := d.processPath(gctx, p)
			results[i] = res
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Dispatcher) processPath(ctx context.Context, path string) (*FileResult, error) {
	name := filepath.Base(path)
	res := &FileResult{File: name}
	fh, err := os.Open(path)
	if err != nil {
		res.setErr(fmt.Errorf("open: %w", err))
		return res, res.Err
	}
	defer func() { _ = fh.Close() }()

	rows, err := ReadTable(name, fh)
	if err != nil {
		d.log.Error().Str("file", name).Err(err).Msg("read failed")
		res.setErr(err)
		return res, err
	}
	return d.Process(ctx, name, rows)
}

// ParallelFiles clamps a requested worker count: values <= 0 pick
// min(NumCPU, 8), larger values are capped at 8.
func ParallelFiles(parallel int) int {
	if parallel > 0 {
		return min(parallel, maxParallelFiles)
	}
	return min(runtime.NumCPU(), maxParallelFiles)
}

// resolveHeader tries the first headerScan non-empty rows as header.
func (d *Dispatcher) resolveHeader(rows []TableRow) (*Format, Captures, int, error) {
	var firstErr error
	tried := 0
	for i, tr := range rows {
		if tried >= d.headerScan {
			break
		}
		if blank(tr.Cells) {
			continue
		}
		tried++
		f, caps, err := d.registry.Resolve(tr.Cells)
		if err == nil {
			return f, caps, i, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = &UnrecognizedError{}
	}
	return nil, nil, -1, firstErr
}

func (d *Dispatcher) fail(res *FileResult, line int, err error) {
	rf := NewRowFailure(line, err)
	var recErr *InvalidRecordError
	if errors.As(err, &recErr) {
		d.log.Error().Str("file", res.File).Int("line", line).Str("invariant", recErr.Invariant).Msg("record invariant violated")
	} else {
		d.log.Warn().Str("file", res.File).Int("line", line).Str("kind", string(rf.Kind)).Str("detail", rf.Detail).Msg("row failed")
	}
	res.Failures = append(res.Failures, rf)
}

// runHandler turns a handler panic into an InvalidRecordError so the rest
// of the file is still processed.
func runHandler(h RowHandler, rc *RowContext, row *RawRow) (rec models.Record, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &InvalidRecordError{Invariant: fmt.Sprintf("row handler panic: %v", p)}
		}
	}()
	return h(rc, row)
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// trimTrailingEmpty drops empty cells beyond width; workbook rows are often
// padded past the last header column.
func trimTrailingEmpty(cells []string, width int) []string {
	n := len(cells)
	for n > width && strings.TrimSpace(cells[n-1]) == "" {
		n--
	}
	return cells[:n]
}
