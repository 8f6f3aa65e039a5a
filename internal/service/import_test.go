package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/cryptonorm/internal/domain/models"
	"github.com/guttosm/cryptonorm/internal/exchanges"
	"github.com/guttosm/cryptonorm/internal/normalize"
	"github.com/guttosm/cryptonorm/internal/storage"
)

// stubRepo keeps imports in maps. A failing StoreImport changes nothing, as
// a rolled back transaction would.
type stubRepo struct {
	byChecksum map[string]*models.Import
	imports    map[uuid.UUID]*models.Import
	records    map[uuid.UUID][]models.Record
	failures   map[uuid.UUID][]models.StoredFailure
	advisories map[uuid.UUID][]models.StoredAdvisory
	replaced   []uuid.UUID
	insertErr  error
	lookupErr  error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		byChecksum: map[string]*models.Import{},
		imports:    map[uuid.UUID]*models.Import{},
		records:    map[uuid.UUID][]models.Record{},
		failures:   map[uuid.UUID][]models.StoredFailure{},
		advisories: map[uuid.UUID][]models.StoredAdvisory{},
	}
}

func (s *stubRepo) FindImportByChecksum(_ context.Context, checksum string) (*models.Import, error) {
	return s.byChecksum[checksum], s.lookupErr
}
func (s *stubRepo) StoreImport(_ context.Context, b storage.ImportBatch, replaces uuid.UUID) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	if replaces != uuid.Nil {
		s.replaced = append(s.replaced, replaces)
		if imp, ok := s.imports[replaces]; ok {
			delete(s.byChecksum, imp.Checksum)
		}
		delete(s.imports, replaces)
		delete(s.records, replaces)
		delete(s.failures, replaces)
		delete(s.advisories, replaces)
	}
	imp := b.Import
	imp.ImportedAt = time.Now()
	s.byChecksum[imp.Checksum] = imp
	s.imports[imp.ID] = imp
	s.records[imp.ID] = b.Records
	if len(b.Failures) > 0 {
		s.failures[imp.ID] = b.Failures
	}
	if len(b.Advisories) > 0 {
		s.advisories[imp.ID] = b.Advisories
	}
	return nil
}
func (s *stubRepo) GetImport(_ context.Context, id uuid.UUID) (*models.Import, error) {
	return s.imports[id], s.lookupErr
}
func (s *stubRepo) ListRecords(_ context.Context, id uuid.UUID) ([]models.Record, error) {
	return s.records[id], nil
}
func (s *stubRepo) Ping(context.Context) error { return nil }

const coinbaseCSV = `Transactions
User,someone@example.com,abc
Timestamp,Transaction Type,Asset,Quantity Transacted,Price Currency,Price at Transaction,Subtotal,Total (inclusive of fees and/or spread),Fees and/or Spread,Notes
2024-03-01T10:00:00Z,Deposit,BTC,1.0,GBP,,,,0.01,
2024-03-02T10:00:00Z,Airdrop,BTC,1.0,GBP,,,,,
2024-03-03T10:00:00Z,Buy,BTC,0.01,GBP,£50000,£500.00,£505.00,£5.00,Bought 0.01 BTC for £500.00 GBP
`

func newService(repo *stubRepo) ImportService {
	reg := exchanges.NewRegistry()
	d := normalize.NewDispatcher(reg, normalize.Policy{ReportingCurrency: "GBP"})
	return NewImportService(repo, reg, d)
}

func TestImport_StoresRecordsAndFailures(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo)

	res, err := svc.Import(context.Background(), "coinbase.csv", []byte(coinbaseCSV), false)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Skipped || res.File == nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	imp := res.Import
	if imp.SourceName != "Coinbase" || imp.RecordCount != 2 || imp.FailureCount != 1 {
		t.Fatalf("unexpected import: %+v", imp)
	}
	if imp.Checksum != Checksum([]byte(coinbaseCSV)) || len(imp.Checksum) != 64 {
		t.Fatalf("checksum: %s", imp.Checksum)
	}
	if got := repo.records[imp.ID]; len(got) != 2 || got[0].Line != 4 || got[1].Line != 6 {
		t.Fatalf("records: %+v", got)
	}
	if f := repo.failures[imp.ID]; len(f) != 1 || f[0].Kind != "UnexpectedType" || f[0].Line != 5 {
		t.Fatalf("failures: %+v", f)
	}
}

func TestImport_Idempotent(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo)
	ctx := context.Background()

	first, err := svc.Import(ctx, "coinbase.csv", []byte(coinbaseCSV), false)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	again, err := svc.Import(ctx, "renamed.csv", []byte(coinbaseCSV), false)
	if err != nil || !again.Skipped || again.Import.ID != first.Import.ID {
		t.Fatalf("second import should be skipped: %+v %v", again, err)
	}

	forced, err := svc.Import(ctx, "coinbase.csv", []byte(coinbaseCSV), true)
	if err != nil || forced.Skipped || forced.Import.ID == first.Import.ID {
		t.Fatalf("forced import should replace: %+v %v", forced, err)
	}
	if len(repo.replaced) != 1 || repo.replaced[0] != first.Import.ID {
		t.Fatalf("previous import not replaced: %v", repo.replaced)
	}
	if _, ok := repo.imports[first.Import.ID]; ok || repo.byChecksum[forced.Import.Checksum] != forced.Import {
		t.Fatalf("checksum should point at the new import")
	}
}

func TestImport_ForcedReplaceKeepsPreviousOnStoreFailure(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo)
	ctx := context.Background()

	first, err := svc.Import(ctx, "coinbase.csv", []byte(coinbaseCSV), false)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}

	repo.insertErr = errors.New("disk full")
	if _, err := svc.Import(ctx, "coinbase.csv", []byte(coinbaseCSV), true); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("want store error, got %v", err)
	}

	kept, err := svc.GetImport(ctx, first.Import.ID)
	if err != nil || kept != first.Import {
		t.Fatalf("previous import lost: %+v %v", kept, err)
	}
	if repo.byChecksum[first.Import.Checksum] != first.Import || len(repo.records[first.Import.ID]) != 2 {
		t.Fatalf("previous import no longer reachable by checksum")
	}
}

func TestImport_ForcedReplaceOfUnrecognizedContentKeepsPrevious(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo)
	ctx := context.Background()
	const content = "a,b\n1,2\n"

	prev := &models.Import{ID: uuid.New(), Checksum: Checksum([]byte(content)), Filename: "old.csv"}
	repo.byChecksum[prev.Checksum] = prev
	repo.imports[prev.ID] = prev

	if _, err := svc.Import(ctx, "old.csv", []byte(content), true); !errors.Is(err, normalize.ErrUnrecognized) {
		t.Fatalf("want ErrUnrecognized, got %v", err)
	}
	if len(repo.replaced) != 0 || repo.imports[prev.ID] == nil {
		t.Fatalf("previous import should be untouched")
	}
}

func TestImport_StoresAdvisories(t *testing.T) {
	const export = `Timestamp,Transaction Type,Asset,Quantity Transacted,Price Currency,Price at Transaction,Subtotal,Total (inclusive of fees and/or spread),Fees and/or Spread,Notes
2024-03-03T10:00:00Z,Buy,BTC,0.01,GBP,£50000,£500.00,£505.00,£5.00,Bought 0.01 BTC for £500.00 GBP on BTC-EUR
`
	repo := newStubRepo()
	res, err := newService(repo).Import(context.Background(), "coinbase.csv", []byte(export), false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Import.WarningCount != 1 {
		t.Fatalf("warning count: %d", res.Import.WarningCount)
	}
	got := repo.advisories[res.Import.ID]
	if len(got) != 1 || got[0].Kind != string(normalize.AdvisoryCurrencyMismatch) || got[0].Line != 2 || got[0].Column != "Notes" {
		t.Fatalf("advisories: %+v", got)
	}
}

func TestImport_Failures(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  string
		repo     func() *stubRepo
		check    func(t *testing.T, err error, repo *stubRepo)
	}{
		{
			name:    "unrecognized",
			content: "a,b\n1,2\n",
			repo:    newStubRepo,
			check: func(t *testing.T, err error, repo *stubRepo) {
				if !errors.Is(err, normalize.ErrUnrecognized) {
					t.Fatalf("want ErrUnrecognized, got %v", err)
				}
				if len(repo.imports) != 0 {
					t.Fatalf("nothing should be stored")
				}
			},
		},
		{
			name:     "unreadable workbook",
			filename: "f.xls",
			content:  "not a workbook",
			repo:     newStubRepo,
			check: func(t *testing.T, err error, _ *stubRepo) {
				if !errors.Is(err, ErrUnreadableFile) {
					t.Fatalf("want ErrUnreadableFile, got %v", err)
				}
			},
		},
		{
			name:    "lookup error",
			content: coinbaseCSV,
			repo: func() *stubRepo {
				r := newStubRepo()
				r.lookupErr = errors.New("db down")
				return r
			},
			check: func(t *testing.T, err error, _ *stubRepo) {
				if err == nil || !strings.Contains(err.Error(), "db down") {
					t.Fatalf("want lookup error, got %v", err)
				}
			},
		},
		{
			name:    "store error leaves nothing behind",
			content: coinbaseCSV,
			repo: func() *stubRepo {
				r := newStubRepo()
				r.insertErr = errors.New("copy failed")
				return r
			},
			check: func(t *testing.T, err error, repo *stubRepo) {
				if err == nil {
					t.Fatalf("expected error")
				}
				if len(repo.imports) != 0 || len(repo.byChecksum) != 0 {
					t.Fatalf("nothing should be stored: %v", repo.imports)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := tc.repo()
			filename := tc.filename
			if filename == "" {
				filename = "f.csv"
			}
			_, err := newService(repo).Import(context.Background(), filename, []byte(tc.content), false)
			tc.check(t, err, repo)
		})
	}
}

func TestNormalize_DoesNotPersist(t *testing.T) {
	repo := newStubRepo()
	res, err := newService(repo).Normalize(context.Background(), "coinbase.csv", []byte(coinbaseCSV))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(res.Records) != 2 || len(res.Failures) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(repo.imports) != 0 {
		t.Fatalf("normalize must not store anything")
	}
}

func TestGetImportAndRecords(t *testing.T) {
	repo := newStubRepo()
	svc := newService(repo)
	ctx := context.Background()

	if _, err := svc.GetImport(ctx, uuid.New()); !errors.Is(err, ErrImportNotFound) {
		t.Fatalf("want ErrImportNotFound, got %v", err)
	}
	if _, err := svc.ListRecords(ctx, uuid.New()); !errors.Is(err, ErrImportNotFound) {
		t.Fatalf("want ErrImportNotFound, got %v", err)
	}

	res, err := svc.Import(ctx, "coinbase.csv", []byte(coinbaseCSV), false)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	recs, err := svc.ListRecords(ctx, res.Import.ID)
	if err != nil || len(recs) != 2 {
		t.Fatalf("records: %d %v", len(recs), err)
	}
	if len(svc.Formats()) == 0 {
		t.Fatalf("formats should be listed")
	}
}
