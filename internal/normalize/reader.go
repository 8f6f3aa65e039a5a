package normalize

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
)

// maxWorkbookRows bounds how many rows are read from an .xls sheet.
const maxWorkbookRows = 1 << 20

// TableRow is one line of an input table with its 1-based line number in
// the source file.
type TableRow struct {
	Line  int
	Cells []string
}

// Rows numbers cells positionally, the first row being line 1.
func Rows(cells [][]string) []TableRow {
	out := make([]TableRow, len(cells))
	for i, c := range cells {
		out[i] = TableRow{Line: i + 1, Cells: c}
	}
	return out
}

// ReadTable reads every row of an export. Files named *.xls are read as
// workbooks (first sheet); everything else is read as comma separated text.
func ReadTable(name string, r io.ReadSeeker) ([]TableRow, error) {
	if strings.EqualFold(filepath.Ext(name), ".xls") {
		return readWorkbook(r)
	}
	return readCSV(r)
}

// readCSV keeps the physical line of every record; encoding/csv skips blank
// lines, so positions alone would drift.
func readCSV(r io.Reader) ([]TableRow, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1 // rows are checked against the header later

	var rows []TableRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, TableRow{Line: line, Cells: rec})
	}
	if len(rows) > 0 && len(rows[0].Cells) > 0 {
		rows[0].Cells[0] = strings.TrimPrefix(rows[0].Cells[0], "\ufeff")
	}
	return rows, nil
}

func readWorkbook(r io.ReadSeeker) ([]TableRow, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return Rows(wb.ReadAllCells(maxWorkbookRows)), nil
}
