// Package spreadsheet reads transaction and registry exports and writes the
// exception workbook.
package spreadsheet

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/iho/ledgerimport/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Reader loads the first sheet of a workbook, or a semicolon-separated
// export, as 1-indexed records. The header row is dropped.
type Reader struct {
	comma rune
}

// NewReader creates a new Reader.
func NewReader() *Reader {
	return &Reader{comma: ';'}
}

// ReadRows implements usecase.RowReader.
func (r *Reader) ReadRows(ctx context.Context, path string) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputMissing, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInputMissing, path)
	}

	var rows [][]string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".xls":
		rows, err = readXLS(path)
	case ".csv", ".txt":
		rows, err = r.readCSV(path)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", domain.ErrInputMalformed, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInputMalformed, filepath.Base(path), err)
	}

	if len(rows) <= 1 {
		return []domain.Record{}, nil
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, domain.Record(row))
	}
	return records, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	// raw values keep date serials and unformatted numbers
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readXLS(path string) (rows [][]string, err error) {
	// the BIFF decoder panics on some truncated streams
	defer func() {
		if rec := recover(); rec != nil {
			rows, err = nil, fmt.Errorf("corrupt xls workbook: %v", rec)
		}
	}()

	workbook, err := xls.OpenFile(path)
	if err != nil {
		return nil, err
	}
	if workbook.GetNumberSheets() == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, err
	}

	n := int(sheet.GetNumberRows())
	for i := 0; i < n; i++ {
		row, err := sheet.GetRow(i)
		if err != nil || row == nil {
			rows = append(rows, nil)
			continue
		}

		var record []string
		for _, col := range row.GetCols() {
			if col == nil {
				record = append(record, "")
				continue
			}
			record = append(record, col.GetString())
		}
		rows = append(rows, record)
	}

	return rows, nil
}

func (r *Reader) readCSV(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		// legacy ERP exports are ISO-8859-1
		src = transform.NewReader(src, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(src)
	cr.Comma = r.comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	return cr.ReadAll()
}
