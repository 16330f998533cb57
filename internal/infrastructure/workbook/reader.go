// Package workbook reads uploaded statement files into normalizer grids and
// writes tabular reports.
package workbook

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/eshaffer321/reconcile-backend/internal/domain/normalizer"
)

// ErrUnsupportedFile is returned for file types that cannot be read.
var ErrUnsupportedFile = errors.New("unsupported file type")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Kind of a readable file, by extension.
type Kind string

const (
	KindXLSX Kind = "xlsx"
	KindCSV  Kind = "csv"
)

// KindOf returns the file kind for name.
func KindOf(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return KindXLSX, nil
	case ".csv", ".txt":
		return KindCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, name)
	}
}

// Read parses the first sheet of a workbook, or a delimited text file, into
// a grid. The kind is chosen from the file name.
func Read(name string, r io.Reader) (normalizer.Grid, error) {
	kind, err := KindOf(name)
	if err != nil {
		return nil, err
	}
	if kind == KindCSV {
		return ReadCSV(r)
	}
	return ReadXLSX(r)
}

// ReadXLSX reads the first sheet of an Office Open XML workbook. Cells
// stored as strings stay text; everything else that looks numeric becomes a
// number, which includes date cells (as serials).
func ReadXLSX(r io.Reader) (normalizer.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return normalizer.Grid{}, nil
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer rows.Close()

	var grid normalizer.Grid
	for rowNum := 1; rows.Next(); rowNum++ {
		values, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}

		cells := make([]normalizer.Cell, len(values))
		for i, v := range values {
			if v == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(i+1, rowNum)
			if err != nil {
				return nil, err
			}
			cellType, err := f.GetCellType(sheet, axis)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell %s: %w", axis, err)
			}
			cells[i] = toCell(v, cellType)
		}
		grid = append(grid, cells)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return grid, nil
}

func toCell(v string, cellType excelize.CellType) normalizer.Cell {
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return normalizer.TextCell(v)
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return normalizer.TimeCell(t)
		}
		return normalizer.TextCell(v)
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		return normalizer.NumberCell(n)
	}
	return normalizer.TextCell(v)
}

// ReadCSV reads a delimited text file. The delimiter is ';' when the first
// line has more semicolons than commas, ',' otherwise. Every cell is text.
func ReadCSV(r io.Reader) (normalizer.Grid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return normalizer.TextGrid(records), nil
}

func sniffDelimiter(sample []byte) rune {
	line, _, _ := bytes.Cut(sample, []byte("\n"))
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}
