package normalizer

import "strings"

// MaxHeaderScanRows bounds header discovery to the top of the sheet.
const MaxHeaderScanRows = 10

// AmountLayout says how a row's amount is encoded.
type AmountLayout int

const (
	// AmountSingle is one column in plain Brazilian or dotted notation.
	AmountSingle AmountLayout = iota
	// AmountSignedSuffix is one column with a C/D marker, e.g. "1.234,56D".
	AmountSignedSuffix
	// AmountInflowOutflow splits credits and debits into two columns.
	AmountInflowOutflow
)

// ColumnMap locates the fields of an entry in a grid. Missing columns are -1.
type ColumnMap struct {
	FirstDataRow int
	Date         int
	Description  int
	SubGroup     int
	Amount       int
	Inflow       int
	Outflow      int
	AmountLayout AmountLayout
}

// Detector inspects a grid and returns its column map, or false when the
// grid does not look like the layout it knows.
type Detector func(grid Grid) (ColumnMap, bool)

// Keywords matches normalized (trimmed, lower-cased) header cells.
type Keywords struct {
	Equals   []string
	Contains []string
}

// Match reports whether a normalized header cell matches any keyword.
func (k Keywords) Match(cell string) bool {
	if cell == "" {
		return false
	}
	for _, kw := range k.Equals {
		if cell == kw {
			return true
		}
	}
	for _, kw := range k.Contains {
		if strings.Contains(cell, kw) {
			return true
		}
	}
	return false
}

// HeaderKeywords are the keyword sets used to find a header row.
// A header needs Date and Amount; Description and SubGroup are looked up.
type HeaderKeywords struct {
	Date        Keywords
	Description Keywords
	Amount      Keywords
	SubGroup    Keywords
}

var (
	// GenericHeader matches most bank and spreadsheet exports.
	GenericHeader = HeaderKeywords{
		Date:        Keywords{Contains: []string{"data", "date", "dia"}},
		Description: Keywords{Contains: []string{"descri", "hist", "lança", "detalhe"}},
		Amount:      Keywords{Contains: []string{"valor", "amount", "quantia"}},
		SubGroup:    Keywords{Contains: []string{"subgrupo", "sub-grupo", "sub grupo", "sub_group", "subgroup"}},
	}

	// SicrediHeader matches the Sicredi statement export.
	SicrediHeader = HeaderKeywords{
		Date:        Keywords{Equals: []string{"data"}},
		Description: Keywords{Contains: []string{"descrição"}},
		Amount:      Keywords{Contains: []string{"valor (r$)"}},
	}
)

// detectorsFor lists, per format, the detectors tried in order.
var detectorsFor = map[Format][]Detector{
	FormatGeneric: {HeaderDetector(GenericHeader)},
	FormatSicredi: {HeaderDetector(SicrediHeader), HeaderDetector(GenericHeader)},
	FormatSicoob: {FixedLayout(ColumnMap{
		FirstDataRow: 2,
		Date:         0,
		Description:  2,
		SubGroup:     -1,
		Amount:       3,
		Inflow:       -1,
		Outflow:      -1,
		AmountLayout: AmountSignedSuffix,
	})},
	FormatERP: {FixedLayout(ColumnMap{
		FirstDataRow: 2,
		Date:         0,
		Description:  7,
		SubGroup:     8,
		Amount:       -1,
		Inflow:       9,
		Outflow:      10,
		AmountLayout: AmountInflowOutflow,
	})},
}

// Detect runs the detectors in order; the first success wins.
func Detect(grid Grid, detectors ...Detector) (ColumnMap, bool) {
	for _, d := range detectors {
		if cm, ok := d(grid); ok {
			return cm, true
		}
	}
	return ColumnMap{}, false
}

// FixedLayout returns a detector that always yields cm.
func FixedLayout(cm ColumnMap) Detector {
	return func(Grid) (ColumnMap, bool) {
		return cm, true
	}
}

// HeaderDetector returns a detector that scans the first MaxHeaderScanRows
// rows for a header matching kw.
func HeaderDetector(kw HeaderKeywords) Detector {
	return func(grid Grid) (ColumnMap, bool) {
		limit := min(len(grid), MaxHeaderScanRows)
		for i := 0; i < limit; i++ {
			cells := normalizeHeader(grid[i])
			if cm, ok := matchHeader(cells, kw); ok {
				cm.FirstDataRow = i + 1
				return cm, true
			}
		}
		return ColumnMap{}, false
	}
}

func matchHeader(cells []string, kw HeaderKeywords) (ColumnMap, bool) {
	cm := ColumnMap{
		Date:         -1,
		Description:  -1,
		SubGroup:     -1,
		Amount:       -1,
		Inflow:       -1,
		Outflow:      -1,
		AmountLayout: AmountSingle,
	}
	taken := make(map[int]bool)

	find := func(k Keywords) int {
		for i, c := range cells {
			if !taken[i] && k.Match(c) {
				taken[i] = true
				return i
			}
		}
		return -1
	}

	// Order matters: a "Data Lançamento" cell must be taken as the date
	// before the description keywords see it.
	if cm.Date = find(kw.Date); cm.Date < 0 {
		return cm, false
	}
	if cm.Amount = find(kw.Amount); cm.Amount < 0 {
		return cm, false
	}
	// Date and amount make the header. Without a description column every
	// row is rejected later.
	cm.SubGroup = find(kw.SubGroup)
	cm.Description = find(kw.Description)
	return cm, true
}

func normalizeHeader(row []Cell) []string {
	out := make([]string, len(row))
	for i, c := range row {
		if c.Kind == CellText {
			out[i] = strings.ToLower(strings.TrimSpace(c.Text))
		}
	}
	return out
}
