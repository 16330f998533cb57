package normalizer

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

func newTestNormalizer() *Normalizer {
	n := NewNormalizer(nil)
	seq := 0
	n.newID = func() string {
		seq++
		return fmt.Sprintf("e%d", seq)
	}
	return n
}

func amounts(entries []ledger.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Amount.StringFixed(2)
	}
	return out
}

func TestNormalize_GenericHeaderDiscovery(t *testing.T) {
	// Arrange
	grid := TextGrid([][]string{
		{"Extrato de conta corrente"},
		{""},
		{"Data", "Histórico", "Documento", "Valor"},
		{"10/01/2024", "PIX RECEBIDO", "123", "1.234,56"},
		{"11/01/2024", "TARIFA", "", "-12,90"},
		{"11/01/2024", "SALDO DO DIA", "", "1.221,66"},
		{"xx/01/2024", "BROKEN DATE", "", "10,00"},
		{"12/01/2024", "", "", "10,00"},
		{"12/01/2024", "ZERO", "", "0,00"},
		{"", "", "", ""},
	})

	// Act
	result, err := newTestNormalizer().Normalize(grid, FormatGeneric, ledger.SideBank, "owner-1")

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Detected)
	assert.Equal(t, 2, result.Accepted)
	assert.Equal(t, 4, result.Rejected)
	assert.Equal(t, []string{"1234.56", "-12.90"}, amounts(result.Entries))

	first := result.Entries[0]
	assert.Equal(t, "e1", first.ID)
	assert.Equal(t, "owner-1", first.OwnerID)
	assert.Equal(t, ledger.SideBank, first.Side)
	assert.Equal(t, ledger.NewDate(2024, time.January, 10), first.Date)
	assert.Equal(t, "PIX RECEBIDO", first.Description)
}

func TestNormalize_NoHeaderIsEmptyNotError(t *testing.T) {
	grid := TextGrid([][]string{
		{"foo", "bar"},
		{"10/01/2024", "100,00"},
	})

	result, err := newTestNormalizer().Normalize(grid, FormatGeneric, ledger.SideBank, "owner-1")

	require.NoError(t, err)
	assert.False(t, result.Detected)
	assert.True(t, result.Empty())
}

func TestNormalize_HeaderBeyondScanLimit(t *testing.T) {
	rows := make([][]string, MaxHeaderScanRows)
	for i := range rows {
		rows[i] = []string{"preamble"}
	}
	rows = append(rows, []string{"Date", "Description", "Amount"}, []string{"2024-01-10", "X", "5.00"})

	result, err := newTestNormalizer().Normalize(TextGrid(rows), FormatGeneric, ledger.SideBank, "owner-1")

	require.NoError(t, err)
	assert.False(t, result.Detected)
	assert.Empty(t, result.Entries)
}

func TestNormalize_GenericInternalWithSubGroup(t *testing.T) {
	grid := TextGrid([][]string{
		{"Date", "Sub Grupo", "Description", "Amount"},
		{"2024-01-10", "Invoice ABC1D23", "Tolls", "50.00"},
	})

	result, err := newTestNormalizer().Normalize(grid, FormatGeneric, ledger.SideInternal, "owner-1")

	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "Tolls", result.Entries[0].Description)
	assert.Equal(t, "Invoice ABC1D23", result.Entries[0].SubGroup)
}

func TestNormalize_Sicoob(t *testing.T) {
	grid := Grid{
		{TextCell("SICOOB - Extrato")},
		{TextCell("Data"), TextCell(""), TextCell("Histórico"), TextCell("Valor")},
		{TextCell("10/01/2024"), Cell{}, TextCell("COMPRA CARTAO"), TextCell("150,00D")},
		{TextCell("10/01/2024"), Cell{}, TextCell("CREDITO PIX"), TextCell("1.000,00C")},
		{NumberCell(45301), Cell{}, TextCell("ESTORNO"), NumberCell(-20.5)},
		{TextCell("10/01/2024"), Cell{}, TextCell("SALDO ANTERIOR"), TextCell("500,00C")},
	}

	result, err := newTestNormalizer().Normalize(grid, FormatSicoob, ledger.SideBank, "owner-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"-150.00", "1000.00", "-20.50"}, amounts(result.Entries))
	assert.Equal(t, ledger.NewDate(2024, time.January, 10), result.Entries[2].Date)
	assert.Equal(t, 1, result.Rejected)
}

func TestNormalize_Sicredi(t *testing.T) {
	grid := TextGrid([][]string{
		{"Cooperativa: 0101"},
		{"Data", "Descrição", "Documento", "Valor (R$)", "Saldo (R$)"},
		{"10/01/2024", "PAGAMENTO BOLETO", "99", "-300,00", "1.000,00"},
	})

	result, err := newTestNormalizer().Normalize(grid, FormatSicredi, ledger.SideBank, "owner-1")

	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "PAGAMENTO BOLETO", result.Entries[0].Description)
	assert.Equal(t, "-300.00", result.Entries[0].Amount.StringFixed(2))
}

func TestNormalize_ERPInflowOutflow(t *testing.T) {
	row := func(date, desc, sub, in, out string) []string {
		return []string{date, "", "", "", "", "", "", desc, sub, in, out}
	}
	grid := TextGrid([][]string{
		{"Relatório financeiro"},
		{"Data", "", "", "", "", "", "", "Descrição", "Subgrupo", "Entrada", "Saída"},
		row("10/01/2024", "Recebimento cliente", "Invoice ABC1D23", "50,00", ""),
		row("11/01/2024", "Fornecedor", "", "0", "120,00"),
		row("11/01/2024", "Fornecedor negativo", "", "", "-80,00"),
		row("12/01/2024", "Nada", "", "", ""),
	})

	result, err := newTestNormalizer().Normalize(grid, FormatERP, ledger.SideInternal, "owner-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"50.00", "-120.00", "-80.00"}, amounts(result.Entries))
	assert.Equal(t, "Invoice ABC1D23", result.Entries[0].SubGroup)
	assert.Equal(t, ledger.SideInternal, result.Entries[0].Side)
	assert.Equal(t, 1, result.Rejected)
}

func TestNormalize_FormatErrors(t *testing.T) {
	n := newTestNormalizer()

	_, err := n.Normalize(nil, FormatERP, ledger.SideBank, "owner-1")
	assert.ErrorIs(t, err, ErrFormatSide)

	_, err = n.Normalize(nil, FormatSicoob, ledger.SideInternal, "owner-1")
	assert.ErrorIs(t, err, ErrFormatSide)

	_, err = n.Normalize(nil, Format("OFX"), ledger.SideBank, "owner-1")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestNormalize_SanitizesDescriptions(t *testing.T) {
	grid := TextGrid([][]string{
		{"Data", "Descrição", "Valor"},
		{"10/01/2024", "<b>PIX</b>   Jo&atilde;o <script>x</script>", "10,00"},
	})

	result, err := newTestNormalizer().Normalize(grid, FormatGeneric, ledger.SideBank, "owner-1")

	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "PIX João", result.Entries[0].Description)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"generic", FormatGeneric},
		{"padrao", FormatGeneric},
		{" Sicoob ", FormatSicoob},
		{"SICREDI", FormatSicredi},
		{"erp", FormatERP},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)

	assert.Equal(t, FormatERP, DefaultFormat(ledger.SideInternal))
	assert.Equal(t, FormatGeneric, DefaultFormat(ledger.SideBank))
}

func TestDetect_FirstSuccessWins(t *testing.T) {
	never := func(Grid) (ColumnMap, bool) { return ColumnMap{}, false }
	fixed := FixedLayout(ColumnMap{FirstDataRow: 3})

	cm, ok := Detect(nil, never, fixed, FixedLayout(ColumnMap{FirstDataRow: 9}))

	require.True(t, ok)
	assert.Equal(t, 3, cm.FirstDataRow)

	_, ok = Detect(nil, never)
	assert.False(t, ok)
}

func TestHeaderDetector_DateColumnTakenFirst(t *testing.T) {
	grid := TextGrid([][]string{
		{"Data Lançamento", "Histórico", "Valor"},
	})

	cm, ok := HeaderDetector(GenericHeader)(grid)

	require.True(t, ok)
	assert.Equal(t, 0, cm.Date)
	assert.Equal(t, 1, cm.Description)
	assert.Equal(t, 2, cm.Amount)
	assert.Equal(t, -1, cm.SubGroup)
	assert.Equal(t, 1, cm.FirstDataRow)
}

func TestHeaderDetector_MissingDescription(t *testing.T) {
	grid := TextGrid([][]string{{"Data", "Valor"}})

	cm, ok := HeaderDetector(GenericHeader)(grid)

	require.True(t, ok)
	assert.Equal(t, 0, cm.Date)
	assert.Equal(t, 1, cm.Amount)
	assert.Equal(t, -1, cm.Description)
}

func TestNormalize_FirstDateAmountRowIsHeader(t *testing.T) {
	// The first row qualifies even though a fuller header follows.
	grid := TextGrid([][]string{
		{"Data", "Valor"},
		{"10/01/2024", "100,00"},
		{"Data", "Descrição", "Valor"},
		{"11/01/2024", "PIX", "50,00"},
	})

	result, err := newTestNormalizer().Normalize(grid, FormatGeneric, ledger.SideBank, "owner-1")

	require.NoError(t, err)
	assert.True(t, result.Detected)
	assert.True(t, result.Empty())
	assert.Zero(t, result.Accepted)
	assert.Equal(t, 3, result.Rejected)
}

func TestResult_AmountsStayDecimal(t *testing.T) {
	grid := TextGrid([][]string{
		{"Data", "Descrição", "Valor"},
		{"10/01/2024", "A", "0,10"},
		{"10/01/2024", "B", "0,20"},
	})

	result, err := newTestNormalizer().Normalize(grid, FormatGeneric, ledger.SideBank, "owner-1")

	require.NoError(t, err)
	sum := result.Entries[0].Amount.Add(result.Entries[1].Amount)
	assert.True(t, sum.Equal(decimal.RequireFromString("0.30")))
}
