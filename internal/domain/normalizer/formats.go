package normalizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
)

var (
	// ErrUnknownFormat is returned for a format name that is not supported.
	ErrUnknownFormat = errors.New("unknown file format")
	// ErrFormatSide is returned when a fixed layout is used for the wrong side.
	ErrFormatSide = errors.New("format not valid for side")
)

// Format names a supported statement layout.
type Format string

const (
	FormatGeneric Format = "GENERIC"
	FormatSicoob  Format = "SICOOB"
	FormatSicredi Format = "SICREDI"
	FormatERP     Format = "ERP"
)

// formatAliases maps accepted spellings to formats.
var formatAliases = map[string]Format{
	"GENERIC": FormatGeneric,
	"PADRAO":  FormatGeneric,
	"PADRÃO":  FormatGeneric,
	"SICOOB":  FormatSicoob,
	"SICREDI": FormatSicredi,
	"ERP":     FormatERP,
}

// formatSides lists the sides a format may be used for. GENERIC is absent
// because it works for both.
var formatSides = map[Format]ledger.Side{
	FormatSicoob:  ledger.SideBank,
	FormatSicredi: ledger.SideBank,
	FormatERP:     ledger.SideInternal,
}

// ParseFormat resolves a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f, ok := formatAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
	return f, nil
}

// DefaultFormat returns the format assumed when the caller names none.
func DefaultFormat(side ledger.Side) Format {
	if side == ledger.SideInternal {
		return FormatERP
	}
	return FormatGeneric
}

// CheckSide verifies the format can be used for the side.
func (f Format) CheckSide(side ledger.Side) error {
	if _, ok := detectorsFor[f]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
	}
	if want, fixed := formatSides[f]; fixed && want != side {
		return fmt.Errorf("%w: %s is a %s format", ErrFormatSide, f, want)
	}
	return nil
}
