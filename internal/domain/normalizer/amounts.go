package normalizer

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a plain amount cell. Strings may use Brazilian notation
// ("R$ 1.234,56") or a dotted decimal ("1234.56"). Anything unparsable is
// zero, which the caller discards.
func ParseAmount(c Cell) decimal.Decimal {
	switch c.Kind {
	case CellNumber:
		return decimal.NewFromFloat(c.Number)
	case CellText:
		return parseAmountText(c.Text)
	default:
		return decimal.Zero
	}
}

// ParseSignedAmount parses an amount with a credit/debit marker. The
// magnitude follows the ParseAmount rules. A trailing D or a leading minus
// makes it negative; a trailing C makes it positive and is applied last, so
// "-100,00C" is a credit.
func ParseSignedAmount(c Cell) decimal.Decimal {
	switch c.Kind {
	case CellNumber:
		return decimal.NewFromFloat(c.Number)
	case CellText:
	default:
		return decimal.Zero
	}

	s := strings.ToUpper(strings.TrimSpace(c.Text))
	debit := strings.HasSuffix(s, "D") || strings.HasPrefix(s, "-")
	credit := strings.HasSuffix(s, "C")

	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || r == ',' || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	amount := parseAmountText(b.String())
	if debit {
		amount = amount.Abs().Neg()
	}
	if credit {
		amount = amount.Abs()
	}
	return amount
}

func parseAmountText(s string) decimal.Decimal {
	cleaned := strings.ReplaceAll(s, "R$", "")
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, cleaned)

	hasComma := strings.Contains(cleaned, ",")
	switch {
	case hasComma && strings.Contains(cleaned, "."):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// FormatAmount renders an amount in Brazilian notation, "-1.234,56".
// ParseAmount reads it back unchanged.
func FormatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// FormatSignedAmount renders an amount with a C/D marker, "1.234,56D".
// ParseSignedAmount reads it back unchanged.
func FormatSignedAmount(d decimal.Decimal) string {
	marker := "C"
	if d.IsNegative() {
		marker = "D"
	}
	return FormatAmount(d.Abs()) + marker
}
