package notify

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBRL renders a value as Brazilian currency ("R$ 1.234,56").
func FormatBRL(value float64) string {
	d := decimal.NewFromFloat(value).Round(2)
	negative := d.IsNegative()
	if negative {
		d = d.Neg()
	}

	s := d.StringFixed(2)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	out := "R$ " + b.String() + "," + fracPart
	if negative {
		out = "-" + out
	}
	return out
}

// JoinEmails normalizes a set of address lists into a single deduplicated
// comma-separated recipient string. Entries may be separated by commas or
// semicolons; addresses are trimmed and lowercased and empty entries are
// dropped.
func JoinEmails(lists ...string) string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, raw := range strings.FieldsFunc(list, func(r rune) bool { return r == ',' || r == ';' }) {
			addr := strings.ToLower(strings.TrimSpace(raw))
			if addr == "" || seen[addr] {
				continue
			}
			seen[addr] = true
			out = append(out, addr)
		}
	}
	return strings.Join(out, ", ")
}
