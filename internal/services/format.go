package services

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatCents renders an amount in cents as Brazilian currency, e.g.
// 123456 -> "R$ 1.234,56".
func FormatCents(cents int64) string {
	negative := cents < 0
	if negative {
		cents = -cents
	}

	reais := cents / 100
	remainder := cents % 100

	digits := strconv.FormatInt(reais, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, b.String(), remainder)
}

func formatPercent(pct float64) string {
	return strconv.FormatInt(int64(pct), 10)
}
