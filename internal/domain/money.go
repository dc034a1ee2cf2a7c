package domain

import (
	"fmt"
	"strings"
)

// FormatMoney форматирует сумму в минорных единицах как десятичную строку
// с разделителями тысяч: 123456789 → "1,234,567.89".
func FormatMoney(amountMinor int64) string {
	negative := amountMinor < 0
	if negative {
		amountMinor = -amountMinor
	}

	units := amountMinor / 100
	cents := amountMinor % 100

	digits := fmt.Sprintf("%d", units)
	var groups []string
	for len(digits) > 3 {
		groups = append([]string{digits[len(digits)-3:]}, groups...)
		digits = digits[:len(digits)-3]
	}
	groups = append([]string{digits}, groups...)

	formatted := fmt.Sprintf("%s.%02d", strings.Join(groups, ","), cents)
	if negative {
		return "-" + formatted
	}
	return formatted
}
