package finbuddy

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatGainLoss formats a gain/loss amount with an explicit sign and two
// decimals, without a currency symbol. Zero is "0.00".
func FormatGainLoss(value decimal.Decimal) string {
	switch value.Sign() {
	case 0:
		return "0.00"
	case 1:
		return "+" + value.StringFixed(2)
	default:
		return value.StringFixed(2)
	}
}

// FormatVolume formats a volume number with thousand separators.
// Returns "-" for zero values.
func FormatVolume(vol int64) string {
	if vol == 0 {
		return "-"
	}

	str := strconv.FormatInt(vol, 10)
	sign := ""
	if vol < 0 {
		sign, str = "-", str[1:]
	}
	n := len(str)
	if n <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < n; i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < n {
			result.WriteString(",")
		}
	}

	return result.String()
}
