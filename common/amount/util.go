package amount

import "strings"

// formatFractional left-pads the fractional digits to FractionalCount and trims trailing zeros
func formatFractional(str string) string {
	if len(str) < FractionalCount {
		str = strings.Repeat("0", FractionalCount-len(str)) + str
	}
	return strings.TrimRight(str, "0")
}

// padFractional right-pads the fractional digits to FractionalCount and trims leading zeros
func padFractional(str string) string {
	if len(str) < FractionalCount {
		str = str + strings.Repeat("0", FractionalCount-len(str))
	}
	trimmed := strings.TrimLeft(str, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
