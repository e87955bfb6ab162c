package transfer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// FormatSize renders a byte count with the largest base-1024 unit whose
// scaled value is at least 1, rounded to two decimals and printed in its
// shortest form with at least one decimal: 1536 is "1.5 KB", 1234567 is
// "1.18 MB". Zero is "0B". Negative counts are rejected.
func FormatSize(n int64) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("format size %d: %w", n, ErrInvalidInput)
	}

	if n == 0 {
		return "0B", nil
	}

	v := float64(n)
	unit := 0

	for v >= 1024 && unit < len(sizeUnits)-1 {
		v /= 1024
		unit++
	}

	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s + " " + sizeUnits[unit], nil
}

// mustFormatSize is FormatSize for counts already known to be non-negative.
func mustFormatSize(n int64) string {
	s, err := FormatSize(n)
	if err != nil {
		return strconv.FormatInt(n, 10) + "B"
	}

	return s
}
