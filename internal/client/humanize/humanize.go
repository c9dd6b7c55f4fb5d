package humanize

import (
	"math"
	"strconv"
	"time"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FileSize renders a byte count with 1024-based units and at most two decimals.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}

	v := float64(bytes)
	i := 0

	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}

	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64) + " " + sizeUnits[i]
}

// Date renders epoch milliseconds as e.g. "Jan 2, 2006" in local time.
func Date(unixMillis int64) string {
	return time.UnixMilli(unixMillis).Format("Jan 2, 2006")
}
