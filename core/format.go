// core/format.go
package core

import "fmt"

var sizeUnits = []string{"bytes", "KB", "MB", "GB", "TB"}

// FormatFileSize renders a byte count using 1024-based units with two
// decimal places, e.g. FormatFileSize(1536) == "1.50 KB".
func FormatFileSize(bytes uint64) string {
	if bytes == 0 {
		return "0 bytes"
	}

	size := float64(bytes)
	unit := 0
	for size >= 1024 && unit < len(sizeUnits)-1 {
		size /= 1024
		unit++
	}

	if unit == 0 {
		return fmt.Sprintf("%d %s", bytes, sizeUnits[0])
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unit])
}
