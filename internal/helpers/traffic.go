package helpers

import "fmt"

// FormatTraffic formats a byte count as a human-readable size
func FormatTraffic(byteCount int64) string {
	if byteCount == 0 {
		return "0 GB"
	}

	const power = 1024
	units := []string{"B", "KB", "MB", "GB", "TB"}

	value := float64(byteCount)
	unit := 0
	for value >= power && unit < len(units)-1 {
		value /= power
		unit++
	}

	return fmt.Sprintf("%.2f %s", value, units[unit])
}

// FormatQuota formats a traffic quota, where zero means unlimited
func FormatQuota(quotaBytes int64) string {
	if quotaBytes == 0 {
		return "Unlimited"
	}
	return FormatTraffic(quotaBytes)
}
