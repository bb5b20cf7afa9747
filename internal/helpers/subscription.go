package helpers

import (
	"time"

	"xui-vpn-bot/internal/constants"
	"xui-vpn-bot/internal/models"
)

// IsActiveSubscription reports whether a panel record represents a
// currently active subscription
func IsActiveSubscription(record *models.ClientRecord) bool {
	if record == nil || !record.Enable {
		return false
	}
	if record.ExpiryTime == 0 {
		return true
	}
	return record.ExpiryTime > time.Now().UnixMilli()
}

// FormatExpiry formats a millisecond epoch expiry for display
func FormatExpiry(expiryMs int64) string {
	if expiryMs == 0 {
		return "Never"
	}
	return time.UnixMilli(expiryMs).Format(constants.DateFormat + " 15:04")
}

// DaysLeft returns the number of whole days until expiry, zero if lapsed
func DaysLeft(expiryMs int64) int {
	if expiryMs == 0 {
		return 0
	}
	left := time.Until(time.UnixMilli(expiryMs))
	if left <= 0 {
		return 0
	}
	return int(left.Hours() / 24)
}
