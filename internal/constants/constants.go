package constants

import "time"

const (
	// User validation constants
	MinUsernameLength = 3
	MaxUsernameLength = 32

	// Traffic constants
	BytesInGB = 1024 * 1024 * 1024

	// Duration constants
	MillisecondsInDay = 24 * 60 * 60 * 1000

	// Subscription business constants
	TrialDays          = 14
	ReferralBonusDays  = 3
	ReferrerRewardDays = 7
	DefaultTrafficGB   = 1000

	// Panel client constants
	InboundCacheFreshness = 5 * time.Second
	RequestTimeout        = 10 * time.Second

	// Link constants
	DefaultFingerprint = "chrome"
	DefaultFlow        = "xtls-rprx-vision"

	// Formatting constants
	TimestampFormat = "2006-01-02 15:04:05"
	DateFormat      = "02.01.2006"
)
