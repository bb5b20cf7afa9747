package config

// Config represents the application configuration
type Config struct {
	Telegram TelegramConfig
	Panel    PanelConfig
	Storage  StorageConfig
	Health   HealthConfig
	LogLevel string
}

// TelegramConfig holds the Telegram bot configuration
type TelegramConfig struct {
	Token            string
	BotName          string
	AdminIDs         []int64
	SupportContact   string
	RequiredChannels []string
}

// PanelConfig holds the configuration for the 3x-ui panel
type PanelConfig struct {
	Host      string
	Username  string
	Password  string
	InboundID int
	VerifySSL bool
	// Domain is the public host used when building connection links.
	// It is configured locally, never fetched from the panel.
	Domain string
}

// StorageConfig holds the user store configuration
type StorageConfig struct {
	File string
}

// HealthConfig holds the health endpoint configuration
type HealthConfig struct {
	Addr string
}
