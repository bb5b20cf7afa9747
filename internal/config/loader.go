package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"

	apperrors "xui-vpn-bot/internal/errors"
)

// Load loads the configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	// Set default values
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("BOT_NAME", "VPN")
	v.SetDefault("STORAGE_FILE", "data.json")
	v.SetDefault("XUI_VERIFY_SSL", false)

	// Define environment variables
	v.BindEnv("TG_TOKEN")
	v.BindEnv("TG_ADMIN_IDS")
	v.BindEnv("TG_SUPPORT_CONTACT")
	v.BindEnv("TG_REQUIRED_CHANNELS")
	v.BindEnv("BOT_NAME")
	v.BindEnv("XUI_HOST")
	v.BindEnv("XUI_USERNAME")
	v.BindEnv("XUI_PASSWORD")
	v.BindEnv("XUI_INBOUND_ID")
	v.BindEnv("XUI_VERIFY_SSL")
	v.BindEnv("VPN_DOMAIN")
	v.BindEnv("STORAGE_FILE")
	v.BindEnv("HEALTH_ADDR")
	v.BindEnv("LOG_LEVEL")

	cfg := &Config{
		LogLevel: v.GetString("LOG_LEVEL"),
		Telegram: TelegramConfig{
			Token:            v.GetString("TG_TOKEN"),
			BotName:          strings.TrimSpace(v.GetString("BOT_NAME")),
			SupportContact:   strings.TrimSpace(v.GetString("TG_SUPPORT_CONTACT")),
			AdminIDs:         parseAdminIDs(v.GetString("TG_ADMIN_IDS")),
			RequiredChannels: parseChannels(v.GetString("TG_REQUIRED_CHANNELS")),
		},
		Panel: PanelConfig{
			Host:      strings.TrimRight(strings.TrimSpace(v.GetString("XUI_HOST")), "/"),
			Username:  strings.TrimSpace(v.GetString("XUI_USERNAME")),
			Password:  strings.TrimSpace(v.GetString("XUI_PASSWORD")),
			InboundID: v.GetInt("XUI_INBOUND_ID"),
			VerifySSL: v.GetBool("XUI_VERIFY_SSL"),
			Domain:    strings.TrimSpace(v.GetString("VPN_DOMAIN")),
		},
		Storage: StorageConfig{
			File: v.GetString("STORAGE_FILE"),
		},
		Health: HealthConfig{
			Addr: v.GetString("HEALTH_ADDR"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseAdminIDs parses a comma-separated list of Telegram IDs
func parseAdminIDs(raw string) []int64 {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseChannels parses a comma-separated list of channel usernames
func parseChannels(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	channels := make([]string, 0, len(parts))
	for _, part := range parts {
		channel := strings.TrimSpace(part)
		if channel == "" {
			continue
		}
		if !strings.HasPrefix(channel, "@") {
			channel = "@" + channel
		}
		channels = append(channels, channel)
	}
	return channels
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.Telegram.Token == "" {
		return &apperrors.ConfigError{Section: "telegram", Message: "TG_TOKEN is required"}
	}
	if len(cfg.Telegram.AdminIDs) == 0 {
		return &apperrors.ConfigError{Section: "telegram", Message: "TG_ADMIN_IDS is required"}
	}

	if cfg.Panel.Host == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "XUI_HOST is required"}
	}
	if cfg.Panel.Username == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "XUI_USERNAME is required"}
	}
	if cfg.Panel.Password == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "XUI_PASSWORD is required"}
	}
	if cfg.Panel.InboundID <= 0 {
		return &apperrors.ConfigError{Section: "panel", Message: "XUI_INBOUND_ID is required"}
	}
	if cfg.Panel.Domain == "" {
		return &apperrors.ConfigError{Section: "panel", Message: "VPN_DOMAIN is required"}
	}

	return nil
}
