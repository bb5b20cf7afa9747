package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"xui-vpn-bot/internal/config"
	"xui-vpn-bot/internal/models"
	"xui-vpn-bot/pkg/xuiclient"
)

// XuiService manages the 3x-ui panel client for the configured inbound
type XuiService struct {
	client *xuiclient.Client
	config *config.Config
	logger *logrus.Logger
}

// NewXuiService creates a new panel service
func NewXuiService(cfg *config.Config, logger *logrus.Logger) *XuiService {
	client := xuiclient.NewClient(cfg.Panel, cfg.Telegram.BotName, logger)

	return &XuiService{
		client: client,
		config: cfg,
		logger: logger,
	}
}

// GetUser returns the panel client record for the given account label
func (s *XuiService) GetUser(ctx context.Context, label string) (*models.ClientRecord, error) {
	return s.client.GetUser(ctx, label)
}

// AddUser provisions a new panel account and returns its UUID
func (s *XuiService) AddUser(ctx context.Context, label string, expireDays, trafficGB int) (string, error) {
	return s.client.AddUser(ctx, label, expireDays, trafficGB)
}

// ModifyUser extends an existing panel account or creates a new one
func (s *XuiService) ModifyUser(ctx context.Context, label string, expireDays, trafficGB int) (string, error) {
	return s.client.ModifyUser(ctx, label, expireDays, trafficGB)
}

// DeleteUser removes a panel account; deleting an absent account succeeds
func (s *XuiService) DeleteUser(ctx context.Context, label string) error {
	return s.client.DeleteUser(ctx, label)
}

// BuildLink builds the shareable connection URI for an account
func (s *XuiService) BuildLink(ctx context.Context, label string) (string, error) {
	return s.client.BuildLink(ctx, label)
}

// Close releases the panel client's resources
func (s *XuiService) Close() {
	s.client.Close()
}
