package handlers

import (
	"context"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"xui-vpn-bot/internal/config"
	"xui-vpn-bot/internal/permissions"
	"xui-vpn-bot/internal/services"
)

// MessageHandler defines the interface for handling Telegram messages
type MessageHandler interface {
	Handle(ctx context.Context, c telebot.Context) error
	CanHandle(accessType permissions.AccessType) bool
}

// HandlerFactory creates message handlers
type HandlerFactory struct {
	xuiService   *services.XuiService
	stateService *services.UserStateService
	qrService    *services.QRService
	storage      *services.StorageService
	subscription *services.SubscriptionService
	config       *config.Config
	logger       *logrus.Logger
}

// NewHandlerFactory creates a new handler factory
func NewHandlerFactory(
	xuiService *services.XuiService,
	stateService *services.UserStateService,
	qrService *services.QRService,
	storage *services.StorageService,
	subscription *services.SubscriptionService,
	config *config.Config,
	logger *logrus.Logger,
) *HandlerFactory {
	return &HandlerFactory{
		xuiService:   xuiService,
		stateService: stateService,
		qrService:    qrService,
		storage:      storage,
		subscription: subscription,
		config:       config,
		logger:       logger,
	}
}

// CreateHandler creates a message handler for the given access type
func (f *HandlerFactory) CreateHandler(accessType permissions.AccessType) MessageHandler {
	base := NewBaseHandler(f.xuiService, f.stateService, f.qrService, f.storage, f.subscription, f.config, f.logger)

	switch accessType {
	case permissions.Admin:
		return NewAdminHandler(base)
	default:
		return NewMemberHandler(base)
	}
}
