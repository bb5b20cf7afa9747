package handlers

import (
	"bytes"

	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"

	"xui-vpn-bot/internal/commands"
	"xui-vpn-bot/internal/config"
	"xui-vpn-bot/internal/permissions"
	"xui-vpn-bot/internal/services"
)

// BaseHandler provides common functionality for all handlers
type BaseHandler struct {
	xuiService   *services.XuiService
	stateService *services.UserStateService
	qrService    *services.QRService
	storage      *services.StorageService
	subscription *services.SubscriptionService
	config       *config.Config
	logger       *logrus.Logger
}

// NewBaseHandler creates a new base handler
func NewBaseHandler(
	xuiService *services.XuiService,
	stateService *services.UserStateService,
	qrService *services.QRService,
	storage *services.StorageService,
	subscription *services.SubscriptionService,
	config *config.Config,
	logger *logrus.Logger,
) BaseHandler {
	return BaseHandler{
		xuiService:   xuiService,
		stateService: stateService,
		qrService:    qrService,
		storage:      storage,
		subscription: subscription,
		config:       config,
		logger:       logger,
	}
}

// sendTextMessage sends a text message with optional markup
func (h *BaseHandler) sendTextMessage(c telebot.Context, text string, markup *telebot.ReplyMarkup) error {
	opts := &telebot.SendOptions{
		ParseMode: telebot.ModeHTML,
	}

	if markup != nil {
		opts.ReplyMarkup = markup
	}

	_, err := c.Bot().Send(c.Recipient(), text, opts)
	if err != nil {
		h.logger.Errorf("Failed to send message: %v", err)
	}
	return err
}

// sendQRCode sends a QR code image with the given caption
func (h *BaseHandler) sendQRCode(c telebot.Context, url, caption string) error {
	qrBytes, err := h.qrService.GenerateQR(url)
	if err != nil {
		h.logger.Errorf("Failed to generate QR code: %v", err)
		return err
	}

	reader := bytes.NewReader(qrBytes)
	photo := &telebot.Photo{File: telebot.FromReader(reader), Caption: caption}

	_, err = c.Bot().Send(c.Recipient(), photo, &telebot.SendOptions{ParseMode: telebot.ModeHTML})
	if err != nil {
		h.logger.Errorf("Failed to send QR code: %v", err)
	}
	return err
}

// createMainKeyboard creates the main keyboard for the given access type
func (h *BaseHandler) createMainKeyboard(accessType permissions.AccessType) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	var rows []telebot.Row

	switch accessType {
	case permissions.Admin:
		rows = []telebot.Row{
			{
				telebot.Btn{Text: commands.FindUser},
				telebot.Btn{Text: commands.Stats},
			},
		}
	case permissions.Member:
		rows = []telebot.Row{
			{
				telebot.Btn{Text: commands.MyProfile},
				telebot.Btn{Text: commands.ReferralProgram},
			},
			{
				telebot.Btn{Text: commands.Support},
			},
		}
	}

	markup.Reply(rows...)
	return markup
}

// createReturnKeyboard creates a keyboard with a return button
func (h *BaseHandler) createReturnKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	markup.Reply(
		telebot.Row{
			telebot.Btn{Text: commands.ReturnToMainMenu},
		},
	)

	return markup
}

// createConfirmKeyboard creates a keyboard with confirm/cancel buttons
func (h *BaseHandler) createConfirmKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	markup.Reply(
		telebot.Row{
			telebot.Btn{Text: commands.Confirm},
			telebot.Btn{Text: commands.Cancel},
		},
	)

	return markup
}

// createSubscribeKeyboard creates a keyboard prompting channel subscription
func (h *BaseHandler) createSubscribeKeyboard() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard: true,
	}

	markup.Reply(
		telebot.Row{
			telebot.Btn{Text: commands.CheckSubscribed},
		},
	)

	return markup
}
