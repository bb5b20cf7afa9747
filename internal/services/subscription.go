package services

import (
	"github.com/sirupsen/logrus"
	telebot "gopkg.in/telebot.v3"
)

// SubscriptionService verifies membership in the required Telegram
// channels before granting the trial subscription
type SubscriptionService struct {
	channels []string
	logger   *logrus.Logger
}

// NewSubscriptionService creates a new subscription checker
func NewSubscriptionService(channels []string, logger *logrus.Logger) *SubscriptionService {
	return &SubscriptionService{
		channels: channels,
		logger:   logger,
	}
}

// Channels returns the configured channel usernames
func (s *SubscriptionService) Channels() []string {
	return s.channels
}

// IsSubscribed reports whether the user is a member of every required
// channel. With no channels configured everyone passes.
func (s *SubscriptionService) IsSubscribed(bot *telebot.Bot, userID int64) bool {
	for _, channel := range s.channels {
		chat, err := bot.ChatByUsername(channel)
		if err != nil {
			s.logger.Errorf("Failed to resolve channel %s: %v", channel, err)
			return false
		}

		member, err := bot.ChatMemberOf(chat, &telebot.User{ID: userID})
		if err != nil {
			s.logger.Errorf("Failed to check membership of %d in %s: %v", userID, channel, err)
			return false
		}

		switch member.Role {
		case telebot.Creator, telebot.Administrator, telebot.Member:
			continue
		default:
			s.logger.Debugf("User %d is not a member of %s (role %s)", userID, channel, member.Role)
			return false
		}
	}
	return true
}
