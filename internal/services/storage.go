package services

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"xui-vpn-bot/internal/models"
)

// StorageData represents the JSON structure stored on disk
type StorageData struct {
	Users []models.BotUser `json:"users"`
}

// StorageService handles JSON file persistence of bot users and their
// referral relationships
type StorageService struct {
	filename string
	data     *StorageData
	mu       sync.RWMutex
	logger   *logrus.Logger
}

// NewStorageService creates a new storage service
func NewStorageService(filename string, logger *logrus.Logger) *StorageService {
	s := &StorageService{
		filename: filename,
		data: &StorageData{
			Users: make([]models.BotUser, 0),
		},
		logger: logger,
	}

	if err := s.Load(); err != nil {
		logger.Warnf("Failed to load storage file: %v", err)
	}

	return s
}

// Load reads data from the JSON file
func (s *StorageService) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filename)
	if os.IsNotExist(err) {
		s.logger.Info("Storage file does not exist, starting with empty data")
		return nil
	}
	if err != nil {
		return err
	}

	return json.Unmarshal(data, s.data)
}

// GetUser returns the user with the given Telegram ID
func (s *StorageService) GetUser(telegramID int64) (models.BotUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.data.Users {
		if user.TelegramID == telegramID {
			return user, true
		}
	}
	return models.BotUser{}, false
}

// GetUserByUsername returns the user with the given Telegram username
func (s *StorageService) GetUserByUsername(username string) (models.BotUser, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.data.Users {
		if user.Username == username {
			return user, true
		}
	}
	return models.BotUser{}, false
}

// GetOrCreateUser returns the existing user or registers a new one.
// The second result reports whether the user was just created.
func (s *StorageService) GetOrCreateUser(telegramID int64, fullName, username string) (models.BotUser, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, user := range s.data.Users {
		if user.TelegramID == telegramID {
			// Refresh the display fields, they may change between sessions.
			s.data.Users[i].FullName = fullName
			s.data.Users[i].Username = username
			return s.data.Users[i], false, s.save()
		}
	}

	user := models.BotUser{
		TelegramID: telegramID,
		Username:   username,
		FullName:   fullName,
		CreatedAt:  time.Now().Unix(),
	}
	s.data.Users = append(s.data.Users, user)
	return user, true, s.save()
}

// SetReferrer records who invited the user
func (s *StorageService) SetReferrer(telegramID, referrerID int64) error {
	return s.updateUser(telegramID, func(user *models.BotUser) {
		user.ReferrerID = referrerID
	})
}

// CountReferrals returns how many users were invited by the given user
func (s *StorageService) CountReferrals(telegramID int64) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, user := range s.data.Users {
		if user.ReferrerID == telegramID {
			count++
		}
	}
	return count
}

// UpdateXuiUsername records the panel account label of a user
func (s *StorageService) UpdateXuiUsername(telegramID int64, xuiUsername string) error {
	return s.updateUser(telegramID, func(user *models.BotUser) {
		user.XuiUsername = xuiUsername
	})
}

// ExtendSubscription moves the user's subscription end forward by the
// given number of days, counting from now if it already lapsed
func (s *StorageService) ExtendSubscription(telegramID int64, days int) error {
	return s.updateUser(telegramID, func(user *models.BotUser) {
		base := time.Now()
		if end := user.SubscriptionEndDate(); end.After(base) {
			base = end
		}
		user.SubscriptionEnd = base.Add(time.Duration(days) * 24 * time.Hour).Unix()
	})
}

// SetTrialReceived marks the user as having used their trial
func (s *StorageService) SetTrialReceived(telegramID int64) error {
	return s.updateUser(telegramID, func(user *models.BotUser) {
		user.HasReceivedTrial = true
	})
}

// DeleteUser removes a user from the store
func (s *StorageService) DeleteUser(telegramID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, user := range s.data.Users {
		if user.TelegramID == telegramID {
			s.data.Users = append(s.data.Users[:i], s.data.Users[i+1:]...)
			return s.save()
		}
	}
	return nil
}

// CountUsers returns the number of registered users
func (s *StorageService) CountUsers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data.Users)
}

// updateUser applies fn to the stored user and persists the change
func (s *StorageService) updateUser(telegramID int64, fn func(*models.BotUser)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Users {
		if s.data.Users[i].TelegramID == telegramID {
			fn(&s.data.Users[i])
			return s.save()
		}
	}
	return nil
}

// save writes data to the JSON file atomically; it assumes the mutex is
// already locked
func (s *StorageService) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := s.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmpFile, s.filename)
}
