package models

import "time"

// BotUser represents a bot user persisted in the JSON store.
type BotUser struct {
	TelegramID       int64  `json:"telegram_id"`
	Username         string `json:"username"`
	FullName         string `json:"full_name"`
	XuiUsername      string `json:"xui_username"`
	SubscriptionEnd  int64  `json:"subscription_end"`
	ReferrerID       int64  `json:"referrer_id"`
	HasReceivedTrial bool   `json:"has_received_trial"`
	CreatedAt        int64  `json:"created_at"`
}

// HasSubscription reports whether the user has an account in the panel.
func (u *BotUser) HasSubscription() bool {
	return u.XuiUsername != ""
}

// SubscriptionEndDate returns the subscription end as a time, or zero time
// if no subscription was recorded.
func (u *BotUser) SubscriptionEndDate() time.Time {
	if u.SubscriptionEnd == 0 {
		return time.Time{}
	}
	return time.Unix(u.SubscriptionEnd, 0)
}
