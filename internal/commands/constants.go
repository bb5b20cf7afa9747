package commands

// TelegramCommands contains all commands for the Telegram bot
const (
	// Main commands
	Start  = "/start"
	Cancel = "Cancel"

	// Navigation commands
	ReturnToMainMenu = "Return to Main Menu"

	// User commands
	MyProfile       = "👤 My Profile"
	ReferralProgram = "🤝 Referral Program"
	CheckSubscribed = "Check Subscription"
	Support         = "🆘 Support"

	// Administrator commands
	FindUser = "Find User"
	AddDays  = "Add Days"
	Stats    = "Stats"

	// User action commands
	DeleteUser = "Delete User"

	// Confirmation commands
	Confirm = "Confirm"
)
