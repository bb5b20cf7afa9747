package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"xui-vpn-bot/internal/commands"
	"xui-vpn-bot/internal/constants"
	"xui-vpn-bot/internal/helpers"
	"xui-vpn-bot/internal/models"
	"xui-vpn-bot/internal/permissions"
	"xui-vpn-bot/internal/validation"
)

// AdminHandler handles admin commands
type AdminHandler struct {
	BaseHandler
	commandHandlers map[string]func(telebot.Context) error
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(base BaseHandler) *AdminHandler {
	handler := &AdminHandler{
		BaseHandler: base,
	}

	handler.initializeCommands()
	return handler
}

// CanHandle checks if the handler can handle the given access type
func (h *AdminHandler) CanHandle(accessType permissions.AccessType) bool {
	return accessType == permissions.Admin
}

// Handle handles a message from Telegram
func (h *AdminHandler) Handle(ctx context.Context, c telebot.Context) error {
	userID := c.Sender().ID

	userState, err := h.stateService.GetState(userID)
	if err != nil {
		h.logger.Errorf("Failed to get user state: %v", err)
		return err
	}

	switch userState.State {
	case models.Default:
		return h.handleDefaultState(c)
	case models.AwaitingFindUser:
		return h.processFindUser(c)
	case models.AwaitingDuration:
		return h.processDuration(c)
	case models.AwaitConfirmUserDeletion:
		return h.processConfirmDeletion(c)
	default:
		h.logger.Warnf("Unknown state: %d", userState.State)
		return h.handleDefaultState(c)
	}
}

// initializeCommands initializes the command handlers
func (h *AdminHandler) initializeCommands() {
	h.commandHandlers = map[string]func(telebot.Context) error{
		commands.Start:            h.handleStart,
		commands.FindUser:         h.handleFindUser,
		commands.Stats:            h.handleStats,
		commands.AddDays:          h.handleAddDays,
		commands.DeleteUser:       h.handleDeleteUser,
		commands.ReturnToMainMenu: h.handleStart,
		commands.Cancel:           h.handleStart,
	}
}

// handleDefaultState handles the default state
func (h *AdminHandler) handleDefaultState(c telebot.Context) error {
	text := c.Text()

	if strings.HasPrefix(text, commands.Start) {
		return h.handleStart(c)
	}
	if handler, ok := h.commandHandlers[text]; ok {
		return handler(c)
	}

	return h.handleStart(c)
}

// handleStart handles the /start command
func (h *AdminHandler) handleStart(c telebot.Context) error {
	if err := h.stateService.ClearState(c.Sender().ID); err != nil {
		h.logger.Errorf("Failed to clear user state: %v", err)
		return err
	}

	markup := h.createMainKeyboard(permissions.Admin)
	return h.sendTextMessage(c, "Welcome to the VPN admin panel.", markup)
}

// handleFindUser starts the user lookup scenario
func (h *AdminHandler) handleFindUser(c telebot.Context) error {
	if err := h.stateService.WithConversationState(c.Sender().ID, models.AwaitingFindUser); err != nil {
		h.logger.Errorf("Failed to set state: %v", err)
		return err
	}

	return h.sendTextMessage(c,
		"<b>👤 User management</b>\n\nEnter the Telegram ID or username (without @) to look up:",
		h.createReturnKeyboard())
}

// processFindUser looks up a user by ID or username and shows their card
func (h *AdminHandler) processFindUser(c telebot.Context) error {
	query := strings.TrimSpace(c.Text())

	if handler, ok := h.commandHandlers[query]; ok {
		return handler(c)
	}

	var user models.BotUser
	var found bool

	if id, err := strconv.ParseInt(query, 10, 64); err == nil {
		user, found = h.storage.GetUser(id)
	} else {
		username := strings.TrimPrefix(query, "@")
		if err := validation.ValidateUsername(username); err != nil {
			return h.sendTextMessage(c,
				fmt.Sprintf("❌ <b>Error:</b> %s\n\nTry again:", err), h.createReturnKeyboard())
		}
		user, found = h.storage.GetUserByUsername(username)
	}

	if !found {
		return h.sendTextMessage(c,
			"No user with that ID or username is registered with the bot.\n\nTry again:",
			h.createReturnKeyboard())
	}

	if err := h.stateService.ClearState(c.Sender().ID); err != nil {
		h.logger.Errorf("Failed to clear user state: %v", err)
	}
	if err := h.stateService.WithPayload(c.Sender().ID, strconv.FormatInt(user.TelegramID, 10)); err != nil {
		h.logger.Errorf("Failed to store selected user: %v", err)
	}

	return h.showUserCard(c, user)
}

// showUserCard displays a user's card with the available actions
func (h *AdminHandler) showUserCard(c telebot.Context, user models.BotUser) error {
	subscriptionEnd := "None"
	if end := user.SubscriptionEndDate(); !end.IsZero() {
		subscriptionEnd = end.Format(constants.DateFormat + " 15:04")
	}

	panelAccount := user.XuiUsername
	if panelAccount == "" {
		panelAccount = "Not created"
	}

	text := fmt.Sprintf(
		"<b>User found:</b>\n\n"+
			"<b>ID:</b> <code>%d</code>\n"+
			"<b>Username:</b> @%s\n"+
			"<b>Name:</b> %s\n\n"+
			"<b>Subscription until:</b> %s\n"+
			"<b>Panel account:</b> <code>%s</code>",
		user.TelegramID, user.Username, user.FullName, subscriptionEnd, panelAccount)

	markup := &telebot.ReplyMarkup{ResizeKeyboard: true}
	markup.Reply(
		telebot.Row{
			telebot.Btn{Text: commands.AddDays},
			telebot.Btn{Text: commands.DeleteUser},
		},
		telebot.Row{
			telebot.Btn{Text: commands.ReturnToMainMenu},
		},
	)

	return h.sendTextMessage(c, text, markup)
}

// handleAddDays starts the subscription extension scenario
func (h *AdminHandler) handleAddDays(c telebot.Context) error {
	targetID, err := h.selectedUserID(c.Sender().ID)
	if err != nil {
		return h.sendTextMessage(c, "Find a user first.", h.createMainKeyboard(permissions.Admin))
	}

	if err := h.stateService.WithConversationState(c.Sender().ID, models.AwaitingDuration); err != nil {
		h.logger.Errorf("Failed to set state: %v", err)
		return err
	}

	return h.sendTextMessage(c,
		fmt.Sprintf("Enter the number of days to add for user <code>%d</code>:", targetID),
		h.createReturnKeyboard())
}

// processDuration extends or creates the target user's subscription
func (h *AdminHandler) processDuration(c telebot.Context) error {
	text := strings.TrimSpace(c.Text())

	if handler, ok := h.commandHandlers[text]; ok {
		return handler(c)
	}

	days, err := validation.ValidateDuration(text)
	if err != nil {
		return h.sendTextMessage(c,
			fmt.Sprintf("❌ <b>Error:</b> %s", err), h.createReturnKeyboard())
	}

	targetID, err := h.selectedUserID(c.Sender().ID)
	if err != nil {
		h.logger.Errorf("No selected user for admin %d: %v", c.Sender().ID, err)
		return h.handleStart(c)
	}
	if err := h.stateService.ClearState(c.Sender().ID); err != nil {
		h.logger.Errorf("Failed to clear user state: %v", err)
	}

	user, found := h.storage.GetUser(targetID)
	if !found {
		return h.sendTextMessage(c,
			fmt.Sprintf("User <code>%d</code> is no longer registered.", targetID),
			h.createMainKeyboard(permissions.Admin))
	}

	label := user.XuiUsername
	if label == "" {
		label = helpers.AccountLabel(targetID)
	}
	label = helpers.NormalizeLabel(label)

	// ModifyUser extends an existing panel account or creates one.
	if _, err := h.xuiService.ModifyUser(context.Background(), label, days, constants.DefaultTrafficGB); err != nil {
		h.logger.Errorf("Failed to extend panel account %q: %v", label, err)
		return h.sendTextMessage(c,
			fmt.Sprintf("❌ Panel error while processing user <code>%d</code>. Check the logs.", targetID),
			h.createMainKeyboard(permissions.Admin))
	}

	if user.XuiUsername == "" {
		if err := h.storage.UpdateXuiUsername(targetID, label); err != nil {
			h.logger.Errorf("Failed to store panel label for user %d: %v", targetID, err)
		}
		h.logger.Infof("Admin created panel account %q with %d days", label, days)
	} else {
		h.logger.Infof("Admin extended panel account %q by %d days", label, days)
	}

	if err := h.storage.ExtendSubscription(targetID, days); err != nil {
		h.logger.Errorf("Failed to store subscription end for user %d: %v", targetID, err)
	}

	updated, _ := h.storage.GetUser(targetID)
	newEnd := updated.SubscriptionEndDate().Format(constants.DateFormat)

	if _, err := c.Bot().Send(&telebot.User{ID: targetID},
		fmt.Sprintf("🎉 An administrator extended your subscription by <b>%d</b> days!\nNew end date: <b>%s</b>", days, newEnd),
		&telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
		h.logger.Warnf("Could not notify user %d: %v", targetID, err)
	}

	text = fmt.Sprintf(
		"✅ <b>Done!</b>\n\nUser <code>%d</code> received <b>%d</b> days.\nNew subscription end date: <b>%s</b>",
		targetID, days, newEnd)
	if err := h.sendTextMessage(c, text, nil); err != nil {
		return err
	}
	return h.showUserCard(c, updated)
}

// handleDeleteUser asks for deletion confirmation
func (h *AdminHandler) handleDeleteUser(c telebot.Context) error {
	targetID, err := h.selectedUserID(c.Sender().ID)
	if err != nil {
		return h.sendTextMessage(c, "Find a user first.", h.createMainKeyboard(permissions.Admin))
	}

	if err := h.stateService.WithConversationState(c.Sender().ID, models.AwaitConfirmUserDeletion); err != nil {
		h.logger.Errorf("Failed to set state: %v", err)
		return err
	}

	return h.sendTextMessage(c,
		fmt.Sprintf(
			"Are you sure you want to completely delete user <code>%d</code>?\n\n"+
				"<b>This cannot be undone.</b> The user is removed from the panel and from the bot.", targetID),
		h.createConfirmKeyboard())
}

// processConfirmDeletion performs the deletion after confirmation
func (h *AdminHandler) processConfirmDeletion(c telebot.Context) error {
	if c.Text() != commands.Confirm {
		return h.handleStart(c)
	}

	targetID, err := h.selectedUserID(c.Sender().ID)
	if err != nil {
		h.logger.Errorf("No selected user for admin %d: %v", c.Sender().ID, err)
		return h.handleStart(c)
	}
	if err := h.stateService.ClearState(c.Sender().ID); err != nil {
		h.logger.Errorf("Failed to clear user state: %v", err)
	}

	user, found := h.storage.GetUser(targetID)
	if !found {
		return h.sendTextMessage(c,
			fmt.Sprintf("User <code>%d</code> was already deleted.", targetID),
			h.createMainKeyboard(permissions.Admin))
	}

	if user.XuiUsername != "" {
		h.logger.Infof("Admin is deleting panel account %q", user.XuiUsername)
		if err := h.xuiService.DeleteUser(context.Background(), user.XuiUsername); err != nil {
			h.logger.Errorf("Failed to delete panel account %q: %v", user.XuiUsername, err)
			return h.sendTextMessage(c,
				"❌ <b>Error!</b>\n\nCould not delete the user from the panel. Check the panel logs.",
				h.createMainKeyboard(permissions.Admin))
		}
	}

	if err := h.storage.DeleteUser(targetID); err != nil {
		h.logger.Errorf("Failed to delete user %d from storage: %v", targetID, err)
	}

	return h.sendTextMessage(c,
		fmt.Sprintf("✅ User <code>%d</code> was deleted.", targetID),
		h.createMainKeyboard(permissions.Admin))
}

// handleStats shows basic bot statistics
func (h *AdminHandler) handleStats(c telebot.Context) error {
	text := fmt.Sprintf(
		"<b>📊 Bot statistics</b>\n\n<b>Registered users:</b> %d",
		h.storage.CountUsers())
	return h.sendTextMessage(c, text, h.createMainKeyboard(permissions.Admin))
}

// selectedUserID returns the user currently selected via Find User
func (h *AdminHandler) selectedUserID(adminID int64) (int64, error) {
	state, err := h.stateService.GetState(adminID)
	if err != nil {
		return 0, err
	}
	if state.Payload == nil {
		return 0, fmt.Errorf("no user selected")
	}
	return strconv.ParseInt(*state.Payload, 10, 64)
}
