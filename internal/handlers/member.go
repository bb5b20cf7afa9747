package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	telebot "gopkg.in/telebot.v3"

	"xui-vpn-bot/internal/commands"
	"xui-vpn-bot/internal/constants"
	"xui-vpn-bot/internal/helpers"
	"xui-vpn-bot/internal/models"
	"xui-vpn-bot/internal/permissions"
	"xui-vpn-bot/pkg/xuiclient"
)

// MemberHandler handles commands from regular bot users
type MemberHandler struct {
	BaseHandler
	commandHandlers map[string]func(telebot.Context) error
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(base BaseHandler) *MemberHandler {
	handler := &MemberHandler{
		BaseHandler: base,
	}

	handler.initializeCommands()
	return handler
}

// CanHandle checks if the handler can handle the given access type
func (h *MemberHandler) CanHandle(accessType permissions.AccessType) bool {
	return accessType == permissions.Member
}

// Handle handles a message from Telegram
func (h *MemberHandler) Handle(ctx context.Context, c telebot.Context) error {
	userID := c.Sender().ID

	state, err := h.stateService.GetState(userID)
	if err != nil {
		h.logger.Errorf("Failed to get user state: %v", err)
		return err
	}

	switch state.State {
	case models.Default:
		return h.handleDefaultState(c)
	default:
		h.logger.Warnf("Unknown state: %d", state.State)
		return h.handleDefaultState(c)
	}
}

// initializeCommands initializes the command handlers
func (h *MemberHandler) initializeCommands() {
	h.commandHandlers = map[string]func(telebot.Context) error{
		commands.MyProfile:        h.handleMyProfile,
		commands.ReferralProgram:  h.handleReferralProgram,
		commands.CheckSubscribed:  h.handleCheckSubscription,
		commands.Support:          h.handleSupport,
		commands.ReturnToMainMenu: h.handleMainMenu,
	}
}

// handleDefaultState handles the default state
func (h *MemberHandler) handleDefaultState(c telebot.Context) error {
	text := c.Text()

	if strings.HasPrefix(text, commands.Start) {
		return h.handleStart(c)
	}
	if handler, ok := h.commandHandlers[text]; ok {
		return handler(c)
	}

	return h.handleMainMenu(c)
}

// handleStart registers the user, records the referral deep link and
// starts the trial flow for newcomers
func (h *MemberHandler) handleStart(c telebot.Context) error {
	sender := c.Sender()

	user, created, err := h.storage.GetOrCreateUser(sender.ID, fullName(sender), sender.Username)
	if err != nil {
		h.logger.Errorf("Failed to register user %d: %v", sender.ID, err)
		return h.sendTextMessage(c, "Something went wrong. Please try again later.", nil)
	}

	if created {
		h.recordReferral(c, sender.ID)

		if h.subscription.IsSubscribed(c.Bot(), sender.ID) {
			return h.giveTrialSubscription(c, user.TelegramID)
		}
		return h.promptChannelSubscription(c)
	}

	markup := h.createMainKeyboard(permissions.Member)
	return h.sendTextMessage(c, fmt.Sprintf("👋 Welcome back, <b>%s</b>!", fullName(sender)), markup)
}

// recordReferral parses a "ref{id}" start payload and records the referrer
func (h *MemberHandler) recordReferral(c telebot.Context, userID int64) {
	payload := ""
	if c.Message() != nil {
		payload = c.Message().Payload
	}
	if !strings.HasPrefix(payload, "ref") {
		return
	}

	referrerID, err := strconv.ParseInt(strings.TrimPrefix(payload, "ref"), 10, 64)
	if err != nil || referrerID == userID {
		h.logger.Warnf("Invalid referral payload %q from user %d", payload, userID)
		return
	}
	if _, found := h.storage.GetUser(referrerID); !found {
		h.logger.Warnf("Referral payload %q points to unknown user", payload)
		return
	}

	if err := h.storage.SetReferrer(userID, referrerID); err != nil {
		h.logger.Errorf("Failed to record referrer for user %d: %v", userID, err)
		return
	}
	h.logger.Infof("User %d was referred by %d", userID, referrerID)

	if _, err := c.Bot().Send(&telebot.User{ID: referrerID},
		fmt.Sprintf("A new user joined via your referral link: %s!", fullName(c.Sender()))); err != nil {
		h.logger.Warnf("Could not notify referrer %d: %v", referrerID, err)
	}
}

// promptChannelSubscription asks the user to join the required channels
func (h *MemberHandler) promptChannelSubscription(c telebot.Context) error {
	channels := h.subscription.Channels()
	if len(channels) == 0 {
		// No gating configured, grant the trial right away.
		return h.giveTrialSubscription(c, c.Sender().ID)
	}

	var sb strings.Builder
	sb.WriteString("❗️ <b>To receive your trial period, please subscribe to our channels:</b>\n\n")
	for _, channel := range channels {
		sb.WriteString(fmt.Sprintf("• %s\n", channel))
	}
	sb.WriteString("\nThen press the button below.")

	return h.sendTextMessage(c, sb.String(), h.createSubscribeKeyboard())
}

// handleCheckSubscription re-checks channel membership and activates the trial
func (h *MemberHandler) handleCheckSubscription(c telebot.Context) error {
	userID := c.Sender().ID

	user, found := h.storage.GetUser(userID)
	if found && user.HasReceivedTrial {
		return h.sendTextMessage(c, "You have already activated your trial subscription.",
			h.createMainKeyboard(permissions.Member))
	}

	if !h.subscription.IsSubscribed(c.Bot(), userID) {
		return h.sendTextMessage(c, "You have not subscribed to all channels yet. Please try again.",
			h.createSubscribeKeyboard())
	}

	return h.giveTrialSubscription(c, userID)
}

// giveTrialSubscription provisions a trial panel account for the user.
// Referred users get the referral bonus on top of the trial period.
func (h *MemberHandler) giveTrialSubscription(c telebot.Context, userID int64) error {
	days := constants.TrialDays
	referrerID := int64(0)
	if user, found := h.storage.GetUser(userID); found && user.ReferrerID != 0 {
		days += constants.ReferralBonusDays
		referrerID = user.ReferrerID
	}

	label := helpers.AccountLabel(userID)

	clientID, err := h.xuiService.AddUser(context.Background(), label, days, constants.DefaultTrafficGB)
	if err != nil {
		h.logger.Errorf("Failed to create trial account %q for user %d: %v", label, userID, err)
		return h.sendTextMessage(c, "❌ Failed to activate your trial period. Please contact support.", nil)
	}

	h.logger.Infof("Created trial account %q (%s) with %d days for user %d", label, clientID, days, userID)

	if err := h.storage.UpdateXuiUsername(userID, label); err != nil {
		h.logger.Errorf("Failed to store panel label for user %d: %v", userID, err)
	}
	if err := h.storage.ExtendSubscription(userID, days); err != nil {
		h.logger.Errorf("Failed to store subscription end for user %d: %v", userID, err)
	}
	if err := h.storage.SetTrialReceived(userID); err != nil {
		h.logger.Errorf("Failed to mark trial received for user %d: %v", userID, err)
	}

	if referrerID != 0 {
		h.rewardReferrer(c, referrerID)
	}

	text := fmt.Sprintf(
		"🎉 <b>Congratulations!</b>\n\n"+
			"You received a trial subscription for <b>%d days</b>.\n"+
			"Press «%s» below to see your connection key.", days, commands.MyProfile)
	return h.sendTextMessage(c, text, h.createMainKeyboard(permissions.Member))
}

// rewardReferrer extends the referrer's subscription once the invited user
// activates their trial
func (h *MemberHandler) rewardReferrer(c telebot.Context, referrerID int64) {
	referrer, found := h.storage.GetUser(referrerID)
	if !found || referrer.XuiUsername == "" {
		h.logger.Warnf("Referrer %d has no panel account, skipping reward", referrerID)
		return
	}

	if _, err := h.xuiService.ModifyUser(context.Background(), referrer.XuiUsername,
		constants.ReferrerRewardDays, constants.DefaultTrafficGB); err != nil {
		h.logger.Errorf("Failed to reward referrer %d: %v", referrerID, err)
		return
	}
	if err := h.storage.ExtendSubscription(referrerID, constants.ReferrerRewardDays); err != nil {
		h.logger.Errorf("Failed to store referrer %d reward: %v", referrerID, err)
	}

	if _, err := c.Bot().Send(&telebot.User{ID: referrerID},
		fmt.Sprintf("🎁 Your invited friend activated a subscription, you received %d bonus days!",
			constants.ReferrerRewardDays)); err != nil {
		h.logger.Warnf("Could not notify referrer %d about the reward: %v", referrerID, err)
	}
}

// handleMyProfile shows subscription status, traffic and the connection key
func (h *MemberHandler) handleMyProfile(c telebot.Context) error {
	userID := c.Sender().ID

	user, found := h.storage.GetUser(userID)
	if !found || !user.HasSubscription() {
		return h.sendTextMessage(c,
			"You don't have an active subscription yet.",
			h.createMainKeyboard(permissions.Member))
	}

	ctx := context.Background()
	record, err := h.xuiService.GetUser(ctx, user.XuiUsername)
	if err != nil {
		if errors.Is(err, xuiclient.ErrNotFound) {
			h.logger.Errorf("Panel account %q for user %d is missing", user.XuiUsername, userID)
			return h.sendTextMessage(c,
				"Your subscription was not found in the panel. Please contact support.",
				h.createMainKeyboard(permissions.Member))
		}
		h.logger.Errorf("Failed to fetch panel account %q: %v", user.XuiUsername, err)
		return h.sendTextMessage(c,
			"Could not fetch your subscription data. Please try again later.",
			h.createMainKeyboard(permissions.Member))
	}

	status := "Inactive ❌"
	if helpers.IsActiveSubscription(record) {
		status = "Active ✅"
	}

	profile := fmt.Sprintf(
		"👤 <b>Your profile</b>\n\n"+
			"🔑 <b>Status:</b> <code>%s</code>\n"+
			"🗓 <b>Subscription until:</b> <code>%s</code> (%d days left)\n\n"+
			"📊 <b>Traffic:</b>\n"+
			"Used: <code>%s</code>\n"+
			"Limit: <code>%s</code>",
		status,
		helpers.FormatExpiry(record.ExpiryTime),
		helpers.DaysLeft(record.ExpiryTime),
		helpers.FormatTraffic(record.Up+record.Down),
		helpers.FormatQuota(record.TotalGB),
	)

	link, err := h.xuiService.BuildLink(ctx, user.XuiUsername)
	if err != nil {
		if errors.Is(err, xuiclient.ErrRealityMisconfigured) {
			// Administrator-side misconfiguration: show it verbatim.
			return h.sendTextMessage(c, profile+"\n\n⚠️ "+err.Error(),
				h.createMainKeyboard(permissions.Member))
		}
		h.logger.Errorf("Failed to build link for %q: %v", user.XuiUsername, err)
		return h.sendTextMessage(c,
			profile+"\n\n⚠️ Could not generate your connection key. Please contact support.",
			h.createMainKeyboard(permissions.Member))
	}

	caption := profile + fmt.Sprintf(
		"\n\n🔗 <b>Your connection key (tap to copy):</b>\n<code>%s</code>", link)

	if err := h.sendQRCode(c, link, caption); err != nil {
		// QR delivery failed, fall back to plain text.
		return h.sendTextMessage(c, caption, h.createMainKeyboard(permissions.Member))
	}
	return nil
}

// handleReferralProgram shows the user's referral link and statistics
func (h *MemberHandler) handleReferralProgram(c telebot.Context) error {
	userID := c.Sender().ID
	botUsername := c.Bot().Me.Username

	referralLink := fmt.Sprintf("https://t.me/%s?start=ref%d", botUsername, userID)
	referralCount := h.storage.CountReferrals(userID)

	text := fmt.Sprintf(
		"🤝 <b>Your referral program</b>\n\n"+
			"Invite friends and earn bonus days!\n\n"+
			"🔗 <b>Your personal invite link:</b>\n<code>%s</code>\n\n"+
			"👤 <b>You invited:</b> %d\n\n"+
			"Every invited friend starts with <b>%d bonus days</b> on top of the trial.",
		referralLink, referralCount, constants.ReferralBonusDays)

	return h.sendTextMessage(c, text, h.createMainKeyboard(permissions.Member))
}

// handleSupport shows the support contact
func (h *MemberHandler) handleSupport(c telebot.Context) error {
	contact := h.config.Telegram.SupportContact
	if contact == "" {
		contact = "the administrator"
	}
	return h.sendTextMessage(c,
		fmt.Sprintf("🆘 For any questions contact %s.", contact),
		h.createMainKeyboard(permissions.Member))
}

// handleMainMenu shows the main menu
func (h *MemberHandler) handleMainMenu(c telebot.Context) error {
	if err := h.stateService.ClearState(c.Sender().ID); err != nil {
		h.logger.Errorf("Failed to clear user state: %v", err)
	}

	markup := h.createMainKeyboard(permissions.Member)
	return h.sendTextMessage(c, fmt.Sprintf("👋 Hi, %s!", fullName(c.Sender())), markup)
}

// fullName returns the sender's display name
func fullName(user *telebot.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	return name
}
