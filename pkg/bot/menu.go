package bot

import (
	"context"

	"rescuebot/pkg/fsm"
	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"

	tele "gopkg.in/telebot.v3"
)

// Session data keys shared by the conversations.
const (
	keyDraft    = "draft"
	keyCrewID   = "crew_id"
	keyLocation = "location"
)

const stSelectAction fsm.State = "select_action"

func (b *Bot) userOf(t *fsm.Turn) (*models.User, error) {
	return b.Svc.User().Get(context.Background(), t.Event.SenderID)
}

// rootConversation is the /start menu every other conversation hangs off.
func (b *Bot) rootConversation() *fsm.Conversation {
	root := &fsm.Conversation{
		Name:       "menu",
		EntryMatch: fsm.OnCommand("/start"),
		Entry:      b.startHandler,
	}

	root.States = map[fsm.State][]fsm.Rule{
		stSelectAction: {
			{Match: fsm.OnCallback("menu_create"), Enter: b.createWizard()},
			{Match: fsm.OnCallback("menu_update"), Enter: b.manageConversation()},
			{Match: fsm.OnCallback("menu_join"), Enter: b.joinConversation()},
			{Match: fsm.OnCallback("menu_settings"), Enter: b.settingsConversation()},
			{Match: fsm.OnCallback("menu_info"), Handler: b.menuInfo},
			{Match: fsm.OnCallback("menu_help"), Handler: b.menuHelp},
			{Match: fsm.OnCallback("menu_done"), Handler: b.menuDone},
		},
	}
	root.Fallbacks = []fsm.Rule{
		{Match: fsm.OnCommand("/cancel"), Handler: cancelHandler},
		{Match: fsm.OnCommand("/start"), Handler: b.startHandler},
	}
	root.Resume = func(t *fsm.Turn, _ fsm.State) error {
		_, err := b.showMenu(messages["what_next"])(t)
		return err
	}

	return root
}

// startHandler records the sender's chat identity, then shows the menu.
// Registration failures are logged and do not block a provisioned user.
func (b *Bot) startHandler(t *fsm.Turn) (fsm.State, error) {
	ev := t.Event
	if err := b.Svc.User().Register(context.Background(),
		ev.SenderID, ev.SenderFirstName, ev.SenderLastName); err != nil {
		b.Log.Warning("failed to register sender",
			logger.Int64("telegram_id", ev.SenderID), logger.Error(err))
	}
	return b.showMenu(messages["welcome"])(t)
}

// showMenu renders the action keyboard. Driver actions appear only for
// volunteers with a car.
func (b *Bot) showMenu(text string) fsm.Handler {
	return func(t *fsm.Turn) (fsm.State, error) {
		user, err := b.userOf(t)
		if err != nil {
			return fsm.StateNone, err
		}

		var rows [][]tele.InlineButton
		if user.HasCar {
			rows = append(rows,
				row(btn("🚗 Create a crew", "menu_create")),
				row(btn("🔧 My crew", "menu_update")),
			)
		}
		rows = append(rows,
			row(btn("🙋 Join a crew", "menu_join")),
			row(btn("📋 Activities info", "menu_info")),
			row(btn("⚙️ Settings", "menu_settings")),
			row(btn("❓ Help", "menu_help")),
			row(btn("Done", "menu_done")),
		)

		if err := t.Reply(text, inlineKeyboard(rows...)); err != nil {
			return fsm.StateNone, err
		}
		return stSelectAction, nil
	}
}

func (b *Bot) menuInfo(t *fsm.Turn) (fsm.State, error) {
	text, err := b.activitySummary(context.Background())
	if err != nil {
		return fsm.StateNone, err
	}
	if err := t.Reply(text); err != nil {
		return fsm.StateNone, err
	}
	return b.showMenu(messages["what_next"])(t)
}

func (b *Bot) menuHelp(t *fsm.Turn) (fsm.State, error) {
	if err := t.Reply(messages["help"]); err != nil {
		return fsm.StateNone, err
	}
	return b.showMenu(messages["what_next"])(t)
}

func (b *Bot) menuDone(t *fsm.Turn) (fsm.State, error) {
	if err := t.Edit(messages["canceled"]); err != nil {
		return fsm.StateNone, err
	}
	return fsm.StateEnd, nil
}

// cancelHandler is the /cancel fallback shared by every conversation. The
// stopping token is left unmapped on purpose so it ends the whole stack.
func cancelHandler(t *fsm.Turn) (fsm.State, error) {
	if err := t.Reply(messages["canceled"]); err != nil {
		return fsm.StateNone, err
	}
	return fsm.StateStopping, nil
}
