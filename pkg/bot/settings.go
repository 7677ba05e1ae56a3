package bot

import (
	"context"

	"rescuebot/pkg/fsm"
)

const (
	stSettings fsm.State = "settings_action"
	stAwaitTZ  fsm.State = "settings_await_tz"
)

// settingsConversation toggles the car flag and sets the timezone offset.
func (b *Bot) settingsConversation() *fsm.Conversation {
	c := &fsm.Conversation{
		Name:  "settings",
		Entry: b.settingsShow,
	}
	c.States = map[fsm.State][]fsm.Rule{
		stSettings: {
			{Match: fsm.OnCallback("set_car"), Handler: b.settingsToggleCar},
			{Match: fsm.OnCallback("set_tz"), Handler: b.settingsAskTZ},
			{Match: fsm.OnCallback("set_back"), Handler: settingsBack},
		},
		stAwaitTZ: {
			{Match: fsm.OnText(), Handler: b.settingsSetTZ},
		},
	}
	c.Fallbacks = []fsm.Rule{
		{Match: fsm.OnCommand("/cancel"), Handler: cancelHandler},
	}
	c.ExitMap = map[fsm.State]fsm.State{fsm.StateEnd: stSelectAction}
	return c
}

func settingsBack(t *fsm.Turn) (fsm.State, error) {
	return fsm.StateEnd, nil
}

func (b *Bot) settingsShow(t *fsm.Turn) (fsm.State, error) {
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	carLabel := "🚗 I have a car"
	if user.HasCar {
		carLabel = "🚶 I no longer have a car"
	}

	markup := inlineKeyboard(
		row(btn(carLabel, "set_car")),
		row(btn("🕒 Timezone", "set_tz")),
		row(btn("Back", "set_back")),
	)
	if err := t.Edit(settingsCard(user), markup); err != nil {
		return fsm.StateNone, err
	}
	return stSettings, nil
}

func (b *Bot) settingsToggleCar(t *fsm.Turn) (fsm.State, error) {
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	if err := b.Svc.User().SetHasCar(context.Background(), user.ID, !user.HasCar); err != nil {
		return fsm.StateNone, err
	}
	return b.settingsShow(t)
}

func (b *Bot) settingsAskTZ(t *fsm.Turn) (fsm.State, error) {
	if err := t.Edit(messages["enter_tz"]); err != nil {
		return fsm.StateNone, err
	}
	return stAwaitTZ, nil
}

func (b *Bot) settingsSetTZ(t *fsm.Turn) (fsm.State, error) {
	offset, err := parseTZOffset(t.Event.Text)
	if err != nil {
		if replyErr := t.Reply(messages["bad_tz"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return fsm.StateNone, nil
	}

	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}
	if err := b.Svc.User().SetTZOffset(context.Background(), user.ID, offset); err != nil {
		return fsm.StateNone, err
	}
	return b.settingsShow(t)
}
