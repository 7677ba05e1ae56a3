package bot

import (
	"context"
	"errors"
	"fmt"

	"rescuebot/pkg/fsm"
	"rescuebot/pkg/models"
	"rescuebot/storage"

	tele "gopkg.in/telebot.v3"
)

const (
	stJoinList     fsm.State = "join_list"
	stJoinDecision fsm.State = "join_decision"
)

// joinConversation lists available crews for a volunteer and handles their
// apply/withdraw decisions. Sharing a location re-sorts the list by pickup
// distance.
func (b *Bot) joinConversation() *fsm.Conversation {
	c := &fsm.Conversation{
		Name:  "crew_join",
		Entry: b.joinList,
	}
	c.States = map[fsm.State][]fsm.Rule{
		stJoinList: {
			{Match: fsm.OnLocation(), Handler: b.joinLocation},
			{Match: fsm.OnCallback("jc_"), Handler: b.joinShowCrew},
			{Match: fsm.OnCallback("join_back"), Handler: joinBack},
		},
		stJoinDecision: {
			{Match: fsm.OnCallback("join_apply"), Handler: b.joinApply},
			{Match: fsm.OnCallback("join_withdraw"), Handler: b.joinWithdraw},
			{Match: fsm.OnCallback("join_list"), Handler: b.joinList},
		},
	}
	c.Fallbacks = []fsm.Rule{
		{Match: fsm.OnCommand("/cancel"), Handler: cancelHandler},
	}
	c.ExitMap = map[fsm.State]fsm.State{fsm.StateEnd: stSelectAction}
	return c
}

func joinBack(t *fsm.Turn) (fsm.State, error) {
	t.Session.Delete(keyLocation)
	t.Session.Delete(keyCrewID)
	return fsm.StateEnd, nil
}

func volunteerLocation(t *fsm.Turn) *models.Point {
	v, ok := t.Session.Get(keyLocation)
	if !ok {
		return nil
	}
	p, ok := v.(models.Point)
	if !ok {
		return nil
	}
	return &p
}

func (b *Bot) joinList(t *fsm.Turn) (fsm.State, error) {
	from := volunteerLocation(t)

	crews, err := b.Svc.Crew().ListAvailable(context.Background(), from)
	if err != nil {
		return fsm.StateNone, err
	}
	if len(crews) == 0 {
		if err := t.Edit(messages["no_crews"]); err != nil {
			return fsm.StateNone, err
		}
		return fsm.StateEnd, nil
	}

	text := "Available crews:"
	if from == nil {
		text += "\n" + messages["share_location_tip"]
	}

	var rows [][]tele.InlineButton
	for _, crew := range crews {
		rows = append(rows, row(btn(crewListLabel(crew, from), fmt.Sprintf("jc_%d", crew.ID))))
	}
	rows = append(rows, row(btn("Back", "join_back")))

	if err := t.Edit(text, inlineKeyboard(rows...)); err != nil {
		return fsm.StateNone, err
	}
	return stJoinList, nil
}

func (b *Bot) joinLocation(t *fsm.Turn) (fsm.State, error) {
	t.Session.Set(keyLocation, models.Point{
		Lat: t.Event.Location.Lat,
		Lon: t.Event.Location.Lon,
	})
	return b.joinList(t)
}

func (b *Bot) joinShowCrew(t *fsm.Turn) (fsm.State, error) {
	crewID, ok := callbackID(t.Event.Data, "jc_")
	if !ok {
		return fsm.StateNone, nil
	}

	ctx := context.Background()
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	crew, err := b.Svc.Crew().GetByID(ctx, crewID)
	if err != nil {
		return fsm.StateNone, err
	}

	jr, err := b.Stg.JoinRequest().GetByCrewAndPassenger(ctx, crewID, user.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fsm.StateNone, err
	}

	t.Session.Set(keyCrewID, crew.ID)

	var actions []tele.InlineButton
	if jr == nil {
		actions = append(actions, btn("🙋 Apply", "join_apply"))
	} else {
		actions = append(actions, btn("↩️ Withdraw", "join_withdraw"))
	}

	markup := inlineKeyboard(row(actions...), row(btn("Back", "join_list")))
	if err := t.Edit(joinCrewCard(crew, jr, user.Location()), markup); err != nil {
		return fsm.StateNone, err
	}
	return stJoinDecision, nil
}

func (b *Bot) joinApply(t *fsm.Turn) (fsm.State, error) {
	crewID, ok := t.Session.GetInt64(keyCrewID)
	if !ok {
		return b.joinList(t)
	}

	ctx := context.Background()
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	_, created, err := b.Svc.Join().Apply(ctx, crewID, user.ID)
	if err != nil {
		return fsm.StateNone, err
	}

	if !created {
		if err := t.Reply(messages["already_applied"]); err != nil {
			return fsm.StateNone, err
		}
		return b.joinList(t)
	}

	if err := t.Reply(messages["applied"]); err != nil {
		return fsm.StateNone, err
	}
	b.notifyDriverTally(ctx, crewID,
		fmt.Sprintf("%s wants to join your crew.", user.FullName()))
	return b.joinList(t)
}

func (b *Bot) joinWithdraw(t *fsm.Turn) (fsm.State, error) {
	crewID, ok := t.Session.GetInt64(keyCrewID)
	if !ok {
		return b.joinList(t)
	}

	ctx := context.Background()
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	err = b.Svc.Join().Withdraw(ctx, crewID, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		if replyErr := t.Reply(messages["no_request"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return b.joinList(t)
	}
	if err != nil {
		return fsm.StateNone, err
	}

	if err := t.Reply(messages["withdrawn"]); err != nil {
		return fsm.StateNone, err
	}
	b.notifyDriverTally(ctx, crewID,
		fmt.Sprintf("%s withdrew their request.", user.FullName()))
	return b.joinList(t)
}

// notifyDriverTally tells the driver about a request change together with the
// current seat tally.
func (b *Bot) notifyDriverTally(ctx context.Context, crewID int64, event string) {
	crew, err := b.Svc.Crew().GetByID(ctx, crewID)
	if err != nil {
		return
	}
	active, capacity, err := b.Svc.Join().Tally(ctx, crewID)
	if err != nil {
		return
	}
	b.notifyUser(ctx, crew.DriverID,
		fmt.Sprintf("%s\nCrew \"%s\": %d of %d seats claimed.", event, crew.Title, active, capacity))
}
