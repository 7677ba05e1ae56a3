package bot

import (
	"context"
	"errors"
	"fmt"

	"rescuebot/pkg/fsm"
	"rescuebot/storage"

	tele "gopkg.in/telebot.v3"
)

const (
	stRequestList   fsm.State = "request_list"
	stRequestAction fsm.State = "request_action"
)

// passengersConversation lets the driver review join requests one by one.
func (b *Bot) passengersConversation() *fsm.Conversation {
	c := &fsm.Conversation{
		Name:  "crew_passengers",
		Entry: b.requestList,
	}
	c.States = map[fsm.State][]fsm.Rule{
		stRequestList: {
			{Match: fsm.OnCallback("req_"), Handler: b.requestShow},
			{Match: fsm.OnCallback("pm_back"), Handler: passengersBack},
		},
		stRequestAction: {
			{Match: fsm.OnCallback("acc_"), Handler: b.requestAccept},
			{Match: fsm.OnCallback("rej_"), Handler: b.requestReject},
			{Match: fsm.OnCallback("pm_list"), Handler: b.requestList},
		},
	}
	c.Fallbacks = []fsm.Rule{
		{Match: fsm.OnCommand("/cancel"), Handler: cancelHandler},
	}
	c.ExitMap = map[fsm.State]fsm.State{fsm.StateEnd: stCrewAction}
	return c
}

func passengersBack(t *fsm.Turn) (fsm.State, error) {
	return fsm.StateEnd, nil
}

func (b *Bot) requestList(t *fsm.Turn) (fsm.State, error) {
	crewID, ok := t.Session.GetInt64(keyCrewID)
	if !ok {
		return fsm.StateEnd, nil
	}

	ctx := context.Background()
	requests, err := b.Svc.Join().ListByCrew(ctx, crewID)
	if err != nil {
		return fsm.StateNone, err
	}

	active, capacity, err := b.Svc.Join().Tally(ctx, crewID)
	if err != nil {
		return fsm.StateNone, err
	}

	text := fmt.Sprintf("Join requests: %d of %d seats claimed.", active, capacity)
	if len(requests) == 0 {
		text = "No join requests yet."
	}

	var rows [][]tele.InlineButton
	for _, jr := range requests {
		label := fmt.Sprintf("%s %s", jr.Emoji(), jr.PassengerName)
		rows = append(rows, row(btn(label, fmt.Sprintf("req_%d", jr.ID))))
	}
	rows = append(rows, row(btn("Back", "pm_back")))

	if err := t.Edit(text, inlineKeyboard(rows...)); err != nil {
		return fsm.StateNone, err
	}
	return stRequestList, nil
}

func (b *Bot) requestShow(t *fsm.Turn) (fsm.State, error) {
	reqID, ok := callbackID(t.Event.Data, "req_")
	if !ok {
		return fsm.StateNone, nil
	}

	jr, err := b.Svc.Join().Get(context.Background(), reqID)
	if err != nil {
		return fsm.StateNone, err
	}

	text := fmt.Sprintf("%s %s\nStatus: %s\nRequested: %s",
		jr.Emoji(), jr.PassengerName, jr.Status,
		jr.RequestTime.Format("02.01.2006 15:04"))

	markup := inlineKeyboard(
		row(
			btn("✅ Accept", fmt.Sprintf("acc_%d", jr.ID)),
			btn("❌ Reject", fmt.Sprintf("rej_%d", jr.ID)),
		),
		row(btn("Back", "pm_list")),
	)
	if err := t.Edit(text, markup); err != nil {
		return fsm.StateNone, err
	}
	return stRequestAction, nil
}

func (b *Bot) requestAccept(t *fsm.Turn) (fsm.State, error) {
	reqID, ok := callbackID(t.Event.Data, "acc_")
	if !ok {
		return fsm.StateNone, nil
	}

	ctx := context.Background()
	err := b.Svc.Join().Accept(ctx, reqID)
	if errors.Is(err, storage.ErrCrewFull) {
		if replyErr := t.Reply(messages["crew_full"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return b.requestList(t)
	}
	if err != nil {
		return fsm.StateNone, err
	}

	b.notifyRequestDecision(ctx, reqID, "Your request has been accepted. Welcome aboard!")
	return b.requestList(t)
}

func (b *Bot) requestReject(t *fsm.Turn) (fsm.State, error) {
	reqID, ok := callbackID(t.Event.Data, "rej_")
	if !ok {
		return fsm.StateNone, nil
	}

	ctx := context.Background()
	if err := b.Svc.Join().Reject(ctx, reqID); err != nil {
		return fsm.StateNone, err
	}

	b.notifyRequestDecision(ctx, reqID, "Unfortunately your request has been rejected.")
	return b.requestList(t)
}

func (b *Bot) notifyRequestDecision(ctx context.Context, reqID int64, text string) {
	jr, err := b.Svc.Join().Get(ctx, reqID)
	if err != nil {
		return
	}
	crew, err := b.Svc.Crew().GetByID(ctx, jr.CrewID)
	if err == nil {
		text = fmt.Sprintf("Crew \"%s\": %s", crew.Title, text)
	}
	b.notifyUser(ctx, jr.PassengerID, text)
}
