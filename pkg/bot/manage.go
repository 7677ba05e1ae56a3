package bot

import (
	"context"
	"errors"
	"fmt"

	"rescuebot/pkg/fsm"
	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/pkg/tracks"
	"rescuebot/service"
	"rescuebot/storage"

	tele "gopkg.in/telebot.v3"
)

const (
	stCrewAction    fsm.State = "crew_action"
	stDeleteConfirm fsm.State = "crew_delete_confirm"
	stAwaitTrack    fsm.State = "crew_await_track"
)

// manageConversation is the driver's crew dashboard: edit, review join
// requests, advance the status, upload the track, delete.
func (b *Bot) manageConversation() *fsm.Conversation {
	c := &fsm.Conversation{
		Name:  "crew_manage",
		Entry: b.manageStart,
	}
	c.States = map[fsm.State][]fsm.Rule{
		stCrewAction: {
			{Match: fsm.OnCallback("crew_edit"), Enter: b.editWizard()},
			{Match: fsm.OnCallback("crew_pass"), Enter: b.passengersConversation()},
			{Match: fsm.OnCallback("crew_advance"), Handler: b.manageAdvance},
			{Match: fsm.OnCallback("crew_track"), Handler: b.manageAskTrack},
			{Match: fsm.OnCallback("crew_delete"), Handler: b.manageConfirmDelete},
			{Match: fsm.OnCallback("crew_back"), Handler: manageBack},
		},
		stDeleteConfirm: {
			{Match: fsm.OnCallback("crew_del_yes"), Handler: b.manageDelete},
			{Match: fsm.OnCallback("crew_del_no"), Handler: b.manageShowCrew},
		},
		stAwaitTrack: {
			{Match: fsm.OnDocument(), Handler: b.manageSaveTrack},
			{Match: fsm.OnCallback("crew_back"), Handler: b.manageShowCrew},
		},
	}
	c.Fallbacks = []fsm.Rule{
		{Match: fsm.OnCommand("/cancel"), Handler: cancelHandler},
	}
	c.ExitMap = map[fsm.State]fsm.State{fsm.StateEnd: stSelectAction}
	c.Resume = func(t *fsm.Turn, _ fsm.State) error {
		_, err := b.manageShowCrew(t)
		return err
	}
	return c
}

func manageBack(t *fsm.Turn) (fsm.State, error) {
	t.Session.Delete(keyCrewID)
	return fsm.StateEnd, nil
}

// manageStart locates the driver's crew. An active crew gets the full action
// set; a completed one only accepts a track upload.
func (b *Bot) manageStart(t *fsm.Turn) (fsm.State, error) {
	ctx := context.Background()

	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	crew, err := b.Svc.Crew().DriverCrew(ctx, user.ID)
	if errors.Is(err, storage.ErrNotFound) {
		crew, err = b.Svc.Crew().CompletedDriverCrew(ctx, user.ID)
	}
	if errors.Is(err, storage.ErrNotFound) {
		if err := t.Edit(messages["no_own_crew"]); err != nil {
			return fsm.StateNone, err
		}
		return fsm.StateEnd, nil
	}
	if err != nil {
		return fsm.StateNone, err
	}

	t.Session.Set(keyCrewID, crew.ID)
	return b.renderCrew(t, crew, user)
}

func (b *Bot) manageShowCrew(t *fsm.Turn) (fsm.State, error) {
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}
	crew, err := b.manageCrew(t)
	if err != nil {
		return fsm.StateNone, err
	}
	return b.renderCrew(t, crew, user)
}

func (b *Bot) manageCrew(t *fsm.Turn) (*models.Crew, error) {
	crewID, ok := t.Session.GetInt64(keyCrewID)
	if !ok {
		return nil, storage.ErrNotFound
	}
	return b.Svc.Crew().GetByID(context.Background(), crewID)
}

func (b *Bot) renderCrew(t *fsm.Turn, crew *models.Crew, user *models.User) (fsm.State, error) {
	var rows [][]tele.InlineButton
	if crew.Status == models.CrewStatusCompleted {
		rows = append(rows, row(btn("📎 Upload track", "crew_track")))
	} else {
		rows = append(rows,
			row(btn("✏️ Edit", "crew_edit"), btn("🙋 Requests", "crew_pass")),
			row(btn(advanceLabel(crew.Status), "crew_advance")),
			row(btn("📎 Upload track", "crew_track"), btn("🗑 Delete", "crew_delete")),
		)
	}
	rows = append(rows, row(btn("Back", "crew_back")))

	if err := t.Edit(crewCard(crew, user.Location()), inlineKeyboard(rows...)); err != nil {
		return fsm.StateNone, err
	}
	return stCrewAction, nil
}

func advanceLabel(status string) string {
	switch status {
	case models.CrewStatusAvailable:
		return "🚀 Depart"
	case models.CrewStatusOnMission:
		return "↩️ Start return"
	case models.CrewStatusReturning:
		return "🏁 Complete"
	}
	return "Status"
}

func (b *Bot) manageAdvance(t *fsm.Turn) (fsm.State, error) {
	ctx := context.Background()

	crewID, ok := t.Session.GetInt64(keyCrewID)
	if !ok {
		return fsm.StateEnd, nil
	}

	crew, err := b.Svc.Crew().Advance(ctx, crewID)
	if errors.Is(err, service.ErrCrewCompleted) || errors.Is(err, storage.ErrWrongStatus) {
		if replyErr := t.Reply(messages["crew_completed"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return b.manageShowCrew(t)
	}
	if err != nil {
		return fsm.StateNone, err
	}

	if crew.Status == models.CrewStatusCompleted {
		b.announceCrewCompleted(ctx, crew)

		if err := t.Reply(messages["send_track"]); err != nil {
			return fsm.StateNone, err
		}
		return stAwaitTrack, nil
	}

	return b.manageShowCrew(t)
}

func (b *Bot) manageAskTrack(t *fsm.Turn) (fsm.State, error) {
	markup := inlineKeyboard(row(btn("Back", "crew_back")))
	if err := t.Edit(messages["send_track"], markup); err != nil {
		return fsm.StateNone, err
	}
	return stAwaitTrack, nil
}

func (b *Bot) manageSaveTrack(t *fsm.Turn) (fsm.State, error) {
	doc := t.Event.Document
	if doc == nil || !tracks.IsTrackFile(doc.FileName) {
		if err := t.Reply(messages["bad_track"]); err != nil {
			return fsm.StateNone, err
		}
		return fsm.StateNone, nil
	}

	crew, err := b.manageCrew(t)
	if err != nil {
		return fsm.StateNone, err
	}

	src, err := doc.Open()
	if err != nil {
		b.Log.Error("track download failed",
			logger.Int64("crew_id", crew.ID), logger.Error(err))
		if replyErr := t.Reply(messages["track_failed"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return fsm.StateNone, nil
	}
	defer src.Close()

	size, err := b.Tracks.Save(crew.DepartureID, crew.ID, doc.FileName, src)
	if err != nil {
		b.Log.Error("track save failed",
			logger.Int64("crew_id", crew.ID), logger.Error(err))
		if replyErr := t.Reply(messages["track_failed"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return fsm.StateNone, nil
	}

	b.Log.Info("track stored",
		logger.Int64("crew_id", crew.ID),
		logger.String("file", doc.FileName),
		logger.Int64("bytes", size),
	)
	if err := t.Reply(fmt.Sprintf("Track %s uploaded, thank you!", doc.FileName)); err != nil {
		return fsm.StateNone, err
	}
	return b.manageShowCrew(t)
}

func (b *Bot) manageConfirmDelete(t *fsm.Turn) (fsm.State, error) {
	markup := inlineKeyboard(
		row(btn("Yes, delete", "crew_del_yes"), btn("No", "crew_del_no")),
	)
	if err := t.Edit("Delete the crew? Join requests will be dropped with it.", markup); err != nil {
		return fsm.StateNone, err
	}
	return stDeleteConfirm, nil
}

func (b *Bot) manageDelete(t *fsm.Turn) (fsm.State, error) {
	crewID, ok := t.Session.GetInt64(keyCrewID)
	if !ok {
		return fsm.StateEnd, nil
	}

	err := b.Svc.Crew().Delete(context.Background(), crewID)
	if errors.Is(err, storage.ErrWrongStatus) {
		if replyErr := t.Reply(messages["crew_completed"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return b.manageShowCrew(t)
	}
	if err != nil {
		return fsm.StateNone, err
	}

	t.Session.Delete(keyCrewID)
	if err := t.Edit(messages["crew_deleted"]); err != nil {
		return fsm.StateNone, err
	}
	return fsm.StateEnd, nil
}
