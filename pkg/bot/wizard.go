package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rescuebot/pkg/fsm"
	"rescuebot/pkg/models"

	tele "gopkg.in/telebot.v3"
)

const (
	wizSelectDeparture fsm.State = "wiz_select_departure"
	wizDepartureAction fsm.State = "wiz_departure_action"
	wizTitle           fsm.State = "wiz_title"
	wizLocation        fsm.State = "wiz_location"
	wizCapacity        fsm.State = "wiz_capacity"
	wizDate            fsm.State = "wiz_date"
	wizTime            fsm.State = "wiz_time"
	wizConfirm         fsm.State = "wiz_confirm"
)

const maxTitleLen = 32

// keepCurrent reports whether the reply asks to keep the edited crew's value.
func keepCurrent(t *fsm.Turn, d *models.CrewDraft) bool {
	return d.CrewID != 0 && strings.EqualFold(strings.TrimSpace(t.Event.Text), "next")
}

func draftOf(t *fsm.Turn) *models.CrewDraft {
	v, _ := t.Session.Get(keyDraft)
	d, _ := v.(*models.CrewDraft)
	return d
}

// createWizard walks a driver through building a new crew: pick a departure,
// then title, pickup location, capacity, date and time, then confirm.
func (b *Bot) createWizard() *fsm.Conversation {
	c := &fsm.Conversation{
		Name:  "crew_create",
		Entry: b.wizardStart,
	}
	b.wizardStates(c)
	c.ExitMap = map[fsm.State]fsm.State{fsm.StateEnd: stSelectAction}
	return c
}

// editWizard reuses the wizard steps against the driver's existing crew.
// Every prompt accepts "next" to keep the current value.
func (b *Bot) editWizard() *fsm.Conversation {
	c := &fsm.Conversation{
		Name:  "crew_edit",
		Entry: b.wizardEditStart,
	}
	b.wizardStates(c)
	c.ExitMap = map[fsm.State]fsm.State{fsm.StateEnd: stCrewAction}
	return c
}

func (b *Bot) wizardStates(c *fsm.Conversation) {
	c.States = map[fsm.State][]fsm.Rule{
		wizSelectDeparture: {
			{Match: fsm.OnCallback("dep_"), Handler: b.wizardShowDeparture},
			{Match: fsm.OnCallback("wiz_cancel"), Handler: wizardAbort},
		},
		wizDepartureAction: {
			{Match: fsm.OnCallback("wiz_select"), Handler: b.wizardPickDeparture},
			{Match: fsm.OnCallback("wiz_back"), Handler: b.wizardListDepartures},
		},
		wizTitle: {
			{Match: fsm.OnText(), Handler: b.wizardSetTitle},
		},
		wizLocation: {
			{Match: fsm.OnLocation(), Handler: b.wizardSetLocationPoint},
			{Match: fsm.OnText(), Handler: b.wizardSetLocationText},
		},
		wizCapacity: {
			{Match: fsm.OnText(), Handler: b.wizardSetCapacity},
		},
		wizDate: {
			{Match: fsm.OnText(), Handler: b.wizardSetDate},
		},
		wizTime: {
			{Match: fsm.OnText(), Handler: b.wizardSetTime},
		},
		wizConfirm: {
			{Match: fsm.OnCallback("wiz_save"), Handler: b.wizardSave},
			{Match: fsm.OnCallback("wiz_cancel"), Handler: wizardAbort},
		},
	}
	c.Fallbacks = []fsm.Rule{
		{Match: fsm.OnCommand("/cancel"), Handler: cancelHandler},
	}
}

func wizardAbort(t *fsm.Turn) (fsm.State, error) {
	t.Session.Delete(keyDraft)
	if err := t.Edit(messages["canceled"]); err != nil {
		return fsm.StateNone, err
	}
	return fsm.StateEnd, nil
}

func (b *Bot) wizardStart(t *fsm.Turn) (fsm.State, error) {
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	t.Session.Set(keyDraft, &models.CrewDraft{DriverID: user.ID})
	return b.wizardListDepartures(t)
}

func (b *Bot) wizardEditStart(t *fsm.Turn) (fsm.State, error) {
	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	crewID, ok := t.Session.GetInt64(keyCrewID)
	if !ok {
		return fsm.StateEnd, nil
	}
	crew, err := b.Svc.Crew().GetByID(context.Background(), crewID)
	if err != nil {
		return fsm.StateNone, err
	}

	pickup := crew.PickupDatetime.In(user.Location())
	t.Session.Set(keyDraft, &models.CrewDraft{
		CrewID:         crew.ID,
		DepartureID:    crew.DepartureID,
		DriverID:       crew.DriverID,
		Title:          crew.Title,
		PickupLocation: crew.PickupLocation,
		PassengersMax:  crew.PassengersMax,
		PickupDate:     time.Date(pickup.Year(), pickup.Month(), pickup.Day(), 0, 0, 0, 0, user.Location()),
		PickupClock:    pickup.Format("15:04"),
	})

	prompt := fmt.Sprintf("%s\nCurrent: %s\n%s",
		messages["enter_title"], crew.Title, messages["keep_hint"])
	if err := t.Reply(prompt); err != nil {
		return fsm.StateNone, err
	}
	return wizTitle, nil
}

func (b *Bot) wizardListDepartures(t *fsm.Turn) (fsm.State, error) {
	departures, err := b.Stg.Departure().ListOpen(context.Background())
	if err != nil {
		return fsm.StateNone, err
	}
	if len(departures) == 0 {
		if err := t.Edit(messages["no_departures"]); err != nil {
			return fsm.StateNone, err
		}
		return fsm.StateEnd, nil
	}

	var rows [][]tele.InlineButton
	for _, dep := range departures {
		rows = append(rows, row(btn(departureLabel(dep), fmt.Sprintf("dep_%d", dep.ID))))
	}
	rows = append(rows, row(btn("Cancel", "wiz_cancel")))

	if err := t.Edit(messages["choose_departure"], inlineKeyboard(rows...)); err != nil {
		return fsm.StateNone, err
	}
	return wizSelectDeparture, nil
}

func (b *Bot) wizardShowDeparture(t *fsm.Turn) (fsm.State, error) {
	depID, ok := callbackID(t.Event.Data, "dep_")
	if !ok {
		return fsm.StateNone, nil
	}

	ctx := context.Background()
	dep, err := b.Stg.Departure().GetByID(ctx, depID)
	if err != nil {
		return fsm.StateNone, err
	}
	tasks, err := b.Stg.Departure().ListTasks(ctx, depID)
	if err != nil {
		return fsm.StateNone, err
	}

	d := draftOf(t)
	d.DepartureID = dep.ID

	markup := inlineKeyboard(
		row(btn("Select", "wiz_select"), btn("Back", "wiz_back")),
	)
	if err := t.Edit(departureCard(dep, tasks), markup); err != nil {
		return fsm.StateNone, err
	}
	return wizDepartureAction, nil
}

func (b *Bot) wizardPickDeparture(t *fsm.Turn) (fsm.State, error) {
	if err := t.Edit(messages["enter_title"]); err != nil {
		return fsm.StateNone, err
	}
	return wizTitle, nil
}

func (b *Bot) wizardSetTitle(t *fsm.Turn) (fsm.State, error) {
	d := draftOf(t)

	if !keepCurrent(t, d) {
		title := strings.TrimSpace(t.Event.Text)
		if title == "" || len([]rune(title)) > maxTitleLen {
			if err := t.Reply(messages["bad_title"]); err != nil {
				return fsm.StateNone, err
			}
			return fsm.StateNone, nil
		}
		d.Title = title
	}

	prompt := messages["enter_location"]
	if d.CrewID != 0 {
		prompt = fmt.Sprintf("%s\nCurrent: %s\n%s",
			prompt, d.PickupLocation.String(), messages["keep_hint"])
	}
	if err := t.Reply(prompt); err != nil {
		return fsm.StateNone, err
	}
	return wizLocation, nil
}

func (b *Bot) wizardSetLocationPoint(t *fsm.Turn) (fsm.State, error) {
	d := draftOf(t)
	d.PickupLocation = models.Point{Lat: t.Event.Location.Lat, Lon: t.Event.Location.Lon}
	return b.wizardAskCapacity(t, d)
}

// wizardSetLocationText accepts "lat, lon" pairs and falls back to geocoding
// free-text addresses.
func (b *Bot) wizardSetLocationText(t *fsm.Turn) (fsm.State, error) {
	d := draftOf(t)

	if keepCurrent(t, d) {
		return b.wizardAskCapacity(t, d)
	}

	point, err := parseLatLon(t.Event.Text)
	if err != nil {
		point, err = b.Geo.Resolve(context.Background(), t.Event.Text)
	}
	if err != nil {
		if replyErr := t.Reply(messages["bad_location"]); replyErr != nil {
			return fsm.StateNone, replyErr
		}
		return fsm.StateNone, nil
	}

	d.PickupLocation = point
	return b.wizardAskCapacity(t, d)
}

func (b *Bot) wizardAskCapacity(t *fsm.Turn, d *models.CrewDraft) (fsm.State, error) {
	prompt := messages["enter_capacity"]
	if d.CrewID != 0 {
		prompt = fmt.Sprintf("%s\nCurrent: %d\n%s", prompt, d.PassengersMax, messages["keep_hint"])
	}
	if err := t.Reply(prompt); err != nil {
		return fsm.StateNone, err
	}
	return wizCapacity, nil
}

func (b *Bot) wizardSetCapacity(t *fsm.Turn) (fsm.State, error) {
	d := draftOf(t)

	if !keepCurrent(t, d) {
		n, err := strconv.Atoi(strings.TrimSpace(t.Event.Text))
		if err != nil || n < 1 {
			if replyErr := t.Reply(messages["bad_capacity"]); replyErr != nil {
				return fsm.StateNone, replyErr
			}
			return fsm.StateNone, nil
		}
		d.PassengersMax = n
	}

	prompt := messages["enter_date"]
	if d.CrewID != 0 {
		prompt = fmt.Sprintf("%s\nCurrent: %s\n%s",
			prompt, d.PickupDate.Format("02.01.2006"), messages["keep_hint"])
	}
	if err := t.Reply(prompt); err != nil {
		return fsm.StateNone, err
	}
	return wizDate, nil
}

func (b *Bot) wizardSetDate(t *fsm.Turn) (fsm.State, error) {
	d := draftOf(t)

	if !keepCurrent(t, d) {
		user, err := b.userOf(t)
		if err != nil {
			return fsm.StateNone, err
		}

		date, err := parseCrewDate(t.Event.Text, time.Now().In(user.Location()))
		if err != nil {
			msg := messages["bad_date"]
			if errors.Is(err, errPastDate) {
				msg = messages["past_date"]
			}
			if replyErr := t.Reply(msg); replyErr != nil {
				return fsm.StateNone, replyErr
			}
			return fsm.StateNone, nil
		}
		d.PickupDate = date
	}

	prompt := messages["enter_time"]
	if d.CrewID != 0 {
		prompt = fmt.Sprintf("%s\nCurrent: %s\n%s", prompt, d.PickupClock, messages["keep_hint"])
	}
	if err := t.Reply(prompt); err != nil {
		return fsm.StateNone, err
	}
	return wizTime, nil
}

func (b *Bot) wizardSetTime(t *fsm.Turn) (fsm.State, error) {
	d := draftOf(t)

	if !keepCurrent(t, d) {
		clock, err := parseClock(t.Event.Text)
		if err != nil {
			if replyErr := t.Reply(messages["bad_clock"]); replyErr != nil {
				return fsm.StateNone, replyErr
			}
			return fsm.StateNone, nil
		}
		d.PickupClock = clock
	}

	markup := inlineKeyboard(
		row(btn("💾 Save", "wiz_save"), btn("Cancel", "wiz_cancel")),
	)
	if err := t.Reply(draftSummary(d), markup); err != nil {
		return fsm.StateNone, err
	}
	return wizConfirm, nil
}

func (b *Bot) wizardSave(t *fsm.Turn) (fsm.State, error) {
	d := draftOf(t)
	ctx := context.Background()

	user, err := b.userOf(t)
	if err != nil {
		return fsm.StateNone, err
	}

	creating := d.CrewID == 0
	crew, err := b.Svc.Crew().SaveDraft(ctx, d, user.Location())
	if err != nil {
		return fsm.StateNone, err
	}
	t.Session.Delete(keyDraft)

	if err := t.Edit(messages["crew_saved"]); err != nil {
		return fsm.StateNone, err
	}
	if creating {
		b.announceCrew(ctx, crew, user.TelegramID)
	} else {
		b.announceCrewUpdated(ctx, crew, user.TelegramID)
	}
	return fsm.StateEnd, nil
}
