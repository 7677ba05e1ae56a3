package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rescuebot/config"
	"rescuebot/pkg/fsm"
	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/pkg/tracks"
	"rescuebot/service"

	tele "gopkg.in/telebot.v3"
)

const (
	driverTele    int64 = 100
	volunteerTele int64 = 200
	secondTele    int64 = 300
)

type sent struct {
	text   string
	markup *tele.ReplyMarkup
}

// harness wires a Bot against the in-memory fakes and records every outbound
// message per recipient.
type harness struct {
	t       *testing.T
	bot     *Bot
	data    *fakeData
	replies []sent
	notices map[int64][]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	data := newFakeData()
	data.users = []*models.User{
		{ID: 1, TelegramID: driverTele, FirstName: "Ivan", LastName: "Petrov", HasCar: true, IsActive: true, TZOffsetMinutes: 180},
		{ID: 2, TelegramID: volunteerTele, FirstName: "Anna", LastName: "Orlova", IsActive: true},
		{ID: 3, TelegramID: secondTele, FirstName: "Oleg", LastName: "Sidorov", IsActive: true},
	}
	data.nextID = 10
	data.searches = 2
	data.departures = []*models.Departure{
		{ID: 1, SearchRequestID: 1, MissingPerson: "N. Ivanova", City: "Tver", CrewCount: 0},
	}

	log := logger.New("bot-test", "error")
	store := &fakeStore{d: data}

	h := &harness{
		t:       t,
		data:    data,
		notices: make(map[int64][]string),
	}

	b := &Bot{
		Log:    log,
		Cfg:    &config.Config{},
		Stg:    store,
		Svc:    service.New(store, log),
		Allow:  NewAllowlist([]int64{driverTele, volunteerTele, secondTele}),
		Tracks: tracks.NewStore(t.TempDir()),
		Geo:    NewGeocoder("http://127.0.0.1:1", log),
	}
	b.notify = func(teleID int64, text string) error {
		h.notices[teleID] = append(h.notices[teleID], text)
		return nil
	}
	b.Engine = fsm.NewEngine(b.rootConversation(), log)
	b.Engine.FailureText = messages["failure"]

	h.bot = b
	return h
}

func (h *harness) dispatch(ev fsm.Event) bool {
	h.t.Helper()
	record := func(text string, opts ...interface{}) error {
		s := sent{text: text}
		for _, opt := range opts {
			if m, ok := opt.(*tele.ReplyMarkup); ok {
				s.markup = m
			}
		}
		h.replies = append(h.replies, s)
		return nil
	}

	handled, err := h.bot.Engine.Dispatch(ev, record, record)
	if err != nil {
		h.t.Fatalf("dispatch error: %v", err)
	}
	return handled
}

func (h *harness) cmd(chat int64, command string) {
	h.dispatch(fsm.Event{Kind: fsm.EventCommand, ChatID: chat, SenderID: chat, Command: command})
}

func (h *harness) text(chat int64, text string) {
	h.dispatch(fsm.Event{Kind: fsm.EventText, ChatID: chat, SenderID: chat, Text: text})
}

func (h *harness) cb(chat int64, data string) {
	h.dispatch(fsm.Event{Kind: fsm.EventCallback, ChatID: chat, SenderID: chat, Data: data})
}

func (h *harness) loc(chat int64, lat, lon float64) {
	h.dispatch(fsm.Event{Kind: fsm.EventLocation, ChatID: chat, SenderID: chat,
		Location: &fsm.Location{Lat: lat, Lon: lon}})
}

func (h *harness) doc(chat int64, name, content string) {
	h.dispatch(fsm.Event{Kind: fsm.EventDocument, ChatID: chat, SenderID: chat,
		Document: &fsm.Document{
			FileName: name,
			Size:     int64(len(content)),
			Open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(content)), nil
			},
		}})
}

func (h *harness) last() sent {
	h.t.Helper()
	if len(h.replies) == 0 {
		h.t.Fatal("no replies recorded")
	}
	return h.replies[len(h.replies)-1]
}

func (h *harness) lastButtons() []string {
	h.t.Helper()
	s := h.last()
	if s.markup == nil {
		return nil
	}
	var data []string
	for _, r := range s.markup.InlineKeyboard {
		for _, b := range r {
			data = append(data, b.Data)
		}
	}
	return data
}

func (h *harness) expectText(want string) {
	h.t.Helper()
	if got := h.last().text; got != want {
		h.t.Errorf("last reply = %q, want %q", got, want)
	}
}

// replied reports whether the text was sent at any point; terminal replies
// are followed by the parent menu redisplay, so "last" is not enough there.
func (h *harness) replied(text string) bool {
	for _, s := range h.replies {
		if s.text == text {
			return true
		}
	}
	return false
}

func hasButton(buttons []string, data string) bool {
	for _, b := range buttons {
		if b == data {
			return true
		}
	}
	return false
}

// seedCrew inserts an available crew for the driver directly into the fakes.
func (h *harness) seedCrew(capacity int) *models.Crew {
	h.t.Helper()
	crew, err := h.data.crewRepo().Create(context.Background(), &models.Crew{
		DepartureID:    1,
		Title:          "Alpha",
		DriverID:       1,
		PickupLocation: models.Point{Lat: 56.85, Lon: 35.9},
		PassengersMax:  capacity,
		Status:         models.CrewStatusAvailable,
	})
	if err != nil {
		h.t.Fatalf("seedCrew: %v", err)
	}
	return crew
}

func (d *fakeData) crewRepo() *fakeCrews { return &fakeCrews{d} }
func (d *fakeData) joinRepo() *fakeJoins { return &fakeJoins{d} }

func TestMenuShowsDriverActionsOnlyWithCar(t *testing.T) {
	h := newHarness(t)

	h.cmd(driverTele, "/start")
	buttons := h.lastButtons()
	if !hasButton(buttons, "menu_create") || !hasButton(buttons, "menu_update") {
		t.Errorf("driver menu missing crew actions: %v", buttons)
	}

	h.cmd(volunteerTele, "/start")
	buttons = h.lastButtons()
	if hasButton(buttons, "menu_create") {
		t.Errorf("car-less volunteer sees crew creation: %v", buttons)
	}
	if !hasButton(buttons, "menu_join") {
		t.Errorf("volunteer menu missing join action: %v", buttons)
	}
}

func TestStartRegistersSenderProfile(t *testing.T) {
	h := newHarness(t)

	// Coordinators provision rows before the volunteer's name is known.
	h.data.users[1].FirstName = ""
	h.data.users[1].LastName = ""

	h.dispatch(fsm.Event{Kind: fsm.EventCommand, ChatID: volunteerTele, SenderID: volunteerTele,
		SenderFirstName: "Anna", SenderLastName: "Orlova", Command: "/start"})

	u := h.data.users[1]
	if u.FirstName != "Anna" || u.LastName != "Orlova" {
		t.Errorf("profile after /start = %q %q, want Anna Orlova", u.FirstName, u.LastName)
	}
	if u.LastActionAt.IsZero() {
		t.Error("last action not bumped on /start")
	}

	// Provisioned names win over the Telegram profile.
	h.dispatch(fsm.Event{Kind: fsm.EventCommand, ChatID: driverTele, SenderID: driverTele,
		SenderFirstName: "Vanya", SenderLastName: "P.", Command: "/start"})

	d := h.data.users[0]
	if d.FirstName != "Ivan" || d.LastName != "Petrov" {
		t.Errorf("provisioned names overwritten: %q %q", d.FirstName, d.LastName)
	}
}

func TestCrewWizardHappyPath(t *testing.T) {
	h := newHarness(t)

	h.cmd(driverTele, "/start")
	h.cb(driverTele, "menu_create")
	if !hasButton(h.lastButtons(), "dep_1") {
		t.Fatalf("departure list missing dep_1: %v", h.lastButtons())
	}

	h.cb(driverTele, "dep_1")
	h.cb(driverTele, "wiz_select")
	h.expectText(messages["enter_title"])

	h.text(driverTele, "Crew Alpha")
	h.text(driverTele, "56.85, 35.90")
	h.text(driverTele, "3")
	h.text(driverTele, "tomorrow")
	h.text(driverTele, "10:30")
	if !hasButton(h.lastButtons(), "wiz_save") {
		t.Fatalf("confirmation missing save button: %v", h.lastButtons())
	}

	h.cb(driverTele, "wiz_save")
	if !h.replied(messages["crew_saved"]) {
		t.Fatalf("no save confirmation; last reply %q", h.last().text)
	}

	if len(h.data.crews) != 1 {
		t.Fatalf("crews stored = %d, want 1", len(h.data.crews))
	}
	var crew *models.Crew
	for _, c := range h.data.crews {
		crew = c
	}
	if crew.Title != "Crew Alpha" || crew.PassengersMax != 3 {
		t.Errorf("stored crew = %q/%d seats", crew.Title, crew.PassengersMax)
	}
	if crew.Status != models.CrewStatusAvailable {
		t.Errorf("stored crew status = %q", crew.Status)
	}

	// The wizard draft does not outlive the save.
	if s, ok := h.bot.Engine.Sessions().Peek(driverTele); ok {
		if _, present := s.Get(keyDraft); present {
			t.Error("draft still in session after save")
		}
	}

	// The announcement goes to every active volunteer except the driver.
	if len(h.notices[driverTele]) != 0 {
		t.Errorf("driver received own announcement: %v", h.notices[driverTele])
	}
	if len(h.notices[volunteerTele]) != 1 || len(h.notices[secondTele]) != 1 {
		t.Errorf("announcement fan-out = %d/%d, want 1/1",
			len(h.notices[volunteerTele]), len(h.notices[secondTele]))
	}
}

func TestCrewEditBroadcastsUpdate(t *testing.T) {
	h := newHarness(t)
	crew := h.seedCrew(3)

	h.cmd(driverTele, "/start")
	h.cb(driverTele, "menu_update")
	h.cb(driverTele, "crew_edit")

	h.text(driverTele, "next") // keep the title
	h.text(driverTele, "56.90, 36.10")
	h.text(driverTele, "2")
	h.text(driverTele, "tomorrow")
	h.text(driverTele, "09:00")
	h.cb(driverTele, "wiz_save")

	if !h.replied(messages["crew_saved"]) {
		t.Fatalf("no save confirmation; last reply %q", h.last().text)
	}

	updated, err := h.data.crewRepo().GetByID(context.Background(), crew.ID)
	if err != nil {
		t.Fatalf("GetByID after edit: %v", err)
	}
	if updated.Title != "Alpha" || updated.PassengersMax != 2 {
		t.Errorf("edited crew = %q/%d seats, want Alpha/2", updated.Title, updated.PassengersMax)
	}

	// Editing a crew announces the change the same way creating one does.
	if len(h.notices[driverTele]) != 0 {
		t.Errorf("driver received own update notice: %v", h.notices[driverTele])
	}
	if len(h.notices[volunteerTele]) != 1 || len(h.notices[secondTele]) != 1 {
		t.Fatalf("update fan-out = %d/%d, want 1/1",
			len(h.notices[volunteerTele]), len(h.notices[secondTele]))
	}
	if !strings.Contains(h.notices[volunteerTele][0], "was updated") {
		t.Errorf("update notice text = %q", h.notices[volunteerTele][0])
	}
}

func TestCrewWizardValidationReprompts(t *testing.T) {
	h := newHarness(t)

	h.cmd(driverTele, "/start")
	h.cb(driverTele, "menu_create")
	h.cb(driverTele, "dep_1")
	h.cb(driverTele, "wiz_select")

	h.text(driverTele, strings.Repeat("x", 40))
	h.expectText(messages["bad_title"])

	h.text(driverTele, "Crew Alpha")
	h.expectText(messages["enter_location"])

	h.text(driverTele, "95, 200")
	h.expectText(messages["bad_location"])

	h.loc(driverTele, 56.85, 35.9)
	h.expectText(messages["enter_capacity"])

	h.text(driverTele, "zero")
	h.expectText(messages["bad_capacity"])

	h.text(driverTele, "-1")
	h.expectText(messages["bad_capacity"])

	h.text(driverTele, "2")
	h.expectText(messages["enter_date"])

	h.text(driverTele, "31.02")
	h.expectText(messages["bad_date"])

	h.text(driverTele, "tomorrow")
	h.expectText(messages["enter_time"])

	h.text(driverTele, "25:99")
	h.expectText(messages["bad_clock"])
}

func TestCrewWizardCancelLeavesNoCrew(t *testing.T) {
	h := newHarness(t)

	h.cmd(driverTele, "/start")
	h.cb(driverTele, "menu_create")
	h.cb(driverTele, "dep_1")
	h.cb(driverTele, "wiz_select")
	h.text(driverTele, "Crew Alpha")
	h.text(driverTele, "56.85, 35.90")

	h.cmd(driverTele, "/cancel")
	h.expectText(messages["canceled"])

	if len(h.data.crews) != 0 {
		t.Errorf("cancelled wizard left %d crews behind", len(h.data.crews))
	}
	if _, ok := h.bot.Engine.Sessions().Peek(driverTele); ok {
		t.Error("session survived /cancel")
	}
}

func TestJoinApplyIsIdempotent(t *testing.T) {
	h := newHarness(t)
	crew := h.seedCrew(3)

	h.cmd(volunteerTele, "/start")
	h.cb(volunteerTele, "menu_join")
	if !hasButton(h.lastButtons(), fmt.Sprintf("jc_%d", crew.ID)) {
		t.Fatalf("crew list missing seeded crew: %v", h.lastButtons())
	}

	h.cb(volunteerTele, fmt.Sprintf("jc_%d", crew.ID))
	if !hasButton(h.lastButtons(), "join_apply") {
		t.Fatalf("crew card missing apply button: %v", h.lastButtons())
	}

	h.cb(volunteerTele, "join_apply")

	jr, err := h.data.joinRepo().GetByCrewAndPassenger(context.Background(), crew.ID, 2)
	if err != nil {
		t.Fatalf("request not stored: %v", err)
	}
	if jr.Status != models.JoinStatusPending {
		t.Errorf("request status = %q, want pending", jr.Status)
	}
	if len(h.notices[driverTele]) != 1 {
		t.Errorf("driver notifications = %d, want 1", len(h.notices[driverTele]))
	}

	// Applying again from the card must not create a second request.
	h.cb(volunteerTele, fmt.Sprintf("jc_%d", crew.ID))
	if !hasButton(h.lastButtons(), "join_withdraw") {
		t.Fatalf("card does not offer withdraw after applying: %v", h.lastButtons())
	}
	h.cb(volunteerTele, "join_apply")

	all, _ := h.data.joinRepo().ListByCrew(context.Background(), crew.ID)
	if len(all) != 1 {
		t.Errorf("requests after re-apply = %d, want 1", len(all))
	}
	if len(h.notices[driverTele]) != 1 {
		t.Errorf("driver notified again on duplicate apply: %v", h.notices[driverTele])
	}
}

func TestJoinWithdraw(t *testing.T) {
	h := newHarness(t)
	crew := h.seedCrew(3)

	h.cmd(volunteerTele, "/start")
	h.cb(volunteerTele, "menu_join")
	h.cb(volunteerTele, fmt.Sprintf("jc_%d", crew.ID))
	h.cb(volunteerTele, "join_apply")

	h.cb(volunteerTele, fmt.Sprintf("jc_%d", crew.ID))
	h.cb(volunteerTele, "join_withdraw")

	if _, err := h.data.joinRepo().GetByCrewAndPassenger(context.Background(), crew.ID, 2); err == nil {
		t.Error("request still present after withdraw")
	}
	if len(h.notices[driverTele]) != 2 {
		t.Errorf("driver notifications = %d, want apply + withdraw", len(h.notices[driverTele]))
	}
}

func TestAcceptRespectsCapacity(t *testing.T) {
	h := newHarness(t)
	crew := h.seedCrew(1)

	ctx := context.Background()
	first, err := h.data.joinRepo().Create(ctx, crew.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.data.joinRepo().Create(ctx, crew.ID, 3)
	if err != nil {
		t.Fatal(err)
	}

	h.cmd(driverTele, "/start")
	h.cb(driverTele, "menu_update")
	h.cb(driverTele, "crew_pass")

	h.cb(driverTele, fmt.Sprintf("req_%d", first.ID))
	h.cb(driverTele, fmt.Sprintf("acc_%d", first.ID))
	if first.Status != models.JoinStatusAccepted {
		t.Errorf("first request status = %q, want accepted", first.Status)
	}
	if len(h.notices[volunteerTele]) != 1 {
		t.Errorf("accepted passenger notifications = %d, want 1", len(h.notices[volunteerTele]))
	}

	h.cb(driverTele, fmt.Sprintf("req_%d", second.ID))
	h.cb(driverTele, fmt.Sprintf("acc_%d", second.ID))
	if second.Status != models.JoinStatusPending {
		t.Errorf("second request status = %q, want still pending", second.Status)
	}

	found := false
	for _, s := range h.replies {
		if s.text == messages["crew_full"] {
			found = true
		}
	}
	if !found {
		t.Error("driver was not told the crew is full")
	}
}

func TestAdvanceLifecycleAndTrackUpload(t *testing.T) {
	h := newHarness(t)
	crew := h.seedCrew(2)

	// Anna is an accepted passenger; Oleg never applied.
	ctx := context.Background()
	jr, err := h.data.joinRepo().Create(ctx, crew.ID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.data.joinRepo().Accept(ctx, jr.ID); err != nil {
		t.Fatal(err)
	}

	h.cmd(driverTele, "/start")
	h.cb(driverTele, "menu_update")

	h.cb(driverTele, "crew_advance")
	if got := h.data.crews[crew.ID].Status; got != models.CrewStatusOnMission {
		t.Fatalf("status after first advance = %q", got)
	}
	if h.data.crews[crew.ID].DepartureDatetime == nil {
		t.Error("departure timestamp not set on mission start")
	}

	h.cb(driverTele, "crew_advance")
	if got := h.data.crews[crew.ID].Status; got != models.CrewStatusReturning {
		t.Fatalf("status after second advance = %q", got)
	}

	h.cb(driverTele, "crew_advance")
	if got := h.data.crews[crew.ID].Status; got != models.CrewStatusCompleted {
		t.Fatalf("status after third advance = %q", got)
	}
	h.expectText(messages["send_track"])

	// Completion is announced to the crew's passengers only.
	if len(h.notices[volunteerTele]) != 1 {
		t.Errorf("passenger completion notices = %d, want 1", len(h.notices[volunteerTele]))
	}
	if len(h.notices[secondTele]) != 0 {
		t.Errorf("non-passenger received completion notice: %v", h.notices[secondTele])
	}

	h.doc(driverTele, "bad.txt", "nope")
	h.expectText(messages["bad_track"])

	h.doc(driverTele, "route.gpx", "<gpx/>")
	path := filepath.Join(h.bot.Tracks.Dir(), "departure_1", fmt.Sprintf("crew_%d", crew.ID), "route.gpx")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("track not stored at %s: %v", path, err)
	}

	// A completed crew can no longer advance.
	h.cb(driverTele, "crew_advance")
}

func TestDeleteCrewWithConfirmation(t *testing.T) {
	h := newHarness(t)
	crew := h.seedCrew(2)

	h.cmd(driverTele, "/start")
	h.cb(driverTele, "menu_update")
	h.cb(driverTele, "crew_delete")
	if !hasButton(h.lastButtons(), "crew_del_yes") {
		t.Fatalf("confirmation missing: %v", h.lastButtons())
	}

	h.cb(driverTele, "crew_del_no")
	if _, ok := h.data.crews[crew.ID]; !ok {
		t.Fatal("crew deleted despite declining")
	}

	h.cb(driverTele, "crew_delete")
	h.cb(driverTele, "crew_del_yes")
	if !h.replied(messages["crew_deleted"]) {
		t.Fatal("no delete confirmation reply")
	}
	if _, ok := h.data.crews[crew.ID]; ok {
		t.Error("crew still present after confirmed delete")
	}
}

func TestSettingsToggleCarAndTimezone(t *testing.T) {
	h := newHarness(t)

	h.cmd(volunteerTele, "/start")
	h.cb(volunteerTele, "menu_settings")
	h.cb(volunteerTele, "set_car")

	if !h.data.users[1].HasCar {
		t.Error("car flag not toggled on")
	}

	h.cb(volunteerTele, "set_tz")
	h.expectText(messages["enter_tz"])

	h.text(volunteerTele, "bananas")
	h.expectText(messages["bad_tz"])

	h.text(volunteerTele, "+05:30")
	if got := h.data.users[1].TZOffsetMinutes; got != 330 {
		t.Errorf("tz offset = %d, want 330", got)
	}
}

func TestBroadcastToleratesFailures(t *testing.T) {
	h := newHarness(t)

	h.bot.notify = func(teleID int64, text string) error {
		if teleID == volunteerTele {
			return errors.New("blocked by user")
		}
		h.notices[teleID] = append(h.notices[teleID], text)
		return nil
	}

	h.bot.Broadcast(context.Background(), "search update", driverTele)

	if len(h.notices[secondTele]) != 1 {
		t.Errorf("reachable volunteer deliveries = %d, want 1", len(h.notices[secondTele]))
	}
	if len(h.notices[driverTele]) != 0 {
		t.Error("skipped recipient still received the broadcast")
	}
}

func TestRefreshAllowlist(t *testing.T) {
	h := newHarness(t)

	h.data.users[2].IsActive = false

	added, removed, err := h.bot.RefreshAllowlist(context.Background())
	if err != nil {
		t.Fatalf("RefreshAllowlist error: %v", err)
	}
	if added != 0 || removed != 1 {
		t.Errorf("refresh = (%d added, %d removed), want (0, 1)", added, removed)
	}
	if h.bot.Allow.Contains(secondTele) {
		t.Error("deactivated volunteer still allowed")
	}
}
