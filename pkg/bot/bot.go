package bot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"rescuebot/config"
	"rescuebot/pkg/fsm"
	"rescuebot/pkg/logger"
	"rescuebot/pkg/tracks"
	"rescuebot/service"
	"rescuebot/storage"

	tele "gopkg.in/telebot.v3"
)

// NotifyFunc delivers one message to a telegram id. Swappable in tests.
type NotifyFunc func(teleID int64, text string) error

type Bot struct {
	Bot    *tele.Bot
	Log    logger.ILogger
	Cfg    *config.Config
	Stg    storage.IStorage
	Svc    service.IServiceManager
	Engine *fsm.Engine
	Allow  *Allowlist
	Tracks *tracks.Store
	Geo    *Geocoder

	notify NotifyFunc
}

func New(cfg *config.Config, stg storage.IStorage, svc service.IServiceManager, log logger.ILogger) (*Bot, error) {
	pref := tele.Settings{
		Token:  cfg.TelegramBotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, err
	}

	ids, err := svc.User().ActiveTelegramIDs(context.Background())
	if err != nil {
		log.Error("failed to load initial allow-list", logger.Error(err))
	}

	bot := &Bot{
		Bot:    b,
		Log:    log,
		Cfg:    cfg,
		Stg:    stg,
		Svc:    svc,
		Allow:  NewAllowlist(ids),
		Tracks: tracks.NewStore(cfg.TracksDir),
		Geo:    NewGeocoder(cfg.GeocoderURL, log),
	}
	bot.notify = func(teleID int64, text string) error {
		_, err := b.Send(&tele.User{ID: teleID}, text)
		return err
	}

	bot.Engine = fsm.NewEngine(bot.rootConversation(), log)
	bot.Engine.FailureText = messages["failure"]

	bot.registerHandlers()
	return bot, nil
}

func (b *Bot) Start() {
	b.Log.Info("🤖 Rescue bot started...")
	b.Bot.Start()
}

func (b *Bot) registerHandlers() {
	b.Bot.Handle("/start", b.route)
	b.Bot.Handle("/cancel", b.route)
	b.Bot.Handle("/help", b.handleHelp)
	b.Bot.Handle("/info", b.handleInfo)
	b.Bot.Handle("/refresh", b.handleRefresh)

	b.Bot.Handle(tele.OnText, b.route)
	b.Bot.Handle(tele.OnCallback, b.route)
	b.Bot.Handle(tele.OnDocument, b.route)
	b.Bot.Handle(tele.OnLocation, b.route)
}

// route is the command-router entry: authorization first, then the dialog
// engine, then the unknown-command fallback.
func (b *Bot) route(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	if !b.Allow.Contains(sender.ID) {
		b.Log.Warning("unauthorized sender", logger.Int64("telegram_id", sender.ID))
		return c.Send(messages["unauthorized"])
	}

	if err := b.Svc.User().Touch(context.Background(), sender.ID); err != nil {
		b.Log.Warning("failed to touch last action",
			logger.Int64("telegram_id", sender.ID), logger.Error(err))
	}

	if c.Callback() != nil {
		defer func() { _ = c.Respond() }()
	}

	ev := b.eventFromContext(c)
	handled, err := b.Engine.Dispatch(ev, b.sendFunc(c), b.editFunc(c))
	if err != nil {
		return err
	}
	if !handled && ev.Kind == fsm.EventCommand {
		return c.Send(messages["unknown"])
	}
	return nil
}

func (b *Bot) sendFunc(c tele.Context) fsm.SendFunc {
	return func(text string, opts ...interface{}) error {
		return c.Send(text, opts...)
	}
}

func (b *Bot) editFunc(c tele.Context) fsm.SendFunc {
	return func(text string, opts ...interface{}) error {
		if c.Callback() == nil {
			return c.Send(text, opts...)
		}
		return c.Edit(text, opts...)
	}
}

func (b *Bot) eventFromContext(c tele.Context) fsm.Event {
	sender := c.Sender()
	ev := fsm.Event{
		ChatID:          c.Chat().ID,
		SenderID:        sender.ID,
		SenderFirstName: sender.FirstName,
		SenderLastName:  sender.LastName,
	}

	if cb := c.Callback(); cb != nil {
		ev.Kind = fsm.EventCallback
		ev.Data = strings.TrimPrefix(strings.TrimSpace(cb.Data), "\f")
		return ev
	}

	msg := c.Message()
	if msg == nil {
		ev.Kind = fsm.EventText
		return ev
	}

	switch {
	case msg.Location != nil:
		ev.Kind = fsm.EventLocation
		ev.Location = &fsm.Location{
			Lat: float64(msg.Location.Lat),
			Lon: float64(msg.Location.Lng),
		}

	case msg.Document != nil:
		doc := msg.Document
		ev.Kind = fsm.EventDocument
		ev.Document = &fsm.Document{
			FileName: doc.FileName,
			Size:     doc.FileSize,
			Open: func() (io.ReadCloser, error) {
				return b.Bot.File(&doc.File)
			},
		}

	case strings.HasPrefix(msg.Text, "/"):
		ev.Kind = fsm.EventCommand
		parts := strings.SplitN(msg.Text, " ", 2)
		ev.Command = parts[0]
		if len(parts) == 2 {
			ev.Text = parts[1]
		}

	default:
		ev.Kind = fsm.EventText
		ev.Text = msg.Text
	}

	return ev
}

func (b *Bot) handleHelp(c tele.Context) error {
	if !b.Allow.Contains(c.Sender().ID) {
		return c.Send(messages["unauthorized"])
	}
	return c.Send(messages["help"])
}

func (b *Bot) handleInfo(c tele.Context) error {
	if !b.Allow.Contains(c.Sender().ID) {
		return c.Send(messages["unauthorized"])
	}
	text, err := b.activitySummary(context.Background())
	if err != nil {
		b.Log.Error("failed to build activity summary", logger.Error(err))
		return c.Send(messages["failure"])
	}
	return c.Send(text)
}

func (b *Bot) activitySummary(ctx context.Context) (string, error) {
	searchRequests, err := b.Stg.SearchRequest().CountOpen(ctx)
	if err != nil {
		return "", err
	}
	departures, err := b.Stg.Departure().CountOpen(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Search requests: %d\nDepartures: %d", searchRequests, departures), nil
}

// handleRefresh recomputes the allow-list from storage. Admin only; failures
// come back as a reply instead of propagating.
func (b *Bot) handleRefresh(c tele.Context) error {
	if b.Cfg.AdminID == 0 || c.Sender().ID != b.Cfg.AdminID {
		return c.Send(messages["unauthorized"])
	}

	added, removed, err := b.RefreshAllowlist(context.Background())
	if err != nil {
		b.Log.Error("allow-list refresh failed", logger.Error(err))
		return c.Send("Refresh failed: " + err.Error())
	}
	return c.Send(fmt.Sprintf("Allow-list refreshed: %d added, %d removed, %d total.",
		added, removed, b.Allow.Size()))
}

func (b *Bot) RefreshAllowlist(ctx context.Context) (added, removed int, err error) {
	ids, err := b.Svc.User().ActiveTelegramIDs(ctx)
	if err != nil {
		return 0, 0, err
	}
	added, removed = b.Allow.Replace(ids)
	b.Log.Info("allow-list refreshed",
		logger.Int("added", added), logger.Int("removed", removed), logger.Int("total", len(ids)))
	return added, removed, nil
}
