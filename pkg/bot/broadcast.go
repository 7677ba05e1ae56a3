package bot

import (
	"context"
	"fmt"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
)

// Broadcast sends text to every active volunteer except those in skip.
// Individual delivery failures are logged and do not stop the run.
func (b *Bot) Broadcast(ctx context.Context, text string, skip ...int64) {
	ids, err := b.Svc.User().ActiveTelegramIDs(ctx)
	if err != nil {
		b.Log.Error("broadcast: failed to list recipients", logger.Error(err))
		return
	}

	skipped := make(map[int64]struct{}, len(skip))
	for _, id := range skip {
		skipped[id] = struct{}{}
	}

	sent := 0
	for _, id := range ids {
		if _, ok := skipped[id]; ok {
			continue
		}
		if err := b.notify(id, text); err != nil {
			b.Log.Warning("broadcast: delivery failed",
				logger.Int64("telegram_id", id), logger.Error(err))
			continue
		}
		sent++
	}
	b.Log.Info("broadcast finished", logger.Int("sent", sent), logger.Int("total", len(ids)))
}

func (b *Bot) notifyUser(ctx context.Context, userID int64, text string) {
	user, err := b.Svc.User().GetByID(ctx, userID)
	if err != nil {
		b.Log.Warning("notify: user lookup failed", logger.Int64("user_id", userID), logger.Error(err))
		return
	}
	if err := b.notify(user.TelegramID, text); err != nil {
		b.Log.Warning("notify: delivery failed",
			logger.Int64("telegram_id", user.TelegramID), logger.Error(err))
	}
}

func (b *Bot) announceCrew(ctx context.Context, crew *models.Crew, driverTeleID int64) {
	text := fmt.Sprintf("New crew \"%s\" is gathering!\nPickup: %s\nDeparts: %s\nSeats: %d\nApply via the volunteer menu.",
		crew.Title, crew.PickupLocation.String(),
		crew.PickupDatetime.Format("02.01.2006 15:04"), crew.PassengersMax)
	b.Broadcast(ctx, text, driverTeleID)
}

func (b *Bot) announceCrewUpdated(ctx context.Context, crew *models.Crew, driverTeleID int64) {
	text := fmt.Sprintf("Crew \"%s\" was updated.\nPickup: %s\nDeparts: %s\nSeats: %d\nCheck the volunteer menu if your plans depend on it.",
		crew.Title, crew.PickupLocation.String(),
		crew.PickupDatetime.Format("02.01.2006 15:04"), crew.PassengersMax)
	b.Broadcast(ctx, text, driverTeleID)
}

// announceCrewCompleted tells the crew's passengers the mission is over.
func (b *Bot) announceCrewCompleted(ctx context.Context, crew *models.Crew) {
	passengers, err := b.Svc.Crew().Passengers(ctx, crew.ID)
	if err != nil {
		b.Log.Error("completion notice: passenger list failed",
			logger.Int64("crew_id", crew.ID), logger.Error(err))
		return
	}

	text := fmt.Sprintf("Crew \"%s\" has returned and completed its mission. Thank you, volunteers!", crew.Title)
	for _, p := range passengers {
		if err := b.notify(p.TelegramID, text); err != nil {
			b.Log.Warning("completion notice: delivery failed",
				logger.Int64("telegram_id", p.TelegramID), logger.Error(err))
		}
	}
}
