package service

import (
	"context"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

type UserService interface {
	Get(ctx context.Context, teleID int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	Register(ctx context.Context, teleID int64, firstName, lastName string) error
	Touch(ctx context.Context, teleID int64) error
	SetHasCar(ctx context.Context, userID int64, hasCar bool) error
	SetTZOffset(ctx context.Context, userID int64, offsetMinutes int) error
	ActiveTelegramIDs(ctx context.Context) ([]int64, error)
}

type userService struct {
	stg storage.IUserStorage
	log logger.ILogger
}

func NewUserService(stg storage.IStorage, log logger.ILogger) UserService {
	return &userService{
		stg: stg.User(),
		log: log,
	}
}

func (s *userService) Get(ctx context.Context, teleID int64) (*models.User, error) {
	return s.stg.Get(ctx, teleID)
}

func (s *userService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return s.stg.GetByID(ctx, id)
}

// Register stores the sender's Telegram profile on their user row. Rows are
// provisioned by the coordinators, often with names missing, so the first
// /start fills them in.
func (s *userService) Register(ctx context.Context, teleID int64, firstName, lastName string) error {
	return s.stg.BindIdentity(ctx, teleID, firstName, lastName)
}

func (s *userService) Touch(ctx context.Context, teleID int64) error {
	return s.stg.TouchLastAction(ctx, teleID)
}

func (s *userService) SetHasCar(ctx context.Context, userID int64, hasCar bool) error {
	return s.stg.UpdateHasCar(ctx, userID, hasCar)
}

func (s *userService) SetTZOffset(ctx context.Context, userID int64, offsetMinutes int) error {
	return s.stg.UpdateTZOffset(ctx, userID, offsetMinutes)
}

func (s *userService) ActiveTelegramIDs(ctx context.Context) ([]int64, error) {
	return s.stg.GetActiveTelegramIDs(ctx)
}
