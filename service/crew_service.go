package service

import (
	"context"
	"errors"
	"time"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

var ErrCrewCompleted = errors.New("crew is already completed")

// nextCrewStatus encodes the forward-only lifecycle. Completed has no successor.
var nextCrewStatus = map[string]string{
	models.CrewStatusAvailable: models.CrewStatusOnMission,
	models.CrewStatusOnMission: models.CrewStatusReturning,
	models.CrewStatusReturning: models.CrewStatusCompleted,
}

type CrewService interface {
	SaveDraft(ctx context.Context, draft *models.CrewDraft, loc *time.Location) (*models.Crew, error)
	GetByID(ctx context.Context, id int64) (*models.Crew, error)
	DriverCrew(ctx context.Context, driverID int64) (*models.Crew, error)
	CompletedDriverCrew(ctx context.Context, driverID int64) (*models.Crew, error)
	Delete(ctx context.Context, crewID int64) error
	// Advance moves the crew one step along its lifecycle and returns the
	// updated crew. ErrCrewCompleted when there is no next step.
	Advance(ctx context.Context, crewID int64) (*models.Crew, error)
	ListAvailable(ctx context.Context, near *models.Point) ([]*models.Crew, error)
	Passengers(ctx context.Context, crewID int64) ([]*models.User, error)
}

type crewService struct {
	crews storage.ICrewStorage
	log   logger.ILogger
}

func NewCrewService(stg storage.IStorage, log logger.ILogger) CrewService {
	return &crewService{
		crews: stg.Crew(),
		log:   log,
	}
}

// SaveDraft persists the wizard draft: an insert for new crews, an update for
// edits. The draft is converted only here so a cancelled wizard leaves no rows.
func (s *crewService) SaveDraft(ctx context.Context, draft *models.CrewDraft, loc *time.Location) (*models.Crew, error) {
	crew, err := draft.Crew(loc)
	if err != nil {
		return nil, err
	}

	if crew.ID == 0 {
		return s.crews.Create(ctx, crew)
	}
	return s.crews.Update(ctx, crew)
}

func (s *crewService) GetByID(ctx context.Context, id int64) (*models.Crew, error) {
	return s.crews.GetByID(ctx, id)
}

func (s *crewService) DriverCrew(ctx context.Context, driverID int64) (*models.Crew, error) {
	return s.crews.GetActiveByDriver(ctx, driverID)
}

func (s *crewService) CompletedDriverCrew(ctx context.Context, driverID int64) (*models.Crew, error) {
	return s.crews.GetCompletedByDriver(ctx, driverID)
}

func (s *crewService) Delete(ctx context.Context, crewID int64) error {
	return s.crews.Delete(ctx, crewID)
}

func (s *crewService) Advance(ctx context.Context, crewID int64) (*models.Crew, error) {
	crew, err := s.crews.GetByID(ctx, crewID)
	if err != nil {
		return nil, err
	}

	next, ok := nextCrewStatus[crew.Status]
	if !ok {
		return nil, ErrCrewCompleted
	}

	if err := s.crews.AdvanceStatus(ctx, crewID, crew.Status, next); err != nil {
		return nil, err
	}

	s.log.Info("crew status advanced",
		logger.Int64("crew_id", crewID),
		logger.String("from", crew.Status),
		logger.String("to", next),
	)
	return s.crews.GetByID(ctx, crewID)
}

func (s *crewService) ListAvailable(ctx context.Context, near *models.Point) ([]*models.Crew, error) {
	if near != nil {
		return s.crews.ListAvailableByDistance(ctx, *near)
	}
	return s.crews.ListAvailable(ctx)
}

func (s *crewService) Passengers(ctx context.Context, crewID int64) ([]*models.User, error) {
	return s.crews.ListPassengers(ctx, crewID)
}
