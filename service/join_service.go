package service

import (
	"context"
	"errors"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

type JoinService interface {
	// Apply creates a pending request. Re-applying while a request exists is
	// idempotent: the existing request comes back with created=false.
	Apply(ctx context.Context, crewID, passengerID int64) (jr *models.JoinRequest, created bool, err error)
	// Withdraw removes the passenger's request for the crew and drops them
	// from the passenger set if an accept had added them.
	Withdraw(ctx context.Context, crewID, passengerID int64) error
	Accept(ctx context.Context, requestID int64) error
	Reject(ctx context.Context, requestID int64) error
	Get(ctx context.Context, requestID int64) (*models.JoinRequest, error)
	ListByCrew(ctx context.Context, crewID int64) ([]*models.JoinRequest, error)
	// Tally returns (non-rejected requests, capacity) for the driver's view.
	Tally(ctx context.Context, crewID int64) (int, int, error)
}

type joinService struct {
	requests storage.IJoinRequestStorage
	crews    storage.ICrewStorage
	log      logger.ILogger
}

func NewJoinService(stg storage.IStorage, log logger.ILogger) JoinService {
	return &joinService{
		requests: stg.JoinRequest(),
		crews:    stg.Crew(),
		log:      log,
	}
}

func (s *joinService) Apply(ctx context.Context, crewID, passengerID int64) (*models.JoinRequest, bool, error) {
	jr, err := s.requests.Create(ctx, crewID, passengerID)
	if err == nil {
		return jr, true, nil
	}
	if !errors.Is(err, storage.ErrDuplicateRequest) {
		return nil, false, err
	}

	existing, err := s.requests.GetByCrewAndPassenger(ctx, crewID, passengerID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *joinService) Withdraw(ctx context.Context, crewID, passengerID int64) error {
	jr, err := s.requests.GetByCrewAndPassenger(ctx, crewID, passengerID)
	if err != nil {
		return err
	}

	if err := s.requests.Delete(ctx, jr.ID); err != nil {
		return err
	}
	if err := s.crews.RemovePassenger(ctx, crewID, passengerID); err != nil {
		return err
	}

	s.log.Info("join request withdrawn",
		logger.Int64("crew_id", crewID), logger.Int64("passenger_id", passengerID))
	return nil
}

func (s *joinService) Accept(ctx context.Context, requestID int64) error {
	return s.requests.Accept(ctx, requestID)
}

func (s *joinService) Reject(ctx context.Context, requestID int64) error {
	return s.requests.Reject(ctx, requestID)
}

func (s *joinService) Get(ctx context.Context, requestID int64) (*models.JoinRequest, error) {
	return s.requests.GetByID(ctx, requestID)
}

func (s *joinService) ListByCrew(ctx context.Context, crewID int64) ([]*models.JoinRequest, error) {
	return s.requests.ListByCrew(ctx, crewID)
}

func (s *joinService) Tally(ctx context.Context, crewID int64) (int, int, error) {
	count, err := s.requests.CountActive(ctx, crewID)
	if err != nil {
		return 0, 0, err
	}
	crew, err := s.crews.GetByID(ctx, crewID)
	if err != nil {
		return 0, 0, err
	}
	return count, crew.PassengersMax, nil
}
