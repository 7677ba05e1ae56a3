package storage

import (
	"context"
	"errors"

	"rescuebot/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Domain errors surfaced by implementations. Handlers translate these into
// user-facing replies instead of failing the conversation.
var (
	ErrNotFound         = errors.New("record not found")
	ErrCrewFull         = errors.New("crew has reached the maximum number of passengers")
	ErrDuplicateRequest = errors.New("join request already exists")
	ErrWrongStatus      = errors.New("status does not allow this operation")
)

type IStorage interface {
	User() IUserStorage
	SearchRequest() ISearchRequestStorage
	Departure() IDepartureStorage
	Crew() ICrewStorage
	JoinRequest() IJoinRequestStorage
	Close()
	GetPool() *pgxpool.Pool
}

type IUserStorage interface {
	Get(ctx context.Context, teleID int64) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetActive(ctx context.Context) ([]*models.User, error)
	GetActiveTelegramIDs(ctx context.Context) ([]int64, error)
	// BindIdentity records the Telegram profile on the user row: empty name
	// columns take the profile values, filled ones are kept, and the last
	// action timestamp is bumped. ErrNotFound when no row has the telegram id.
	BindIdentity(ctx context.Context, teleID int64, firstName, lastName string) error
	TouchLastAction(ctx context.Context, teleID int64) error
	UpdateHasCar(ctx context.Context, id int64, hasCar bool) error
	UpdateTZOffset(ctx context.Context, id int64, offsetMinutes int) error
}

type ISearchRequestStorage interface {
	GetByID(ctx context.Context, id int64) (*models.SearchRequest, error)
	CountOpen(ctx context.Context) (int, error)
}

type IDepartureStorage interface {
	GetByID(ctx context.Context, id int64) (*models.Departure, error)
	ListOpen(ctx context.Context) ([]*models.Departure, error)
	CountOpen(ctx context.Context) (int, error)
	ListTasks(ctx context.Context, departureID int64) ([]*models.Task, error)
}

type ICrewStorage interface {
	Create(ctx context.Context, crew *models.Crew) (*models.Crew, error)
	Update(ctx context.Context, crew *models.Crew) (*models.Crew, error)
	GetByID(ctx context.Context, id int64) (*models.Crew, error)
	Delete(ctx context.Context, id int64) error
	// GetActiveByDriver returns the driver's non-completed crew, ErrNotFound if none.
	GetActiveByDriver(ctx context.Context, driverID int64) (*models.Crew, error)
	// GetCompletedByDriver returns the driver's most recently completed crew.
	GetCompletedByDriver(ctx context.Context, driverID int64) (*models.Crew, error)
	ListAvailable(ctx context.Context) ([]*models.Crew, error)
	// ListAvailableByDistance orders available crews by pickup distance to the point.
	ListAvailableByDistance(ctx context.Context, from models.Point) ([]*models.Crew, error)
	// AdvanceStatus moves a crew from one status to the next in a single
	// guarded update; ErrWrongStatus when the crew is not in `from` anymore.
	AdvanceStatus(ctx context.Context, id int64, from, to string) error
	ListPassengers(ctx context.Context, crewID int64) ([]*models.User, error)
	RemovePassenger(ctx context.Context, crewID, userID int64) error
}

type IJoinRequestStorage interface {
	// Create inserts a pending request; ErrDuplicateRequest when the
	// (passenger, crew) pair already has one.
	Create(ctx context.Context, crewID, passengerID int64) (*models.JoinRequest, error)
	GetByID(ctx context.Context, id int64) (*models.JoinRequest, error)
	GetByCrewAndPassenger(ctx context.Context, crewID, passengerID int64) (*models.JoinRequest, error)
	ListByCrew(ctx context.Context, crewID int64) ([]*models.JoinRequest, error)
	ListByPassenger(ctx context.Context, passengerID int64) ([]*models.JoinRequest, error)
	Delete(ctx context.Context, id int64) error
	// Accept marks the request accepted and adds the passenger to the crew.
	// The capacity check and the membership write happen atomically per crew;
	// ErrCrewFull when the crew is at capacity.
	Accept(ctx context.Context, requestID int64) error
	// Reject marks the request rejected and removes an already-added passenger.
	Reject(ctx context.Context, requestID int64) error
	// CountActive counts non-rejected requests for the driver's tally.
	CountActive(ctx context.Context, crewID int64) (int, error)
}
