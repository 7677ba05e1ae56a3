package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

const crewColumns = `c.id, c.departure_id, c.title, c.driver_id, c.pickup_lat, c.pickup_lon,
	c.pickup_datetime, c.passengers_max, c.status, c.departure_datetime, c.return_datetime,
	c.created_at, c.updated_at,
	COALESCE(u.last_name || ' ' || u.first_name, '') AS driver_name,
	(SELECT count(*) FROM crew_passengers cp WHERE cp.crew_id = c.id) AS passenger_count`

const crewFrom = ` FROM crews c LEFT JOIN users u ON u.id = c.driver_id`

type crewRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewCrewRepo(db *pgxpool.Pool, log logger.ILogger) storage.ICrewStorage {
	return &crewRepo{db: db, log: log}
}

func scanCrew(row pgx.Row) (*models.Crew, error) {
	var c models.Crew
	err := row.Scan(
		&c.ID, &c.DepartureID, &c.Title, &c.DriverID, &c.PickupLocation.Lat, &c.PickupLocation.Lon,
		&c.PickupDatetime, &c.PassengersMax, &c.Status, &c.DepartureDatetime, &c.ReturnDatetime,
		&c.CreatedAt, &c.UpdatedAt, &c.DriverName, &c.PassengerCount,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *crewRepo) Create(ctx context.Context, crew *models.Crew) (*models.Crew, error) {
	query := `
		INSERT INTO crews (departure_id, title, driver_id, pickup_lat, pickup_lon,
		                   pickup_datetime, passengers_max, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		crew.DepartureID,
		crew.Title,
		crew.DriverID,
		crew.PickupLocation.Lat,
		crew.PickupLocation.Lon,
		crew.PickupDatetime,
		crew.PassengersMax,
		crew.Status,
	).Scan(&crew.ID, &crew.CreatedAt, &crew.UpdatedAt)

	if err != nil {
		r.log.Error("failed to create crew", logger.Error(err))
		return nil, err
	}
	return crew, nil
}

func (r *crewRepo) Update(ctx context.Context, crew *models.Crew) (*models.Crew, error) {
	query := `
		UPDATE crews
		SET title = $1, pickup_lat = $2, pickup_lon = $3, pickup_datetime = $4,
		    passengers_max = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		crew.Title,
		crew.PickupLocation.Lat,
		crew.PickupLocation.Lon,
		crew.PickupDatetime,
		crew.PassengersMax,
		crew.ID,
	).Scan(&crew.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to update crew", logger.Int64("id", crew.ID), logger.Error(err))
		return nil, err
	}
	return crew, nil
}

func (r *crewRepo) GetByID(ctx context.Context, id int64) (*models.Crew, error) {
	crew, err := scanCrew(r.db.QueryRow(ctx, `SELECT `+crewColumns+crewFrom+` WHERE c.id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get crew", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return crew, nil
}

func (r *crewRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Exec(ctx,
		"DELETE FROM crews WHERE id = $1 AND status <> $2", id, models.CrewStatusCompleted)
	if err != nil {
		r.log.Error("failed to delete crew", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrWrongStatus
	}
	return nil
}

func (r *crewRepo) GetActiveByDriver(ctx context.Context, driverID int64) (*models.Crew, error) {
	query := `SELECT ` + crewColumns + crewFrom + `
		WHERE c.driver_id = $1 AND c.status <> $2
		ORDER BY c.created_at DESC
		LIMIT 1`
	crew, err := scanCrew(r.db.QueryRow(ctx, query, driverID, models.CrewStatusCompleted))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return crew, nil
}

func (r *crewRepo) GetCompletedByDriver(ctx context.Context, driverID int64) (*models.Crew, error) {
	query := `SELECT ` + crewColumns + crewFrom + `
		WHERE c.driver_id = $1 AND c.status = $2
		ORDER BY c.return_datetime DESC NULLS LAST
		LIMIT 1`
	crew, err := scanCrew(r.db.QueryRow(ctx, query, driverID, models.CrewStatusCompleted))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return crew, nil
}

func (r *crewRepo) listAvailable(ctx context.Context, orderBy string, args ...interface{}) ([]*models.Crew, error) {
	query := `SELECT ` + crewColumns + crewFrom + `
		JOIN departures d ON d.id = c.departure_id
		WHERE c.status = '` + models.CrewStatusAvailable + `' AND d.status = '` + models.SearchStatusOpen + `'
		ORDER BY ` + orderBy
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var crews []*models.Crew
	for rows.Next() {
		c, err := scanCrew(rows)
		if err != nil {
			return nil, err
		}
		crews = append(crews, c)
	}
	return crews, rows.Err()
}

func (r *crewRepo) ListAvailable(ctx context.Context) ([]*models.Crew, error) {
	return r.listAvailable(ctx, "c.pickup_datetime")
}

// ListAvailableByDistance orders by the haversine distance from the given point.
func (r *crewRepo) ListAvailableByDistance(ctx context.Context, from models.Point) ([]*models.Crew, error) {
	orderBy := `(
		6371 * 2 * asin(sqrt(
			pow(sin(radians(c.pickup_lat - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(c.pickup_lat)) *
			pow(sin(radians(c.pickup_lon - $2) / 2), 2)
		))
	)`
	return r.listAvailable(ctx, orderBy, from.Lat, from.Lon)
}

func (r *crewRepo) AdvanceStatus(ctx context.Context, id int64, from, to string) error {
	extra := ""
	switch to {
	case models.CrewStatusOnMission:
		extra = ", departure_datetime = NOW()"
	case models.CrewStatusReturning:
		extra = ", return_datetime = NOW()"
	}

	res, err := r.db.Exec(ctx,
		"UPDATE crews SET status = $1, updated_at = NOW()"+extra+" WHERE id = $2 AND status = $3",
		to, id, from)
	if err != nil {
		r.log.Error("failed to advance crew status", logger.Int64("id", id), logger.Error(err))
		return err
	}
	if res.RowsAffected() == 0 {
		return storage.ErrWrongStatus
	}
	return nil
}

func (r *crewRepo) ListPassengers(ctx context.Context, crewID int64) ([]*models.User, error) {
	query := `SELECT ` + userColumns + `
		FROM users
		WHERE id IN (SELECT user_id FROM crew_passengers WHERE crew_id = $1)
		ORDER BY id`
	rows, err := r.db.Query(ctx, query, crewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *crewRepo) RemovePassenger(ctx context.Context, crewID, userID int64) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM crew_passengers WHERE crew_id = $1 AND user_id = $2", crewID, userID)
	return err
}
