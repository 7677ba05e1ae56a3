package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

type departureRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewDepartureRepo(db *pgxpool.Pool, log logger.ILogger) storage.IDepartureStorage {
	return &departureRepo{db: db, log: log}
}

func (r *departureRepo) GetByID(ctx context.Context, id int64) (*models.Departure, error) {
	var d models.Departure
	query := `
		SELECT d.id, d.search_request_id, d.status, d.created_at, d.updated_at,
		       sr.full_name, sr.city,
		       (SELECT count(*) FROM crews c WHERE c.departure_id = d.id) AS crew_count
		FROM departures d
		JOIN search_requests sr ON sr.id = d.search_request_id
		WHERE d.id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&d.ID, &d.SearchRequestID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		&d.MissingPerson, &d.City, &d.CrewCount,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get departure", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return &d, nil
}

func (r *departureRepo) ListOpen(ctx context.Context) ([]*models.Departure, error) {
	query := `
		SELECT d.id, d.search_request_id, d.status, d.created_at, d.updated_at,
		       sr.full_name, sr.city,
		       (SELECT count(*) FROM crews c WHERE c.departure_id = d.id) AS crew_count
		FROM departures d
		JOIN search_requests sr ON sr.id = d.search_request_id
		WHERE d.status = $1
		ORDER BY d.created_at
	`
	rows, err := r.db.Query(ctx, query, models.SearchStatusOpen)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departures []*models.Departure
	for rows.Next() {
		var d models.Departure
		err := rows.Scan(
			&d.ID, &d.SearchRequestID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.MissingPerson, &d.City, &d.CrewCount,
		)
		if err != nil {
			return nil, err
		}
		departures = append(departures, &d)
	}
	return departures, rows.Err()
}

func (r *departureRepo) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT count(*) FROM departures WHERE status = $1", models.SearchStatusOpen).Scan(&count)
	return count, err
}

func (r *departureRepo) ListTasks(ctx context.Context, departureID int64) ([]*models.Task, error) {
	query := `
		SELECT id, departure_id, title, address, coordinates_lat, coordinates_lon, description, created_at
		FROM tasks
		WHERE departure_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, departureID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		var t models.Task
		err := rows.Scan(
			&t.ID, &t.DepartureID, &t.Title, &t.Address,
			&t.Coordinates.Lat, &t.Coordinates.Lon, &t.Description, &t.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}
