package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

type searchRequestRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewSearchRequestRepo(db *pgxpool.Pool, log logger.ILogger) storage.ISearchRequestStorage {
	return &searchRequestRepo{db: db, log: log}
}

func (r *searchRequestRepo) GetByID(ctx context.Context, id int64) (*models.SearchRequest, error) {
	var sr models.SearchRequest
	query := `
		SELECT id, full_name, disappearance_date, city, location_lat, location_lon, status, created_at
		FROM search_requests
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&sr.ID, &sr.FullName, &sr.DisappearanceDate, &sr.City,
		&sr.Location.Lat, &sr.Location.Lon, &sr.Status, &sr.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get search request", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return &sr, nil
}

func (r *searchRequestRepo) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT count(*) FROM search_requests WHERE status = $1", models.SearchStatusOpen).Scan(&count)
	return count, err
}
