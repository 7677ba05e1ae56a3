package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

const joinRequestColumns = `jr.id, jr.crew_id, jr.passenger_id, jr.status, jr.request_time,
	COALESCE(u.last_name || ' ' || u.first_name, '') AS passenger_name`

const joinRequestFrom = ` FROM join_requests jr LEFT JOIN users u ON u.id = jr.passenger_id`

type joinRequestRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewJoinRequestRepo(db *pgxpool.Pool, log logger.ILogger) storage.IJoinRequestStorage {
	return &joinRequestRepo{db: db, log: log}
}

func scanJoinRequest(row pgx.Row) (*models.JoinRequest, error) {
	var jr models.JoinRequest
	err := row.Scan(&jr.ID, &jr.CrewID, &jr.PassengerID, &jr.Status, &jr.RequestTime, &jr.PassengerName)
	if err != nil {
		return nil, err
	}
	return &jr, nil
}

func (r *joinRequestRepo) Create(ctx context.Context, crewID, passengerID int64) (*models.JoinRequest, error) {
	var jr models.JoinRequest
	query := `
		INSERT INTO join_requests (crew_id, passenger_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, crew_id, passenger_id, status, request_time
	`
	err := r.db.QueryRow(ctx, query, crewID, passengerID, models.JoinStatusPending).Scan(
		&jr.ID, &jr.CrewID, &jr.PassengerID, &jr.Status, &jr.RequestTime,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, storage.ErrDuplicateRequest
		}
		r.log.Error("failed to create join request",
			logger.Int64("crew_id", crewID), logger.Int64("passenger_id", passengerID), logger.Error(err))
		return nil, err
	}
	return &jr, nil
}

func (r *joinRequestRepo) GetByID(ctx context.Context, id int64) (*models.JoinRequest, error) {
	jr, err := scanJoinRequest(r.db.QueryRow(ctx,
		`SELECT `+joinRequestColumns+joinRequestFrom+` WHERE jr.id = $1`, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get join request", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return jr, nil
}

func (r *joinRequestRepo) GetByCrewAndPassenger(ctx context.Context, crewID, passengerID int64) (*models.JoinRequest, error) {
	jr, err := scanJoinRequest(r.db.QueryRow(ctx,
		`SELECT `+joinRequestColumns+joinRequestFrom+` WHERE jr.crew_id = $1 AND jr.passenger_id = $2`,
		crewID, passengerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return jr, nil
}

func (r *joinRequestRepo) ListByCrew(ctx context.Context, crewID int64) ([]*models.JoinRequest, error) {
	return r.list(ctx, `WHERE jr.crew_id = $1 ORDER BY jr.request_time`, crewID)
}

func (r *joinRequestRepo) ListByPassenger(ctx context.Context, passengerID int64) ([]*models.JoinRequest, error) {
	return r.list(ctx, `WHERE jr.passenger_id = $1 ORDER BY jr.request_time`, passengerID)
}

func (r *joinRequestRepo) list(ctx context.Context, tail string, args ...interface{}) ([]*models.JoinRequest, error) {
	rows, err := r.db.Query(ctx, `SELECT `+joinRequestColumns+joinRequestFrom+` `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*models.JoinRequest
	for rows.Next() {
		jr, err := scanJoinRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, jr)
	}
	return requests, rows.Err()
}

func (r *joinRequestRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, "DELETE FROM join_requests WHERE id = $1", id)
	return err
}

// Accept runs the capacity check and the membership insert in one transaction,
// locking the crew row so concurrent accepts on the same crew serialize.
func (r *joinRequestRepo) Accept(ctx context.Context, requestID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var crewID, passengerID int64
	err = tx.QueryRow(ctx,
		"SELECT crew_id, passenger_id FROM join_requests WHERE id = $1", requestID).
		Scan(&crewID, &passengerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return storage.ErrNotFound
		}
		return err
	}

	var passengersMax int
	err = tx.QueryRow(ctx,
		"SELECT passengers_max FROM crews WHERE id = $1 FOR UPDATE", crewID).
		Scan(&passengersMax)
	if err != nil {
		return err
	}

	var current int
	err = tx.QueryRow(ctx,
		"SELECT count(*) FROM crew_passengers WHERE crew_id = $1", crewID).Scan(&current)
	if err != nil {
		return err
	}
	if current >= passengersMax {
		return storage.ErrCrewFull
	}

	_, err = tx.Exec(ctx,
		"UPDATE join_requests SET status = $1 WHERE id = $2", models.JoinStatusAccepted, requestID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO crew_passengers (crew_id, user_id) VALUES ($1, $2)
		 ON CONFLICT (crew_id, user_id) DO NOTHING`, crewID, passengerID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Reject flips the request and drops the passenger from the crew if a previous
// accept had added them.
func (r *joinRequestRepo) Reject(ctx context.Context, requestID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var crewID, passengerID int64
	err = tx.QueryRow(ctx,
		"SELECT crew_id, passenger_id FROM join_requests WHERE id = $1", requestID).
		Scan(&crewID, &passengerID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return storage.ErrNotFound
		}
		return err
	}

	_, err = tx.Exec(ctx,
		"UPDATE join_requests SET status = $1 WHERE id = $2", models.JoinStatusRejected, requestID)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		"DELETE FROM crew_passengers WHERE crew_id = $1 AND user_id = $2", crewID, passengerID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *joinRequestRepo) CountActive(ctx context.Context, crewID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT count(*) FROM join_requests WHERE crew_id = $1 AND status <> $2",
		crewID, models.JoinStatusRejected).Scan(&count)
	return count, err
}
