package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rescuebot/pkg/logger"
	"rescuebot/pkg/models"
	"rescuebot/storage"
)

const userColumns = `id, telegram_id, first_name, last_name, patronymic_name, phone, address,
	has_car, tz_offset_minutes, is_active, last_action_at, created_at, updated_at`

type userRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewUserRepo(db *pgxpool.Pool, log logger.ILogger) storage.IUserStorage {
	return &userRepo{db: db, log: log}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.FirstName, &u.LastName, &u.PatronymicName, &u.Phone, &u.Address,
		&u.HasCar, &u.TZOffsetMinutes, &u.IsActive, &u.LastActionAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) Get(ctx context.Context, teleID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, teleID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get user", logger.Int64("telegram_id", teleID), logger.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		r.log.Error("failed to get user by id", logger.Int64("id", id), logger.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *userRepo) GetActive(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_active = true ORDER BY id`
	rows, err := r.db.Query(ctx, query)
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

func (r *userRepo) GetActiveTelegramIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT telegram_id FROM users WHERE is_active = true AND telegram_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *userRepo) BindIdentity(ctx context.Context, teleID int64, firstName, lastName string) error {
	query := `
		UPDATE users
		SET first_name = CASE WHEN first_name = '' THEN $2 ELSE first_name END,
			last_name = CASE WHEN last_name = '' THEN $3 ELSE last_name END,
			last_action_at = NOW(),
			updated_at = NOW()
		WHERE telegram_id = $1`
	tag, err := r.db.Exec(ctx, query, teleID, firstName, lastName)
	if err != nil {
		r.log.Error("failed to bind identity", logger.Int64("telegram_id", teleID), logger.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *userRepo) TouchLastAction(ctx context.Context, teleID int64) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET last_action_at = NOW() WHERE telegram_id = $1", teleID)
	return err
}

func (r *userRepo) UpdateHasCar(ctx context.Context, id int64, hasCar bool) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET has_car = $1, updated_at = NOW() WHERE id = $2", hasCar, id)
	return err
}

func (r *userRepo) UpdateTZOffset(ctx context.Context, id int64, offsetMinutes int) error {
	_, err := r.db.Exec(ctx,
		"UPDATE users SET tz_offset_minutes = $1, updated_at = NOW() WHERE id = $2", offsetMinutes, id)
	return err
}
