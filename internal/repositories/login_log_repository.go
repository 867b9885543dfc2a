package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rental-backend/internal/models"
)

type LoginLogRepository struct {
	DB *pgxpool.Pool
}

func NewLoginLogRepository(db *pgxpool.Pool) *LoginLogRepository {
	return &LoginLogRepository{DB: db}
}

// Create records a successful login
func (r *LoginLogRepository) Create(ctx context.Context, userID int, ipAddress, userAgent string) (*models.LoginLog, error) {
	query := `
		INSERT INTO login_logs (user_id, ip_address, user_agent, login_time)
		VALUES ($1, $2, $3, NOW())
		RETURNING id, login_time
	`

	l := &models.LoginLog{UserID: userID, IPAddress: ipAddress, UserAgent: userAgent}
	if err := r.DB.QueryRow(ctx, query, userID, ipAddress, userAgent).Scan(&l.ID, &l.LoginTime); err != nil {
		return nil, err
	}
	return l, nil
}

// ListForUser returns the user's most recent logins, newest first
func (r *LoginLogRepository) ListForUser(ctx context.Context, userID, limit int) ([]*models.LoginLog, error) {
	query := `
		SELECT id, user_id, ip_address, user_agent, login_time
		FROM login_logs
		WHERE user_id = $1
		ORDER BY login_time DESC, id DESC
		LIMIT $2
	`

	rows, err := r.DB.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.LoginLog
	for rows.Next() {
		var l models.LoginLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.IPAddress, &l.UserAgent, &l.LoginTime); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
