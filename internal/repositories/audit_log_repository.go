package repositories

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"rental-backend/internal/db"
	"rental-backend/internal/models"
)

type AuditLogRepository struct {
	DB *pgxpool.Pool
}

func NewAuditLogRepository(pool *pgxpool.Pool) *AuditLogRepository {
	return &AuditLogRepository{DB: pool}
}

// Record writes an audit entry, joining the caller's transaction if there is one
func (r *AuditLogRepository) Record(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			user_id, action, entity_type, entity_id,
			description, old_value, new_value, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	return db.Conn(ctx, r.DB).QueryRow(ctx, query,
		log.UserID, log.Action, log.EntityType, log.EntityID,
		log.Description, log.OldValue, log.NewValue,
	).Scan(&log.ID, &log.CreatedAt)
}

// ListForEntity returns the history of one booking, payment or property, oldest first
func (r *AuditLogRepository) ListForEntity(ctx context.Context, entityType string, entityID int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, user_id, action, entity_type, entity_id, description, old_value, new_value, created_at
		FROM audit_logs
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at, id
	`

	rows, err := db.Conn(ctx, r.DB).Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.EntityType, &l.EntityID,
			&l.Description, &l.OldValue, &l.NewValue, &l.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}
