package services

import (
	"context"
	"sort"

	"rental-backend/internal/auth"
	"rental-backend/internal/models"
)

// auditEntry describes one state change. Actor is nil for system jobs.
type auditEntry struct {
	Actor       *int
	Action      string
	EntityType  string
	EntityID    int
	Description string
	From        string
	To          string
}

func recordAudit(ctx context.Context, store AuditStore, e auditEntry) error {
	if store == nil {
		return nil
	}
	log := &models.AuditLog{
		UserID:      e.Actor,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
	}
	if e.From != "" {
		log.OldValue = &e.From
	}
	if e.To != "" {
		log.NewValue = &e.To
	}
	return store.Record(ctx, log)
}

func actor(userID int) *int {
	return &userID
}

// History returns the audit trail of a booking and its payments, oldest first.
// Visible to whoever may see the booking.
func (s *BookingService) History(ctx context.Context, p auth.Principal, bookingID int) ([]*models.AuditLog, error) {
	if _, err := s.Get(ctx, p, bookingID); err != nil {
		return nil, err
	}
	logs, err := s.Audit.ListForEntity(ctx, models.EntityBooking, bookingID)
	if err != nil {
		return nil, err
	}
	payments, err := s.Payments.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for _, pm := range payments {
		entries, err := s.Audit.ListForEntity(ctx, models.EntityPayment, pm.ID)
		if err != nil {
			return nil, err
		}
		logs = append(logs, entries...)
	}
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].CreatedAt.Equal(logs[j].CreatedAt) {
			return logs[i].ID < logs[j].ID
		}
		return logs[i].CreatedAt.Before(logs[j].CreatedAt)
	})
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}
