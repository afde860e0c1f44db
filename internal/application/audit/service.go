package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"autostand-backend/internal/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultLimit = 100

type Service struct {
	DB *gorm.DB
}

// Entry describes one administrative mutation.
type Entry struct {
	Type        string
	Description string
	Payload     map[string]interface{}
	ReportID    *uuid.UUID
}

// Record appends an audit row using tx, which must be the transaction of the mutation it describes.
func Record(ctx context.Context, tx *gorm.DB, admin domain.Actor, e Entry) (*domain.AdminAction, error) {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("Failed to encode audit payload: %v", err)
	}
	row := &domain.AdminAction{
		AdminID:     admin.UserID,
		Type:        e.Type,
		Description: e.Description,
		Payload:     datatypes.JSON(payload),
		ReportID:    e.ReportID,
	}
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("Failed to record admin action: %v", err)
	}
	return row, nil
}

// ActionView is an audit row with the acting admin's name.
type ActionView struct {
	domain.AdminAction
	Admin *domain.UserSummary `json:"admin"`
}

// List returns the newest audit rows, optionally filtered by type.
func (s *Service) List(ctx context.Context, actionType string, limit int) ([]ActionView, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultLimit
	}
	q := s.DB.WithContext(ctx).Preload("Admin")
	if actionType != "" {
		q = q.Where("type = ?", actionType)
	}
	var rows []domain.AdminAction
	if err := q.Order(`"createdAt" DESC`).Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return Views(rows), nil
}

// Views projects audit rows with their preloaded admin.
func Views(rows []domain.AdminAction) []ActionView {
	out := make([]ActionView, 0, len(rows))
	for _, r := range rows {
		out = append(out, ActionView{AdminAction: r, Admin: r.Admin.Summary(false)})
	}
	return out
}
