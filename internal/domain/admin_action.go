package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Admin action types.
const (
	ActionReportReview    = "analise_denuncia"
	ActionListingModerate = "moderacao_anuncio"
	ActionUserBlock       = "bloquear_utilizador"
	ActionUserUnblock     = "ativar_utilizador"
	ActionSellerApprove   = "aprovar_vendedor"
	ActionAdminPromote    = "promover_admin"
	ActionAdminCreate     = "criar_admin"
)

// AdminAction is an append-only audit row for every administrative mutation.
// Rows tied to a report form that report's review history.
type AdminAction struct {
	ActionID    uuid.UUID      `gorm:"column:action_id;type:uuid;primaryKey" json:"action_id"`
	AdminID     uuid.UUID      `gorm:"column:admin_id;type:uuid;not null;index" json:"admin_id"`
	Type        string         `gorm:"column:type;type:varchar(40);not null" json:"type"`
	Description string         `gorm:"column:description;not null" json:"description"`
	Payload     datatypes.JSON `gorm:"column:payload;type:json" json:"payload"`
	ReportID    *uuid.UUID     `gorm:"column:report_id;type:uuid;index" json:"report_id,omitempty"`
	Admin       *User          `gorm:"foreignKey:AdminID;references:UserID" json:"-"`
	CreatedAt   time.Time      `gorm:"column:createdAt" json:"createdAt"`
}

func (AdminAction) TableName() string {
	return "admin_actions"
}

func (a *AdminAction) BeforeCreate(tx *gorm.DB) error {
	if a.ActionID == uuid.Nil {
		a.ActionID = uuid.New()
	}
	return nil
}
