package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Report target types.
const (
	ReportTypeListing = "anuncio"
	ReportTypeUser    = "utilizador"
)

// Report states. Closed is terminal.
const (
	ReportOpen     = "aberta"
	ReportInReview = "em_analise"
	ReportClosed   = "encerrada"
)

// Report outcomes, set only on closure.
const (
	OutcomeSubstantiated   = "procedente"
	OutcomeUnsubstantiated = "nao_procedente"
)

// Report is a complaint against a listing or a user, triaged by administrators.
type Report struct {
	ReportID       uuid.UUID     `gorm:"column:report_id;type:uuid;primaryKey" json:"report_id"`
	Type           string        `gorm:"column:type;type:varchar(20);not null" json:"type"`
	ListingID      *uuid.UUID    `gorm:"column:listing_id;type:uuid;index" json:"listing_id"`
	ReportedUserID *uuid.UUID    `gorm:"column:reported_user_id;type:uuid;index" json:"reported_user_id"`
	ReporterID     uuid.UUID     `gorm:"column:reporter_id;type:uuid;not null;index" json:"reporter_id"`
	Reason         string        `gorm:"column:reason;not null" json:"reason"`
	Description    *string       `gorm:"column:description" json:"description"`
	Status         string        `gorm:"column:status;type:varchar(20);not null;default:'aberta';index" json:"status"`
	Outcome        *string       `gorm:"column:outcome;type:varchar(20)" json:"outcome"`
	Listing        *Listing      `gorm:"foreignKey:ListingID;references:ListingID" json:"-"`
	Reporter       *User         `gorm:"foreignKey:ReporterID;references:UserID" json:"-"`
	ReportedUser   *User         `gorm:"foreignKey:ReportedUserID;references:UserID" json:"-"`
	Actions        []AdminAction `gorm:"foreignKey:ReportID;references:ReportID" json:"-"`
	CreatedAt      time.Time     `gorm:"column:createdAt" json:"createdAt"`
	UpdatedAt      time.Time     `gorm:"column:updatedAt" json:"updatedAt"`
}

func (Report) TableName() string {
	return "reports"
}

func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ReportID == uuid.Nil {
		r.ReportID = uuid.New()
	}
	return nil
}
