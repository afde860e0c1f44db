package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"autostand-backend/internal/application/audit"
	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Review actions an administrator may take.
const (
	ActionMarkInReview = "mark-in-review"
	ActionClose        = "close"
)

// Mailboxes for non-admin listing.
const (
	BoxSent     = "sent"
	BoxReceived = "received"
)

var (
	ErrReportClosed    = apperror.InvalidState("Report is already closed")
	ErrAlreadyInReview = apperror.InvalidState("Report is already under review")
)

type Service struct {
	DB       *gorm.DB
	Notifier notifications.Sink
}

// FileCommand is a validated report submission.
type FileCommand struct {
	Type           string
	ListingID      *uuid.UUID
	ReportedUserID *uuid.UUID
	Reason         string
	Description    string
}

// ReviewCommand is an administrator's transition request.
type ReviewCommand struct {
	ReportID uuid.UUID
	Action   string
	Outcome  string
	Note     string
}

// ListQuery filters the report list.
type ListQuery struct {
	Status string
	Box    string
}

// ActionView is one entry of a report's review history.
type ActionView = audit.ActionView

// View is a report with its parties and review history.
type View struct {
	domain.Report
	Listing      *domain.ListingSummary `json:"listing"`
	Reporter     *domain.UserSummary    `json:"reporter"`
	ReportedUser *domain.UserSummary    `json:"reported_user"`
	Actions      []ActionView           `json:"actions"`
}

func validationErr(field, msg string) error {
	return apperror.Validation("Invalid report", map[string]string{field: msg})
}

// File records a new open report against a listing or a user.
func (s *Service) File(ctx context.Context, actor domain.Actor, cmd FileCommand) (*domain.Report, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		return nil, validationErr("reason", "is required")
	}
	report := &domain.Report{
		Type:       cmd.Type,
		ReporterID: actor.UserID,
		Reason:     reason,
		Status:     domain.ReportOpen,
	}
	if d := strings.TrimSpace(cmd.Description); d != "" {
		report.Description = &d
	}

	switch cmd.Type {
	case domain.ReportTypeListing:
		if cmd.ListingID == nil {
			return nil, validationErr("listing_id", "is required")
		}
		if cmd.ReportedUserID != nil {
			return nil, validationErr("reported_user_id", "is not allowed here")
		}
		report.ListingID = cmd.ListingID
	case domain.ReportTypeUser:
		if cmd.ReportedUserID == nil {
			return nil, validationErr("reported_user_id", "is required")
		}
		if cmd.ListingID != nil {
			return nil, validationErr("listing_id", "is not allowed here")
		}
		report.ReportedUserID = cmd.ReportedUserID
	default:
		return nil, validationErr("type", "must be one of: listing user")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("user_id = ?", actor.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperror.ErrUserNotFound
		}
		if report.ListingID != nil {
			if err := tx.Model(&domain.Listing{}).Where("listing_id = ?", *report.ListingID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperror.ErrListingNotFound
			}
		}
		if report.ReportedUserID != nil {
			if err := tx.Model(&domain.User{}).Where("user_id = ?", *report.ReportedUserID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return apperror.ErrUserNotFound
			}
		}
		if err := tx.Create(report).Error; err != nil {
			return fmt.Errorf("Failed to create report: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// nextStatus validates a transition and returns the target status.
func nextStatus(current string, cmd ReviewCommand) (string, error) {
	switch cmd.Action {
	case ActionMarkInReview:
		if cmd.Outcome != "" {
			return "", validationErr("outcome", "only allowed when closing")
		}
		switch current {
		case domain.ReportClosed:
			return "", ErrReportClosed
		case domain.ReportInReview:
			return "", ErrAlreadyInReview
		}
		return domain.ReportInReview, nil
	case ActionClose:
		if cmd.Outcome != domain.OutcomeSubstantiated && cmd.Outcome != domain.OutcomeUnsubstantiated {
			return "", validationErr("outcome", "must be one of: substantiated unsubstantiated")
		}
		if current == domain.ReportClosed {
			return "", ErrReportClosed
		}
		return domain.ReportClosed, nil
	default:
		return "", validationErr("action", "must be one of: mark-in-review close")
	}
}

// Review moves a report through open -> in review -> closed, records the audit entry and
// notifies the reporter and the counterparty, all in one transaction.
func (s *Service) Review(ctx context.Context, actor domain.Actor, cmd ReviewCommand) (*domain.Report, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	if !actor.Admin {
		return nil, apperror.ErrForbidden
	}

	var report domain.Report
	ctx, flush := notifications.Deferred(ctx)
	defer flush()
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Listing").Where("report_id = ?", cmd.ReportID).First(&report).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.ErrReportNotFound
			}
			return err
		}
		status, err := nextStatus(report.Status, cmd)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"status": status}
		if status == domain.ReportClosed {
			outcome := cmd.Outcome
			updates["outcome"] = outcome
			report.Outcome = &outcome
		}
		res := tx.Model(&domain.Report{}).
			Where("report_id = ? AND status = ?", report.ReportID, report.Status).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("Failed to update report: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperror.InvalidState("Report was changed by another administrator")
		}
		report.Status = status

		if _, err := audit.Record(ctx, tx, actor, reviewEntry(&report, cmd)); err != nil {
			return err
		}

		for _, n := range reviewNotices(&report) {
			notifications.NotifyBestEffort(ctx, s.Notifier, tx, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("report_id", report.ReportID.String()).Str("status", report.Status).
		Str("admin_id", actor.UserID.String()).Msg("report reviewed")
	return &report, nil
}

func reviewEntry(r *domain.Report, cmd ReviewCommand) audit.Entry {
	desc := "Colocou em análise denúncia " + r.ReportID.String()
	if r.Status == domain.ReportClosed {
		desc = "Encerrou denúncia " + r.ReportID.String() + " - " + *r.Outcome
	}
	payload := map[string]interface{}{
		"report_id": r.ReportID.String(),
		"action":    cmd.Action,
		"status":    r.Status,
	}
	if r.Outcome != nil {
		payload["outcome"] = *r.Outcome
	}
	if note := strings.TrimSpace(cmd.Note); note != "" {
		payload["note"] = note
		desc += ": " + note
	}
	id := r.ReportID
	return audit.Entry{Type: domain.ActionReportReview, Description: desc, Payload: payload, ReportID: &id}
}

// reviewNotices builds the reporter notice and, unless it is the same person, the counterparty notice.
func reviewNotices(r *domain.Report) []notifications.Notice {
	target := "um utilizador"
	counterpartyTarget := "a sua conta"
	var counterparty uuid.UUID
	if r.ReportedUserID != nil {
		counterparty = *r.ReportedUserID
	} else if r.Listing != nil {
		target = fmt.Sprintf("o anúncio \"%s\"", r.Listing.Title)
		counterpartyTarget = fmt.Sprintf("o seu anúncio \"%s\"", r.Listing.Title)
		counterparty = r.Listing.OwnerID
	}

	var verdict string
	if r.Outcome != nil {
		verdict = "procedente"
		if *r.Outcome == domain.OutcomeUnsubstantiated {
			verdict = "não procedente"
		}
	}

	reporter := notifications.Notice{RecipientID: r.ReporterID, Type: notifications.TypeReportUpdated, ListingID: r.ListingID}
	other := notifications.Notice{RecipientID: counterparty, Type: notifications.TypeReportReceivedUpdated, ListingID: r.ListingID}
	if r.Status == domain.ReportClosed {
		reporter.Title = "Denúncia Encerrada"
		reporter.Message = fmt.Sprintf("A sua denúncia sobre %s foi encerrada e considerada %s.", target, verdict)
		other.Title = "Denúncia Recebida Encerrada"
		other.Message = fmt.Sprintf("Uma denúncia sobre %s foi encerrada e considerada %s.", counterpartyTarget, verdict)
	} else {
		reporter.Title = "Denúncia em Análise"
		reporter.Message = fmt.Sprintf("A sua denúncia sobre %s está a ser analisada pela equipa de moderação.", target)
		other.Title = "Denúncia Recebida em Análise"
		other.Message = fmt.Sprintf("Uma denúncia sobre %s está a ser analisada pela equipa de moderação.", counterpartyTarget)
	}

	out := []notifications.Notice{reporter}
	if counterparty != uuid.Nil && counterparty != r.ReporterID {
		out = append(out, other)
	}
	return out
}

func (s *Service) baseQuery(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).
		Preload("Listing").
		Preload("Reporter").
		Preload("ReportedUser").
		Preload("Actions", func(db *gorm.DB) *gorm.DB { return db.Order(`"createdAt" ASC`) }).
		Preload("Actions.Admin")
}

// List returns reports visible to the actor, newest first. Administrators see every report;
// other users see what they sent or, with BoxReceived, reports against them or their listings.
func (s *Service) List(ctx context.Context, actor domain.Actor, q ListQuery) ([]View, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	db := s.baseQuery(ctx)
	if q.Status != "" {
		db = db.Where("status = ?", q.Status)
	}
	if !actor.Admin {
		if q.Box == BoxReceived {
			owned := s.DB.WithContext(ctx).Model(&domain.Listing{}).Select("listing_id").Where("owner_id = ?", actor.UserID)
			db = db.Where("reported_user_id = ? OR listing_id IN (?)", actor.UserID, owned)
		} else {
			db = db.Where("reporter_id = ?", actor.UserID)
		}
	}
	var rows []domain.Report
	if err := db.Order(`"createdAt" DESC`).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for i := range rows {
		out = append(out, view(&rows[i], actor.Admin))
	}
	return out, nil
}

// Get returns one report to an administrator, its reporter, or its counterparty.
func (s *Service) Get(ctx context.Context, actor domain.Actor, id uuid.UUID) (*View, error) {
	if actor.Anonymous() {
		return nil, apperror.ErrUnauthenticated
	}
	var r domain.Report
	if err := s.baseQuery(ctx).Where("report_id = ?", id).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, err
	}
	involved := r.ReporterID == actor.UserID ||
		(r.ReportedUserID != nil && *r.ReportedUserID == actor.UserID) ||
		(r.Listing != nil && r.Listing.OwnerID == actor.UserID)
	if !actor.Admin && !involved {
		return nil, apperror.ErrForbidden
	}
	v := view(&r, actor.Admin)
	return &v, nil
}

func view(r *domain.Report, admin bool) View {
	return View{
		Report:       *r,
		Listing:      r.Listing.Summary(),
		Reporter:     r.Reporter.Summary(admin),
		ReportedUser: r.ReportedUser.Summary(admin),
		Actions:      audit.Views(r.Actions),
	}
}
