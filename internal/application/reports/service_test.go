package reports

import (
	"context"
	"testing"

	"autostand-backend/internal/application/notifications"
	"autostand-backend/internal/domain"
	"autostand-backend/internal/infrastructure/database"
	"autostand-backend/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc      *Service
	db       *gorm.DB
	reporter domain.User
	owner    domain.User
	admin    domain.User
	listing  domain.Listing
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open("sqlite::memory:")
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	f := &fixture{db: db, svc: &Service{DB: db, Notifier: &notifications.Service{DB: db}}}
	f.reporter = seedUser(t, db, "carla", false)
	f.owner = seedUser(t, db, "bruno", false)
	f.admin = seedUser(t, db, "dora", true)
	f.listing = domain.Listing{OwnerID: f.owner.UserID, Title: "Clio 1.2", Brand: "Renault", Model: "Clio", Year: 2012, Status: domain.ListingActive}
	require.NoError(t, db.Create(&f.listing).Error)
	return f
}

func seedUser(t *testing.T, db *gorm.DB, username string, admin bool) domain.User {
	t.Helper()
	u := domain.User{Name: "Test", Surname: username, Username: username, Email: username + "@example.com", PasswordHash: "x", Admin: admin}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func (f *fixture) fileListingReport(t *testing.T) *domain.Report {
	t.Helper()
	r, err := f.svc.File(context.Background(), f.reporter.Actor(), FileCommand{
		Type:      domain.ReportTypeListing,
		ListingID: &f.listing.ListingID,
		Reason:    "  enganoso  ",
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) notes(t *testing.T, userID uuid.UUID) []domain.Notification {
	t.Helper()
	var out []domain.Notification
	require.NoError(t, f.db.Where("recipient_id = ?", userID).Order(`"createdAt" ASC`).Find(&out).Error)
	return out
}

func TestFile_Open(t *testing.T) {
	f := setup(t)
	r := f.fileListingReport(t)
	assert.Equal(t, domain.ReportOpen, r.Status)
	assert.Equal(t, "enganoso", r.Reason)
	assert.Nil(t, r.Outcome)
	assert.Nil(t, r.Description)
}

func TestFile_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	actor := f.reporter.Actor()
	otherID := f.owner.UserID

	cases := []FileCommand{
		{Type: domain.ReportTypeListing, ListingID: &f.listing.ListingID, Reason: "   "},
		{Type: domain.ReportTypeListing, Reason: "x"},
		{Type: domain.ReportTypeListing, ListingID: &f.listing.ListingID, ReportedUserID: &otherID, Reason: "x"},
		{Type: domain.ReportTypeUser, Reason: "x"},
		{Type: domain.ReportTypeUser, ReportedUserID: &otherID, ListingID: &f.listing.ListingID, Reason: "x"},
		{Type: "vehicle", Reason: "x"},
	}
	for i, cmd := range cases {
		_, err := f.svc.File(ctx, actor, cmd)
		assert.True(t, apperror.IsValidation(err), "case %d", i)
	}

	missing := uuid.New()
	_, err := f.svc.File(ctx, actor, FileCommand{Type: domain.ReportTypeListing, ListingID: &missing, Reason: "x"})
	assert.ErrorIs(t, err, apperror.ErrListingNotFound)
	_, err = f.svc.File(ctx, actor, FileCommand{Type: domain.ReportTypeUser, ReportedUserID: &missing, Reason: "x"})
	assert.ErrorIs(t, err, apperror.ErrUserNotFound)
	_, err = f.svc.File(ctx, domain.Actor{}, FileCommand{Type: domain.ReportTypeUser, ReportedUserID: &otherID, Reason: "x"})
	assert.Equal(t, apperror.KindUnauthenticated, apperror.KindOf(err))
}

func TestReview_FullScenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.fileListingReport(t)

	out, err := f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionMarkInReview})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportInReview, out.Status)
	assert.Nil(t, out.Outcome)

	out, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionClose, Outcome: domain.OutcomeSubstantiated, Note: "fotos falsas"})
	require.NoError(t, err)
	assert.Equal(t, domain.ReportClosed, out.Status)
	require.NotNil(t, out.Outcome)
	assert.Equal(t, domain.OutcomeSubstantiated, *out.Outcome)

	v, err := f.svc.Get(ctx, f.admin.Actor(), r.ReportID)
	require.NoError(t, err)
	require.Len(t, v.Actions, 2)
	for _, a := range v.Actions {
		assert.Equal(t, f.admin.UserID, a.AdminID)
		require.NotNil(t, a.Admin)
		assert.Equal(t, "dora", a.Admin.Surname)
	}
	assert.Contains(t, v.Actions[1].Description, "fotos falsas")

	reporterNotes := f.notes(t, f.reporter.UserID)
	require.Len(t, reporterNotes, 2)
	assert.Equal(t, "Denúncia Encerrada", reporterNotes[1].Title)
	assert.Contains(t, reporterNotes[1].Message, "considerada procedente")
	assert.Contains(t, reporterNotes[1].Message, "Clio 1.2")

	ownerNotes := f.notes(t, f.owner.UserID)
	require.Len(t, ownerNotes, 2)
	assert.Equal(t, notifications.TypeReportReceivedUpdated, ownerNotes[0].Type)
}

func TestReview_DirectCloseAndTerminal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.fileListingReport(t)

	_, err := f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionClose, Outcome: domain.OutcomeUnsubstantiated})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionClose, Outcome: domain.OutcomeSubstantiated})
	assert.ErrorIs(t, err, ErrReportClosed)
	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionMarkInReview})
	assert.ErrorIs(t, err, ErrReportClosed)

	var stored domain.Report
	require.NoError(t, f.db.First(&stored, "report_id = ?", r.ReportID).Error)
	assert.Equal(t, domain.OutcomeUnsubstantiated, *stored.Outcome)

	var actions int64
	require.NoError(t, f.db.Model(&domain.AdminAction{}).Where("report_id = ?", r.ReportID).Count(&actions).Error)
	assert.Equal(t, int64(1), actions)
}

func TestReview_Rules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.fileListingReport(t)

	_, err := f.svc.Review(ctx, f.owner.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionMarkInReview})
	assert.True(t, apperror.IsForbidden(err))

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionClose})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionMarkInReview, Outcome: domain.OutcomeSubstantiated})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: "reopen"})
	assert.True(t, apperror.IsValidation(err))

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: uuid.New(), Action: ActionMarkInReview})
	assert.ErrorIs(t, err, apperror.ErrReportNotFound)

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionMarkInReview})
	require.NoError(t, err)
	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionMarkInReview})
	assert.ErrorIs(t, err, ErrAlreadyInReview)
}

func TestReview_UserReportNotifiesReportedUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r, err := f.svc.File(ctx, f.reporter.Actor(), FileCommand{Type: domain.ReportTypeUser, ReportedUserID: &f.owner.UserID, Reason: "spam"})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionMarkInReview})
	require.NoError(t, err)

	reporterNotes := f.notes(t, f.reporter.UserID)
	require.Len(t, reporterNotes, 1)
	assert.Contains(t, reporterNotes[0].Message, "um utilizador")
	ownerNotes := f.notes(t, f.owner.UserID)
	require.Len(t, ownerNotes, 1)
	assert.Equal(t, "Denúncia Recebida em Análise", ownerNotes[0].Title)
}

func TestReview_NoDuplicateWhenReporterIsCounterparty(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r, err := f.svc.File(ctx, f.owner.Actor(), FileCommand{Type: domain.ReportTypeListing, ListingID: &f.listing.ListingID, Reason: "duplicado"})
	require.NoError(t, err)

	_, err = f.svc.Review(ctx, f.admin.Actor(), ReviewCommand{ReportID: r.ReportID, Action: ActionClose, Outcome: domain.OutcomeUnsubstantiated})
	require.NoError(t, err)

	notes := f.notes(t, f.owner.UserID)
	require.Len(t, notes, 1)
	assert.Equal(t, notifications.TypeReportUpdated, notes[0].Type)
	assert.Contains(t, notes[0].Message, "não procedente")
}

func TestList_Boxes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.fileListingReport(t)
	_, err := f.svc.File(ctx, f.owner.Actor(), FileCommand{Type: domain.ReportTypeUser, ReportedUserID: &f.reporter.UserID, Reason: "insultos"})
	require.NoError(t, err)

	sent, err := f.svc.List(ctx, f.reporter.Actor(), ListQuery{})
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, domain.ReportTypeListing, sent[0].Type)
	require.NotNil(t, sent[0].Listing)
	assert.Empty(t, sent[0].Reporter.Email)

	received, err := f.svc.List(ctx, f.owner.Actor(), ListQuery{Box: BoxReceived})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, f.reporter.UserID, received[0].ReporterID)

	receivedByReporter, err := f.svc.List(ctx, f.reporter.Actor(), ListQuery{Box: BoxReceived})
	require.NoError(t, err)
	require.Len(t, receivedByReporter, 1)
	assert.Equal(t, domain.ReportTypeUser, receivedByReporter[0].Type)

	all, err := f.svc.List(ctx, f.admin.Actor(), ListQuery{Box: BoxSent})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.NotEmpty(t, all[0].Reporter.Email)

	closed, err := f.svc.List(ctx, f.admin.Actor(), ListQuery{Status: domain.ReportClosed})
	require.NoError(t, err)
	assert.Empty(t, closed)
}

func TestGet_Visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	r := f.fileListingReport(t)
	stranger := seedUser(t, f.db, "zeca", false)

	_, err := f.svc.Get(ctx, f.owner.Actor(), r.ReportID)
	require.NoError(t, err)
	_, err = f.svc.Get(ctx, stranger.Actor(), r.ReportID)
	assert.True(t, apperror.IsForbidden(err))
}
