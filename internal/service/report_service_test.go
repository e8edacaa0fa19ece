package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
	"github.com/noah-isme/edumarket-api/internal/repository"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type reportStoreStub struct {
	reports    map[string]*models.Report
	createErr  error
	lastFilter models.ReportFilter
}

func newReportStoreStub(reports ...models.Report) *reportStoreStub {
	stub := &reportStoreStub{reports: map[string]*models.Report{}}
	for i := range reports {
		r := reports[i]
		stub.reports[r.ID] = &r
	}
	return stub
}

func (r *reportStoreStub) Create(ctx context.Context, report *models.Report) error {
	if r.createErr != nil {
		return r.createErr
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	r.reports[report.ID] = report
	return nil
}

func (r *reportStoreStub) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	r.lastFilter = filter
	var out []models.Report
	for _, report := range r.reports {
		out = append(out, *report)
	}
	return out, len(out), nil
}

func (r *reportStoreStub) FindByID(ctx context.Context, id string) (*models.Report, error) {
	report, ok := r.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *report
	return &clone, nil
}

func (r *reportStoreStub) UpdateStatus(ctx context.Context, id string, from, to models.ReportStatus, resolution *string) error {
	report, ok := r.reports[id]
	if !ok || report.Status != from {
		return sql.ErrNoRows
	}
	report.Status = to
	report.Resolution = resolution
	return nil
}

func TestReportServiceCreateDerivesPriority(t *testing.T) {
	repo := newReportStoreStub()
	svc := NewReportService(repo, nil, nil, nil, nil)
	listingID := uuid.NewString()

	cases := map[models.ReportType]models.ReportPriority{
		models.ReportTypeContentViolation: models.ReportPriorityHigh,
		models.ReportTypeUserBehavior:     models.ReportPriorityHigh,
		models.ReportTypeInappropriate:    models.ReportPriorityMedium,
		models.ReportTypeTechnical:        models.ReportPriorityMedium,
		models.ReportTypeSpam:             models.ReportPriorityLow,
	}
	for reportType, priority := range cases {
		report, err := svc.Create(context.Background(), ownerClaims, models.CreateReportRequest{
			Type:      reportType,
			ListingID: &listingID,
			Reason:    "  copied material ",
		})
		require.NoError(t, err, reportType)
		assert.Equal(t, priority, report.Priority, reportType)
		assert.Equal(t, models.ReportStatusPending, report.Status)
		assert.Equal(t, "copied material", report.Reason)
		assert.Equal(t, "u1", report.ReporterID)
	}
	assert.Len(t, repo.reports, len(cases))
}

func TestReportServiceCreateValidation(t *testing.T) {
	svc := NewReportService(newReportStoreStub(), nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), ownerClaims, models.CreateReportRequest{Type: "Rude", Reason: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), ownerClaims, models.CreateReportRequest{Type: models.ReportTypeSpam, Reason: "no target"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	self := uuid.NewString()
	claims := &models.JWTClaims{UserID: self, Role: models.RoleUser}
	_, err = svc.Create(context.Background(), claims, models.CreateReportRequest{Type: models.ReportTypeUserBehavior, ReportedUserID: &self, Reason: "myself"})
	require.Error(t, err)

	report, err := svc.Create(context.Background(), ownerClaims, models.CreateReportRequest{Type: models.ReportTypeTechnical, Reason: "download broken"})
	require.NoError(t, err)
	assert.Nil(t, report.ListingID)
}

func TestReportServiceCreateUnknownTarget(t *testing.T) {
	repo := newReportStoreStub()
	repo.createErr = repository.ErrReferenced
	svc := NewReportService(repo, nil, nil, nil, nil)
	listingID := uuid.NewString()

	_, err := svc.Create(context.Background(), ownerClaims, models.CreateReportRequest{Type: models.ReportTypeSpam, ListingID: &listingID, Reason: "fake notes"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceListFilters(t *testing.T) {
	repo := newReportStoreStub(models.Report{ID: "r1"})
	svc := NewReportService(repo, nil, nil, nil, nil)

	reports, pagination, err := svc.List(context.Background(), ReportQuery{Search: " spam ", Status: "Investigating", Type: "Spam/Fake Content", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.Equal(t, "spam", repo.lastFilter.Search)
	assert.Equal(t, models.ReportStatusInvestigating, repo.lastFilter.Status)
	assert.Equal(t, models.ReportTypeSpam, repo.lastFilter.Type)
	assert.Equal(t, 100, pagination.PageSize)

	_, _, err = svc.List(context.Background(), ReportQuery{Status: "all", Type: "all"})
	require.NoError(t, err)
	assert.Empty(t, repo.lastFilter.Status)
	assert.Empty(t, repo.lastFilter.Type)

	_, _, err = svc.List(context.Background(), ReportQuery{Status: "closed"})
	require.Error(t, err)
	_, _, err = svc.List(context.Background(), ReportQuery{Type: "Other"})
	require.Error(t, err)
}

func TestReportServiceUpdateStatus(t *testing.T) {
	repo := newReportStoreStub(models.Report{ID: "r1", Status: models.ReportStatusPending})
	audit := &auditLoggerStub{}
	svc := NewReportService(repo, audit, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), ownerClaims, "r1", models.UpdateReportStatusRequest{Status: models.ReportStatusResolved}, AuditMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	report, err := svc.UpdateStatus(context.Background(), adminClaims, "r1", models.UpdateReportStatusRequest{Status: models.ReportStatusResolved, Resolution: " listing removed "}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, report.Status)
	require.NotNil(t, report.Resolution)
	assert.Equal(t, "listing removed", *report.Resolution)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionReportStatus, audit.logs[0].Action)

	_, err = svc.UpdateStatus(context.Background(), adminClaims, "missing", models.UpdateReportStatusRequest{Status: models.ReportStatusDismissed}, AuditMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateStatus(context.Background(), adminClaims, "r1", models.UpdateReportStatusRequest{Status: "closed"}, AuditMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceUpdateStatusFollowsWorkflow(t *testing.T) {
	repo := newReportStoreStub(models.Report{ID: "r1", Status: models.ReportStatusPending})
	audit := &auditLoggerStub{}
	svc := NewReportService(repo, audit, nil, nil, nil)

	report, err := svc.UpdateStatus(context.Background(), adminClaims, "r1", models.UpdateReportStatusRequest{Status: models.ReportStatusInvestigating}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusInvestigating, report.Status)

	_, err = svc.UpdateStatus(context.Background(), adminClaims, "r1", models.UpdateReportStatusRequest{Status: models.ReportStatusPending}, AuditMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateStatus(context.Background(), adminClaims, "r1", models.UpdateReportStatusRequest{Status: models.ReportStatusDismissed}, AuditMeta{})
	require.NoError(t, err)

	for _, next := range []models.ReportStatus{models.ReportStatusPending, models.ReportStatusInvestigating, models.ReportStatusResolved} {
		_, err = svc.UpdateStatus(context.Background(), adminClaims, "r1", models.UpdateReportStatusRequest{Status: next}, AuditMeta{})
		require.Error(t, err)
		assert.Equal(t, 409, appErrors.FromError(err).Status)
	}
	assert.Equal(t, models.ReportStatusDismissed, repo.reports["r1"].Status)
	assert.Len(t, audit.logs, 2)
}
