package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/edumarket-api/internal/models"
	appErrors "github.com/noah-isme/edumarket-api/pkg/errors"
)

type profileStoreStub struct {
	profiles     map[string]*models.Profile
	summaries    []models.ProfileSummary
	lastFilter   models.ProfileFilter
	statusWrites int
	revoked      []string
}

func (p *profileStoreStub) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	if profile, ok := p.profiles[id]; ok {
		clone := *profile
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (p *profileStoreStub) UpdateDetails(ctx context.Context, profile *models.Profile) error {
	p.profiles[profile.ID] = profile
	return nil
}

func (p *profileStoreStub) UpdateStatus(ctx context.Context, id string, status models.ProfileStatus) error {
	p.statusWrites++
	p.profiles[id].Status = status
	return nil
}

func (p *profileStoreStub) List(ctx context.Context, filter models.ProfileFilter) ([]models.ProfileSummary, int, error) {
	p.lastFilter = filter
	return p.summaries, len(p.summaries), nil
}

func (p *profileStoreStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	p.revoked = append(p.revoked, userID)
	return nil
}

func TestProfileServiceUpdateTrimsFields(t *testing.T) {
	repo := &profileStoreStub{profiles: map[string]*models.Profile{"u1": {ID: "u1", FullName: "Old"}}}
	svc := NewProfileService(repo, nil, nil, nil, nil)

	blank := "   "
	profile, err := svc.Update(context.Background(), "u1", models.UpdateProfileRequest{FullName: "  Ayu Lestari ", University: &blank})
	require.NoError(t, err)
	assert.Equal(t, "Ayu Lestari", profile.FullName)
	assert.Nil(t, profile.University)
}

func TestProfileServiceGetMissing(t *testing.T) {
	svc := NewProfileService(&profileStoreStub{profiles: map[string]*models.Profile{}}, nil, nil, nil, nil)

	_, err := svc.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceListNormalisesFilter(t *testing.T) {
	repo := &profileStoreStub{summaries: []models.ProfileSummary{{Profile: models.Profile{ID: "u1"}, Uploads: 3}}}
	svc := NewProfileService(repo, nil, nil, nil, nil)

	rows, pagination, err := svc.List(context.Background(), models.ProfileFilter{Status: " ALL ", PageSize: 500})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "all", repo.lastFilter.Status)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 100, pagination.PageSize)

	_, _, err = svc.List(context.Background(), models.ProfileFilter{Status: "banned"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestProfileServiceSuspendRevokesSessions(t *testing.T) {
	repo := &profileStoreStub{profiles: map[string]*models.Profile{"u1": {ID: "u1", Status: models.ProfileStatusActive}}}
	audit := &auditLoggerStub{}
	svc := NewProfileService(repo, audit, nil, nil, nil)
	admin := &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}

	profile, err := svc.UpdateStatus(context.Background(), admin, "u1", models.UpdateProfileStatusRequest{Status: models.ProfileStatusSuspended}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.ProfileStatusSuspended, profile.Status)
	assert.Equal(t, []string{"u1"}, repo.revoked)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionProfileStatus, audit.logs[0].Action)

	_, err = svc.UpdateStatus(context.Background(), admin, "u1", models.UpdateProfileStatusRequest{Status: models.ProfileStatusSuspended}, AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.statusWrites, "unchanged status is not rewritten")
}

func TestProfileServiceAdminCannotSuspendSelf(t *testing.T) {
	repo := &profileStoreStub{profiles: map[string]*models.Profile{"admin": {ID: "admin", Status: models.ProfileStatusActive}}}
	svc := NewProfileService(repo, nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, "admin",
		models.UpdateProfileStatusRequest{Status: models.ProfileStatusSuspended}, AuditMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
