package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/models"
)

type mockOrgRepo struct {
	orgs []models.Organization
}

func (m *mockOrgRepo) List(ctx context.Context) ([]models.Organization, error) {
	return m.orgs, nil
}

func (m *mockOrgRepo) FindBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	for _, org := range m.orgs {
		if org.Slug == slug {
			cp := org
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestOrganizationListReturnsPersisted(t *testing.T) {
	repo := &mockOrgRepo{orgs: []models.Organization{
		{ID: "org1", Name: "Blue Hole Freediving", Slug: "blue-hole"},
	}}
	service := NewOrganizationService(repo, zap.NewNop())

	orgs, err := service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 1)
	assert.Equal(t, "blue-hole", orgs[0].Slug)
}

func TestOrganizationListFallsBackToDemoDirectory(t *testing.T) {
	service := NewOrganizationService(&mockOrgRepo{}, zap.NewNop())

	orgs, err := service.List(context.Background())
	require.NoError(t, err)
	require.Len(t, orgs, 2)
	assert.Equal(t, "test", orgs[0].ID)
	assert.Equal(t, "TEST - Demo Environment", orgs[0].Name)
	assert.Equal(t, "live", orgs[1].ID)
	assert.Equal(t, "LIVE - Production Environment", orgs[1].Name)
}

func TestOrganizationGetBySlugNotFound(t *testing.T) {
	service := NewOrganizationService(&mockOrgRepo{}, zap.NewNop())

	_, err := service.GetBySlug(context.Background(), "missing")
	require.Error(t, err)
}
