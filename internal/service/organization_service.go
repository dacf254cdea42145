package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/models"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
)

type organizationRepository interface {
	List(ctx context.Context) ([]models.Organization, error)
	FindBySlug(ctx context.Context, slug string) (*models.Organization, error)
}

// OrganizationService exposes the tenant directory used for login-time
// disambiguation.
type OrganizationService struct {
	repo   organizationRepository
	logger *zap.Logger
}

// NewOrganizationService constructs an OrganizationService.
func NewOrganizationService(repo organizationRepository, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{repo: repo, logger: logger}
}

// List returns all organizations ordered by name. When none are
// persisted a fixed two-entry demo directory is returned so the login
// flow stays usable on an empty database.
func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	orgs, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list organizations")
	}
	if len(orgs) == 0 {
		s.logger.Info("no organizations persisted, serving demo directory")
		return demoOrganizations(), nil
	}
	return orgs, nil
}

// GetBySlug resolves an organization by its unique slug.
func (s *OrganizationService) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	org, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "organization not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load organization")
	}
	return org, nil
}

func demoOrganizations() []models.Organization {
	return []models.Organization{
		{ID: "test", Name: "TEST - Demo Environment", Slug: "test"},
		{ID: "live", Name: "LIVE - Production Environment", Slug: "live"},
	}
}
