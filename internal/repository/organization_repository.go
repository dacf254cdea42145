package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/apnealab/dive-scheduler-api/internal/models"
)

// OrganizationRepository manages persistence for organizations.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs an OrganizationRepository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// List returns all organizations ordered by name.
func (r *OrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	const query = `SELECT id, name, slug, created_at FROM organizations ORDER BY name`
	var orgs []models.Organization
	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, nil
}

// FindByID fetches an organization by ID.
func (r *OrganizationRepository) FindByID(ctx context.Context, id string) (*models.Organization, error) {
	const query = `SELECT id, name, slug, created_at FROM organizations WHERE id = $1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, err
	}
	return &org, nil
}

// FindBySlug fetches an organization by its unique slug.
func (r *OrganizationRepository) FindBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	const query = `SELECT id, name, slug, created_at FROM organizations WHERE slug = $1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, slug); err != nil {
		return nil, err
	}
	return &org, nil
}

// Create inserts a new organization record.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO organizations (id, name, slug, created_at) VALUES (:id, :name, :slug, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, org); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}
