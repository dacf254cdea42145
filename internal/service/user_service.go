package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/models"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
)

const defaultTeacherPassword = "teacher123"

type userRepository interface {
	ListByOrganization(ctx context.Context, orgID string) ([]models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ExistsByUsername(ctx context.Context, username, orgID, excludeID string) (bool, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"omitempty,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN TEACHER"`
}

// UpdateUserRequest represents payload for updating users.
type UpdateUserRequest struct {
	Username string `json:"username" validate:"required,max=50"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"omitempty,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN TEACHER"`
}

// UserService orchestrates the admin roster operations.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns the organization's users ordered by name.
func (s *UserService) List(ctx context.Context, orgID string) ([]models.User, error) {
	users, err := s.repo.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	return users, nil
}

// Create registers a new instructor or admin. New users default to the
// teacher role and the roster's starter password.
func (s *UserService) Create(ctx context.Context, orgID string, req CreateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	username := strings.TrimSpace(req.Username)
	exists, err := s.repo.ExistsByUsername(ctx, username, orgID, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already used")
	}

	password := req.Password
	if password == "" {
		password = defaultTeacherPassword
	}
	role := models.UserRole(req.Role)
	if role == "" {
		role = models.RoleTeacher
	}

	user := &models.User{
		OrganizationID: orgID,
		Username:       username,
		Name:           strings.TrimSpace(req.Name),
		Password:       password,
		Role:           role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	return user, nil
}

// Update modifies an existing user.
func (s *UserService) Update(ctx context.Context, orgID, id string, req UpdateUserRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.findUser(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	exists, err := s.repo.ExistsByUsername(ctx, username, orgID, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "username already used")
	}

	user.Username = username
	user.Name = strings.TrimSpace(req.Name)
	if req.Password != "" {
		user.Password = req.Password
	}
	if req.Role != "" {
		user.Role = models.UserRole(req.Role)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}
	return user, nil
}

// Delete removes a user from the roster.
func (s *UserService) Delete(ctx context.Context, orgID, id string) error {
	if _, err := s.findUser(ctx, orgID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	return nil
}

func (s *UserService) findUser(ctx context.Context, orgID, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if orgID != "" && user.OrganizationID != orgID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
	}
	return user, nil
}
