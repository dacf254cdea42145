package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/models"
)

type mockAvailabilityRepo struct {
	rows      []models.Availability
	inserted  []models.Availability
	updated   []models.Availability
	deleted   []string
	deleteErr error
	pairWipes []string
}

func (m *mockAvailabilityRepo) ListByPair(ctx context.Context, lessonID, teacherID string) ([]models.Availability, error) {
	var out []models.Availability
	for _, row := range m.rows {
		if row.LessonID == lessonID && row.TeacherID == teacherID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *mockAvailabilityRepo) Insert(ctx context.Context, row *models.Availability) error {
	if row.ID == "" {
		row.ID = "generated"
	}
	m.inserted = append(m.inserted, *row)
	m.rows = append(m.rows, *row)
	return nil
}

func (m *mockAvailabilityRepo) Update(ctx context.Context, row *models.Availability) error {
	m.updated = append(m.updated, *row)
	for i := range m.rows {
		if m.rows[i].ID == row.ID {
			m.rows[i] = *row
		}
	}
	return nil
}

func (m *mockAvailabilityRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	m.rows = kept
	return nil
}

func (m *mockAvailabilityRepo) DeleteByPair(ctx context.Context, lessonID, teacherID string) error {
	m.pairWipes = append(m.pairWipes, lessonID+"/"+teacherID)
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.LessonID != lessonID || row.TeacherID != teacherID {
			kept = append(kept, row)
		}
	}
	m.rows = kept
	return nil
}

type mockLessonFinder struct {
	items map[string]*models.Lesson
}

func (m *mockLessonFinder) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if lesson, ok := m.items[id]; ok {
		cp := *lesson
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockUserFinder struct {
	items map[string]*models.User
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*models.User, error) {
	if user, ok := m.items[id]; ok {
		cp := *user
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newAvailabilityFixture(repo *mockAvailabilityRepo) *AvailabilityService {
	lessons := &mockLessonFinder{items: map[string]*models.Lesson{
		"l1": {ID: "l1", OrganizationID: "org1", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
	}}
	users := &mockUserFinder{items: map[string]*models.User{
		"u1": {ID: "u1", OrganizationID: "org1", Username: "marco", Name: "Marco", Role: models.RoleTeacher},
	}}
	return NewAvailabilityService(repo, lessons, users, nil, validator.New(), zap.NewNop())
}

func TestAvailabilitySetInsertsFirstRow(t *testing.T) {
	repo := &mockAvailabilityRepo{}
	service := newAvailabilityFixture(repo)

	row, err := service.Set(context.Background(), "org1", "l1", "u1", SetAvailabilityRequest{Pool: true, Note: "early shift"})
	require.NoError(t, err)
	assert.True(t, row.Pool)
	assert.False(t, row.Classroom)
	assert.Equal(t, "early shift", row.Note)
	assert.Len(t, repo.inserted, 1)
	assert.Empty(t, repo.updated)
}

func TestAvailabilitySetIsIdempotent(t *testing.T) {
	repo := &mockAvailabilityRepo{}
	service := newAvailabilityFixture(repo)

	req := SetAvailabilityRequest{Pool: true, Classroom: true}
	first, err := service.Set(context.Background(), "org1", "l1", "u1", req)
	require.NoError(t, err)
	second, err := service.Set(context.Background(), "org1", "l1", "u1", req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.rows, 1)
	assert.Len(t, repo.inserted, 1)
	assert.Len(t, repo.updated, 1)
}

func TestAvailabilitySetHealsDuplicates(t *testing.T) {
	repo := &mockAvailabilityRepo{rows: []models.Availability{
		{ID: "a1", OrganizationID: "org1", LessonID: "l1", TeacherID: "u1", Pool: true},
		{ID: "a2", OrganizationID: "org1", LessonID: "l1", TeacherID: "u1", Classroom: true},
		{ID: "a3", OrganizationID: "org1", LessonID: "l1", TeacherID: "u1"},
	}}
	service := newAvailabilityFixture(repo)

	row, err := service.Set(context.Background(), "org1", "l1", "u1", SetAvailabilityRequest{Classroom: true})
	require.NoError(t, err)

	assert.Equal(t, "a1", row.ID)
	assert.False(t, row.Pool)
	assert.True(t, row.Classroom)
	assert.ElementsMatch(t, []string{"a2", "a3"}, repo.deleted)
	assert.Len(t, repo.rows, 1)
}

func TestAvailabilitySetCleanupFailureDoesNotFailWrite(t *testing.T) {
	repo := &mockAvailabilityRepo{
		rows: []models.Availability{
			{ID: "a1", OrganizationID: "org1", LessonID: "l1", TeacherID: "u1"},
			{ID: "a2", OrganizationID: "org1", LessonID: "l1", TeacherID: "u1"},
		},
		deleteErr: errors.New("locked"),
	}
	service := newAvailabilityFixture(repo)

	row, err := service.Set(context.Background(), "org1", "l1", "u1", SetAvailabilityRequest{Pool: true})
	require.NoError(t, err)
	assert.Equal(t, "a1", row.ID)
	assert.True(t, row.Pool)
}

func TestAvailabilityTogglePreservesOtherDimension(t *testing.T) {
	repo := &mockAvailabilityRepo{rows: []models.Availability{
		{ID: "a1", OrganizationID: "org1", LessonID: "l1", TeacherID: "u1", Pool: true, Classroom: true, Note: "keep me"},
	}}
	service := newAvailabilityFixture(repo)

	row, err := service.Toggle(context.Background(), "org1", "l1", "u1", "pool")
	require.NoError(t, err)
	assert.False(t, row.Pool)
	assert.True(t, row.Classroom)
	assert.Equal(t, "keep me", row.Note)
}

func TestAvailabilityToggleWithoutPriorRow(t *testing.T) {
	repo := &mockAvailabilityRepo{}
	service := newAvailabilityFixture(repo)

	row, err := service.Toggle(context.Background(), "org1", "l1", "u1", "classroom")
	require.NoError(t, err)
	assert.False(t, row.Pool)
	assert.True(t, row.Classroom)
	assert.Len(t, repo.inserted, 1)
}

func TestAvailabilityToggleRejectsUnknownDimension(t *testing.T) {
	service := newAvailabilityFixture(&mockAvailabilityRepo{})

	_, err := service.Toggle(context.Background(), "org1", "l1", "u1", "boat")
	require.Error(t, err)
}

func TestAvailabilitySetNoteWithoutRowIsNoop(t *testing.T) {
	repo := &mockAvailabilityRepo{}
	service := newAvailabilityFixture(repo)

	row, err := service.SetNote(context.Background(), "org1", "l1", "u1", "hello")
	require.NoError(t, err)
	assert.Nil(t, row)
	assert.Empty(t, repo.inserted)
}

func TestAvailabilityRemoveIsIdempotent(t *testing.T) {
	repo := &mockAvailabilityRepo{rows: []models.Availability{
		{ID: "a1", OrganizationID: "org1", LessonID: "l1", TeacherID: "u1", Pool: true},
	}}
	service := newAvailabilityFixture(repo)

	require.NoError(t, service.Remove(context.Background(), "org1", "l1", "u1"))
	require.NoError(t, service.Remove(context.Background(), "org1", "l1", "u1"))
	assert.Empty(t, repo.rows)
	assert.Len(t, repo.pairWipes, 2)
}

func TestAvailabilitySetUnknownLesson(t *testing.T) {
	service := newAvailabilityFixture(&mockAvailabilityRepo{})

	_, err := service.Set(context.Background(), "org1", "missing", "u1", SetAvailabilityRequest{Pool: true})
	require.Error(t, err)
}
