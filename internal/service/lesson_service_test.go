package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/models"
)

type mockLessonRepo struct {
	items     map[string]*models.Lesson
	seq       int
	failDates map[string]error
	updateErr map[string]error
}

func newMockLessonRepo() *mockLessonRepo {
	return &mockLessonRepo{items: make(map[string]*models.Lesson)}
}

func (m *mockLessonRepo) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, lesson := range m.items {
		if filter.OrganizationID != "" && lesson.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.RecurrenceID != "" && (lesson.RecurrenceID == nil || *lesson.RecurrenceID != filter.RecurrenceID) {
			continue
		}
		if filter.From != nil && lesson.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && lesson.Date.After(*filter.To) {
			continue
		}
		out = append(out, *lesson)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *mockLessonRepo) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	if lesson, ok := m.items[id]; ok {
		cp := *lesson
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	if err, ok := m.failDates[lesson.Date.Format(dateLayout)]; ok {
		return err
	}
	m.seq++
	lesson.ID = fmt.Sprintf("lesson-%d", m.seq)
	cp := *lesson
	m.items[lesson.ID] = &cp
	return nil
}

func (m *mockLessonRepo) ApplyUpdate(ctx context.Context, id string, update models.LessonUpdate) (*models.Lesson, error) {
	if err, ok := m.updateErr[id]; ok {
		return nil, err
	}
	lesson, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if update.Time != nil {
		lesson.Time = *update.Time
	}
	if update.Pool != nil {
		lesson.Pool = *update.Pool
	}
	if update.Classroom != nil {
		lesson.Classroom = *update.Classroom
	}
	if update.Description != nil {
		lesson.Description = *update.Description
	}
	cp := *lesson
	return &cp, nil
}

func (m *mockLessonRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type mockDetailLister struct {
	details []models.AvailabilityDetail
}

func (m *mockDetailLister) ListByLessons(ctx context.Context, lessonIDs []string) ([]models.AvailabilityDetail, error) {
	wanted := make(map[string]bool, len(lessonIDs))
	for _, id := range lessonIDs {
		wanted[id] = true
	}
	var out []models.AvailabilityDetail
	for _, detail := range m.details {
		if wanted[detail.LessonID] {
			out = append(out, detail)
		}
	}
	return out, nil
}

func newLessonFixture(repo *mockLessonRepo, lister *mockDetailLister) *LessonService {
	if lister == nil {
		lister = &mockDetailLister{}
	}
	return NewLessonService(repo, lister, nil, validator.New(), zap.NewNop())
}

func TestLessonCreateSingle(t *testing.T) {
	repo := newMockLessonRepo()
	service := newLessonFixture(repo, nil)

	lesson, err := service.Create(context.Background(), "org1", "admin1", CreateLessonRequest{
		Date: "2025-03-10",
		Time: "18:00",
		Pool: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", lesson.Date.Format(dateLayout))
	assert.Nil(t, lesson.RecurrenceID)
	assert.Len(t, repo.items, 1)
}

func TestLessonCreateRejectsBadDate(t *testing.T) {
	service := newLessonFixture(newMockLessonRepo(), nil)

	_, err := service.Create(context.Background(), "org1", "admin1", CreateLessonRequest{
		Date: "10-03-2025",
		Time: "18:00",
	})
	require.Error(t, err)
}

func TestLessonCreateSeriesSharesToken(t *testing.T) {
	repo := newMockLessonRepo()
	service := newLessonFixture(repo, nil)

	created, err := service.CreateSeries(context.Background(), "org1", "admin1", CreateLessonRequest{
		Date: "2025-01-06",
		Time: "18:00",
		Pool: true,
		Recurrence: &RecurrenceRequest{
			Type:    RecurrenceWeekly,
			EndDate: "2025-01-27",
			Label:   "Monday pool",
		},
	})
	require.NoError(t, err)
	require.Len(t, created, 4)

	token := created[0].RecurrenceID
	require.NotNil(t, token)
	assert.True(t, strings.HasPrefix(*token, "rec_"))
	for _, lesson := range created {
		require.NotNil(t, lesson.RecurrenceID)
		assert.Equal(t, *token, *lesson.RecurrenceID)
		require.NotNil(t, lesson.RecurrenceLabel)
		assert.Equal(t, "Monday pool", *lesson.RecurrenceLabel)
	}
	assert.Equal(t, "2025-01-06", created[0].Date.Format(dateLayout))
	assert.Equal(t, "2025-01-27", created[3].Date.Format(dateLayout))
}

func TestLessonCreateSeriesReportsPartialFailure(t *testing.T) {
	repo := newMockLessonRepo()
	repo.failDates = map[string]error{"2025-01-13": errors.New("constraint violation")}
	service := newLessonFixture(repo, nil)

	created, err := service.CreateSeries(context.Background(), "org1", "admin1", CreateLessonRequest{
		Date: "2025-01-06",
		Time: "18:00",
		Recurrence: &RecurrenceRequest{
			Type:    RecurrenceWeekly,
			EndDate: "2025-01-20",
		},
	})
	require.Error(t, err)

	var partial *models.PartialSeriesError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "create", partial.Op)
	assert.Len(t, created, 2)
	require.Len(t, partial.Failures, 1)
	assert.Equal(t, "2025-01-13", partial.Failures[0].Date.Format(dateLayout))
	// Already-created members are kept, not rolled back.
	assert.Len(t, repo.items, 2)
}

func TestLessonUpdatePartialFieldsOnly(t *testing.T) {
	repo := newMockLessonRepo()
	repo.items["l1"] = &models.Lesson{
		ID: "l1", OrganizationID: "org1", Time: "18:00", Pool: true, Classroom: true, Description: "theory",
		Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}
	service := newLessonFixture(repo, nil)

	newTime := "19:30"
	updated, err := service.Update(context.Background(), "org1", "l1", models.LessonUpdate{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "19:30", updated.Time)
	assert.True(t, updated.Pool)
	assert.True(t, updated.Classroom)
	assert.Equal(t, "theory", updated.Description)
}

func TestLessonUpdateEmptyIsNoop(t *testing.T) {
	repo := newMockLessonRepo()
	repo.items["l1"] = &models.Lesson{ID: "l1", OrganizationID: "org1", Time: "18:00"}
	service := newLessonFixture(repo, nil)

	updated, err := service.Update(context.Background(), "org1", "l1", models.LessonUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "18:00", updated.Time)
}

func TestLessonUpdateSeriesFromDate(t *testing.T) {
	repo := newMockLessonRepo()
	token := "rec_series"
	for i, day := range []int{6, 13, 20, 27} {
		id := fmt.Sprintf("l%d", i+1)
		repo.items[id] = &models.Lesson{
			ID: id, OrganizationID: "org1", Time: "18:00", RecurrenceID: &token,
			Date: time.Date(2025, 1, day, 0, 0, 0, 0, time.UTC),
		}
	}
	service := newLessonFixture(repo, nil)

	newTime := "20:00"
	fromDate := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	updated, err := service.UpdateSeriesFromDate(context.Background(), "org1", token, fromDate, models.LessonUpdate{Time: &newTime})
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	// Members before the cutoff keep their original time.
	assert.Equal(t, "18:00", repo.items["l1"].Time)
	assert.Equal(t, "18:00", repo.items["l2"].Time)
	assert.Equal(t, "20:00", repo.items["l3"].Time)
	assert.Equal(t, "20:00", repo.items["l4"].Time)
}

func TestLessonUpdateSeriesUnknownToken(t *testing.T) {
	service := newLessonFixture(newMockLessonRepo(), nil)

	newTime := "20:00"
	_, err := service.UpdateSeriesFromDate(context.Background(), "org1", "rec_missing", time.Now(), models.LessonUpdate{Time: &newTime})
	require.Error(t, err)
}

func TestLessonDeleteSeries(t *testing.T) {
	repo := newMockLessonRepo()
	token := "rec_series"
	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("l%d", i+1)
		repo.items[id] = &models.Lesson{
			ID: id, OrganizationID: "org1", RecurrenceID: &token,
			Date: time.Date(2025, 1, 6+7*i, 0, 0, 0, 0, time.UTC),
		}
	}
	repo.items["solo"] = &models.Lesson{ID: "solo", OrganizationID: "org1", Date: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)}
	service := newLessonFixture(repo, nil)

	deleted, err := service.DeleteSeries(context.Background(), "org1", token)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Len(t, repo.items, 1)
	assert.Contains(t, repo.items, "solo")
}

func TestLessonCreateThenDeleteRoundTrip(t *testing.T) {
	repo := newMockLessonRepo()
	service := newLessonFixture(repo, nil)

	lesson, err := service.Create(context.Background(), "org1", "admin1", CreateLessonRequest{
		Date: "2025-03-10",
		Time: "18:00",
	})
	require.NoError(t, err)

	view, err := service.Calendar(context.Background(), "org1", nil, nil)
	require.NoError(t, err)
	assert.Len(t, view["2025-03-10"], 1)

	require.NoError(t, service.Delete(context.Background(), "org1", lesson.ID))

	view, err = service.Calendar(context.Background(), "org1", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, view["2025-03-10"])
}

func TestLessonCalendarJoinsAvailability(t *testing.T) {
	repo := newMockLessonRepo()
	repo.items["l1"] = &models.Lesson{ID: "l1", OrganizationID: "org1", Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)}
	repo.items["l2"] = &models.Lesson{ID: "l2", OrganizationID: "org1", Date: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)}
	lister := &mockDetailLister{details: []models.AvailabilityDetail{
		{
			Availability: models.Availability{ID: "a1", LessonID: "l1", TeacherID: "u1", Pool: true},
			TeacherName:  "Marco", TeacherUsername: "marco",
		},
	}}
	service := newLessonFixture(repo, lister)

	view, err := service.Calendar(context.Background(), "org1", nil, nil)
	require.NoError(t, err)

	require.Len(t, view["2025-03-10"], 1)
	require.Len(t, view["2025-03-10"][0].Teachers, 1)
	assert.Equal(t, "Marco", view["2025-03-10"][0].Teachers[0].TeacherName)

	// Lessons without availability still carry an empty, non-nil list.
	require.Len(t, view["2025-03-11"], 1)
	assert.NotNil(t, view["2025-03-11"][0].Teachers)
	assert.Empty(t, view["2025-03-11"][0].Teachers)
}

func TestLessonSeriesLabel(t *testing.T) {
	repo := newMockLessonRepo()
	token := "rec_series"
	label := "Monday pool"
	repo.items["l1"] = &models.Lesson{ID: "l1", OrganizationID: "org1", RecurrenceID: &token, Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)}
	repo.items["l2"] = &models.Lesson{ID: "l2", OrganizationID: "org1", RecurrenceID: &token, RecurrenceLabel: &label, Date: time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)}
	service := newLessonFixture(repo, nil)

	got, count, err := service.SeriesLabel(context.Background(), "org1", token)
	require.NoError(t, err)
	assert.Equal(t, "Monday pool", got)
	assert.Equal(t, 2, count)
}
