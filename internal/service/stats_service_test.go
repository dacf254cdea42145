package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/dto"
	"github.com/apnealab/dive-scheduler-api/internal/models"
)

type mockCalendarProvider struct {
	view dto.CalendarResponse
	from *time.Time
	to   *time.Time
}

func (m *mockCalendarProvider) Calendar(ctx context.Context, orgID string, from, to *time.Time) (dto.CalendarResponse, error) {
	m.from = from
	m.to = to
	return m.view, nil
}

type mockUserLister struct {
	users []models.User
}

func (m *mockUserLister) ListByOrganization(ctx context.Context, orgID string) ([]models.User, error) {
	return m.users, nil
}

func lessonWithTeachers(id string, date time.Time, pool, classroom bool, teachers ...models.AvailabilityDetail) dto.LessonWithAvailability {
	if teachers == nil {
		teachers = []models.AvailabilityDetail{}
	}
	return dto.LessonWithAvailability{
		Lesson:   models.Lesson{ID: id, OrganizationID: "org1", Date: date, Pool: pool, Classroom: classroom},
		Teachers: teachers,
	}
}

func teacherRow(teacherID, username, name string, pool, classroom bool) models.AvailabilityDetail {
	return models.AvailabilityDetail{
		Availability:    models.Availability{TeacherID: teacherID, Pool: pool, Classroom: classroom},
		TeacherName:     name,
		TeacherUsername: username,
	}
}

func TestMonthlySummaryQueriesWholeMonth(t *testing.T) {
	calendar := &mockCalendarProvider{view: dto.CalendarResponse{}}
	service := NewStatsService(calendar, &mockUserLister{}, nil, zap.NewNop())

	_, err := service.MonthlySummary(context.Background(), "org1", 2025, 2)
	require.NoError(t, err)

	require.NotNil(t, calendar.from)
	require.NotNil(t, calendar.to)
	assert.Equal(t, "2025-02-01", calendar.from.Format(dateLayout))
	assert.Equal(t, "2025-02-28", calendar.to.Format(dateLayout))
}

func TestMonthlySummaryRejectsInvalidPeriod(t *testing.T) {
	service := NewStatsService(&mockCalendarProvider{}, &mockUserLister{}, nil, zap.NewNop())

	_, err := service.MonthlySummary(context.Background(), "org1", 2025, 13)
	require.Error(t, err)
	_, err = service.MonthlySummary(context.Background(), "org1", 0, 5)
	require.Error(t, err)
}

func TestComputeSummaryTotalsAndBreakdown(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	lessons := []dto.LessonWithAvailability{
		lessonWithTeachers("l1", day, true, false, teacherRow("u1", "marco", "Marco", true, false)),
		lessonWithTeachers("l2", day, false, true),
		lessonWithTeachers("l3", day, true, true,
			teacherRow("u1", "marco", "Marco", true, true),
			teacherRow("u2", "lena", "Lena", false, true)),
		lessonWithTeachers("l4", day, false, false),
	}

	summary := computeSummary(2025, 3, lessons)

	assert.Equal(t, 4, summary.TotalLessons)
	assert.Equal(t, 2, summary.CoveredLessons)
	assert.Equal(t, 3, summary.TotalAvailabilities)
	assert.InDelta(t, 50.0, summary.CoveragePercent, 0.001)
	assert.Equal(t, 1, summary.PoolOnly)
	assert.Equal(t, 1, summary.ClassroomOnly)
	assert.Equal(t, 1, summary.Both)

	require.Len(t, summary.Instructors, 2)
	assert.Equal(t, "Marco", summary.Instructors[0].Name)
	assert.Equal(t, 2, summary.Instructors[0].Total)
	assert.Equal(t, 2, summary.Instructors[0].Pool)
	assert.Equal(t, 1, summary.Instructors[0].Classroom)
	assert.Equal(t, "Lena", summary.Instructors[1].Name)
}

func TestComputeSummaryCoverageIgnoresRowFlags(t *testing.T) {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	// The availability row has both dimensions false; the lesson still
	// counts as covered because the list is non-empty.
	lessons := []dto.LessonWithAvailability{
		lessonWithTeachers("l1", day, true, false, teacherRow("u1", "marco", "Marco", false, false)),
	}

	summary := computeSummary(2025, 3, lessons)

	assert.Equal(t, 1, summary.CoveredLessons)
	assert.InDelta(t, 100.0, summary.CoveragePercent, 0.001)
}

func TestComputeWorkloadOrderingAndTiers(t *testing.T) {
	users := []models.User{
		{ID: "u1", Username: "marco", Name: "Marco", Role: models.RoleTeacher},
		{ID: "u2", Username: "lena", Name: "Lena", Role: models.RoleTeacher},
		{ID: "u3", Username: "yuri", Name: "Yuri", Role: models.RoleTeacher},
		{ID: "u4", Username: "ada", Name: "Ada", Role: models.RoleAdmin},
	}
	d1 := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)
	lessons := []dto.LessonWithAvailability{
		lessonWithTeachers("l1", d1, true, false, teacherRow("u2", "lena", "Lena", true, false)),
		lessonWithTeachers("l2", d2, true, false,
			teacherRow("u2", "lena", "Lena", true, false),
			teacherRow("u3", "yuri", "Yuri", true, false)),
	}

	entries := computeWorkload(users, lessons)

	// Admins are excluded from the balance.
	require.Len(t, entries, 3)
	assert.Equal(t, "u1", entries[0].TeacherID)
	assert.Equal(t, 0, entries[0].Count)
	assert.Nil(t, entries[0].LastAvailability)
	assert.Equal(t, dto.TierWorst, entries[0].Tier)

	assert.Equal(t, "u3", entries[1].TeacherID)
	assert.Equal(t, 1, entries[1].Count)
	assert.Equal(t, dto.TierSecond, entries[1].Tier)

	assert.Equal(t, "u2", entries[2].TeacherID)
	assert.Equal(t, 2, entries[2].Count)
	assert.Empty(t, entries[2].Tier)
}

func TestComputeWorkloadTieBreakByLastAvailability(t *testing.T) {
	users := []models.User{
		{ID: "u1", Username: "marco", Name: "Marco", Role: models.RoleTeacher},
		{ID: "u2", Username: "lena", Name: "Lena", Role: models.RoleTeacher},
	}
	older := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC)
	lessons := []dto.LessonWithAvailability{
		lessonWithTeachers("l1", newer, true, false, teacherRow("u1", "marco", "Marco", true, false)),
		lessonWithTeachers("l2", older, true, false, teacherRow("u2", "lena", "Lena", true, false)),
	}

	entries := computeWorkload(users, lessons)

	require.Len(t, entries, 2)
	// Same count: the older last availability ranks first.
	assert.Equal(t, "u2", entries[0].TeacherID)
	assert.Equal(t, dto.TierWorst, entries[0].Tier)
	// Not an exact tie, so the next entry lands in the second tier.
	assert.Equal(t, "u1", entries[1].TeacherID)
	assert.Equal(t, dto.TierSecond, entries[1].Tier)
}

func TestComputeWorkloadExactTiesShareWorstTier(t *testing.T) {
	users := []models.User{
		{ID: "u1", Username: "marco", Name: "Marco", Role: models.RoleTeacher},
		{ID: "u2", Username: "lena", Name: "Lena", Role: models.RoleTeacher},
		{ID: "u3", Username: "yuri", Name: "Yuri", Role: models.RoleTeacher},
	}
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	lessons := []dto.LessonWithAvailability{
		lessonWithTeachers("l1", day, true, false, teacherRow("u3", "yuri", "Yuri", true, false)),
	}

	entries := computeWorkload(users, lessons)

	require.Len(t, entries, 3)
	assert.Equal(t, dto.TierWorst, entries[0].Tier)
	assert.Equal(t, dto.TierWorst, entries[1].Tier)
	assert.Equal(t, dto.TierSecond, entries[2].Tier)
	assert.Equal(t, "u3", entries[2].TeacherID)
}

func TestWorkloadBalanceIncludesZeroCountInstructors(t *testing.T) {
	calendar := &mockCalendarProvider{view: dto.CalendarResponse{}}
	users := &mockUserLister{users: []models.User{
		{ID: "u1", Username: "marco", Name: "Marco", Role: models.RoleTeacher},
	}}
	service := NewStatsService(calendar, users, nil, zap.NewNop())

	balance, err := service.WorkloadBalance(context.Background(), "org1", 2025, 3)
	require.NoError(t, err)
	require.Len(t, balance.Entries, 1)
	assert.Equal(t, 0, balance.Entries[0].Count)
	assert.Equal(t, dto.TierWorst, balance.Entries[0].Tier)
}
