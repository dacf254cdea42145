package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/apnealab/dive-scheduler-api/internal/dto"
	"github.com/apnealab/dive-scheduler-api/internal/models"
	appErrors "github.com/apnealab/dive-scheduler-api/pkg/errors"
)

type calendarViewProvider interface {
	Calendar(ctx context.Context, orgID string, from, to *time.Time) (dto.CalendarResponse, error)
}

type statsUserLister interface {
	ListByOrganization(ctx context.Context, orgID string) ([]models.User, error)
}

// StatsService derives monthly summaries, coverage and workload balance
// from the calendar view. All derivations are computed fresh from the
// current snapshot; results are optionally cached.
type StatsService struct {
	calendar calendarViewProvider
	users    statsUserLister
	cache    *CacheService
	logger   *zap.Logger
}

// NewStatsService constructs a StatsService.
func NewStatsService(calendar calendarViewProvider, users statsUserLister, cache *CacheService, logger *zap.Logger) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{calendar: calendar, users: users, cache: cache, logger: logger}
}

// MonthlySummary aggregates the organization's lessons for a calendar month.
func (s *StatsService) MonthlySummary(ctx context.Context, orgID string, year, month int) (*dto.MonthlySummary, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:%s:summary:%04d-%02d", orgID, year, month)
	var cached dto.MonthlySummary
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	lessons, err := s.monthLessons(ctx, orgID, year, month)
	if err != nil {
		return nil, err
	}

	summary := computeSummary(year, month, lessons)
	if err := s.cache.Set(ctx, cacheKey, summary, 0); err != nil {
		s.logger.Warn("summary cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return &summary, nil
}

// WorkloadBalance ranks every instructor of the organization, including
// those with zero availabilities, ascending by how much availability
// they gave in the month.
func (s *StatsService) WorkloadBalance(ctx context.Context, orgID string, year, month int) (*dto.WorkloadBalance, error) {
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("stats:%s:workload:%04d-%02d", orgID, year, month)
	var cached dto.WorkloadBalance
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	users, err := s.users.ListByOrganization(ctx, orgID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}

	lessons, err := s.monthLessons(ctx, orgID, year, month)
	if err != nil {
		return nil, err
	}

	balance := dto.WorkloadBalance{Year: year, Month: month, Entries: computeWorkload(users, lessons)}
	if err := s.cache.Set(ctx, cacheKey, balance, 0); err != nil {
		s.logger.Warn("workload cache write failed", zap.String("key", cacheKey), zap.Error(err))
	}
	return &balance, nil
}

func (s *StatsService) monthLessons(ctx context.Context, orgID string, year, month int) ([]dto.LessonWithAvailability, error) {
	from, to := monthRange(year, month)
	view, err := s.calendar.Calendar(ctx, orgID, &from, &to)
	if err != nil {
		return nil, err
	}

	var lessons []dto.LessonWithAvailability
	for _, day := range view {
		lessons = append(lessons, day...)
	}
	return lessons, nil
}

// monthRange returns the first and last day of a calendar month.
// Month boundaries use the date's own year/month fields, never a
// rolling window.
func monthRange(year, month int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)
	return from, to
}

func validatePeriod(year, month int) error {
	if year < 1 || month < 1 || month > 12 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid year or month")
	}
	return nil
}

// computeSummary derives the monthly totals. A lesson is covered iff
// its availability list is non-empty; a row with both dimensions false
// still covers. Lessons with neither flag set are excluded from the
// type breakdown but count toward the total.
func computeSummary(year, month int, lessons []dto.LessonWithAvailability) dto.MonthlySummary {
	summary := dto.MonthlySummary{Year: year, Month: month, Instructors: []dto.InstructorStat{}}

	stats := make(map[string]*dto.InstructorStat)
	for _, lesson := range lessons {
		summary.TotalLessons++
		summary.TotalAvailabilities += len(lesson.Teachers)
		if len(lesson.Teachers) > 0 {
			summary.CoveredLessons++
		}

		switch {
		case lesson.Pool && lesson.Classroom:
			summary.Both++
		case lesson.Pool:
			summary.PoolOnly++
		case lesson.Classroom:
			summary.ClassroomOnly++
		}

		for _, teacher := range lesson.Teachers {
			stat, ok := stats[teacher.TeacherID]
			if !ok {
				stat = &dto.InstructorStat{
					TeacherID: teacher.TeacherID,
					Username:  teacher.TeacherUsername,
					Name:      teacher.TeacherName,
				}
				stats[teacher.TeacherID] = stat
			}
			stat.Total++
			if teacher.Pool {
				stat.Pool++
			}
			if teacher.Classroom {
				stat.Classroom++
			}
		}
	}

	if summary.TotalLessons > 0 {
		summary.CoveragePercent = float64(summary.CoveredLessons) / float64(summary.TotalLessons) * 100
	}

	for _, stat := range stats {
		summary.Instructors = append(summary.Instructors, *stat)
	}
	sort.Slice(summary.Instructors, func(i, j int) bool {
		if summary.Instructors[i].Total != summary.Instructors[j].Total {
			return summary.Instructors[i].Total > summary.Instructors[j].Total
		}
		return summary.Instructors[i].Name < summary.Instructors[j].Name
	})

	return summary
}

// computeWorkload ranks instructors ascending by availability count.
// Ties break on the last availability date: instructors with no
// availability at all sort first, then older dates before newer ones.
// The bottom tier (exact ties only) is flagged worst, the next
// distinct tier second.
func computeWorkload(users []models.User, lessons []dto.LessonWithAvailability) []dto.WorkloadEntry {
	entries := make([]dto.WorkloadEntry, 0, len(users))
	index := make(map[string]*dto.WorkloadEntry)
	for _, user := range users {
		if user.Role != models.RoleTeacher {
			continue
		}
		entries = append(entries, dto.WorkloadEntry{TeacherID: user.ID, Username: user.Username, Name: user.Name})
	}
	for i := range entries {
		index[entries[i].TeacherID] = &entries[i]
	}

	for _, lesson := range lessons {
		for _, teacher := range lesson.Teachers {
			entry, ok := index[teacher.TeacherID]
			if !ok {
				continue
			}
			entry.Count++
			if entry.LastAvailability == nil || lesson.Date.After(*entry.LastAvailability) {
				date := lesson.Date
				entry.LastAvailability = &date
			}
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return workloadLess(entries[i], entries[j])
	})

	flagTiers(entries)
	return entries
}

func workloadLess(a, b dto.WorkloadEntry) bool {
	if a.Count != b.Count {
		return a.Count < b.Count
	}
	if a.LastAvailability == nil && b.LastAvailability == nil {
		return false
	}
	if a.LastAvailability == nil {
		return true
	}
	if b.LastAvailability == nil {
		return false
	}
	return a.LastAvailability.Before(*b.LastAvailability)
}

func workloadEqual(a, b dto.WorkloadEntry) bool {
	if a.Count != b.Count {
		return false
	}
	if a.LastAvailability == nil || b.LastAvailability == nil {
		return a.LastAvailability == nil && b.LastAvailability == nil
	}
	return a.LastAvailability.Equal(*b.LastAvailability)
}

func flagTiers(entries []dto.WorkloadEntry) {
	if len(entries) == 0 {
		return
	}

	worst := entries[0]
	next := -1
	for i := range entries {
		if workloadEqual(entries[i], worst) {
			entries[i].Tier = dto.TierWorst
		} else if next == -1 {
			next = i
			break
		}
	}
	if next == -1 {
		return
	}

	second := entries[next]
	for i := next; i < len(entries); i++ {
		if workloadEqual(entries[i], second) {
			entries[i].Tier = dto.TierSecond
		} else {
			break
		}
	}
}
