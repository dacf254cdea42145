package dto

import "github.com/apnealab/dive-scheduler-api/internal/models"

// LessonWithAvailability is a lesson carrying its reconciled
// availability list for calendar rendering.
type LessonWithAvailability struct {
	models.Lesson
	Teachers []models.AvailabilityDetail `json:"teachers"`
}

// CalendarResponse maps "YYYY-MM-DD" date keys to the day's lessons,
// ordered by time. Multiple lessons per day are allowed.
type CalendarResponse map[string][]LessonWithAvailability
