package models

import "time"

// SeriesFailure records a single failed per-lesson step during a bulk
// series operation.
type SeriesFailure struct {
	Date     time.Time `json:"date"`
	LessonID string    `json:"lesson_id,omitempty"`
	Reason   string    `json:"reason"`
}

// PartialSeriesError is returned when one or more per-lesson steps of a
// series operation fail while others succeed. Completed steps are not
// rolled back; callers must re-fetch authoritative state.
type PartialSeriesError struct {
	Op           string          `json:"op"`
	RecurrenceID string          `json:"recurrence_id,omitempty"`
	Lessons      []Lesson        `json:"lessons"`
	Failures     []SeriesFailure `json:"failures"`
}

// Error implements the error interface.
func (e *PartialSeriesError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return "series " + e.Op + " partially failed"
}
