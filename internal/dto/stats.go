package dto

import "time"

// Workload tier flags for the balance view.
const (
	TierWorst  = "worst"
	TierSecond = "second"
)

// InstructorStat aggregates one instructor's declared availability for
// a period. Total counts distinct lessons; Pool and Classroom count
// rows with the respective dimension set.
type InstructorStat struct {
	TeacherID string `json:"teacher_id"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	Total     int    `json:"total"`
	Pool      int    `json:"pool"`
	Classroom int    `json:"classroom"`
}

// MonthlySummary is the aggregate view for a calendar month.
type MonthlySummary struct {
	Year                int              `json:"year"`
	Month               int              `json:"month"`
	TotalLessons        int              `json:"total_lessons"`
	TotalAvailabilities int              `json:"total_availabilities"`
	CoveredLessons      int              `json:"covered_lessons"`
	CoveragePercent     float64          `json:"coverage_percent"`
	PoolOnly            int              `json:"pool_only"`
	ClassroomOnly       int              `json:"classroom_only"`
	Both                int              `json:"both"`
	Instructors         []InstructorStat `json:"instructors"`
}

// WorkloadEntry ranks one instructor in the balance view. Entries are
// ordered ascending by count, ties broken by oldest last availability,
// instructors with no availability at all first.
type WorkloadEntry struct {
	TeacherID        string     `json:"teacher_id"`
	Username         string     `json:"username"`
	Name             string     `json:"name"`
	Count            int        `json:"count"`
	LastAvailability *time.Time `json:"last_availability,omitempty"`
	Tier             string     `json:"tier,omitempty"`
}

// WorkloadBalance is the admin view of who gave least availability.
type WorkloadBalance struct {
	Year    int             `json:"year"`
	Month   int             `json:"month"`
	Entries []WorkloadEntry `json:"entries"`
}

// ExportResult describes a rendered report and its signed download token.
type ExportResult struct {
	FileName  string    `json:"file_name"`
	Format    string    `json:"format"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
