package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apnealab/dive-scheduler-api/internal/models"
)

func newLessonRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func lessonRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "organization_id", "date", "time", "pool", "classroom", "description", "created_by", "recurrence_id", "recurrence_label", "created_at", "updated_at"})
}

func TestLessonRepositoryListByOrganization(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := lessonRows().
		AddRow("l1", "org1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "18:00", true, false, "", "admin1", nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, organization_id, date, time, pool, classroom, description, created_by, recurrence_id, recurrence_label, created_at, updated_at FROM lessons WHERE organization_id = $1 ORDER BY date, time")).
		WithArgs("org1").
		WillReturnRows(rows)

	lessons, err := repo.List(context.Background(), models.LessonFilter{OrganizationID: "org1"})
	require.NoError(t, err)
	assert.Len(t, lessons, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryListWithRangeAndSeries(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM lessons WHERE organization_id = $1 AND date >= $2 AND date <= $3 AND recurrence_id = $4 ORDER BY date, time")).
		WithArgs("org1", from, to, "rec_abc").
		WillReturnRows(lessonRows())

	_, err := repo.List(context.Background(), models.LessonFilter{
		OrganizationID: "org1",
		From:           &from,
		To:             &to,
		RecurrenceID:   "rec_abc",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec("INSERT INTO lessons").
		WithArgs(sqlmock.AnyArg(), "org1", sqlmock.AnyArg(), "18:00", true, false, "", "admin1", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	lesson := &models.Lesson{
		OrganizationID: "org1",
		Date:           time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Time:           "18:00",
		Pool:           true,
		CreatedBy:      "admin1",
	}
	require.NoError(t, repo.Create(context.Background(), lesson))
	assert.NotEmpty(t, lesson.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryApplyUpdateBuildsPartialSet(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	rows := lessonRows().
		AddRow("l1", "org1", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), "19:30", true, false, "", "admin1", nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE lessons SET time = $1, updated_at = $2 WHERE id = $3 RETURNING")).
		WithArgs("19:30", sqlmock.AnyArg(), "l1").
		WillReturnRows(rows)

	newTime := "19:30"
	updated, err := repo.ApplyUpdate(context.Background(), "l1", models.LessonUpdate{Time: &newTime})
	require.NoError(t, err)
	assert.Equal(t, "19:30", updated.Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLessonRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newLessonRepoMock(t)
	defer cleanup()
	repo := NewLessonRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM lessons WHERE id = $1")).
		WithArgs("l1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Delete(context.Background(), "l1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
