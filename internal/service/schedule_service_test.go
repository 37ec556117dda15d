package service

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/EliasBlind/UniBot/internal/models"
	"github.com/EliasBlind/UniBot/internal/repository"
)

func newStore(t *testing.T) *ScheduleService {
	t.Helper()
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, repository.EnsureSchema(context.Background(), db))

	return NewScheduleService(ScheduleServiceParams{
		DB:       db,
		Teachers: repository.NewTeacherRepository(db),
		Lessons:  repository.NewLessonRepository(db),
		Schedule: repository.NewScheduleRepository(db),
	})
}

func lesson(subject, teacher, date string, plan, start, end int) models.Lesson {
	return models.Lesson{
		Date:        date,
		Plan:        plan,
		ClassroomID: 1,
		Classroom:   "101",
		Start:       start,
		End:         end,
		TeacherName: teacher,
		Subject:     subject,
	}
}

func TestReplaceWeekThenWeekQuery(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	// Monday 2024-01-15 .. Sunday 2024-01-21, reference instant mid-week.
	at := time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)
	batch := []models.Lesson{
		lesson("Physics", "Petrov B. V.", "2024-01-16", 1, 540, 630),
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 2, 700, 790),
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630),
	}

	require.NoError(t, store.ReplaceWeek(ctx, batch))

	rows, err := store.Week(ctx, at)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "2024-01-15", rows[0].Date)
	assert.Equal(t, 540, rows[0].Start)
	assert.Equal(t, "2024-01-15", rows[1].Date)
	assert.Equal(t, 700, rows[1].Start)
	assert.Equal(t, "2024-01-16", rows[2].Date)
	assert.Equal(t, "Mathematics", rows[0].LessonName)

	// Replaying the same batch is idempotent.
	require.NoError(t, store.ReplaceWeek(ctx, batch))
	rows, err = store.Week(ctx, at)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestReplaceWeekDropsPreviousOccurrences(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.ReplaceWeek(ctx, []models.Lesson{
		lesson("Physics", "Petrov B. V.", "2024-01-16", 1, 540, 630),
	}))
	require.NoError(t, store.ReplaceWeek(ctx, []models.Lesson{
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630),
	}))

	rows, err := store.Week(ctx, at)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Mathematics", rows[0].LessonName)
}

func TestReconcileKeepsExistingDefinition(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Reconcile(ctx, []models.Lesson{
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630),
	}))
	// Same subject reassigned upstream to a different teacher: the stored
	// definition keeps its original owner.
	require.NoError(t, store.Reconcile(ctx, []models.Lesson{
		lesson("Mathematics", "Petrov B. V.", "2024-01-16", 1, 540, 630),
	}))

	byDate := store.LessonsByDates(ctx, []string{"2024-01-15", "2024-01-16"})
	require.Len(t, byDate, 2)
	assert.Equal(t, "Ivanova A. P.", byDate["2024-01-15"][0].TeacherName)
	assert.Equal(t, "Ivanova A. P.", byDate["2024-01-16"][0].TeacherName)
}

func TestReconcileDoesNotDuplicateDefinitions(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Reconcile(ctx, []models.Lesson{
			lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630),
		}))
	}

	var count int
	require.NoError(t, store.db.Get(&count, `SELECT COUNT(*) FROM lesson`))
	assert.Equal(t, 1, count)
	require.NoError(t, store.db.Get(&count, `SELECT COUNT(*) FROM teacher`))
	assert.Equal(t, 1, count)
}

func TestLessonsByDatesReturnsOnlyRequestedKeys(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Reconcile(ctx, []models.Lesson{
		lesson("Mathematics", "Ivanova A. P.", "2024-01-14", 1, 540, 630),
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 2, 700, 790),
		lesson("Physics", "Petrov B. V.", "2024-01-15", 1, 540, 630),
		lesson("Physics", "Petrov B. V.", "2024-01-16", 1, 540, 630),
	}))

	byDate := store.LessonsByDates(ctx, []string{"2024-01-15", "2024-01-16"})
	require.Len(t, byDate, 2)
	require.Len(t, byDate["2024-01-15"], 2)
	require.Len(t, byDate["2024-01-16"], 1)

	// Each day sorted by start time.
	assert.Equal(t, 540, byDate["2024-01-15"][0].Start)
	assert.Equal(t, 700, byDate["2024-01-15"][1].Start)
	assert.Equal(t, "Physics", byDate["2024-01-15"][0].Subject)
}

func TestLessonsByDatesEmptyInput(t *testing.T) {
	store := newStore(t)
	assert.Empty(t, store.LessonsByDates(context.Background(), nil))
}

func TestLessonsByDatesDegradesToEmptyOnQueryError(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	store := NewScheduleService(ScheduleServiceParams{
		DB:       db,
		Teachers: repository.NewTeacherRepository(db),
		Lessons:  repository.NewLessonRepository(db),
		Schedule: repository.NewScheduleRepository(db),
	})

	byDate := store.LessonsByDates(context.Background(), []string{"2024-01-15"})
	assert.Empty(t, byDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteBatchSkipsBrokenRecordAndCommits(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mockDB.Close()
	db := sqlx.NewDb(mockDB, "sqlmock")

	// First lesson: unknown subject whose teacher row vanishes between the
	// upsert and the id lookup, so the cascade hits an integrity error.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM lesson WHERE name").
		WithArgs("Chemistry").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT OR IGNORE INTO teacher").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id FROM teacher WHERE name").
		WithArgs("Sidorova N. N.").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	// Second lesson: known subject, inserted normally, batch still commits.
	mock.ExpectQuery("SELECT id FROM lesson WHERE name").
		WithArgs("Mathematics").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectExec("INSERT OR IGNORE INTO schedule").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	store := NewScheduleService(ScheduleServiceParams{
		DB:       db,
		Teachers: repository.NewTeacherRepository(db),
		Lessons:  repository.NewLessonRepository(db),
		Schedule: repository.NewScheduleRepository(db),
	})

	err = store.Reconcile(context.Background(), []models.Lesson{
		lesson("Chemistry", "Sidorova N. N.", "2024-01-15", 1, 540, 630),
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 2, 700, 790),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Reconcile(ctx, []models.Lesson{
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630),
	}))

	rows, err := store.Week(ctx, at)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	require.NoError(t, store.Remove(ctx, rows[0].ID))
	require.NoError(t, store.Remove(ctx, rows[0].ID))

	rows, err = store.Week(ctx, at)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestWeekWindowExcludesNeighbouringWeeks(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	at := time.Date(2024, time.January, 17, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Reconcile(ctx, []models.Lesson{
		lesson("Mathematics", "Ivanova A. P.", "2024-01-14", 1, 540, 630), // prior sunday
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630),
		lesson("Mathematics", "Ivanova A. P.", "2024-01-21", 1, 540, 630),
		lesson("Mathematics", "Ivanova A. P.", "2024-01-22", 1, 540, 630), // next monday
	}))

	rows, err := store.Week(ctx, at)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-15", rows[0].Date)
	assert.Equal(t, "2024-01-21", rows[1].Date)
}

func TestEquivalentIgnoresOrder(t *testing.T) {
	a := []models.Lesson{
		lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630),
		lesson("Physics", "Petrov B. V.", "2024-01-16", 1, 700, 790),
	}
	b := []models.Lesson{a[1], a[0]}

	assert.True(t, Equivalent(a, b))
	assert.True(t, Equivalent(nil, nil))
}

func TestEquivalentDetectsDifferences(t *testing.T) {
	base := []models.Lesson{lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630)}

	mutations := map[string]func(models.Lesson) models.Lesson{
		"subject":   func(l models.Lesson) models.Lesson { l.Subject = "Physics"; return l },
		"teacher":   func(l models.Lesson) models.Lesson { l.TeacherName = "Petrov B. V."; return l },
		"classroom": func(l models.Lesson) models.Lesson { l.Classroom = "999"; return l },
		"start":     func(l models.Lesson) models.Lesson { l.Start = 541; return l },
		"end":       func(l models.Lesson) models.Lesson { l.End = 631; return l },
		"combined":  func(l models.Lesson) models.Lesson { l.Combined = true; return l },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.False(t, Equivalent(base, []models.Lesson{mutate(base[0])}))
		})
	}
}

func TestEquivalentLengthMismatch(t *testing.T) {
	a := []models.Lesson{lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630)}
	assert.False(t, Equivalent(a, nil))
	assert.False(t, Equivalent(nil, a))
}

func TestEquivalentIgnoresDateAndPlan(t *testing.T) {
	a := []models.Lesson{lesson("Mathematics", "Ivanova A. P.", "2024-01-15", 1, 540, 630)}
	b := []models.Lesson{lesson("Mathematics", "Ivanova A. P.", "2024-01-16", 5, 540, 630)}
	assert.True(t, Equivalent(a, b))
}
