package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/EliasBlind/UniBot/internal/models"
)

// ScheduleRepository provides persistence for scheduled occurrences.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// DeleteAll removes every occurrence. Used by the full-replace sync, always
// inside the surrounding transaction.
func (r *ScheduleRepository) DeleteAll(ctx context.Context, exec sqlx.ExtContext) error {
	if exec == nil {
		exec = r.db
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM schedule`); err != nil {
		return fmt.Errorf("delete occurrences: %w", err)
	}
	return nil
}

// Insert stores an occurrence, silently ignoring a duplicate of the natural
// key (lesson, classroom, plan, start, end, date). Re-inserting the same
// batch is therefore idempotent.
func (r *ScheduleRepository) Insert(ctx context.Context, exec sqlx.ExtContext, occ models.Occurrence) error {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT OR IGNORE INTO schedule
        (id_lesson, id_classroom, classroom, lesson_plan, start, "end", date, flag_combine)
        VALUES (:id_lesson, :id_classroom, :classroom, :lesson_plan, :start, :end, :date, :flag_combine)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, occ); err != nil {
		return fmt.Errorf("insert occurrence for lesson %d on %s: %w", occ.LessonID, occ.Date, err)
	}
	return nil
}

// ListByDates returns occurrences joined with definition and teacher for the
// given dates, ordered by (date, start).
func (r *ScheduleRepository) ListByDates(ctx context.Context, dates []string) ([]models.DayRow, error) {
	query, args, err := sqlx.In(`
        SELECT
            l.name AS lesson_name,
            l.short AS lesson_name_short,
            s.id_classroom,
            s.classroom,
            s.lesson_plan,
            s.start,
            s."end" AS "end",
            s.date,
            s.flag_combine,
            t.name AS teacher_name,
            t.birthday AS teacher_birthday
        FROM schedule s
        JOIN lesson l ON s.id_lesson = l.id
        JOIN teacher t ON t.id = l.id_teacher
        WHERE s.date IN (?)
        ORDER BY s.date, s.start`, dates)
	if err != nil {
		return nil, fmt.Errorf("build dates query: %w", err)
	}

	var rows []models.DayRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list occurrences by dates: %w", err)
	}
	return rows, nil
}

// ListRange returns occurrences joined with their definition whose date
// falls inside [from, to], ordered by (date, start).
func (r *ScheduleRepository) ListRange(ctx context.Context, from, to string) ([]models.ScheduleRow, error) {
	const query = `
        SELECT
            s.id,
            l.name AS lesson_name,
            s.id_classroom,
            s.classroom,
            s.lesson_plan,
            s.start,
            s."end" AS "end",
            s.date,
            s.flag_combine
        FROM schedule s
        JOIN lesson l ON s.id_lesson = l.id
        WHERE s.date BETWEEN ? AND ?
        ORDER BY s.date, s.start`

	var rows []models.ScheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, from, to); err != nil {
		return nil, fmt.Errorf("list occurrences in range: %w", err)
	}
	return rows, nil
}

// DeleteByID removes a single occurrence. Deleting an absent id is a no-op.
func (r *ScheduleRepository) DeleteByID(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedule WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete occurrence %d: %w", id, err)
	}
	return nil
}
