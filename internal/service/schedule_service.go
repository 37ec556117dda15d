package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/EliasBlind/UniBot/internal/models"
	"github.com/EliasBlind/UniBot/internal/repository"
	appErrors "github.com/EliasBlind/UniBot/pkg/errors"
)

// The week query renders its boundary instants with a fixed UTC+7 offset.
// Inherited upstream behaviour, kept as-is.
var gmt7 = time.FixedZone("UTC+7", 7*60*60)

// ScheduleService is the storage facade over teachers, lesson definitions
// and scheduled occurrences. All multi-row writes for one sync batch run in
// a single transaction so readers only ever observe the prior or the new
// snapshot.
type ScheduleService struct {
	db       *sqlx.DB
	teachers *repository.TeacherRepository
	lessons  *repository.LessonRepository
	schedule *repository.ScheduleRepository
	logger   *zap.Logger
}

// ScheduleServiceParams groups constructor dependencies.
type ScheduleServiceParams struct {
	DB       *sqlx.DB
	Teachers *repository.TeacherRepository
	Lessons  *repository.LessonRepository
	Schedule *repository.ScheduleRepository
	Logger   *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(params ScheduleServiceParams) *ScheduleService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		db:       params.DB,
		teachers: params.Teachers,
		lessons:  params.Lessons,
		schedule: params.Schedule,
		logger:   logger,
	}
}

// ReplaceWeek transactionally deletes every stored occurrence and inserts
// the fresh batch, creating teachers and definitions on first sighting.
func (s *ScheduleService) ReplaceWeek(ctx context.Context, lessons []models.Lesson) error {
	return s.writeBatch(ctx, lessons, true)
}

// Reconcile appends the batch without deleting existing occurrences. Known
// subject titles keep their original definition even when the incoming
// teacher differs.
func (s *ScheduleService) Reconcile(ctx context.Context, lessons []models.Lesson) error {
	return s.writeBatch(ctx, lessons, false)
}

func (s *ScheduleService) writeBatch(ctx context.Context, lessons []models.Lesson, replace bool) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "begin sync batch")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if replace {
		if err = s.schedule.DeleteAll(ctx, tx); err != nil {
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "clear occurrences")
		}
	}

	for _, lesson := range lessons {
		if err = s.insertLesson(ctx, tx, lesson); err != nil {
			if errors.Is(err, appErrors.ErrIntegrity) {
				// One broken record must not sink the batch.
				s.logger.Warn("skipping occurrence", zap.String("subject", lesson.Subject), zap.Error(err))
				err = nil
				continue
			}
			return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "persist sync batch")
		}
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "commit sync batch")
	}
	return nil
}

func (s *ScheduleService) insertLesson(ctx context.Context, tx *sqlx.Tx, lesson models.Lesson) error {
	lessonID, err := s.lessons.IDByName(ctx, tx, lesson.Subject)
	if errors.Is(err, appErrors.ErrNotFound) {
		s.logger.Info("new subject sighted", zap.String("subject", lesson.Subject), zap.String("teacher", lesson.TeacherName))
		if err := s.teachers.Upsert(ctx, tx, lesson.TeacherName, lesson.TeacherBirthday); err != nil {
			return err
		}
		teacherID, err := s.teachers.IDByName(ctx, tx, lesson.TeacherName)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status,
				fmt.Sprintf("teacher %q missing after upsert", lesson.TeacherName))
		}
		if err := s.lessons.Create(ctx, tx, teacherID, lesson.Subject, lesson.SubjectShort); err != nil {
			return err
		}
		lessonID, err = s.lessons.IDByName(ctx, tx, lesson.Subject)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrIntegrity.Code, appErrors.ErrIntegrity.Status,
				fmt.Sprintf("definition %q missing after create", lesson.Subject))
		}
	} else if err != nil {
		return err
	}

	return s.schedule.Insert(ctx, tx, models.Occurrence{
		LessonID:    lessonID,
		ClassroomID: lesson.ClassroomID,
		Classroom:   lesson.Classroom,
		Plan:        lesson.Plan,
		Start:       lesson.Start,
		End:         lesson.End,
		Date:        lesson.Date,
		Combined:    lesson.Combined,
	})
}

// LessonsByDates returns the stored occurrences for the given dates grouped
// by date, each group ordered by start time. Query errors degrade to an
// empty result so the read path stays available.
func (s *ScheduleService) LessonsByDates(ctx context.Context, dates []string) map[string][]models.Lesson {
	byDate := make(map[string][]models.Lesson)
	if len(dates) == 0 {
		return byDate
	}

	rows, err := s.schedule.ListByDates(ctx, dates)
	if err != nil {
		s.logger.Error("lessons by dates query failed", zap.Strings("dates", dates), zap.Error(err))
		return map[string][]models.Lesson{}
	}

	for _, row := range rows {
		byDate[row.Date] = append(byDate[row.Date], row.Lesson())
	}
	return byDate
}

// Week returns the occurrences of at's Monday..Sunday week ordered by
// (date, start).
func (s *ScheduleService) Week(ctx context.Context, at time.Time) ([]models.ScheduleRow, error) {
	from, to := weekWindow(at)
	rows, err := s.schedule.ListRange(ctx, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "query week")
	}
	return rows, nil
}

// Remove deletes a single occurrence by id. Removing an absent id is a
// silent no-op.
func (s *ScheduleService) Remove(ctx context.Context, id int64) error {
	s.logger.Info("removing occurrence", zap.Int64("id", id))
	if err := s.schedule.DeleteByID(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "delete occurrence")
	}
	return nil
}

func weekWindow(at time.Time) (string, string) {
	daysSinceMonday := (int(at.Weekday()) + 6) % 7
	d := at.AddDate(0, 0, -daysSinceMonday)
	monday := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, at.Location())
	return monday.In(gmt7).Format("2006-01-02"), monday.AddDate(0, 0, 6).In(gmt7).Format("2006-01-02")
}

// Equivalent reports whether two lesson batches describe the same schedule.
// Both sides are sorted by (start, end, subject) first, so ordering does not
// matter; plan ordinal and dates are deliberately outside the comparison set.
func Equivalent(old, next []models.Lesson) bool {
	if len(old) != len(next) {
		return false
	}

	sortedOld := sortedForCompare(old)
	sortedNew := sortedForCompare(next)

	for i := range sortedOld {
		a, b := sortedOld[i], sortedNew[i]
		if a.Subject != b.Subject ||
			a.TeacherName != b.TeacherName ||
			a.Classroom != b.Classroom ||
			a.Start != b.Start ||
			a.End != b.End ||
			a.Combined != b.Combined {
			return false
		}
	}
	return true
}

func sortedForCompare(lessons []models.Lesson) []models.Lesson {
	out := make([]models.Lesson, len(lessons))
	copy(out, lessons)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		if out[i].End != out[j].End {
			return out[i].End < out[j].End
		}
		return out[i].Subject < out[j].Subject
	})
	return out
}
