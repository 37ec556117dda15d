package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/EliasBlind/UniBot/pkg/errors"
)

// LessonRepository provides persistence for lesson definitions. Identity is
// the subject title; the owning teacher is fixed at creation and a later
// occurrence with a different teacher does not retarget the definition.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson definition repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// Create stores a new definition owned by an existing teacher.
func (r *LessonRepository) Create(ctx context.Context, exec sqlx.ExtContext, teacherID int64, name string, short *string) error {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT OR IGNORE INTO lesson (id_teacher, name, short) VALUES (?, ?, ?)`
	if _, err := exec.ExecContext(ctx, query, teacherID, name, short); err != nil {
		return fmt.Errorf("create lesson %q: %w", name, err)
	}
	return nil
}

// IDByName resolves a definition id by subject title. A missing row is a
// not-found condition, not a generic storage error.
func (r *LessonRepository) IDByName(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	if exec == nil {
		exec = r.db
	}
	var id int64
	if err := sqlx.GetContext(ctx, exec, &id, `SELECT id FROM lesson WHERE name = ?`, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("lesson %q not found", name))
		}
		return 0, fmt.Errorf("find lesson %q: %w", name, err)
	}
	return id, nil
}

// Names returns all known subject titles.
func (r *LessonRepository) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.SelectContext(ctx, &names, `SELECT name FROM lesson`); err != nil {
		return nil, fmt.Errorf("list lesson names: %w", err)
	}
	return names, nil
}
