package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TeacherRepository provides persistence for teachers. Identity is the full
// name; rows are created on first sighting and never updated.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new teacher repository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// Upsert inserts the teacher unless a row with the same name exists.
// Conflicts are ignored so concurrent writers cannot create duplicates.
func (r *TeacherRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, name string, birthday *int64) error {
	if exec == nil {
		exec = r.db
	}
	const query = `INSERT OR IGNORE INTO teacher (name, birthday) VALUES (?, ?)`
	if _, err := exec.ExecContext(ctx, query, name, birthday); err != nil {
		return fmt.Errorf("upsert teacher %q: %w", name, err)
	}
	return nil
}

// IDByName resolves a teacher id by full name.
func (r *TeacherRepository) IDByName(ctx context.Context, exec sqlx.ExtContext, name string) (int64, error) {
	if exec == nil {
		exec = r.db
	}
	var id int64
	if err := sqlx.GetContext(ctx, exec, &id, `SELECT id FROM teacher WHERE name = ?`, name); err != nil {
		return 0, err
	}
	return id, nil
}

// Names returns all known teacher names.
func (r *TeacherRepository) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.db.SelectContext(ctx, &names, `SELECT name FROM teacher`); err != nil {
		return nil, fmt.Errorf("list teacher names: %w", err)
	}
	return names, nil
}
