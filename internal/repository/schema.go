package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS teacher (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    birthday INTEGER
);

CREATE TABLE IF NOT EXISTS lesson (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    id_teacher INTEGER NOT NULL,
    name TEXT UNIQUE NOT NULL,
    short TEXT,
    FOREIGN KEY (id_teacher) REFERENCES teacher(id)
);

CREATE TABLE IF NOT EXISTS schedule (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    id_lesson INTEGER NOT NULL,
    id_classroom INTEGER NOT NULL,
    classroom TEXT NOT NULL,
    lesson_plan INTEGER NOT NULL,
    start INTEGER NOT NULL,
    "end" INTEGER NOT NULL,
    date TEXT NOT NULL,
    flag_combine BOOLEAN NOT NULL DEFAULT 0,
    FOREIGN KEY (id_lesson) REFERENCES lesson(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_schedule_natural
    ON schedule (id_lesson, id_classroom, lesson_plan, start, "end", date);
`

// EnsureSchema idempotently creates the three tables and the occurrence
// natural-key index. Safe to call on every process start.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	return err
}
