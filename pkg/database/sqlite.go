package database

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/EliasBlind/UniBot/pkg/config"
)

// NewSQLite returns a configured embedded sqlite client, creating the
// storage directory when it does not exist yet.
func NewSQLite(cfg config.StorageConfig) (*sqlx.DB, error) {
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir %s: %w", cfg.Path, err)
	}

	busyMillis := cfg.BusyTimeout.Milliseconds()
	if busyMillis <= 0 {
		busyMillis = 5000
	}

	dsn := fmt.Sprintf("file:%s?%s",
		filepath.Join(cfg.Path, cfg.Name),
		url.Values{
			"_pragma": []string{
				"foreign_keys(1)",
				fmt.Sprintf("busy_timeout(%d)", busyMillis),
				"journal_mode(wal)",
			},
		}.Encode(),
	)

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// Single connection: sqlite allows one writer, and the replace
	// transaction must never span connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
