package archive

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tomikjetu/vpwa26/internal/logger"
)

// Connect opens the archive database and runs migrations. The archive is an
// optional deployment feature; callers skip it entirely when no DSN is set.
func Connect(dsn string, log *logger.Logger) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect archive db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Infow("archive database ready")
	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS archived_messages (
            id SERIAL PRIMARY KEY,
            channel_id INT NOT NULL,
            message_id INT NOT NULL,
            member_id INT NOT NULL,
            nickname TEXT NOT NULL,
            content TEXT NOT NULL,
            files TEXT,
            sent_at TIMESTAMPTZ NOT NULL,
            archived_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(channel_id, message_id)
        );`,
		`CREATE TABLE IF NOT EXISTS session_events (
            id SERIAL PRIMARY KEY,
            topic TEXT NOT NULL,
            channel_id INT,
            detail TEXT,
            occurred_at TIMESTAMPTZ DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_archived_messages_channel
            ON archived_messages (channel_id, sent_at DESC);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}
