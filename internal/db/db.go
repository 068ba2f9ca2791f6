package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INT PRIMARY KEY,
            username TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS event_participations (
            user_id INT NOT NULL,
            event_id TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(user_id, event_id)
        );`,
		`CREATE TABLE IF NOT EXISTS event_groups (
            id SERIAL PRIMARY KEY,
            event_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT NOT NULL,
            max_capacity INT NOT NULL,
            creator_id INT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(creator_id, event_id)
        );`,
		`CREATE TABLE IF NOT EXISTS group_members (
            group_id INT NOT NULL REFERENCES event_groups(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            position INT NOT NULL,
            joined_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(group_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS group_bans (
            group_id INT NOT NULL REFERENCES event_groups(id) ON DELETE CASCADE,
            user_id INT NOT NULL,
            banned_at TIMESTAMPTZ DEFAULT NOW(),
            PRIMARY KEY(group_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS group_messages (
            id SERIAL PRIMARY KEY,
            group_id INT NOT NULL REFERENCES event_groups(id) ON DELETE CASCADE,
            seq INT NOT NULL,
            sender_id INT NOT NULL,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ DEFAULT NOW(),
            UNIQUE(group_id, seq)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_event_groups_event ON event_groups(event_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_group_messages_group ON group_messages(group_id, seq);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
