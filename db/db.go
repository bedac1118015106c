package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens (or creates) the sqlite database at the given path.
func Open(path string) (*sql.DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite does not tolerate concurrent writers on one file.
	d.SetMaxOpenConns(1)
	if err := d.Ping(); err != nil {
		d.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return d, nil
}

// RunMigrations creates the schema if it does not exist yet.
func RunMigrations(d *sql.DB) error {
	_, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS game_results (
			id               TEXT PRIMARY KEY,
			room_id          TEXT NOT NULL,
			winner           TEXT NOT NULL,
			rounds           INTEGER NOT NULL,
			player_count     INTEGER NOT NULL,
			leaderboard_json TEXT NOT NULL,
			words_json       TEXT NOT NULL,
			created_at       TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create game_results: %w", err)
	}
	return nil
}
