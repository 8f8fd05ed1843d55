// Package cache persists favorite snapshots in a local SQLite database so
// lists render without a network round trip. The cache mirrors server
// truth: it is replaced wholesale after each authoritative refresh and is
// never consulted when deciding a toggle.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/collabiora/companion/internal/types"
)

const dbFileName = "favorites.db"

// Open opens (creating if needed) the snapshot database under stateDir.
func Open(stateDir string) (*sql.DB, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite", filepath.Join(stateDir, dbFileName))
	if err != nil {
		return nil, err
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	if err := initSchema(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func initSchema(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS favorite_snapshots (
			user_id  TEXT NOT NULL,
			kind     TEXT NOT NULL,
			identity TEXT NOT NULL,
			payload  TEXT NOT NULL,
			saved_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, kind, identity)
		)
	`)
	return err
}

// ReplaceAll swaps the cached snapshot for userID with entries, in one
// transaction so readers never observe a half-applied refresh.
func ReplaceAll(conn *sql.DB, userID string, entries []types.FavoriteEntry) error {
	tx, err := conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM favorite_snapshots WHERE user_id = ?`, userID); err != nil {
		return err
	}
	for _, entry := range entries {
		payload, err := json.Marshal(entry.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for %s/%s: %w", entry.Kind, entry.Identity, err)
		}
		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO favorite_snapshots (user_id, kind, identity, payload, saved_at)
			VALUES (?, ?, ?, ?, ?)
		`, userID, string(entry.Kind), entry.Identity, string(payload), entry.SavedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// List returns cached favorites for userID, newest first, optionally
// filtered by kind.
func List(conn *sql.DB, userID string, kind types.FavoriteKind) ([]types.FavoriteEntry, error) {
	query := `
		SELECT kind, identity, payload, saved_at
		FROM favorite_snapshots
		WHERE user_id = ?
	`
	params := []any{userID}
	if kind != "" {
		query += " AND kind = ?"
		params = append(params, string(kind))
	}
	query += " ORDER BY saved_at DESC"

	rows, err := conn.Query(query, params...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.FavoriteEntry
	for rows.Next() {
		var entry types.FavoriteEntry
		var kindStr, payload string
		if err := rows.Scan(&kindStr, &entry.Identity, &payload, &entry.SavedAt); err != nil {
			return nil, err
		}
		entry.Kind = types.FavoriteKind(kindStr)
		if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for %s/%s: %w", kindStr, entry.Identity, err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
