// Package archive caches fetched unlock events in a local sqlite database
// so a retrain can reuse rows for players already fetched instead of
// re-hitting the API.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver

	"github.com/okian/cheevo/internal/domain/sequence"
	"github.com/okian/cheevo/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS unlock_event (
	steam_id     TEXT NOT NULL,
	appid        TEXT NOT NULL,
	api_name     TEXT NOT NULL,
	unlock_time  INTEGER NOT NULL,
	retrieved_at TIMESTAMP NOT NULL,
	PRIMARY KEY (steam_id, appid, api_name)
);
CREATE TABLE IF NOT EXISTS player_fetch (
	steam_id     TEXT NOT NULL,
	appid        TEXT NOT NULL,
	retrieved_at TIMESTAMP NOT NULL,
	PRIMARY KEY (steam_id, appid)
);
`

// Archive stores unlock events in sqlite.
type Archive struct {
	db *sqlx.DB
}

// unlockRow maps the unlock_event table.
type unlockRow struct {
	SteamID    string    `db:"steam_id"`
	AppID      string    `db:"appid"`
	APIName    string    `db:"api_name"`
	UnlockTime int64     `db:"unlock_time"`
	Retrieved  time.Time `db:"retrieved_at"`
}

// Open connects to (or creates) the archive database at path.
func Open(path string) (*Archive, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize archive schema: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close releases the underlying database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// PutUnlocks records a player's earned unlocks. The fetch itself is marked
// even when the player has zero earned unlocks, so a retrain does not
// re-fetch them. Rows already present are left untouched, so re-fetching a
// player is idempotent.
func (a *Archive) PutUnlocks(ctx context.Context, steamID, appID string, unlocks []sequence.Unlock) error {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive tx: %w", err)
	}

	now := time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO player_fetch (steam_id, appid, retrieved_at)
		VALUES (?, ?, ?)`,
		steamID, appID, now); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archive fetch marker: %w", err)
	}

	stored := 0
	for _, u := range unlocks {
		if u.UnlockTime == 0 {
			continue // not earned yet; nothing to archive
		}
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO unlock_event (steam_id, appid, api_name, unlock_time, retrieved_at)
			VALUES (?, ?, ?, ?, ?)`,
			steamID, appID, u.APIName, u.UnlockTime, now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("archive unlock: %w", err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive tx: %w", err)
	}

	metrics.RecordArchivedUnlocks(stored)
	return nil
}

// GetUnlocks returns a player's archived unlocks for a game, empty when the
// player was never fetched.
func (a *Archive) GetUnlocks(ctx context.Context, steamID, appID string) ([]sequence.Unlock, error) {
	var rows []unlockRow
	err := a.db.SelectContext(ctx, &rows, `
		SELECT steam_id, appid, api_name, unlock_time, retrieved_at
		FROM unlock_event
		WHERE steam_id = ? AND appid = ?
		ORDER BY unlock_time, api_name`,
		steamID, appID)
	if err != nil {
		return nil, fmt.Errorf("query archive: %w", err)
	}

	out := make([]sequence.Unlock, 0, len(rows))
	for _, r := range rows {
		out = append(out, sequence.Unlock{APIName: r.APIName, UnlockTime: r.UnlockTime})
	}
	return out, nil
}

// HasPlayer reports whether the player+game was fetched before, including
// fetches that yielded zero earned unlocks.
func (a *Archive) HasPlayer(ctx context.Context, steamID, appID string) (bool, error) {
	var count int
	err := a.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM player_fetch WHERE steam_id = ? AND appid = ?`,
		steamID, appID)
	if err != nil {
		return false, fmt.Errorf("query archive: %w", err)
	}
	return count > 0, nil
}
