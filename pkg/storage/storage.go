package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/audimetria/audimetria/pkg/ratings"
	_ "modernc.org/sqlite"
)

// DB is a local sqlite mirror of the dataset's daily records. It keeps a
// change log so figures revised between runs can be audited.
type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS daily_ratings (
  id            INTEGER PRIMARY KEY,
  date          TEXT NOT NULL,
  program       TEXT NOT NULL,
  viewers       INTEGER NOT NULL,
  share         REAL NOT NULL,
  first_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  last_seen_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(date, program)
);
CREATE INDEX IF NOT EXISTS idx_ratings_date ON daily_ratings(date);
CREATE TABLE IF NOT EXISTS rating_changes (
  id          INTEGER PRIMARY KEY,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  date        TEXT NOT NULL,
  program     TEXT NOT NULL,
  viewers     INTEGER NOT NULL,
  share       REAL NOT NULL,
  change_type TEXT NOT NULL CHECK (change_type IN ('added','updated'))
);
CREATE INDEX IF NOT EXISTS idx_changes_time ON rating_changes(occurred_at);
    `); err != nil {
		db.Close()
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// UpsertDailyRecords mirrors records in one transaction and returns what
// changed. Entries already present with identical figures are only touched.
func (d *DB) UpsertDailyRecords(ctx context.Context, records []ratings.DailyRecord) (changes []Change, err error) {
	now := time.Now().UTC()
	entries := BuildEntries(records)

	tx, err := d.sql.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := tx.QueryContext(ctx, "SELECT date, program, viewers, share FROM daily_ratings")
	if err != nil {
		return nil, err
	}
	existingMap := make(map[string]Entry)
	for rows.Next() {
		var e Entry
		if err = rows.Scan(&e.Date, &e.Program, &e.Viewers, &e.Share); err != nil {
			rows.Close()
			return nil, err
		}
		existingMap[identityKey(e.Date, e.Program)] = e
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}

	for _, e := range entries {
		key := identityKey(e.Date, e.Program)
		ex, existed := existingMap[key]

		var changeType string
		switch {
		case !existed:
			_, err = tx.ExecContext(ctx, `INSERT INTO daily_ratings(date, program, viewers, share) VALUES(?,?,?,?)`, e.Date, string(e.Program), e.Viewers, e.Share)
			changeType = "added"
		case ex.Viewers != e.Viewers || ex.Share != e.Share:
			_, err = tx.ExecContext(ctx, `UPDATE daily_ratings SET viewers = ?, share = ?, last_seen_at = CURRENT_TIMESTAMP WHERE date = ? AND program = ?`, e.Viewers, e.Share, e.Date, string(e.Program))
			changeType = "updated"
		default:
			_, err = tx.ExecContext(ctx, `UPDATE daily_ratings SET last_seen_at = CURRENT_TIMESTAMP WHERE date = ? AND program = ?`, e.Date, string(e.Program))
		}
		if err != nil {
			return nil, err
		}
		existingMap[key] = e

		if changeType == "" {
			continue
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO rating_changes(occurred_at, date, program, viewers, share, change_type) VALUES(CURRENT_TIMESTAMP, ?, ?, ?, ?, ?)`, e.Date, string(e.Program), e.Viewers, e.Share, changeType)
		if err != nil {
			return nil, err
		}
		changes = append(changes, Change{OccurredAt: now, Date: e.Date, Program: e.Program, Viewers: e.Viewers, Share: e.Share, ChangeType: changeType})
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return changes, nil
}

// ListDailyRecords rebuilds daily records from the mirror, newest first.
// A limit <= 0 returns every day.
func (d *DB) ListDailyRecords(ctx context.Context, limit int) ([]ratings.DailyRecord, error) {
	q := "SELECT date, program, viewers, share FROM daily_ratings WHERE date IN (SELECT DISTINCT date FROM daily_ratings ORDER BY date DESC LIMIT ?) ORDER BY date DESC, program"
	if limit <= 0 {
		limit = -1
	}
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ratings.DailyRecord
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Date, &e.Program, &e.Viewers, &e.Share); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].Date != e.Date {
			out = append(out, ratings.DailyRecord{Date: e.Date})
		}
		out[len(out)-1].SetProgram(e.Program, ratings.Figures{Viewers: e.Viewers, Share: e.Share})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListRecentChanges returns the most recent N changes.
func (d *DB) ListRecentChanges(ctx context.Context, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT occurred_at, date, program, viewers, share, change_type FROM rating_changes ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		var occurredAt string
		if err := rows.Scan(&occurredAt, &c.Date, &c.Program, &c.Viewers, &c.Share, &c.ChangeType); err != nil {
			return nil, err
		}
		// SQLite CURRENT_TIMESTAMP format, or RFC3339 when the driver hands back a time.
		if t, perr := time.Parse("2006-01-02 15:04:05", occurredAt); perr == nil {
			c.OccurredAt = t
		} else if t2, perr2 := time.Parse(time.RFC3339, occurredAt); perr2 == nil {
			c.OccurredAt = t2
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return changes, nil
}

func identityKey(date string, program ratings.ProgramKey) string {
	return date + "|" + string(program)
}
