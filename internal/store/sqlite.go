package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite stores records in a local sqlite database file.
type SQLite struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db}, nil
}

var _ Store = (*SQLite)(nil)

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Migrate(ctx context.Context) error {
	stmt := `
CREATE TABLE IF NOT EXISTS outreach_records (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	contact_id TEXT NOT NULL,
	contact_name TEXT NOT NULL,
	initial_message TEXT NOT NULL,
	sent_at DATETIME NOT NULL,
	followed_up INTEGER NOT NULL DEFAULT 0,
	follow_up_message TEXT NOT NULL DEFAULT '',
	follow_up_at DATETIME,
	reference_url TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_outreach_owner_sent ON outreach_records (owner_id, sent_at DESC);
`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *SQLite) Create(ctx context.Context, ownerID string, rec *Record) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `INSERT INTO outreach_records
		(id, owner_id, contact_id, contact_name, initial_message, sent_at, followed_up, follow_up_message, follow_up_at, reference_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, rec.ContactID, rec.ContactName, rec.InitialMessage, rec.SentAt,
		rec.FollowedUp, rec.FollowUpMessage, rec.FollowUpAt, rec.ReferenceURL,
	)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (s *SQLite) List(ctx context.Context, ownerID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, contact_id, contact_name, initial_message, sent_at, followed_up, follow_up_message, follow_up_at, reference_url
		FROM outreach_records WHERE owner_id = ? ORDER BY sent_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, ownerID, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, contact_id, contact_name, initial_message, sent_at, followed_up, follow_up_message, follow_up_at, reference_url
		FROM outreach_records WHERE owner_id = ? AND id = ?`, ownerID, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func (s *SQLite) Update(ctx context.Context, ownerID, id string, fields Fields) error {
	// Single guarded statement: the followed_up = 0 condition makes the
	// transition apply at most once, with no read-modify-write window.
	res, err := s.db.ExecContext(ctx, `UPDATE outreach_records
		SET followed_up = COALESCE(?, followed_up),
			follow_up_message = COALESCE(?, follow_up_message),
			follow_up_at = COALESCE(?, follow_up_at)
		WHERE owner_id = ? AND id = ? AND followed_up = 0`,
		fields.FollowedUp, fields.FollowUpMessage, fields.FollowUpAt, ownerID, id,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		// Either the record is missing or it is already followed up;
		// only the former is an error.
		if _, err := s.Get(ctx, ownerID, id); err != nil {
			return err
		}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var rec Record
	var followUpAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.ContactID, &rec.ContactName, &rec.InitialMessage,
		&rec.SentAt, &rec.FollowedUp, &rec.FollowUpMessage, &followUpAt, &rec.ReferenceURL)
	if err != nil {
		return nil, err
	}

	if followUpAt.Valid {
		at := followUpAt.Time.In(time.UTC)
		rec.FollowUpAt = &at
	}

	return &rec, nil
}
