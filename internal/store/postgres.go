package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores records in a PostgreSQL database via a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	s := &Postgres{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

var _ Store = (*Postgres)(nil)

func (s *Postgres) Close() { s.pool.Close() }

func (s *Postgres) initSchema(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS outreach_records (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		contact_id TEXT NOT NULL,
		contact_name TEXT NOT NULL,
		initial_message TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL,
		followed_up BOOLEAN NOT NULL DEFAULT FALSE,
		follow_up_message TEXT NOT NULL DEFAULT '',
		follow_up_at TIMESTAMPTZ,
		reference_url TEXT NOT NULL DEFAULT ''
	)`

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}

	return nil
}

func (s *Postgres) Create(ctx context.Context, ownerID string, rec *Record) (string, error) {
	id := uuid.NewString()

	_, err := s.pool.Exec(ctx, `INSERT INTO outreach_records
		(id, owner_id, contact_id, contact_name, initial_message, sent_at, followed_up, follow_up_message, follow_up_at, reference_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, ownerID, rec.ContactID, rec.ContactName, rec.InitialMessage, rec.SentAt,
		rec.FollowedUp, rec.FollowUpMessage, rec.FollowUpAt, rec.ReferenceURL,
	)
	if err != nil {
		return "", err
	}

	return id, nil
}

func (s *Postgres) List(ctx context.Context, ownerID string) ([]*Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, contact_id, contact_name, initial_message, sent_at, followed_up, follow_up_message, follow_up_at, reference_url
		FROM outreach_records WHERE owner_id = $1 ORDER BY sent_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Record, 0)
	for rows.Next() {
		var rec Record
		var followUpAt *time.Time
		if err := rows.Scan(&rec.ID, &rec.ContactID, &rec.ContactName, &rec.InitialMessage,
			&rec.SentAt, &rec.FollowedUp, &rec.FollowUpMessage, &followUpAt, &rec.ReferenceURL); err != nil {
			return nil, err
		}
		rec.FollowUpAt = followUpAt
		out = append(out, &rec)
	}

	return out, rows.Err()
}

func (s *Postgres) Get(ctx context.Context, ownerID, id string) (*Record, error) {
	var rec Record
	var followUpAt *time.Time

	err := s.pool.QueryRow(ctx, `SELECT id, contact_id, contact_name, initial_message, sent_at, followed_up, follow_up_message, follow_up_at, reference_url
		FROM outreach_records WHERE owner_id = $1 AND id = $2`, ownerID, id).
		Scan(&rec.ID, &rec.ContactID, &rec.ContactName, &rec.InitialMessage,
			&rec.SentAt, &rec.FollowedUp, &rec.FollowUpMessage, &followUpAt, &rec.ReferenceURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.FollowUpAt = followUpAt
	return &rec, nil
}

func (s *Postgres) Update(ctx context.Context, ownerID, id string, fields Fields) error {
	// Single guarded statement: the NOT followed_up condition makes the
	// transition apply at most once, with no read-modify-write window.
	tag, err := s.pool.Exec(ctx, `UPDATE outreach_records
		SET followed_up = COALESCE($1, followed_up),
			follow_up_message = COALESCE($2, follow_up_message),
			follow_up_at = COALESCE($3, follow_up_at)
		WHERE owner_id = $4 AND id = $5 AND NOT followed_up`,
		fields.FollowedUp, fields.FollowUpMessage, fields.FollowUpAt, ownerID, id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		// Either the record is missing or it is already followed up;
		// only the former is an error.
		if _, err := s.Get(ctx, ownerID, id); err != nil {
			return err
		}
	}

	return nil
}
