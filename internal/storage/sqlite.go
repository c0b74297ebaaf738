// Package storage persists admitted signals and statute revisions in
// SQLite. The signals table is the dedup gate: insertion is atomic
// insert-if-absent keyed by fingerprint, so concurrent fetches of the same
// item cannot double-insert.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"RegSonar/internal/domain"
	"RegSonar/internal/fingerprint"
	"RegSonar/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
  fingerprint      TEXT PRIMARY KEY,
  first_seen_at    TEXT NOT NULL,
  title            TEXT NOT NULL,
  url              TEXT NOT NULL DEFAULT '',
  channel          TEXT NOT NULL,
  source_id        TEXT NOT NULL,
  relevance_score  REAL NOT NULL,
  matched_keywords TEXT NOT NULL,
  deadline         TEXT NOT NULL DEFAULT '',
  published_at     TEXT,
  report_status    TEXT NOT NULL DEFAULT 'pending'
                   CHECK (report_status IN ('pending','included','archived'))
);
CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(report_status);

CREATE TABLE IF NOT EXISTS law_revisions (
  law_name     TEXT PRIMARY KEY,
  url          TEXT NOT NULL,
  content_hash TEXT NOT NULL,
  excerpt      TEXT NOT NULL,
  checked_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS law_changes (
  id             INTEGER PRIMARY KEY,
  law_name       TEXT NOT NULL,
  url            TEXT NOT NULL,
  change_percent REAL NOT NULL,
  detected_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
`

// Store is the SQLite-backed signal history and dedup gate.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.SignalStore      = (*Store)(nil)
	_ ports.LawRevisionStore = (*Store)(nil)
)

// Open opens (creating if needed) the database at path. All failures are
// StoreErrors: the run cannot proceed without durable deduplication.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &domain.StoreError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		return nil, &domain.StoreError{Op: "ping", Err: err}
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, &domain.StoreError{Op: "create schema", Err: err}
	}

	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Admit offers a scored item to the dedup gate. The insert is
// insert-if-absent on the fingerprint: the first observation wins and is
// never overwritten, even by a later higher-scoring variant.
func (s *Store) Admit(ctx context.Context, item domain.ScoredItem, firstSeen time.Time) (domain.AdmissionResult, error) {
	fp := fingerprint.FromItem(item.Item)

	keywords, err := json.Marshal(item.MatchedTerms())
	if err != nil {
		return "", &domain.StoreError{Op: "serialize keywords", Err: err}
	}

	var published any
	if item.Item.PublishedAt != nil {
		published = item.Item.PublishedAt.UTC().Format(time.RFC3339)
	}

	res, err := s.sb.Insert("signals").
		Columns("fingerprint", "first_seen_at", "title", "url", "channel", "source_id",
			"relevance_score", "matched_keywords", "deadline", "published_at", "report_status").
		Values(fp, firstSeen.UTC().Format(time.RFC3339), item.Item.Title, item.Item.URL,
			string(item.Item.Channel), item.Item.SourceID, item.Score, string(keywords),
			item.Deadline, published, string(domain.StatusPending)).
		Suffix("ON CONFLICT(fingerprint) DO NOTHING").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return "", &domain.StoreError{Op: "admit", Err: err}
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return "", &domain.StoreError{Op: "admit rows", Err: err}
	}
	if inserted == 0 {
		return domain.Duplicate, nil
	}
	return domain.Admitted, nil
}

// Pending returns all records awaiting a digest, ordered by channel, then
// score descending, then first observation ascending; equal rows fall back
// to published date descending with nulls last.
func (s *Store) Pending(ctx context.Context) ([]domain.PersistedRecord, error) {
	rows, err := s.sb.Select("fingerprint", "first_seen_at", "title", "url", "channel",
		"source_id", "relevance_score", "matched_keywords", "deadline", "published_at", "report_status").
		From("signals").
		Where(sq.Eq{"report_status": string(domain.StatusPending)}).
		OrderBy("channel ASC", "relevance_score DESC", "first_seen_at ASC",
			"published_at IS NULL", "published_at DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, &domain.StoreError{Op: "select pending", Err: err}
	}
	defer rows.Close()

	var records []domain.PersistedRecord
	for rows.Next() {
		var (
			rec       domain.PersistedRecord
			firstSeen string
			channel   string
			status    string
			keywords  string
			published sql.NullString
		)
		if err := rows.Scan(&rec.Fingerprint, &firstSeen, &rec.Title, &rec.URL, &channel,
			&rec.SourceID, &rec.Score, &keywords, &rec.Deadline, &published, &status); err != nil {
			return nil, &domain.StoreError{Op: "scan pending", Err: err}
		}

		rec.Channel = domain.Channel(channel)
		rec.ReportStatus = domain.ReportStatus(status)

		if rec.FirstSeenAt, err = time.Parse(time.RFC3339, firstSeen); err != nil {
			return nil, &domain.StoreError{Op: "parse first_seen_at", Err: err}
		}
		if published.Valid {
			if t, err := time.Parse(time.RFC3339, published.String); err == nil {
				rec.PublishedAt = &t
			}
		}
		if err := json.Unmarshal([]byte(keywords), &rec.MatchedKeywords); err != nil {
			return nil, &domain.StoreError{Op: "parse keywords", Err: err}
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StoreError{Op: "iterate pending", Err: err}
	}

	return records, nil
}

// MarkIncluded advances the given fingerprints from pending to included.
// Records in any other state are left untouched.
func (s *Store) MarkIncluded(ctx context.Context, fingerprints []string) error {
	if len(fingerprints) == 0 {
		return nil
	}

	_, err := s.sb.Update("signals").
		Set("report_status", string(domain.StatusIncluded)).
		Where(sq.Eq{
			"fingerprint":   fingerprints,
			"report_status": string(domain.StatusPending),
		}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return &domain.StoreError{Op: "mark included", Err: err}
	}
	return nil
}

// Revision loads the stored snapshot of a monitored statute page.
func (s *Store) Revision(ctx context.Context, name string) (string, string, bool, error) {
	var hash, excerpt string
	err := s.sb.Select("content_hash", "excerpt").
		From("law_revisions").
		Where(sq.Eq{"law_name": name}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&hash, &excerpt)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, &domain.StoreError{Op: "load revision", Err: err}
	}
	return hash, excerpt, true, nil
}

// SaveRevision upserts the latest snapshot of a monitored statute page.
// Revisions are working state for the radar, not audit history, so
// overwriting is fine here.
func (s *Store) SaveRevision(ctx context.Context, law domain.Law, hash, excerpt string, checkedAt time.Time) error {
	_, err := s.sb.Insert("law_revisions").
		Columns("law_name", "url", "content_hash", "excerpt", "checked_at").
		Values(law.Name, law.URL, hash, excerpt, checkedAt.UTC().Format(time.RFC3339)).
		Suffix("ON CONFLICT(law_name) DO UPDATE SET " +
			"url = excluded.url, content_hash = excluded.content_hash, " +
			"excerpt = excluded.excerpt, checked_at = excluded.checked_at").
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return &domain.StoreError{Op: "save revision", Err: err}
	}
	return nil
}

// RecordChange appends a detected statute change to the audit trail.
func (s *Store) RecordChange(ctx context.Context, change domain.LawChange) error {
	_, err := s.sb.Insert("law_changes").
		Columns("law_name", "url", "change_percent").
		Values(change.Name, change.URL, change.ChangePercent).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return &domain.StoreError{Op: "record change", Err: err}
	}
	return nil
}

// CountSignals reports the total number of persisted signal rows.
func (s *Store) CountSignals(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM signals").Scan(&count)
	if err != nil {
		return 0, &domain.StoreError{Op: "count signals", Err: err}
	}
	return count, nil
}

// signalRow is a test/debug helper to inspect one persisted row verbatim.
func (s *Store) signalRow(ctx context.Context, fp string) (domain.PersistedRecord, error) {
	var (
		rec       domain.PersistedRecord
		firstSeen string
		channel   string
		status    string
		keywords  string
	)
	err := s.sb.Select("fingerprint", "first_seen_at", "title", "url", "channel",
		"source_id", "relevance_score", "matched_keywords", "deadline", "report_status").
		From("signals").
		Where(sq.Eq{"fingerprint": fp}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&rec.Fingerprint, &firstSeen, &rec.Title, &rec.URL, &channel,
			&rec.SourceID, &rec.Score, &keywords, &rec.Deadline, &status)
	if err != nil {
		return rec, err
	}
	rec.Channel = domain.Channel(channel)
	rec.ReportStatus = domain.ReportStatus(status)
	rec.FirstSeenAt, _ = time.Parse(time.RFC3339, firstSeen)
	if err := json.Unmarshal([]byte(keywords), &rec.MatchedKeywords); err != nil {
		return rec, fmt.Errorf("parse keywords: %w", err)
	}
	return rec, nil
}
