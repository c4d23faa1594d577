package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/brieflyhq/briefly/internal/quota"
	"github.com/brieflyhq/briefly/internal/research"
	"github.com/brieflyhq/briefly/internal/search"
)

// Store wraps the Postgres connection. It implements quota.Store,
// quota.ReferralStore and research.BriefStore.
type Store struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("store: not found")

func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash, referralCode string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO users (email, password_hash, referral_code) VALUES ($1,$2,$3) RETURNING id`,
		email, hash, referralCode).Scan(&id)
	return id, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}

func (s *Store) GetReferralCode(ctx context.Context, userID string) (string, error) {
	var code string
	err := s.DB.QueryRowContext(ctx, `SELECT referral_code FROM users WHERE id=$1`, userID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return code, err
}

// Usage operations (quota.Store)
func (s *Store) CountUsageSince(ctx context.Context, identity string, since time.Time) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM usage_records WHERE identity=$1 AND created_at >= $2`,
		identity, since).Scan(&n)
	return n, err
}

func (s *Store) BonusTotal(ctx context.Context, identity string) (int, error) {
	var total int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount),0) FROM bonus_grants WHERE identity=$1`,
		identity).Scan(&total)
	return total, err
}

func (s *Store) AppendUsage(ctx context.Context, identity string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO usage_records (identity) VALUES ($1)`, identity)
	return err
}

// Referral operations (quota.ReferralStore)
func (s *Store) ReferralCodeOwner(ctx context.Context, code string) (string, error) {
	var owner string
	err := s.DB.QueryRowContext(ctx, `SELECT id FROM users WHERE referral_code=$1`, code).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", quota.ErrCodeNotFound
	}
	return owner, err
}

func (s *Store) HasRedeemed(ctx context.Context, referee string) (bool, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM referral_redemptions WHERE referee=$1`, referee).Scan(&n)
	return n > 0, err
}

// RecordRedemption inserts the redemption row and both bonus grants in one
// transaction. The unique index on referee makes the once-per-referee rule
// hold even under concurrent redemption attempts.
func (s *Store) RecordRedemption(ctx context.Context, code, referrer, referee string, bonus int) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO referral_redemptions (code, referrer, referee) VALUES ($1,$2,$3)`,
		code, referrer, referee); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bonus_grants (identity, amount, reason) VALUES ($1,$2,'referral'),($3,$4,'referral')`,
		referrer, bonus, referee, bonus); err != nil {
		return fmt.Errorf("insert bonus grants: %w", err)
	}
	return tx.Commit()
}

// Brief is a persisted research run.
type Brief struct {
	ID            string          `json:"id"`
	Identity      string          `json:"-"`
	TopicID       string          `json:"topic_id,omitempty"`
	Topic         string          `json:"topic"`
	FormattedText string          `json:"formatted_text"`
	Sources       []search.Result `json:"sources,omitempty"`
	SourceCount   int             `json:"source_count"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SaveBrief implements research.BriefStore.
func (s *Store) SaveBrief(ctx context.Context, rec research.BriefRecord) (string, time.Time, error) {
	return s.InsertBrief(ctx, Brief{
		Identity:      rec.Identity,
		Topic:         rec.Topic,
		FormattedText: rec.Formatted,
		Sources:       rec.Sources,
		SourceCount:   rec.SourceCount,
	})
}

func (s *Store) InsertBrief(ctx context.Context, b Brief) (string, time.Time, error) {
	sources, err := json.Marshal(b.Sources)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("marshal sources: %w", err)
	}
	var topicID any
	if b.TopicID != "" {
		topicID = b.TopicID
	}
	var id string
	var createdAt time.Time
	err = s.DB.QueryRowContext(ctx, `
INSERT INTO briefs (identity, topic_id, topic, formatted_text, sources, source_count)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		b.Identity, topicID, b.Topic, b.FormattedText, sources, b.SourceCount).Scan(&id, &createdAt)
	return id, createdAt, err
}

func (s *Store) ListBriefs(ctx context.Context, identity string, limit int) ([]Brief, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, topic, source_count, created_at FROM briefs
WHERE identity=$1 ORDER BY created_at DESC LIMIT $2`, identity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Brief
	for rows.Next() {
		var b Brief
		if err := rows.Scan(&b.ID, &b.Topic, &b.SourceCount, &b.CreatedAt); err != nil {
			return nil, err
		}
		b.Identity = identity
		out = append(out, b)
	}
	return out, rows.Err()
}

// AllBriefs walks every saved brief, used to rebuild the in-memory
// search index at startup.
func (s *Store) AllBriefs(ctx context.Context) ([]Brief, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, identity, topic, formatted_text FROM briefs ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Brief
	for rows.Next() {
		var b Brief
		if err := rows.Scan(&b.ID, &b.Identity, &b.Topic, &b.FormattedText); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBrief(ctx context.Context, id, identity string) (Brief, error) {
	var b Brief
	var sources []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, topic, formatted_text, sources, source_count, created_at
FROM briefs WHERE id=$1 AND identity=$2`, id, identity).
		Scan(&b.ID, &b.Topic, &b.FormattedText, &sources, &b.SourceCount, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Brief{}, ErrNotFound
	}
	if err != nil {
		return Brief{}, err
	}
	b.Identity = identity
	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &b.Sources); err != nil {
			return Brief{}, fmt.Errorf("unmarshal sources: %w", err)
		}
	}
	return b, nil
}

func (s *Store) DeleteBrief(ctx context.Context, id, identity string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM briefs WHERE id=$1 AND identity=$2`, id, identity)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Topic is a tracked query re-run by the scheduler.
type Topic struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Query        string    `json:"query"`
	ScheduleCron string    `json:"schedule_cron"`
	Enrich       bool      `json:"enrich"`
	CreatedAt    time.Time `json:"created_at"`
}

func (s *Store) CreateTopic(ctx context.Context, userID, query, cron string, enrich bool) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO topics (user_id, query, schedule_cron, enrich) VALUES ($1,$2,$3,$4) RETURNING id`,
		userID, query, cron, enrich).Scan(&id)
	return id, err
}

func (s *Store) ListTopics(ctx context.Context, userID string) ([]Topic, error) {
	return s.listTopics(ctx, `SELECT id, user_id, query, schedule_cron, enrich, created_at FROM topics WHERE user_id=$1 ORDER BY created_at DESC`, userID)
}

func (s *Store) ListAllTopics(ctx context.Context) ([]Topic, error) {
	return s.listTopics(ctx, `SELECT id, user_id, query, schedule_cron, enrich, created_at FROM topics ORDER BY created_at`)
}

func (s *Store) listTopics(ctx context.Context, q string, args ...any) ([]Topic, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.ID, &t.UserID, &t.Query, &t.ScheduleCron, &t.Enrich, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) DeleteTopic(ctx context.Context, id, userID string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM topics WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// LatestBriefTime returns when a topic last produced a brief, or nil.
func (s *Store) LatestBriefTime(ctx context.Context, topicID string) (*time.Time, error) {
	var ts sql.NullTime
	err := s.DB.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM briefs WHERE topic_id=$1`, topicID).Scan(&ts)
	if err != nil {
		return nil, err
	}
	if !ts.Valid {
		return nil, nil
	}
	t := ts.Time
	return &t, nil
}
