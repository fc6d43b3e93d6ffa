package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrSubscriberNotFound is returned when a user has never been seen.
var ErrSubscriberNotFound = errors.New("subscriber not found")

// Subscriber is the bookkeeping kept for one follower of an account.
type Subscriber struct {
	ID             string
	OpenID         string
	Account        string
	Subscribed     bool
	Scene          string
	SubscribedAt   time.Time
	UnsubscribedAt time.Time
	LastSeenAt     time.Time
	MessageCount   int
}

// SubscriberStore records follow and unfollow events per account.
type SubscriberStore struct {
	db *DB
}

// NewSubscriberStore creates a subscriber store using the given database.
func NewSubscriberStore(db *DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

// Subscribe marks openID as following account. scene is the QR scene
// value for subscriptions started by a scan, otherwise empty.
func (s *SubscriberStore) Subscribe(ctx context.Context, account, openID, scene string, at time.Time) error {
	ts := at.UTC().Format(time.DateTime)
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO subscribers (id, open_id, account, subscribed, scene, subscribed_at, last_seen_at)
		 VALUES (?, ?, ?, 1, ?, ?, ?)
		 ON CONFLICT (account, open_id) DO UPDATE SET
			subscribed = 1,
			scene = excluded.scene,
			subscribed_at = excluded.subscribed_at,
			last_seen_at = excluded.last_seen_at`,
		uuid.New().String(), openID, account, scene, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("recording subscribe: %w", err)
	}
	return nil
}

// Unsubscribe marks openID as no longer following account.
func (s *SubscriberStore) Unsubscribe(ctx context.Context, account, openID string, at time.Time) error {
	ts := at.UTC().Format(time.DateTime)
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO subscribers (id, open_id, account, subscribed, unsubscribed_at, last_seen_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (account, open_id) DO UPDATE SET
			subscribed = 0,
			unsubscribed_at = excluded.unsubscribed_at,
			last_seen_at = excluded.last_seen_at`,
		uuid.New().String(), openID, account, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("recording unsubscribe: %w", err)
	}
	return nil
}

// Touch records an inbound message from openID.
func (s *SubscriberStore) Touch(ctx context.Context, account, openID string, at time.Time) error {
	ts := at.UTC().Format(time.DateTime)
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO subscribers (id, open_id, account, last_seen_at, message_count)
		 VALUES (?, ?, ?, ?, 1)
		 ON CONFLICT (account, open_id) DO UPDATE SET
			last_seen_at = excluded.last_seen_at,
			message_count = message_count + 1`,
		uuid.New().String(), openID, account, ts,
	)
	if err != nil {
		return fmt.Errorf("recording message: %w", err)
	}
	return nil
}

// Get returns the bookkeeping for openID.
func (s *SubscriberStore) Get(ctx context.Context, account, openID string) (*Subscriber, error) {
	var (
		sub                          Subscriber
		subscribed                   int
		subscribedAt, unsubscribedAt sql.NullString
		lastSeenAt                   string
	)
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, open_id, account, subscribed, scene, subscribed_at, unsubscribed_at, last_seen_at, message_count
		 FROM subscribers WHERE account = ? AND open_id = ?`, account, openID,
	).Scan(
		&sub.ID, &sub.OpenID, &sub.Account, &subscribed, &sub.Scene,
		&subscribedAt, &unsubscribedAt, &lastSeenAt, &sub.MessageCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading subscriber: %w", err)
	}

	sub.Subscribed = subscribed == 1
	sub.SubscribedAt = parseTime(subscribedAt.String)
	sub.UnsubscribedAt = parseTime(unsubscribedAt.String)
	sub.LastSeenAt = parseTime(lastSeenAt)
	return &sub, nil
}

// CountActive returns how many users currently follow account.
func (s *SubscriberStore) CountActive(ctx context.Context, account string) (int, error) {
	var n int
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM subscribers WHERE account = ? AND subscribed = 1", account,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting subscribers: %w", err)
	}
	return n, nil
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.DateTime, s)
	return t
}
