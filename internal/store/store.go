package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a queried row does not exist
	ErrNotFound = errors.New("not found")

	// ErrDuplicateIdempotencyKey is returned when another order already holds the key
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
)

const (
	pqUniqueViolation        = "23505"
	idempotencyKeyConstraint = "orders_idempotency_key_key"
)

type Store struct {
	db     *sqlx.DB
	public *sqlx.DB
}

// NewStore connects the elevated connection used for server-side writes.
// When publicURL is set, catalog reads go through that restricted connection.
func NewStore(databaseURL, publicURL string) (*Store, error) {
	db, err := connect(databaseURL)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db, public: db}
	if publicURL != "" && publicURL != databaseURL {
		public, err := connect(publicURL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("public connection: %w", err)
		}
		s.public = public
	}
	return s, nil
}

// NewFromDB wraps an existing connection
func NewFromDB(db *sqlx.DB) *Store {
	return &Store{db: db, public: db}
}

func connect(url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Close closes the database connections
func (s *Store) Close() error {
	if s.public != s.db {
		_ = s.public.Close()
	}
	return s.db.Close()
}

// Ping checks the elevated connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}

func uniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == constraint
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
