package cart

import (
	"context"
	"fmt"
	"time"
)

// DefaultTTL is how long an untouched cart is kept
const DefaultTTL = 30 * 24 * time.Hour

// Backend is the key-value storage carts are persisted in
type Backend interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Store loads and saves carts by session id
type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewStore creates a cart store
func NewStore(backend Backend, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{backend: backend, ttl: ttl, now: time.Now}
}

func key(sessionID string) string {
	return "cart:" + sessionID
}

// Load returns the session's cart, or an empty one
func (s *Store) Load(ctx context.Context, sessionID string) (*Cart, error) {
	c := New(sessionID)
	found, err := s.backend.GetJSON(ctx, key(sessionID), c)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !found {
		return New(sessionID), nil
	}
	if c.Items == nil {
		c.Items = []Item{}
	}
	c.SessionID = sessionID
	return c, nil
}

// Save persists the cart and refreshes its TTL
func (s *Store) Save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = s.now()
	if err := s.backend.SetJSON(ctx, key(c.SessionID), c, s.ttl); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Clear drops the session's cart
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.backend.Delete(ctx, key(sessionID)); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
