package store

import (
	"context"

	"ninamar-service/internal/models"

	"github.com/google/uuid"
)

const subscriberColumns = `id, email, name, token, subscribed, created_at, unsubscribed_at`

// UpsertSubscriber subscribes an email, re-activating it if it had unsubscribed
func (s *Store) UpsertSubscriber(ctx context.Context, email string, name *string) (*models.NewsletterSubscriber, error) {
	var sub models.NewsletterSubscriber
	err := s.db.GetContext(ctx, &sub, `
		INSERT INTO newsletter_subscribers (id, email, name, token, subscribed)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (email) DO UPDATE SET
			subscribed = TRUE,
			unsubscribed_at = NULL,
			name = COALESCE(EXCLUDED.name, newsletter_subscribers.name)
		RETURNING `+subscriberColumns,
		uuid.New(), email, name, uuid.NewString())
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// Unsubscribe marks the subscriber owning token as unsubscribed
func (s *Store) Unsubscribe(ctx context.Context, token string) (*models.NewsletterSubscriber, error) {
	var sub models.NewsletterSubscriber
	err := s.db.GetContext(ctx, &sub, `
		UPDATE newsletter_subscribers
		SET subscribed = FALSE, unsubscribed_at = COALESCE(unsubscribed_at, NOW())
		WHERE token = $1
		RETURNING `+subscriberColumns, token)
	if err != nil {
		return nil, notFound(err, "subscriber")
	}
	return &sub, nil
}

// ListSubscribers returns subscribers, optionally only the active ones
func (s *Store) ListSubscribers(ctx context.Context, activeOnly bool) ([]models.NewsletterSubscriber, error) {
	query := "SELECT " + subscriberColumns + " FROM newsletter_subscribers"
	if activeOnly {
		query += " WHERE subscribed = TRUE"
	}
	query += " ORDER BY created_at DESC"

	subs := []models.NewsletterSubscriber{}
	err := s.db.SelectContext(ctx, &subs, query)
	return subs, err
}
