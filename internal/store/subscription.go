package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/viewtube/apiserver/types"
)

// SubscriptionRepository handles persistence for subscription edges.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) Create(ctx context.Context, subscriberID, channelID int) (types.Subscription, error) {
	sub := types.Subscription{
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    time.Now(),
	}

	const query = `
		INSERT INTO subscriptions (subscriber_id, channel_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, subscriberID, channelID, sub.CreatedAt).Scan(&sub.ID); err != nil {
		return types.Subscription{}, mapConstraintError(err)
	}
	return sub, nil
}

// Delete removes the edge if present. Deleting a missing edge is not
// an error.
func (r *SubscriptionRepository) Delete(ctx context.Context, subscriberID, channelID int) error {
	const query = `
		DELETE FROM subscriptions
		WHERE subscriber_id = $1 AND channel_id = $2`
	_, err := r.db.ExecContext(ctx, query, subscriberID, channelID)
	return err
}

// CountSubscribers counts edges pointing at the channel.
func (r *SubscriptionRepository) CountSubscribers(ctx context.Context, channelID int) (int, error) {
	const query = `SELECT COUNT(1) FROM subscriptions WHERE channel_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, channelID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CountSubscriptions counts edges originating from the subscriber.
func (r *SubscriptionRepository) CountSubscriptions(ctx context.Context, subscriberID int) (int, error) {
	const query = `SELECT COUNT(1) FROM subscriptions WHERE subscriber_id = $1`
	var count int
	if err := r.db.QueryRowContext(ctx, query, subscriberID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Exists reports whether the subscriber follows the channel.
func (r *SubscriptionRepository) Exists(ctx context.Context, subscriberID, channelID int) (bool, error) {
	const query = `SELECT EXISTS (
		SELECT 1 FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2
	)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, subscriberID, channelID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
