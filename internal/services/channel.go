package services

import (
	"context"
	"fmt"

	"github.com/viewtube/apiserver/types"
)

// SubscriptionRepository defines persistence operations for
// subscription edges.
type SubscriptionRepository interface {
	Create(ctx context.Context, subscriberID, channelID int) (types.Subscription, error)
	Delete(ctx context.Context, subscriberID, channelID int) error
	CountSubscribers(ctx context.Context, channelID int) (int, error)
	CountSubscriptions(ctx context.Context, subscriberID int) (int, error)
	Exists(ctx context.Context, subscriberID, channelID int) (bool, error)
}

// ChannelService aggregates subscription edges into channel profiles
// and manages subscribe/unsubscribe.
type ChannelService struct {
	users  UserRepository
	subs   SubscriptionRepository
	events *EventPublisher
}

func NewChannelService(users UserRepository, subs SubscriptionRepository, events *EventPublisher) *ChannelService {
	return &ChannelService{
		users:  users,
		subs:   subs,
		events: events,
	}
}

// Profile resolves the channel by username (case-insensitive) and
// computes its subscriber counts. viewerID identifies the requesting
// user for the IsSubscribed flag; pass 0 for anonymous viewers.
// An unknown username surfaces as store.ErrNotFound.
func (s *ChannelService) Profile(ctx context.Context, username string, viewerID int) (types.ChannelProfile, error) {
	channel, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return types.ChannelProfile{}, err
	}

	subscribers, err := s.subs.CountSubscribers(ctx, channel.ID)
	if err != nil {
		return types.ChannelProfile{}, fmt.Errorf("count subscribers: %w", err)
	}

	subscribedTo, err := s.subs.CountSubscriptions(ctx, channel.ID)
	if err != nil {
		return types.ChannelProfile{}, fmt.Errorf("count subscriptions: %w", err)
	}

	isSubscribed := false
	if viewerID > 0 {
		isSubscribed, err = s.subs.Exists(ctx, viewerID, channel.ID)
		if err != nil {
			return types.ChannelProfile{}, fmt.Errorf("check subscription: %w", err)
		}
	}

	return types.ChannelProfile{
		ID:                channel.ID,
		FullName:          channel.FullName,
		Username:          channel.Username,
		AvatarURL:         channel.AvatarURL,
		CoverImageURL:     channel.CoverImageURL,
		SubscriberCount:   subscribers,
		SubscribedToCount: subscribedTo,
		IsSubscribed:      isSubscribed,
	}, nil
}

// Subscribe creates the edge subscriber -> channel. Subscribing to
// oneself surfaces as ErrSelfSubscription; an existing edge as
// store.ErrConflict; an unknown channel as store.ErrNotFound.
func (s *ChannelService) Subscribe(ctx context.Context, subscriberID int, channelUsername string) (types.Subscription, error) {
	channel, err := s.users.GetByUsername(ctx, channelUsername)
	if err != nil {
		return types.Subscription{}, err
	}

	if channel.ID == subscriberID {
		return types.Subscription{}, ErrSelfSubscription
	}

	sub, err := s.subs.Create(ctx, subscriberID, channel.ID)
	if err != nil {
		return types.Subscription{}, err
	}

	s.events.SubscriptionCreated(ctx, sub)
	return sub, nil
}

// Unsubscribe removes the edge if present. Removing a missing edge is
// not an error; an unknown channel surfaces as store.ErrNotFound.
func (s *ChannelService) Unsubscribe(ctx context.Context, subscriberID int, channelUsername string) error {
	channel, err := s.users.GetByUsername(ctx, channelUsername)
	if err != nil {
		return err
	}

	if err := s.subs.Delete(ctx, subscriberID, channel.ID); err != nil {
		return err
	}

	s.events.SubscriptionRemoved(ctx, subscriberID, channel.ID)
	return nil
}
