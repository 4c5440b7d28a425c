package services

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/viewtube/apiserver/types"
)

const (
	topicUserRegistered      = "user.registered"
	topicSubscriptionCreated = "subscription.created"
	topicSubscriptionRemoved = "subscription.removed"
)

// EventBackend publishes messages to a broker channel.
type EventBackend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// EventPublisher emits account lifecycle events. Publishing is
// best-effort: a broker failure is logged and never fails the request
// that triggered it. A nil publisher or nil backend publishes nothing.
type EventPublisher struct {
	backend EventBackend
}

func NewEventPublisher(backend EventBackend) *EventPublisher {
	return &EventPublisher{backend: backend}
}

type userRegisteredEvent struct {
	UserID   int       `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	At       time.Time `json:"at"`
}

type subscriptionEvent struct {
	SubscriberID int       `json:"subscriber_id"`
	ChannelID    int       `json:"channel_id"`
	At           time.Time `json:"at"`
}

// UserRegistered announces a new account.
func (p *EventPublisher) UserRegistered(ctx context.Context, user types.User) {
	p.publish(ctx, topicUserRegistered, userRegisteredEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		At:       time.Now(),
	}, map[string]string{"user_id": strconv.Itoa(user.ID)})
}

// SubscriptionCreated announces a new subscription edge.
func (p *EventPublisher) SubscriptionCreated(ctx context.Context, sub types.Subscription) {
	p.publish(ctx, topicSubscriptionCreated, subscriptionEvent{
		SubscriberID: sub.SubscriberID,
		ChannelID:    sub.ChannelID,
		At:           time.Now(),
	}, nil)
}

// SubscriptionRemoved announces a removed subscription edge.
func (p *EventPublisher) SubscriptionRemoved(ctx context.Context, subscriberID, channelID int) {
	p.publish(ctx, topicSubscriptionRemoved, subscriptionEvent{
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		At:           time.Now(),
	}, nil)
}

func (p *EventPublisher) publish(ctx context.Context, topic string, event any, attrs map[string]string) {
	if p == nil || p.backend == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("events: marshal %s: %v", topic, err)
		return
	}
	if _, err := p.backend.Publish(ctx, topic, data, attrs); err != nil {
		log.Printf("events: publish %s: %v", topic, err)
	}
}
