package types

import "time"

// Subscription is a directed edge: the subscriber follows the channel.
// A subscriber may hold at most one edge to a given channel.
type Subscription struct {
	ID           int       `json:"id" db:"id"`
	SubscriberID int       `json:"subscriber_id" db:"subscriber_id"`
	ChannelID    int       `json:"channel_id" db:"channel_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// ChannelProfile is the public projection of a user viewed as a channel,
// together with counts derived from subscription edges. IsSubscribed is
// relative to the requesting viewer and false for anonymous requests.
type ChannelProfile struct {
	ID                int    `json:"id"`
	FullName          string `json:"fullName"`
	Username          string `json:"userName"`
	AvatarURL         string `json:"avatar"`
	CoverImageURL     string `json:"coverImage,omitempty"`
	SubscriberCount   int    `json:"subscriberCount"`
	SubscribedToCount int    `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
}
