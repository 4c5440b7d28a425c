package services

import (
	"context"
	"strings"
	"sync"

	"github.com/viewtube/apiserver/internal/store"
	"github.com/viewtube/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository used across the service
// tests.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		nextID: 1,
		users:  make(map[int]types.User),
	}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == strings.ToLower(username) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByIdentifier(_ context.Context, email, username string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if (email != "" && user.Email == email) || (username != "" && user.Username == strings.ToLower(username)) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	user.ID = r.nextID
	r.nextID++
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	for id, existing := range r.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email || existing.Username == user.Username {
			return types.User{}, store.ErrConflict
		}
	}
	stored.Username = user.Username
	stored.Email = user.Email
	stored.FullName = user.FullName
	stored.AvatarURL = user.AvatarURL
	stored.CoverImageURL = user.CoverImageURL
	r.users[user.ID] = stored
	return stored, nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) SetRefreshToken(_ context.Context, id int, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.RefreshToken = token
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) RotateRefreshToken(_ context.Context, id int, presented, next string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok || user.RefreshToken != presented {
		return store.ErrNotFound
	}
	user.RefreshToken = next
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) ClearRefreshToken(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil
	}
	user.RefreshToken = ""
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) storedRefreshToken(id int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].RefreshToken
}

type edge struct {
	subscriberID int
	channelID    int
}

// fakeSubscriptionRepo is an in-memory SubscriptionRepository.
type fakeSubscriptionRepo struct {
	mu     sync.Mutex
	nextID int
	edges  map[edge]types.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{
		nextID: 1,
		edges:  make(map[edge]types.Subscription),
	}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, subscriberID, channelID int) (types.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := edge{subscriberID, channelID}
	if _, ok := r.edges[key]; ok {
		return types.Subscription{}, store.ErrConflict
	}
	sub := types.Subscription{
		ID:           r.nextID,
		SubscriberID: subscriberID,
		ChannelID:    channelID,
	}
	r.nextID++
	r.edges[key] = sub
	return sub, nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, subscriberID, channelID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges, edge{subscriberID, channelID})
	return nil
}

func (r *fakeSubscriptionRepo) CountSubscribers(_ context.Context, channelID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for key := range r.edges {
		if key.channelID == channelID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) CountSubscriptions(_ context.Context, subscriberID int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for key := range r.edges {
		if key.subscriberID == subscriberID {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubscriptionRepo) Exists(_ context.Context, subscriberID, channelID int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.edges[edge{subscriberID, channelID}]
	return ok, nil
}

// recordingBackend captures published events.
type recordingBackend struct {
	mu     sync.Mutex
	topics []string
}

func (b *recordingBackend) Publish(_ context.Context, channel string, _ []byte, _ map[string]string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, channel)
	return "msg-1", nil
}

func (b *recordingBackend) published() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.topics...)
}
