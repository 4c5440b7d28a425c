package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/viewtube/apiserver/config"
	"github.com/viewtube/apiserver/internal/services"
	"github.com/viewtube/apiserver/internal/store"
	"github.com/viewtube/apiserver/internal/token"
	"github.com/viewtube/apiserver/types"
)

// fixture wires the real router against in-memory dependencies.
type fixture struct {
	router  *chi.Mux
	users   *fakeUserRepo
	storage *fakeStorage
	issuer  *token.Issuer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	issuer, err := token.NewIssuer(config.JWTConfig{
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)

	users := newFakeUserRepo()
	subs := newFakeSubscriptionRepo()
	publisher := services.NewEventPublisher(nil)
	storage := &fakeStorage{}
	media := services.NewMediaService(storage, "https://cdn.test")

	authService := services.NewAuthService(users, issuer, publisher)
	userService := services.NewUserService(users)
	channelService := services.NewChannelService(users, subs, publisher)

	router := chi.NewRouter()
	router.Route("/api/v1/users", func(r chi.Router) {
		AuthRouter(r, authService, userService, media, issuer)
		AccountRouter(r, userService, media, issuer)
	})
	router.Route("/api/v1/channels", func(r chi.Router) {
		ChannelRouter(r, channelService, issuer)
	})

	return &fixture{
		router:  router,
		users:   users,
		storage: storage,
		issuer:  issuer,
	}
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

// registerForm builds the multipart registration request. Pass an
// empty avatar name to omit the avatar file.
func registerForm(t *testing.T, fields map[string]string, avatarName, coverName string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if avatarName != "" {
		part, err := writer.CreateFormFile("avatar", avatarName)
		require.NoError(t, err)
		_, err = part.Write([]byte("avatar-image-bytes"))
		require.NoError(t, err)
	}
	if coverName != "" {
		part, err := writer.CreateFormFile("coverImage", coverName)
		require.NoError(t, err)
		_, err = part.Write([]byte("cover-image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// uploadForm builds a multipart request carrying a single file field.
// Pass an empty field name to send a form with no file.
func uploadForm(t *testing.T, method, target, field, filename string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("image-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func defaultRegisterFields() map[string]string {
	return map[string]string{
		"fullName": "Test Person",
		"email":    "test@example.com",
		"userName": "TestPerson",
		"password": "secret123",
	}
}

func (f *fixture) register(t *testing.T) types.User {
	t.Helper()
	rec := f.do(registerForm(t, defaultRegisterFields(), "avatar.png", ""))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var user types.User
	decodeData(t, rec, &user)
	return user
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (f *fixture) login(t *testing.T) (SessionResponse, *httptest.ResponseRecorder) {
	t.Helper()
	rec := f.do(jsonRequest(t, http.MethodPost, "/api/v1/users/login", map[string]string{
		"email":    "test@example.com",
		"password": "secret123",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session SessionResponse
	decodeData(t, rec, &session)
	return session, rec
}

// decodeEnvelope decodes the response envelope without touching Data.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var envelope APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

// decodeData decodes the envelope's data field into out.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// In-memory fakes mirroring the store repositories.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
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
		if id != user.ID && (existing.Email == user.Email || existing.Username == user.Username) {
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

func (r *fakeUserRepo) SetRefreshToken(_ context.Context, id int, tokenString string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.RefreshToken = tokenString
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
	if user, ok := r.users[id]; ok {
		user.RefreshToken = ""
		r.users[id] = user
	}
	return nil
}

func (r *fakeUserRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *fakeUserRepo) storedRefreshToken(id int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id].RefreshToken
}

type subscriptionKey struct {
	subscriberID int
	channelID    int
}

type fakeSubscriptionRepo struct {
	mu     sync.Mutex
	nextID int
	edges  map[subscriptionKey]types.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{nextID: 1, edges: make(map[subscriptionKey]types.Subscription)}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, subscriberID, channelID int) (types.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := subscriptionKey{subscriberID, channelID}
	if _, ok := r.edges[key]; ok {
		return types.Subscription{}, store.ErrConflict
	}
	sub := types.Subscription{ID: r.nextID, SubscriberID: subscriberID, ChannelID: channelID}
	r.nextID++
	r.edges[key] = sub
	return sub, nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, subscriberID, channelID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges, subscriptionKey{subscriberID, channelID})
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
	_, ok := r.edges[subscriptionKey{subscriberID, channelID}]
	return ok, nil
}

type fakeStorage struct {
	mu   sync.Mutex
	keys []string
}

func (s *fakeStorage) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.Copy(io.Discard, r); err != nil {
		return err
	}
	s.keys = append(s.keys, key)
	return nil
}

func (s *fakeStorage) Bucket() string { return "viewtube-media" }

func (s *fakeStorage) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
