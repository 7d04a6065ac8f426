package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/vedyxlabs/vedyx/ai/llm"
	"github.com/vedyxlabs/vedyx/auth"
	"github.com/vedyxlabs/vedyx/internal/metrics"
	"github.com/vedyxlabs/vedyx/internal/profile"
	"github.com/vedyxlabs/vedyx/store"
)

type mockLLM struct {
	reply string
	err   error
	calls int
}

func (m *mockLLM) Chat(context.Context, []llm.Message) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLM) Warmup(context.Context) {}

type mockStore struct {
	users    []*store.User
	chats    []*store.Chat
	messages []*store.ChatMessage
	prefs    map[int32]*store.UserPreferences
	nextID   int64

	userErr error
}

func newMockStore() *mockStore {
	return &mockStore{prefs: map[int32]*store.UserPreferences{}, nextID: 1}
}

func (m *mockStore) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	create.ID = int32(m.nextID)
	m.nextID++
	m.users = append(m.users, create)
	return create, nil
}

func (m *mockStore) GetUser(_ context.Context, find *store.FindUser) (*store.User, error) {
	if m.userErr != nil {
		return nil, m.userErr
	}
	for _, u := range m.users {
		if find.ID != nil && u.ID != *find.ID {
			continue
		}
		if find.Email != nil && u.Email != *find.Email {
			continue
		}
		if find.GoogleID != nil && u.GoogleID != *find.GoogleID {
			continue
		}
		return u, nil
	}
	return nil, nil
}

func (m *mockStore) UpdateUser(_ context.Context, update *store.UpdateUser) (*store.User, error) {
	for _, u := range m.users {
		if u.ID != update.ID {
			continue
		}
		if update.DisplayName != nil {
			u.DisplayName = *update.DisplayName
		}
		if update.PhotoURL != nil {
			u.PhotoURL = *update.PhotoURL
		}
		if update.PasswordHash != nil {
			u.PasswordHash = *update.PasswordHash
		}
		if update.GoogleID != nil {
			u.GoogleID = *update.GoogleID
		}
		return u, nil
	}
	return nil, errors.New("user not found")
}

// DeleteUser mirrors the schema's cascade rules: the user's chats,
// messages and preferences go with the row.
func (m *mockStore) DeleteUser(_ context.Context, del *store.DeleteUser) error {
	for i, u := range m.users {
		if u.ID != del.ID {
			continue
		}
		m.users = append(m.users[:i], m.users[i+1:]...)
		kept := m.chats[:0]
		for _, ch := range m.chats {
			if ch.CreatorID == del.ID {
				msgs := m.messages[:0]
				for _, msg := range m.messages {
					if msg.ChatID != ch.ID {
						msgs = append(msgs, msg)
					}
				}
				m.messages = msgs
				continue
			}
			kept = append(kept, ch)
		}
		m.chats = kept
		delete(m.prefs, del.ID)
		return nil
	}
	return errors.New("user not found")
}

func (m *mockStore) CreateChat(_ context.Context, create *store.Chat) (*store.Chat, error) {
	create.ID = int32(m.nextID)
	m.nextID++
	m.chats = append(m.chats, create)
	return create, nil
}

func (m *mockStore) ListChats(_ context.Context, find *store.FindChat) ([]*store.Chat, error) {
	list := []*store.Chat{}
	for _, ch := range m.chats {
		if find.UID != nil && ch.UID != *find.UID {
			continue
		}
		if find.CreatorID != nil && ch.CreatorID != *find.CreatorID {
			continue
		}
		list = append(list, ch)
	}
	if find.Limit != nil && len(list) > *find.Limit {
		list = list[:*find.Limit]
	}
	return list, nil
}

func (m *mockStore) UpdateChat(_ context.Context, update *store.UpdateChat) (*store.Chat, error) {
	for _, ch := range m.chats {
		if ch.ID == update.ID {
			if update.Title != nil {
				ch.Title = *update.Title
			}
			return ch, nil
		}
	}
	return nil, errors.New("chat not found")
}

func (m *mockStore) DeleteChat(_ context.Context, delete *store.DeleteChat) error {
	for i, ch := range m.chats {
		if ch.ID == delete.ID {
			m.chats = append(m.chats[:i], m.chats[i+1:]...)
			return nil
		}
	}
	return errors.New("chat not found")
}

func (m *mockStore) CreateChatMessage(_ context.Context, create *store.ChatMessage) (*store.ChatMessage, error) {
	create.ID = m.nextID
	m.nextID++
	m.messages = append(m.messages, create)
	return create, nil
}

func (m *mockStore) ListChatMessages(_ context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error) {
	list := []*store.ChatMessage{}
	for _, msg := range m.messages {
		if find.ChatID != nil && msg.ChatID != *find.ChatID {
			continue
		}
		list = append(list, msg)
	}
	return list, nil
}

func (m *mockStore) UpdateChatMessage(_ context.Context, update *store.UpdateChatMessage) (*store.ChatMessage, error) {
	for _, msg := range m.messages {
		if msg.ID == update.ID {
			if update.Text != nil {
				msg.Text = *update.Text
			}
			if update.Pending != nil {
				msg.Pending = *update.Pending
			}
			return msg, nil
		}
	}
	return nil, errors.New("message not found")
}

func (m *mockStore) DeleteChatMessage(_ context.Context, del *store.DeleteChatMessage) error {
	for i, msg := range m.messages {
		if msg.ID == del.ID {
			m.messages = append(m.messages[:i], m.messages[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockStore) UpsertUserPreferences(_ context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error) {
	prefs, ok := m.prefs[upsert.UserID]
	if !ok {
		prefs = &store.UserPreferences{UserID: upsert.UserID}
		m.prefs[upsert.UserID] = prefs
	}
	if upsert.Name != nil {
		prefs.Name = *upsert.Name
	}
	if upsert.ClassLevel != nil {
		prefs.ClassLevel = *upsert.ClassLevel
	}
	if upsert.Subjects != nil {
		prefs.Subjects = *upsert.Subjects
	}
	if upsert.Interests != nil {
		prefs.Interests = *upsert.Interests
	}
	return prefs, nil
}

func (m *mockStore) GetUserPreferences(_ context.Context, find *store.FindUserPreferences) (*store.UserPreferences, error) {
	return m.prefs[find.UserID], nil
}

func newTestService(st Store, llmService llm.Service) (*APIV1Service, *echo.Echo) {
	p := &profile.Profile{
		Mode:           "dev",
		Secret:         "test-secret",
		GuestSoftLimit: 3,
		GuestHardLimit: 5,
		ContextWindow:  5,
		LLMProvider:    "openai",
		LLMModel:       "gpt-4o",
	}
	s := NewAPIV1Service(p.Secret, p, st, llmService, metrics.NewExporter(metrics.Config{}))
	e := echo.New()
	s.RegisterRoutes(e)
	return s, e
}

func doJSON(e *echo.Echo, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTestEndpoint(t *testing.T) {
	s, e := newTestService(newMockStore(), &mockLLM{reply: "ok"})
	defer s.Close()

	rec := doJSON(e, http.MethodGet, "/test", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "success", body["status"])
	require.NotEmpty(t, body["timestamp"])
}

func TestChatRelay(t *testing.T) {
	mock := &mockLLM{reply: "Photosynthesis converts light into energy."}
	s, e := newTestService(newMockStore(), mock)
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/chat", `{"userId":"u1","message":"What is photosynthesis?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := map[string]string{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, mock.reply, body["text"])
}

func TestChatRelayRejectsMissingFields(t *testing.T) {
	mock := &mockLLM{reply: "unused"}
	s, e := newTestService(newMockStore(), mock)
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/chat", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/chat", `{"userId":"u1","message":"   "}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	require.Equal(t, 0, mock.calls)
}

func TestChatRelayPersistsForKnownUser(t *testing.T) {
	st := newMockStore()
	mock := &mockLLM{reply: "Mitochondria produce ATP."}
	s, e := newTestService(st, mock)
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"lee@example.com","password":"hunter2hunter2"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	userID := st.users[0].ID

	rec = doJSON(e, http.MethodPost, "/chat", `{"userId":"`+strconv.Itoa(int(userID))+`","message":"What do mitochondria do?"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, st.chats, 1)
	require.Equal(t, "What do mitochondria do?", st.chats[0].Title)
	require.Len(t, st.messages, 2)
	require.Equal(t, store.SenderUser, st.messages[0].Sender)
	require.Equal(t, mock.reply, st.messages[1].Text)

	// Unknown userId still relays, without persistence.
	rec = doJSON(e, http.MethodPost, "/chat", `{"userId":"guest-abc","message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, st.messages, 2)
}

func TestGoogleExchangeAccessTokenWithUserInfo(t *testing.T) {
	st := newMockStore()
	s, e := newTestService(st, &mockLLM{reply: "ok"})
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/auth/google", `{"accessToken":"tok","userInfo":{"sub":"g-sub","email":"ana@example.com","name":"Ana"}}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, st.users, 1)
	require.Equal(t, "g-sub", st.users[0].GoogleID)
}

func TestChatRelayUpstreamFailure(t *testing.T) {
	s, e := newTestService(newMockStore(), &mockLLM{err: errors.New("connection reset")})
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/chat", `{"userId":"u1","message":"hi"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGoogleExchange(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub": "google-sub-1", "email": "maya@example.com", "name": "Maya",
		})
	}))
	defer tokenSrv.Close()

	st := newMockStore()
	s, e := newTestService(st, &mockLLM{reply: "ok"})
	defer s.Close()
	s.Verifier = auth.NewGoogleVerifier("")
	s.Verifier.TokenInfoEndpoint = tokenSrv.URL

	rec := doJSON(e, http.MethodPost, "/auth/google", `{"idToken":"good-token"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	response := struct {
		Token string       `json:"token"`
		User  userResponse `json:"user"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.NotEmpty(t, response.Token)
	require.Equal(t, "maya@example.com", response.User.Email)
	require.Len(t, st.users, 1)
	require.Equal(t, "google-sub-1", st.users[0].GoogleID)

	// The minted token authenticates subsequent API calls.
	claims, err := auth.ValidateAccessToken(response.Token, "test-secret")
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, st.users[0].ID, userID)

	// A second exchange reuses the account.
	rec = doJSON(e, http.MethodPost, "/auth/google", `{"idToken":"good-token"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, st.users, 1)
}

func TestGoogleExchangeRejectsBadToken(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer tokenSrv.Close()

	s, e := newTestService(newMockStore(), &mockLLM{reply: "ok"})
	defer s.Close()
	s.Verifier = auth.NewGoogleVerifier("")
	s.Verifier.TokenInfoEndpoint = tokenSrv.URL

	rec := doJSON(e, http.MethodPost, "/auth/google", `{"idToken":"bad"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGoogleExchangeMissingTokens(t *testing.T) {
	s, e := newTestService(newMockStore(), &mockLLM{reply: "ok"})
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/auth/google", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignupAndLogin(t *testing.T) {
	s, e := newTestService(newMockStore(), &mockLLM{reply: "ok"})
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"lee@example.com","password":"hunter2hunter2","displayName":"Lee"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Duplicate signup is refused.
	rec = doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"lee@example.com","password":"hunter2hunter2"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Short password is refused.
	rec = doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"ana@example.com","password":"short"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/login", `{"email":"lee@example.com","password":"hunter2hunter2"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/auth/login", `{"email":"lee@example.com","password":"wrong-password"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuestSessionFlow(t *testing.T) {
	mock := &mockLLM{reply: "Gravity pulls masses together."}
	s, e := newTestService(newMockStore(), mock)
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/sessions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	session := sessionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.SessionID)
	require.NotNil(t, session.Gate)
	require.Len(t, session.Messages, 1)
	require.Nil(t, session.User)

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/messages", `{"text":"Explain gravity"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	turn := sendMessageResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &turn))
	require.Equal(t, mock.reply, turn.Reply.Text)
	require.False(t, turn.Failed)
	require.Equal(t, 1, turn.Gate.Count)

	// Blank input is a 400 and reaches no model.
	calls := mock.calls
	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/messages", `{"text":"  "}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, calls, mock.calls)

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/unknown/messages", `{"text":"hi"}`, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGuestSessionHardBlock(t *testing.T) {
	mock := &mockLLM{reply: "ok"}
	s, e := newTestService(newMockStore(), mock)
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/sessions", "", nil)
	session := sessionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	for i := 0; i < 5; i++ {
		rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/messages", `{"text":"question"}`, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/messages", `{"text":"one more"}`, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, 5, mock.calls)
}

func TestSessionSignIn(t *testing.T) {
	st := newMockStore()
	mock := &mockLLM{reply: "ok"}
	s, e := newTestService(st, mock)
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"maya@example.com","password":"hunter2hunter2","displayName":"Maya"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	signedUp := tokenResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signedUp))

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions", "", nil)
	session := sessionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/messages", `{"text":"guest question"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/signin", `{"token":"`+signedUp.Token+`"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	upgraded := sessionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upgraded))
	require.Nil(t, upgraded.Gate)
	require.NotNil(t, upgraded.User)
	// The guest transcript is discarded in favor of the durable chat.
	require.Len(t, upgraded.Messages, 1)
	require.Contains(t, upgraded.Messages[0].Text, "Maya")

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/signin", `{"token":"garbage"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPreferencesRequireAuth(t *testing.T) {
	s, e := newTestService(newMockStore(), &mockLLM{reply: "ok"})
	defer s.Close()

	rec := doJSON(e, http.MethodGet, "/api/v1/preferences", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareStoreFailure(t *testing.T) {
	st := newMockStore()
	s, e := newTestService(st, &mockLLM{reply: "ok"})
	defer s.Close()

	token, err := auth.GenerateAccessToken(1, "lee@example.com", "test-secret")
	require.NoError(t, err)

	st.userErr = errors.New("connection refused")
	rec := doJSON(e, http.MethodGet, "/api/v1/preferences", "", map[string]string{
		echo.HeaderAuthorization: "Bearer " + token,
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPreferencesRoundTrip(t *testing.T) {
	st := newMockStore()
	s, e := newTestService(st, &mockLLM{reply: "ok"})
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"lee@example.com","password":"hunter2hunter2"}`, nil)
	signedUp := tokenResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signedUp))
	authHeader := map[string]string{echo.HeaderAuthorization: "Bearer " + signedUp.Token}

	rec = doJSON(e, http.MethodPut, "/api/v1/preferences", `{"name":"Lee","classLevel":"Beginner","subjects":"Math"}`, authHeader)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/preferences", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	prefs := preferencesResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	require.Equal(t, "Lee", prefs.Name)
	require.Equal(t, "Beginner", prefs.ClassLevel)
}

func TestChatHistoryEndpoints(t *testing.T) {
	st := newMockStore()
	mock := &mockLLM{reply: "x = 3"}
	s, e := newTestService(st, mock)
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"lee@example.com","password":"hunter2hunter2","displayName":"Lee"}`, nil)
	signedUp := tokenResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signedUp))
	authHeader := map[string]string{echo.HeaderAuthorization: "Bearer " + signedUp.Token}

	// An authenticated session creates a durable chat.
	rec = doJSON(e, http.MethodPost, "/api/v1/sessions", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	session := sessionResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.Nil(t, session.Gate)

	rec = doJSON(e, http.MethodPost, "/api/v1/sessions/"+session.SessionID+"/messages", `{"text":"solve x+2=5"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/chats", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	chats := []chatResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chats))
	require.Len(t, chats, 1)
	require.Equal(t, "solve x+2=5", chats[0].Title)

	rec = doJSON(e, http.MethodGet, "/api/v1/chats/"+chats[0].UID+"/messages", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	messages := []chatMessageResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 3)
	require.Equal(t, "x = 3", messages[2].Text)
	require.False(t, messages[2].Pending)

	rec = doJSON(e, http.MethodDelete, "/api/v1/chats/"+chats[0].UID, "", authHeader)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, st.chats)
}

func TestDeleteAccount(t *testing.T) {
	st := newMockStore()
	s, e := newTestService(st, &mockLLM{reply: "ok"})
	defer s.Close()

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", `{"email":"ana@example.com","password":"hunter2hunter2","displayName":"Ana"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	signedUp := tokenResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signedUp))
	authHeader := map[string]string{echo.HeaderAuthorization: "Bearer " + signedUp.Token}

	// Seed some durable history so the cascade has something to sweep.
	rec = doJSON(e, http.MethodPost, "/api/v1/sessions", "", authHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, st.chats, 1)

	rec = doJSON(e, http.MethodDelete, "/api/v1/users/me", "", authHeader)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, st.users)
	require.Empty(t, st.chats)
	require.Empty(t, st.messages)

	// The token no longer resolves to a user.
	rec = doJSON(e, http.MethodGet, "/api/v1/chats", "", authHeader)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
