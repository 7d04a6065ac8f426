package v1

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/vedyxlabs/vedyx/ai/llm"
	"github.com/vedyxlabs/vedyx/auth"
	"github.com/vedyxlabs/vedyx/chat"
	"github.com/vedyxlabs/vedyx/internal/metrics"
	"github.com/vedyxlabs/vedyx/internal/profile"
	"github.com/vedyxlabs/vedyx/store"
)

// Store is the persistence surface the API handlers need. Implemented by
// *store.Store; tests substitute a mock. It is a superset of chat.Store so a
// v1 Store can back session controllers directly.
type Store interface {
	CreateUser(ctx context.Context, create *store.User) (*store.User, error)
	GetUser(ctx context.Context, find *store.FindUser) (*store.User, error)
	UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error)
	DeleteUser(ctx context.Context, delete *store.DeleteUser) error

	CreateChat(ctx context.Context, create *store.Chat) (*store.Chat, error)
	ListChats(ctx context.Context, find *store.FindChat) ([]*store.Chat, error)
	UpdateChat(ctx context.Context, update *store.UpdateChat) (*store.Chat, error)
	DeleteChat(ctx context.Context, delete *store.DeleteChat) error

	CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error)
	ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error)
	UpdateChatMessage(ctx context.Context, update *store.UpdateChatMessage) (*store.ChatMessage, error)
	DeleteChatMessage(ctx context.Context, delete *store.DeleteChatMessage) error

	UpsertUserPreferences(ctx context.Context, upsert *store.UpsertUserPreferences) (*store.UserPreferences, error)
	GetUserPreferences(ctx context.Context, find *store.FindUserPreferences) (*store.UserPreferences, error)
}

type APIV1Service struct {
	Secret   string
	Profile  *profile.Profile
	Store    Store
	LLM      llm.Service
	Verifier *auth.GoogleVerifier
	Metrics  *metrics.Exporter

	sessions      *SessionRegistry
	completionSem *semaphore.Weighted
}

// NewAPIV1Service wires the HTTP API over the store and completion service.
func NewAPIV1Service(secret string, instanceProfile *profile.Profile, st Store, llmService llm.Service, exporter *metrics.Exporter) *APIV1Service {
	s := &APIV1Service{
		Secret:   secret,
		Profile:  instanceProfile,
		Store:    st,
		LLM:      llmService,
		Verifier: auth.NewGoogleVerifier(instanceProfile.GoogleClientID),
		Metrics:  exporter,
		// Limit concurrent completion requests across all sessions.
		completionSem: semaphore.NewWeighted(8),
	}
	s.sessions = NewSessionRegistry(DefaultSessionTTL, func(n int) {
		if exporter != nil {
			exporter.SetActiveSessions(n)
		}
	})
	return s
}

func (s *APIV1Service) sessionConfig() chat.Config {
	return chat.Config{
		SoftLimit:     s.Profile.GuestSoftLimit,
		HardLimit:     s.Profile.GuestHardLimit,
		ContextWindow: s.Profile.ContextWindow,
	}
}

// RegisterRoutes attaches all API routes to the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	limited := s.rateLimitMiddleware()
	e.GET("/test", s.handleTest)
	e.POST("/chat", s.handleChatRelay, limited)
	e.POST("/auth/google", s.handleGoogleExchange, limited)

	apiV1 := e.Group("/api/v1")
	apiV1.Use(middleware.CORS())

	apiV1.POST("/auth/signup", s.handleSignup, limited)
	apiV1.POST("/auth/login", s.handleLogin, limited)

	apiV1.POST("/sessions", s.handleCreateSession)
	apiV1.GET("/sessions/:id", s.handleGetSession)
	apiV1.POST("/sessions/:id/messages", s.handleSendMessage)
	apiV1.POST("/sessions/:id/dismiss", s.handleDismissPrompt)
	apiV1.POST("/sessions/:id/signin", s.handleSessionSignIn)

	authed := apiV1.Group("", s.authMiddleware)
	authed.GET("/preferences", s.handleGetPreferences)
	authed.PUT("/preferences", s.handleUpsertPreferences)
	authed.DELETE("/users/me", s.handleDeleteCurrentUser)
	authed.GET("/chats", s.handleListChats)
	authed.POST("/chats", s.handleCreateChat)
	authed.GET("/chats/:uid/messages", s.handleListChatMessages)
	authed.DELETE("/chats/:uid", s.handleDeleteChat)
}

// Close stops background work owned by the service.
func (s *APIV1Service) Close() {
	s.sessions.Stop()
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func errorJSON(c echo.Context, code int, err string) error {
	return c.JSON(code, errorResponse{Error: err})
}

func errorJSONDetail(c echo.Context, code int, err string, detail string) error {
	return c.JSON(code, errorResponse{Error: err, Message: detail})
}
