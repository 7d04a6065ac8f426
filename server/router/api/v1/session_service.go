package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/vedyxlabs/vedyx/auth"
	"github.com/vedyxlabs/vedyx/chat"
	"github.com/vedyxlabs/vedyx/store"
)

type sessionResponse struct {
	SessionID string         `json:"sessionId"`
	Messages  []chat.Message `json:"messages"`
	Gate      *chat.Status   `json:"gate,omitempty"`
	User      *userResponse  `json:"user,omitempty"`
}

// handleCreateSession opens a conversation session. With a valid Bearer
// token the session is authenticated and durable; without one it is an
// in-memory guest session behind the usage gate.
func (s *APIV1Service) handleCreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	identity, err := s.identityFromHeader(c)
	if err != nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid access token")
	}

	controller := chat.NewController(s.Store, s.LLM, s.sessionConfig())
	if err := controller.Initialize(ctx, identity); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to initialize session")
	}

	id := s.sessions.Add(controller)
	return c.JSON(http.StatusOK, s.sessionJSON(id, controller))
}

func (s *APIV1Service) handleGetSession(c echo.Context) error {
	controller, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, s.sessionJSON(c.Param("id"), controller))
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Reply     chat.Message `json:"reply"`
	Failed    bool         `json:"failed"`
	GateEvent string       `json:"gateEvent,omitempty"`
	Gate      *chat.Status `json:"gate,omitempty"`
	Nudge     string       `json:"nudge,omitempty"`
}

// handleSendMessage runs one conversation turn. An upstream completion
// failure is still a 200 with failed=true: the turn completed, the reply
// carries the error text.
func (s *APIV1Service) handleSendMessage(c echo.Context) error {
	controller, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}

	request := &sendMessageRequest{}
	if err := c.Bind(request); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed request body")
	}

	ctx := c.Request().Context()
	if err := s.completionSem.Acquire(ctx, 1); err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, "server busy")
	}
	defer s.completionSem.Release(1)

	start := time.Now()
	result, err := controller.SendMessage(ctx, request.Text)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrBlankMessage):
			return errorJSON(c, http.StatusBadRequest, "message must not be blank")
		case errors.Is(err, chat.ErrBusy):
			return errorJSON(c, http.StatusConflict, "a message is already in flight")
		case errors.Is(err, chat.ErrGateClosed):
			return errorJSON(c, http.StatusForbidden, chat.NudgeText)
		case errors.Is(err, chat.ErrSessionReplaced):
			return errorJSON(c, http.StatusConflict, "session was replaced")
		default:
			return errorJSON(c, http.StatusInternalServerError, "failed to send message")
		}
	}

	if s.Metrics != nil {
		s.Metrics.RecordChatTurn(controller.Identity() != nil, time.Since(start), !result.Failed)
		s.Metrics.RecordGateEvent(string(result.GateEvent))
	}

	response := sendMessageResponse{
		Reply:     result.Reply,
		Failed:    result.Failed,
		GateEvent: string(result.GateEvent),
		Gate:      result.Gate,
	}
	if result.GateEvent == chat.GateEventSoftPrompt {
		response.Nudge = chat.NudgeText
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIV1Service) handleDismissPrompt(c echo.Context) error {
	controller, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}
	controller.DismissPrompt()
	return c.JSON(http.StatusOK, map[string]any{"gate": controller.GateStatus()})
}

type sessionSignInRequest struct {
	Token string `json:"token"`
}

// handleSessionSignIn upgrades a guest session in place after the client
// completed an auth exchange. The guest transcript is discarded and the
// durable conversation is loaded.
func (s *APIV1Service) handleSessionSignIn(c echo.Context) error {
	controller, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "session not found")
	}

	request := &sessionSignInRequest{}
	if err := c.Bind(request); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed request body")
	}

	identity, err := s.identityFromToken(c, request.Token)
	if err != nil || identity == nil {
		return errorJSON(c, http.StatusUnauthorized, "invalid access token")
	}

	if err := controller.TransitionToAuthenticated(c.Request().Context(), *identity); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to upgrade session")
	}
	return c.JSON(http.StatusOK, s.sessionJSON(c.Param("id"), controller))
}

func (s *APIV1Service) sessionJSON(id string, controller *chat.Controller) sessionResponse {
	response := sessionResponse{
		SessionID: id,
		Messages:  controller.Messages(),
		Gate:      controller.GateStatus(),
	}
	if identity := controller.Identity(); identity != nil {
		response.User = &userResponse{
			ID:          identity.UserID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
			PhotoURL:    identity.PhotoURL,
		}
	}
	return response
}

// identityFromHeader resolves the optional Bearer token into an identity;
// nil identity with nil error means an anonymous caller.
func (s *APIV1Service) identityFromHeader(c echo.Context) (*chat.Identity, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, nil
	}
	return s.identityFromToken(c, token)
}

func (s *APIV1Service) identityFromToken(c echo.Context, token string) (*chat.Identity, error) {
	claims, err := auth.ValidateAccessToken(token, s.Secret)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, err
	}
	user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{ID: &userID})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return &chat.Identity{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		PhotoURL:    user.PhotoURL,
	}, nil
}
