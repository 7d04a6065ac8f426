package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/vedyxlabs/vedyx/ai/llm"
	"github.com/vedyxlabs/vedyx/chat"
	"github.com/vedyxlabs/vedyx/internal/util"
	"github.com/vedyxlabs/vedyx/store"
)

type chatRelayRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

type chatRelayResponse struct {
	Text string `json:"text"`
}

// handleChatRelay is the stateless completion relay: one user message in,
// one tutor reply out. The API key never leaves the server; clients only
// ever see this endpoint.
func (s *APIV1Service) handleChatRelay(c echo.Context) error {
	request := &chatRelayRequest{}
	if err := c.Bind(request); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed request body")
	}
	if request.UserID == "" || strings.TrimSpace(request.Message) == "" {
		return errorJSON(c, http.StatusBadRequest, "userId and message are required")
	}

	ctx := c.Request().Context()
	if err := s.completionSem.Acquire(ctx, 1); err != nil {
		return errorJSON(c, http.StatusServiceUnavailable, "server busy")
	}
	defer s.completionSem.Release(1)

	start := time.Now()
	reply, err := s.LLM.Chat(ctx, []llm.Message{
		llm.SystemPrompt(chat.DefaultSystemPrompt),
		llm.UserMessage(request.Message),
	})
	if s.Metrics != nil {
		s.Metrics.RecordLLMRequest(s.Profile.LLMModel, s.Profile.LLMProvider, time.Since(start))
	}
	if err != nil {
		slog.Error("relay completion failed", "userId", request.UserID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to get AI response")
	}

	if err := s.persistRelayExchange(ctx, request.UserID, request.Message, reply); err != nil {
		slog.Error("failed to persist relay exchange", "userId", request.UserID, "error", err)
		return errorJSON(c, http.StatusInternalServerError, "failed to save conversation")
	}

	return c.JSON(http.StatusOK, chatRelayResponse{Text: reply})
}

// persistRelayExchange appends the user/AI exchange to the caller's most
// recent chat, creating one if needed. Callers whose userId is not a known
// account relay without persistence.
func (s *APIV1Service) persistRelayExchange(ctx context.Context, userID, message, reply string) error {
	id64, err := strconv.ParseInt(userID, 10, 32)
	if err != nil {
		return nil
	}
	id := int32(id64)
	user, err := s.Store.GetUser(ctx, &store.FindUser{ID: &id})
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	now := time.Now().UnixMilli()
	limit := 1
	chats, err := s.Store.ListChats(ctx, &store.FindChat{CreatorID: &user.ID, Limit: &limit})
	if err != nil {
		return err
	}

	var target *store.Chat
	if len(chats) > 0 {
		target = chats[0]
	} else {
		target, err = s.Store.CreateChat(ctx, &store.Chat{
			UID:       shortuuid.New(),
			CreatorID: user.ID,
			Title:     util.TruncateRunes(message, 30),
			CreatedTs: now,
			UpdatedTs: now,
		})
		if err != nil {
			return err
		}
	}

	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		ChatID:    target.ID,
		Sender:    store.SenderUser,
		Text:      message,
		CreatedTs: now,
	}); err != nil {
		return err
	}
	if _, err := s.Store.CreateChatMessage(ctx, &store.ChatMessage{
		ChatID:    target.ID,
		Sender:    store.SenderAI,
		Text:      reply,
		CreatedTs: now,
	}); err != nil {
		return err
	}
	return nil
}

// handleTest is the deployment health check.
func (s *APIV1Service) handleTest(c echo.Context) error {
	clientID := s.Profile.GoogleClientID
	if len(clientID) > 8 {
		clientID = clientID[:8] + "..."
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "success",
		"message":   "Vedyx API is running!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"clientId":  clientID,
	})
}
