package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/vedyxlabs/vedyx/store"
)

type preferencesResponse struct {
	Name       string `json:"name"`
	ClassLevel string `json:"classLevel"`
	Subjects   string `json:"subjects"`
	Interests  string `json:"interests"`
}

func (s *APIV1Service) handleGetPreferences(c echo.Context) error {
	user := currentUser(c)
	prefs, err := s.Store.GetUserPreferences(c.Request().Context(), &store.FindUserPreferences{UserID: user.ID})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to load preferences")
	}
	if prefs == nil {
		return c.JSON(http.StatusOK, preferencesResponse{})
	}
	return c.JSON(http.StatusOK, preferencesResponse{
		Name:       prefs.Name,
		ClassLevel: prefs.ClassLevel,
		Subjects:   prefs.Subjects,
		Interests:  prefs.Interests,
	})
}

type upsertPreferencesRequest struct {
	Name       *string `json:"name"`
	ClassLevel *string `json:"classLevel"`
	Subjects   *string `json:"subjects"`
	Interests  *string `json:"interests"`
}

func (s *APIV1Service) handleUpsertPreferences(c echo.Context) error {
	user := currentUser(c)
	request := &upsertPreferencesRequest{}
	if err := c.Bind(request); err != nil {
		return errorJSON(c, http.StatusBadRequest, "malformed request body")
	}

	prefs, err := s.Store.UpsertUserPreferences(c.Request().Context(), &store.UpsertUserPreferences{
		UserID:     user.ID,
		Name:       request.Name,
		ClassLevel: request.ClassLevel,
		Subjects:   request.Subjects,
		Interests:  request.Interests,
		UpdatedTs:  time.Now().UnixMilli(),
	})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to save preferences")
	}
	return c.JSON(http.StatusOK, preferencesResponse{
		Name:       prefs.Name,
		ClassLevel: prefs.ClassLevel,
		Subjects:   prefs.Subjects,
		Interests:  prefs.Interests,
	})
}

// handleDeleteCurrentUser removes the caller's account. Chats, messages and
// preferences go with it through the schema's cascade rules.
func (s *APIV1Service) handleDeleteCurrentUser(c echo.Context) error {
	user := currentUser(c)
	if err := s.Store.DeleteUser(c.Request().Context(), &store.DeleteUser{ID: user.ID}); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to delete account")
	}
	return c.NoContent(http.StatusNoContent)
}

type chatResponse struct {
	UID       string `json:"uid"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"createdTs"`
	UpdatedTs int64  `json:"updatedTs"`
}

func (s *APIV1Service) handleListChats(c echo.Context) error {
	user := currentUser(c)
	chats, err := s.Store.ListChats(c.Request().Context(), &store.FindChat{CreatorID: &user.ID})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to list chats")
	}

	response := make([]chatResponse, 0, len(chats))
	for _, ch := range chats {
		response = append(response, chatResponse{
			UID:       ch.UID,
			Title:     ch.Title,
			CreatedTs: ch.CreatedTs,
			UpdatedTs: ch.UpdatedTs,
		})
	}
	return c.JSON(http.StatusOK, response)
}

// handleCreateChat starts a fresh durable chat for the caller. The next
// session the user opens binds to it, since sessions resume the most recent
// chat.
func (s *APIV1Service) handleCreateChat(c echo.Context) error {
	user := currentUser(c)
	now := time.Now().UnixMilli()
	ch, err := s.Store.CreateChat(c.Request().Context(), &store.Chat{
		UID:       shortuuid.New(),
		CreatorID: user.ID,
		Title:     "New Chat",
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to create chat")
	}
	return c.JSON(http.StatusOK, chatResponse{
		UID:       ch.UID,
		Title:     ch.Title,
		CreatedTs: ch.CreatedTs,
		UpdatedTs: ch.UpdatedTs,
	})
}

type chatMessageResponse struct {
	ID        int64  `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Pending   bool   `json:"pending,omitempty"`
	CreatedTs int64  `json:"timestamp"`
}

func (s *APIV1Service) handleListChatMessages(c echo.Context) error {
	user := currentUser(c)
	ch, err := s.findOwnedChat(c, user)
	if ch == nil {
		return err
	}

	messages, err := s.Store.ListChatMessages(c.Request().Context(), &store.FindChatMessage{ChatID: &ch.ID})
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to list messages")
	}

	response := make([]chatMessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, chatMessageResponse{
			ID:        m.ID,
			Sender:    string(m.Sender),
			Text:      m.Text,
			Pending:   m.Pending,
			CreatedTs: m.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, response)
}

func (s *APIV1Service) handleDeleteChat(c echo.Context) error {
	user := currentUser(c)
	ch, err := s.findOwnedChat(c, user)
	if ch == nil {
		return err
	}

	if err := s.Store.DeleteChat(c.Request().Context(), &store.DeleteChat{ID: ch.ID}); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to delete chat")
	}
	return c.NoContent(http.StatusNoContent)
}

// findOwnedChat resolves :uid to a chat owned by the caller. On failure it
// writes the error response itself and returns a nil chat; callers return
// the accompanying error value as-is.
func (s *APIV1Service) findOwnedChat(c echo.Context, user *store.User) (*store.Chat, error) {
	uid := c.Param("uid")
	chats, err := s.Store.ListChats(c.Request().Context(), &store.FindChat{UID: &uid, CreatorID: &user.ID})
	if err != nil {
		return nil, errorJSON(c, http.StatusInternalServerError, "failed to load chat")
	}
	if len(chats) == 0 {
		return nil, errorJSON(c, http.StatusNotFound, "chat not found")
	}
	return chats[0], nil
}
