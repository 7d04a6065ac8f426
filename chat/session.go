package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/vedyxlabs/vedyx/ai/llm"
	"github.com/vedyxlabs/vedyx/internal/util"
	"github.com/vedyxlabs/vedyx/store"
)

const (
	// PendingPlaceholder is the sentinel text of the provisional AI entry
	// shown while the completion request is in flight.
	PendingPlaceholder = "Thinking..."

	// upstreamErrorText replaces the placeholder when the completion call
	// fails, so the failed turn stays inspectable in the transcript.
	upstreamErrorText = "Error communicating with AI. Please try again."

	defaultChatTitle = "New Chat"
)

var (
	// ErrBlankMessage rejects empty or whitespace-only input. Callers treat
	// this silently; it carries no user-visible error.
	ErrBlankMessage = errors.New("blank message")

	// ErrBusy rejects a send while a prior request is still in flight.
	ErrBusy = errors.New("a message is already in flight")

	// ErrSessionReplaced reports that the session was replaced (sign-in)
	// while the turn was in flight; the result was discarded.
	ErrSessionReplaced = errors.New("session replaced while request was in flight")
)

// Identity is the explicit identity value a controller is constructed or
// transitioned with. It is never read from ambient state.
type Identity struct {
	UserID      int32  `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

// Store is the persistence surface the controller needs. Implemented by
// *store.Store; tests substitute a mock.
type Store interface {
	CreateChat(ctx context.Context, create *store.Chat) (*store.Chat, error)
	ListChats(ctx context.Context, find *store.FindChat) ([]*store.Chat, error)
	UpdateChat(ctx context.Context, update *store.UpdateChat) (*store.Chat, error)
	CreateChatMessage(ctx context.Context, create *store.ChatMessage) (*store.ChatMessage, error)
	ListChatMessages(ctx context.Context, find *store.FindChatMessage) ([]*store.ChatMessage, error)
	UpdateChatMessage(ctx context.Context, update *store.UpdateChatMessage) (*store.ChatMessage, error)
	DeleteChatMessage(ctx context.Context, delete *store.DeleteChatMessage) error
}

// Config carries the conversation policy. Zero values fall back to the
// defaults the product shipped with (3/5 guest limits, 5-message window,
// 30-rune titles).
type Config struct {
	SoftLimit     int
	HardLimit     int
	ContextWindow int
	TitleLimit    int
	SystemPrompt  string
}

func (c Config) withDefaults() Config {
	if c.ContextWindow <= 0 {
		c.ContextWindow = 5
	}
	if c.TitleLimit <= 0 {
		c.TitleLimit = 30
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	return c
}

// TurnResult is the outcome of one completed conversation turn.
type TurnResult struct {
	// Reply is the resolved AI entry; on upstream failure its text is the
	// user-visible error message.
	Reply Message
	// Failed is true when the completion call failed and the reply carries
	// the error text instead of AI content.
	Failed bool
	// GateEvent is the escalation signal this turn triggered (guest only).
	GateEvent GateEvent
	// Gate is the post-turn gate snapshot; nil for authenticated sessions.
	Gate *Status
}

// Controller orchestrates the lifecycle of a single conversation for one
// visitor, anonymous or authenticated, and owns the transition between the
// two. It is the only writer of its transcript; concurrent sends are refused
// while one is in flight rather than queued.
type Controller struct {
	mu         sync.Mutex
	cfg        Config
	store      Store
	llm        llm.Service
	identity   *Identity
	gate       *Gate // nil once authenticated
	chat       *store.Chat
	transcript Transcript
	loading    bool
	storageErr error
	// generation increments when the session is replaced; a turn completing
	// under an older generation discards its result.
	generation int
}

// NewController creates a controller for an anonymous visitor. Call
// Initialize before use.
func NewController(st Store, llmService llm.Service, cfg Config) *Controller {
	cfg = cfg.withDefaults()
	return &Controller{
		cfg:   cfg,
		store: st,
		llm:   llmService,
		gate:  NewGate(cfg.SoftLimit, cfg.HardLimit),
	}
}

// Initialize prepares the session. With an identity it loads the visitor's
// most recent durable chat, creating one seeded with a welcome message when
// none exists; without one it synthesizes an in-memory session with the same
// welcome seed. Storage errors degrade the session to in-memory best-effort
// instead of failing it.
func (c *Controller) Initialize(ctx context.Context, identity *Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.identity = identity
	c.transcript.Reset()
	c.chat = nil
	c.storageErr = nil
	if identity != nil {
		// Only anonymous sessions are gated.
		c.gate = nil
	}

	if identity == nil {
		c.transcript.Append(Message{
			Sender:    store.SenderAI,
			Text:      welcomeText(nil),
			CreatedTs: time.Now().UnixMilli(),
		})
		return nil
	}

	if err := c.loadDurableLocked(ctx); err != nil {
		// Recoverable: the visitor keeps an in-memory session while the
		// store is unavailable. The chat binding is dropped too, so a
		// partially loaded chat is never written to on stale state.
		c.recordStorageErrLocked(err)
		c.chat = nil
		c.transcript.Reset()
		c.transcript.Append(Message{
			Sender:    store.SenderAI,
			Text:      welcomeText(identity),
			CreatedTs: time.Now().UnixMilli(),
		})
	}
	return nil
}

func (c *Controller) loadDurableLocked(ctx context.Context) error {
	limit := 1
	chats, err := c.store.ListChats(ctx, &store.FindChat{
		CreatorID: &c.identity.UserID,
		Limit:     &limit,
	})
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	if len(chats) == 0 {
		chat, err := c.createChatLocked(ctx)
		if err != nil {
			return err
		}
		c.chat = chat
		return nil
	}

	c.chat = chats[0]
	messages, err := c.store.ListChatMessages(ctx, &store.FindChatMessage{ChatID: &c.chat.ID})
	if err != nil {
		return fmt.Errorf("list chat messages: %w", err)
	}
	for _, m := range messages {
		c.transcript.Append(Message{
			ID:        m.ID,
			Sender:    m.Sender,
			Text:      m.Text,
			Pending:   m.Pending,
			CreatedTs: m.CreatedTs,
		})
	}
	return nil
}

func (c *Controller) createChatLocked(ctx context.Context) (*store.Chat, error) {
	now := time.Now().UnixMilli()
	chat, err := c.store.CreateChat(ctx, &store.Chat{
		UID:       shortuuid.New(),
		CreatorID: c.identity.UserID,
		Title:     defaultChatTitle,
		CreatedTs: now,
		UpdatedTs: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}

	welcome := &store.ChatMessage{
		ChatID:    chat.ID,
		Sender:    store.SenderAI,
		Text:      welcomeText(c.identity),
		CreatedTs: now,
	}
	if created, err := c.store.CreateChatMessage(ctx, welcome); err != nil {
		c.recordStorageErrLocked(fmt.Errorf("persist welcome message: %w", err))
	} else {
		welcome = created
	}
	c.transcript.Append(Message{
		ID:        welcome.ID,
		Sender:    store.SenderAI,
		Text:      welcome.Text,
		CreatedTs: now,
	})
	return chat, nil
}

// SendMessage runs one conversation turn end-to-end: gate check, optimistic
// user append, placeholder insert, completion dispatch, addressed in-place
// placeholder resolution, persistence, and guest usage accounting.
//
// Blank input and in-flight sends return ErrBlankMessage / ErrBusy without
// mutating anything; a hard-blocked guest gets ErrGateClosed before any
// network call. An upstream completion failure is not an error return: the
// turn completes with the error text in the transcript and Failed set.
func (c *Controller) SendMessage(ctx context.Context, text string) (*TurnResult, error) {
	c.mu.Lock()

	if strings.TrimSpace(text) == "" {
		c.mu.Unlock()
		return nil, ErrBlankMessage
	}
	if c.loading {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	if c.gate != nil && !c.gate.CanSend() {
		c.mu.Unlock()
		return nil, ErrGateClosed
	}

	c.loading = true
	gen := c.generation
	now := time.Now().UnixMilli()

	userMsg := Message{Sender: store.SenderUser, Text: text, CreatedTs: now}
	firstUserMessage := !c.hasUserMessageLocked()
	c.transcript.Append(userMsg)

	if c.identity != nil && c.chat != nil {
		c.persistUserMessageLocked(ctx, &userMsg, text, firstUserMessage, now)
	}

	placeholderIdx := c.transcript.Append(Message{
		Sender:    store.SenderAI,
		Text:      PendingPlaceholder,
		Pending:   true,
		CreatedTs: now,
	})
	var placeholderID int64
	if c.identity != nil && c.chat != nil {
		if created, err := c.store.CreateChatMessage(ctx, &store.ChatMessage{
			ChatID:    c.chat.ID,
			Sender:    store.SenderAI,
			Text:      PendingPlaceholder,
			Pending:   true,
			CreatedTs: now,
		}); err != nil {
			c.recordStorageErrLocked(fmt.Errorf("persist placeholder: %w", err))
		} else {
			placeholderID = created.ID
			c.transcript.messages[placeholderIdx].ID = created.ID
		}
	}

	// Context window is built from the pre-placeholder transcript: the
	// placeholder is excluded, the new user message included.
	window := BuildContext(c.cfg.SystemPrompt, c.transcript.Messages(), c.cfg.ContextWindow)

	c.mu.Unlock()

	reply, llmErr := c.llm.Chat(ctx, window)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		// The session was replaced (sign-in) while the request was in
		// flight; the transcript this turn belonged to is gone. Remove the
		// orphaned pending row so it never resurfaces in a reload.
		if placeholderID != 0 {
			if derr := c.store.DeleteChatMessage(ctx, &store.DeleteChatMessage{ID: placeholderID}); derr != nil {
				slog.Warn("failed to remove orphaned placeholder", "error", derr)
			}
		}
		return nil, ErrSessionReplaced
	}
	c.loading = false

	finalText := reply
	failed := false
	if llmErr != nil {
		slog.Warn("completion request failed", "error", llmErr)
		finalText = upstreamErrorText
		failed = true
	}

	if err := c.transcript.ReplaceAt(placeholderIdx, finalText); err != nil {
		return nil, err
	}

	if placeholderID != 0 {
		pending := false
		if _, err := c.store.UpdateChatMessage(ctx, &store.UpdateChatMessage{
			ID:      placeholderID,
			Text:    &finalText,
			Pending: &pending,
		}); err != nil {
			c.recordStorageErrLocked(fmt.Errorf("persist AI message: %w", err))
		}
	}

	result := &TurnResult{
		Reply:  c.transcript.messages[placeholderIdx],
		Failed: failed,
	}

	// Guest usage is counted per completed exchange, after the exchange,
	// not per keystroke.
	if c.gate != nil {
		event, err := c.gate.RecordMessage()
		if err != nil {
			slog.Warn("guest gate rejected usage record", "error", err)
		}
		result.GateEvent = event
		snapshot := c.gate.Snapshot()
		result.Gate = &snapshot
	}

	return result, nil
}

func (c *Controller) persistUserMessageLocked(ctx context.Context, msg *Message, text string, firstUserMessage bool, now int64) {
	created, err := c.store.CreateChatMessage(ctx, &store.ChatMessage{
		ChatID:    c.chat.ID,
		Sender:    store.SenderUser,
		Text:      text,
		CreatedTs: now,
	})
	if err != nil {
		c.recordStorageErrLocked(fmt.Errorf("persist user message: %w", err))
		return
	}
	msg.ID = created.ID
	c.transcript.messages[c.transcript.Len()-1].ID = created.ID

	if firstUserMessage {
		title := util.TruncateRunes(text, c.cfg.TitleLimit)
		if updated, err := c.store.UpdateChat(ctx, &store.UpdateChat{
			ID:        c.chat.ID,
			Title:     &title,
			UpdatedTs: &now,
		}); err != nil {
			c.recordStorageErrLocked(fmt.Errorf("retitle chat: %w", err))
		} else {
			c.chat = updated
		}
	}
}

func (c *Controller) hasUserMessageLocked() bool {
	for _, m := range c.transcript.messages {
		if m.Sender == store.SenderUser {
			return true
		}
	}
	return false
}

// TransitionToAuthenticated is called exactly once upon sign-in. The
// in-memory anonymous transcript is discarded (no merge is attempted), the
// session is re-initialized against the durable store, and the usage gate is
// permanently retired for this session lifetime.
func (c *Controller) TransitionToAuthenticated(ctx context.Context, identity Identity) error {
	c.mu.Lock()
	c.generation++
	c.gate = nil
	c.loading = false
	c.mu.Unlock()

	return c.Initialize(ctx, &identity)
}

// DismissPrompt hides the guest signup nudge. No-op for authenticated
// sessions.
func (c *Controller) DismissPrompt() {
	c.mu.Lock()
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		gate.Dismiss()
	}
}

// Messages returns a copy of the current transcript.
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript.Messages()
}

// Identity returns the current identity, nil for anonymous sessions.
func (c *Controller) Identity() *Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// GateStatus returns the guest gate snapshot, nil once authenticated.
func (c *Controller) GateStatus() *Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate == nil {
		return nil
	}
	s := c.gate.Snapshot()
	return &s
}

// ChatUID returns the durable chat identifier, empty for guest sessions.
func (c *Controller) ChatUID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chat == nil {
		return ""
	}
	return c.chat.UID
}

// Loading reports whether a turn is currently in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// StorageErr returns the last recoverable storage error, or nil. The
// conversation stays usable in memory when persistence degrades.
func (c *Controller) StorageErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.storageErr
}

func (c *Controller) recordStorageErrLocked(err error) {
	slog.Warn("storage degraded to best-effort", "error", err)
	c.storageErr = err
}

func welcomeText(identity *Identity) string {
	name := "Student"
	if identity != nil && identity.DisplayName != "" {
		name = identity.DisplayName
	}
	return fmt.Sprintf("What do you want to learn today, %s? 😊", name)
}
