package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"portfolio-chat/internal/domain"
)

const (
	DefaultWelcomeMessage = "Hi! I'm Nafhan's AI assistant 🤖. Want to know about my projects, skills, or experience?"
	ApologyMessage        = "⚠️ Failed to connect to the server. Please try again in a moment."
	defaultFocusDelay     = 150 * time.Millisecond
)

// View is the rendering surface driven by ChatWidget. Implementations must
// not call back into the widget from these methods.
type View interface {
	SetPanelOpen(open bool)
	FocusInput()
	FocusToggle()
	AppendMessage(m domain.Message)
	ScrollToBottom()
	ShowTyping()
	HideTyping()
	ClearInput()
}

// Replier produces the bot answer for one user message.
type Replier interface {
	Reply(ctx context.Context, message string) (string, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type malformedResponse interface {
	MalformedResponse() bool
}

// ChatWidget owns the panel state, the bounded history and the exchange
// with the replier for one view.
type ChatWidget struct {
	view         View
	replier      Replier
	state        StateReadWriter
	log          *slog.Logger
	welcome      string
	historyLimit int
	focusDelay   time.Duration
	afterFunc    func(time.Duration, func())

	mu      sync.Mutex
	open    bool
	pending bool
	history *History
}

type WidgetOption func(*ChatWidget)

func WithLogger(l *slog.Logger) WidgetOption {
	return func(w *ChatWidget) {
		if l != nil {
			w.log = l
		}
	}
}

func WithWelcomeMessage(text string) WidgetOption {
	return func(w *ChatWidget) {
		if strings.TrimSpace(text) != "" {
			w.welcome = text
		}
	}
}

// WithHistoryLimit keeps fewer than DefaultHistoryLimit messages. Larger
// values are ignored.
func WithHistoryLimit(n int) WidgetOption {
	return func(w *ChatWidget) {
		if n > 0 && n <= DefaultHistoryLimit {
			w.historyLimit = n
		}
	}
}

// WithFocusDelay sets how long Open waits before focusing the input.
func WithFocusDelay(d time.Duration) WidgetOption {
	return func(w *ChatWidget) {
		w.focusDelay = d
	}
}

// WithScheduler replaces time.AfterFunc for delayed view work.
func WithScheduler(after func(time.Duration, func())) WidgetOption {
	return func(w *ChatWidget) {
		if after != nil {
			w.afterFunc = after
		}
	}
}

func NewChatWidget(v View, r Replier, s StateReadWriter, opts ...WidgetOption) (*ChatWidget, error) {
	if v == nil {
		return nil, errors.New("usecase: view must not be nil")
	}
	if r == nil {
		return nil, errors.New("usecase: replier must not be nil")
	}
	if s == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	w := &ChatWidget{
		view:         v,
		replier:      r,
		state:        s,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		welcome:      DefaultWelcomeMessage,
		historyLimit: DefaultHistoryLimit,
		focusDelay:   defaultFocusDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.history = NewHistory(w.historyLimit)
	return w, nil
}

func (w *ChatWidget) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.open
}

// Open shows the panel and focuses the input once the delay has passed,
// unless the panel was closed in the meantime.
func (w *ChatWidget) Open() {
	w.mu.Lock()
	if w.open {
		w.mu.Unlock()
		return
	}
	w.open = true
	w.mu.Unlock()

	w.view.SetPanelOpen(true)
	w.afterFunc(w.focusDelay, func() {
		if w.IsOpen() {
			w.view.FocusInput()
		}
	})
}

// Close hides the panel and hands focus back to the toggle control.
func (w *ChatWidget) Close() {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return
	}
	w.open = false
	w.mu.Unlock()

	w.view.SetPanelOpen(false)
	w.view.FocusToggle()
}

func (w *ChatWidget) Toggle() {
	if w.IsOpen() {
		w.Close()
		return
	}
	w.Open()
}

// LoadHistory restores the persisted history, seeding the welcome message
// when there is nothing to restore, and renders it. Unreadable state is
// logged and treated as empty.
func (w *ChatWidget) LoadHistory(ctx context.Context) []domain.Message {
	msgs, err := ReadHistory(ctx, w.state, w.historyLimit)
	if err != nil {
		w.log.Warn("ignoring unreadable chat history", "key", HistoryStorageKey, "err", err)
		msgs = nil
	}
	if len(msgs) == 0 {
		msgs = []domain.Message{{Role: domain.RoleBot, Text: w.welcome}}
	}

	w.mu.Lock()
	w.history = NewHistory(w.historyLimit, msgs...)
	w.mu.Unlock()

	for _, m := range msgs {
		w.RenderMessage(m.Role, m.Text)
	}
	return msgs
}

func (w *ChatWidget) RenderMessage(role domain.Role, text string) {
	w.view.AppendMessage(domain.Message{Role: role, Text: text})
	w.view.ScrollToBottom()
}

// History returns a snapshot of the in-memory history.
func (w *ChatWidget) History() []domain.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Messages()
}

// Submit runs one exchange for text. Blank input is ignored. Reply failures
// are rendered as an apology bubble and never returned; the only error is
// ErrorBusy when an earlier exchange has not settled yet.
func (w *ChatWidget) Submit(ctx context.Context, text string) error {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return nil
	}

	w.mu.Lock()
	if w.pending {
		w.mu.Unlock()
		return newError(ErrorBusy, "submission_pending", nil)
	}
	w.pending = true
	w.appendLocked(ctx, domain.Message{Role: domain.RoleUser, Text: msg})
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.pending = false
		w.mu.Unlock()
	}()

	w.RenderMessage(domain.RoleUser, msg)
	w.view.ClearInput()
	w.view.FocusInput()
	w.view.ShowTyping()
	w.view.ScrollToBottom()

	reply, err := w.replier.Reply(ctx, msg)
	w.view.HideTyping()
	if err != nil {
		uerr := classifyReplyError(err)
		w.log.Warn("chat exchange failed", "code", uerr.Code, "reason", uerr.Reason, "err", err)
		w.RenderMessage(domain.RoleBot, ApologyMessage)
		return nil
	}

	w.mu.Lock()
	w.appendLocked(ctx, domain.Message{Role: domain.RoleBot, Text: reply})
	w.mu.Unlock()

	w.RenderMessage(domain.RoleBot, reply)
	return nil
}

// Pending reports whether an exchange is in flight.
func (w *ChatWidget) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// appendLocked appends m and persists the whole history. Callers hold w.mu.
func (w *ChatWidget) appendLocked(ctx context.Context, m domain.Message) {
	w.history.Append(m)
	if err := writeHistory(ctx, w.state, w.history); err != nil {
		w.log.Warn("failed to persist chat history", "key", HistoryStorageKey, "err", err)
	}
}

func classifyReplyError(err error) *Error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorUpstream, "reply_cancelled", err)
	}
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		return newError(ErrorUpstream, "unexpected_status", err)
	}
	var malformed malformedResponse
	if errors.As(err, &malformed) && malformed.MalformedResponse() {
		return newError(ErrorMalformedResponse, "malformed_reply", err)
	}
	return newError(ErrorUpstream, "reply_failed", err)
}
