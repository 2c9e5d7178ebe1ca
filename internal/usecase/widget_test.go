package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/domain"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type mockState struct {
	mu     sync.Mutex
	items  map[string]string
	getErr error
	setErr error
	writes int
}

func newMockState() *mockState {
	return &mockState{items: map[string]string{}}
}

func (m *mockState) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *mockState) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.items[key] = value
	m.writes++
	return nil
}

func (m *mockState) stored(t *testing.T) []domain.Message {
	t.Helper()
	m.mu.Lock()
	raw := m.items[HistoryStorageKey]
	m.mu.Unlock()
	var msgs []domain.Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msgs))
	return msgs
}

func (m *mockState) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type mockReplier struct {
	mu    sync.Mutex
	reply func(message string) (string, error)
	calls []string
}

func (m *mockReplier) Reply(_ context.Context, message string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, message)
	fn := m.reply
	m.mu.Unlock()
	return fn(message)
}

func (m *mockReplier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// recordingView keeps the rendered state plus an ordered event log.
type recordingView struct {
	mu       sync.Mutex
	open     bool
	focus    string
	typing   bool
	messages []domain.Message
	events   []string
}

func (v *recordingView) log(e string) {
	v.events = append(v.events, e)
}

func (v *recordingView) SetPanelOpen(open bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.open = open
	v.log(fmt.Sprintf("panel:%t", open))
}

func (v *recordingView) FocusInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focus = "input"
	v.log("focus:input")
}

func (v *recordingView) FocusToggle() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.focus = "toggle"
	v.log("focus:toggle")
}

func (v *recordingView) AppendMessage(m domain.Message) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.messages = append(v.messages, m)
	v.log("append:" + string(m.Role) + ":" + m.Text)
}

func (v *recordingView) ScrollToBottom() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log("scroll")
}

func (v *recordingView) ShowTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = true
	v.log("typing:on")
}

func (v *recordingView) HideTyping() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.typing = false
	v.log("typing:off")
}

func (v *recordingView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log("clear")
}

func (v *recordingView) rendered() []domain.Message {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Message(nil), v.messages...)
}

func immediate(_ time.Duration, f func()) { f() }

func newTestWidget(t *testing.T, r Replier, s StateReadWriter, opts ...WidgetOption) (*ChatWidget, *recordingView) {
	t.Helper()
	v := &recordingView{}
	opts = append([]WidgetOption{WithScheduler(immediate)}, opts...)
	w, err := NewChatWidget(v, r, s, opts...)
	require.NoError(t, err)
	return w, v
}

func replyWith(text string) *mockReplier {
	return &mockReplier{reply: func(string) (string, error) { return text, nil }}
}

func user(text string) domain.Message { return domain.Message{Role: domain.RoleUser, Text: text} }
func bot(text string) domain.Message  { return domain.Message{Role: domain.RoleBot, Text: text} }

// ---------------------------------------------------------------------------
// construction
// ---------------------------------------------------------------------------

func TestNewChatWidget_ValidatesDependencies(t *testing.T) {
	v := &recordingView{}
	r := replyWith("x")
	s := newMockState()

	_, err := NewChatWidget(nil, r, s)
	require.Error(t, err)
	_, err = NewChatWidget(v, nil, s)
	require.Error(t, err)
	_, err = NewChatWidget(v, r, nil)
	require.Error(t, err)

	w, err := NewChatWidget(v, r, s)
	require.NoError(t, err)
	require.False(t, w.IsOpen())
	require.Empty(t, w.History())
}

// ---------------------------------------------------------------------------
// LoadHistory
// ---------------------------------------------------------------------------

func TestLoadHistory_EmptySeedsWelcome(t *testing.T) {
	s := newMockState()
	w, v := newTestWidget(t, replyWith("x"), s, WithWelcomeMessage("Welcome!"))

	got := w.LoadHistory(context.Background())
	require.Equal(t, []domain.Message{bot("Welcome!")}, got)
	require.Equal(t, []domain.Message{bot("Welcome!")}, v.rendered())
	require.Equal(t, []domain.Message{bot("Welcome!")}, w.History())
	require.Zero(t, s.writeCount(), "loading must not write")
}

func TestLoadHistory_UnreadableStateTreatedAsEmpty(t *testing.T) {
	cases := map[string]func(*mockState){
		"corrupt json":  func(s *mockState) { s.items[HistoryStorageKey] = `[{"role":"user",` },
		"wrong shape":   func(s *mockState) { s.items[HistoryStorageKey] = `{"role":"user"}` },
		"unknown role":  func(s *mockState) { s.items[HistoryStorageKey] = `[{"role":"admin","text":"x"}]` },
		"store failure": func(s *mockState) { s.getErr = errors.New("disk gone") },
	}
	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			s := newMockState()
			setup(s)
			w, v := newTestWidget(t, replyWith("x"), s)

			require.NotPanics(t, func() { w.LoadHistory(context.Background()) })
			require.Equal(t, []domain.Message{bot(DefaultWelcomeMessage)}, v.rendered())
		})
	}
}

func TestLoadHistory_RoundTrip(t *testing.T) {
	s := newMockState()
	r := &mockReplier{reply: func(m string) (string, error) { return "re: " + m, nil }}
	first, _ := newTestWidget(t, r, s)
	first.LoadHistory(context.Background())
	require.NoError(t, first.Submit(context.Background(), "hello"))
	require.NoError(t, first.Submit(context.Background(), "projects?"))

	second, v := newTestWidget(t, r, s)
	got := second.LoadHistory(context.Background())

	want := []domain.Message{
		bot(DefaultWelcomeMessage),
		user("hello"), bot("re: hello"),
		user("projects?"), bot("re: projects?"),
	}
	require.Equal(t, want, got)
	require.Equal(t, want, v.rendered())
	require.Equal(t, want, s.stored(t))
}

func TestLoadHistory_TruncatesOversizedState(t *testing.T) {
	var msgs []domain.Message
	for i := 0; i < 14; i++ {
		msgs = append(msgs, user(fmt.Sprintf("m%d", i)))
	}
	raw, err := json.Marshal(msgs)
	require.NoError(t, err)

	s := newMockState()
	s.items[HistoryStorageKey] = string(raw)
	w, _ := newTestWidget(t, replyWith("x"), s)

	got := w.LoadHistory(context.Background())
	require.Len(t, got, DefaultHistoryLimit)
	require.Equal(t, user("m4"), got[0])
	require.Equal(t, user("m13"), got[9])
}

// ---------------------------------------------------------------------------
// Submit
// ---------------------------------------------------------------------------

func TestSubmit_IgnoresBlankInput(t *testing.T) {
	s := newMockState()
	r := replyWith("x")
	w, v := newTestWidget(t, r, s)

	for _, in := range []string{"", "   ", "\n\t"} {
		require.NoError(t, w.Submit(context.Background(), in))
	}
	require.Empty(t, w.History())
	require.Empty(t, v.rendered())
	require.Zero(t, r.callCount())
	require.Zero(t, s.writeCount())
}

func TestSubmit_SuccessfulExchange(t *testing.T) {
	s := newMockState()
	r := replyWith("hi there")
	w, v := newTestWidget(t, r, s)

	require.NoError(t, w.Submit(context.Background(), "  hello "))

	require.Equal(t, []string{"hello"}, r.calls)
	require.Equal(t, []domain.Message{user("hello"), bot("hi there")}, s.stored(t))
	require.Equal(t, []domain.Message{user("hello"), bot("hi there")}, w.History())
	require.Equal(t, 2, s.writeCount(), "each append persists")
	require.False(t, v.typing)
	require.False(t, w.Pending())

	require.Equal(t, []string{
		"append:user:hello", "scroll",
		"clear", "focus:input",
		"typing:on", "scroll",
		"typing:off",
		"append:bot:hi there", "scroll",
	}, v.events)
}

func TestSubmit_TotalFailureRendersApologyOnly(t *testing.T) {
	s := newMockState()
	r := &mockReplier{reply: func(string) (string, error) { return "", errors.New("connection refused") }}
	w, v := newTestWidget(t, r, s)

	require.NoError(t, w.Submit(context.Background(), "test"))

	require.Equal(t, []domain.Message{user("test"), bot(ApologyMessage)}, v.rendered())
	require.Equal(t, []domain.Message{user("test")}, s.stored(t))
	require.Equal(t, []domain.Message{user("test")}, w.History())
	require.False(t, v.typing)

	// The widget stays usable after a failure.
	r.reply = func(string) (string, error) { return "back online", nil }
	require.NoError(t, w.Submit(context.Background(), "again"))
	require.Equal(t, []domain.Message{user("test"), user("again"), bot("back online")}, s.stored(t))
}

func TestSubmit_HistoryCappedAtTen(t *testing.T) {
	s := newMockState()
	r := &mockReplier{reply: func(m string) (string, error) { return "answer " + m[len("question "):], nil }}
	w, _ := newTestWidget(t, r, s)

	for i := 0; i < 15; i++ {
		require.NoError(t, w.Submit(context.Background(), fmt.Sprintf("question %d", i)))
	}

	stored := s.stored(t)
	require.Len(t, stored, 10)
	var want []domain.Message
	for i := 10; i < 15; i++ {
		want = append(want, user(fmt.Sprintf("question %d", i)), bot(fmt.Sprintf("answer %d", i)))
	}
	require.Equal(t, want, stored)
	require.Equal(t, want, w.History())
}

func TestSubmit_OversizedLimitStillCapsAtTen(t *testing.T) {
	s := newMockState()
	w, _ := newTestWidget(t, replyWith("ok"), s, WithHistoryLimit(50))

	for i := 0; i < 15; i++ {
		require.NoError(t, w.Submit(context.Background(), fmt.Sprintf("question %d", i)))
	}
	require.Len(t, s.stored(t), DefaultHistoryLimit)
	require.Len(t, w.History(), DefaultHistoryLimit)
}

func TestSubmit_OfflineKeywordReplies(t *testing.T) {
	s := newMockState()
	w, _ := newTestWidget(t, NewKeywordReplier(WithThinkDelay(0)), s)

	require.NoError(t, w.Submit(context.Background(), "Show me your GitHub"))
	require.NoError(t, w.Submit(context.Background(), "what's the weather like?"))

	require.Equal(t, []domain.Message{
		user("Show me your GitHub"), bot(GitHubReply),
		user("what's the weather like?"), bot(FallbackReply),
	}, s.stored(t))
}

func TestSubmit_RejectsOverlappingSubmission(t *testing.T) {
	s := newMockState()
	release := make(chan struct{})
	entered := make(chan struct{})
	r := &mockReplier{reply: func(string) (string, error) {
		close(entered)
		<-release
		return "done", nil
	}}
	w, v := newTestWidget(t, r, s)

	errCh := make(chan error, 1)
	go func() { errCh <- w.Submit(context.Background(), "first") }()
	<-entered
	require.True(t, w.Pending())

	err := w.Submit(context.Background(), "second")
	require.Error(t, err)
	require.Equal(t, ErrorBusy, CodeOf(err))
	require.Equal(t, 1, r.callCount())
	require.Equal(t, []domain.Message{user("first")}, s.stored(t))

	close(release)
	require.NoError(t, <-errCh)
	require.False(t, w.Pending())
	require.Equal(t, []domain.Message{user("first"), bot("done")}, v.rendered())
}

func TestSubmit_PersistFailureIsSwallowed(t *testing.T) {
	s := newMockState()
	s.setErr = errors.New("quota exceeded")
	w, v := newTestWidget(t, replyWith("still here"), s)

	require.NoError(t, w.Submit(context.Background(), "hello"))
	require.Equal(t, []domain.Message{user("hello"), bot("still here")}, v.rendered())
	require.Equal(t, []domain.Message{user("hello"), bot("still here")}, w.History())
}

// ---------------------------------------------------------------------------
// panel state
// ---------------------------------------------------------------------------

func TestToggle_TwiceRestoresInitialState(t *testing.T) {
	w, v := newTestWidget(t, replyWith("x"), newMockState())

	w.Toggle()
	require.True(t, w.IsOpen())
	require.True(t, v.open)
	require.Equal(t, "input", v.focus)

	w.Toggle()
	require.False(t, w.IsOpen())
	require.False(t, v.open)
	require.Equal(t, "toggle", v.focus)
	require.Equal(t, []string{"panel:true", "focus:input", "panel:false", "focus:toggle"}, v.events)
}

func TestOpen_FocusesAfterDelay(t *testing.T) {
	var delays []time.Duration
	var pending []func()
	sched := func(d time.Duration, f func()) {
		delays = append(delays, d)
		pending = append(pending, f)
	}
	w, v := newTestWidget(t, replyWith("x"), newMockState(), WithScheduler(sched), WithFocusDelay(40*time.Millisecond))

	w.Open()
	require.Equal(t, []time.Duration{40 * time.Millisecond}, delays)
	require.Empty(t, v.focus, "focus waits for the delay")

	pending[0]()
	require.Equal(t, "input", v.focus)
}

func TestOpen_ClosedBeforeDelaySkipsFocus(t *testing.T) {
	var pending []func()
	sched := func(_ time.Duration, f func()) { pending = append(pending, f) }
	w, v := newTestWidget(t, replyWith("x"), newMockState(), WithScheduler(sched))

	w.Open()
	w.Close()
	pending[0]()
	require.Equal(t, "toggle", v.focus)
}

func TestOpenClose_Idempotent(t *testing.T) {
	w, v := newTestWidget(t, replyWith("x"), newMockState())
	w.Close()
	require.Empty(t, v.events)
	w.Open()
	w.Open()
	require.Equal(t, []string{"panel:true", "focus:input"}, v.events)
}
