package ui

import (
	"sync"

	"portfolio-chat/internal/domain"
)

// Focus names the control holding keyboard focus.
type Focus int

const (
	FocusNone Focus = iota
	FocusToggle
	FocusInput
)

// Screen is the render state the widget mutates. It implements
// usecase.View without blocking so it is safe to drive from inside the
// Bubble Tea update loop and from submit goroutines alike.
type Screen struct {
	mu        sync.Mutex
	open      bool
	focus     Focus
	typing    bool
	messages  []domain.Message
	clearSeq  int
	scrollSeq int
	changed   chan struct{}
}

func NewScreen() *Screen {
	return &Screen{focus: FocusToggle, changed: make(chan struct{}, 1)}
}

// screenState is an immutable copy of Screen taken for rendering.
type screenState struct {
	open      bool
	focus     Focus
	typing    bool
	messages  []domain.Message
	clearSeq  int
	scrollSeq int
}

func (s *Screen) snapshot() screenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return screenState{
		open:      s.open,
		focus:     s.focus,
		typing:    s.typing,
		messages:  append([]domain.Message(nil), s.messages...),
		clearSeq:  s.clearSeq,
		scrollSeq: s.scrollSeq,
	}
}

// Changed fires after any mutation. Bursts collapse into one signal.
func (s *Screen) Changed() <-chan struct{} {
	return s.changed
}

func (s *Screen) update(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

func (s *Screen) SetPanelOpen(open bool) {
	s.update(func() { s.open = open })
}

func (s *Screen) FocusInput() {
	s.update(func() { s.focus = FocusInput })
}

func (s *Screen) FocusToggle() {
	s.update(func() { s.focus = FocusToggle })
}

func (s *Screen) AppendMessage(m domain.Message) {
	s.update(func() { s.messages = append(s.messages, m) })
}

func (s *Screen) ScrollToBottom() {
	s.update(func() { s.scrollSeq++ })
}

func (s *Screen) ShowTyping() {
	s.update(func() { s.typing = true })
}

func (s *Screen) HideTyping() {
	s.update(func() { s.typing = false })
}

func (s *Screen) ClearInput() {
	s.update(func() { s.clearSeq++ })
}
