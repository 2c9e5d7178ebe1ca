package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"portfolio-chat/internal/domain"
)

// PlainView prints the conversation line by line for pipes and dumb
// terminals. Panel and focus changes have no visible effect.
type PlainView struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
}

func NewPlainView(out io.Writer) *PlainView {
	return &PlainView{out: out}
}

// SetQuiet suppresses output while q is true, e.g. while restoring history
// that the caller does not want echoed.
func (p *PlainView) SetQuiet(q bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quiet = q
}

func (p *PlainView) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quiet {
		return
	}
	_, _ = fmt.Fprintf(p.out, format, args...)
}

func (p *PlainView) SetPanelOpen(bool) {}
func (p *PlainView) FocusInput()       {}
func (p *PlainView) FocusToggle()      {}
func (p *PlainView) ScrollToBottom()   {}
func (p *PlainView) HideTyping()       {}
func (p *PlainView) ClearInput()       {}

func (p *PlainView) AppendMessage(m domain.Message) {
	label := "bot"
	if m.Role == domain.RoleUser {
		label = "you"
	}
	p.printf("%s> %s\n", label, m.Text)
}

func (p *PlainView) ShowTyping() {
	p.printf("bot> %s\n", typingText)
}

// RunPlain submits each input line until EOF, "exit" or "quit".
func RunPlain(ctx context.Context, w Widget, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "exit", "quit":
			return nil
		}
		if err := w.Submit(ctx, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}
