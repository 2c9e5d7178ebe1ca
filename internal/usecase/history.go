package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"portfolio-chat/internal/domain"
)

const (
	HistoryStorageKey   = "chatbot_history_v1"
	DefaultHistoryLimit = 10
)

// StateReadWriter is the key/value persistence shared by the chat widget and
// the feedback form. Values are opaque JSON documents.
type StateReadWriter interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
}

// History is an ordered, bounded list of messages, oldest first.
// It is not safe for concurrent use.
type History struct {
	limit    int
	messages []domain.Message
}

// NewHistory returns a History holding at most limit messages, which never
// exceeds DefaultHistoryLimit. Seed messages beyond the limit are dropped
// oldest first.
func NewHistory(limit int, seed ...domain.Message) *History {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	h := &History{limit: limit, messages: make([]domain.Message, 0, limit)}
	for _, m := range seed {
		h.Append(m)
	}
	return h
}

// Append adds m as the newest message, evicting the oldest on overflow.
func (h *History) Append(m domain.Message) {
	h.messages = append(h.messages, m)
	if over := len(h.messages) - h.limit; over > 0 {
		h.messages = append(h.messages[:0:0], h.messages[over:]...)
	}
}

// Messages returns a copy of the history in chronological order.
func (h *History) Messages() []domain.Message {
	out := make([]domain.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	return len(h.messages)
}

// ReadHistory loads the persisted history. A missing key yields an empty
// slice; corrupt JSON or unknown roles yield an error.
func ReadHistory(ctx context.Context, state StateReadWriter, limit int) ([]domain.Message, error) {
	raw, ok, err := state.GetItem(ctx, HistoryStorageKey)
	if err != nil {
		return nil, fmt.Errorf("usecase: read history: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	var msgs []domain.Message
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil, fmt.Errorf("usecase: decode history: %w", err)
	}
	for i, m := range msgs {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("usecase: decode history: record %d has unknown role %q", i, m.Role)
		}
	}
	return NewHistory(limit, msgs...).Messages(), nil
}

func writeHistory(ctx context.Context, state StateReadWriter, h *History) error {
	buf, err := json.Marshal(h.Messages())
	if err != nil {
		return fmt.Errorf("usecase: encode history: %w", err)
	}
	if err := state.SetItem(ctx, HistoryStorageKey, string(buf)); err != nil {
		return fmt.Errorf("usecase: write history: %w", err)
	}
	return nil
}
