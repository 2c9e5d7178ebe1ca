package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"portfolio-chat/internal/domain"
)

const (
	FeedbackStorageKey   = "feedbacks_v1"
	DefaultFeedbackLimit = 50
)

type FeedbackInput struct {
	Name    string `validate:"required,max=80"`
	Email   string `validate:"omitempty,email,max=254"`
	Message string `validate:"required,max=2000"`
	Rating  int    `validate:"omitempty,min=1,max=5"`
}

// FeedbackService stores visitor feedback alongside the chat history.
type FeedbackService struct {
	state    StateReadWriter
	validate *validator.Validate
	limit    int
	log      *slog.Logger
	now      func() time.Time
}

type FeedbackOption func(*FeedbackService)

func WithFeedbackLogger(l *slog.Logger) FeedbackOption {
	return func(s *FeedbackService) {
		if l != nil {
			s.log = l
		}
	}
}

func NewFeedbackService(s StateReadWriter, limit int, opts ...FeedbackOption) (*FeedbackService, error) {
	if s == nil {
		return nil, errors.New("usecase: state store must not be nil")
	}
	if limit <= 0 {
		limit = DefaultFeedbackLimit
	}
	svc := &FeedbackService{
		state:    s,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		limit:    limit,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Submit validates in, appends it to the stored list and returns the record.
func (s *FeedbackService) Submit(ctx context.Context, in FeedbackInput) (domain.Feedback, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if err := s.validate.Struct(in); err != nil {
		return domain.Feedback{}, newError(ErrorInvalidInput, invalidFeedbackReason(err), err)
	}

	items, err := s.List(ctx)
	if err != nil {
		return domain.Feedback{}, err
	}

	fb := domain.Feedback{
		ID:        newUUID(),
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		Rating:    in.Rating,
		CreatedAt: s.now().UTC(),
	}
	items = append(items, fb)
	if over := len(items) - s.limit; over > 0 {
		items = items[over:]
	}

	buf, err := json.Marshal(items)
	if err != nil {
		return domain.Feedback{}, newError(ErrorInternal, "feedback_encode_error", err)
	}
	if err := s.state.SetItem(ctx, FeedbackStorageKey, string(buf)); err != nil {
		return domain.Feedback{}, newError(ErrorInternal, "feedback_write_error", err)
	}
	return fb, nil
}

// List returns stored feedback oldest first. Corrupt state is logged and
// reads as empty, the same way the chat history does, so the next Submit
// replaces it.
func (s *FeedbackService) List(ctx context.Context) ([]domain.Feedback, error) {
	raw, ok, err := s.state.GetItem(ctx, FeedbackStorageKey)
	if err != nil {
		return nil, newError(ErrorInternal, "feedback_read_error", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var items []domain.Feedback
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.Warn("ignoring unreadable feedback", "key", FeedbackStorageKey, "err", err)
		return nil, nil
	}
	return items, nil
}

func invalidFeedbackReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid_feedback"
	}
	fe := verrs[0]
	return fmt.Sprintf("%s_%s", strings.ToLower(fe.Field()), fe.Tag())
}

var newUUID = func() string {
	return uuid.NewString()
}
