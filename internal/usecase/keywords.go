package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"
)

const defaultThinkDelay = 600 * time.Millisecond

// KeywordRule maps a pattern over the lower-cased input to a canned reply.
type KeywordRule struct {
	Name    string
	Pattern *regexp.Regexp
	Reply   string
}

const (
	GreetingReply = "Hi there! I'm Nafhan's portfolio assistant. Ask me about projects, GitHub, contact details, or the CV."
	ProjectReply  = "Nafhan has built web apps, AI chatbots, and data projects. Check the Projects section for demos and write-ups."
	GitHubReply   = "You can find all of Nafhan's source code on GitHub: https://github.com/nafhan"
	ContactReply  = "You can reach Nafhan by email through the Contact section, or leave a note with the feedback form."
	CVReply       = "The latest CV is available from the Resume button at the top of the page."
	FallbackReply = "I'm running in offline mode, so I can only answer questions about projects, GitHub, contact details, or the CV."
)

// DefaultKeywordRules is the ordered rule set used in offline mode. The first
// matching rule wins.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Name: "greeting", Pattern: regexp.MustCompile(`\b(hi|hello|hey|halo|hai)\b`), Reply: GreetingReply},
		{Name: "project", Pattern: regexp.MustCompile(`project|portfolio|proyek`), Reply: ProjectReply},
		{Name: "github", Pattern: regexp.MustCompile(`github|repo`), Reply: GitHubReply},
		{Name: "contact", Pattern: regexp.MustCompile(`contact|email|kontak|reach`), Reply: ContactReply},
		{Name: "cv", Pattern: regexp.MustCompile(`\bcv\b|resume|résumé`), Reply: CVReply},
	}
}

// KeywordReplier answers without a backend by matching keyword rules after a
// fixed delay.
type KeywordReplier struct {
	rules    []KeywordRule
	fallback string
	delay    time.Duration
}

type KeywordOption func(*KeywordReplier)

func WithRules(rules []KeywordRule) KeywordOption {
	return func(r *KeywordReplier) {
		r.rules = rules
	}
}

func WithFallbackReply(text string) KeywordOption {
	return func(r *KeywordReplier) {
		r.fallback = text
	}
}

// WithThinkDelay sets the artificial delay; zero disables it.
func WithThinkDelay(d time.Duration) KeywordOption {
	return func(r *KeywordReplier) {
		r.delay = d
	}
}

func NewKeywordReplier(opts ...KeywordOption) *KeywordReplier {
	r := &KeywordReplier{
		rules:    DefaultKeywordRules(),
		fallback: FallbackReply,
		delay:    defaultThinkDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Match returns the canned reply for text without waiting.
func (r *KeywordReplier) Match(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range r.rules {
		if rule.Pattern != nil && rule.Pattern.MatchString(lower) {
			return rule.Reply
		}
	}
	return r.fallback
}

func (r *KeywordReplier) Reply(ctx context.Context, message string) (string, error) {
	if r.delay > 0 {
		t := time.NewTimer(r.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return r.Match(message), nil
}
