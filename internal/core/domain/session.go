package domain

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	// Role is "user" or "assistant".
	Role string

	// Content is the message text.
	Content string

	// Lang is the BCP 47 language tag the turn was written in.
	Lang string

	// CreatedAt is when the turn was appended.
	CreatedAt time.Time
}

// Session holds the conversation history for one logical user.
// It is owned by exactly one session identifier and discarded on
// explicit clear or idle timeout.
type Session struct {
	// ID is the session identifier supplied by the front end.
	ID string

	// Turns is the ordered history, oldest first.
	Turns []Turn

	// LastActive is when the session was last read or written,
	// used for idle expiry.
	LastActive time.Time
}

// EvictOldest trims the session to at most maxTurns turns and, when
// estimate is non-nil, to at most maxTokens estimated tokens, dropping
// the oldest turns first. Eviction is silent: exceeding the budget is
// not an error.
func (s *Session) EvictOldest(maxTurns, maxTokens int, estimate func(string) int) {
	if maxTurns > 0 && len(s.Turns) > maxTurns {
		s.Turns = s.Turns[len(s.Turns)-maxTurns:]
	}
	if maxTokens <= 0 || estimate == nil {
		return
	}
	total := 0
	for _, t := range s.Turns {
		total += estimate(t.Content)
	}
	for len(s.Turns) > 1 && total > maxTokens {
		total -= estimate(s.Turns[0].Content)
		s.Turns = s.Turns[1:]
	}
}
