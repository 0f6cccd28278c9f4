package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultAnswerTokens caps generation length when the caller does not
// care.
const DefaultAnswerTokens = 1024

// ChatService answers queries grounded in ingested documents. Requests
// for the same session are serialized; a streamed answer holds the
// session until its terminal event so history stays in order.
type ChatService struct {
	retriever driving.Retriever
	router    *Router
	sessions  *SessionManager
	prompts   *PromptBuilder
	docStore  driven.DocumentStore
	topK      int
}

// NewChatService creates a new chat service.
func NewChatService(
	retriever driving.Retriever,
	router *Router,
	sessions *SessionManager,
	prompts *PromptBuilder,
	docStore driven.DocumentStore,
	topK int,
) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{
		retriever: retriever,
		router:    router,
		sessions:  sessions,
		prompts:   prompts,
		docStore:  docStore,
		topK:      topK,
	}
}

// Ask answers a query and records the exchange in the session. On
// failure nothing is appended, so the unanswered message can be retried.
func (s *ChatService) Ask(ctx context.Context, sessionID, query string, opts driving.AskOptions) (*driving.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	retrieval, turns, err := s.prepare(ctx, sessionID, query, opts)
	if err != nil {
		return nil, err
	}

	messages := s.prompts.Build(query, retrieval, turns, opts.Lang)
	text, backendName, err := s.router.Generate(ctx, messages, driven.GenerateOptions{MaxTokens: DefaultAnswerTokens}, opts.ModelPreference)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Record(ctx, sessionID, query, text, opts.Lang); err != nil {
		return nil, fmt.Errorf("recording exchange: %w", err)
	}

	return &driving.Answer{
		Text:      text,
		Citations: retrieval.Citations(),
		Grounded:  retrieval.Grounded,
		Backend:   backendName,
	}, nil
}

// AskStream answers a query, streaming fragments as they arrive.
// Citations are resolved before generation starts. The exchange is
// recorded only when the stream completes successfully.
//
// The caller must drain the returned Events channel or cancel ctx;
// the session lock is held until one of the two happens.
func (s *ChatService) AskStream(ctx context.Context, sessionID, query string, opts driving.AskOptions) (*driving.StreamHandle, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	unlock := s.sessions.Lock(sessionID)

	retrieval, turns, err := s.prepare(ctx, sessionID, query, opts)
	if err != nil {
		unlock()
		return nil, err
	}

	messages := s.prompts.Build(query, retrieval, turns, opts.Lang)
	upstream, backendName, err := s.router.GenerateStream(ctx, messages, driven.GenerateOptions{MaxTokens: DefaultAnswerTokens}, opts.ModelPreference)
	if err != nil {
		unlock()
		return nil, err
	}

	events := make(chan driven.StreamEvent)
	go func() {
		// The session lock is held until the terminal event so a second
		// request on this session cannot interleave with the stream.
		defer unlock()
		defer close(events)

		var answer strings.Builder
		completed := false

		for ev := range upstream {
			switch ev.Kind {
			case driven.EventDelta:
				answer.WriteString(ev.Delta)
			case driven.EventDone:
				completed = true
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}

		if completed {
			if err := s.sessions.Record(ctx, sessionID, query, answer.String(), opts.Lang); err != nil {
				logger.Warn("Could not record streamed exchange: %v", err)
			}
		}
	}()

	return &driving.StreamHandle{
		Citations: retrieval.Citations(),
		Grounded:  retrieval.Grounded,
		Backend:   backendName,
		Events:    events,
	}, nil
}

// prepare loads history and runs retrieval for one request.
func (s *ChatService) prepare(ctx context.Context, sessionID, query string, opts driving.AskOptions) (domain.RetrievalResult, []domain.Turn, error) {
	turns, err := s.sessions.History(ctx, sessionID)
	if err != nil {
		return domain.RetrievalResult{}, nil, fmt.Errorf("loading history: %w", err)
	}

	filter, err := s.resolveFilter(ctx, opts)
	if err != nil {
		return domain.RetrievalResult{}, nil, err
	}

	retrieval, err := s.retriever.Retrieve(ctx, query, s.topK, filter)
	if err != nil {
		return domain.RetrievalResult{}, nil, fmt.Errorf("retrieving context: %w", err)
	}
	return retrieval, turns, nil
}

// resolveFilter turns the request options into a document ID filter.
// An explicit document list wins; otherwise a named collection scopes
// retrieval to its indexed documents.
func (s *ChatService) resolveFilter(ctx context.Context, opts driving.AskOptions) ([]string, error) {
	if len(opts.DocumentIDs) > 0 {
		return opts.DocumentIDs, nil
	}
	if opts.Collection == "" {
		return nil, nil
	}

	docs, err := s.docStore.ListDocuments(ctx, opts.Collection)
	if err != nil {
		return nil, fmt.Errorf("resolving collection: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc.Status == domain.StatusIndexed {
			ids = append(ids, doc.ID)
		}
	}
	if len(ids) == 0 {
		// Nothing indexed in the collection: retrieval over an explicit
		// empty filter would mean "everything", so force no matches.
		return []string{"-"}, nil
	}
	return ids, nil
}

// History returns the session's retained turns, oldest first.
func (s *ChatService) History(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	return s.sessions.History(ctx, sessionID)
}

// Clear removes all turns for a session.
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	unlock := s.sessions.Lock(sessionID)
	defer unlock()
	return s.sessions.Clear(ctx, sessionID)
}
