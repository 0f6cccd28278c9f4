package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// setupTestServices installs mock services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	oldIngest, oldChat, oldConfig := ingestService, chatService, appConfig

	ingestService = &mockIngestService{}
	chatService = &mockChatService{}

	return func() {
		ingestService = oldIngest
		chatService = oldChat
		appConfig = oldConfig
		rootCmd.SetArgs(nil)
	}
}

type mockIngestService struct {
	docs       []*domain.Document
	listDocs   []domain.Document
	ingestErr  error
	deleteErr  error
	rebuildErr error

	uploads     []driving.UploadText
	deletedIDs  []string
	rebuiltCols []string
	collection  string
}

func (m *mockIngestService) Ingest(_ context.Context, collection string, upload driving.UploadText) (*domain.Document, error) {
	m.collection = collection
	m.uploads = append(m.uploads, upload)
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	return &domain.Document{
		ID:       "doc-" + upload.Filename,
		Filename: upload.Filename,
		Version:  1,
		Status:   domain.StatusIndexed,
	}, nil
}

func (m *mockIngestService) IngestBatch(ctx context.Context, collection string, uploads []driving.UploadText) ([]*domain.Document, error) {
	var docs []*domain.Document
	for _, upload := range uploads {
		doc, err := m.Ingest(ctx, collection, upload)
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	if len(m.docs) > 0 {
		return m.docs, m.ingestErr
	}
	return docs, nil
}

func (m *mockIngestService) Delete(_ context.Context, documentID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, documentID)
	return nil
}

func (m *mockIngestService) Rebuild(_ context.Context, collection string) error {
	if m.rebuildErr != nil {
		return m.rebuildErr
	}
	m.rebuiltCols = append(m.rebuiltCols, collection)
	return nil
}

func (m *mockIngestService) List(_ context.Context, collection string) ([]domain.Document, error) {
	m.collection = collection
	return m.listDocs, nil
}

type mockChatService struct {
	answer    *driving.Answer
	handle    *driving.StreamHandle
	askErr    error
	lastQuery string
	cleared   []string
}

func (m *mockChatService) Ask(_ context.Context, _, query string, _ driving.AskOptions) (*driving.Answer, error) {
	m.lastQuery = query
	if m.askErr != nil {
		return nil, m.askErr
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &driving.Answer{Text: "mock answer", Grounded: false, Backend: "mock"}, nil
}

func (m *mockChatService) AskStream(_ context.Context, _, query string, _ driving.AskOptions) (*driving.StreamHandle, error) {
	m.lastQuery = query
	if m.askErr != nil {
		return nil, m.askErr
	}
	if m.handle != nil {
		return m.handle, nil
	}

	events := make(chan driven.StreamEvent, 2)
	events <- driven.StreamEvent{Kind: driven.EventDelta, Delta: "mock answer"}
	events <- driven.StreamEvent{Kind: driven.EventDone}
	close(events)
	return &driving.StreamHandle{Backend: "mock", Events: events}, nil
}

func (m *mockChatService) History(_ context.Context, _ string) ([]domain.Turn, error) {
	return []domain.Turn{
		{Role: domain.RoleUser, Content: "q", CreatedAt: time.Now()},
		{Role: domain.RoleAssistant, Content: "a", CreatedAt: time.Now()},
	}, nil
}

func (m *mockChatService) Clear(_ context.Context, sessionID string) error {
	m.cleared = append(m.cleared, sessionID)
	return nil
}
