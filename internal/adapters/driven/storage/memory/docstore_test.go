package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestNewDocumentStore(t *testing.T) {
	store := NewDocumentStore()
	require.NotNil(t, store)
	assert.NotNil(t, store.documents)
	assert.NotNil(t, store.chunks)
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	now := time.Now()
	doc := &domain.Document{
		ID:         "doc-1",
		Filename:   "report.pdf",
		Collection: "default",
		Version:    1,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	require.NoError(t, store.SaveDocument(ctx, doc))

	saved, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", saved.Filename)
	assert.Equal(t, domain.StatusPending, saved.Status)
}

func TestDocumentStore_SaveDocument_DuplicateID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", Status: domain.StatusPending}
	require.NoError(t, store.SaveDocument(ctx, doc))

	err := store.SaveDocument(ctx, doc)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDocumentStore_SetStatus_FollowsStateMachine(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", Status: domain.StatusPending}
	require.NoError(t, store.SaveDocument(ctx, doc))

	require.NoError(t, store.SetStatus(ctx, "doc-1", domain.StatusChunked, ""))
	require.NoError(t, store.SetStatus(ctx, "doc-1", domain.StatusIndexed, ""))

	// Indexed is terminal.
	err := store.SetStatus(ctx, "doc-1", domain.StatusFailed, "late failure")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestDocumentStore_SetStatus_RecordsFailReason(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", Status: domain.StatusPending}
	require.NoError(t, store.SaveDocument(ctx, doc))
	require.NoError(t, store.SetStatus(ctx, "doc-1", domain.StatusFailed, "no extractable text"))

	saved, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, saved.Status)
	assert.Equal(t, "no extractable text", saved.FailReason)
}

func TestDocumentStore_SetStatus_NotFound(t *testing.T) {
	store := NewDocumentStore()
	err := store.SetStatus(context.Background(), "nope", domain.StatusChunked, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ChunksRoundTrip(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	chunks := []domain.Chunk{
		{ID: "doc-1:1", DocumentID: "doc-1", Ordinal: 1, Content: "second"},
		{ID: "doc-1:0", DocumentID: "doc-1", Ordinal: 0, Content: "first"},
	}
	require.NoError(t, store.SaveChunks(ctx, chunks))

	got, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Content)
	assert.Equal(t, "second", got[1].Content)

	chunk, err := store.GetChunk(ctx, "doc-1:1")
	require.NoError(t, err)
	assert.Equal(t, "second", chunk.Content)
}

func TestDocumentStore_NextVersion(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	v, err := store.NextVersion(ctx, "default", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: "doc-1", Filename: "report.pdf", Collection: "default", Version: 1,
		Status: domain.StatusPending,
	}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: "doc-2", Filename: "report.pdf", Collection: "default", Version: 2,
		Status: domain.StatusPending,
	}))

	v, err = store.NextVersion(ctx, "default", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	// Other collections version independently.
	v, err = store.NextVersion(ctx, "other", "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestDocumentStore_ListDocuments_NewestFirst(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: "doc-old", Collection: "default", Status: domain.StatusPending, CreatedAt: old,
	}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: "doc-new", Collection: "default", Status: domain.StatusPending, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID: "doc-other", Collection: "other", Status: domain.StatusPending,
	}))

	docs, err := store.ListDocuments(ctx, "default")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-new", docs[0].ID)
	assert.Equal(t, "doc-old", docs[1].ID)
}

func TestDocumentStore_DeleteDocument(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Status: domain.StatusPending}))
	require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{{ID: "doc-1:0", DocumentID: "doc-1"}}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	got, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
