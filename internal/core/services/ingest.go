package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/chunker"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultIngestConcurrency bounds how many documents a batch processes
// at once.
const DefaultIngestConcurrency = 4

// IngestService runs the chunk -> embed -> index pipeline and keeps
// each document's status in step with how far it got.
type IngestService struct {
	chunker          *chunker.Chunker
	embeddingService driven.EmbeddingService
	vectorIndex      driven.VectorIndex
	docStore         driven.DocumentStore
	embedBatchSize   int
	concurrency      int
}

// NewIngestService creates a new ingestion service.
func NewIngestService(
	chk *chunker.Chunker,
	embeddingService driven.EmbeddingService,
	vectorIndex driven.VectorIndex,
	docStore driven.DocumentStore,
	embedBatchSize int,
	concurrency int,
) *IngestService {
	if embedBatchSize <= 0 {
		embedBatchSize = 32
	}
	if concurrency <= 0 {
		concurrency = DefaultIngestConcurrency
	}
	return &IngestService{
		chunker:          chk,
		embeddingService: embeddingService,
		vectorIndex:      vectorIndex,
		docStore:         docStore,
		embedBatchSize:   embedBatchSize,
		concurrency:      concurrency,
	}
}

// Ingest runs the full pipeline for one document. A failure at any
// stage marks the document failed with the reason and returns the
// error; the document record survives for inspection.
func (s *IngestService) Ingest(ctx context.Context, collection string, upload driving.UploadText) (*domain.Document, error) {
	logger.Section("Ingest")
	logger.Debug("File: %s, collection: %s", upload.Filename, collection)

	if strings.TrimSpace(upload.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(upload.Text) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptyDocument, upload.Filename)
	}
	if collection == "" {
		collection = "default"
	}

	version, err := s.docStore.NextVersion(ctx, collection, upload.Filename)
	if err != nil {
		return nil, fmt.Errorf("resolving version: %w", err)
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:         uuid.NewString(),
		Filename:   upload.Filename,
		Collection: collection,
		Version:    version,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("registering document: %w", err)
	}

	if err := s.process(ctx, doc, upload.Text); err != nil {
		s.markFailed(doc, err)
		return doc, err
	}

	doc.Status = domain.StatusIndexed
	logger.Info("Ingested %s v%d (%s)", doc.Filename, doc.Version, doc.ID)
	return doc, nil
}

// process runs chunking, embedding and indexing for a registered
// document, advancing its status as each stage commits.
func (s *IngestService) process(ctx context.Context, doc *domain.Document, text string) error {
	chunks := s.chunker.Split(doc.ID, text)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: no chunks produced", domain.ErrEmptyDocument)
	}
	logger.Debug("Split into %d chunks", len(chunks))

	if err := s.embedChunks(ctx, chunks); err != nil {
		return err
	}

	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("saving chunks: %w", err)
	}
	if err := s.docStore.SetStatus(ctx, doc.ID, domain.StatusChunked, ""); err != nil {
		return fmt.Errorf("marking chunked: %w", err)
	}
	doc.Status = domain.StatusChunked

	if err := s.indexChunks(ctx, doc.ID, chunks); err != nil {
		return err
	}

	if err := s.docStore.SetStatus(ctx, doc.ID, domain.StatusIndexed, ""); err != nil {
		return fmt.Errorf("marking indexed: %w", err)
	}
	return nil
}

// embedChunks fills in embeddings batch by batch.
func (s *IngestService) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	want := s.embeddingService.Dimensions()

	for start := 0; start < len(chunks); start += s.embedBatchSize {
		end := start + s.embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-start)
		for i, chunk := range chunks[start:end] {
			texts[i] = chunk.Content
		}

		vectors, err := s.embeddingService.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedding chunks %d-%d: got %d vectors for %d texts", start, end-1, len(vectors), len(texts))
		}

		for i, vec := range vectors {
			if want > 0 && len(vec) != want {
				return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
					domain.ErrDimensionMismatch, chunks[start+i].ID, len(vec), want)
			}
			chunks[start+i].Embedding = vec
		}
	}
	return nil
}

// indexChunks upserts the document's vectors as one batch.
func (s *IngestService) indexChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	entries := make([]domain.VectorEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = domain.VectorEntry{
			ChunkID:    chunk.ID,
			DocumentID: documentID,
			Vector:     chunk.Embedding,
		}
	}

	results := s.vectorIndex.Upsert(ctx, entries)
	var errs []error
	for i, err := range results {
		if err != nil {
			errs = append(errs, fmt.Errorf("chunk %s: %w", entries[i].ChunkID, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing: %w", errors.Join(errs...))
	}
	return nil
}

// markFailed records the failure reason on the document. Only a
// non-terminal document can move to failed; a late error after indexed
// leaves the terminal status alone.
func (s *IngestService) markFailed(doc *domain.Document, cause error) {
	// Status writes use a background context so a cancelled ingest still
	// records why it stopped.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.docStore.SetStatus(ctx, doc.ID, domain.StatusFailed, cause.Error()); err != nil {
		logger.Warn("Could not mark %s failed: %v", doc.ID, err)
		return
	}
	doc.Status = domain.StatusFailed
	doc.FailReason = cause.Error()
}

// IngestBatch ingests several documents with bounded concurrency.
// Per-document failures land on the document records; the returned
// error aggregates them. Cancelling ctx stops picking up new documents.
func (s *IngestService) IngestBatch(ctx context.Context, collection string, uploads []driving.UploadText) ([]*domain.Document, error) {
	logger.Section("Ingest Batch")
	logger.Debug("%d documents, concurrency %d", len(uploads), s.concurrency)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		docs = make([]*domain.Document, len(uploads))
		errs = make([]error, len(uploads))
	)
	sem := make(chan struct{}, s.concurrency)

	for i, upload := range uploads {
		if ctx.Err() != nil {
			errs[i] = ctx.Err()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(i int, upload driving.UploadText) {
			defer wg.Done()
			defer func() { <-sem }()

			doc, err := s.Ingest(ctx, collection, upload)
			mu.Lock()
			docs[i] = doc
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", upload.Filename, err)
			}
			mu.Unlock()
		}(i, upload)
	}
	wg.Wait()

	out := make([]*domain.Document, 0, len(docs))
	for _, doc := range docs {
		if doc != nil {
			out = append(out, doc)
		}
	}
	return out, errors.Join(errs...)
}

// Delete removes a document, its chunks and its vectors.
func (s *IngestService) Delete(ctx context.Context, documentID string) error {
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return err
	}

	// Vectors go first so a failure cannot leave searchable entries for
	// a document that no longer exists.
	if err := s.vectorIndex.RemoveDocument(ctx, documentID); err != nil {
		return fmt.Errorf("removing vectors: %w", err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("removing document: %w", err)
	}

	logger.Info("Deleted document %s", documentID)
	return nil
}

// Rebuild re-embeds and re-indexes every indexed document in the
// collection from stored chunk text. Documents that fail re-indexing
// are reported but do not stop the rebuild.
func (s *IngestService) Rebuild(ctx context.Context, collection string) error {
	logger.Section("Rebuild")

	docs, err := s.docStore.ListDocuments(ctx, collection)
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	var errs []error
	for _, doc := range docs {
		if doc.Status != domain.StatusIndexed {
			continue
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		chunks, err := s.docStore.GetChunks(ctx, doc.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: loading chunks: %w", doc.ID, err))
			continue
		}
		if len(chunks) == 0 {
			continue
		}

		if err := s.embedChunks(ctx, chunks); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.ID, err))
			continue
		}
		if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
			errs = append(errs, fmt.Errorf("%s: saving chunks: %w", doc.ID, err))
			continue
		}
		if err := s.indexChunks(ctx, doc.ID, chunks); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", doc.ID, err))
			continue
		}
		logger.Debug("Rebuilt %s (%d chunks)", doc.ID, len(chunks))
	}

	logger.Info("Rebuild complete for %q", collection)
	return errors.Join(errs...)
}

// List returns the documents in a collection with their statuses.
func (s *IngestService) List(ctx context.Context, collection string) ([]domain.Document, error) {
	if collection == "" {
		collection = "default"
	}
	return s.docStore.ListDocuments(ctx, collection)
}
