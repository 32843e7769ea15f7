package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"go.uber.org/zap"
)

// passageRecord is one embedded passage as persisted in the local index.
type passageRecord struct {
	ID        string
	Text      string
	Metadata  map[string]string
	Embedding []float32
}

// LocalIndex is a directory-backed vector index searched by exact cosine similarity.
type LocalIndex struct {
	store    *badgerhold.Store
	embedder embeddings.Embedder
	logger   *zap.Logger
}

var _ vectorstores.VectorStore = (*LocalIndex)(nil)

// OpenLocalIndex opens an existing, non-empty index directory.
func OpenLocalIndex(path string, embedder embeddings.Embedder, logger *zap.Logger) (*LocalIndex, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: index path %q: %v", ErrStorageUnavailable, path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: index path %q is not a directory", ErrStorageUnavailable, path)
	}

	index, err := openLocalIndex(path, embedder, logger)
	if err != nil {
		return nil, err
	}
	count, err := index.Count()
	if err != nil {
		index.Close()
		return nil, err
	}
	if count == 0 {
		index.Close()
		return nil, fmt.Errorf("%w: index at %q holds no passages", ErrStorageUnavailable, path)
	}
	index.logger.Info("local index opened", zap.String("path", path), zap.Int("passages", count))
	return index, nil
}

// CreateLocalIndex opens the index at path, creating the directory if needed.
// Unlike OpenLocalIndex it accepts an empty index, so passages can be added to it.
func CreateLocalIndex(path string, embedder embeddings.Embedder, logger *zap.Logger) (*LocalIndex, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	return openLocalIndex(path, embedder, logger)
}

func openLocalIndex(path string, embedder embeddings.Embedder, logger *zap.Logger) (*LocalIndex, error) {
	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open index: %v", ErrStorageUnavailable, err)
	}
	return &LocalIndex{store: store, embedder: embedder, logger: logger.Named("vectorstore")}, nil
}

// Count returns the number of stored passages.
func (x *LocalIndex) Count() (int, error) {
	count, err := x.store.Count(&passageRecord{}, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read index: %v", ErrStorageUnavailable, err)
	}
	return int(count), nil
}

// AddDocuments embeds and stores docs, returning their generated ids.
func (x *LocalIndex) AddDocuments(ctx context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.PageContent
	}
	vectors, err := x.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("could not embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	ids := make([]string, 0, len(docs))
	for i, doc := range docs {
		record := passageRecord{
			ID:        uuid.New().String(),
			Text:      doc.PageContent,
			Metadata:  stringMetadata(doc.Metadata),
			Embedding: vectors[i],
		}
		if err := x.store.Insert(record.ID, record); err != nil {
			return ids, fmt.Errorf("failed to store passage: %w", err)
		}
		ids = append(ids, record.ID)
	}
	return ids, nil
}

// SimilaritySearch embeds query and ranks every stored passage by cosine similarity.
func (x *LocalIndex) SimilaritySearch(ctx context.Context, query string, numDocuments int, _ ...vectorstores.Option) ([]schema.Document, error) {
	if numDocuments < 1 {
		return nil, fmt.Errorf("%w: numDocuments must be at least 1", ErrConfiguration)
	}
	queryVector, err := x.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	var records []passageRecord
	if err := x.store.Find(&records, nil); err != nil {
		return nil, fmt.Errorf("%w: failed to read index: %v", ErrStorageUnavailable, err)
	}

	docs := make([]schema.Document, 0, len(records))
	for _, r := range records {
		docs = append(docs, schema.Document{
			PageContent: r.Text,
			Metadata:    anyMetadata(r.Metadata),
			Score:       cosineSimilarity(queryVector, r.Embedding),
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > numDocuments {
		docs = docs[:numDocuments]
	}
	x.logger.Debug("retrieved passages", zap.Int("count", len(docs)))
	return docs, nil
}

func (x *LocalIndex) Close() error {
	if x.store == nil {
		return nil
	}
	return x.store.Close()
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func stringMetadata(in map[string]any) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = fmt.Sprint(v)
	}
	return out
}

func anyMetadata(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// closeStore releases a store if it holds resources.
func closeStore(store vectorstores.VectorStore) error {
	if c, ok := store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

var errUnknownVectorStore = errors.New("unknown vector store")
