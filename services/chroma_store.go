package services

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	chromaembeddings "github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"go.uber.org/zap"
)

// ChromaStore serves retrieval from a Chroma collection. Query vectors come from
// the configured embedder, never from Chroma's own embedding functions.
type ChromaStore struct {
	client     chromago.Client
	collection chromago.Collection
	embedder   embeddings.Embedder
	logger     *zap.Logger
}

var _ vectorstores.VectorStore = (*ChromaStore)(nil)

// OpenChromaStore connects to baseURL and requires an existing collection that
// already holds passages.
func OpenChromaStore(ctx context.Context, baseURL, collectionName string, embedder embeddings.Embedder, logger *zap.Logger) (*ChromaStore, error) {
	logger = logger.Named("vectorstore")

	client, err := chromago.NewHTTPClient(chromago.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create chroma client: %v", ErrStorageUnavailable, err)
	}

	// Opening must not create anything; a missing collection is reported as unavailable.
	collection, err := client.GetCollection(ctx, collectionName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to get collection %q: %v", ErrStorageUnavailable, collectionName, err)
	}

	store := &ChromaStore{client: client, collection: collection, embedder: embedder, logger: logger}
	count, err := store.Count(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}
	if count == 0 {
		store.Close()
		return nil, fmt.Errorf("%w: chroma collection %q is empty", ErrStorageUnavailable, collectionName)
	}
	logger.Info("chroma collection opened", zap.String("collection", collectionName), zap.Int("passages", count))
	return store, nil
}

func (s *ChromaStore) Count(ctx context.Context) (int, error) {
	count, err := s.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count items in collection: %v", ErrStorageUnavailable, err)
	}
	return int(count), nil
}

func (s *ChromaStore) AddDocuments(ctx context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		vector, err := s.embedder.EmbedQuery(ctx, doc.PageContent)
		if err != nil {
			return ids, fmt.Errorf("could not generate embedding for passage: %w", err)
		}

		attrs := make([]*chromago.MetaAttribute, 0, len(doc.Metadata))
		for k, v := range stringMetadata(doc.Metadata) {
			attrs = append(attrs, chromago.NewStringAttribute(k, v))
		}
		id := uuid.New().String()
		err = s.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(id)),
			chromago.WithTexts(doc.PageContent),
			chromago.WithEmbeddings(chromaembeddings.NewEmbeddingFromFloat32(vector)),
			chromago.WithMetadatas(chromago.NewDocumentMetadata(attrs...)),
		)
		if err != nil {
			return ids, fmt.Errorf("failed to add record to chromadb: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *ChromaStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, _ ...vectorstores.Option) ([]schema.Document, error) {
	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query text: %w", err)
	}

	results, err := s.collection.Query(
		ctx,
		chromago.WithQueryEmbeddings(chromaembeddings.NewEmbeddingFromFloat32(queryVector)),
		chromago.WithNResults(numDocuments),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	var docs []schema.Document
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	if len(documentGroups) == 0 {
		return docs, nil
	}
	for i, doc := range documentGroups[0] {
		if doc.ContentString() == "" {
			continue
		}
		var metadata map[string]any
		if len(metadataGroups) > 0 && len(metadataGroups[0]) > i && metadataGroups[0][i] != nil {
			// DocumentMetadata has no map accessor; round-trip it through JSON.
			if raw, err := json.Marshal(metadataGroups[0][i]); err == nil {
				if err := json.Unmarshal(raw, &metadata); err != nil {
					s.logger.Warn("could not decode passage metadata", zap.Error(err))
				}
			}
		}
		docs = append(docs, schema.Document{PageContent: doc.ContentString(), Metadata: metadata})
	}
	s.logger.Debug("retrieved passages", zap.Int("count", len(docs)))
	return docs, nil
}

func (s *ChromaStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("failed to close chroma client: %w", err)
	}
	return nil
}
