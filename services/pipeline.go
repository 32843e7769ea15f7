package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"go.uber.org/zap"
)

const (
	VectorStoreLocal  = "local"
	VectorStoreChroma = "chroma"
)

// PipelineRequest carries the user's question into the pipeline.
type PipelineRequest struct {
	Question string `json:"question"`
}

// Invoker answers a single question.
type Invoker interface {
	Invoke(ctx context.Context, req PipelineRequest) (Output, error)
}

// PipelineObserver receives build and invocation outcomes, e.g. for metrics.
type PipelineObserver interface {
	ObserveBuild(err error)
	ObservePipeline(d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveBuild(error)                   {}
func (nopObserver) ObservePipeline(time.Duration, error) {}

// Pipeline is the composed retrieve, format, prompt, generate chain. It holds no
// mutable state, so concurrent Invoke calls are safe.
type Pipeline struct {
	retriever schema.Retriever
	prompt    PromptTemplate
	llm       *LLMAdapter
	store     vectorstores.VectorStore
	logger    *zap.Logger
}

// NewPipeline composes already constructed stages.
func NewPipeline(retriever schema.Retriever, prompt PromptTemplate, llm *LLMAdapter, logger *zap.Logger) *Pipeline {
	return &Pipeline{retriever: retriever, prompt: prompt, llm: llm, logger: logger.Named("pipeline")}
}

// Invoke retrieves passages for the question, renders them into the prompt and
// returns the model reply as a PipelineResult.
func (p *Pipeline) Invoke(ctx context.Context, req PipelineRequest) (Output, error) {
	docs, err := p.retriever.GetRelevantDocuments(ctx, req.Question)
	if err != nil {
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}
	p.logger.Debug("passages retrieved", zap.Int("count", len(docs)))

	prompt, err := p.prompt.FormatPrompt(map[string]any{
		contextSlot:  FormatDocuments(docs),
		questionSlot: req.Question,
	})
	if err != nil {
		return nil, err
	}

	answer, err := p.llm.Invoke(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return PipelineResult{Answer: answer}, nil
}

// Close releases the vector store the pipeline was built on.
func (p *Pipeline) Close() error {
	if p.store == nil {
		return nil
	}
	return closeStore(p.store)
}

// PipelineConfig is everything BuildPipeline needs.
type PipelineConfig struct {
	VectorStore      string
	IndexPath        string
	ChromaURL        string
	ChromaCollection string
	Embedder         EmbedderSettings
	LLM              LLMSettings
	K                int
}

// BuildPipeline opens the vector store, constructs the model adapter and wires
// the chain. Every step is fatal to the build.
func BuildPipeline(ctx context.Context, cfg PipelineConfig, logger *zap.Logger) (*Pipeline, error) {
	if cfg.K < 1 {
		return nil, fmt.Errorf("%w: retrieval k must be at least 1, got %d", ErrConfiguration, cfg.K)
	}

	embedder, err := NewEmbedder(ctx, cfg.Embedder)
	if err != nil {
		return nil, err
	}

	var store vectorstores.VectorStore
	switch cfg.VectorStore {
	case VectorStoreLocal:
		store, err = OpenLocalIndex(cfg.IndexPath, embedder, logger)
	case VectorStoreChroma:
		store, err = OpenChromaStore(ctx, cfg.ChromaURL, cfg.ChromaCollection, embedder, logger)
	default:
		err = fmt.Errorf("%w: %w %q", ErrConfiguration, errUnknownVectorStore, cfg.VectorStore)
	}
	if err != nil {
		return nil, err
	}

	llm, err := NewLLMAdapter(ctx, cfg.LLM, logger)
	if err != nil {
		closeStore(store)
		return nil, err
	}

	p := NewPipeline(vectorstores.ToRetriever(store, cfg.K), NewPromptTemplate(), llm, logger)
	p.store = store
	return p, nil
}

// BuildFunc produces the pipeline on first use.
type BuildFunc func(ctx context.Context) (Invoker, error)

// LazyPipeline builds the pipeline once, on first use, and shares it afterwards.
// A failed build is not remembered, so the next request tries again.
type LazyPipeline struct {
	mu       sync.Mutex
	build    BuildFunc
	pipeline Invoker
	observer PipelineObserver
	logger   *zap.Logger
}

// NewLazyPipeline defers build until the first request. A nil observer is
// replaced with a no-op.
func NewLazyPipeline(build BuildFunc, observer PipelineObserver, logger *zap.Logger) *LazyPipeline {
	if observer == nil {
		observer = nopObserver{}
	}
	return &LazyPipeline{build: build, observer: observer, logger: logger.Named("pipeline")}
}

// Get returns the shared pipeline, building it if this is the first successful call.
func (l *LazyPipeline) Get(ctx context.Context) (Invoker, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pipeline != nil {
		return l.pipeline, nil
	}

	l.logger.Info("building RAG pipeline")
	p, err := l.build(ctx)
	l.observer.ObserveBuild(err)
	if err != nil {
		l.logger.Error("failed to build RAG pipeline", zap.Error(err))
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	l.pipeline = p
	l.logger.Info("RAG pipeline ready")
	return p, nil
}

// Invoke builds the pipeline if needed and runs one request through it, reporting
// the duration and outcome to the observer.
func (l *LazyPipeline) Invoke(ctx context.Context, req PipelineRequest) (Output, error) {
	p, err := l.Get(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := p.Invoke(ctx, req)
	l.observer.ObservePipeline(time.Since(start), err)
	return out, err
}

// Ready reports whether a pipeline has been built.
func (l *LazyPipeline) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pipeline != nil
}

// Close releases the built pipeline, if any.
func (l *LazyPipeline) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.pipeline.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
