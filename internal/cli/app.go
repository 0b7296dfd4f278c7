package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"

	"huda/internal/chunker"
	"huda/internal/config"
	"huda/internal/domain"
	"huda/internal/duaa"
	"huda/internal/embedding"
	"huda/internal/generation"
	"huda/internal/ingest"
	"huda/internal/quran"
	"huda/internal/retrieval"
	"huda/internal/service"
	"huda/internal/vectorstore"
	"huda/internal/vectorstore/badger"
	"huda/internal/vectorstore/memory"
	"huda/internal/vectorstore/qdrant"
)

// duaaSystemPrompt frames every duaa message generation.
const duaaSystemPrompt = "You write short, compassionate messages grounded in Islamic tradition. " +
	"Never invent or quote a duaa; cite the provided ones only by their <duaa></duaa> tag."

// app holds the components one command invocation works with.
type app struct {
	cfg      *config.AppConfig
	logger   arbor.ILogger
	backend  vectorstore.Storage
	store    *retrieval.Store
	embedder domain.Embedder
	search   *service.SearchService
	ingestor *ingest.Ingestor
	duaa     *duaa.Service
	// chat answers free prompts without the duaa framing; nil when no
	// generator is configured.
	chat  domain.Generator
	quran *quran.Client
}

func newApp(ctx context.Context, cfg *config.AppConfig, logger arbor.ILogger) (*app, error) {
	backend, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(ctx, cfg.Embedder, logger)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	gen, err := generation.New(ctx, cfg.Generator, duaaSystemPrompt, logger)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("generator init failed: %w", err)
	}
	chat, err := generation.New(ctx, cfg.Generator, "", logger)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("chat generator init failed: %w", err)
	}
	distance, err := domain.ParseDistance(cfg.VectorStore.Distance)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	store := retrieval.NewStore(backend, retrieval.Options{
		DefaultVectorSize: cfg.VectorStore.DefaultVectorSize,
		DefaultDistance:   distance,
		KeywordPageSize:   cfg.Retrieval.KeywordPageSize,
		ReferencePageSize: cfg.Retrieval.ReferencePageSize,
		DefaultLimit:      cfg.Retrieval.DefaultLimit,
		Timeout:           cfg.StoreTimeout(),
	}, logger)
	return assemble(cfg, logger, backend, store, emb, gen, chat), nil
}

// assemble wires the services around an existing store.
func assemble(cfg *config.AppConfig, logger arbor.ILogger, backend vectorstore.Storage, store *retrieval.Store, emb domain.Embedder, gen, chat domain.Generator) *app {
	var ch domain.Chunker
	if cfg.Chunker.Type == "sentence" {
		ch = chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences, cfg.Chunker.MinRunes)
	}
	in := ingest.NewIngestor(store, emb, ch, logger).WithDuaaCollection(cfg.Duaa.Collection)
	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		store:    store,
		embedder: emb,
		search:   service.NewSearchService(store, emb, logger),
		ingestor: in,
		duaa:     duaa.NewService(store, ingest.NewIngestor(store, emb, nil, logger), gen, cfg.Duaa.Collection, logger),
		chat:     chat,
		quran: quran.NewClient(quran.Config{
			TextURL:        cfg.Quran.TextURL,
			AudioURL:       cfg.Quran.AudioURL,
			ArabicEdition:  cfg.Quran.ArabicEdition,
			EnglishEdition: cfg.Quran.EnglishEdition,
			Timeout:        time.Duration(cfg.Quran.TimeoutSecs) * time.Second,
		}, logger),
	}
}

func newBackend(cfg *config.AppConfig, logger arbor.ILogger) (vectorstore.Storage, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "qdrant":
		q := cfg.VectorStore.Qdrant
		apiKey := ""
		if q.APIKeyEnv != "" {
			apiKey = os.Getenv(q.APIKeyEnv)
		}
		return qdrant.NewStorage(qdrant.Config{
			URL:     q.URL,
			APIKey:  apiKey,
			Timeout: cfg.StoreTimeout(),
		}), nil
	case "badger":
		st, err := badger.Open(badger.Config{Path: cfg.VectorStore.Badger.Path}, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	return nil, fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
}

// seedDuaas loads the configured duaa file into an empty collection.
func (a *app) seedDuaas(ctx context.Context) error {
	if a.cfg.Duaa.Path == "" {
		return nil
	}
	n, err := a.store.Count(ctx, a.cfg.Duaa.Collection, nil)
	if err != nil {
		return err
	}
	if n > 0 {
		a.logger.Debug().Int("points", n).Msg("Duaa collection already populated, skipping seed")
		return nil
	}
	_, err = a.duaa.Seed(ctx, a.cfg.Duaa.Path)
	return err
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	return a.backend.Close()
}
