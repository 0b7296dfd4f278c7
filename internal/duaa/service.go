// Package duaa serves the duaa workflow: seeding the collection, adding and
// deleting entries, and writing messages that cite stored duaas by id.
package duaa

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"huda/internal/domain"
	"huda/internal/ingest"
)

const contextLimit = 10

var duaaTag = regexp.MustCompile(`<duaa>(.*?)</duaa>`)

// ErrNoGenerator is returned by GenerateMessage when no provider is configured.
var ErrNoGenerator = errors.New("no generation provider configured")

// Entry is a stored duaa as presented to the generator.
type Entry struct {
	ID              string `json:"id"`
	Arabic          string `json:"arabic"`
	Transliteration string `json:"transliteration,omitempty"`
	Translation     string `json:"translation,omitempty"`
	Source          string `json:"source,omitempty"`
}

// Message is a generated reply with duaa tags already resolved.
type Message struct {
	Feeling  string                    `json:"feeling"`
	Text     string                    `json:"text"`
	Context  []Entry                   `json:"context"`
	Metadata domain.GenerationMetadata `json:"metadata"`
}

// Service implements the duaa workflow on top of the retrieval core.
type Service struct {
	store      domain.VectorStore
	ingestor   *ingest.Ingestor
	generator  domain.Generator
	collection string
	logger     arbor.ILogger
}

// NewService wires the workflow. generator may be nil when only seeding and
// maintenance are needed.
func NewService(store domain.VectorStore, ingestor *ingest.Ingestor, generator domain.Generator, collection string, logger arbor.ILogger) *Service {
	if collection == "" {
		collection = domain.CollectionDuaas
	}
	return &Service{
		store:      store,
		ingestor:   ingestor.WithDuaaCollection(collection),
		generator:  generator,
		collection: collection,
		logger:     logger,
	}
}

// Seed ensures the collection and loads path into it. Re-seeding the same
// file upserts the same ids.
func (s *Service) Seed(ctx context.Context, path string) (ingest.Report, error) {
	if _, err := s.store.Ensure(ctx, s.collection); err != nil {
		return ingest.Report{}, err
	}
	if path == "" {
		return ingest.Report{Status: ingest.StatusOK, InsertedIDs: []string{}}, nil
	}
	report, err := s.ingestor.IngestFile(ctx, domain.KindDuaa, path)
	if err != nil {
		return report, fmt.Errorf("seed duaas from %s: %w", path, err)
	}
	s.logger.Info().
		Str("path", path).
		Str("status", report.Status).
		Int("inserted", report.TotalInserted).
		Msg("Duaa collection seeded")
	return report, nil
}

// AddDuaa stores one duaa under feeling.
func (s *Service) AddDuaa(ctx context.Context, batch ingest.DuaaBatch, dua ingest.DuaEntry) (string, error) {
	return s.ingestor.AddDuaa(ctx, batch, dua)
}

// DeleteDuaa removes the duaa whose duaa_id is id.
func (s *Service) DeleteDuaa(ctx context.Context, id string) error {
	results, err := s.store.SearchByMetadata(ctx, s.collection, map[string]any{domain.KindDuaa.IDKey(): id}, 1)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return domain.NotFoundf("duaa %q", id)
	}
	if err := s.store.DeleteByID(ctx, s.collection, results[0].ID); err != nil {
		return err
	}
	s.logger.Info().Str("duaa_id", id).Msg("Duaa deleted")
	return nil
}

// Related returns up to ten stored duaas recorded for feeling.
func (s *Service) Related(ctx context.Context, feeling string) ([]Entry, error) {
	results, err := s.store.SearchByMetadata(ctx, s.collection, map[string]any{"feeling": feeling}, contextLimit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		entries = append(entries, entryFromPayload(r.Payload))
	}
	return entries, nil
}

// GenerateMessage writes a message for feeling that cites related duaas by
// tag; the tags are replaced with the stored Arabic text before returning.
func (s *Service) GenerateMessage(ctx context.Context, feeling string) (Message, error) {
	feeling = strings.TrimSpace(feeling)
	if feeling == "" {
		return Message{}, domain.Validationf("feeling is required")
	}
	if s.generator == nil {
		return Message{}, ErrNoGenerator
	}
	related, err := s.Related(ctx, feeling)
	if err != nil {
		return Message{}, err
	}
	s.logger.Info().
		Str("feeling", feeling).
		Int("context_items", len(related)).
		Msg("Generating message")

	text, meta, err := s.generator.Generate(ctx, BuildPrompt(feeling, related))
	if err != nil {
		return Message{}, fmt.Errorf("generate message: %w", err)
	}
	return Message{
		Feeling:  feeling,
		Text:     ReplaceTags(text, related),
		Context:  related,
		Metadata: meta,
	}, nil
}

// BuildPrompt renders the generation prompt for feeling and its duaas.
func BuildPrompt(feeling string, related []Entry) string {
	var b strings.Builder
	b.WriteString("You are an assistant that writes compassionate, Islamic-friendly messages.\n")
	fmt.Fprintf(&b, "The user is feeling '%s'.\n\n", feeling)
	b.WriteString("Use the following existing duaas as references to inspire your message.\n")
	b.WriteString("Each duaa has an ID. When you want to reference or embed a duaa, ")
	b.WriteString("DO NOT write or paraphrase it. Just include its ID inside <duaa></duaa> tags.\n\n")
	b.WriteString("For example:\n")
	b.WriteString("'May Allah ease your worries and bless you with peace. Repeat after me or say the duaa: <duaa>duaa123</duaa>.'\n\n")
	b.WriteString("---\n")
	if len(related) > 0 {
		b.WriteString("Here are the available duaas:\n")
		for _, e := range related {
			fmt.Fprintf(&b, "- ID: %s\n  Arabic: %s\n  Transliteration: %s\n  Translation: %s\n  Source: %s\n\n",
				e.ID, e.Arabic, e.Transliteration, e.Translation, e.Source)
		}
	}
	b.WriteString("---\nNow, write a short, warm, and faith-inspired message addressing the user's feeling.\n")
	b.WriteString("Do not return or describe any duaa text directly. Only reference duaas using <duaa></duaa> tags where appropriate.\n")
	return b.String()
}

// ReplaceTags substitutes every <duaa>ID</duaa> with the Arabic text of the
// matching entry, or "[Unknown duaa: ID]".
func ReplaceTags(text string, related []Entry) string {
	byID := make(map[string]string, len(related))
	for _, e := range related {
		byID[e.ID] = e.Arabic
	}
	return duaaTag.ReplaceAllStringFunc(text, func(tag string) string {
		id := duaaTag.FindStringSubmatch(tag)[1]
		if arabic, ok := byID[id]; ok {
			return arabic
		}
		return "[Unknown duaa: " + id + "]"
	})
}

func entryFromPayload(p map[string]any) Entry {
	str := func(key string) string {
		s, _ := p[key].(string)
		return s
	}
	return Entry{
		ID:              str(domain.KindDuaa.IDKey()),
		Arabic:          str(domain.PayloadText),
		Transliteration: str("transliteration"),
		Translation:     str("translation"),
		Source:          str("source"),
	}
}
