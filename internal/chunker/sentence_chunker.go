package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"huda/internal/domain"
)

// SentenceChunker splits text into sentence-based chunks with overlap.
// Texts shorter than minRunes are kept whole.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	minRunes          int
	splitter          *regexp.Regexp
}

var _ domain.Chunker = (*SentenceChunker)(nil)

func NewSentenceChunker(sentencesPerChunk, overlapSentences, minRunes int) *SentenceChunker {
	if sentencesPerChunk <= 0 {
		sentencesPerChunk = 5
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	if overlapSentences >= sentencesPerChunk {
		overlapSentences = sentencesPerChunk - 1
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		minRunes:          minRunes,
		// Latin and Arabic sentence terminators
		splitter: regexp.MustCompile(`[^.!?؟۔]+[.!?؟۔]+`),
	}
}

// Chunk returns at least one chunk for non-blank text.
func (c *SentenceChunker) Chunk(text string) []domain.Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if utf8.RuneCountInString(trimmed) < c.minRunes {
		return []domain.Chunk{{Index: 0, Text: trimmed}}
	}

	sentences := c.split(trimmed)
	var chunks []domain.Chunk
	i := 0
	for i < len(sentences) {
		end := min(i+c.sentencesPerChunk, len(sentences))
		chunks = append(chunks, domain.Chunk{
			Index: len(chunks),
			Text:  strings.Join(sentences[i:end], " "),
		})
		if end == len(sentences) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks
}

func (c *SentenceChunker) split(text string) []string {
	locs := c.splitter.FindAllStringIndex(text, -1)
	var sentences []string
	last := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(text[loc[0]:loc[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	// unterminated tail
	if s := strings.TrimSpace(text[last:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
