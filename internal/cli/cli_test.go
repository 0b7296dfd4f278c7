package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"huda/internal/config"
	"huda/internal/domain"
	"huda/internal/duaa"
	"huda/internal/embedding/hashing"
	"huda/internal/ingest"
	"huda/internal/retrieval"
	"huda/internal/vectorstore/memory"
)

type stubGenerator struct{ reply string }

func (s stubGenerator) Generate(context.Context, string) (string, domain.GenerationMetadata, error) {
	return s.reply, domain.GenerationMetadata{Provider: "stub"}, nil
}

func setupTestApp(t *testing.T, gen domain.Generator) {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.VectorStore.DefaultVectorSize = 64
	cfg.Embedder.Dimension = 64

	logger := arbor.NewLogger()
	backend := memory.NewStorage()
	store := retrieval.NewStore(backend, retrieval.Options{DefaultVectorSize: 64}, logger)
	current = assemble(cfg, logger, backend, store, hashing.NewEmbedder(64), gen, gen)
	t.Cleanup(func() { current = nil })
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const ayahsJSON = `[
  {"id": "2:153", "text": "O you who believe, seek help through patience and prayer", "surah_number": 2, "ayah_number": 153},
  {"id": "94:5", "text": "For indeed, with hardship will be ease", "surah_number": 94, "ayah_number": 5}
]`

func TestInitAndCount(t *testing.T) {
	setupTestApp(t, nil)

	out, err := run(t, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Collections ready.")

	out, err = run(t, "count", "hadiths", "--filter", "")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, float64(0), got["count"])
}

func TestIngestSearchGetDelete(t *testing.T) {
	setupTestApp(t, nil)

	out, err := run(t, "ingest", "ayahs", writeFile(t, "ayahs.json", ayahsJSON))
	require.NoError(t, err)
	var report ingest.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, ingest.StatusOK, report.Status)
	assert.Equal(t, []string{"2:153", "94:5"}, report.InsertedIDs)

	out, err = run(t, "search", "keyword", "--collection", "ayahs", "--query", "patience", "--limit", "5", "--filter", `{"surah_number": 2}`)
	require.NoError(t, err)
	var results []domain.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "2:153", results[0].ID)

	out, err = run(t, "search", "hybrid", "--collection", "ayahs", "--query", "hardship and ease", "--filter", "")
	require.NoError(t, err)
	results = nil
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "94:5", results[0].ID)

	out, err = run(t, "get", "ayahs", "94:5")
	require.NoError(t, err)
	assert.Contains(t, out, "with hardship will be ease")

	_, err = run(t, "delete", "ayahs", "94:5")
	require.NoError(t, err)
	_, err = run(t, "get", "ayahs", "94:5")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSearch_BadInput(t *testing.T) {
	setupTestApp(t, nil)

	_, err := run(t, "search", "fuzzy", "--query", "x")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = run(t, "search", "keyword", "--query", "x", "--filter", "{not json")
	assert.ErrorContains(t, err, "invalid --filter JSON")
}

func TestDeleteRefAndDrop(t *testing.T) {
	setupTestApp(t, nil)

	path := writeFile(t, "tafseers.json", `[
		{"id": "t1", "text": "On patience", "referenced_ayahs": [{"surah_number": 2, "ayah_number": 153}]},
		{"id": "t2", "text": "On ease", "referenced_ayahs": [{"surah_number": 94, "ayah_number": 5}]}
	]`)
	_, err := run(t, "ingest", "tafseer", path)
	require.NoError(t, err)

	out, err := run(t, "delete-ref", "--surah", "2", "--ayah", "153")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, float64(1), got["deleted"])
	assert.Equal(t, "2:153", got["reference"])

	out, err = run(t, "drop", "tafseers")
	require.NoError(t, err)
	assert.Contains(t, out, "Dropped tafseers.")
	exists, err := current.store.CollectionExists(context.Background(), "tafseers")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDuaaCommands(t *testing.T) {
	setupTestApp(t, stubGenerator{reply: "Say <duaa>calm-1</duaa>."})

	_, err := run(t, "duaa", "add", "--feeling", "anxious", "--id", "calm-1", "--arabic", "حسبي الله")
	require.NoError(t, err)

	out, err := run(t, "duaa", "related", "anxious")
	require.NoError(t, err)
	var entries []duaa.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "calm-1", entries[0].ID)

	out, err = run(t, "duaa", "generate", "anxious")
	require.NoError(t, err)
	var msg duaa.Message
	require.NoError(t, json.Unmarshal([]byte(out), &msg))
	assert.Equal(t, "Say حسبي الله.", msg.Text)

	_, err = run(t, "duaa", "delete", "calm-1")
	require.NoError(t, err)
	_, err = run(t, "duaa", "delete", "calm-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDuaaGenerate_NoGenerator(t *testing.T) {
	setupTestApp(t, nil)
	_, err := run(t, "duaa", "generate", "sad")
	assert.ErrorIs(t, err, duaa.ErrNoGenerator)
}

func TestIngest_UnknownKind(t *testing.T) {
	setupTestApp(t, nil)
	_, err := run(t, "ingest", "sermons", "x.json")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter("  ")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = parseFilter(`{"surah_number": {"gte": 2}}`)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"surah_number": map[string]any{"gte": float64(2)}}, f)
}

func TestSeedDuaas_OnlyWhenEmpty(t *testing.T) {
	setupTestApp(t, nil)
	current.cfg.Duaa.Path = writeFile(t, "duaas.json", `[{"feeling": "sad", "duas": [{"id": "s-1", "arabic": "يا حي يا قيوم"}]}]`)
	ctx := context.Background()

	require.NoError(t, current.seedDuaas(ctx))
	require.NoError(t, current.duaa.DeleteDuaa(ctx, "s-1"))
	_, err := current.duaa.AddDuaa(ctx, ingest.DuaaBatch{Feeling: "sad"}, ingest.DuaEntry{ID: "s-2", Arabic: "x"})
	require.NoError(t, err)

	require.NoError(t, current.seedDuaas(ctx))
	n, err := current.store.Count(ctx, domain.CollectionDuaas, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewBackend(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	logger := arbor.NewLogger()

	cfg.VectorStore.Type = "memory"
	b, err := newBackend(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, b)

	cfg.VectorStore.Type = "badger"
	cfg.VectorStore.Badger.Path = filepath.Join(t.TempDir(), "db")
	b, err = newBackend(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	cfg.VectorStore.Type = "sqlite"
	_, err = newBackend(cfg, logger)
	assert.ErrorContains(t, err, "unknown vector store")
}
