package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string   `yaml:"level" toml:"level"`
	Output []string `yaml:"output" toml:"output"` // "console", "file"
	// FilePath is used when "file" is among the outputs.
	FilePath string `yaml:"file_path" toml:"file_path"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL           string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env" toml:"api_key_env"`
	Model             string  `yaml:"model" toml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs" toml:"timeout_secs"`
	BatchSize         int     `yaml:"batch_size" toml:"batch_size"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
}

// GeminiConfig is shared by the Gemini embedder and generator.
type GeminiConfig struct {
	APIKeyEnv   string  `yaml:"api_key_env" toml:"api_key_env"`
	Model       string  `yaml:"model" toml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs"`
	Temperature float32 `yaml:"temperature" toml:"temperature"`
}

// ClaudeConfig configures the Anthropic generator.
type ClaudeConfig struct {
	APIKeyEnv   string  `yaml:"api_key_env" toml:"api_key_env"`
	Model       string  `yaml:"model" toml:"model"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs" toml:"timeout_secs"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type string `yaml:"type" toml:"type"` // hashing, openai, gemini
	// Dimension must equal vector_store.default_vector_size for
	// collections created lazily.
	Dimension int                   `yaml:"dimension" toml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
	Gemini    *GeminiConfig         `yaml:"gemini,omitempty" toml:"gemini,omitempty"`
}

// OpenAIGeneratorConfig configures chat completions against an
// OpenAI-compatible endpoint.
type OpenAIGeneratorConfig struct {
	BaseURL           string  `yaml:"base_url" toml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env" toml:"api_key_env"`
	Model             string  `yaml:"model" toml:"model"`
	MaxTokens         int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature       float64 `yaml:"temperature" toml:"temperature"`
	TimeoutSecs       int     `yaml:"timeout_secs" toml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
}

// GeneratorConfig selects the text generation provider.
type GeneratorConfig struct {
	Type   string                 `yaml:"type" toml:"type"` // none, openai, gemini, claude
	OpenAI *OpenAIGeneratorConfig `yaml:"openai,omitempty" toml:"openai,omitempty"`
	Gemini *GeminiConfig          `yaml:"gemini,omitempty" toml:"gemini,omitempty"`
	Claude *ClaudeConfig          `yaml:"claude,omitempty" toml:"claude,omitempty"`
}

// ChunkerConfig configures how long texts are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" toml:"type"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" toml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences" toml:"overlap_sentences"`
	// MinRunes leaves texts shorter than this as a single point.
	MinRunes int `yaml:"min_runes" toml:"min_runes"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type              string        `yaml:"type" toml:"type"` // memory, qdrant, badger
	DefaultVectorSize int           `yaml:"default_vector_size" toml:"default_vector_size"`
	Distance          string        `yaml:"distance" toml:"distance"`
	TimeoutSecs       int           `yaml:"timeout_secs" toml:"timeout_secs"`
	Qdrant            *QdrantConfig `yaml:"qdrant,omitempty" toml:"qdrant,omitempty"`
	Badger            *BadgerConfig `yaml:"badger,omitempty" toml:"badger,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL       string `yaml:"url" toml:"url"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
}

// BadgerConfig points at the embedded store directory.
type BadgerConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// RetrievalConfig tunes search and maintenance.
type RetrievalConfig struct {
	KeywordPageSize   int `yaml:"keyword_page_size" toml:"keyword_page_size"`
	ReferencePageSize int `yaml:"reference_page_size" toml:"reference_page_size"`
	DefaultLimit      int `yaml:"default_limit" toml:"default_limit"`
}

// DuaaConfig configures duaa seeding.
type DuaaConfig struct {
	// Path is an optional JSON file seeded into the collection on startup.
	Path       string `yaml:"path" toml:"path"`
	Collection string `yaml:"collection" toml:"collection"`
}

// QuranConfig points at the public verse text and recitation APIs.
type QuranConfig struct {
	TextURL        string `yaml:"text_url" toml:"text_url"`
	AudioURL       string `yaml:"audio_url" toml:"audio_url"`
	ArabicEdition  string `yaml:"arabic_edition" toml:"arabic_edition"`
	EnglishEdition string `yaml:"english_edition" toml:"english_edition"`
	TimeoutSecs    int    `yaml:"timeout_secs" toml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval" toml:"retrieval"`
	Embedder    EmbedderConfig    `yaml:"embedder" toml:"embedder"`
	Generator   GeneratorConfig   `yaml:"generator" toml:"generator"`
	Chunker     ChunkerConfig     `yaml:"chunker" toml:"chunker"`
	Duaa        DuaaConfig        `yaml:"duaa" toml:"duaa"`
	Quran       QuranConfig       `yaml:"quran" toml:"quran"`
}

// StoreTimeout is the per-call backend timeout.
func (c *AppConfig) StoreTimeout() time.Duration {
	return time.Duration(c.VectorStore.TimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	cfg := &AppConfig{}
	if isTOML(path) {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml and ./config.toml first, then ~/.config/huda/config.yaml.
// If none exists, it writes defaults to ~/.config/huda/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	for _, cwdPath := range []string{"config.yaml", "config.toml"} {
		if _, err := os.Stat(cwdPath); err == nil {
			cfg, err := Load(cwdPath)
			return cfg, cwdPath, err
		}
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	switch c.VectorStore.Type {
	case "memory", "qdrant", "badger":
	default:
		return fmt.Errorf("unknown vector store: %s", c.VectorStore.Type)
	}
	switch c.Embedder.Type {
	case "hashing", "openai", "gemini":
	default:
		return fmt.Errorf("unknown embedder: %s", c.Embedder.Type)
	}
	switch c.Generator.Type {
	case "none", "openai", "gemini", "claude":
	default:
		return fmt.Errorf("unknown generator: %s", c.Generator.Type)
	}
	if c.Embedder.Dimension != c.VectorStore.DefaultVectorSize {
		return fmt.Errorf("embedder.dimension (%d) must match vector_store.default_vector_size (%d)",
			c.Embedder.Dimension, c.VectorStore.DefaultVectorSize)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "huda", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if len(cfg.Logging.Output) == 0 {
		cfg.Logging.Output = []string{"console"}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "badger"
	}
	if cfg.VectorStore.DefaultVectorSize == 0 {
		cfg.VectorStore.DefaultVectorSize = 512
	}
	if cfg.VectorStore.Distance == "" {
		cfg.VectorStore.Distance = "Cosine"
	}
	if cfg.VectorStore.TimeoutSecs == 0 {
		cfg.VectorStore.TimeoutSecs = 30
	}
	if cfg.Retrieval.KeywordPageSize == 0 {
		cfg.Retrieval.KeywordPageSize = 512
	}
	if cfg.Retrieval.ReferencePageSize == 0 {
		cfg.Retrieval.ReferencePageSize = 1000
	}
	if cfg.Retrieval.DefaultLimit == 0 {
		cfg.Retrieval.DefaultLimit = 10
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
	}
	if cfg.VectorStore.Type == "badger" {
		if cfg.VectorStore.Badger == nil {
			cfg.VectorStore.Badger = &BadgerConfig{}
		}
		if cfg.VectorStore.Badger.Path == "" {
			cfg.VectorStore.Badger.Path = "./data/huda"
		}
	}
	if cfg.Quran.TextURL == "" {
		cfg.Quran.TextURL = "https://api.alquran.cloud/v1"
	}
	if cfg.Quran.AudioURL == "" {
		cfg.Quran.AudioURL = "https://quranapi.pages.dev/api"
	}
	if cfg.Quran.ArabicEdition == "" {
		cfg.Quran.ArabicEdition = "quran-uthmani"
	}
	if cfg.Quran.EnglishEdition == "" {
		cfg.Quran.EnglishEdition = "en.asad"
	}
	if cfg.Quran.TimeoutSecs == 0 {
		cfg.Quran.TimeoutSecs = 10
	}
	if cfg.Chunker.Type == "" {
		cfg.Chunker.Type = "sentence"
		if cfg.Chunker.OverlapSentences == 0 {
			cfg.Chunker.OverlapSentences = 1
		}
	}
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Chunker.MinRunes == 0 {
		cfg.Chunker.MinRunes = 1200
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = cfg.VectorStore.DefaultVectorSize
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiConfig{}
		}
		geminiDefaults(cfg.Embedder.Gemini, "gemini-embedding-001")
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "none"
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIGeneratorConfig{}
		}
		o := cfg.Generator.OpenAI
		if o.BaseURL == "" {
			o.BaseURL = "https://api.openai.com/v1"
		}
		if o.APIKeyEnv == "" {
			o.APIKeyEnv = "OPENAI_API_KEY"
		}
		if o.Model == "" {
			o.Model = "gpt-4.1-mini"
		}
		if o.TimeoutSecs == 0 {
			o.TimeoutSecs = 60
		}
	}
	if cfg.Generator.Type == "gemini" {
		if cfg.Generator.Gemini == nil {
			cfg.Generator.Gemini = &GeminiConfig{}
		}
		geminiDefaults(cfg.Generator.Gemini, "gemini-2.0-flash")
	}
	if cfg.Generator.Type == "claude" {
		if cfg.Generator.Claude == nil {
			cfg.Generator.Claude = &ClaudeConfig{}
		}
		c := cfg.Generator.Claude
		if c.APIKeyEnv == "" {
			c.APIKeyEnv = "ANTHROPIC_API_KEY"
		}
		if c.Model == "" {
			c.Model = "claude-sonnet-4-20250514"
		}
		if c.MaxTokens == 0 {
			c.MaxTokens = 8192
		}
		if c.TimeoutSecs == 0 {
			c.TimeoutSecs = 60
		}
	}
	if cfg.Duaa.Collection == "" {
		cfg.Duaa.Collection = "duaas"
	}
}

func geminiDefaults(g *GeminiConfig, model string) {
	if g.APIKeyEnv == "" {
		g.APIKeyEnv = "GOOGLE_API_KEY"
	}
	if g.Model == "" {
		g.Model = model
	}
	if g.TimeoutSecs == 0 {
		g.TimeoutSecs = 30
	}
}
