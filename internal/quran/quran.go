// Package quran looks up single ayahs and their recitations on the public
// alquran.cloud and quranapi.pages.dev APIs.
package quran

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"huda/internal/domain"
)

const (
	DefaultTextURL        = "https://api.alquran.cloud/v1"
	DefaultAudioURL       = "https://quranapi.pages.dev/api"
	DefaultArabicEdition  = "quran-uthmani"
	DefaultEnglishEdition = "en.asad"
)

// Config configures the lookup client.
type Config struct {
	TextURL        string
	AudioURL       string
	ArabicEdition  string
	EnglishEdition string
	Timeout        time.Duration
	// HTTPClient overrides the transport; used by tests.
	HTTPClient *http.Client
}

// Ayah is one verse with its Arabic text and English translation.
type Ayah struct {
	SurahNumber int    `json:"surah_number"`
	SurahNameAr string `json:"surah_name_ar"`
	SurahNameEn string `json:"surah_name_en"`
	AyahNumber  int    `json:"ayah_number"`
	TextAr      string `json:"ayah_text_ar"`
	TextEn      string `json:"ayah_text_en"`
}

// Ref is the "surah:ayah" form of the verse.
func (a Ayah) Ref() domain.AyahRef {
	return domain.AyahRef{SurahNumber: a.SurahNumber, AyahNumber: a.AyahNumber}
}

// Audio is one reciter's recording of a verse.
type Audio struct {
	Surah       int    `json:"surah"`
	Ayah        int    `json:"ayah"`
	ReciterID   int    `json:"reciter_id"`
	ReciterName string `json:"reciter_name"`
	AudioURL    string `json:"audio_url"`
	OriginalURL string `json:"original_url"`
}

// Client fetches verse text and audio metadata.
type Client struct {
	textURL  string
	audioURL string
	arabic   string
	english  string
	client   *http.Client
	logger   arbor.ILogger
}

// NewClient applies defaults to cfg.
func NewClient(cfg Config, logger arbor.ILogger) *Client {
	if cfg.TextURL == "" {
		cfg.TextURL = DefaultTextURL
	}
	if cfg.AudioURL == "" {
		cfg.AudioURL = DefaultAudioURL
	}
	if cfg.ArabicEdition == "" {
		cfg.ArabicEdition = DefaultArabicEdition
	}
	if cfg.EnglishEdition == "" {
		cfg.EnglishEdition = DefaultEnglishEdition
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		textURL:  strings.TrimRight(cfg.TextURL, "/"),
		audioURL: strings.TrimRight(cfg.AudioURL, "/"),
		arabic:   cfg.ArabicEdition,
		english:  cfg.EnglishEdition,
		client:   httpClient,
		logger:   logger,
	}
}

type editionResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Text          string `json:"text"`
		NumberInSurah int    `json:"numberInSurah"`
		Surah         struct {
			Number      int    `json:"number"`
			Name        string `json:"name"`
			EnglishName string `json:"englishName"`
		} `json:"surah"`
	} `json:"data"`
}

// FetchAyah returns the verse in the Arabic and English editions. Both
// editions are requested concurrently.
func (c *Client) FetchAyah(ctx context.Context, surah, ayah int) (Ayah, error) {
	if err := checkRef(surah, ayah); err != nil {
		return Ayah{}, err
	}
	var ar, en editionResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.fetchEdition(gctx, surah, ayah, c.arabic, &ar) })
	g.Go(func() error { return c.fetchEdition(gctx, surah, ayah, c.english, &en) })
	if err := g.Wait(); err != nil {
		c.logger.Error().Err(err).Int("surah", surah).Int("ayah", ayah).Msg("Failed to fetch ayah text")
		return Ayah{}, err
	}

	out := Ayah{
		SurahNumber: ar.Data.Surah.Number,
		SurahNameAr: ar.Data.Surah.Name,
		SurahNameEn: ar.Data.Surah.EnglishName,
		AyahNumber:  ar.Data.NumberInSurah,
		TextAr:      ar.Data.Text,
		TextEn:      en.Data.Text,
	}
	c.logger.Debug().Str("ref", out.Ref().String()).Msg("Fetched ayah text")
	return out, nil
}

func (c *Client) fetchEdition(ctx context.Context, surah, ayah int, edition string, out *editionResponse) error {
	url := fmt.Sprintf("%s/ayah/%d:%d/%s", c.textURL, surah, ayah, edition)
	if err := c.getJSON(ctx, url, out); err != nil {
		return fmt.Errorf("%s text: %w", edition, err)
	}
	if out.Status != "OK" {
		return fmt.Errorf("%s text: api status %q", edition, out.Status)
	}
	return nil
}

type audioEntry struct {
	Reciter     string `json:"reciter"`
	URL         string `json:"url"`
	OriginalURL string `json:"originalUrl"`
}

// FetchAudio returns the recording of one reciter. An unknown reciter is a
// not-found error listing the reciters that do have the verse.
func (c *Client) FetchAudio(ctx context.Context, surah, ayah, reciter int) (Audio, error) {
	if err := checkRef(surah, ayah); err != nil {
		return Audio{}, err
	}
	var entries map[string]audioEntry
	url := fmt.Sprintf("%s/audio/%d/%d.json", c.audioURL, surah, ayah)
	if err := c.getJSON(ctx, url, &entries); err != nil {
		c.logger.Error().Err(err).Int("surah", surah).Int("ayah", ayah).Msg("Failed to fetch audio")
		return Audio{}, fmt.Errorf("audio: %w", err)
	}

	entry, ok := entries[strconv.Itoa(reciter)]
	if !ok {
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		c.logger.Warn().Int("reciter", reciter).Int("surah", surah).Int("ayah", ayah).Msg("Reciter not found")
		return Audio{}, domain.NotFoundf("reciter %d not found for %d:%d; available reciters: %s",
			reciter, surah, ayah, strings.Join(keys, ", "))
	}
	name := entry.Reciter
	if name == "" {
		name = "Unknown"
	}
	return Audio{
		Surah:       surah,
		Ayah:        ayah,
		ReciterID:   reciter,
		ReciterName: name,
		AudioURL:    entry.URL,
		OriginalURL: entry.OriginalURL,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Connectivity("quran api", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return domain.NotFoundf("%s", url)
	}
	if resp.StatusCode >= 500 {
		return domain.Connectivity("quran api", fmt.Errorf("status %s", resp.Status))
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("quran api: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkRef(surah, ayah int) error {
	if surah < 1 || surah > 114 {
		return domain.Validationf("surah must be between 1 and 114, got %d", surah)
	}
	if ayah < 1 {
		return domain.Validationf("ayah must be positive, got %d", ayah)
	}
	return nil
}
