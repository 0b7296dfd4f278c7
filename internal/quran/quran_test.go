package quran

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"huda/internal/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ayah/2:153/quran-uthmani", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"status":"OK","data":{"number":160,"text":"يَا أَيُّهَا الَّذِينَ آمَنُوا اسْتَعِينُوا بِالصَّبْرِ وَالصَّلَاةِ","numberInSurah":153,
			"surah":{"number":2,"name":"سُورَةُ البَقَرَةِ","englishName":"Al-Baqara"}}}`))
	})
	mux.HandleFunc("/v1/ayah/2:153/en.asad", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"status":"OK","data":{"text":"O you who have attained to faith! Seek aid in steadfast patience and prayer","numberInSurah":153,
			"surah":{"number":2,"name":"سُورَةُ البَقَرَةِ","englishName":"Al-Baqara"}}}`))
	})
	mux.HandleFunc("/v1/ayah/2:999/quran-uthmani", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":400,"status":"Bad Request","data":"Please specify an Ayah number"}`))
	})
	mux.HandleFunc("/v1/ayah/2:999/en.asad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	mux.HandleFunc("/api/audio/2/153.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"1": {"reciter": "Mishary Rashid Al Afasy", "url": "https://cdn.example/1/2_153.mp3", "originalUrl": "https://origin.example/1/2_153.mp3"},
			"3": {"url": "https://cdn.example/3/2_153.mp3"}
		}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Config{TextURL: srv.URL + "/v1", AudioURL: srv.URL + "/api"}, arbor.NewLogger())
}

func TestFetchAyah(t *testing.T) {
	c := newTestClient(newTestServer(t))

	got, err := c.FetchAyah(context.Background(), 2, 153)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SurahNumber)
	assert.Equal(t, "Al-Baqara", got.SurahNameEn)
	assert.Equal(t, "سُورَةُ البَقَرَةِ", got.SurahNameAr)
	assert.Equal(t, 153, got.AyahNumber)
	assert.Contains(t, got.TextAr, "بِالصَّبْرِ")
	assert.Contains(t, got.TextEn, "steadfast patience")
	assert.Equal(t, "2:153", got.Ref().String())
}

func TestFetchAyah_Errors(t *testing.T) {
	c := newTestClient(newTestServer(t))
	ctx := context.Background()

	_, err := c.FetchAyah(ctx, 2, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.FetchAyah(ctx, 115, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = c.FetchAyah(ctx, 1, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFetchAyah_StatusNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"status":"ERROR","data":{}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{TextURL: srv.URL}, arbor.NewLogger())
	_, err := c.FetchAyah(context.Background(), 1, 1)
	assert.ErrorContains(t, err, "api status")
}

func TestFetchAudio(t *testing.T) {
	c := newTestClient(newTestServer(t))
	ctx := context.Background()

	got, err := c.FetchAudio(ctx, 2, 153, 1)
	require.NoError(t, err)
	assert.Equal(t, Audio{
		Surah:       2,
		Ayah:        153,
		ReciterID:   1,
		ReciterName: "Mishary Rashid Al Afasy",
		AudioURL:    "https://cdn.example/1/2_153.mp3",
		OriginalURL: "https://origin.example/1/2_153.mp3",
	}, got)

	got, err = c.FetchAudio(ctx, 2, 153, 3)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", got.ReciterName)

	_, err = c.FetchAudio(ctx, 2, 153, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorContains(t, err, "available reciters: 1, 3")
}

func TestFetchAudio_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Config{AudioURL: url}, arbor.NewLogger())
	_, err := c.FetchAudio(context.Background(), 1, 1, 1)
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}
