package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huda/internal/domain"
	"huda/internal/filter"
	"huda/internal/vectorstore"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	APIKey string
	Body   map[string]any
}

type fakeQdrant struct {
	mu       sync.Mutex
	requests []recorded
	handler  func(w http.ResponseWriter, r recorded)
}

func (f *fakeQdrant) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recorded{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, APIKey: r.Header.Get("api-key")}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rec.Body)
	}
	f.mu.Lock()
	f.requests = append(f.requests, rec)
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, rec)
}

func (f *fakeQdrant) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newFake(t *testing.T, handler func(w http.ResponseWriter, r recorded)) (*Storage, *fakeQdrant) {
	t.Helper()
	fake := &fakeQdrant{handler: handler}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return NewStorage(Config{URL: srv.URL + "/", APIKey: "secret"}), fake
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestPointID(t *testing.T) {
	u := uuid.NewString()
	assert.Equal(t, u, PointID(u))
	assert.Equal(t, PointID("ayah-1"), PointID("ayah-1"))
	assert.NotEqual(t, PointID("ayah-1"), PointID("ayah-2"))
	_, err := uuid.Parse(PointID("ayah-1"))
	assert.NoError(t, err)
}

func TestStorage_Collection(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		if r.Path == "/collections/missing" {
			writeJSON(w, http.StatusNotFound, `{"status":{"error":"Not found: Collection missing doesn't exist!"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"result":{"points_count":7,"config":{"params":{"vectors":{"size":384,"distance":"Cosine"}}}},"status":"ok"}`)
	})
	ctx := context.Background()

	info, err := s.Collection(ctx, "ayahs")
	require.NoError(t, err)
	assert.Equal(t, 384, info.VectorSize)
	assert.Equal(t, domain.DistanceCosine, info.Distance)
	assert.Equal(t, 7, info.PointsCount)
	assert.Equal(t, "secret", fake.last().APIKey)

	_, err = s.Collection(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStorage_CreateCollection(t *testing.T) {
	exists := false
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		if exists {
			writeJSON(w, http.StatusConflict, `{"status":{"error":"Wrong input: Collection ayahs already exists!"}}`)
			return
		}
		exists = true
		writeJSON(w, http.StatusOK, `{"result":true,"status":"ok"}`)
	})
	ctx := context.Background()

	require.NoError(t, s.CreateCollection(ctx, "ayahs", 3, domain.DistanceDot))
	req := fake.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/collections/ayahs", req.Path)
	assert.Equal(t, map[string]any{"size": 3.0, "distance": "Dot"}, req.Body["vectors"])

	assert.ErrorIs(t, s.CreateCollection(ctx, "ayahs", 3, domain.DistanceDot), domain.ErrAlreadyExists)
	assert.ErrorIs(t, s.CreateCollection(ctx, "ayahs", 0, domain.DistanceDot), domain.ErrValidation)
}

func TestStorage_DeleteCollection(t *testing.T) {
	s, _ := newFake(t, func(w http.ResponseWriter, r recorded) {
		if r.Path == "/collections/gone" {
			writeJSON(w, http.StatusOK, `{"result":false,"status":"ok"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"result":true,"status":"ok"}`)
	})
	ctx := context.Background()
	require.NoError(t, s.DeleteCollection(ctx, "ayahs"))
	assert.ErrorIs(t, s.DeleteCollection(ctx, "gone"), domain.ErrNotFound)
}

func TestStorage_UpsertMapsIDs(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, `{"result":{"status":"completed"},"status":"ok"}`)
	})
	err := s.Upsert(context.Background(), "ayahs", []vectorstore.Point{
		{ID: "ayah-1", Vector: []float32{0.5, 0.5}, Payload: map[string]any{"text": "x"}},
	})
	require.NoError(t, err)

	req := fake.last()
	assert.Equal(t, "/collections/ayahs/points", req.Path)
	assert.Equal(t, "wait=true", req.Query)
	points := req.Body["points"].([]any)
	require.Len(t, points, 1)
	p := points[0].(map[string]any)
	assert.Equal(t, PointID("ayah-1"), p["id"])
	assert.Equal(t, "ayah-1", p["payload"].(map[string]any)[domain.PayloadDocID])
}

func TestStorage_QueryDecodesResults(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, `{"result":[
			{"id":"`+PointID("ayah-2")+`","score":0.93,"payload":{"text":"b","doc_id":"ayah-2"}},
			{"id":17,"score":0.41,"payload":{"text":"legacy"}}
		],"status":"ok"}`)
	})
	f, err := filter.Compile(map[string]any{"surah_number": 2})
	require.NoError(t, err)

	results, err := s.Query(context.Background(), "ayahs", []float32{1, 0}, f, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ayah-2", results[0].ID)
	assert.InDelta(t, 0.93, results[0].Score, 1e-9)
	assert.Equal(t, "17", results[1].ID)

	req := fake.last()
	assert.Equal(t, "/collections/ayahs/points/search", req.Path)
	assert.Equal(t, 5.0, req.Body["limit"])
	assert.Equal(t, true, req.Body["with_payload"])
	assert.Contains(t, req.Body, "filter")
}

func TestStorage_ScrollFollowsOffsets(t *testing.T) {
	calls := 0
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		calls++
		if calls == 1 {
			writeJSON(w, http.StatusOK, `{"result":{"points":[{"id":"a","payload":{"doc_id":"one"}}],"next_page_offset":"b"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"result":{"points":[{"id":"b","payload":{"doc_id":"two"}}],"next_page_offset":null}}`)
	})

	results, err := s.Scroll(context.Background(), "tafseers", nil, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "one", results[0].ID)
	assert.Equal(t, "two", results[1].ID)
	assert.Equal(t, "b", fake.last().Body["offset"])
	assert.Equal(t, false, fake.last().Body["with_vector"])
}

func TestStorage_ScrollStopsAtLimit(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		writeJSON(w, http.StatusOK, `{"result":{"points":[{"id":"a","payload":{}},{"id":"b","payload":{}}],"next_page_offset":"c"}}`)
	})
	results, err := s.Scroll(context.Background(), "ayahs", nil, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, fake.requests, 1)
	assert.Equal(t, 2.0, fake.last().Body["limit"])
}

func TestStorage_DeleteAndCount(t *testing.T) {
	s, fake := newFake(t, func(w http.ResponseWriter, r recorded) {
		if r.Path == "/collections/ayahs/points/count" {
			writeJSON(w, http.StatusOK, `{"result":{"count":12},"status":"ok"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"result":{"status":"completed"},"status":"ok"}`)
	})
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "ayahs", []string{"ayah-1"}))
	req := fake.last()
	assert.Equal(t, "/collections/ayahs/points/delete", req.Path)
	assert.Equal(t, []any{PointID("ayah-1")}, req.Body["points"])

	n, err := s.Count(ctx, "ayahs", nil)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, true, fake.last().Body["exact"])
}

func TestStorage_ErrorMapping(t *testing.T) {
	s, _ := newFake(t, func(w http.ResponseWriter, r recorded) {
		switch r.Path {
		case "/collections/bad/points/search":
			writeJSON(w, http.StatusBadRequest, `{"status":{"error":"Wrong input: Vector dimension error: expected dim: 3, got 2"}}`)
		default:
			writeJSON(w, http.StatusServiceUnavailable, `{"status":{"error":"overloaded"}}`)
		}
	})
	ctx := context.Background()

	_, err := s.Query(ctx, "bad", []float32{1, 2}, nil, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Count(ctx, "busy", nil)
	assert.ErrorIs(t, err, domain.ErrConnectivity)
}

func TestStorage_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	s := NewStorage(Config{URL: addr})
	_, err := s.Collection(context.Background(), "ayahs")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConnectivity)
	assert.True(t, domain.IsConnectivity(err))
}
