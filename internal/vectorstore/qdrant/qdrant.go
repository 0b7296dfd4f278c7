package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"huda/internal/domain"
	"huda/internal/filter"
	"huda/internal/vectorstore"
)

// Qdrant point ids must be UUIDs or unsigned integers. Other ids are mapped
// to a name-based UUID and recovered from the doc_id payload key.
var idNamespace = uuid.MustParse("6f1c8f3e-6b5a-4d1e-9a53-2f7c0f1d8e42")

const scrollPageSize = 256

// Storage is a minimal REST client to Qdrant. The HTTP client is created on
// first use so constructing a Storage never touches the network.
type Storage struct {
	url     string
	apiKey  string
	timeout time.Duration

	once   sync.Once
	client *http.Client
}

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	// Client overrides the HTTP client; used by tests.
	Client *http.Client
}

var _ vectorstore.Storage = (*Storage)(nil)

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:     strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		timeout: timeout,
		client:  cfg.Client,
	}
}

// PointID returns the Qdrant id used for a document id.
func PointID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(idNamespace, []byte(id)).String()
}

func (s *Storage) Collection(ctx context.Context, name string) (domain.CollectionInfo, error) {
	var resp struct {
		Result struct {
			PointsCount *int `json:"points_count"`
			Config      struct {
				Params struct {
					Vectors json.RawMessage `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodGet, s.collectionPath(name), nil, &resp); err != nil {
		return domain.CollectionInfo{}, err
	}
	info := domain.CollectionInfo{Name: name}
	if resp.Result.PointsCount != nil {
		info.PointsCount = *resp.Result.PointsCount
	}
	var vectors struct {
		Size     int    `json:"size"`
		Distance string `json:"distance"`
	}
	if len(resp.Result.Config.Params.Vectors) > 0 {
		if err := json.Unmarshal(resp.Result.Config.Params.Vectors, &vectors); err != nil {
			return domain.CollectionInfo{}, fmt.Errorf("decode vectors config of %q: %w", name, err)
		}
	}
	info.VectorSize = vectors.Size
	info.Distance = domain.Distance(vectors.Distance)
	return info, nil
}

func (s *Storage) CreateCollection(ctx context.Context, name string, size int, distance domain.Distance) error {
	if size <= 0 {
		return domain.Validationf("invalid dimension %d", size)
	}
	if distance == "" {
		distance = domain.DistanceCosine
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": string(distance),
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionPath(name), body, nil)
}

func (s *Storage) DeleteCollection(ctx context.Context, name string) error {
	var resp struct {
		Result bool `json:"result"`
	}
	if err := s.do(ctx, http.MethodDelete, s.collectionPath(name), nil, &resp); err != nil {
		return err
	}
	if !resp.Result {
		return domain.NotFoundf("collection %q", name)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := make([]map[string]any, len(points))
	for i, p := range points {
		payload := vectorstore.ClonePayload(p.Payload)
		payload[domain.PayloadDocID] = p.ID
		body[i] = map[string]any{
			"id":      PointID(p.ID),
			"vector":  p.Vector,
			"payload": payload,
		}
	}
	return s.do(ctx, http.MethodPut, s.collectionPath(collection)+"/points?wait=true", map[string]any{"points": body}, nil)
}

type point struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

func (p point) result() domain.SearchResult {
	id := fmt.Sprint(p.ID)
	if docID, ok := p.Payload[domain.PayloadDocID].(string); ok && docID != "" {
		id = docID
	}
	if p.Payload == nil {
		p.Payload = map[string]any{}
	}
	vectorstore.NormalizeNumbers(p.Payload)
	return domain.SearchResult{ID: id, Score: p.Score, Payload: p.Payload}
}

func toResults(points []point) []domain.SearchResult {
	out := make([]domain.SearchResult, 0, len(points))
	for _, p := range points {
		out = append(out, p.result())
	}
	return out
}

func (s *Storage) Query(ctx context.Context, collection string, vector []float32, f *filter.Filter, limit int) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if q := f.Qdrant(); q != nil {
		req["filter"] = q
	}
	var resp struct {
		Result []point `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath(collection)+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	return toResults(resp.Result), nil
}

// Scroll pages through the collection until limit points are collected.
// A non-positive limit reads every matching point.
func (s *Storage) Scroll(ctx context.Context, collection string, f *filter.Filter, limit int) ([]domain.SearchResult, error) {
	var (
		out    []domain.SearchResult
		offset any
	)
	for {
		page := scrollPageSize
		if limit > 0 && limit-len(out) < page {
			page = limit - len(out)
		}
		req := map[string]any{
			"limit":        page,
			"with_payload": true,
			"with_vector":  false,
		}
		if q := f.Qdrant(); q != nil {
			req["filter"] = q
		}
		if offset != nil {
			req["offset"] = offset
		}
		var resp struct {
			Result struct {
				Points         []point `json:"points"`
				NextPageOffset any     `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.do(ctx, http.MethodPost, s.collectionPath(collection)+"/points/scroll", req, &resp); err != nil {
			return nil, err
		}
		out = append(out, toResults(resp.Result.Points)...)
		offset = resp.Result.NextPageOffset
		if offset == nil || len(resp.Result.Points) == 0 || (limit > 0 && len(out) >= limit) {
			return out, nil
		}
	}
}

func (s *Storage) Retrieve(ctx context.Context, collection string, ids []string) ([]domain.SearchResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	req := map[string]any{
		"ids":          pointIDs(ids),
		"with_payload": true,
	}
	var resp struct {
		Result []point `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath(collection)+"/points", req, &resp); err != nil {
		return nil, err
	}
	return toResults(resp.Result), nil
}

func (s *Storage) Delete(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	req := map[string]any{"points": pointIDs(ids)}
	return s.do(ctx, http.MethodPost, s.collectionPath(collection)+"/points/delete?wait=true", req, nil)
}

func (s *Storage) Count(ctx context.Context, collection string, f *filter.Filter) (int, error) {
	req := map[string]any{"exact": true}
	if q := f.Qdrant(); q != nil {
		req["filter"] = q
	}
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath(collection)+"/points/count", req, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Storage) Close() error {
	if s.client != nil {
		s.client.CloseIdleConnections()
	}
	return nil
}

func pointIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = PointID(id)
	}
	return out
}

func (s *Storage) collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func (s *Storage) httpClient() *http.Client {
	s.once.Do(func() {
		if s.client == nil {
			s.client = &http.Client{Timeout: s.timeout}
		}
	})
	return s.client
}

func (s *Storage) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant %s %s: encode body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.httpClient().Do(req)
	if err != nil {
		return domain.Connectivity("qdrant "+method+" "+path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("qdrant %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := resp.Status
	var envelope struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Status.Error != "" {
		msg = envelope.Status.Error
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("qdrant %s %s: %w: %s", method, path, domain.ErrNotFound, msg)
	case resp.StatusCode == http.StatusConflict,
		resp.StatusCode == http.StatusBadRequest && strings.Contains(msg, "already exists"):
		return fmt.Errorf("qdrant %s %s: %w: %s", method, path, domain.ErrAlreadyExists, msg)
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("qdrant %s %s: %w: %s", method, path, domain.ErrValidation, msg)
	case resp.StatusCode >= 500:
		return domain.Connectivity("qdrant "+method+" "+path, errors.New(msg))
	}
	return fmt.Errorf("qdrant %s %s failed: %s", method, path, msg)
}
