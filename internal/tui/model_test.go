package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huda/internal/domain"
	"huda/internal/service"
)

type fakePort struct {
	last service.Request
	err  error
}

func (f *fakePort) Search(_ context.Context, req service.Request) ([]domain.SearchResult, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchResult{
		{ID: "2:153", Score: 0.9, Payload: map[string]any{"text": "Seek help through patience and prayer.", "surah_number": 2}},
		{ID: "94:5", Score: 0.4, Payload: map[string]any{"text": "With hardship comes ease."}},
	}, nil
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestModel_SearchFlow(t *testing.T) {
	port := &fakePort{}
	m, _ := update(t, New(port, 0), tea.WindowSizeMsg{Width: 80, Height: 24})

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, service.ModeKeyword, m.mode)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	assert.Equal(t, domain.CollectionTafseers, collections[m.collection])

	m.input.SetValue("patience")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())

	assert.Equal(t, service.ModeKeyword, port.last.Mode)
	assert.Equal(t, domain.CollectionTafseers, port.last.Collection)
	assert.Equal(t, "patience", port.last.Query)
	require.Len(t, m.results, 2)
	assert.Contains(t, m.status, "2 results")

	view := m.renderCurrentResult()
	assert.Contains(t, view, "id=2:153")
	assert.Contains(t, view, "surah_number=2")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, m.cursor)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.cursor)
	assert.True(t, strings.HasPrefix(m.View(), "Huda Search"))
}

func TestModel_SearchError(t *testing.T) {
	m := New(&fakePort{err: errors.New("backend down")}, 0)
	m.input.SetValue("x")
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	assert.Equal(t, "Error: backend down", m.status)
	assert.Empty(t, m.results)
}

func TestTokenOverlapScore(t *testing.T) {
	q := toTokenSet("Patience prayer")
	assert.Equal(t, 2, tokenOverlapScore(q, "patience and prayer, patience"))
	assert.Equal(t, 0, tokenOverlapScore(q, "ease"))
}
