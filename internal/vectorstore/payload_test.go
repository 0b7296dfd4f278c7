package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	got, err := DecodePayload([]byte(`{"surah_number": 2, "score": 0.25, "big": 1e30, "refs": [{"ayah_number": 255}], "tags": [1, "x"]}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"surah_number": 2,
		"score":        0.25,
		"big":          1e30,
		"refs":         []any{map[string]any{"ayah_number": 255}},
		"tags":         []any{1, "x"},
	}, got)

	got, err = DecodePayload(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DecodePayload([]byte(`{broken`))
	assert.Error(t, err)
}
