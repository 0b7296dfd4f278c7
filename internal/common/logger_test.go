package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huda/internal/config"
)

func TestInitLogger_FileOutputCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger := InitLogger(config.LoggingConfig{
		Level:    "debug",
		Output:   []string{"file", "stdout"},
		FilePath: filepath.Join(dir, "huda.log"),
	}, true)
	require.NotNil(t, logger)
	assert.DirExists(t, dir)
}
