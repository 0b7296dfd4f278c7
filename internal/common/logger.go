package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	"huda/internal/config"
)

var consoleWriter = models.WriterConfiguration{
	Type:             models.LogWriterTypeConsole,
	TimeFormat:       "15:04:05",
	DisableTimestamp: false,
}

// InitLogger builds the logger from the logging section. The terminal
// console passes quiet=true so log lines never draw over the UI.
func InitLogger(cfg config.LoggingConfig, quiet bool) arbor.ILogger {
	logger := arbor.NewLogger()

	hasFileOutput := false
	hasStdoutOutput := false
	for _, output := range cfg.Output {
		switch output {
		case "file":
			hasFileOutput = true
		case "stdout", "console":
			hasStdoutOutput = !quiet
		}
	}

	if hasFileOutput {
		logFile := cfg.FilePath
		if logFile == "" {
			logFile = filepath.Join("logs", "huda.log")
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to create logs directory: %v\n", err)
		} else {
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:             models.LogWriterTypeFile,
				FileName:         logFile,
				TimeFormat:       "15:04:05",
				MaxSize:          100 * 1024 * 1024, // 100 MB
				MaxBackups:       3,
				DisableTimestamp: false,
			})
		}
	}

	if hasStdoutOutput {
		logger = logger.WithConsoleWriter(consoleWriter)
	}

	return logger.WithLevelFromString(cfg.Level)
}
