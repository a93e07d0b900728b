package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFileLogger_WritesJSONEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "workforce.log")

	f, logger, err := FileLogger(logrus.InfoLevel, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	logger.WithField("extract_id", "abc").Info("extract imported")
	logger.Debug("dropped below level")

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(b, &entry))
	require.Equal(t, "extract imported", entry["msg"])
	require.Equal(t, "abc", entry["extract_id"])
	require.Equal(t, "info", entry["level"])
}

func TestConsoleLogger_Level(t *testing.T) {
	l := ConsoleLogger(logrus.WarnLevel)
	require.Equal(t, logrus.WarnLevel, l.GetLevel())
}
