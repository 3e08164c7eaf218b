package logging_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/invoice-mcp/internal/logging"
)

func TestFileLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")

	logger, closeLog, err := logging.Open(path)
	require.NoError(t, err)

	logger.Info().Msg("Mailer starting")
	logger.Debug().Msg("Probe scheduled")
	closeLog()

	content, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 2)

	// [2026-03-01T12:00:00.000Z] [INFO] Mailer starting
	pattern := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}(Z|[+-]\d{2}:\d{2})\] \[INFO\] Mailer starting`)
	assert.Regexp(t, pattern, lines[0])
	assert.Contains(t, lines[1], "[DEBUG] Probe scheduled")
}

func TestAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bridge.log")

	logger, closeLog, err := logging.Open(path)
	require.NoError(t, err)
	logger.Info().Msg("first run")
	closeLog()

	logger, closeLog, err = logging.Open(path)
	require.NoError(t, err)
	logger.Info().Msg("second run")
	closeLog()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "first run")
	assert.Contains(t, string(content), "second run")
}

func TestEmptyPathDisablesFileOutput(t *testing.T) {
	logger, closeLog, err := logging.Open("")
	require.NoError(t, err)
	defer closeLog()

	// Must not panic or write anywhere unexpected.
	logger.Info().Msg("discarded")
}

func TestMissingDirectoryFails(t *testing.T) {
	_, _, err := logging.Open(filepath.Join(t.TempDir(), "nope", "bridge.log"))
	require.Error(t, err)
}
