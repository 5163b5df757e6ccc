package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GoldenUpdateEnv rewrites golden files instead of comparing when set.
const GoldenUpdateEnv = "FIRETODO_GOLDEN_UPDATE"

// GoldenString compares CLI output against testdata/<name>.golden.
// Line endings are normalized so checkouts with CRLF still match.
func GoldenString(t *testing.T, name string, got string) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if os.Getenv(GoldenUpdateEnv) != "" {
		require.NoError(t, os.MkdirAll("testdata", 0755))
		require.NoError(t, os.WriteFile(path, []byte(got), 0644))
		return
	}

	want, err := os.ReadFile(path)
	require.NoError(t, err, "read golden file %s (set %s=1 to create it)", path, GoldenUpdateEnv)
	assert.Equal(t, strings.ReplaceAll(string(want), "\r\n", "\n"), got, "output mismatch for %s", name)
}
