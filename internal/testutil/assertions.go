package testutil

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that logs contain every fragment.
func AssertLogged(t *testing.T, logs string, fragments ...string) {
	t.Helper()
	for _, f := range fragments {
		require.True(t,
			strings.Contains(logs, f),
			"expected log output to contain %q", f,
		)
	}
}

// AssertNoArtifacts checks that no generated input files were left behind
// in dir.
func AssertNoArtifacts(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "mzngo_*"))
	require.NoError(t, err)
	require.Empty(t, matches, "generated files were not removed")
}
