package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// ScriptDriver writes an executable shell script standing in for the real
// driver. It answers --version and --model-interface-only itself; any other
// invocation runs body.
func ScriptDriver(t *testing.T, iface, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minizinc")
	script := "#!/bin/sh\n" +
		"case \"$*\" in\n" +
		"*--version*) echo 'MiniZinc to FlatZinc converter, version 2.8.3, build 1'; exit 0 ;;\n" +
		"*--model-interface-only*) printf '%s\\n' '" + strings.TrimSpace(iface) + "'; exit 0 ;;\n" +
		"esac\n" +
		body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}
