package protocol

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mzngo/mznerr"
)

func TestClassifyStderr(t *testing.T) {
	testCases := []struct {
		name         string
		stderr       string
		expectedKind mznerr.ModelKind
		expectedLine int
		processFail  bool
	}{
		{
			name:         "syntax error",
			stderr:       "/tmp/m.mzn:3.5-7:\nvar int x\n    ^^^\nError: syntax error, unexpected identifier\n",
			expectedKind: mznerr.SyntaxError,
			expectedLine: 3,
		},
		{
			name:         "type error",
			stderr:       "/tmp/m.mzn:1.8:\nMiniZinc: type error: undefined identifier `y'\n",
			expectedKind: mznerr.TypeError,
		},
		{
			name:         "assertion",
			stderr:       "MiniZinc: evaluation error: \n  /tmp/m.mzn:4.1-20:\n  Assertion failed: n must be positive\n",
			expectedKind: mznerr.AssertionError,
			expectedLine: 4,
		},
		{
			name:         "evaluation",
			stderr:       "MiniZinc: evaluation error: division by zero\n",
			expectedKind: mznerr.EvaluationError,
		},
		{name: "bare failure", stderr: "segmentation fault\n", processFail: true},
		{name: "empty", stderr: "", processFail: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := ClassifyStderr([]byte(tc.stderr), 1)
			if tc.processFail {
				var pf *mznerr.ProcessFailure
				require.True(t, errors.As(err, &pf))
				assert.Equal(t, 1, pf.ExitCode)
				assert.True(t, errors.Is(err, mznerr.ErrProcess))
				return
			}
			var me *mznerr.ModelError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tc.expectedKind, me.Kind)
			if tc.expectedLine > 0 {
				require.NotNil(t, me.Location)
				assert.Equal(t, tc.expectedLine, me.Location.FirstLine)
			}
		})
	}
}

func TestParseLocation(t *testing.T) {
	loc := ParseLocation("/a/b.mzn:12.3-9: oops")
	require.NotNil(t, loc)
	assert.Equal(t, mznerr.Location{File: "/a/b.mzn", FirstLine: 12, LastLine: 12, FirstColumn: 3, LastColumn: 9}, *loc)

	loc = ParseLocation("m.mzn:7: oops")
	require.NotNil(t, loc)
	assert.Equal(t, 0, loc.FirstColumn)

	assert.Nil(t, ParseLocation("nothing here"))
}

func TestClassifyStderr_Snippet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.mzn")
	require.NoError(t, os.WriteFile(path, []byte("int: n;\nvar int x\nsolve satisfy;\n"), 0o600))

	err := ClassifyStderr([]byte(path+":2.5-7:\nError: syntax error, unexpected end\n"), 1)
	assert.Contains(t, err.Error(), "File fragment:")
	assert.Contains(t, err.Error(), "2: var int x")
	assert.Contains(t, err.Error(), "       ^^^")
}

func TestScanWarnings(t *testing.T) {
	ws := ScanWarnings([]byte("/m.mzn:3.1-4:\nWarning: model inconsistency detected\nother\n"))
	require.Len(t, ws, 1)
	assert.Equal(t, "model inconsistency detected", ws[0].Message)
	require.NotNil(t, ws[0].Location)
	assert.Equal(t, 3, ws[0].Location.FirstLine)
}

func TestFirstError(t *testing.T) {
	out := []byte(`{"type": "statistics", "statistics": {}}` + "\n" +
		`{"type": "error", "what": "syntax error", "message": "bad"}` + "\n")
	err := FirstError(out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, mznerr.ErrModel))

	assert.NoError(t, FirstError([]byte(`{"type": "status", "status": "UNKNOWN"}`)))
}

func TestParseInterface(t *testing.T) {
	stream := []byte(`{"type": "interface", "method": "min", "has_output_item": false, ` +
		`"input": {"n": {"type": "int"}, "a": {"type": "ann"}}, ` +
		`"output": {"q": {"type": "int", "dim": 1}}}` + "\n")

	iface, err := ParseInterface(stream)
	require.NoError(t, err)
	assert.Equal(t, Minimize, iface.Method)
	assert.False(t, iface.HasOutputItem)
	assert.Equal(t, 1, iface.Input.Len())
	q, ok := iface.Output.Lookup("q")
	require.True(t, ok)
	assert.Equal(t, "array[int] of int", q.String())

	legacy := []byte("{\n \"type\": \"interface\",\n \"method\": \"sat\",\n \"input\": {},\n \"output\": {}\n}\n")
	iface, err = ParseInterface(legacy)
	require.NoError(t, err)
	assert.Equal(t, Satisfy, iface.Method)
	assert.True(t, iface.HasOutputItem)

	_, err = ParseInterface([]byte("garbage"))
	require.Error(t, err)
}
