package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/testutil"
	"github.com/vk/mzngo/mznerr"
)

// argAfter returns the argument following flag.
func argAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func TestFlatten(t *testing.T) {
	f := &testutil.FakeLauncher{Respond: func(cmd driver.Command) testutil.Script {
		return testutil.Script{Stdout: stats(`"flatTime":0.05,"flatIntVars":3`)}
	}}
	drv := testutil.NewFakeDriver(t, f)
	dir := t.TempDir()
	level := 2

	flat, err := Flatten(context.Background(), drv, newModel(t), gecode(), FlatOptions{
		Timeout:           1500 * time.Millisecond,
		OptimisationLevel: &level,
		Extra:             map[string]any{"no-output-ozn": false, "fzn-flags": "-v"},
	}, WithTempDir(dir))
	require.NoError(t, err)

	args := f.Commands()[0].Args
	for _, seq := range [][]string{
		{"--compile", "--statistics"},
		{"--time-limit", "1500"},
		{"-O", "2"},
		{"--fzn-flags", "-v"},
	} {
		assert.True(t, testutil.HasArgs(args, seq...), "missing %v in %v", seq, args)
	}
	assert.NotContains(t, args, "--no-output-ozn")
	assert.Equal(t, flat.FZN, argAfter(args, "--fzn"))
	assert.Equal(t, flat.OZN, argAfter(args, "--ozn"))

	assert.FileExists(t, flat.FZN)
	assert.FileExists(t, flat.OZN)
	inputs, err := filepath.Glob(filepath.Join(dir, "mzngo_*_fragment_*"))
	require.NoError(t, err)
	assert.Empty(t, inputs, "input files are removed once compiled")

	flatTime, ok := flat.Statistics.Duration("flatTime")
	require.True(t, ok)
	assert.Equal(t, 50*time.Millisecond, flatTime)
	vars, ok := flat.Statistics.Int("flatIntVars")
	require.True(t, ok)
	assert.Equal(t, int64(3), vars)

	flat.Close()
	flat.Close()
	testutil.AssertNoArtifacts(t, dir)
}

func TestFlatten_LegacyStatistics(t *testing.T) {
	f := &testutil.FakeLauncher{Version: "2.5.5", Respond: func(driver.Command) testutil.Script {
		return testutil.Script{Stdout: "%%%mzn-stat: flatTime=0.2\n%%%mzn-stat: paths=7\n%%%mzn-stat-end\n"}
	}}
	drv := testutil.NewFakeDriver(t, f)

	flat, err := Flatten(context.Background(), drv, newModel(t), gecode(), FlatOptions{}, WithTempDir(t.TempDir()))
	require.NoError(t, err)
	defer flat.Close()

	paths, ok := flat.Statistics.Int("paths")
	require.True(t, ok)
	assert.Equal(t, int64(7), paths)
	assert.NotContains(t, f.Commands()[0].Args, "--json-stream")
}

func TestFlatten_CompileError(t *testing.T) {
	f := &testutil.FakeLauncher{Respond: func(driver.Command) testutil.Script {
		return testutil.Script{Stderr: "m.mzn:3.1-4:\nMiniZinc: type error: undefined identifier `y'\n", ExitCode: 1}
	}}
	drv := testutil.NewFakeDriver(t, f)
	dir := t.TempDir()

	flat, err := Flatten(context.Background(), drv, newModel(t), gecode(), FlatOptions{}, WithTempDir(dir))
	require.Error(t, err)
	assert.Nil(t, flat)
	var me *mznerr.ModelError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, mznerr.TypeError, me.Kind)
	testutil.AssertNoArtifacts(t, dir)
}

func TestFlatten_InvalidOptions(t *testing.T) {
	f := &testutil.FakeLauncher{}
	drv := testutil.NewFakeDriver(t, f)
	level := 9

	_, err := Flatten(context.Background(), drv, newModel(t), gecode(), FlatOptions{OptimisationLevel: &level})
	require.ErrorIs(t, err, mznerr.ErrConfiguration)
	assert.Zero(t, f.Spawned())
}
