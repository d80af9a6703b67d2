package driver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/testutil"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/solver"
)

func TestParseVersion(t *testing.T) {
	testCases := []struct {
		name      string
		text      string
		expected  string
		expectErr bool
	}{
		{name: "release", text: testutil.VersionText("2.8.3"), expected: "v2.8.3"},
		{name: "two digit minor", text: "version 2.10.0, build 5", expected: "v2.10.0"},
		{name: "no version", text: "minizinc: command not found", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := driver.ParseVersion(tc.text)
			if tc.expectErr {
				require.ErrorIs(t, err, mznerr.ErrConfiguration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, v)
		})
	}
	assert.True(t, driver.AtLeast("v2.10.0", driver.JSONStreamVersion))
	assert.False(t, driver.AtLeast("v2.5.9", driver.JSONStreamVersion))
}

func TestNew_RejectsOldDriver(t *testing.T) {
	f := &testutil.FakeLauncher{Version: "2.4.3"}
	_, err := driver.New(context.Background(), "minizinc", driver.WithLauncher(f))
	require.ErrorIs(t, err, mznerr.ErrConfiguration)
	assert.Contains(t, err.Error(), driver.MinVersion)
}

func TestNew_JSONStreamCapability(t *testing.T) {
	old := testutil.NewFakeDriver(t, &testutil.FakeLauncher{Version: "2.5.5"})
	assert.False(t, old.JSONStream())
	assert.NotContains(t, old.Command("", []string{"m.mzn"}).Args, "--json-stream")

	cur := testutil.NewFakeDriver(t, &testutil.FakeLauncher{})
	assert.Equal(t, "v2.8.3", cur.Version())
	assert.True(t, cur.JSONStream())
	cmd := cur.Command("gecode@6.3.0", []string{"m.mzn"})
	assert.Equal(t, []string{"--solver", "gecode@6.3.0", "--allow-multiple-assignments", "m.mzn", "--json-stream"}, cmd.Args)
}

func TestRun_ErrorClassification(t *testing.T) {
	testCases := []struct {
		name   string
		script testutil.Script
		check  func(t *testing.T, err error)
	}{
		{
			name: "structured error wins",
			script: testutil.Script{
				Stdout:   `{"type":"error","what":"type error","message":"undefined identifier x"}` + "\n",
				Stderr:   "something else\n",
				ExitCode: 1,
			},
			check: func(t *testing.T, err error) {
				var me *mznerr.ModelError
				require.ErrorAs(t, err, &me)
				assert.Equal(t, mznerr.TypeError, me.Kind)
			},
		},
		{
			name:   "stderr classification",
			script: testutil.Script{Stderr: "segfault\n", ExitCode: 139},
			check: func(t *testing.T, err error) {
				var pf *mznerr.ProcessFailure
				require.ErrorAs(t, err, &pf)
				assert.Equal(t, 139, pf.ExitCode)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &testutil.FakeLauncher{Respond: func(driver.Command) testutil.Script { return tc.script }}
			d := testutil.NewFakeDriver(t, f)
			out, err := d.Run(context.Background(), []string{"m.mzn"}, nil)
			require.Error(t, err)
			require.NotNil(t, out)
			tc.check(t, err)
		})
	}
}

func TestRun_CancelKillsProcess(t *testing.T) {
	f := &testutil.FakeLauncher{Respond: func(driver.Command) testutil.Script {
		return testutil.Script{Hold: true, IgnoreInterrupt: true}
	}}
	d := testutil.NewFakeDriver(t, f)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Run(ctx, []string{"m.mzn"}, nil)
	require.ErrorIs(t, err, mznerr.ErrCancelled)
	assert.Equal(t, 1, f.Last().Kills())
	assert.True(t, f.Last().Exited())
}

func TestRun_StartFailure(t *testing.T) {
	f := &testutil.FakeLauncher{}
	d := testutil.NewFakeDriver(t, f)
	f.StartErr = errors.New("exec format error")
	_, err := d.Run(context.Background(), []string{"m.mzn"}, nil)
	require.ErrorIs(t, err, mznerr.ErrProcess)
}

const solversJSON = `[
 {"id":"org.gecode.gecode","name":"Gecode","version":"6.3.0","tags":["cp","int"],"stdFlags":["-a","-f","-n","-p","-r","-s"]},
 {"id":"org.chuffed.chuffed","name":"Chuffed","version":"<unknown version>","tags":["cp","lcg"],"stdFlags":["-a","-f","-n","-r","-s","-v"]}
]`

func TestAvailableSolvers_Cached(t *testing.T) {
	f := &testutil.FakeLauncher{Respond: func(cmd driver.Command) testutil.Script {
		if testutil.HasArgs(cmd.Args, "--solvers-json") {
			return testutil.Script{Stdout: solversJSON}
		}
		return testutil.Script{ExitCode: 1}
	}}
	d := testutil.NewFakeDriver(t, f)
	ctx := context.Background()

	reg, err := d.AvailableSolvers(ctx, false)
	require.NoError(t, err)
	require.Len(t, reg.All(), 2)
	_, err = d.AvailableSolvers(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Spawned())

	_, err = d.AvailableSolvers(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Spawned())

	cfg, err := d.Lookup(ctx, "chuffed")
	require.NoError(t, err)
	assert.Equal(t, "org.chuffed.chuffed", cfg.Identifier())
	cfg, err = d.Lookup(ctx, "gecode")
	require.NoError(t, err)
	assert.Equal(t, "org.gecode.gecode@6.3.0", cfg.Identifier())
}

func TestCheck(t *testing.T) {
	d := testutil.NewFakeDriver(t, &testutil.FakeLauncher{})

	good := &solver.Config{ID: "org.test.s", Name: "S", Version: "1.0", SupportsFzn: true}
	require.NoError(t, d.Check(good))
	require.NoError(t, d.Check(good))

	gui := &solver.Config{ID: "org.test.ide", Name: "IDE", Version: "1.0", SupportsMzn: true, IsGUIApplication: true}
	require.ErrorIs(t, d.Check(gui), mznerr.ErrConfiguration)

	missing := &solver.Config{ID: "org.test.none", Version: "1.0", SupportsFzn: true}
	require.ErrorIs(t, d.Check(missing), mznerr.ErrConfiguration)
}

func TestDefaultRegistry(t *testing.T) {
	d := testutil.NewFakeDriver(t, &testutil.FakeLauncher{})
	prev := driver.SetDefault(d)
	t.Cleanup(func() { driver.SetDefault(prev) })

	got, err := driver.Default(context.Background())
	require.NoError(t, err)
	assert.Same(t, d, got)
}

func TestFind_InDirectory(t *testing.T) {
	dir := t.TempDir()
	_, err := driver.Find(dir)
	require.ErrorIs(t, err, mznerr.ErrConfiguration)
}
