package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mzngo/driver"
	"github.com/vk/mzngo/internal/app"
	"github.com/vk/mzngo/internal/plan"
	"github.com/vk/mzngo/internal/testutil"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/session"
	"gopkg.in/yaml.v3"
)

const satInterface = `{"type":"interface","method":"sat","input":{},"output":{"x":{"type":"int"}},"has_output_item":true}` + "\n"

const queens = "int: n = 3;\nvar 1..n: x;\nsolve satisfy;\n"

func solutions(xs ...int) string {
	var s string
	for _, x := range xs {
		s += fmt.Sprintf(`{"type":"solution","output":{"json":{"x":%d}},"time":3}`, x) + "\n"
	}
	return s
}

type harnessResult struct {
	Output    string
	LogOutput string
	Err       error
	Dir       string
}

// runApp writes files into a temporary directory and runs fn against an app
// driving the fake launcher. Relative model and plan paths in cfg are
// resolved against that directory. A nil fn solves.
func runApp(t *testing.T, files map[string]string, cfg app.Config, f *testutil.FakeLauncher, fn func(context.Context, *app.App) error) *harnessResult {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	for i, p := range cfg.ModelFiles {
		cfg.ModelFiles[i] = filepath.Join(dir, p)
	}
	if cfg.PlanPath != "" {
		cfg.PlanPath = filepath.Join(dir, cfg.PlanPath)
	}
	if cfg.DriverPath == "" {
		cfg.DriverPath = driver.ExecutableName
	}
	cfg.LogLevel = "debug"

	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &testutil.SafeBuffer{}
	logs := &testutil.SafeBuffer{}
	a := app.NewApp(out, logs, config,
		app.WithDriverOptions(driver.WithLauncher(f)),
		app.WithSessionOptions(session.WithGracePeriod(50*time.Millisecond), session.WithTempDir(dir)),
	)
	if fn == nil {
		fn = func(ctx context.Context, a *app.App) error { return a.Solve(ctx) }
	}
	runErr := fn(context.Background(), a)
	require.NoError(t, a.Close())

	if os.Getenv("MZNGO_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}
	return &harnessResult{Output: out.String(), LogOutput: logs.String(), Err: runErr, Dir: dir}
}

func TestNewConfig(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{ModelFiles: []string{"m.mzn"}})
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Output)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)

	cases := []struct {
		name string
		cfg  app.Config
		want string
	}{
		{"bad log level", app.Config{LogLevel: "loud"}, "log-level"},
		{"bad log format", app.Config{LogFormat: "xml"}, "log-format"},
		{"bad output", app.Config{Output: "csv"}, "output"},
		{"bad port", app.Config{HealthcheckPort: 70000}, "healthcheck-port"},
		{"bad publish url", app.Config{PublishURL: "not a url"}, "publish-url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := app.NewConfig(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestSolve_RequiresModel(t *testing.T) {
	f := testutil.Responses{Interface: satInterface}.Launcher()
	res := runApp(t, nil, app.Config{}, f, nil)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "model file or a solve plan")
	assert.Zero(t, f.Spawned())
}

func TestSolve_TextOutput(t *testing.T) {
	f := testutil.Responses{
		Interface: satInterface,
		Solve:     testutil.Script{Stdout: solutions(1, 2) + `{"type":"status","status":"ALL_SOLUTIONS"}` + "\n"},
	}.Launcher()
	cfg := app.Config{ModelFiles: []string{"m.mzn"}, Overrides: plan.Options{AllSolutions: ptr(true)}}

	res := runApp(t, map[string]string{"m.mzn": queens}, cfg, f, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, "x = 1;\n----------\nx = 2;\n----------\n==========\n", res.Output)
	testutil.AssertLogged(t, res.LogOutput, "▶️ Solving", "🏁 Solving finished", "solver=org.gecode.gecode")
	testutil.AssertNoArtifacts(t, res.Dir)

	last := f.Commands()[len(f.Commands())-1]
	assert.True(t, testutil.HasArgs(last.Args, "--solver", "org.gecode.gecode@6.3.0"))
	assert.Contains(t, last.Args, "--all-solutions")
}

func TestSolve_JSONAndYAMLOutput(t *testing.T) {
	stream := solutions(4) +
		`{"type":"statistics","statistics":{"nodes":12,"solveTime":0.5}}` + "\n" +
		`{"type":"status","status":"SATISFIED"}` + "\n"

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			f := testutil.Responses{Interface: satInterface, Solve: testutil.Script{Stdout: stream}}.Launcher()
			cfg := app.Config{ModelFiles: []string{"m.mzn"}, Output: format}
			res := runApp(t, map[string]string{"m.mzn": queens}, cfg, f, nil)
			require.NoError(t, res.Err)

			var got struct {
				Status     string           `json:"status" yaml:"status"`
				Solutions  []map[string]any `json:"solutions" yaml:"solutions"`
				Statistics map[string]any   `json:"statistics" yaml:"statistics"`
			}
			if format == "json" {
				require.NoError(t, json.Unmarshal([]byte(res.Output), &got))
			} else {
				require.NoError(t, yaml.Unmarshal([]byte(res.Output), &got))
			}
			assert.Equal(t, "SATISFIED", got.Status)
			require.Len(t, got.Solutions, 1)
			assert.EqualValues(t, 4, got.Solutions[0]["x"])
			assert.EqualValues(t, 12, got.Statistics["nodes"])
			assert.InDelta(t, 0.5, got.Statistics["solveTime"], 1e-9)
		})
	}
}

func TestSolve_FromPlan(t *testing.T) {
	files := map[string]string{
		"m.mzn": "int: n;\nvar 1..n: x;\nsolve satisfy;\n",
		"plan.hcl": `
solver = "chuffed"

model {
  files = ["m.mzn"]
}

data {
  n = 9
}

options {
  seed = 11
}
`,
	}
	f := testutil.Responses{
		Interface: satInterface,
		Solve:     testutil.Script{Stdout: solutions(9) + `{"type":"status","status":"SATISFIED"}` + "\n"},
	}.Launcher()

	res := runApp(t, files, app.Config{PlanPath: "plan.hcl", Overrides: plan.Options{Seed: ptr(int64(3))}}, f, nil)
	require.NoError(t, res.Err)
	assert.Equal(t, "x = 9;\n----------\n", res.Output)

	last := f.Commands()[len(f.Commands())-1]
	assert.True(t, testutil.HasArgs(last.Args, "--solver", "org.chuffed.chuffed@0.13.2"))
	assert.True(t, testutil.HasArgs(last.Args, "--random-seed", "3"), "command line overrides the plan: %v", last.Args)
}

func TestSolve_CapabilityRejectedBeforeSpawn(t *testing.T) {
	f := testutil.Responses{Interface: satInterface}.Launcher()
	cfg := app.Config{ModelFiles: []string{"m.mzn"}, Solver: "chuffed", Overrides: plan.Options{Threads: ptr(4)}}

	res := runApp(t, map[string]string{"m.mzn": queens}, cfg, f, nil)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, mznerr.ErrConfiguration)
	assert.Equal(t, 2, app.ExitCode(res.Err))
	for _, cmd := range f.Commands() {
		assert.True(t, testutil.HasArgs(cmd.Args, "--solvers-json"), "only the registry may be queried, got %v", cmd.Args)
	}
}

func TestSolve_UnknownSolver(t *testing.T) {
	f := testutil.Responses{Interface: satInterface}.Launcher()
	res := runApp(t, map[string]string{"m.mzn": queens}, app.Config{ModelFiles: []string{"m.mzn"}, Solver: "cplex"}, f, nil)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), `"cplex"`)
}

func TestSolve_ProcessFailureStillRenders(t *testing.T) {
	f := testutil.Responses{
		Interface: satInterface,
		Solve:     testutil.Script{Stdout: solutions(2), Stderr: "segmentation fault\n", ExitCode: 139},
	}.Launcher()

	res := runApp(t, map[string]string{"m.mzn": queens}, app.Config{ModelFiles: []string{"m.mzn"}}, f, nil)
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, mznerr.ErrProcess)
	assert.Equal(t, 4, app.ExitCode(res.Err))
	assert.Contains(t, res.Output, "x = 2;")
	assert.Contains(t, res.Output, "=====ERROR=====")
}

func TestSolvers(t *testing.T) {
	f := testutil.Responses{}.Launcher()
	res := runApp(t, nil, app.Config{}, f, func(ctx context.Context, a *app.App) error { return a.Solvers(ctx) })
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "ID")
	assert.Contains(t, res.Output, "org.gecode.gecode")
	assert.Contains(t, res.Output, "cp,lcg,int")

	res = runApp(t, nil, app.Config{Output: "json"}, testutil.Responses{}.Launcher(), func(ctx context.Context, a *app.App) error { return a.Solvers(ctx) })
	require.NoError(t, res.Err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Output), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Chuffed", entries[1]["name"])
}

func TestVersion(t *testing.T) {
	f := &testutil.FakeLauncher{Version: "2.9.0"}
	res := runApp(t, nil, app.Config{}, f, func(ctx context.Context, a *app.App) error { return a.Version(ctx) })
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "version 2.9.0")
}

func TestVersion_TooOld(t *testing.T) {
	f := &testutil.FakeLauncher{Version: "2.4.3"}
	res := runApp(t, nil, app.Config{}, f, func(ctx context.Context, a *app.App) error { return a.Version(ctx) })
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, mznerr.ErrConfiguration)
}

func TestHealthcheckServer(t *testing.T) {
	f := testutil.Responses{
		Interface: satInterface,
		Solve:     testutil.Script{Stdout: solutions(1), Hold: true},
	}.Launcher()
	port := freePort(t)
	cfg := app.Config{ModelFiles: []string{"m.mzn"}, HealthcheckPort: port}

	var health, metrics string
	res := runApp(t, map[string]string{"m.mzn": queens}, cfg, f, func(ctx context.Context, a *app.App) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			base := fmt.Sprintf("http://127.0.0.1:%d", port)
			health = httpGet(t, base+"/health")
			metrics = httpGet(t, base+"/metrics")
			cancel()
		}()
		return a.Solve(ctx)
	})
	require.Error(t, res.Err)
	assert.ErrorIs(t, res.Err, mznerr.ErrCancelled)
	assert.Equal(t, 130, app.ExitCode(res.Err))
	assert.Equal(t, "OK\n", health)
	assert.Contains(t, metrics, "mzngo_sessions_started_total")
	testutil.AssertLogged(t, res.LogOutput, "🩺 Health check server starting")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, app.ExitCode(nil))
	assert.Equal(t, 1, app.ExitCode(errors.New("boom")))
	assert.Equal(t, 3, app.ExitCode(&mznerr.ModelError{Kind: mznerr.TypeError, Message: "bad"}))
	assert.Equal(t, 3, app.ExitCode(&mznerr.TypeMismatch{Expected: "int", Got: "string"}))
}

func ptr[T any](v T) *T { return &v }

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func httpGet(t *testing.T, url string) string {
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			return string(b)
		}
		if time.Now().After(deadline) {
			t.Errorf("GET %s: %v", url, err)
			return ""
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestSolve_PublisherConnectsBeforeDriverStarts(t *testing.T) {
	f := testutil.Responses{Interface: satInterface, Solve: testutil.Script{Stdout: solutions(1)}}.Launcher()
	cfg := app.Config{
		ModelFiles: []string{"m.mzn"},
		PublishURL: fmt.Sprintf("http://127.0.0.1:%d/socket.io/", freePort(t)),
	}
	res := runApp(t, map[string]string{"m.mzn": queens}, cfg, f, func(ctx context.Context, a *app.App) error {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		return a.Solve(ctx)
	})

	require.Error(t, res.Err)
	for _, cmd := range f.Commands() {
		assert.True(t, testutil.HasArgs(cmd.Args, "--solvers-json"), "only the solver listing may run before the publisher connects, got %v", cmd.Args)
	}
	assert.Empty(t, res.Output)
	testutil.AssertNoArtifacts(t, res.Dir)
}
