package driver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/vk/mzngo/mznerr"
)

// ExecutableName is the driver's executable name without extension.
const ExecutableName = "minizinc"

var (
	macLocations = []string{
		"/Applications/MiniZincIDE.app/Contents/Resources",
		"~/Applications/MiniZincIDE.app/Contents/Resources",
	}
	windowsLocations = []string{
		`c:\Program Files\MiniZinc`,
		`c:\Program Files\MiniZinc IDE (bundled)`,
		`c:\Program Files (x86)\MiniZinc`,
		`c:\Program Files (x86)\MiniZinc IDE (bundled)`,
	}
)

// Find looks for the driver executable in dirs, or on PATH followed by the
// platform's default install locations when dirs is empty.
func Find(dirs ...string) (string, error) {
	if len(dirs) == 0 {
		if path, err := exec.LookPath(ExecutableName); err == nil {
			return path, nil
		}
		switch runtime.GOOS {
		case "darwin":
			dirs = macLocations
		case "windows":
			dirs = windowsLocations
		}
	}
	name := ExecutableName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	for _, dir := range dirs {
		candidate := filepath.Join(expandHome(dir), name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if runtime.GOOS != "windows" && info.Mode()&0o111 == 0 {
			continue
		}
		return candidate, nil
	}
	return "", mznerr.Configurationf("no %s executable found", ExecutableName)
}

// FindDriver finds the executable and creates a Driver for it.
func FindDriver(ctx context.Context, opts ...Option) (*Driver, error) {
	path, err := Find()
	if err != nil {
		return nil, err
	}
	return New(ctx, path, opts...)
}

func expandHome(dir string) string {
	if len(dir) < 2 || dir[:2] != "~/" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, dir[2:])
}
