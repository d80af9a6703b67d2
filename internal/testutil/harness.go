package testutil

import (
	"bytes"
	"sync"

	"github.com/vk/mzngo/driver"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SolversJSON is the --solvers-json answer of fake drivers.
const SolversJSON = `[
 {"id":"org.gecode.gecode","name":"Gecode","version":"6.3.0","tags":["cp","int","float","set"],"stdFlags":["-a","-f","-n","-p","-r","-s","-t"],"supportsFzn":true},
 {"id":"org.chuffed.chuffed","name":"Chuffed","version":"0.13.2","tags":["cp","lcg","int"],"stdFlags":["-a","-f","-n","-r","-t"],"supportsFzn":true}
]`

// Responses scripts a fake driver's answers by invocation kind.
type Responses struct {
	// Interface is the --model-interface-only output.
	Interface string
	// Solve is the script of solving runs.
	Solve Script
}

// Launcher returns a fake launcher answering with r.
func (r Responses) Launcher() *FakeLauncher {
	return &FakeLauncher{Respond: func(cmd driver.Command) Script {
		switch {
		case HasArgs(cmd.Args, "--solvers-json"):
			return Script{Stdout: SolversJSON}
		case HasArgs(cmd.Args, "--model-interface-only"):
			return Script{Stdout: r.Interface}
		}
		return r.Solve
	}}
}
