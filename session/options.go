package session

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vk/mzngo/mznerr"
	"github.com/vk/mzngo/protocol"
	"github.com/vk/mzngo/solver"
)

var validate = validator.New()

// Options are the solving flags of one session.
type Options struct {
	// Solver is the backend the driver runs.
	Solver *solver.Config `validate:"required"`
	// AllSolutions asks for every solution of a satisfaction problem.
	AllSolutions bool
	// IntermediateSolutions asks for every improving solution.
	IntermediateSolutions bool
	// NrSolutions limits the number of solutions of a satisfaction problem;
	// zero means no limit.
	NrSolutions int `validate:"gte=0"`
	// Timeout is passed to the driver as its time limit and also bounds the
	// session's wall-clock time (plus the timeout slack).
	Timeout time.Duration `validate:"gte=0"`
	// Threads is the number of threads the solver may use; zero leaves the
	// solver's default.
	Threads int `validate:"gte=0"`
	// Seed fixes the solver's random seed.
	Seed       *int64
	FreeSearch bool
	// OptimisationLevel is the compiler's -O level.
	OptimisationLevel *int `validate:"omitempty,gte=0,lte=5"`
	Verbose           bool
	// Extra are additional driver flags. A missing "--" is added; boolean
	// values become presence flags.
	Extra map[string]any
}

// Validate checks the options' own ranges.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return mznerr.Configurationf("invalid session options: %v", err)
	}
	return nil
}

const (
	// DefaultGracePeriod is how long a stopped driver may take to exit
	// before it is killed.
	DefaultGracePeriod = 2 * time.Second
	// DefaultTimeoutSlack is added to Options.Timeout for the hard deadline,
	// leaving the driver time to report its own timeout.
	DefaultTimeoutSlack = time.Second
	defaultUpdateBuffer = 16
)

type settings struct {
	grace   time.Duration
	slack   time.Duration
	chunk   int
	tempDir string
	iface   *protocol.Interface
	buffer  int
	id      uuid.UUID
}

func newSettings(opts []Option) settings {
	s := settings{
		grace:  DefaultGracePeriod,
		slack:  DefaultTimeoutSlack,
		chunk:  protocol.DefaultChunkSize,
		buffer: defaultUpdateBuffer,
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option tunes how a session runs.
type Option func(*settings)

// WithGracePeriod sets how long a stopped driver may take to exit.
func WithGracePeriod(d time.Duration) Option {
	return func(s *settings) { s.grace = d }
}

// WithTimeoutSlack sets the margin between Options.Timeout and the hard
// deadline.
func WithTimeoutSlack(d time.Duration) Option {
	return func(s *settings) { s.slack = d }
}

// WithChunkSize sets the stream reader's initial buffer size.
func WithChunkSize(n int) Option {
	return func(s *settings) { s.chunk = n }
}

// WithTempDir places input artifacts in dir instead of the system temp dir.
func WithTempDir(dir string) Option {
	return func(s *settings) { s.tempDir = dir }
}

// WithInterface supplies an already known model interface, skipping the
// analysis run.
func WithInterface(iface *protocol.Interface) Option {
	return func(s *settings) { s.iface = iface }
}

// WithID fixes the session identifier, so callers can tag resources they
// set up before the session starts. A random one is used otherwise.
func WithID(id uuid.UUID) Option {
	return func(s *settings) { s.id = id }
}

// WithUpdateBuffer sets the capacity of the update channel.
func WithUpdateBuffer(n int) Option {
	return func(s *settings) { s.buffer = n }
}
