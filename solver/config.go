// Package solver describes backend solver configurations as the driver
// reports them (--solvers-json) or as they are stored in .msc files, and
// resolves a solver name or tag to one configuration.
package solver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/vk/mzngo/mznerr"
)

// Standard solver flags a configuration may advertise in StdFlags.
const (
	FlagAllSolutions          = "-a"
	FlagNrSolutions           = "-n"
	FlagStatistics            = "-s"
	FlagVerbose               = "-v"
	FlagThreads               = "-p"
	FlagRandomSeed            = "-r"
	FlagFreeSearch            = "-f"
	FlagIntermediateSolutions = "-i"
)

const unknownVersion = "<unknown version>"

var validate = validator.New()

// ExtraFlag is a solver specific command line flag. It travels as a JSON
// array of strings: name, description, type and default value.
type ExtraFlag struct {
	Name        string
	Description string
	Type        string
	Default     string
}

func (f *ExtraFlag) UnmarshalJSON(data []byte) error {
	var parts []string
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("extra flag: %w", err)
	}
	if len(parts) == 0 {
		return errors.New("extra flag: empty definition")
	}
	parts = append(parts, "", "", "")
	f.Name, f.Description, f.Type, f.Default = parts[0], parts[1], parts[2], parts[3]
	return nil
}

func (f ExtraFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string{f.Name, f.Description, f.Type, f.Default})
}

// Config is one solver configuration record. Unknown JSON fields are
// ignored.
type Config struct {
	ID                 string      `json:"id" validate:"required"`
	Name               string      `json:"name" validate:"required"`
	Version            string      `json:"version" validate:"required"`
	Executable         string      `json:"executable,omitempty"`
	Mznlib             string      `json:"mznlib,omitempty"`
	MznlibVersion      int         `json:"mznlibVersion,omitempty" validate:"gte=0"`
	Description        string      `json:"description,omitempty"`
	Tags               []string    `json:"tags,omitempty" validate:"dive,required"`
	StdFlags           []string    `json:"stdFlags,omitempty" validate:"dive,startswith=-"`
	ExtraFlags         []ExtraFlag `json:"extraFlags,omitempty"`
	RequiredFlags      []string    `json:"requiredFlags,omitempty"`
	InputType          string      `json:"inputType,omitempty"`
	SupportsMzn        bool        `json:"supportsMzn"`
	SupportsFzn        bool        `json:"supportsFzn"`
	SupportsNL         bool        `json:"supportsNL"`
	NeedsSolns2Out     bool        `json:"needsSolns2Out"`
	NeedsMznExecutable bool        `json:"needsMznExecutable"`
	NeedsStdlibDir     bool        `json:"needsStdlibDir"`
	NeedsPathsFile     bool        `json:"needsPathsFile"`
	IsGUIApplication   bool        `json:"isGUIApplication"`

	// identifier is what the driver knows this configuration as, valid only
	// while the record still matches fingerprint.
	identifier  string
	fingerprint string
}

// UnmarshalJSON applies the driver's defaults before decoding.
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	p := plain{SupportsFzn: true, MznlibVersion: 1, InputType: "FZN"}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}

// Validate checks the record's required fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return &mznerr.ConfigurationError{Message: fmt.Sprintf("invalid solver configuration %q: %v", c.ID, err)}
	}
	return nil
}

// Supports reports whether flag is one of the advertised standard flags.
func (c *Config) Supports(flag string) bool {
	return slices.Contains(c.StdFlags, flag)
}

// ExtraFlag returns the definition of a solver specific flag.
func (c *Config) ExtraFlag(name string) (ExtraFlag, bool) {
	for _, f := range c.ExtraFlags {
		if f.Name == name {
			return f, true
		}
	}
	return ExtraFlag{}, false
}

// Identifier returns the string the driver accepts for --solver, or "" when
// the record was built by hand or changed since it was loaded.
func (c *Config) Identifier() string {
	if c.identifier == "" {
		return ""
	}
	fp, err := c.Marshal()
	if err != nil || string(fp) != c.fingerprint {
		return ""
	}
	return c.identifier
}

func (c *Config) bind(identifier string) {
	fp, err := c.Marshal()
	if err != nil {
		return
	}
	c.identifier = identifier
	c.fingerprint = string(fp)
}

// Marshal renders the record as a .msc document.
func (c *Config) Marshal() ([]byte, error) {
	return json.MarshalIndent(c, "", "    ")
}

// Load reads a .msc file. Relative executable and mznlib paths are resolved
// against the file's directory when they exist there.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading solver configuration: %w", err)
	}
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &mznerr.ConfigurationError{Message: fmt.Sprintf("solver configuration %s is not valid JSON: %v", path, err)}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("loading solver configuration: %w", err)
	}
	dir := filepath.Dir(abs)
	for _, field := range []*string{&c.Executable, &c.Mznlib} {
		if *field == "" || filepath.IsAbs(*field) {
			continue
		}
		candidate := filepath.Join(dir, *field)
		if _, err := os.Stat(candidate); err == nil {
			*field = candidate
		}
	}
	c.bind(abs)
	return &c, nil
}

// Materialise returns the --solver argument for c. A configuration the
// driver does not know is written to a temporary .msc file in dir (the
// system temp dir when empty), removed by the returned cleanup.
func (c *Config) Materialise(dir string) (arg string, cleanup func(), err error) {
	if id := c.Identifier(); id != "" {
		return id, func() {}, nil
	}
	data, err := c.Marshal()
	if err != nil {
		return "", nil, fmt.Errorf("rendering solver configuration: %w", err)
	}
	f, err := os.CreateTemp(dir, "mzngo_solver_*.msc")
	if err != nil {
		return "", nil, fmt.Errorf("writing solver configuration: %w", err)
	}
	name := f.Name()
	cleanup = func() { _ = os.Remove(name) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing solver configuration: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("writing solver configuration: %w", err)
	}
	return name, cleanup, nil
}
