package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vk/mzngo/internal/plan"
)

// DefaultSolver is used when neither the command line nor the plan names one.
const DefaultSolver = "gecode"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelFiles []string // model and data files
	PlanPath   string   // hcl solve plan
	DriverPath string
	Solver     string // tag, id or path to a .msc file
	SolverDirs []string

	Output          string `validate:"oneof=json yaml text"`
	PublishURL      string `validate:"omitempty,url"`
	PublishInsecure bool

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`

	// Overrides are solving options given on the command line. They take
	// precedence over the plan's options.
	Overrides plan.Options
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig normalises and validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	cfg.Output = strings.ToLower(cfg.Output)
	if cfg.Output == "" {
		cfg.Output = "text"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	if err := validate.Struct(&cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid %s %q: must satisfy %s", fieldFlag(fe.Field()), fmt.Sprint(fe.Value()), describeTag(fe))
		}
		return nil, err
	}
	return &cfg, nil
}

// RequireModel checks that there is something to solve.
func (c *Config) RequireModel() error {
	if len(c.ModelFiles) == 0 && c.PlanPath == "" {
		return errors.New("a model file or a solve plan (--plan) is required")
	}
	return nil
}

func fieldFlag(field string) string {
	switch field {
	case "LogFormat":
		return "log-format"
	case "LogLevel":
		return "log-level"
	case "HealthcheckPort":
		return "healthcheck-port"
	case "PublishURL":
		return "publish-url"
	default:
		return strings.ToLower(field)
	}
}

func describeTag(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fe.Tag()
	}
	return fe.Tag() + "=" + fe.Param()
}
