package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/mzngo/internal/ctxlog"
	"github.com/vk/mzngo/model"
	"github.com/vk/mzngo/session"
	"github.com/vk/mzngo/value"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is the top-level shape of a plan file.
type fileRoot struct {
	Solver      string        `hcl:"solver,optional"`
	Model       *modelBlock   `hcl:"model,block"`
	Enums       []*enumBlock  `hcl:"enum,block"`
	Data        *bodyBlock    `hcl:"data,block"`
	Expressions *bodyBlock    `hcl:"expressions,block"`
	Output      *bodyBlock    `hcl:"output,block"`
	Options     *optionsBlock `hcl:"options,block"`
	Remain      hcl.Body      `hcl:",remain"`
}

type modelBlock struct {
	Files   []string `hcl:"files,optional"`
	Code    string   `hcl:"code,optional"`
	Checker string   `hcl:"checker,optional"`
}

type enumBlock struct {
	Name    string   `hcl:"name,label"`
	Members []string `hcl:"members"`
}

type bodyBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type optionsBlock struct {
	AllSolutions          *bool          `hcl:"all_solutions,optional"`
	IntermediateSolutions *bool          `hcl:"intermediate_solutions,optional"`
	NrSolutions           *int           `hcl:"nr_solutions,optional"`
	Timeout               *string        `hcl:"timeout,optional"`
	Threads               *int           `hcl:"threads,optional"`
	Seed                  *int64         `hcl:"seed,optional"`
	FreeSearch            *bool          `hcl:"free_search,optional"`
	OptimisationLevel     *int           `hcl:"optimisation_level,optional"`
	Verbose               *bool          `hcl:"verbose,optional"`
	Extra                 hcl.Expression `hcl:"extra,optional"`
}

// Enum is a declared enumerated type.
type Enum struct {
	Name    string
	Members []string
}

// Plan is a decoded solve plan. Paths are absolute.
type Plan struct {
	Path    string
	Solver  string
	Files   []string
	Code    string
	Checker string
	Enums   []Enum
	// DataNames lists Data's keys in source order.
	DataNames   []string
	Data        map[string]cty.Value
	Expressions map[string]string
	Output      *value.Schema
	Options     Options
}

// Options are the solving options a plan sets; nil means "not set".
type Options struct {
	AllSolutions          *bool
	IntermediateSolutions *bool
	NrSolutions           *int
	Timeout               *time.Duration
	Threads               *int
	Seed                  *int64
	FreeSearch            *bool
	OptimisationLevel     *int
	Verbose               *bool
	Extra                 map[string]any
}

// Load reads and decodes the plan file at path.
func Load(ctx context.Context, path string) (*Plan, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan: %w", err)
	}
	return Parse(ctx, src, abs)
}

// Parse decodes plan source. Relative file references resolve against the
// directory of filename.
func Parse(ctx context.Context, src []byte, filename string) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Parsing solve plan.", "file_path", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse plan %s: %w", filename, diags)
	}
	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode plan %s: %w", filename, diags)
	}

	dir := filepath.Dir(filename)
	p := &Plan{
		Path:        filename,
		Solver:      root.Solver,
		Data:        make(map[string]cty.Value),
		Expressions: make(map[string]string),
	}
	if root.Model != nil {
		for _, f := range root.Model.Files {
			p.Files = append(p.Files, resolve(dir, f))
		}
		p.Code = root.Model.Code
		if root.Model.Checker != "" {
			p.Checker = resolve(dir, root.Model.Checker)
		}
	}

	enums := value.NewEnumMap()
	for _, e := range root.Enums {
		if err := enums.Register(e.Name, e.Members...); err != nil {
			return nil, fmt.Errorf("in plan %s: %w", filename, err)
		}
		p.Enums = append(p.Enums, Enum{Name: e.Name, Members: e.Members})
	}
	evalCtx := evalContext(enums)

	if root.Data != nil {
		attrs, err := orderedAttributes(root.Data.Body)
		if err != nil {
			return nil, fmt.Errorf("in data block of %s: %w", filename, err)
		}
		for _, attr := range attrs {
			v, diags := attr.Expr.Value(evalCtx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid value for %q in %s: %w", attr.Name, filename, diags)
			}
			p.Data[attr.Name] = v
			p.DataNames = append(p.DataNames, attr.Name)
		}
	}
	if root.Expressions != nil {
		attrs, err := orderedAttributes(root.Expressions.Body)
		if err != nil {
			return nil, fmt.Errorf("in expressions block of %s: %w", filename, err)
		}
		for _, attr := range attrs {
			var expr string
			if diags := gohcl.DecodeExpression(attr.Expr, nil, &expr); diags.HasErrors() {
				return nil, fmt.Errorf("expression %q in %s must be a string: %w", attr.Name, filename, diags)
			}
			p.Expressions[attr.Name] = expr
		}
	}
	if root.Output != nil {
		attrs, err := orderedAttributes(root.Output.Body)
		if err != nil {
			return nil, fmt.Errorf("in output block of %s: %w", filename, err)
		}
		p.Output = value.NewSchema()
		for _, attr := range attrs {
			t, err := value.TypeFromExpr(attr.Expr)
			if err != nil {
				return nil, fmt.Errorf("output %q in %s: %w", attr.Name, filename, err)
			}
			p.Output.Set(attr.Name, t)
		}
	}
	if root.Options != nil {
		opts, err := translateOptions(root.Options)
		if err != nil {
			return nil, fmt.Errorf("in options block of %s: %w", filename, err)
		}
		p.Options = opts
	}

	logger.Debug("Successfully parsed solve plan.",
		"files", len(p.Files), "data", len(p.DataNames), "expressions", len(p.Expressions), "enums", len(p.Enums))
	return p, nil
}

func translateOptions(b *optionsBlock) (Options, error) {
	o := Options{
		AllSolutions:          b.AllSolutions,
		IntermediateSolutions: b.IntermediateSolutions,
		NrSolutions:           b.NrSolutions,
		Threads:               b.Threads,
		Seed:                  b.Seed,
		FreeSearch:            b.FreeSearch,
		OptimisationLevel:     b.OptimisationLevel,
		Verbose:               b.Verbose,
	}
	if isExprDefined(b.Extra) {
		v, diags := b.Extra.Value(nil)
		if diags.HasErrors() {
			return Options{}, fmt.Errorf("invalid extra flags: %w", diags)
		}
		if !v.Type().IsObjectType() && !v.Type().IsMapType() {
			return Options{}, fmt.Errorf("extra flags must be an object, got %s", v.Type().FriendlyName())
		}
		plain, err := value.ToGo(v)
		if err != nil {
			return Options{}, fmt.Errorf("invalid extra flags: %w", err)
		}
		o.Extra, _ = plain.(map[string]any)
	}
	if b.Timeout != nil {
		d, err := time.ParseDuration(*b.Timeout)
		if err != nil {
			return Options{}, fmt.Errorf("invalid timeout: %w", err)
		}
		o.Timeout = &d
	}
	return o, nil
}

// Model builds a model from the plan.
func (p *Plan) Model() (*model.Model, error) {
	m, err := model.New(p.Files...)
	if err != nil {
		return nil, err
	}
	for _, e := range p.Enums {
		if err := m.DeclareEnum(e.Name, e.Members...); err != nil {
			return nil, err
		}
	}
	for _, name := range p.DataNames {
		if err := m.Assign(name, p.Data[name]); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(p.Expressions))
	for name := range p.Expressions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := m.AssignExpr(name, p.Expressions[name]); err != nil {
			return nil, err
		}
	}
	if p.Code != "" {
		if err := m.AddString(p.Code); err != nil {
			return nil, err
		}
	}
	if p.Checker != "" {
		if err := m.SetChecker(p.Checker); err != nil {
			return nil, err
		}
	}
	if p.Output != nil {
		if err := m.SetOutput(p.Output); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Apply copies the options the plan sets into dst, leaving the rest alone.
func (o Options) Apply(dst *session.Options) {
	setIf(&dst.AllSolutions, o.AllSolutions)
	setIf(&dst.IntermediateSolutions, o.IntermediateSolutions)
	setIf(&dst.NrSolutions, o.NrSolutions)
	setIf(&dst.Timeout, o.Timeout)
	setIf(&dst.Threads, o.Threads)
	setIf(&dst.FreeSearch, o.FreeSearch)
	setIf(&dst.Verbose, o.Verbose)
	if o.Seed != nil {
		dst.Seed = o.Seed
	}
	if o.OptimisationLevel != nil {
		dst.OptimisationLevel = o.OptimisationLevel
	}
	if len(o.Extra) > 0 {
		if dst.Extra == nil {
			dst.Extra = make(map[string]any, len(o.Extra))
		}
		for k, v := range o.Extra {
			dst.Extra[k] = v
		}
	}
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// isExprDefined reports whether an optional attribute was written in the
// source. gohcl fills omitted ones with a zero-width placeholder.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// orderedAttributes returns a block's attributes in source order.
func orderedAttributes(body hcl.Body) ([]*hcl.Attribute, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	list := make([]*hcl.Attribute, 0, len(attrs))
	for _, a := range attrs {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Range.Start.Byte < list[j].Range.Start.Byte
	})
	return list, nil
}

// evalContext exposes enum members as variables next to the plan functions.
func evalContext(enums *value.EnumMap) *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, e := range enums.Enums() {
		for _, m := range enums.Members(e) {
			vars[m.Name] = value.EnumVal(m)
		}
	}
	return &hcl.EvalContext{Variables: vars, Functions: functions()}
}
