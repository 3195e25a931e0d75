package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// ArgSpec declares one argument of a tool. Validation runs before the
// handler, so handlers can assume their inputs are well-formed.
type ArgSpec struct {
	Name        string
	Type        string // "number" or "string"
	Required    bool
	NonNegative bool
	Positive    bool
	NonEmpty    bool
}

// Handler executes a validated tool call. A returned error is mapped onto
// the record's failure kind via the domain error kinds.
type Handler func(ctx context.Context, args map[string]any) (any, error)

type Definition struct {
	Name        string
	Description string
	Args        []ArgSpec
	Handler     Handler
}

// Registry is the tool gateway: a fixed, startup-validated set of named
// deterministic computations. Invoke never propagates a failure as an
// error; every call resolves into a record.
type Registry struct {
	defs   map[string]Definition
	names  []string
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger, defs ...Definition) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		defs:   make(map[string]Definition, len(defs)),
		logger: logger,
	}
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("tool with empty name")
		}
		if def.Handler == nil {
			return nil, fmt.Errorf("tool %s: nil handler", def.Name)
		}
		if _, dup := r.defs[def.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name: %s", def.Name)
		}
		for _, spec := range def.Args {
			if spec.Name == "" {
				return nil, fmt.Errorf("tool %s: argument with empty name", def.Name)
			}
			if spec.Type != "number" && spec.Type != "string" {
				return nil, fmt.Errorf("tool %s: argument %s has unknown type %q", def.Name, spec.Name, spec.Type)
			}
		}
		r.defs[def.Name] = def
		r.names = append(r.names, def.Name)
	}
	sort.Strings(r.names)
	return r, nil
}

func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) domain.ToolCallRecord {
	record := domain.ToolCallRecord{
		Tool:   name,
		Args:   args,
		Status: domain.ToolPending,
	}

	def, ok := r.defs[name]
	if !ok {
		return r.failed(record, domain.ToolErrNotFound, fmt.Sprintf("unknown tool: %s", name))
	}
	if err := validateArgs(def.Args, args); err != nil {
		return r.failed(record, domain.ToolErrValidation, err.Error())
	}

	result, err := r.call(ctx, def, args)
	if err != nil {
		return r.failed(record, failureKind(err), err.Error())
	}

	record.Result = result
	record.Status = domain.ToolSucceeded
	r.logger.Debug("tool call succeeded", "tool", name)
	return record
}

// call isolates handler panics into internal-kind failures.
func (r *Registry) call(ctx context.Context, def Definition, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tool %s panicked: %v", def.Name, rec)
		}
	}()
	return def.Handler(ctx, args)
}

func (r *Registry) failed(record domain.ToolCallRecord, kind, msg string) domain.ToolCallRecord {
	record.Status = domain.ToolFailed
	record.Error = msg
	record.ErrorKind = kind
	r.logger.Warn("tool call failed", "tool", record.Tool, "kind", kind, "error", msg)
	return record
}

func failureKind(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrValidation):
		return domain.ToolErrValidation
	case domain.IsKind(err, domain.ErrNotFound):
		return domain.ToolErrNotFound
	case domain.IsKind(err, domain.ErrTransient):
		return domain.ToolErrTransient
	default:
		return domain.ToolErrInternal
	}
}

func validateArgs(specs []ArgSpec, args map[string]any) error {
	for _, spec := range specs {
		raw, present := args[spec.Name]
		if !present {
			if spec.Required {
				return fmt.Errorf("missing required argument: %s", spec.Name)
			}
			continue
		}

		switch spec.Type {
		case "number":
			n, ok := toFloat(raw)
			if !ok {
				return fmt.Errorf("argument %s must be a number", spec.Name)
			}
			if spec.Positive && n <= 0 {
				return fmt.Errorf("argument %s must be positive", spec.Name)
			}
			if spec.NonNegative && n < 0 {
				return fmt.Errorf("argument %s must not be negative", spec.Name)
			}
		case "string":
			s, ok := raw.(string)
			if !ok {
				return fmt.Errorf("argument %s must be a string", spec.Name)
			}
			if spec.NonEmpty && s == "" {
				return fmt.Errorf("argument %s must not be empty", spec.Name)
			}
		}
	}
	return nil
}

// NumberArg reads a validated numeric argument.
func NumberArg(args map[string]any, name string) float64 {
	n, _ := toFloat(args[name])
	return n
}

// StringArg reads a validated string argument.
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
