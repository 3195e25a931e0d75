package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

func echoDefinition(name string) Definition {
	return Definition{
		Name:        name,
		Description: "echoes its input",
		Handler: func(_ context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	_, err := NewRegistry(nil, echoDefinition("echo"), echoDefinition("echo"))
	if err == nil {
		t.Fatal("expected duplicate name rejection")
	}
}

func TestRegistryRejectsNilHandler(t *testing.T) {
	_, err := NewRegistry(nil, Definition{Name: "broken"})
	if err == nil {
		t.Fatal("expected nil handler rejection")
	}
}

func TestRegistryRejectsUnknownArgType(t *testing.T) {
	def := echoDefinition("echo")
	def.Args = []ArgSpec{{Name: "x", Type: "boolean"}}
	if _, err := NewRegistry(nil, def); err == nil {
		t.Fatal("expected unknown argument type rejection")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	registry, err := NewRegistry(nil, echoDefinition("zeta"), echoDefinition("alpha"))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	names := registry.Names()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Fatalf("expected sorted names, got %v", names)
	}
}

func TestInvokeUnknownToolResolvesToRecord(t *testing.T) {
	registry, _ := NewRegistry(nil, echoDefinition("echo"))

	record := registry.Invoke(context.Background(), "no_such_tool", nil)
	if record.Status != domain.ToolFailed || record.ErrorKind != domain.ToolErrNotFound {
		t.Fatalf("expected not-found record, got %+v", record)
	}
}

func TestInvokeRecoversHandlerPanic(t *testing.T) {
	registry, _ := NewRegistry(nil, Definition{
		Name: "panicky",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			panic("boom")
		},
	})

	record := registry.Invoke(context.Background(), "panicky", nil)
	if record.Status != domain.ToolFailed || record.ErrorKind != domain.ToolErrInternal {
		t.Fatalf("expected internal failure record, got %+v", record)
	}
}

func TestInvokeMapsTransientHandlerError(t *testing.T) {
	registry, _ := NewRegistry(nil, Definition{
		Name: "flaky",
		Handler: func(_ context.Context, _ map[string]any) (any, error) {
			return nil, domain.WrapError(domain.ErrTransient, "flaky call", errors.New("backend timeout"))
		},
	})

	record := registry.Invoke(context.Background(), "flaky", nil)
	if record.ErrorKind != domain.ToolErrTransient {
		t.Fatalf("expected transient kind, got %+v", record)
	}
}

func TestValidateArgsNumberCoercions(t *testing.T) {
	def := echoDefinition("typed")
	def.Args = []ArgSpec{{Name: "n", Type: "number", Required: true, NonNegative: true}}
	registry, _ := NewRegistry(nil, def)

	for _, value := range []any{float64(3), float32(3), int(3), int64(3)} {
		record := registry.Invoke(context.Background(), "typed", map[string]any{"n": value})
		if record.Status != domain.ToolSucceeded {
			t.Fatalf("expected %T accepted as number, got %+v", value, record)
		}
	}

	record := registry.Invoke(context.Background(), "typed", map[string]any{"n": "not a number"})
	if record.ErrorKind != domain.ToolErrValidation {
		t.Fatalf("expected validation failure for non-numeric value, got %+v", record)
	}
}
