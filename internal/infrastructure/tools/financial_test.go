package tools

import (
	"context"
	"testing"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

func newFinancialRegistry(t *testing.T) *Registry {
	t.Helper()
	financial := NewFinancialTools(0, nil)
	registry, err := NewRegistry(nil, financial.Definitions()...)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return registry
}

func TestCalculateDTIRatioBelowThreshold(t *testing.T) {
	registry := newFinancialRegistry(t)

	record := registry.Invoke(context.Background(), ToolCalculateDTI, map[string]any{
		"monthly_debt": 2500.0,
		"gross_income": 6000.0,
	})
	if record.Status != domain.ToolSucceeded {
		t.Fatalf("expected success, got %s (%s)", record.Status, record.Error)
	}

	result, ok := record.Result.(DTIResult)
	if !ok {
		t.Fatalf("unexpected result type %T", record.Result)
	}
	if result.Ratio != 0.4167 {
		t.Fatalf("expected ratio 0.4167, got %v", result.Ratio)
	}
	if result.RiskFlag {
		t.Fatal("expected no risk flag below the threshold")
	}
}

func TestCalculateDTIRatioAboveThresholdFlags(t *testing.T) {
	registry := newFinancialRegistry(t)

	record := registry.Invoke(context.Background(), ToolCalculateDTI, map[string]any{
		"monthly_debt": 3000.0,
		"gross_income": 6000.0,
	})
	result := record.Result.(DTIResult)
	if result.Ratio != 0.5 {
		t.Fatalf("expected ratio 0.5, got %v", result.Ratio)
	}
	if !result.RiskFlag {
		t.Fatal("expected risk flag above the threshold")
	}
}

func TestCalculateDTIRejectsZeroIncome(t *testing.T) {
	registry := newFinancialRegistry(t)

	record := registry.Invoke(context.Background(), ToolCalculateDTI, map[string]any{
		"monthly_debt": 2500.0,
		"gross_income": 0.0,
	})
	if record.Status != domain.ToolFailed || record.ErrorKind != domain.ToolErrValidation {
		t.Fatalf("expected validation failure, got %+v", record)
	}
}

func TestCalculateDTIRejectsMissingArgument(t *testing.T) {
	registry := newFinancialRegistry(t)

	record := registry.Invoke(context.Background(), ToolCalculateDTI, map[string]any{
		"monthly_debt": 2500.0,
	})
	if record.ErrorKind != domain.ToolErrValidation {
		t.Fatalf("expected validation failure, got %+v", record)
	}
}

func TestCollateralValuationKnownAsset(t *testing.T) {
	registry := newFinancialRegistry(t)

	record := registry.Invoke(context.Background(), ToolCollateralValuation, map[string]any{
		"asset_id": "PROP-2023-0147",
	})
	if record.Status != domain.ToolSucceeded {
		t.Fatalf("expected success, got %s (%s)", record.Status, record.Error)
	}

	result := record.Result.(ValuationResult)
	if result.Valuation != 485000 || result.Confidence != 0.92 {
		t.Fatalf("unexpected valuation result: %+v", result)
	}
}

func TestCollateralValuationUnknownAsset(t *testing.T) {
	registry := newFinancialRegistry(t)

	record := registry.Invoke(context.Background(), ToolCollateralValuation, map[string]any{
		"asset_id": "PROP-9999-0000",
	})
	if record.Status != domain.ToolFailed || record.ErrorKind != domain.ToolErrNotFound {
		t.Fatalf("expected not-found failure, got %+v", record)
	}
}

func TestCollateralValuationRejectsEmptyAssetID(t *testing.T) {
	registry := newFinancialRegistry(t)

	record := registry.Invoke(context.Background(), ToolCollateralValuation, map[string]any{
		"asset_id": "",
	})
	if record.ErrorKind != domain.ToolErrValidation {
		t.Fatalf("expected validation failure, got %+v", record)
	}
}
