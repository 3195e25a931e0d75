package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

const (
	ToolCalculateDTI        = "calculate_dti"
	ToolCollateralValuation = "get_collateral_valuation"

	defaultDTIThreshold = 0.43
)

// DTIResult is the debt-to-income computation output.
type DTIResult struct {
	Ratio    float64 `json:"ratio"`
	RiskFlag bool    `json:"risk_flag"`
	Summary  string  `json:"summary"`
}

// DTIRatio exposes the ratio to the escalation policy.
func (r DTIResult) DTIRatio() float64 { return r.Ratio }

var _ domain.DTIReporter = DTIResult{}

// ValuationResult is the collateral lookup output.
type ValuationResult struct {
	AssetID    string  `json:"asset_id"`
	Valuation  float64 `json:"valuation"`
	Confidence float64 `json:"confidence"`
	Summary    string  `json:"summary"`
}

// FinancialTools holds the deterministic underwriting computations exposed
// through the tool gateway.
type FinancialTools struct {
	dtiThreshold float64
	book         *CollateralBook
}

func NewFinancialTools(dtiThreshold float64, book *CollateralBook) *FinancialTools {
	if dtiThreshold <= 0 {
		dtiThreshold = defaultDTIThreshold
	}
	if book == nil {
		book = DefaultCollateralBook()
	}
	return &FinancialTools{
		dtiThreshold: dtiThreshold,
		book:         book,
	}
}

// Definitions returns the registry entries for both tools.
func (t *FinancialTools) Definitions() []Definition {
	return []Definition{
		{
			Name:        ToolCalculateDTI,
			Description: "Compute the borrower's debt-to-income ratio from monthly debt payments and gross monthly income.",
			Args: []ArgSpec{
				{Name: "monthly_debt", Type: "number", Required: true, NonNegative: true},
				{Name: "gross_income", Type: "number", Required: true, Positive: true},
			},
			Handler: t.calculateDTI,
		},
		{
			Name:        ToolCollateralValuation,
			Description: "Look up the appraised valuation for a collateral asset by its ID.",
			Args: []ArgSpec{
				{Name: "asset_id", Type: "string", Required: true, NonEmpty: true},
			},
			Handler: t.collateralValuation,
		},
	}
}

func (t *FinancialTools) calculateDTI(_ context.Context, args map[string]any) (any, error) {
	monthlyDebt := NumberArg(args, "monthly_debt")
	grossIncome := NumberArg(args, "gross_income")

	ratio := monthlyDebt / grossIncome
	ratio = math.Round(ratio*10000) / 10000

	flag := ratio > t.dtiThreshold
	summary := fmt.Sprintf("DTI ratio is %.2f%%, within the %.0f%% threshold.", ratio*100, t.dtiThreshold*100)
	if flag {
		summary = fmt.Sprintf("DTI ratio is %.2f%%, above the %.0f%% threshold.", ratio*100, t.dtiThreshold*100)
	}

	return DTIResult{
		Ratio:    ratio,
		RiskFlag: flag,
		Summary:  summary,
	}, nil
}

func (t *FinancialTools) collateralValuation(_ context.Context, args map[string]any) (any, error) {
	assetID := StringArg(args, "asset_id")

	asset, ok := t.book.Lookup(assetID)
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "collateral lookup", fmt.Errorf("unknown asset: %s", assetID))
	}

	return ValuationResult{
		AssetID:    assetID,
		Valuation:  asset.Valuation,
		Confidence: asset.Confidence,
		Summary:    fmt.Sprintf("Asset %s appraised at %.2f (confidence %.2f).", assetID, asset.Valuation, asset.Confidence),
	}, nil
}
