package tools

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CollateralAsset is one appraised asset in the collateral book.
type CollateralAsset struct {
	Valuation  float64 `yaml:"valuation"`
	Confidence float64 `yaml:"confidence"`
}

// CollateralBook maps asset IDs to appraisals. The book is loaded once at
// startup and read-only afterwards.
type CollateralBook struct {
	assets map[string]CollateralAsset
}

func (b *CollateralBook) Lookup(assetID string) (CollateralAsset, bool) {
	asset, ok := b.assets[assetID]
	return asset, ok
}

func (b *CollateralBook) Len() int {
	return len(b.assets)
}

// LoadCollateralBook reads a YAML file shaped as asset_id -> appraisal.
func LoadCollateralBook(path string) (*CollateralBook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collateral book: %w", err)
	}

	assets := make(map[string]CollateralAsset)
	if err := yaml.Unmarshal(raw, &assets); err != nil {
		return nil, fmt.Errorf("parse collateral book: %w", err)
	}
	for id, asset := range assets {
		if asset.Valuation < 0 {
			return nil, fmt.Errorf("collateral book: asset %s has negative valuation", id)
		}
		if asset.Confidence < 0 || asset.Confidence > 1 {
			return nil, fmt.Errorf("collateral book: asset %s confidence out of range", id)
		}
	}
	return &CollateralBook{assets: assets}, nil
}

// DefaultCollateralBook is the built-in appraisal set used when no book
// file is configured.
func DefaultCollateralBook() *CollateralBook {
	return &CollateralBook{
		assets: map[string]CollateralAsset{
			"PROP-2023-0147": {Valuation: 485000, Confidence: 0.92},
			"PROP-2022-0890": {Valuation: 312000, Confidence: 0.88},
			"VEH-2021-3321":  {Valuation: 24500, Confidence: 0.95},
			"EQP-2020-1102":  {Valuation: 78000, Confidence: 0.81},
		},
	}
}
