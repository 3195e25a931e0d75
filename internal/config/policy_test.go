package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestLoadPolicyEmptyPathReturnsDefaults(t *testing.T) {
	policy, err := LoadPolicy("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Escalation.RiskScoreThreshold != 70 {
		t.Fatalf("expected default risk threshold 70, got %d", policy.Escalation.RiskScoreThreshold)
	}
	if policy.Retries.ToolLoop != 4 {
		t.Fatalf("expected default tool loop budget 4, got %d", policy.Retries.ToolLoop)
	}
	if policy.TimeoutsSeconds.Analyze != 60 {
		t.Fatalf("expected default analyze timeout 60s, got %d", policy.TimeoutsSeconds.Analyze)
	}
}

func TestLoadPolicyOverridesDefaults(t *testing.T) {
	path := writePolicy(t, `
escalation:
  risk_score_threshold: 55
  loan_amount_threshold: 250000
retries:
  retrieve: 5
collateral_book: ./collateral.yaml
`)

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if policy.Escalation.RiskScoreThreshold != 55 {
		t.Fatalf("expected overridden threshold 55, got %d", policy.Escalation.RiskScoreThreshold)
	}
	if policy.Escalation.LoanAmountThreshold != 250000 {
		t.Fatalf("expected overridden amount threshold, got %f", policy.Escalation.LoanAmountThreshold)
	}
	if policy.Retries.Retrieve != 5 {
		t.Fatalf("expected overridden retrieve budget, got %d", policy.Retries.Retrieve)
	}
	// Unset fields keep their defaults.
	if policy.Escalation.ConfidenceFloor != 0.6 {
		t.Fatalf("expected default confidence floor retained, got %f", policy.Escalation.ConfidenceFloor)
	}
	if policy.CollateralBook != "./collateral.yaml" {
		t.Fatalf("unexpected collateral book path: %s", policy.CollateralBook)
	}
}

func TestLoadPolicyRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"risk threshold above range": "escalation:\n  risk_score_threshold: 150\n",
		"confidence above range":     "escalation:\n  confidence_floor: 1.5\n",
		"dti above range":            "escalation:\n  dti_threshold: 2\n",
		"negative retry budget":      "retries:\n  analyze: -1\n",
	}
	for name, content := range cases {
		if _, err := LoadPolicy(writePolicy(t, content)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadPolicyMissingFileFails(t *testing.T) {
	if _, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing policy file")
	}
}
