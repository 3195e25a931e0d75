package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the underwriting policy file: escalation thresholds, retry
// budgets, and stage timeouts. All fields have working defaults so the
// service runs without a file; a configured path that cannot be read or
// parsed is a startup error.
type Policy struct {
	Escalation struct {
		RiskScoreThreshold  int     `yaml:"risk_score_threshold"`
		ConfidenceFloor     float64 `yaml:"confidence_floor"`
		LoanAmountThreshold float64 `yaml:"loan_amount_threshold"`
		DTIThreshold        float64 `yaml:"dti_threshold"`
	} `yaml:"escalation"`

	Retries struct {
		Retrieve int `yaml:"retrieve"`
		Analyze  int `yaml:"analyze"`
		ToolCall int `yaml:"tool_call"`
		ToolLoop int `yaml:"tool_loop"`
	} `yaml:"retries"`

	TimeoutsSeconds struct {
		Retrieve int `yaml:"retrieve"`
		Analyze  int `yaml:"analyze"`
		ToolCall int `yaml:"tool_call"`
	} `yaml:"timeouts_seconds"`

	CollateralBook string `yaml:"collateral_book"`
}

func DefaultPolicy() Policy {
	var p Policy
	p.Escalation.RiskScoreThreshold = 70
	p.Escalation.ConfidenceFloor = 0.6
	p.Escalation.LoanAmountThreshold = 500000
	p.Escalation.DTIThreshold = 0.43
	p.Retries.Retrieve = 3
	p.Retries.Analyze = 2
	p.Retries.ToolCall = 3
	p.Retries.ToolLoop = 4
	p.TimeoutsSeconds.Retrieve = 15
	p.TimeoutsSeconds.Analyze = 60
	p.TimeoutsSeconds.ToolCall = 10
	return p
}

// LoadPolicy reads the policy file at path, or returns defaults when path
// is empty.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := validatePolicy(policy); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

func validatePolicy(p Policy) error {
	if p.Escalation.RiskScoreThreshold < 0 || p.Escalation.RiskScoreThreshold > 100 {
		return fmt.Errorf("policy: risk_score_threshold must be in [0,100]")
	}
	if p.Escalation.ConfidenceFloor < 0 || p.Escalation.ConfidenceFloor > 1 {
		return fmt.Errorf("policy: confidence_floor must be in [0,1]")
	}
	if p.Escalation.DTIThreshold < 0 || p.Escalation.DTIThreshold > 1 {
		return fmt.Errorf("policy: dti_threshold must be in [0,1]")
	}
	if p.Retries.Retrieve < 0 || p.Retries.Analyze < 0 || p.Retries.ToolCall < 0 || p.Retries.ToolLoop < 0 {
		return fmt.Errorf("policy: retry budgets must not be negative")
	}
	return nil
}
