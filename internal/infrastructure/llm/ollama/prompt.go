package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

func buildAnalysisPrompt(
	cs domain.CreditCase,
	evidence domain.EvidenceSet,
	toolCalls []domain.ToolCallRecord,
	reviewNotes []string,
	toolNames []string,
) string {
	var b strings.Builder

	b.WriteString(`You are a senior credit risk analyst.
Return strict JSON object with keys:
report (string), risk_score (integer from 0 to 100), confidence (number from 0 to 1), tool_requests (array of {name, args}).
If you need a deterministic computation first, return only tool_requests and leave report empty.
Never re-request a tool call whose result already appears below.
No markdown, no extra keys.

`)

	fmt.Fprintf(&b, "Available tools: %s\n\n", strings.Join(toolNames, ", "))
	fmt.Fprintf(&b, "Case:\nloan_type=%s\nloan_amount=%.2f\nquestion=%s\n\n", cs.LoanType, cs.LoanAmount, cs.BorrowerQuery)

	b.WriteString("Policy evidence:\n")
	for idx, c := range evidence.Candidates {
		fmt.Fprintf(&b, "[%d] source=%s page=%d score=%.3f\n%s\n\n", idx+1, c.Source, c.SourcePage, c.FusedScore, c.Text)
	}

	if len(toolCalls) > 0 {
		b.WriteString("Tool results:\n")
		for _, call := range toolCalls {
			line, _ := json.Marshal(call)
			b.Write(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(reviewNotes) > 0 {
		b.WriteString("Reviewer feedback to address:\n")
		for _, note := range reviewNotes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
		b.WriteString("\n")
	}

	return b.String()
}
