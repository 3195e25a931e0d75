package reportfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// Exporter writes finished reports as analyst-facing spreadsheets: a
// summary sheet, evidence citations, and the resolved tool calls.
type Exporter struct {
	dir string
}

func NewExporter(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create report dir: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

func (e *Exporter) Export(report *domain.FinalReport) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return "", fmt.Errorf("rename summary sheet: %w", err)
	}

	rows := [][]any{
		{"Case ID", report.CaseID},
		{"Loan type", report.LoanType},
		{"Loan amount", report.LoanAmount},
		{"Question", report.BorrowerQuery},
		{"Decision", report.Decision},
		{"Risk score", report.RiskScore},
		{"Risk level", report.RiskLevel},
		{"Evidence reranked", report.Reranked},
		{"Completed at", report.CompletedAt.Format("2006-01-02 15:04:05 MST")},
		{"Rationale", report.Rationale},
	}
	if report.Review != nil {
		rows = append(rows,
			[]any{"Review verdict", string(report.Review.Verdict)},
			[]any{"Review notes", report.Review.Notes},
		)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return "", fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return "", fmt.Errorf("write summary row: %w", err)
		}
	}

	if err := e.writeCitations(f, report.Citations); err != nil {
		return "", err
	}
	if err := e.writeToolResults(f, report.ToolResults); err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, fmt.Sprintf("case-%s.xlsx", report.CaseID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save report file: %w", err)
	}
	return path, nil
}

func (e *Exporter) writeCitations(f *excelize.File, citations []domain.Citation) error {
	const sheet = "Evidence"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create evidence sheet: %w", err)
	}

	header := []any{"Chunk ID", "Source", "Page"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write evidence header: %w", err)
	}
	for i, c := range citations {
		row := []any{c.ChunkID, c.Source, c.SourcePage}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("evidence cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write evidence row: %w", err)
		}
	}
	return nil
}

func (e *Exporter) writeToolResults(f *excelize.File, records []domain.ToolCallRecord) error {
	const sheet = "Tool calls"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create tool sheet: %w", err)
	}

	header := []any{"Tool", "Arguments", "Status", "Result", "Error"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write tool header: %w", err)
	}
	for i, record := range records {
		args, _ := json.Marshal(record.Args)
		result := ""
		if record.Result != nil {
			raw, _ := json.Marshal(record.Result)
			result = string(raw)
		}
		row := []any{record.Tool, string(args), string(record.Status), result, record.Error}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("tool cell: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write tool row: %w", err)
		}
	}
	return nil
}
