package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/creditdesk/riskflow/internal/bootstrap"
	"github.com/creditdesk/riskflow/internal/config"
	"github.com/creditdesk/riskflow/internal/core/domain"
	"github.com/creditdesk/riskflow/internal/infrastructure/review"
)

var runFlags struct {
	loanType   string
	loanAmount float64
	query      string
	export     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one credit case end to end, reviewing on this terminal",
	Long: "Runs a single case through retrieval, analysis, and decision without\n" +
		"a deployment. If the case escalates, the review prompt appears here.",
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runFlags.loanType, "loan-type", "personal", "loan product type")
	runCmd.Flags().Float64Var(&runFlags.loanAmount, "amount", 0, "requested loan amount")
	runCmd.Flags().StringVar(&runFlags.query, "query", "", "borrower question or case description (required)")
	runCmd.Flags().BoolVar(&runFlags.export, "export", false, "write the final report as a spreadsheet")
	_ = runCmd.MarkFlagRequired("query")
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()

	app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.Options{
		Service:      "riskctl",
		ReviewSource: review.NewConsoleReviewer(os.Stdin, os.Stderr),
	})
	if err != nil {
		return err
	}
	defer app.Close()

	report, err := app.Orchestrator.Run(cmd.Context(), domain.CreditCase{
		ID:            uuid.NewString(),
		LoanType:      runFlags.loanType,
		LoanAmount:    runFlags.loanAmount,
		BorrowerQuery: runFlags.query,
	})
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

	if runFlags.export {
		path, err := app.Exporter.Export(report)
		if err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "report written to %s\n", path)
	}
	return nil
}
