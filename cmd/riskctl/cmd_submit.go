package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/creditdesk/riskflow/internal/config"
	"github.com/creditdesk/riskflow/internal/core/domain"
	natsqueue "github.com/creditdesk/riskflow/internal/infrastructure/queue/nats"
)

var submitFlags struct {
	caseID     string
	loanType   string
	loanAmount float64
	query      string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Publish a credit case to the worker queue",
	RunE:  runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitFlags.caseID, "case-id", "", "case ID (generated when empty)")
	submitCmd.Flags().StringVar(&submitFlags.loanType, "loan-type", "personal", "loan product type")
	submitCmd.Flags().Float64Var(&submitFlags.loanAmount, "amount", 0, "requested loan amount")
	submitCmd.Flags().StringVar(&submitFlags.query, "query", "", "borrower question or case description (required)")
	_ = submitCmd.MarkFlagRequired("query")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()

	queue, err := natsqueue.New(cfg.NATSURL, natsqueue.Subjects{
		Cases:   cfg.NATSCasesSubject,
		Reports: cfg.NATSReportsSubject,
		Reviews: cfg.NATSReviewsSubject,
	})
	if err != nil {
		return err
	}
	defer queue.Close()

	caseID := submitFlags.caseID
	if caseID == "" {
		caseID = uuid.NewString()
	}

	if err := queue.PublishCase(cmd.Context(), domain.CreditCase{
		ID:            caseID,
		LoanType:      submitFlags.loanType,
		LoanAmount:    submitFlags.loanAmount,
		BorrowerQuery: submitFlags.query,
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "case %s submitted\n", caseID)
	return nil
}
