package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/creditdesk/riskflow/internal/config"
	"github.com/creditdesk/riskflow/internal/core/domain"
	natsqueue "github.com/creditdesk/riskflow/internal/infrastructure/queue/nats"
)

var reviewFlags struct {
	caseID        string
	verdict       string
	overrideScore int
	notes         string
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Send a review decision to a case suspended in a worker",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewFlags.caseID, "case-id", "", "case ID awaiting review (required)")
	reviewCmd.Flags().StringVar(&reviewFlags.verdict, "verdict", "", "approve, override, reject, or rethink (required)")
	reviewCmd.Flags().IntVar(&reviewFlags.overrideScore, "score", 0, "override risk score [0-100], with --verdict=override")
	reviewCmd.Flags().StringVar(&reviewFlags.notes, "notes", "", "reviewer notes; required with --verdict=rethink")
	_ = reviewCmd.MarkFlagRequired("case-id")
	_ = reviewCmd.MarkFlagRequired("verdict")
}

func runReview(cmd *cobra.Command, _ []string) error {
	decision := domain.ReviewDecision{
		Verdict:       domain.ReviewVerdict(reviewFlags.verdict),
		OverrideScore: reviewFlags.overrideScore,
		Notes:         reviewFlags.notes,
		DecidedAt:     time.Now().UTC(),
	}
	switch decision.Verdict {
	case domain.VerdictApprove, domain.VerdictOverride, domain.VerdictReject, domain.VerdictRethink:
	default:
		return fmt.Errorf("unknown verdict: %s", reviewFlags.verdict)
	}

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

	if err := queue.PublishReviewDecision(cmd.Context(), reviewFlags.caseID, decision); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "decision %s sent for case %s\n", reviewFlags.verdict, reviewFlags.caseID)
	return nil
}
