package review

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/creditdesk/riskflow/internal/core/domain"
)

// ConsoleReviewer prompts a human on the terminal when a run escalates.
// Intended for the single-case CLI path; services use the hub instead.
type ConsoleReviewer struct {
	in  *bufio.Reader
	out io.Writer
}

func NewConsoleReviewer(in io.Reader, out io.Writer) *ConsoleReviewer {
	return &ConsoleReviewer{
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (r *ConsoleReviewer) Await(ctx context.Context, caseID string) (domain.ReviewDecision, error) {
	fmt.Fprintf(r.out, "\ncase %s requires review\n", caseID)

	for {
		if err := ctx.Err(); err != nil {
			return domain.ReviewDecision{}, err
		}

		fmt.Fprint(r.out, "[A]pprove / [O]verride / [R]eject / [T] send back for rethink: ")
		line, err := r.in.ReadString('\n')
		if err != nil {
			return domain.ReviewDecision{}, fmt.Errorf("read review input: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a", "approve":
			return r.decision(domain.VerdictApprove, 0, "")
		case "o", "override":
			score, err := r.readScore()
			if err != nil {
				fmt.Fprintf(r.out, "invalid score: %v\n", err)
				continue
			}
			notes, err := r.readLine("override notes (optional): ")
			if err != nil {
				return domain.ReviewDecision{}, err
			}
			return r.decision(domain.VerdictOverride, score, notes)
		case "r", "reject":
			notes, err := r.readLine("rejection notes (optional): ")
			if err != nil {
				return domain.ReviewDecision{}, err
			}
			return r.decision(domain.VerdictReject, 0, notes)
		case "t", "rethink":
			notes, err := r.readLine("what should the analysis reconsider: ")
			if err != nil {
				return domain.ReviewDecision{}, err
			}
			if strings.TrimSpace(notes) == "" {
				fmt.Fprintln(r.out, "rethink requires notes")
				continue
			}
			return r.decision(domain.VerdictRethink, 0, notes)
		default:
			fmt.Fprintln(r.out, "unrecognized choice")
		}
	}
}

func (r *ConsoleReviewer) decision(verdict domain.ReviewVerdict, score int, notes string) (domain.ReviewDecision, error) {
	return domain.ReviewDecision{
		Verdict:       verdict,
		OverrideScore: score,
		Notes:         strings.TrimSpace(notes),
		DecidedAt:     time.Now().UTC(),
	}, nil
}

func (r *ConsoleReviewer) readScore() (int, error) {
	line, err := r.readLine("override risk score [0-100]: ")
	if err != nil {
		return 0, err
	}
	score, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, err
	}
	if score < 0 || score > 100 {
		return 0, fmt.Errorf("score out of range: %d", score)
	}
	return score, nil
}

func (r *ConsoleReviewer) readLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	line, err := r.in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read review input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
