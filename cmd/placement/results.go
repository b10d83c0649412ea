package main

import (
	"fmt"

	"github.com/jonathan/placement-portal/internal/bulk"
	"github.com/jonathan/placement-portal/internal/results"
	"github.com/jonathan/placement-portal/internal/types"
	"github.com/spf13/cobra"
)

var (
	resultsJob       string
	resultsRound     string
	resultsStatus    string
	resultsIDs       []string
	resultsFile      string
	resultsCandidate string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Record, retract and list round results",
}

var resultsIngestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Record one status for many candidates at a round",
	Long: `Records a status for every identifier (candidate ID, email or roll number) at the given round.
Re-running the same batch updates existing results instead of duplicating them.

Identifiers come from --ids or from a JSON file: {"status": "Qualified", "identifiers": ["21CS001", "a@b.com"]}`,
	RunE: runResultsIngest,
}

var resultsRetractCmd = &cobra.Command{
	Use:   "retract",
	Short: "Remove many candidates' results at a round",
	Long:  "Deletes the result for every identifier at the given round and tells each affected candidate to disregard it.",
	RunE:  runResultsRetract,
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List results for a candidate or for a round",
	RunE:  runResultsList,
}

func init() {
	for _, c := range []*cobra.Command{resultsIngestCmd, resultsRetractCmd} {
		c.Flags().StringVar(&resultsJob, "job", "", "Job ID (required)")
		c.Flags().StringVar(&resultsRound, "round", "", "Round name (required)")
		c.Flags().StringSliceVar(&resultsIDs, "ids", nil, "Comma-separated candidate identifiers")
		c.Flags().StringVarP(&resultsFile, "file", "f", "", "Path to a bulk upload JSON file")
		markRequired(c, "job", "round")
	}
	resultsIngestCmd.Flags().StringVar(&resultsStatus, "status", "", "Result status, e.g. Qualified (overrides the file)")

	resultsListCmd.Flags().StringVar(&resultsCandidate, "candidate", "", "Candidate ID, email or roll number")
	resultsListCmd.Flags().StringVar(&resultsJob, "job", "", "Job ID (with --round)")
	resultsListCmd.Flags().StringVar(&resultsRound, "round", "", "Round name (with --job)")

	resultsCmd.AddCommand(resultsIngestCmd, resultsRetractCmd, resultsListCmd)
	rootCmd.AddCommand(resultsCmd)
}

func runResultsIngest(cmd *cobra.Command, _ []string) error {
	jobID, err := parseID("job", resultsJob)
	if err != nil {
		return err
	}
	ids, status, err := batchInput(resultsIDs, resultsStatus, resultsFile)
	if err != nil {
		return err
	}
	if status == "" {
		return fmt.Errorf("--status is required when the upload file has none")
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.pipeline.Ingest(cmd.Context(), bulk.IngestRequest{
		JobID:       jobID,
		RoundName:   resultsRound,
		Status:      types.Status(status),
		Identifiers: ids,
	})
	if err != nil {
		return err
	}
	a.printer.PrintReport(report)
	return nil
}

func runResultsRetract(cmd *cobra.Command, _ []string) error {
	jobID, err := parseID("job", resultsJob)
	if err != nil {
		return err
	}
	ids, _, err := batchInput(resultsIDs, "", resultsFile)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.pipeline.Retract(cmd.Context(), bulk.RetractRequest{
		JobID:       jobID,
		RoundName:   resultsRound,
		Identifiers: ids,
	})
	if err != nil {
		return err
	}
	a.printer.PrintReport(report)
	return nil
}

func runResultsList(cmd *cobra.Command, _ []string) error {
	byCandidate := resultsCandidate != ""
	byRound := resultsJob != "" && resultsRound != ""
	if byCandidate == byRound {
		return fmt.Errorf("use either --candidate or --job with --round")
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	var list []results.Result
	if byCandidate {
		candidate, err := a.db.ResolveCandidate(ctx, resultsCandidate)
		if err != nil {
			return err
		}
		if candidate == nil {
			return fmt.Errorf("candidate not found: %s", resultsCandidate)
		}
		list, err = a.db.Results().ListByCandidate(ctx, candidate.ID)
		if err != nil {
			return err
		}
	} else {
		jobID, err := parseID("job", resultsJob)
		if err != nil {
			return err
		}
		round, err := a.db.GetRoundByName(ctx, jobID, resultsRound)
		if err != nil {
			return err
		}
		if round == nil {
			return fmt.Errorf("round not found: %s", resultsRound)
		}
		list, err = a.db.Results().ListByRound(ctx, jobID, round.ID)
		if err != nil {
			return err
		}
	}

	a.printer.PrintResults(list)
	return nil
}
