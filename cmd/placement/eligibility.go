package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	eligibilityJob       string
	eligibilityCandidate string
	eligibilityRules     string
)

var eligibilityCmd = &cobra.Command{
	Use:   "eligibility",
	Short: "Check and preview eligibility",
}

var eligibilityCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate one candidate against a job's current rules",
	RunE:  runEligibilityCheck,
}

var eligibilityDiffCmd = &cobra.Command{
	Use:   "diff",
	Short: "List candidates a new rule-set would newly admit",
	Long:  "Compares the job's current rules with the rules in --rules and lists candidates who are not eligible now but would be. Nothing is saved and nobody is notified.",
	RunE:  runEligibilityDiff,
}

func init() {
	eligibilityCheckCmd.Flags().StringVar(&eligibilityJob, "job", "", "Job ID (required)")
	eligibilityCheckCmd.Flags().StringVar(&eligibilityCandidate, "candidate", "", "Candidate ID, email or roll number (required)")
	markRequired(eligibilityCheckCmd, "job", "candidate")

	eligibilityDiffCmd.Flags().StringVar(&eligibilityJob, "job", "", "Job ID (required)")
	eligibilityDiffCmd.Flags().StringVar(&eligibilityRules, "rules", "", "Path to a rule-set JSON file (required)")
	markRequired(eligibilityDiffCmd, "job", "rules")

	eligibilityCmd.AddCommand(eligibilityCheckCmd, eligibilityDiffCmd)
	rootCmd.AddCommand(eligibilityCmd)
}

func runEligibilityCheck(cmd *cobra.Command, _ []string) error {
	jobID, err := parseID("job", eligibilityJob)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	candidate, err := a.db.ResolveCandidate(ctx, eligibilityCandidate)
	if err != nil {
		return err
	}
	if candidate == nil {
		return fmt.Errorf("candidate not found: %s", eligibilityCandidate)
	}

	check, err := a.jobs.CheckEligibility(ctx, candidate.ID, jobID)
	if err != nil {
		return err
	}
	a.printer.PrintCheck(check)
	return nil
}

func runEligibilityDiff(cmd *cobra.Command, _ []string) error {
	jobID, err := parseID("job", eligibilityJob)
	if err != nil {
		return err
	}
	rules, err := readRules(eligibilityRules)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.jobs.PreviewDiff(cmd.Context(), jobID, rules)
	if err != nil {
		return err
	}
	a.printer.PrintCandidates("Newly eligible", ids)
	return nil
}
