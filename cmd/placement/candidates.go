package main

import (
	"fmt"

	"github.com/jonathan/placement-portal/internal/eligibility"
	"github.com/jonathan/placement-portal/internal/types"
	"github.com/spf13/cobra"
)

var (
	candidateEmail    string
	candidateRoll     string
	candidateName     string
	candidateBranch   string
	candidateYear     int
	candidateBacklogs int
	candidateCPT      bool
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Manage the candidate directory",
}

var candidatesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a candidate",
	RunE:  runCandidatesAdd,
}

func init() {
	f := candidatesAddCmd.Flags()
	f.StringVar(&candidateEmail, "email", "", "Email address (required)")
	f.StringVar(&candidateRoll, "roll", "", "Roll number (required)")
	f.StringVar(&candidateName, "name", "", "Display name")
	f.StringVar(&candidateBranch, "branch", "", "Branch code, e.g. CSE (required)")
	f.IntVar(&candidateYear, "year", 0, "Passing year (required)")
	f.IntVar(&candidateBacklogs, "backlogs", 0, "Active backlog count")
	f.BoolVar(&candidateCPT, "cpt", false, "Enrolled in the CPT program")
	markRequired(candidatesAddCmd, "email", "roll", "branch", "year")

	candidatesCmd.AddCommand(candidatesAddCmd)
	rootCmd.AddCommand(candidatesCmd)
}

func runCandidatesAdd(cmd *cobra.Command, _ []string) error {
	if candidateBacklogs < 0 {
		return fmt.Errorf("--backlogs must not be negative")
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	created, err := a.db.CreateCandidate(cmd.Context(), &types.Candidate{
		Email:      candidateEmail,
		RollNumber: candidateRoll,
		Name:       candidateName,
		Profile: eligibility.Profile{
			Branch:         candidateBranch,
			PassingYear:    candidateYear,
			ActiveBacklogs: candidateBacklogs,
			CPT:            candidateCPT,
		},
	})
	if err != nil {
		return err
	}
	a.printer.PrintCandidate(created)
	return nil
}
