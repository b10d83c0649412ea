package main

import (
	"github.com/spf13/cobra"
)

var (
	jobFile string
	jobID   string
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Create, update and inspect job openings",
}

var jobsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a job and notify every eligible candidate",
	Long:  "Creates a job from a JSON definition (company, title, rules, rounds) and queues a job opening notification for every candidate its rules admit.",
	RunE:  runJobsCreate,
}

var jobsUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Replace a job's details, rules and rounds",
	Long:  "Replaces a job atomically. When the rules change, only candidates who were not eligible before and are now get notified. Rounds are matched by number, so renaming a round keeps its results.",
	RunE:  runJobsUpdate,
}

var jobsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a job with its rounds",
	RunE:  runJobsShow,
}

func init() {
	jobsCreateCmd.Flags().StringVarP(&jobFile, "file", "f", "", "Path to job JSON file (required)")
	markRequired(jobsCreateCmd, "file")

	jobsUpdateCmd.Flags().StringVar(&jobID, "job", "", "Job ID (required)")
	jobsUpdateCmd.Flags().StringVarP(&jobFile, "file", "f", "", "Path to job JSON file (required)")
	markRequired(jobsUpdateCmd, "job", "file")

	jobsShowCmd.Flags().StringVar(&jobID, "job", "", "Job ID (required)")
	markRequired(jobsShowCmd, "job")

	jobsCmd.AddCommand(jobsCreateCmd, jobsUpdateCmd, jobsShowCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobsCreate(cmd *cobra.Command, _ []string) error {
	req, err := readJobRequest(jobFile)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	change, err := a.jobs.CreateJob(cmd.Context(), req)
	if err != nil {
		return err
	}
	a.printer.PrintChange(change)
	return nil
}

func runJobsUpdate(cmd *cobra.Command, _ []string) error {
	id, err := parseID("job", jobID)
	if err != nil {
		return err
	}
	req, err := readJobRequest(jobFile)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	change, err := a.jobs.UpdateJob(cmd.Context(), id, req)
	if err != nil {
		return err
	}
	a.printer.PrintChange(change)
	return nil
}

func runJobsShow(cmd *cobra.Command, _ []string) error {
	id, err := parseID("job", jobID)
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	job, err := a.jobs.GetJob(cmd.Context(), id)
	if err != nil {
		return err
	}
	a.printer.PrintJob(job)
	return nil
}
