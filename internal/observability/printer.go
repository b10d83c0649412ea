// Package observability renders bulk reports, job changes and eligibility checks for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/bulk"
	"github.com/jonathan/placement-portal/internal/db"
	"github.com/jonathan/placement-portal/internal/jobs"
	"github.com/jonathan/placement-portal/internal/results"
	"github.com/jonathan/placement-portal/internal/types"
	"github.com/olekukonko/tablewriter"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of identifiers listed per bucket
	maxItemsToShow = 5
)

var (
	headingColor = color.New(color.FgYellow, color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgRed)
)

// Printer writes human-readable summaries
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func (p *Printer) newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(p.out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

// PrintReport outputs a bulk ingestion or retraction report.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintReport(r *bulk.Report) {
	if r == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:      %s\n", r.JobID))
	sb.WriteString(fmt.Sprintf("Round:    %s\n", r.RoundName))
	if r.Status != "" {
		sb.WriteString(fmt.Sprintf("Status:   %s\n", r.Status))
	}
	sb.WriteString(fmt.Sprintf("Total:    %d", r.Total))
	p.printBox(strings.ToUpper(r.Operation)+" REPORT", sb.String())

	table := p.newTable("Outcome", "Count", "Identifiers")
	rows := []struct {
		name string
		ids  []string
	}{
		{"added", r.Added},
		{"updated", r.Updated},
		{"deleted", r.Deleted},
		{"not found", r.NotFound},
		{"duplicates", r.Duplicates},
	}
	for _, row := range rows {
		if len(row.ids) == 0 {
			continue
		}
		table.Append([]string{row.name, fmt.Sprintf("%d", len(row.ids)), summarize(row.ids)})
	}
	table.Render()

	if len(r.NotificationErrors) > 0 {
		warnColor.Fprintf(p.out, "\n%d notification(s) failed; results were kept\n", len(r.NotificationErrors))
		errs := p.newTable("Identifier", "Candidate", "Error")
		for _, e := range r.NotificationErrors {
			errs.Append([]string{e.Identifier, e.CandidateID, e.Message})
		}
		errs.Render()
	}
	if len(r.Failures) > 0 {
		warnColor.Fprintf(p.out, "\n%d identifier(s) could not be processed\n", len(r.Failures))
		failures := p.newTable("Identifier", "Error")
		for _, f := range r.Failures {
			failures.Append([]string{f.Identifier, f.Message})
		}
		failures.Render()
	}
	if r.NotificationsPending > 0 {
		headingColor.Fprintf(p.out, "\n%d notification(s) still being delivered\n", r.NotificationsPending)
	}
}

// PrintChange outputs the effect of creating or updating a job.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintChange(c *jobs.Change) {
	if c == nil || c.Job == nil {
		return
	}
	p.PrintJob(c.Job)

	if !c.RulesChanged {
		fmt.Fprintln(p.out, "Eligibility rules unchanged; nobody notified")
		return
	}
	okColor.Fprintf(p.out, "%d candidate(s) notified of the opening\n", len(c.Notified))
}

// PrintJob outputs a job's rules and rounds.
func (p *Printer) PrintJob(job *types.Job) {
	if job == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:       %s\n", job.ID))
	sb.WriteString(fmt.Sprintf("Company:  %s\n", job.Company))
	sb.WriteString(fmt.Sprintf("Title:    %s\n", job.Title))
	sb.WriteString(fmt.Sprintf("Branches: %s\n", orAny(job.Rules.AllowedBranches)))
	years := make([]string, 0, len(job.Rules.AllowedYears))
	for _, y := range job.Rules.AllowedYears {
		years = append(years, fmt.Sprintf("%d", y))
	}
	sb.WriteString(fmt.Sprintf("Years:    %s\n", orAny(years)))
	sb.WriteString(fmt.Sprintf("CPT:      %s\n", job.Rules.CPTMode))
	backlogs := "allowed"
	if job.Rules.RequireZeroBacklogs {
		backlogs = "none allowed"
	}
	sb.WriteString(fmt.Sprintf("Backlogs: %s", backlogs))
	p.printBox("JOB", sb.String())

	if len(job.Rounds) > 0 {
		table := p.newTable("#", "Round", "ID")
		for _, r := range job.Rounds {
			table.Append([]string{fmt.Sprintf("%d", r.Number), r.Name, r.ID.String()})
		}
		table.Render()
	}
}

// PrintCandidate outputs one candidate's profile.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintCandidate(c *types.Candidate) {
	if c == nil {
		return
	}
	table := p.newTable("ID", "Email", "Roll", "Branch", "Year", "Backlogs", "CPT")
	table.Append([]string{
		c.ID.String(),
		c.Email,
		c.RollNumber,
		c.Profile.Branch,
		fmt.Sprintf("%d", c.Profile.PassingYear),
		fmt.Sprintf("%d", c.Profile.ActiveBacklogs),
		fmt.Sprintf("%t", c.Profile.CPT),
	})
	table.Render()
}

// PrintCheck outputs one eligibility verdict.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintCheck(c *jobs.Check) {
	if c == nil {
		return
	}
	if c.Verdict.Admitted {
		okColor.Fprintf(p.out, "Candidate %s is eligible for job %s\n", c.CandidateID, c.JobID)
		return
	}
	warnColor.Fprintf(p.out, "Candidate %s is not eligible for job %s\n", c.CandidateID, c.JobID)
	for _, r := range c.Verdict.Reasons {
		fmt.Fprintf(p.out, "  • %s\n", r)
	}
}

// PrintCandidates outputs a list of candidate IDs under a heading.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintCandidates(heading string, ids []uuid.UUID) {
	headingColor.Fprintf(p.out, "%s (%d)\n", heading, len(ids))
	for _, id := range ids {
		fmt.Fprintf(p.out, "  %s\n", id)
	}
}

// PrintResults outputs stored round results.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResults(rs []results.Result) {
	if len(rs) == 0 {
		fmt.Fprintln(p.out, "No results")
		return
	}
	table := p.newTable("Candidate", "Job", "Round", "Status", "Updated")
	for _, r := range rs {
		table.Append([]string{
			r.CandidateID.String(),
			r.JobID.String(),
			r.RoundID.String(),
			string(r.Status),
			r.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

// PrintOutbox outputs notifications waiting for the mailer.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintOutbox(entries []db.OutboxEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.out, "Outbox is empty")
		return
	}
	table := p.newTable("ID", "Template", "Contact", "Queued")
	for _, e := range entries {
		table.Append([]string{
			fmt.Sprintf("%d", e.ID),
			e.Template,
			e.Contact,
			e.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	table.Render()
}

func summarize(ids []string) string {
	if len(ids) <= maxItemsToShow {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s ... and %d more", strings.Join(ids[:maxItemsToShow], ", "), len(ids)-maxItemsToShow)
}

func orAny(values []string) string {
	if len(values) == 0 {
		return "any"
	}
	return strings.Join(values, ", ")
}
