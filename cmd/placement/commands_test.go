package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags restores every flag to its default so commands can run more than once per process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PLACEMENT_DATABASE_URL", "")

	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestMigrateCommand_Print(t *testing.T) {
	out, err := execute(t, "migrate", "--print")
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE TABLE IF NOT EXISTS round_results")
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	_, err := execute(t, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestResultsCommands_ArgumentErrors(t *testing.T) {
	jobID := uuid.NewString()
	noStatus := writeFile(t, "upload.json", `{"identifiers": ["21CS001"]}`)
	badUpload := writeFile(t, "bad.json", `{"identifiers": []}`)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing job flag", []string{"results", "ingest", "--round", "R1", "--ids", "a"}, `required flag(s) "job" not set`},
		{"job is not a uuid", []string{"results", "ingest", "--job", "abc", "--round", "R1", "--status", "Qualified", "--ids", "a"}, "--job must be a UUID"},
		{"no identifiers", []string{"results", "ingest", "--job", jobID, "--round", "R1", "--status", "Qualified"}, "--ids or --file is required"},
		{"ids and file", []string{"results", "ingest", "--job", jobID, "--round", "R1", "--ids", "a", "--file", noStatus}, "not both"},
		{"file without status", []string{"results", "ingest", "--job", jobID, "--round", "R1", "--file", noStatus}, "--status is required"},
		{"file fails schema", []string{"results", "retract", "--job", jobID, "--round", "R1", "--file", badUpload}, "invalid upload file"},
		{"missing file", []string{"results", "retract", "--job", jobID, "--round", "R1", "--file", "/nonexistent/upload.json"}, "failed to read upload file"},
		{"no database", []string{"results", "ingest", "--job", jobID, "--round", "R1", "--status", "Qualified", "--ids", "a,b"}, "database URL is required"},
		{"list needs a selector", []string{"results", "list"}, "use either --candidate or --job with --round"},
		{"list with both selectors", []string{"results", "list", "--candidate", "a", "--job", jobID, "--round", "R1"}, "use either --candidate or --job with --round"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJobsCommands_ArgumentErrors(t *testing.T) {
	invalid := writeFile(t, "job.json", `{"company": "Acme"}`)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"create needs file", []string{"jobs", "create"}, `required flag(s) "file" not set`},
		{"create rejects schema violations", []string{"jobs", "create", "--file", invalid}, "invalid job file"},
		{"update needs uuid", []string{"jobs", "update", "--job", "42", "--file", invalid}, "--job must be a UUID"},
		{"show needs job", []string{"jobs", "show"}, `required flag(s) "job" not set`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEligibilityAndOutboxCommands_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"check needs candidate", []string{"eligibility", "check", "--job", uuid.NewString()}, `required flag(s) "candidate" not set`},
		{"diff needs rules file", []string{"eligibility", "diff", "--job", uuid.NewString(), "--rules", "/nonexistent/rules.json"}, "failed to read rules file"},
		{"outbox limit", []string{"outbox", "list", "--limit", "0"}, "--limit must be positive"},
		{"candidate backlogs", []string{"candidates", "add", "--email", "a@b.com", "--roll", "1", "--branch", "CSE", "--year", "2024", "--backlogs=-1"}, "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigFlagOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "notify:\n  mode: carrier-pigeon\n")
	_, err := execute(t, "--config", path, "migrate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify")
}
