package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/placement-portal/internal/schemas"
	"github.com/jonathan/placement-portal/internal/types"
)

// upload is the bulk result file format.
type upload struct {
	Status      string   `json:"status"`
	Identifiers []string `json:"identifiers"`
}

// readUpload loads and schema-checks a bulk result file.
func readUpload(path string) (*upload, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload file: %w", err)
	}
	if err := schemas.ValidateBulkUpload(content); err != nil {
		return nil, fmt.Errorf("invalid upload file %s: %w", path, err)
	}

	var u upload
	if err := json.Unmarshal(content, &u); err != nil {
		return nil, fmt.Errorf("failed to parse upload file: %w", err)
	}
	return &u, nil
}

// batchInput merges --ids, --status and --file. Flag values win over the file's status.
func batchInput(ids []string, status string, file string) ([]string, string, error) {
	if file != "" && len(ids) > 0 {
		return nil, "", fmt.Errorf("use either --ids or --file, not both")
	}
	if file == "" {
		if len(ids) == 0 {
			return nil, "", fmt.Errorf("--ids or --file is required")
		}
		return ids, status, nil
	}

	u, err := readUpload(file)
	if err != nil {
		return nil, "", err
	}
	if status == "" {
		status = u.Status
	}
	return u.Identifiers, status, nil
}

// readJobRequest loads and schema-checks a job definition file.
func readJobRequest(path string) (*types.JobRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	if err := schemas.ValidateJob(content); err != nil {
		return nil, fmt.Errorf("invalid job file %s: %w", path, err)
	}

	var req types.JobRequest
	if err := json.Unmarshal(content, &req); err != nil {
		return nil, fmt.Errorf("failed to parse job file: %w", err)
	}
	return &req, nil
}

// readRules loads a rule-set document such as {"allowed_branches": ["CSE"]}.
func readRules(path string) (types.RuleSetInput, error) {
	var rules types.RuleSetInput
	content, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("failed to read rules file: %w", err)
	}
	if err := json.Unmarshal(content, &rules); err != nil {
		return rules, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return rules, nil
}

// parseID parses a UUID flag value.
func parseID(flag, value string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, fmt.Errorf("--%s must be a UUID: %w", flag, err)
	}
	return id, nil
}

// markRequired marks flags required, panicking on programmer error.
func markRequired(cmd interface{ MarkFlagRequired(string) error }, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}
}
