package main

import (
	"testing"

	"github.com/jonathan/placement-portal/internal/config"
	"github.com/jonathan/placement-portal/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBatchInput(t *testing.T) {
	withStatus := writeFile(t, "with_status.json", `{"status": "Rejected", "identifiers": ["a", "b"]}`)

	tests := []struct {
		name       string
		ids        []string
		status     string
		file       string
		wantIDs    []string
		wantStatus string
	}{
		{"flags only", []string{"a"}, "Qualified", "", []string{"a"}, "Qualified"},
		{"file supplies status", nil, "", withStatus, []string{"a", "b"}, "Rejected"},
		{"flag status wins", nil, "Qualified", withStatus, []string{"a", "b"}, "Qualified"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids, status, err := batchInput(tt.ids, tt.status, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestReadJobRequest(t *testing.T) {
	path := writeFile(t, "job.json", `{
		"company": "Acme",
		"title": "SDE",
		"rules": {"allowed_branches": ["CSE"], "allowed_years": [2024], "cpt_mode": "BOTH"},
		"rounds": [{"number": 1, "name": "Aptitude"}, {"number": 2, "name": "HR"}]
	}`)

	req, err := readJobRequest(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme", req.Company)
	assert.Equal(t, []string{"CSE"}, req.Rules.AllowedBranches)
	assert.Equal(t, "BOTH", req.Rules.CPTMode)
	require.Len(t, req.Rounds, 2)
	assert.Equal(t, "HR", req.Rounds[1].Name)
}

func TestReadRules(t *testing.T) {
	rules, err := readRules(writeFile(t, "rules.json", `{"allowed_branches": ["CSE", "ECE"], "require_zero_backlogs": true}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"CSE", "ECE"}, rules.AllowedBranches)
	assert.True(t, rules.RequireZeroBacklogs)

	_, err = readRules(writeFile(t, "broken.json", `{`))
	assert.Error(t, err)
}

func TestParseID(t *testing.T) {
	_, err := parseID("job", "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--job")

	id, err := parseID("job", "6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id.String())
}

func TestNewNotifier(t *testing.T) {
	logger := zap.NewNop()

	n, err := newNotifier("", nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.LogNotifier{}, n)

	n, err = newNotifier(config.NotifyModeLog, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.LogNotifier{}, n)

	n, err = newNotifier(config.NotifyModeOutbox, nil, logger)
	require.NoError(t, err)
	assert.IsType(t, &notify.OutboxNotifier{}, n)

	_, err = newNotifier("sms", nil, logger)
	assert.Error(t, err)
}
