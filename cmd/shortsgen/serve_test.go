package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/shortsgen/internal/model"
	"github.com/sakif/shortsgen/internal/pipeline"
)

func TestReportRun_LogsFailedAndUnrecordedOutcomes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reportRun(logger, &model.RunSummary{
		RunID:  "run-1",
		Topics: []string{"A", "B", "C"},
		Users:  1,
		Outcomes: []model.JobOutcome{
			{UserID: "u1", Topic: "A", Status: model.JobPending, JobID: "j1", Recorded: true},
			{UserID: "u1", Topic: "B", Status: model.JobFailed, FailureKind: "rate_limit", Error: "slow down", JobID: "j2", Recorded: true},
			{UserID: "u1", Topic: "C", Status: model.JobPending, Error: "disk full"},
		},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3, "two outcome lines and one summary")

	out := buf.String()
	assert.NotContains(t, out, "topic=A")
	assert.Contains(t, out, "topic=B")
	assert.Contains(t, out, "failure_kind=rate_limit")
	assert.Contains(t, out, "topic=C")
	assert.Contains(t, out, "recorded=false")
	assert.Contains(t, lines[2], "run summary")
	assert.Contains(t, lines[2], "run_id=run-1")
	assert.Contains(t, lines[2], "succeeded=2")
	assert.Contains(t, lines[2], "failed=1")
	assert.Contains(t, lines[2], "unrecorded=1")
}

func TestReportRun_IncludesEarlyStopCause(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	reportRun(logger, &model.RunSummary{RunID: "run-2", UsersError: "db locked"})

	assert.Contains(t, buf.String(), `users_error="db locked"`)
	assert.NotContains(t, buf.String(), "trend_error")
}

func TestReportRun_NilSummary(t *testing.T) {
	var buf bytes.Buffer
	reportRun(slog.New(slog.NewTextHandler(&buf, nil)), nil)
	assert.Empty(t, buf.String())
}

func TestSkipContended(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	assert.NoError(t, skipContended(logger, "generate", pipeline.ErrRunInProgress))
	assert.Contains(t, buf.String(), "job=generate")

	err := fmt.Errorf("boom")
	assert.Equal(t, err, skipContended(logger, "generate", err))
}
