package model

import "time"

// JobOutcome is the per-item result of a generation run.
type JobOutcome struct {
	UserID      string    `json:"userId"`
	Topic       string    `json:"topic"`
	JobID       string    `json:"jobId,omitempty"`
	Status      JobStatus `json:"status"`
	FailureKind string    `json:"failureKind,omitempty"`
	Error       string    `json:"error,omitempty"`
	// Recorded is false when the ledger write itself failed.
	Recorded bool `json:"recorded"`
}

// SkippedUser records a user the run did not process and why.
type SkippedUser struct {
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

// RunSummary reports what a generation run did, item by item.
type RunSummary struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Topics     []string      `json:"topics"`
	TrendError string        `json:"trendError,omitempty"`
	UsersError string        `json:"usersError,omitempty"`
	Users      int           `json:"users"`
	Skipped    []SkippedUser `json:"skipped,omitempty"`
	Outcomes   []JobOutcome  `json:"outcomes"`
}

// Succeeded counts outcomes the video provider accepted.
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Status != JobFailed {
			n++
		}
	}
	return n
}

// Failed counts outcomes that ended in JobFailed.
func (s *RunSummary) Failed() int {
	return len(s.Outcomes) - s.Succeeded()
}

// ReconcileSummary reports a status reconciliation pass.
type ReconcileSummary struct {
	Checked  int `json:"checked"`
	Updated  int `json:"updated"`
	Uploaded int `json:"uploaded"`
	Failed   int `json:"failed"`
	Errors   int `json:"errors"`
}
