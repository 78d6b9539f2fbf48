package model

import "time"

// JobStatus is the lifecycle state of a GenerationJob.
type JobStatus string

const (
	// JobPending means the video provider accepted the request.
	JobPending JobStatus = "pending"
	// JobGenerating means the provider reported the render is in progress.
	JobGenerating JobStatus = "generating"
	// JobReady means a rendered video is available at VideoURL.
	JobReady JobStatus = "ready"
	// JobUploaded means the video was published to the user's YouTube channel.
	JobUploaded JobStatus = "uploaded"
	// JobFailed means script or video generation failed; Error says why.
	JobFailed JobStatus = "failed"
)

// Terminal reports whether no further reconciliation can change the status.
func (s JobStatus) Terminal() bool {
	return s == JobUploaded || s == JobFailed
}

// GenerationJob is one ledger entry: a single (user, topic) attempt in a run.
//
// RunID and Position record where the entry sits in its run's iteration
// order, so listing by (run_id, position) reproduces the processing order.
// ExternalID is nil when the video provider never accepted the request.
type GenerationJob struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	RunID       string    `json:"runId"`
	Position    int       `json:"position"`
	Topic       string    `json:"topic"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Script      string    `json:"script"`
	ExternalID  *string   `json:"externalId,omitempty"`
	Status      JobStatus `json:"status"`
	FailureKind string    `json:"failureKind,omitempty"`
	Error       string    `json:"error,omitempty"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	YouTubeID   string    `json:"youtubeId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
