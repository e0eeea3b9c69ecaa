package dto

import "time"

// PurgeResult summarises one archival purge run.
type PurgeResult struct {
	Cutoff   time.Time `json:"cutoff"`
	Purged   []string  `json:"purged"`
	Failed   []string  `json:"failed,omitempty"`
	Archived []string  `json:"archived"`
}

// PurgeAccepted acknowledges an on-demand purge.
type PurgeAccepted struct {
	JobID    string    `json:"jobId"`
	Enqueued time.Time `json:"enqueuedAt"`
}
