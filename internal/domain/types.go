package domain

// JobStatus tracks each stage of a single interactive swap job.
type JobStatus string

const (
	JobStatusIdle      JobStatus = "idle"
	JobStatusLoading   JobStatus = "loading"
	JobStatusDetecting JobStatus = "detecting"
	JobStatusSwapping  JobStatus = "swapping"
	JobStatusExporting JobStatus = "exporting"
	JobStatusDone      JobStatus = "done"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ModelDir    string `json:"modelDir"`
	SwapperPath string `json:"swapperPath"`
	OutputDir   string `json:"outputDir"`
}

// Job stores the current interactive job identity and lifecycle status.
type Job struct {
	ID     string    `json:"id"`
	Status JobStatus `json:"status"`
}
