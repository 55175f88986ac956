package domain

// Stage identifies the step of a swap job where a failure occurred.
type Stage string

const (
	StageLoadSource   Stage = "load-source"
	StageLoadTarget   Stage = "load-target"
	StageDetectSource Stage = "detect-source"
	StageDetectTarget Stage = "detect-target"
	StageSwap         Stage = "swap"
	StagePersist      Stage = "persist"
)

// JobDescriptor is one (source, target, output) triple from a task list.
// All fields are trimmed at load time; path existence is checked only when
// the job runs, so one bad path cannot block the rest of the batch.
type JobDescriptor struct {
	FaceImage   string `json:"faceImage"`
	TargetImage string `json:"targetImage"`
	Output      string `json:"output"`
}

// JobOutcome is the immutable result of running one job. Exactly one of
// Success or a failed Stage applies; failed outcomes carry the reason.
type JobOutcome struct {
	Job        JobDescriptor `json:"job"`
	Success    bool          `json:"success"`
	OutputPath string        `json:"outputPath,omitempty"`
	Stage      Stage         `json:"stage,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// BatchSummary aggregates ordered job outcomes for one batch run.
// Total always equals Succeeded + Failed.
type BatchSummary struct {
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Outcomes  []JobOutcome `json:"outcomes"`
}

// Summarize derives counts from an ordered outcome list.
func Summarize(outcomes []JobOutcome) BatchSummary {
	summary := BatchSummary{
		Total:    len(outcomes),
		Outcomes: outcomes,
	}
	for _, outcome := range outcomes {
		if outcome.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}
