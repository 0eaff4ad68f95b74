package models

/*
Run status and service type constants shared by the scheduler, the HTTP
handlers and the cost tracker.
*/

// Run status values reported for manual and scheduled runs.
const (
	RunStatusSuccess = "success"
	RunStatusError   = "error"
	RunStatusSkipped = "skipped"
)

// Service type constants recorded in the AI usage log.
const (
	ServiceTypeTagOptimization = "tag_optimization"
)
