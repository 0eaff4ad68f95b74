package tasks

// Task types handled by the worker.
const (
	// TypeScheduledRun fires one batch run of the tagging scheduler.
	TypeScheduledRun = "schedule:run"
)

// QueueSchedule is the queue scheduled runs are placed on.
const QueueSchedule = "schedule"
