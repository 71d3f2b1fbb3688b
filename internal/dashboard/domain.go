// Package dashboard aggregates back-office counts server-side, replacing the
// admin frontend's fetch-everything-and-reduce approach.
package dashboard

// EventProgress is the per-event task completion summary.
type EventProgress struct {
	EventID    string  `json:"event_id"`
	EventName  string  `json:"event_name"`
	TotalTasks int     `json:"total_tasks"`
	DoneTasks  int     `json:"done_tasks"`
	Completion float64 `json:"completion"`
}

// Summary is the dashboard payload.
type Summary struct {
	Counts map[string]int  `json:"counts"`
	Events []EventProgress `json:"events"`
}
