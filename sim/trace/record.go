// Package trace provides transition-trace recording for post-run analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// TransitionRecord captures a single state transition of one request.
type TransitionRecord struct {
	Seq         int64   `yaml:"seq"`       // global emission order, assigned on record
	Kind        string  `yaml:"kind"`      // arrived, admitted, completed, declined, canceled
	RequesterID int     `yaml:"user"`      // requester id from the script
	ResourceID  int     `yaml:"file"`      // 0-based file id
	Operation   string  `yaml:"operation"` // READ, WRITE or DELETE
	Clock       float64 `yaml:"clock"`     // virtual seconds since simulation start
}

// Transition kinds understood by Summarize.
const (
	KindArrived   = "arrived"
	KindAdmitted  = "admitted"
	KindCompleted = "completed"
	KindDeclined  = "declined"
	KindCanceled  = "canceled"
)
