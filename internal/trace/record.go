package trace

import "time"

// Record is the serialized form of a Step.
type Record struct {
	Description string     `json:"description"`
	Reasoning   string     `json:"reasoning,omitempty"`
	Status      Status     `json:"status"`
	Result      Result     `json:"result"`
	Confidence  *float64   `json:"confidence"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	Duration    *float64   `json:"duration"`
}

// NewRecord converts a step into its serialized form.
func NewRecord(s Step) Record {
	return Record{
		Description: s.Description,
		Reasoning:   s.Reasoning,
		Status:      s.Status,
		Result:      s.Result,
		Confidence:  s.Confidence,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Duration:    s.Duration(),
	}
}

// Step reconstructs the step. Duration is derived again from the timestamps.
func (r Record) Step() Step {
	return Step{
		Description: r.Description,
		Reasoning:   r.Reasoning,
		Status:      r.Status,
		Result:      r.Result,
		Confidence:  r.Confidence,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
	}
}
