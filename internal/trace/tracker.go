// Package trace records the ordered steps a research run attempts, with
// status, timing and confidence.
package trace

import (
	"time"
)

// Status is the lifecycle state of a step.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Step is one tracked unit of work.
type Step struct {
	Description string
	Reasoning   string
	Status      Status
	Result      Result
	Confidence  *float64
	StartTime   time.Time
	EndTime     *time.Time
}

// Duration returns EndTime - StartTime in seconds, or nil while the step is open.
func (s Step) Duration() *float64 {
	if s.EndTime == nil || s.StartTime.IsZero() {
		return nil
	}
	d := s.EndTime.Sub(s.StartTime).Seconds()
	return &d
}

// Handle identifies a step begun on a Tracker.
type Handle int

// Tracker accumulates steps for a single run. It is not safe for concurrent
// use; a run has exactly one writer.
type Tracker struct {
	steps []Step
	now   func() time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{now: time.Now}
}

// NewWithClock creates a tracker that reads time from now.
func NewWithClock(now func() time.Time) *Tracker {
	return &Tracker{now: now}
}

// Begin appends an in-progress step and returns its handle.
func (t *Tracker) Begin(description, reasoning string) Handle {
	t.steps = append(t.steps, Step{
		Description: description,
		Reasoning:   reasoning,
		Status:      StatusInProgress,
		StartTime:   t.now(),
	})
	return Handle(len(t.steps) - 1)
}

// Complete closes the step behind h. Unknown or already closed handles are ignored.
func (t *Tracker) Complete(h Handle, success bool, result any, confidence *float64) {
	i := int(h)
	if i < 0 || i >= len(t.steps) || t.steps[i].Status != StatusInProgress {
		return
	}
	end := t.now()
	s := &t.steps[i]
	s.Status = StatusFailed
	if success {
		s.Status = StatusCompleted
	}
	s.EndTime = &end
	s.Result = NewResult(result)
	s.Confidence = clamp(confidence)
}

// FailOpen marks every in-progress step as failed with message and returns
// how many were closed.
func (t *Tracker) FailOpen(message string) int {
	closed := 0
	for i := range t.steps {
		if t.steps[i].Status == StatusInProgress {
			t.Complete(Handle(i), false, map[string]string{"error": message}, nil)
			closed++
		}
	}
	return closed
}

// Len returns the number of recorded steps.
func (t *Tracker) Len() int {
	return len(t.steps)
}

// Steps returns a copy of the recorded steps in order.
func (t *Tracker) Steps() []Step {
	out := make([]Step, len(t.steps))
	copy(out, t.steps)
	return out
}

// Serialize returns the external shape of every step in order.
func (t *Tracker) Serialize() []Record {
	records := make([]Record, len(t.steps))
	for i, s := range t.steps {
		records[i] = NewRecord(s)
	}
	return records
}

// Confidence is a helper for passing literal confidences.
func Confidence(v float64) *float64 {
	return &v
}

func clamp(c *float64) *float64 {
	if c == nil {
		return nil
	}
	v := *c
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return &v
}
