// Package domain holds the lead snapshot the scorer consumes.
// Leads are owned by the hosted backend; this package only describes their shape.
package domain

import (
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the completion state of a follow-up task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// TimelineEvent is one entry of a lead's append-only history.
type TimelineEvent struct {
	Type        string
	Description string
	OccurredAt  time.Time
}

// Note is a free-text annotation on a lead.
type Note struct {
	Body      string
	CreatedAt time.Time
}

// Task is a follow-up attached to a lead.
type Task struct {
	Title  string
	Status TaskStatus
	DueAt  *time.Time
}

// Lead is a read-only snapshot of a lead at scoring time.
type Lead struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Source    Source
	Stage     Stage
	Tags      []string
	Timeline  []TimelineEvent
	Notes     []Note
	Tasks     []Task
	LeadValue float64
	CreatedAt time.Time

	// Score is the last computed score; ScoredAt is nil when never scored.
	// ScoreVersion names the weight model that produced Score.
	Score        int
	ScoreVersion string
	ScoredAt     *time.Time
}

// CompletedTaskCount counts tasks in the completed state.
func (l Lead) CompletedTaskCount() int {
	n := 0
	for _, t := range l.Tasks {
		if t.Status == TaskStatusCompleted {
			n++
		}
	}
	return n
}

// Clone returns a deep copy; no slice or pointer is shared with l.
func (l Lead) Clone() Lead {
	out := l
	out.Tags = slices.Clone(l.Tags)
	out.Timeline = slices.Clone(l.Timeline)
	out.Notes = slices.Clone(l.Notes)
	if l.Tasks != nil {
		out.Tasks = make([]Task, len(l.Tasks))
		for i, t := range l.Tasks {
			out.Tasks[i] = t
			if t.DueAt != nil {
				due := *t.DueAt
				out.Tasks[i].DueAt = &due
			}
		}
	}
	if l.ScoredAt != nil {
		at := *l.ScoredAt
		out.ScoredAt = &at
	}
	return out
}

// SanitizeAmount coerces a monetary amount read from outside into the
// non-negative finite range. NaN, infinities and negatives become 0.
func SanitizeAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
