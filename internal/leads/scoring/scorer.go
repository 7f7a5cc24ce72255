package scoring

import (
	"time"

	"omnichat_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Result is the scoring envelope returned by the API and cached.
type Result struct {
	LeadID     uuid.UUID          `json:"leadId"`
	TenantID   uuid.UUID          `json:"tenantId"`
	Score      int                `json:"score"`
	Label      Label              `json:"label"`
	Color      Color              `json:"color"`
	Factors    map[string]float64 `json:"factors"`
	Version    string             `json:"version"`
	ComputedAt time.Time          `json:"computedAt"`
}

// Scorer binds a validated weight model to a clock.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	table table
	now   func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock replaces time.Now as the scorer's notion of "now".
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScorer validates w and returns a Scorer using it.
func NewScorer(w Weights, opts ...Option) (*Scorer, error) {
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}
	s := &Scorer{table: compile(w.Clone()), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Weights returns a copy of the model in use.
func (s *Scorer) Weights() Weights {
	return s.table.w.Clone()
}

// Version identifies the model in use.
func (s *Scorer) Version() string {
	return s.table.w.Version
}

// Now reads the scorer's clock.
func (s *Scorer) Now() time.Time {
	return s.now()
}

// Score returns the 0-100 score of lead at the current clock time.
func (s *Scorer) Score(lead domain.Lead) int {
	return s.table.compute(lead, s.now()).Score()
}

// Evaluate scores, classifies and wraps lead into a Result.
func (s *Scorer) Evaluate(lead domain.Lead) Result {
	return s.EvaluateAt(lead, s.now())
}

// EvaluateAt is Evaluate with an explicit "now".
func (s *Scorer) EvaluateAt(lead domain.Lead, now time.Time) Result {
	b := s.table.compute(lead, now)
	score := b.Score()
	label, color := Classify(score)
	return Result{
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		Score:      score,
		Label:      label,
		Color:      color,
		Factors:    b.Factors(),
		Version:    s.table.w.Version,
		ComputedAt: now.UTC(),
	}
}
