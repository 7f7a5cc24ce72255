package scoring

import (
	"math"
	"time"

	"omnichat_backend/internal/leads/domain"
)

// Breakdown holds the unrounded contribution of each factor.
type Breakdown struct {
	Source   float64
	Stage    float64
	Tags     float64
	Activity float64
	Value    float64
	Recency  float64
}

// Total is the sum of all contributions before rounding.
func (b Breakdown) Total() float64 {
	return b.Source + b.Stage + b.Tags + b.Activity + b.Value + b.Recency
}

// Score rounds the total once and clamps it to [0, 100].
func (b Breakdown) Score() int {
	return clampScore(b.Total())
}

// Factors returns each contribution rounded to one decimal, for display.
func (b Breakdown) Factors() map[string]float64 {
	return map[string]float64{
		"source":   roundTenth(b.Source),
		"stage":    roundTenth(b.Stage),
		"tags":     roundTenth(b.Tags),
		"activity": roundTenth(b.Activity),
		"value":    roundTenth(b.Value),
		"recency":  roundTenth(b.Recency),
	}
}

// Compute scores lead as of now. It has no side effects and never reads the clock.
func Compute(lead domain.Lead, now time.Time, w Weights) Breakdown {
	return compile(w).compute(lead, now)
}

func (t table) compute(lead domain.Lead, now time.Time) Breakdown {
	w := t.w
	b := w.Budgets

	activity := float64(len(lead.Timeline)+len(lead.Notes)) +
		w.CompletedTaskWeight*float64(lead.CompletedTaskCount())
	ageDays := now.Sub(lead.CreatedAt).Hours() / 24

	return Breakdown{
		Source: b.Source * t.sourceMultiplier(lead.Source),
		Stage:  b.Stage * t.stageMultiplier(lead.Stage),
		// Multiply before dividing so 25 points land on exactly 12.5.
		Tags:     clampFloat(t.rawTagPoints(lead.Tags)*b.Tags/w.TagNormalizer, 0, b.Tags),
		Activity: b.Activity * math.Min(1, activity/w.ActivitySaturation),
		Value:    b.Value * clampFloat(lead.LeadValue/w.ValueSaturation, 0, 1),
		// A creation time in the future counts as brand new.
		Recency: b.Recency * clampFloat(1-ageDays/w.RecencyWindowDays, 0, 1),
	}
}

func clampScore(value float64) int {
	if math.IsNaN(value) {
		return 0
	}
	rounded := math.Round(value)
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return int(rounded)
}

func clampFloat(value, minValue, maxValue float64) float64 {
	if math.IsNaN(value) || value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}
	return value
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
