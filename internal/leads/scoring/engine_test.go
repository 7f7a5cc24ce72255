package scoring

import (
	"math"
	"reflect"
	"testing"
	"time"

	"omnichat_backend/internal/leads/domain"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func exampleLead() domain.Lead {
	return domain.Lead{
		Source:    domain.SourceReferral,
		Stage:     domain.StageClosedWon,
		Tags:      []string{"VIP"},
		Timeline:  []domain.TimelineEvent{{Type: "created"}, {Type: "stage_changed"}},
		Notes:     []domain.Note{{Body: "Asked for a demo"}},
		Tasks:     []domain.Task{{Title: "Send proposal", Status: domain.TaskStatusCompleted}},
		LeadValue: 3000,
		CreatedAt: fixedNow,
	}
}

func bareLead() domain.Lead {
	return domain.Lead{
		Source:    domain.SourceManual,
		Stage:     domain.StageNew,
		CreatedAt: fixedNow,
	}
}

func TestComputeEndToEndExample(t *testing.T) {
	b := Compute(exampleLead(), fixedNow, DefaultWeights())

	want := Breakdown{Source: 15, Stage: 25, Tags: 12.5, Activity: 10, Value: 15, Recency: 10}
	if b != want {
		t.Fatalf("expected breakdown %+v, got %+v", want, b)
	}
	if b.Total() != 87.5 {
		t.Fatalf("expected total 87.5, got %v", b.Total())
	}
	if b.Score() != 88 {
		t.Fatalf("expected score 88, got %d", b.Score())
	}
	if label, color := Classify(b.Score()); label != LabelHot || color != ColorRed {
		t.Fatalf("expected Hot/red, got %s/%s", label, color)
	}
}

func TestComputeUnknownSourceUsesFallbackMultiplier(t *testing.T) {
	lead := bareLead()
	lead.Source = domain.Source("Carrier Pigeon")

	b := Compute(lead, fixedNow, DefaultWeights())
	if b.Source != 7.5 {
		t.Fatalf("expected unknown source to contribute 7.5, got %v", b.Source)
	}
}

func TestComputeUnknownStageUsesFallbackMultiplier(t *testing.T) {
	lead := bareLead()
	lead.Stage = domain.Stage("Negotiation")

	b := Compute(lead, fixedNow, DefaultWeights())
	if b.Stage != 5 {
		t.Fatalf("expected unknown stage to contribute 5, got %v", b.Stage)
	}
}

func TestComputeMatchesUnparsedSpellings(t *testing.T) {
	lead := bareLead()
	lead.Source = domain.Source("landing_page")
	lead.Stage = domain.Stage("closed-won")

	b := Compute(lead, fixedNow, DefaultWeights())
	if b.Source != 15*0.75 {
		t.Fatalf("expected landing page multiplier, got %v", b.Source)
	}
	if b.Stage != 25 {
		t.Fatalf("expected closed won multiplier, got %v", b.Stage)
	}
}

func TestComputeTagSignals(t *testing.T) {
	cases := []struct {
		name string
		tags []string
		want float64
	}{
		{"no tags", nil, 0},
		{"only negative floors at zero", []string{"LowPriority"}, 0},
		{"mixed negative floors at zero", []string{"Spam", "Interested"}, 0},
		{"unknown tag earns two points", []string{"Golf Buddy"}, 1},
		{"caps at budget", []string{"VIP", "Hot", "Enterprise"}, 15},
		{"case and separator insensitive", []string{"decision_maker"}, 7.5},
		{"duplicates count once", []string{"VIP", "vip", " VIP "}, 12.5},
		{"blank tags ignored", []string{"", "   "}, 0},
	}

	for _, tc := range cases {
		lead := bareLead()
		lead.Tags = tc.tags
		got := Compute(lead, fixedNow, DefaultWeights()).Tags
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s: expected tags %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestComputeActivitySaturates(t *testing.T) {
	lead := bareLead()
	for range 12 {
		lead.Notes = append(lead.Notes, domain.Note{Body: "ping"})
	}
	lead.Tasks = []domain.Task{{Status: domain.TaskStatusPending}}

	if got := Compute(lead, fixedNow, DefaultWeights()).Activity; got != 20 {
		t.Fatalf("expected activity capped at 20, got %v", got)
	}

	lead.Notes = nil
	lead.Tasks = []domain.Task{{Status: domain.TaskStatusPending}, {Status: domain.TaskStatusCompleted}}
	if got := Compute(lead, fixedNow, DefaultWeights()).Activity; got != 4 {
		t.Fatalf("expected only completed tasks to count (4 points), got %v", got)
	}
}

func TestComputeValueRatioIsClamped(t *testing.T) {
	cases := map[float64]float64{
		0:     0,
		1500:  7.5,
		3000:  15,
		90000: 15,
		-500:  0,
	}
	for value, want := range cases {
		lead := bareLead()
		lead.LeadValue = value
		if got := Compute(lead, fixedNow, DefaultWeights()).Value; got != want {
			t.Fatalf("leadValue %v: expected %v, got %v", value, want, got)
		}
	}
}

func TestComputeRecency(t *testing.T) {
	cases := []struct {
		age  time.Duration
		want float64
	}{
		{0, 10},
		{30 * 24 * time.Hour, 5},
		{60 * 24 * time.Hour, 0},
		{90 * 24 * time.Hour, 0},
		{-48 * time.Hour, 10},
		{36 * time.Hour, 10 * (1 - 1.5/60)},
	}
	for _, tc := range cases {
		lead := bareLead()
		lead.CreatedAt = fixedNow.Add(-tc.age)
		got := Compute(lead, fixedNow, DefaultWeights()).Recency
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("age %s: expected recency %v, got %v", tc.age, tc.want, got)
		}
	}
}

func TestComputeIsBounded(t *testing.T) {
	maxed := exampleLead()
	maxed.Tags = []string{"VIP", "Hot", "Decision Maker"}
	for range 20 {
		maxed.Timeline = append(maxed.Timeline, domain.TimelineEvent{Type: "touch"})
	}
	maxed.LeadValue = 1e9

	empty := domain.Lead{
		Source:    domain.Source("??"),
		Stage:     domain.Stage("??"),
		Tags:      []string{"Spam"},
		CreatedAt: fixedNow.AddDate(-5, 0, 0),
	}

	for _, lead := range []domain.Lead{maxed, empty, bareLead(), exampleLead(), {}} {
		score := Compute(lead, fixedNow, DefaultWeights()).Score()
		if score < 0 || score > 100 {
			t.Fatalf("score out of bounds: %d", score)
		}
	}
	if got := Compute(maxed, fixedNow, DefaultWeights()).Score(); got != 100 {
		t.Fatalf("expected fully saturated lead to score 100, got %d", got)
	}
}

func TestScoreClampsOutOfRangeTotals(t *testing.T) {
	if got := (Breakdown{Source: 150}).Score(); got != 100 {
		t.Fatalf("expected clamp to 100, got %d", got)
	}
	if got := (Breakdown{Source: -5}).Score(); got != 0 {
		t.Fatalf("expected clamp to 0, got %d", got)
	}
	if got := (Breakdown{Source: math.NaN()}).Score(); got != 0 {
		t.Fatalf("expected NaN to clamp to 0, got %d", got)
	}
}

func TestScoreRoundsOnceAfterSumming(t *testing.T) {
	// Each factor rounded separately would give 0+0+0+0+0+0 = 0; the sum rounds to 2.
	b := Breakdown{Source: 0.4, Stage: 0.4, Tags: 0.4, Activity: 0.4, Value: 0.4, Recency: 0}
	if got := b.Score(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestComputeIsDeterministicAndDoesNotMutate(t *testing.T) {
	lead := exampleLead()
	snapshot := lead.Clone()

	first := Compute(lead, fixedNow, DefaultWeights())
	second := Compute(lead, fixedNow, DefaultWeights())

	if first != second {
		t.Fatalf("expected identical breakdowns, got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(lead, snapshot) {
		t.Fatalf("lead mutated by Compute: %+v", lead)
	}
}

func TestStageMonotonicity(t *testing.T) {
	won := exampleLead()
	lost := exampleLead()
	lost.Stage = domain.StageClosedLost

	if Compute(won, fixedNow, DefaultWeights()).Score() < Compute(lost, fixedNow, DefaultWeights()).Score() {
		t.Fatal("expected Closed Won to score at least Closed Lost")
	}
}

func TestRecencyMonotonicity(t *testing.T) {
	today := exampleLead()
	old := exampleLead()
	old.CreatedAt = fixedNow.AddDate(0, 0, -90)

	if Compute(today, fixedNow, DefaultWeights()).Score() < Compute(old, fixedNow, DefaultWeights()).Score() {
		t.Fatal("expected a lead created today to score at least one created 90 days ago")
	}
}

func TestFactorsRoundToOneDecimal(t *testing.T) {
	lead := bareLead()
	lead.Source = domain.SourceLandingPage
	f := Compute(lead, fixedNow, DefaultWeights()).Factors()

	if f["source"] != 11.3 {
		t.Fatalf("expected source factor 11.3, got %v", f["source"])
	}
	if len(f) != 6 {
		t.Fatalf("expected 6 factors, got %d", len(f))
	}
}
