package scoring

import (
	"fmt"
	"maps"
	"math"
	"os"
	"sort"
	"strings"

	"omnichat_backend/internal/leads/domain"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// ScoreVersion identifies the default weight model.
// Bump this when the default tables change so persisted scores can be told apart.
const ScoreVersion = "2026-10-v1"

// Budgets is the maximum number of points each factor can contribute.
// The six budgets sum to 100.
type Budgets struct {
	Source   float64 `yaml:"source" json:"source"`
	Stage    float64 `yaml:"stage" json:"stage"`
	Tags     float64 `yaml:"tags" json:"tags"`
	Activity float64 `yaml:"activity" json:"activity"`
	Value    float64 `yaml:"value" json:"value"`
	Recency  float64 `yaml:"recency" json:"recency"`
}

// Sum returns the total of all budgets.
func (b Budgets) Sum() float64 {
	return b.Source + b.Stage + b.Tags + b.Activity + b.Value + b.Recency
}

// Weights is the complete scoring model. The lookup tables are plain data so
// sources, stages and tags can be added without touching the algorithm.
type Weights struct {
	Version string  `yaml:"version" json:"version"`
	Budgets Budgets `yaml:"budgets" json:"budgets"`

	SourceMultipliers map[string]float64 `yaml:"sourceMultipliers" json:"sourceMultipliers"`
	UnknownSource     float64            `yaml:"unknownSource" json:"unknownSource"`

	StageMultipliers map[string]float64 `yaml:"stageMultipliers" json:"stageMultipliers"`
	UnknownStage     float64            `yaml:"unknownStage" json:"unknownStage"`

	TagPoints     map[string]float64 `yaml:"tagPoints" json:"tagPoints"`
	UnknownTag    float64            `yaml:"unknownTag" json:"unknownTag"`
	TagNormalizer float64            `yaml:"tagNormalizer" json:"tagNormalizer"`

	ActivitySaturation  float64 `yaml:"activitySaturation" json:"activitySaturation"`
	CompletedTaskWeight float64 `yaml:"completedTaskWeight" json:"completedTaskWeight"`
	ValueSaturation     float64 `yaml:"valueSaturation" json:"valueSaturation"`
	RecencyWindowDays   float64 `yaml:"recencyWindowDays" json:"recencyWindowDays"`
}

// DefaultWeights returns a fresh copy of the production model.
func DefaultWeights() Weights {
	return Weights{
		Version: ScoreVersion,
		Budgets: Budgets{
			Source:   15,
			Stage:    25,
			Tags:     15,
			Activity: 20,
			Value:    15,
			Recency:  10,
		},
		SourceMultipliers: map[string]float64{
			string(domain.SourceReferral):    1.0,
			string(domain.SourceWebsite):     0.8,
			string(domain.SourceLandingPage): 0.75,
			string(domain.SourceWhatsApp):    0.7,
			string(domain.SourceInstagram):   0.6,
			string(domain.SourceFacebook):    0.6,
			string(domain.SourceManual):      0.4,
		},
		UnknownSource: 0.5,
		StageMultipliers: map[string]float64{
			string(domain.StageClosedWon):  1.0,
			string(domain.StageFollowUp):   0.8,
			string(domain.StageQualified):  0.7,
			string(domain.StageContacted):  0.4,
			string(domain.StageNew):        0.3,
			string(domain.StageClosedLost): 0.1,
		},
		UnknownStage: 0.2,
		TagPoints: map[string]float64{
			"VIP":             25,
			"Hot":             20,
			"Decision Maker":  15,
			"High Intent":     15,
			"Enterprise":      12,
			"Budget Approved": 10,
			"Interested":      10,
			"Returning":       8,
			"Warm":            5,
			"Cold":            -3,
			"LowPriority":     -5,
			"Unresponsive":    -8,
			"Not Interested":  -10,
			"Spam":            -20,
		},
		UnknownTag:          2,
		TagNormalizer:       30,
		ActivitySaturation:  10,
		CompletedTaskWeight: 2,
		ValueSaturation:     3000,
		RecencyWindowDays:   60,
	}
}

// Clone returns a deep copy of w.
func (w Weights) Clone() Weights {
	out := w
	out.SourceMultipliers = maps.Clone(w.SourceMultipliers)
	out.StageMultipliers = maps.Clone(w.StageMultipliers)
	out.TagPoints = maps.Clone(w.TagPoints)
	return out
}

// ValidateWeights checks that a model is internally consistent.
func ValidateWeights(w Weights) error {
	var errs []string

	budgets := map[string]float64{
		"budgets.source":   w.Budgets.Source,
		"budgets.stage":    w.Budgets.Stage,
		"budgets.tags":     w.Budgets.Tags,
		"budgets.activity": w.Budgets.Activity,
		"budgets.value":    w.Budgets.Value,
		"budgets.recency":  w.Budgets.Recency,
	}
	for name, b := range budgets {
		if b < 0 || math.IsNaN(b) {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}
	if sum := w.Budgets.Sum(); math.Abs(sum-100) > 1e-9 {
		errs = append(errs, fmt.Sprintf("budgets must sum to 100, got %.2f", sum))
	}

	checkMultiplier := func(name string, v float64) {
		if !(v >= 0 && v <= 1) {
			errs = append(errs, fmt.Sprintf("%s must be in [0, 1], got %v", name, v))
		}
	}
	for k, v := range w.SourceMultipliers {
		checkMultiplier("sourceMultipliers."+k, v)
	}
	checkMultiplier("unknownSource", w.UnknownSource)
	for k, v := range w.StageMultipliers {
		checkMultiplier("stageMultipliers."+k, v)
	}
	checkMultiplier("unknownStage", w.UnknownStage)

	positive := map[string]float64{
		"tagNormalizer":      w.TagNormalizer,
		"activitySaturation": w.ActivitySaturation,
		"valueSaturation":    w.ValueSaturation,
		"recencyWindowDays":  w.RecencyWindowDays,
	}
	for name, v := range positive {
		if !(v > 0) {
			errs = append(errs, fmt.Sprintf("%s must be > 0", name))
		}
	}
	if w.CompletedTaskWeight < 0 {
		errs = append(errs, "completedTaskWeight must be >= 0")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("invalid scoring weights: %s", strings.Join(errs, "; "))
	}
	return nil
}

// weightsFile is the on-disk shape of a weights override. Pointer fields tell
// "absent" apart from zero.
type weightsFile struct {
	Version *string `yaml:"version"`
	Budgets *struct {
		Source   *float64 `yaml:"source"`
		Stage    *float64 `yaml:"stage"`
		Tags     *float64 `yaml:"tags"`
		Activity *float64 `yaml:"activity"`
		Value    *float64 `yaml:"value"`
		Recency  *float64 `yaml:"recency"`
	} `yaml:"budgets"`
	SourceMultipliers   map[string]float64 `yaml:"sourceMultipliers"`
	UnknownSource       *float64           `yaml:"unknownSource"`
	StageMultipliers    map[string]float64 `yaml:"stageMultipliers"`
	UnknownStage        *float64           `yaml:"unknownStage"`
	TagPoints           map[string]float64 `yaml:"tagPoints"`
	UnknownTag          *float64           `yaml:"unknownTag"`
	TagNormalizer       *float64           `yaml:"tagNormalizer"`
	ActivitySaturation  *float64           `yaml:"activitySaturation"`
	CompletedTaskWeight *float64           `yaml:"completedTaskWeight"`
	ValueSaturation     *float64           `yaml:"valueSaturation"`
	RecencyWindowDays   *float64           `yaml:"recencyWindowDays"`
}

// LoadWeights reads a YAML file layered over DefaultWeights and validates the
// result. Keys present in the file replace the defaults; absent keys keep them.
// An empty path returns the defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if strings.TrimSpace(path) == "" {
		return w, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, fmt.Errorf("read scoring weights: %w", err)
	}
	var file weightsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Weights{}, fmt.Errorf("parse scoring weights %s: %w", path, err)
	}
	file.apply(&w)
	if err := ValidateWeights(w); err != nil {
		return Weights{}, err
	}
	return w, nil
}

func (f weightsFile) apply(w *Weights) {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	if f.Version != nil {
		w.Version = *f.Version
	}
	if b := f.Budgets; b != nil {
		set(&w.Budgets.Source, b.Source)
		set(&w.Budgets.Stage, b.Stage)
		set(&w.Budgets.Tags, b.Tags)
		set(&w.Budgets.Activity, b.Activity)
		set(&w.Budgets.Value, b.Value)
		set(&w.Budgets.Recency, b.Recency)
	}
	// Source and stage keys are stored under their canonical spelling so
	// "closed_won" replaces the "Closed Won" default instead of shadowing it.
	for k, v := range f.SourceMultipliers {
		w.SourceMultipliers[string(domain.ParseSource(k))] = v
	}
	for k, v := range f.StageMultipliers {
		w.StageMultipliers[string(domain.ParseStage(k))] = v
	}
	for k, v := range f.TagPoints {
		key := NormalizeTag(k)
		for existing := range w.TagPoints {
			if NormalizeTag(existing) == key {
				delete(w.TagPoints, existing)
			}
		}
		w.TagPoints[k] = v
	}
	set(&w.UnknownSource, f.UnknownSource)
	set(&w.UnknownStage, f.UnknownStage)
	set(&w.UnknownTag, f.UnknownTag)
	set(&w.TagNormalizer, f.TagNormalizer)
	set(&w.ActivitySaturation, f.ActivitySaturation)
	set(&w.CompletedTaskWeight, f.CompletedTaskWeight)
	set(&w.ValueSaturation, f.ValueSaturation)
	set(&w.RecencyWindowDays, f.RecencyWindowDays)
}

// NormalizeTag reduces a tag to its matching key: Unicode case folded with
// spaces, underscores and hyphens removed.
func NormalizeTag(tag string) string {
	folded := cases.Fold().String(strings.TrimSpace(tag))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, folded)
}

// table is Weights compiled for lookups. Build it once per batch.
type table struct {
	w       Weights
	sources map[domain.Source]float64
	stages  map[domain.Stage]float64
	tags    map[string]float64
}

func compile(w Weights) table {
	t := table{
		w:       w,
		sources: make(map[domain.Source]float64, len(w.SourceMultipliers)),
		stages:  make(map[domain.Stage]float64, len(w.StageMultipliers)),
		tags:    make(map[string]float64, len(w.TagPoints)),
	}
	for k, v := range w.SourceMultipliers {
		t.sources[domain.ParseSource(k)] = v
	}
	for k, v := range w.StageMultipliers {
		t.stages[domain.ParseStage(k)] = v
	}
	for k, v := range w.TagPoints {
		t.tags[NormalizeTag(k)] = v
	}
	return t
}

func (t table) sourceMultiplier(s domain.Source) float64 {
	if m, ok := t.sources[domain.ParseSource(string(s))]; ok {
		return m
	}
	return t.w.UnknownSource
}

func (t table) stageMultiplier(s domain.Stage) float64 {
	if m, ok := t.stages[domain.ParseStage(string(s))]; ok {
		return m
	}
	return t.w.UnknownStage
}

// rawTagPoints sums the points of each distinct tag. Blank tags are ignored.
func (t table) rawTagPoints(tags []string) float64 {
	seen := make(map[string]struct{}, len(tags))
	sum := 0.0
	for _, tag := range tags {
		key := NormalizeTag(tag)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if p, ok := t.tags[key]; ok {
			sum += p
		} else {
			sum += t.w.UnknownTag
		}
	}
	return sum
}
