package domain

import "strings"

// Stage is the pipeline position of a lead.
type Stage string

const (
	StageNew        Stage = "New"
	StageContacted  Stage = "Contacted"
	StageQualified  Stage = "Qualified"
	StageFollowUp   Stage = "Follow Up"
	StageClosedWon  Stage = "Closed Won"
	StageClosedLost Stage = "Closed Lost"
)

// KnownStages lists the closed set in pipeline order.
var KnownStages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageFollowUp,
	StageClosedWon,
	StageClosedLost,
}

var stagesByKey = func() map[string]Stage {
	m := make(map[string]Stage, len(KnownStages))
	for _, s := range KnownStages {
		m[enumKey(string(s))] = s
	}
	return m
}()

// ParseStage maps raw onto a known Stage, keeping unknown values verbatim.
func ParseStage(raw string) Stage {
	if s, ok := stagesByKey[enumKey(raw)]; ok {
		return s
	}
	return Stage(trimmed(raw))
}

func (s Stage) IsKnown() bool {
	known, ok := stagesByKey[enumKey(string(s))]
	return ok && known == s
}

func (s Stage) String() string { return string(s) }

func trimmed(raw string) string { return strings.TrimSpace(raw) }
