package scoring

// Label is the qualitative band of a score.
type Label string

// Color is the display hint paired with a Label.
type Color string

const (
	LabelHot     Label = "Hot"
	LabelWarm    Label = "Warm"
	LabelNeutral Label = "Neutral"
	LabelCool    Label = "Cool"
	LabelCold    Label = "Cold"
)

const (
	ColorRed    Color = "red"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorBlue   Color = "blue"
	ColorSlate  Color = "slate"
)

// band is one rung of the classification ladder.
type band struct {
	min   int
	label Label
	color Color
}

// ladder is evaluated top-down; the first band whose min is reached wins.
var ladder = []band{
	{80, LabelHot, ColorRed},
	{60, LabelWarm, ColorOrange},
	{40, LabelNeutral, ColorYellow},
	{20, LabelCool, ColorBlue},
}

// Classify maps a score onto its label and color. Boundary scores belong to
// the higher band: 80 is Hot, 20 is Cool.
func Classify(score int) (Label, Color) {
	for _, b := range ladder {
		if score >= b.min {
			return b.label, b.color
		}
	}
	return LabelCold, ColorSlate
}

// Labels lists every label from hottest to coldest.
func Labels() []Label {
	return []Label{LabelHot, LabelWarm, LabelNeutral, LabelCool, LabelCold}
}
