// Package experiment runs the delay-discounting task: screen sequencing,
// timed choice capture and the session loop driven by the design service.
package experiment

// DelayLabel pairs a delay in weeks with the text shown to participants.
type DelayLabel struct {
	Delay float64
	Label string
}

// DelayLabels is the lookup table for LabelDelay. Order matters: ties go
// to the earlier entry.
var DelayLabels = []DelayLabel{
	{0, "Now"},
	{0.43, "3 days later"},
	{0.714, "5 days later"},
	{1, "1 week later"},
	{2, "2 weeks later"},
	{3, "3 weeks later"},
	{4.3, "1 month later"},
	{6.44, "6 weeks later"},
	{8.6, "2 months later"},
	{10.8, "10 weeks later"},
	{12.9, "3 months later"},
	{17.2, "4 months later"},
	{21.5, "5 months later"},
	{26, "6 months later"},
	{52, "1 year later"},
	{104, "2 years later"},
	{156, "3 years later"},
	{260, "5 years later"},
	{520, "10 years later"},
}

// LabelDelay returns the label of the table entry closest to delay.
// A later entry replaces the current best only when it is strictly closer.
func LabelDelay(delay float64) string {
	best := 0
	bestDist := sq(delay - DelayLabels[0].Delay)
	for i := 1; i < len(DelayLabels); i++ {
		if d := sq(delay - DelayLabels[i].Delay); d < bestDist {
			best, bestDist = i, d
		}
	}
	return DelayLabels[best].Label
}

func sq(x float64) float64 {
	return x * x
}
