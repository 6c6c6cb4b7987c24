package diet

import (
	"github.com/medassist/medassist/internal/domain/biomarker"
	"github.com/samber/lo"
)

// Markers holds reading values by marker name. A missing marker reads as 0,
// which never crosses a threshold.
type Markers map[string]float64

func (m Markers) get(name string) float64 { return m[name] }

// MarkersFrom indexes readings by name. Later duplicates overwrite earlier ones.
func MarkersFrom(readings []biomarker.Reading) Markers {
	return lo.Associate(readings, func(r biomarker.Reading) (string, float64) {
		return r.Name, r.Value
	})
}

// Rule pairs a predicate with the template it selects.
type Rule struct {
	Name     string
	Matches  func(Markers) bool
	template template
}

// Rules is the priority chain. The first matching rule selects the plan;
// rules are never scored against each other.
var Rules = []Rule{
	{
		Name: "glycemic",
		Matches: func(m Markers) bool {
			return m.get(biomarker.Glucose) > 126 || m.get(biomarker.HbA1c) > 6.5
		},
		template: lowGlycemic,
	},
	{
		Name: "blood-pressure",
		Matches: func(m Markers) bool {
			return m.get(biomarker.SystolicBP) > 140
		},
		template: dash,
	},
	{
		Name: "renal",
		Matches: func(m Markers) bool {
			return m.get(biomarker.Creatinine) > 1.2
		},
		template: renal,
	},
}

// Generate selects exactly one plan for the readings. Balanced Maintenance
// is returned when no rule fires.
func Generate(readings []biomarker.Reading) Plan {
	return GenerateFor(MarkersFrom(readings))
}

// GenerateFor is Generate over pre-indexed markers.
func GenerateFor(m Markers) Plan {
	for _, r := range Rules {
		if r.Matches(m) {
			return r.template.plan()
		}
	}
	return balanced.plan()
}
