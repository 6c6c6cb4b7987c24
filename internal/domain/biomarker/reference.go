package biomarker

import (
	"regexp"
	"strconv"
	"strings"
)

// Marker names as they appear in readings and in the diet rules.
const (
	Glucose     = "Glucose"
	HbA1c       = "HbA1c"
	Cholesterol = "Cholesterol"
	SystolicBP  = "Systolic BP"
	Creatinine  = "Creatinine"
)

// Status of a reading relative to its reference range.
type Status string

const (
	StatusNormal Status = "Normal"
	StatusHigh   Status = "High"
	StatusLow    Status = "Low"
)

// Reference is one row of the fixed reference-range table.
type Reference struct {
	Name  string
	Unit  string
	Range string
	Min   float64
	Max   float64
	// UpperOnly ranges ("< 200") have no lower bound and Max is exclusive.
	UpperOnly bool

	pattern *regexp.Regexp
	// skip rejects lines for related markers that pattern would also match.
	skip *regexp.Regexp
	// prefer marks the line to take over an earlier match.
	prefer *regexp.Regexp
	area   string
}

// Status tags value against the reference range.
func (r Reference) Status(value float64) Status {
	if r.UpperOnly {
		if value >= r.Max {
			return StatusHigh
		}
		return StatusNormal
	}
	switch {
	case value > r.Max:
		return StatusHigh
	case value < r.Min:
		return StatusLow
	default:
		return StatusNormal
	}
}

const number = `(\d+(?:\.\d+)?)`

// References is the reference table in output order. Status tagging never
// consults anything else.
var References = []Reference{
	{
		Name: Glucose, Unit: "mg/dL", Range: "70 - 99", Min: 70, Max: 99,
		pattern: regexp.MustCompile(`(?i)\bglucose\b[^0-9\n]{0,30}` + number),
		area:    "blood sugar",
	},
	{
		Name: HbA1c, Unit: "%", Range: "4.0 - 5.6", Min: 4.0, Max: 5.6,
		pattern: regexp.MustCompile(`(?i)(?:\bhba1c\b|\ba1c\b|glycated ha?emoglobin)[^0-9\n]{0,30}` + number),
		area:    "blood sugar",
	},
	{
		Name: Cholesterol, Unit: "mg/dL", Range: "< 200", Max: 200, UpperOnly: true,
		pattern: regexp.MustCompile(`(?i)\bcholesterol\b[^0-9\n]{0,30}` + number),
		skip:    regexp.MustCompile(`(?i)^\W*(?:hdl|ldl|vldl|non[- ]?hdl)\b|\bratio\b`),
		prefer:  regexp.MustCompile(`(?i)\btotal\s+cholesterol\b`),
		area:    "cholesterol",
	},
	{
		Name: SystolicBP, Unit: "mmHg", Range: "90 - 120", Min: 90, Max: 120,
		pattern: regexp.MustCompile(`(?i)(?:systolic(?:\s+bp)?|blood\s+pressure|\bbp\b)[^0-9\n]{0,30}(\d{2,3}(?:\.\d+)?)`),
		skip:    regexp.MustCompile(`(?i)^\W*diastolic\b`),
		area:    "blood pressure",
	},
	{
		Name: Creatinine, Unit: "mg/dL", Range: "0.7 - 1.3", Min: 0.7, Max: 1.3,
		pattern: regexp.MustCompile(`(?i)\bcreatinine\b[^0-9\n]{0,30}` + number),
		area:    "renal markers",
	},
}

// find returns the marker's value from text, read line by line. Lines
// rejected by skip are ignored; a prefer line beats the first match.
func (r Reference) find(text string) (float64, bool) {
	var (
		value float64
		found bool
	)
	for _, line := range strings.Split(text, "\n") {
		if r.skip != nil && r.skip.MatchString(line) {
			continue
		}
		m := r.pattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if r.prefer != nil && r.prefer.MatchString(line) {
			return v, true
		}
		if !found {
			value, found = v, true
		}
	}
	return value, found
}

// Lookup finds a reference row by marker name, ignoring case.
func Lookup(name string) (Reference, bool) {
	for _, r := range References {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Reference{}, false
}

// referencePanel is the fixed panel reported when nothing could be read
// from a report.
var referencePanel = []struct {
	name  string
	value float64
}{
	{Glucose, 142},
	{HbA1c, 7.2},
	{Cholesterol, 225},
	{SystolicBP, 145},
	{Creatinine, 0.9},
}

// ReferencePanel returns a fresh copy of the fallback panel, classified.
func ReferencePanel() []Reading {
	out := make([]Reading, 0, len(referencePanel))
	for _, p := range referencePanel {
		ref, _ := Lookup(p.name)
		out = append(out, newReading(ref, p.value))
	}
	return out
}
