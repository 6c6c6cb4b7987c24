package biomarker

import (
	"errors"
	"strings"
)

// ErrClassificationIncomplete is returned alongside a usable fallback result
// when no marker could be read from the source. Callers treat it as a
// warning, never as a failed analysis.
var ErrClassificationIncomplete = errors.New("biomarker source could not be parsed")

// FallbackInterpretation accompanies the reference panel when the source
// could not be parsed.
const FallbackInterpretation = "Biomarker values could not be read from the report. Showing the reference panel; please verify against the original document."

// Reading is a classified lab marker.
type Reading struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Unit   string  `json:"unit"`
	Range  string  `json:"range"`
	Status Status  `json:"status"`
}

// Measurement is an unclassified value from a structured source.
type Measurement struct {
	Name  string
	Value float64
}

// Result is the classifier output.
type Result struct {
	Readings       []Reading
	Interpretation string
}

func newReading(ref Reference, value float64) Reading {
	return Reading{
		Name:   ref.Name,
		Value:  value,
		Unit:   ref.Unit,
		Range:  ref.Range,
		Status: ref.Status(value),
	}
}

// ClassifyText extracts marker values from free-form report text. The first
// matching line for each marker wins, except that lines naming a related
// marker (Diastolic BP, HDL Cholesterol) are skipped and a Total Cholesterol
// line is preferred. If nothing matches, the reference panel
// is returned together with ErrClassificationIncomplete.
func ClassifyText(text string) (Result, error) {
	var readings []Reading
	for _, ref := range References {
		v, ok := ref.find(text)
		if !ok {
			continue
		}
		readings = append(readings, newReading(ref, v))
	}

	if len(readings) == 0 {
		return fallback(), ErrClassificationIncomplete
	}
	return Result{Readings: readings, Interpretation: Interpret(readings)}, nil
}

// Classify tags structured measurements. Unknown marker names are ignored;
// output follows reference-table order.
func Classify(ms []Measurement) (Result, error) {
	byName := make(map[string]float64, len(ms))
	for _, m := range ms {
		if ref, ok := Lookup(m.Name); ok {
			if _, seen := byName[ref.Name]; !seen {
				byName[ref.Name] = m.Value
			}
		}
	}

	var readings []Reading
	for _, ref := range References {
		if v, ok := byName[ref.Name]; ok {
			readings = append(readings, newReading(ref, v))
		}
	}

	if len(readings) == 0 {
		return fallback(), ErrClassificationIncomplete
	}
	return Result{Readings: readings, Interpretation: Interpret(readings)}, nil
}

func fallback() Result {
	return Result{Readings: ReferencePanel(), Interpretation: FallbackInterpretation}
}

// Interpret summarizes readings in one or two sentences.
func Interpret(readings []Reading) string {
	var high, low []string
	renalNormal := false
	for _, r := range readings {
		ref, ok := Lookup(r.Name)
		if !ok {
			continue
		}
		switch r.Status {
		case StatusHigh:
			high = appendUnique(high, ref.area)
		case StatusLow:
			low = appendUnique(low, ref.area)
		default:
			if ref.Name == Creatinine {
				renalNormal = true
			}
		}
	}

	var sentences []string
	if len(high) > 0 {
		sentences = append(sentences, "Analysis shows elevated "+joinAnd(high)+".")
	}
	if len(low) > 0 {
		sentences = append(sentences, "Analysis shows low "+joinAnd(low)+".")
	}
	if len(sentences) == 0 {
		return "All measured markers are within the reference range."
	}
	if renalNormal {
		sentences = append(sentences, "Renal markers are within normal range.")
	}
	return strings.Join(sentences, " ")
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

func joinAnd(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
}
