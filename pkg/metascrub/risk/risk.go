// Package risk derives a heuristic privacy assessment from a decoded raw
// metadata map. The rules are keyword heuristics over the combined tag names
// and values, not a structured analysis: they are cheap, deterministic and
// deliberately over-sensitive.
package risk

import "strings"

// MaxScore caps the severity score regardless of how many rules fire.
const MaxScore = 10

// NoFindings is the single finding emitted when no rule fires.
const NoFindings = "No obvious sensitive metadata detected. Low risk."

// Assessment is an ordered list of findings plus a severity score in [0, MaxScore].
// Finding order follows rule-evaluation order, not input order.
type Assessment struct {
	Findings []string `json:"inferences"`
	Score    int      `json:"score"`
}

// rule is one keyword heuristic. keysAndValues triggers match the combined
// key+value text; valuesOnly triggers match only the value text.
type rule struct {
	keysAndValues []string
	valuesOnly    []string
	finding       string
	weight        int
}

// rules fire independently and in this fixed order. The "model" trigger is a
// plain substring match and over-triggers on unrelated text (for example a
// value containing "modeling"); that is a known limitation of the heuristic,
// kept for predictability.
var rules = []rule{
	{
		keysAndValues: []string{"gps", "gpslatitude", "gpslongitude"},
		finding:       "GPS data detected — location may be exposed.",
		weight:        5,
	},
	{
		keysAndValues: []string{"author", "creator", "lastmodifiedby"},
		finding:       "Author / creator info found — identity could be revealed.",
		weight:        2,
	},
	{
		keysAndValues: []string{"make", "model", "camera"},
		finding:       "Device or camera details present — device fingerprinting possible.",
		weight:        1,
	},
	{
		keysAndValues: []string{"date", "created", "modified"},
		finding:       "Timestamps found — creation/edit time exposed.",
		weight:        1,
	},
	{
		keysAndValues: []string{"email"},
		valuesOnly:    []string{"@"},
		finding:       "Email address or username found — PII risk.",
		weight:        2,
	},
}

// Infer evaluates the rule list over a raw metadata map. It is pure and
// total: an empty map is valid input and yields the no-findings result.
func Infer(raw map[string]string) Assessment {
	var keys, values strings.Builder
	for k, v := range raw {
		keys.WriteString(strings.ToLower(k))
		keys.WriteByte(' ')
		values.WriteString(strings.ToLower(v))
		values.WriteByte(' ')
	}
	valueText := values.String()
	combined := keys.String() + valueText

	a := Assessment{Findings: []string{}}
	for _, r := range rules {
		if r.matches(combined, valueText) {
			a.Findings = append(a.Findings, r.finding)
			a.Score += r.weight
		}
	}

	if a.Score == 0 && len(a.Findings) == 0 {
		a.Findings = append(a.Findings, NoFindings)
	}
	if a.Score > MaxScore {
		a.Score = MaxScore
	}
	return a
}

func (r rule) matches(combined, valueText string) bool {
	for _, kw := range r.keysAndValues {
		if strings.Contains(combined, kw) {
			return true
		}
	}
	for _, kw := range r.valuesOnly {
		if strings.Contains(valueText, kw) {
			return true
		}
	}
	return false
}
