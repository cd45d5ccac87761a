// Package rules checks parsed HL7 v2 messages against simple presence and
// format rules addressed by path.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
	"github.com/URMC/urHL7/internal/platform/metrics"
)

// Kind is the check applied at a rule's location.
type Kind string

const (
	Exist         Kind = "exist"
	ExistNonEmpty Kind = "exist_non_empty"
	Numeric       Kind = "numeric"
)

var numericPattern = regexp.MustCompile(`^((-|\+)?[0-9]+(\.[0-9]+)?)+$`)

func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts a kind name in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case Exist, ExistNonEmpty, Numeric:
		return k, nil
	}
	return "", fmt.Errorf("invalid rule kind: %q", s)
}

// Rule pairs a location with the check applied there.
type Rule struct {
	Path     string         `yaml:"path" json:"path"`
	Kind     Kind           `yaml:"rule" json:"rule"`
	Location hl7v2.Location `yaml:"-" json:"-"`
}

// New parses path and returns a rule for it.
func New(path string, kind Kind) (Rule, error) {
	if _, err := ParseKind(string(kind)); err != nil {
		return Rule{}, err
	}
	loc, err := hl7v2.ParseLocation(path)
	if err != nil {
		return Rule{}, err
	}
	return Rule{Path: path, Kind: kind, Location: loc}, nil
}

// Evaluate reports whether m satisfies r. Segment-only locations pass
// presence checks when the segment exists and never pass Numeric.
func Evaluate(m *hl7v2.Message, r Rule) bool {
	passed := evaluate(m, r)
	metrics.ObserveRule(passed)
	return passed
}

func evaluate(m *hl7v2.Message, r Rule) bool {
	loc := r.Location
	if !loc.HasField() {
		switch r.Kind {
		case Exist, ExistNonEmpty:
			return m.HasAt(loc)
		default:
			return false
		}
	}

	switch r.Kind {
	case Exist:
		return m.HasAt(loc)
	case ExistNonEmpty:
		return m.HasAt(loc) && strings.TrimSpace(m.GetAt(loc).Data()) != ""
	case Numeric:
		return numericPattern.MatchString(m.GetAt(loc).Data())
	default:
		return false
	}
}

// Set is an ordered list of rules.
type Set []Rule

// Outcome is the result of one rule.
type Outcome struct {
	Rule   Rule   `json:"rule"`
	Passed bool   `json:"passed"`
	Value  string `json:"value,omitempty"`
}

// Result holds every outcome of a Set evaluation.
type Result struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Passed reports whether every rule passed.
func (r Result) Passed() bool {
	for _, o := range r.Outcomes {
		if !o.Passed {
			return false
		}
	}
	return true
}

// Failures returns the outcomes that did not pass.
func (r Result) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Passed {
			out = append(out, o)
		}
	}
	return out
}

// EvaluateAll runs every rule against m.
func (s Set) EvaluateAll(m *hl7v2.Message) Result {
	res := Result{Outcomes: make([]Outcome, 0, len(s))}
	for _, r := range s {
		o := Outcome{Rule: r, Passed: Evaluate(m, r)}
		if r.Location.HasField() {
			o.Value = m.GetAt(r.Location).Data()
		}
		res.Outcomes = append(res.Outcomes, o)
	}
	return res
}

// Passes stops at the first failing rule.
func (s Set) Passes(m *hl7v2.Message) bool {
	for _, r := range s {
		if !Evaluate(m, r) {
			return false
		}
	}
	return true
}
