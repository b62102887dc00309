package domain

import (
	"errors"
	"fmt"
)

// FieldSpec names a field and the label shown to the user when it fails.
type FieldSpec struct {
	Name  string
	Label string
}

// Rule is a cross-field predicate registered on a step. It returns the violations it
// found, or nil when the fields pass.
type Rule func(fields Fields) []Violation

// Step is one page of the wizard.
type Step struct {
	Number   int
	Title    string
	Required []FieldSpec
	Rules    []Rule
}

// Validate checks presence of every required field, then every rule.
// Rules run even when presence fails so the user sees all problems at once.
func (s Step) Validate(fields Fields) []Violation {
	var violations []Violation
	for _, spec := range s.Required {
		if !fields[spec.Name].IsSatisfied() {
			violations = append(violations, Violation{
				Field:   spec.Name,
				Label:   spec.Label,
				Message: "is required",
			})
		}
	}
	for _, rule := range s.Rules {
		violations = append(violations, rule(fields)...)
	}
	return violations
}

// Steps is an ordered, 1-based step catalogue.
type Steps struct {
	steps []Step
}

var errEmptyCatalogue = errors.New("step catalogue is empty")

// NewSteps checks that steps are numbered 1..N in order.
func NewSteps(steps ...Step) (Steps, error) {
	if len(steps) == 0 {
		return Steps{}, errEmptyCatalogue
	}
	for i, s := range steps {
		if s.Number != i+1 {
			return Steps{}, fmt.Errorf("step at position %d is numbered %d", i+1, s.Number)
		}
	}
	return Steps{steps: append([]Step(nil), steps...)}, nil
}

// Count returns N.
func (s Steps) Count() int {
	return len(s.steps)
}

// Step returns step n, 1-based.
func (s Steps) Step(n int) (Step, bool) {
	if n < 1 || n > len(s.steps) {
		return Step{}, false
	}
	return s.steps[n-1], true
}

// Validate returns a *ValidationError for step n, or nil when it is complete.
func (s Steps) Validate(n int, fields Fields) error {
	step, ok := s.Step(n)
	if !ok {
		return NewValidationError(n, Violation{Field: "", Label: "step", Message: "does not exist"})
	}
	if v := step.Validate(fields); len(v) > 0 {
		return NewValidationError(n, v...)
	}
	return nil
}

// CreationStep is the step whose required fields must hold before a record is created.
func (s Steps) CreationStep() Step {
	return s.steps[0]
}

// Titles lists the step titles in order.
func (s Steps) Titles() []string {
	out := make([]string, len(s.steps))
	for i, st := range s.steps {
		out[i] = st.Title
	}
	return out
}
