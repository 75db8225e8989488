package flow

import (
	"errors"
	"fmt"
)

// ErrNegativeWeight is returned when a transition count is below zero.
var ErrNegativeWeight = errors.New("negative transition weight")

// RawTransition is a transition row as a source delivers it. A nil endpoint
// stands for a missing value in the upstream result.
type RawTransition struct {
	Source *string `json:"source" yaml:"source"`
	Target *string `json:"target" yaml:"target"`
	Weight int64   `json:"value" yaml:"value"`
}

// TransitionRecord is one observed, pre-aggregated movement between two
// steps. Weight is the number of sessions that followed it.
type TransitionRecord struct {
	Source *StepLabel
	Target *StepLabel
	Weight int64
}

// Complete reports whether both endpoints are present.
func (r TransitionRecord) Complete() bool {
	return r.Source != nil && r.Target != nil
}

// Transition returns a complete record for two known labels.
func Transition(source, target StepLabel, weight int64) TransitionRecord {
	return TransitionRecord{Source: &source, Target: &target, Weight: weight}
}

// ParseTransitions converts raw rows into typed records. Missing endpoints
// stay nil so that Build can drop the row; present endpoints must parse.
func ParseTransitions(raw []RawTransition) ([]TransitionRecord, error) {
	records := make([]TransitionRecord, 0, len(raw))
	for i, row := range raw {
		if row.Weight < 0 {
			return nil, fmt.Errorf("row %d: %w: %d", i, ErrNegativeWeight, row.Weight)
		}
		rec := TransitionRecord{Weight: row.Weight}
		if row.Source != nil {
			l, err := ParseStepLabel(*row.Source)
			if err != nil {
				return nil, fmt.Errorf("row %d source: %w", i, err)
			}
			rec.Source = &l
		}
		if row.Target != nil {
			l, err := ParseStepLabel(*row.Target)
			if err != nil {
				return nil, fmt.Errorf("row %d target: %w", i, err)
			}
			rec.Target = &l
		}
		records = append(records, rec)
	}
	return records, nil
}
