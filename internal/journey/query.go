// Package journey holds the query model for conversation flows and the
// aggregation that turns per-session event sequences into transitions.
package journey

import (
	"fmt"

	"github.com/mgb22/chatbotjourney/internal/flow"
)

// Window defaults and bounds for the steps shown around a focal event.
const (
	DefaultStepsBefore = 0
	DefaultStepsAfter  = 10
	MaxSteps           = 10
)

// Query selects the transitions to draw. StepsBefore and StepsAfter are
// nil when the focal event is flow.AllEvents.
type Query struct {
	Event       flow.FocalEvent
	StepsBefore *int
	StepsAfter  *int
}

// NewQuery builds a query; the window is dropped for flow.AllEvents.
func NewQuery(event flow.FocalEvent, before, after int) Query {
	if event == "" {
		event = flow.AllEvents
	}
	if event.IsAll() {
		return Query{Event: event}
	}
	return Query{Event: event, StepsBefore: &before, StepsAfter: &after}
}

// AllQuery selects every transition with no focal event.
func AllQuery() Query {
	return Query{Event: flow.AllEvents}
}

// WindowError reports a step window outside [0, max].
type WindowError struct {
	Field string
	Value int
	Max   int
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s must be between 0 and %d, got %d", e.Field, e.Max, e.Value)
}

// Validate checks the window against maxSteps.
func (q Query) Validate(maxSteps int) error {
	if q.Event.IsAll() {
		return nil
	}
	if q.StepsBefore != nil && (*q.StepsBefore < 0 || *q.StepsBefore > maxSteps) {
		return &WindowError{Field: "steps before", Value: *q.StepsBefore, Max: maxSteps}
	}
	if q.StepsAfter != nil && (*q.StepsAfter < 0 || *q.StepsAfter > maxSteps) {
		return &WindowError{Field: "steps after", Value: *q.StepsAfter, Max: maxSteps}
	}
	return nil
}

// Window returns the effective bounds, applying defaults for unset sides.
// ok is false for flow.AllEvents.
func (q Query) Window() (before, after int, ok bool) {
	if q.Event.IsAll() {
		return 0, 0, false
	}
	before, after = DefaultStepsBefore, DefaultStepsAfter
	if q.StepsBefore != nil {
		before = *q.StepsBefore
	}
	if q.StepsAfter != nil {
		after = *q.StepsAfter
	}
	return before, after, true
}

func (q Query) String() string {
	before, after, ok := q.Window()
	if !ok {
		return string(q.Event)
	}
	return fmt.Sprintf("%s [-%d, +%d]", q.Event, before, after)
}
