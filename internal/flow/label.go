package flow

import (
	"errors"
	"fmt"
	"strings"
)

// LabelSeparator separates the ordinal from the event name in a step label.
const LabelSeparator = " - "

// FirstOrdinal is the ordinal a focal event carries when it opens the window.
const FirstOrdinal = "1"

// ErrMalformedLabel is wrapped by every FormatError.
var ErrMalformedLabel = errors.New("malformed step label")

// FormatError reports a step label that lacks the "<ordinal> - <name>" shape.
type FormatError struct {
	Label string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("step label %q: expected \"<ordinal>%s<name>\"", e.Label, LabelSeparator)
}

// Unwrap lets callers match with errors.Is(err, ErrMalformedLabel).
func (e *FormatError) Unwrap() error {
	return ErrMalformedLabel
}

// StepLabel identifies one step of a conversation: its position in the
// sequence and the event name. It is comparable and used as node identity.
type StepLabel struct {
	Ordinal string `json:"ordinal"`
	Name    string `json:"name"`
}

// NewStepLabel builds a label from an integer position and an event name.
func NewStepLabel(ordinal int, name string) StepLabel {
	return StepLabel{Ordinal: fmt.Sprintf("%d", ordinal), Name: name}
}

// ParseStepLabel splits "<ordinal> - <name>" at the first separator.
// The name keeps any further separators verbatim.
func ParseStepLabel(s string) (StepLabel, error) {
	ordinal, name, ok := strings.Cut(s, LabelSeparator)
	if !ok {
		return StepLabel{}, &FormatError{Label: s}
	}
	return StepLabel{Ordinal: ordinal, Name: name}, nil
}

// String returns the canonical "<ordinal> - <name>" form.
func (l StepLabel) String() string {
	return l.Ordinal + LabelSeparator + l.Name
}

// DisplayLabel is the name portion shown on the diagram.
func (l StepLabel) DisplayLabel() string {
	return l.Name
}

// Opens reports whether l is the first step of a window centred on
// focal. Later occurrences of the same event do not count.
func (l StepLabel) Opens(focal FocalEvent) bool {
	return !focal.IsAll() && l.Ordinal == FirstOrdinal && l.Name == string(focal)
}
