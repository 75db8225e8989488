// Package components renders the HTML fragments served by the journey
// server. The page carries datastar signals for the focal event and the
// step window; fragments patch the #flow element in place.
//
// The .templ files are the source; run `templ generate` after editing them.
package components

import (
	"encoding/json"
	"fmt"
)

// RefreshScript makes the page re-request its flow panel with the signals
// it currently holds, as if the controls had changed.
const RefreshScript = `document.getElementById("controls").dispatchEvent(new Event("change"))`

// PageData is everything the initial page needs.
type PageData struct {
	Title    string
	Events   []string
	Event    string
	Before   int
	After    int
	MaxSteps int
}

// FlowView summarizes a built graph for display.
type FlowView struct {
	Query       string
	Nodes       int
	Edges       int
	TotalWeight int64
	Highlighted string
}

type pageSignals struct {
	Event  string `json:"event"`
	Before int    `json:"before"`
	After  int    `json:"after"`
}

// signals is the initial data-signals object of the page.
func signals(p PageData) string {
	b, err := json.Marshal(pageSignals{Event: p.Event, Before: p.Before, After: p.After})
	if err != nil {
		return "{}"
	}
	return string(b)
}

func summary(v FlowView) string {
	return fmt.Sprintf("%s: %d steps, %d transitions, %d sessions", v.Query, v.Nodes, v.Edges, v.TotalWeight)
}
