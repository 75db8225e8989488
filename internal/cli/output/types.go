package output

// EventsOutput is the JSON shape of `journey events`.
type EventsOutput struct {
	Events []string `json:"events"`
	Count  int      `json:"count"`
}

// FlowNode is one diagram node in JSON output.
type FlowNode struct {
	Index       int    `json:"index"`
	Step        string `json:"step"`
	Label       string `json:"label"`
	Color       string `json:"color"`
	Value       int64  `json:"value"`
	Highlighted bool   `json:"highlighted"`
}

// FlowEdge is one diagram edge in JSON output.
type FlowEdge struct {
	Source int   `json:"source"`
	Target int   `json:"target"`
	Value  int64 `json:"value"`
}

// FlowOutput is the JSON shape of `journey flow`.
type FlowOutput struct {
	Event       string      `json:"event"`
	StepsBefore *int        `json:"steps_before,omitempty"`
	StepsAfter  *int        `json:"steps_after,omitempty"`
	Nodes       []FlowNode  `json:"nodes"`
	Edges       []FlowEdge  `json:"edges"`
	Summary     FlowSummary `json:"summary"`
}

// FlowSummary holds graph totals.
type FlowSummary struct {
	Nodes       int   `json:"nodes"`
	Edges       int   `json:"edges"`
	TotalWeight int64 `json:"total_weight"`
	Highlighted int   `json:"highlighted"`
}

// ImportOutput is the JSON shape of `journey import`.
type ImportOutput struct {
	ID     string `json:"id"`
	Origin string `json:"origin"`
	Rows   int    `json:"rows"`
	Store  string `json:"store"`
}

// VersionOutput is the JSON shape of `journey version`.
type VersionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Built   string `json:"built,omitempty"`
}
