// Package flow turns step-transition records into the node/edge/weight
// structure of a directed flow (Sankey) diagram.
//
// Nodes are unique by StepLabel and indexed in first-seen order: records are
// scanned in input order and, within a record, the source is examined before
// the target. That order drives the diagram layout, so Build never sorts.
//
// A graph is a pure function of its input. Build performs no I/O, keeps no
// state between calls, and is safe for concurrent use.
package flow
