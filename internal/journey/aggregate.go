package journey

import (
	"slices"
	"sort"

	"github.com/mgb22/chatbotjourney/internal/flow"
)

// Step is one event of one session as stored upstream.
type Step struct {
	SessionID string
	Seq       int64
	Event     string
}

// Session is the ordered event sequence of one conversation.
type Session struct {
	ID     string
	Events []string
}

// GroupSessions groups steps by session, keeping sessions in first-seen
// order and sorting each session's events by Seq.
func GroupSessions(steps []Step) []Session {
	order := make([]string, 0)
	bySession := make(map[string][]Step)
	for _, s := range steps {
		if _, ok := bySession[s.SessionID]; !ok {
			order = append(order, s.SessionID)
		}
		bySession[s.SessionID] = append(bySession[s.SessionID], s)
	}

	sessions := make([]Session, 0, len(order))
	for _, id := range order {
		ss := bySession[id]
		sort.SliceStable(ss, func(i, j int) bool { return ss[i].Seq < ss[j].Seq })
		events := make([]string, len(ss))
		for i, s := range ss {
			events[i] = s.Event
		}
		sessions = append(sessions, Session{ID: id, Events: events})
	}
	return sessions
}

// path returns the slice of events q selects from a session, or nil when
// the session does not contain the focal event.
func (q Query) path(events []string) []string {
	before, after, ok := q.Window()
	if !ok {
		return events
	}
	idx := slices.Index(events, string(q.Event))
	if idx < 0 {
		return nil
	}
	lo := max(0, idx-before)
	hi := min(len(events), idx+after+1)
	return events[lo:hi]
}

type edgeKey struct {
	src, dst flow.StepLabel
}

// Aggregate counts, across sessions, how many followed each transition
// selected by q. Ordinals number the selected path from 1, so with no
// steps before, the focal event is always "1 - <event>". Records come out
// in first-seen order.
func Aggregate(sessions []Session, q Query) []flow.TransitionRecord {
	counts := make(map[edgeKey]int64)
	order := make([]edgeKey, 0)

	for _, s := range sessions {
		p := q.path(s.Events)
		for i := 0; i+1 < len(p); i++ {
			k := edgeKey{
				src: flow.NewStepLabel(i+1, p[i]),
				dst: flow.NewStepLabel(i+2, p[i+1]),
			}
			if _, seen := counts[k]; !seen {
				order = append(order, k)
			}
			counts[k]++
		}
	}

	records := make([]flow.TransitionRecord, 0, len(order))
	for _, k := range order {
		records = append(records, flow.Transition(k.src, k.dst, counts[k]))
	}
	return records
}

// Catalog returns the selectable focal events: distinct non-empty names
// sorted ascending, preceded by flow.AllEvents.
func Catalog(events []string) []string {
	seen := make(map[string]struct{}, len(events))
	names := make([]string, 0, len(events))
	for _, e := range events {
		if e == "" || e == string(flow.AllEvents) {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		names = append(names, e)
	}
	sort.Strings(names)
	return append([]string{string(flow.AllEvents)}, names...)
}
