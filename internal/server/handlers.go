package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/mgb22/chatbotjourney/internal/flow"
	"github.com/mgb22/chatbotjourney/internal/flow/sankey"
	"github.com/mgb22/chatbotjourney/internal/journey"
	"github.com/mgb22/chatbotjourney/internal/server/components"
	"github.com/mgb22/chatbotjourney/internal/source"
)

// FlowSignals are the datastar signals the page sends with every request.
type FlowSignals struct {
	Event  string `json:"event"`
	Before *int   `json:"before,omitempty"`
	After  *int   `json:"after,omitempty"`
}

// ParamError reports an unparseable request parameter.
type ParamError struct {
	Name  string
	Value string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be an integer", e.Name, e.Value)
}

// FlowResponse is the JSON body of /api/flow.
type FlowResponse struct {
	Event       string      `json:"event"`
	StepsBefore *int        `json:"steps_before,omitempty"`
	StepsAfter  *int        `json:"steps_after,omitempty"`
	Nodes       []flow.Node `json:"nodes"`
	Edges       []flow.Edge `json:"edges"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// query builds a validated query. Unset window sides take the configured
// defaults.
func (s *Server) query(sig FlowSignals) (journey.Query, error) {
	event := sig.Event
	if event == "" {
		event = string(flow.AllEvents)
	}
	before, after := s.cfg.Window.StepsBefore, s.cfg.Window.StepsAfter
	if sig.Before != nil {
		before = *sig.Before
	}
	if sig.After != nil {
		after = *sig.After
	}
	q := journey.NewQuery(flow.FocalEvent(event), before, after)
	if err := q.Validate(s.cfg.Window.MaxSteps); err != nil {
		return q, err
	}
	return q, nil
}

// signalsFromQuery reads event/before/after URL parameters.
func signalsFromQuery(r *http.Request) (FlowSignals, error) {
	v := r.URL.Query()
	sig := FlowSignals{Event: v.Get("event")}
	for _, p := range []struct {
		name string
		dst  **int
	}{{"before", &sig.Before}, {"after", &sig.After}} {
		raw := v.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return sig, &ParamError{Name: p.name, Value: raw}
		}
		*p.dst = &n
	}
	return sig, nil
}

// graph loads and builds the graph for q.
func (s *Server) graph(ctx context.Context, q journey.Query) (*flow.Graph, error) {
	records, err := s.src.Transitions(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.builder.Build(records, q.Event), nil
}

// statusFor maps an error to the HTTP status the API answers with.
func statusFor(err error) int {
	var (
		fe *flow.FormatError
		we *journey.WindowError
		pe *ParamError
	)
	switch {
	case errors.As(err, &fe):
		return http.StatusUnprocessableEntity
	case errors.As(err, &we), errors.As(err, &pe):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	events, err := source.Catalog(r.Context(), s.src)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := components.Page(components.PageData{
		Title:    s.cfg.Title,
		Events:   events,
		Event:    string(flow.AllEvents),
		Before:   s.cfg.Window.StepsBefore,
		After:    s.cfg.Window.StepsAfter,
		MaxSteps: s.cfg.Window.MaxSteps,
	})
	if err := page.Render(r.Context(), w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events, err := source.Catalog(r.Context(), s.src)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"events": events})
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	q, g, err := s.flowFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FlowResponse{
		Event:       string(q.Event),
		StepsBefore: q.StepsBefore,
		StepsAfter:  q.StepsAfter,
		Nodes:       g.Nodes,
		Edges:       g.Edges,
	})
}

func (s *Server) handleFigure(w http.ResponseWriter, r *http.Request) {
	_, g, err := s.flowFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sankey.FromGraph(g, s.cfg.Chart.Style()))
}

func (s *Server) flowFromRequest(r *http.Request) (journey.Query, *flow.Graph, error) {
	sig, err := signalsFromQuery(r)
	if err != nil {
		return journey.Query{}, nil, err
	}
	q, err := s.query(sig)
	if err != nil {
		return q, nil, err
	}
	g, err := s.graph(r.Context(), q)
	return q, g, err
}

// handleFlowSSE answers one signal change with a fresh flow panel.
func (s *Server) handleFlowSSE(w http.ResponseWriter, r *http.Request) {
	// Signals must be read before the SSE generator takes the response.
	var sig FlowSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(components.ErrorNotice("Failed to read signals: " + err.Error()))
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := s.sendFlowView(r.Context(), sse, sig); err != nil {
		_ = sse.ConsoleError(err)
	}
}

// handleFlowUpdates is the long-lived SSE endpoint. The page may have
// changed its signals since the stream opened, so on a source change it
// asks the page to re-request /flow with whatever it currently shows.
func (s *Server) handleFlowUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-updates:
			s.logger.Debug("source changed, refreshing page", "path", change.Path)
			if err := sse.ExecuteScript(components.RefreshScript); err != nil {
				return
			}
		}
	}
}

// sendFlowView patches #flow and draws the chart. Query and data errors
// are shown in the panel; only transport failures are returned.
func (s *Server) sendFlowView(ctx context.Context, sse *datastar.ServerSentEventGenerator, sig FlowSignals) error {
	q, err := s.query(sig)
	if err != nil {
		return sse.PatchElementTempl(components.ErrorNotice(err.Error()))
	}

	g, err := s.graph(ctx, q)
	if err != nil {
		return sse.PatchElementTempl(components.ErrorNotice(err.Error()))
	}

	if g.Empty() {
		return sse.PatchElementTempl(components.Notice(fmt.Sprintf("No transitions for %s", q)))
	}

	view := components.FlowView{
		Query:       q.String(),
		Nodes:       len(g.Nodes),
		Edges:       len(g.Edges),
		TotalWeight: g.TotalWeight(),
	}
	if i := g.Focal(q.Event); i >= 0 {
		view.Highlighted = g.Nodes[i].Label.String()
	}
	if err := sse.PatchElementTempl(components.FlowPanel(view)); err != nil {
		return err
	}

	fig, err := json.Marshal(sankey.FromGraph(g, s.cfg.Chart.Style()))
	if err != nil {
		return err
	}
	return sse.ExecuteScript(fmt.Sprintf("window.renderSankey(%s)", fig))
}
