package file

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/mgb22/chatbotjourney/internal/journey"
)

// StepColumns are the CSV header names ReadStepsCSV requires.
var StepColumns = []string{"session_id", "seq", "event_id"}

// ReadStepsCSV reads session events from CSV with a header row naming
// session_id, seq and event_id in any order. Extra columns are ignored.
// Rows with an empty event_id are skipped.
func ReadStepsCSV(r io.Reader) ([]journey.Step, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv is empty: missing header")
		}
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Spreadsheet exports often start with a UTF-8 byte order mark.
	header[0] = strings.TrimPrefix(header[0], "\ufeff")
	fold := cases.Fold()
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[fold.String(strings.TrimSpace(h))] = i
	}
	cols := make([]int, len(StepColumns))
	for i, name := range StepColumns {
		pos, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("csv header missing column %q (need %s)", name, strings.Join(StepColumns, ", "))
		}
		cols[i] = pos
	}

	var steps []journey.Step
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		field := func(col int) string {
			if cols[col] >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[cols[col]])
		}

		event := field(2)
		if event == "" {
			continue
		}
		seq, err := strconv.ParseInt(field(1), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid seq %q", line, field(1))
		}
		steps = append(steps, journey.Step{SessionID: field(0), Seq: seq, Event: event})
	}
	return steps, nil
}
