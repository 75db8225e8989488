package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgb22/chatbotjourney/internal/journey"
	"github.com/mgb22/chatbotjourney/internal/source"
	"github.com/mgb22/chatbotjourney/internal/testutil"
)

const sessionsCSV = `session_id,seq,event_id
s1,1,greet
s1,2,checkout
s1,3,pay
s2,1,checkout
s2,2,faq
`

func TestDecodeParams(t *testing.T) {
	p, err := DecodeParams(map[string]string{"csv": "events.csv", "threads": "2"})
	require.NoError(t, err)
	assert.Equal(t, "events.csv", p.CSV)
	assert.Equal(t, "2", p.Threads)

	_, err = DecodeParams(map[string]string{"bogus": "1"})
	assert.ErrorContains(t, err, "invalid duckdb options")

	p, err = DecodeParams(nil)
	require.NoError(t, err)
	assert.Equal(t, Params{}, p)
}

func TestSource_CSV(t *testing.T) {
	ctx := context.Background()
	csvPath := filepath.Join(t.TempDir(), "sessions.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sessionsCSV), 0600))

	src := New(testutil.NewTestLogger(t))
	require.NoError(t, src.Open(ctx, source.Config{
		Type:    "duckdb",
		Options: map[string]string{"csv": csvPath, "threads": "1"},
	}))
	defer func() { _ = src.Close() }()

	assert.Equal(t, csvPath, src.WatchPath())

	catalog, err := source.Catalog(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, []string{"All", "checkout", "faq", "greet", "pay"}, catalog)

	records, err := src.Transitions(ctx, journey.NewQuery("checkout", 0, 10))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1 - checkout", records[0].Source.String())
	assert.Equal(t, "2 - pay", records[0].Target.String())
	assert.Equal(t, "2 - faq", records[1].Target.String())
}

func TestSource_Table(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "events.duckdb")

	src := New(nil)
	require.NoError(t, src.Open(ctx, source.Config{Path: dbPath, Table: "bot_events"}))
	defer func() { _ = src.Close() }()

	_, err := src.DB.ExecContext(ctx, `CREATE TABLE bot_events (session_id VARCHAR, seq INTEGER, event_id VARCHAR)`)
	require.NoError(t, err)
	_, err = src.DB.ExecContext(ctx, `INSERT INTO bot_events VALUES ('a', 1, 'greet'), ('a', 2, 'faq'), ('b', 1, 'greet'), ('b', 2, 'faq')`)
	require.NoError(t, err)

	records, err := src.Transitions(ctx, journey.AllQuery())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2), records[0].Weight)
	assert.Empty(t, src.WatchPath())
}

func TestSource_InvalidTable(t *testing.T) {
	err := New(nil).Open(context.Background(), source.Config{Table: "events; drop"})
	assert.ErrorContains(t, err, "invalid table name")
}
