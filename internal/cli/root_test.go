package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgb22/chatbotjourney/internal/cli/config"
	"github.com/mgb22/chatbotjourney/internal/cli/output"
)

const eventsCSV = `session_id,seq,event
a,1,greet
a,2,checkout
a,3,pay
b,1,checkout
b,2,pay
c,1,greet
c,2,faq
`

func runRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRoot_FlowFromFlags(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("events.csv", []byte(eventsCSV), 0600))

	stdout, _, err := runRoot(t, "--source", "file", "--source-path", "events.csv", "-o", "json", "flow", "-e", "checkout")
	require.NoError(t, err)

	var got output.FlowOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	require.Len(t, got.Edges, 1)
	assert.Equal(t, "1 - checkout", got.Nodes[0].Step)
	assert.Equal(t, int64(2), got.Edges[0].Value)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join(dir, "events.csv"), cfg.Source.Path)
}

func TestRoot_ConfigFileAndVerbose(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("events.csv", []byte(eventsCSV), 0600))
	require.NoError(t, os.WriteFile("journey.yaml", []byte("source:\n  type: file\n  path: events.csv\noutput: json\n"), 0600))

	stdout, stderr, err := runRoot(t, "-v", "events")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Using config file: ")
	assert.Contains(t, stderr, "Using file source")

	var got output.EventsOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, []string{"All", "checkout", "faq", "greet", "pay"}, got.Events)
}

func TestRoot_InvalidConfig(t *testing.T) {
	t.Chdir(t.TempDir())

	_, _, err := runRoot(t, "--source", "mysql", "events")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source type "mysql"`)
}

func TestRoot_VersionSkipsSource(t *testing.T) {
	t.Chdir(t.TempDir())

	stdout, _, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "journey v"+Version)
}

func TestRoot_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"version", "init", "events", "flow", "import", "serve", "completion"})
}

func TestCompletionCommand(t *testing.T) {
	stdout, _, err := runRoot(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "journey")
}
