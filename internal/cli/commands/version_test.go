package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mgb22/chatbotjourney/internal/cli/output"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		info    BuildInfo
		wantOut []string
	}{
		{name: "default version", info: BuildInfo{Version: "0.1.0"}, wantOut: []string{"journey v0.1.0", "Sankey"}},
		{name: "dev version", info: BuildInfo{Version: "dev"}, wantOut: []string{"journey vdev"}},
		{name: "with build", info: BuildInfo{Version: "1.2.0", Commit: "abc123", Built: "2026-01-02"}, wantOut: []string{"commit abc123, built 2026-01-02"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, NewVersionCommand(tt.info))
			require.NoError(t, err)
			for _, want := range tt.wantOut {
				assert.Contains(t, stdout, want)
			}
		})
	}
}

func TestVersionCommand_JSON(t *testing.T) {
	setupExample(t, output.ModeJSON)

	stdout, _, err := execute(t, NewVersionCommand(BuildInfo{Version: "0.1.0", Commit: "abc123"}))
	require.NoError(t, err)

	var got output.VersionOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, output.VersionOutput{Version: "0.1.0", Commit: "abc123"}, got)
}

func TestVersionCommandMetadata(t *testing.T) {
	cmd := NewVersionCommand(BuildInfo{Version: "test"})

	assert.Equal(t, "version", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)
}
