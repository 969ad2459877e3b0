package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	tests := map[string]string{
		"dev":         "mcp-opensearch version dev\n",
		"v0.4.1":      "mcp-opensearch version v0.4.1\n",
		"v1.0.0-rc.2": "mcp-opensearch version v1.0.0-rc.2\n",
		"":            "mcp-opensearch version \n",
	}

	for version, want := range tests {
		t.Run("version="+version, func(t *testing.T) {
			originalVersion := rootCmd.Version
			t.Cleanup(func() { rootCmd.Version = originalVersion })
			SetVersion(version)

			cmd := newVersionCmd()
			var buf bytes.Buffer
			cmd.SetOut(&buf)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, want, buf.String())
		})
	}
}

func TestVersionCmdProperties(t *testing.T) {
	cmd := newVersionCmd()

	assert.Equal(t, "version", cmd.Use)
	assert.Equal(t, "Print the version number of mcp-opensearch", cmd.Short)
	assert.Contains(t, cmd.Long, "mcp-opensearch")
}
