package proc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePSOutput(t *testing.T) {
	output := `  492 Mon Mar  2 09:15:04 2026 /usr/local/bin/claude chat --dir /tmp/wt
  973 Mon Mar  2 10:30:00 2026 node /opt/codex/bin/codex
 1201 Tue Mar  3 08:00:59 2026 /bin/zsh -il
garbage line
`

	infos := parsePSOutput(output)
	require.Len(t, infos, 3)

	assert.Equal(t, 492, infos[0].PID)
	assert.Equal(t, "claude", infos[0].Name)
	assert.Equal(t, "/usr/local/bin/claude chat --dir /tmp/wt", infos[0].Cmdline)
	assert.Equal(t, time.Date(2026, 3, 2, 9, 15, 4, 0, time.Local), infos[0].StartTime)

	assert.Equal(t, "node", infos[1].Name)
	assert.Contains(t, infos[1].Cmdline, "codex")

	assert.Equal(t, "zsh", infos[2].Name)
}

func TestParsePSOutputEmpty(t *testing.T) {
	assert.Empty(t, parsePSOutput(""))
}
