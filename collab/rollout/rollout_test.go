package rollout_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmesh/collabcore/collab/rollout"
)

func writeLines(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rollout.jsonl")
	var buf string
	for _, l := range lines {
		buf += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(buf), 0o644))
	return path
}

func TestLastAssistantMessage_ConcatenatesParts(t *testing.T) {
	path := writeLines(t,
		`{"type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}`,
		`{"type":"message","role":"assistant","content":[{"type":"output_text","text":"line1"},{"type":"output_text","text":"line2"}]}`,
	)
	msg, err := rollout.LastAssistantMessage(path)
	require.NoError(t, err)
	assert.Equal(t, "line1\nline2", msg)
}

func TestLastAssistantMessage_CompactedOverridesTracked(t *testing.T) {
	path := writeLines(t,
		`{"type":"message","role":"assistant","content":[{"type":"output_text","text":"first"}]}`,
		`{"type":"compacted","message":"summary of everything"}`,
	)
	msg, err := rollout.LastAssistantMessage(path)
	require.NoError(t, err)
	assert.Equal(t, "summary of everything", msg)
}

func TestLastAssistantMessage_SkipsMalformedLines(t *testing.T) {
	path := writeLines(t,
		`not json at all`,
		`{"type":"message","role":"assistant","content":[{"type":"output_text","text":"ok"}]}`,
	)
	msg, err := rollout.LastAssistantMessage(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", msg)
}

func TestLastAssistantMessage_EmptyWhenNoAssistantMessage(t *testing.T) {
	path := writeLines(t, `{"type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}`)
	msg, err := rollout.LastAssistantMessage(path)
	require.NoError(t, err)
	assert.Equal(t, "", msg)
}
