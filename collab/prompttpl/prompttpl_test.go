package prompttpl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmesh/collabcore/collab/prompttpl"
)

func TestRender_KnownKey(t *testing.T) {
	got := prompttpl.Render("a{{x}}b", map[string]string{"x": "1"})
	assert.Equal(t, "a1b", got)
}

func TestRender_UnknownKeyLeftLiteral(t *testing.T) {
	got := prompttpl.Render("a{{y}}b", nil)
	assert.Equal(t, "a{{y}}b", got)
}

func TestRender_UnterminatedBracePreservedVerbatim(t *testing.T) {
	got := prompttpl.Render("a{{", nil)
	assert.Equal(t, "a{{", got)
}

func TestRenderWithArguments_ReplacesPlaceholder(t *testing.T) {
	got := prompttpl.RenderWithArguments("check $ARGUMENTS please", `{"ok":true}`)
	assert.Equal(t, `check {"ok":true} please`, got)
}

func TestRenderWithArguments_AppendsWhenNoPlaceholder(t *testing.T) {
	got := prompttpl.RenderWithArguments("check this", `{"ok":true}`)
	assert.Equal(t, "check this\n\n$ARGUMENTS:\n{\"ok\":true}", got)
}

func TestTruncate_KeepsHeadAndTail(t *testing.T) {
	payload := strings.Repeat("x", 100)
	got := prompttpl.Truncate(payload, 20, "...")
	assert.Contains(t, got, "...")
	assert.True(t, len([]rune(got)) < len([]rune(payload)))
}

func TestTruncate_NoOpUnderBudget(t *testing.T) {
	got := prompttpl.Truncate("short", 1000, "")
	assert.Equal(t, "short", got)
}

func TestEffectiveBudget_SeventyPercent(t *testing.T) {
	assert.Equal(t, 7000, prompttpl.EffectiveBudget(10000, 999))
}

func TestEffectiveBudget_FallsBackWhenNoContextWindow(t *testing.T) {
	assert.Equal(t, 999, prompttpl.EffectiveBudget(0, 999))
}
