package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateGitRef(t *testing.T) {
	sb := NewSafeBuilder()

	valid := []string{"main", "feature-x", "agent/feature-login", "release-1.2.3", "fix_typo"}
	for _, ref := range valid {
		assert.NoError(t, sb.Validate("gitRef", ref), "ref %q should be valid", ref)
	}

	invalid := []string{"", "feat ure", "branch;rm -rf", "-leading-dash", "a..b", "x`y`"}
	for _, ref := range invalid {
		assert.Error(t, sb.Validate("gitRef", ref), "ref %q should be invalid", ref)
	}
}

func TestValidateAgentName(t *testing.T) {
	sb := NewSafeBuilder()

	assert.NoError(t, sb.Validate("agentName", "claude-code"))
	assert.NoError(t, sb.Validate("agentName", "codex"))
	assert.Error(t, sb.Validate("agentName", ""))
	assert.Error(t, sb.Validate("agentName", "claude code"))
	assert.Error(t, sb.Validate("agentName", "-claude"))
}

func TestValidateFileName(t *testing.T) {
	sb := NewSafeBuilder()

	assert.NoError(t, sb.Validate("fileName", "/tmp/worktrees/feature-x"))
	assert.Error(t, sb.Validate("fileName", "../escape"))
	assert.Error(t, sb.Validate("fileName", "/tmp/x;rm"))
}

func TestValidateWindowTitle(t *testing.T) {
	sb := NewSafeBuilder()

	assert.NoError(t, sb.Validate("windowTitle", "aviary feature-x"))
	assert.Error(t, sb.Validate("windowTitle", `bad"title`))
	assert.Error(t, sb.Validate("windowTitle", ""))
}

func TestBuildCommand(t *testing.T) {
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "git", "status")
	require.NoError(t, err)
	assert.NotNil(t, cmd.Exec())

	_, err = sb.Build(context.Background(), "")
	assert.Error(t, err)
}

func TestWithTimeoutCap(t *testing.T) {
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "git", "status")
	require.NoError(t, err)

	cmd = cmd.WithTimeout(30 * time.Minute)
	assert.Equal(t, MaxTimeout, cmd.timeout)
}

func TestBuildDetachedHasNoDeadline(t *testing.T) {
	sb := NewSafeBuilder()

	detached, err := sb.BuildDetached("ghostty", "--title=x", "-e", "claude")
	require.NoError(t, err)
	_, hasDeadline := detached.ctx.Deadline()
	assert.False(t, hasDeadline, "a deadline would kill the detached child when it fires")

	timed, err := sb.Build(context.Background(), "git", "status")
	require.NoError(t, err)
	_, hasDeadline = timed.ctx.Deadline()
	assert.True(t, hasDeadline, "foreground commands keep the default timeout")

	_, err = sb.BuildDetached("")
	assert.Error(t, err)
}

func TestUnknownValidator(t *testing.T) {
	sb := NewSafeBuilder()
	assert.Error(t, sb.Validate("nope", "value"))
}
