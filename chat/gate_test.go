package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateEscalation(t *testing.T) {
	g := NewGate(3, 5)

	// Messages 1-2: open, no prompt.
	for i := 0; i < 2; i++ {
		require.True(t, g.CanSend())
		event, err := g.RecordMessage()
		require.NoError(t, err)
		assert.Equal(t, GateEventNone, event)
		assert.Equal(t, GateOpen, g.State())
	}

	// Message 3: soft prompt fires exactly once.
	event, err := g.RecordMessage()
	require.NoError(t, err)
	assert.Equal(t, GateEventSoftPrompt, event)
	assert.Equal(t, GateSoftPrompted, g.State())
	assert.True(t, g.PromptVisible())

	// Message 4: still soft-prompted, no repeat signal.
	event, err = g.RecordMessage()
	require.NoError(t, err)
	assert.Equal(t, GateEventNone, event)
	assert.Equal(t, GateSoftPrompted, g.State())

	// Message 5: hard block.
	require.True(t, g.CanSend())
	event, err = g.RecordMessage()
	require.NoError(t, err)
	assert.Equal(t, GateEventHardBlock, event)
	assert.Equal(t, GateHardBlocked, g.State())

	// Message 6 is rejected and the count stays put.
	assert.False(t, g.CanSend())
	_, err = g.RecordMessage()
	assert.ErrorIs(t, err, ErrGateClosed)
	assert.Equal(t, 5, g.Count())
	assert.Equal(t, GateHardBlocked, g.State())
}

func TestGateDismissKeepsTier(t *testing.T) {
	g := NewGate(3, 5)
	for i := 0; i < 3; i++ {
		_, err := g.RecordMessage()
		require.NoError(t, err)
	}
	require.Equal(t, GateSoftPrompted, g.State())
	require.True(t, g.PromptVisible())

	g.Dismiss()

	// Dismissal hides the nudge but the tier and count are untouched, so it
	// cannot fire again.
	assert.False(t, g.PromptVisible())
	assert.Equal(t, GateSoftPrompted, g.State())
	assert.Equal(t, 3, g.Count())

	event, err := g.RecordMessage()
	require.NoError(t, err)
	assert.Equal(t, GateEventNone, event)
	assert.False(t, g.PromptVisible())
}

func TestGateHardBlockedPromptNotVisible(t *testing.T) {
	g := NewGate(3, 5)
	for i := 0; i < 5; i++ {
		_, err := g.RecordMessage()
		require.NoError(t, err)
	}
	// The hard block supersedes the soft nudge.
	assert.False(t, g.PromptVisible())
	assert.Equal(t, Status{State: GateHardBlocked, Count: 5}, g.Snapshot())
}

func TestGateDefaults(t *testing.T) {
	g := NewGate(0, 0)
	assert.Equal(t, 3, g.softLimit)
	assert.Equal(t, 5, g.hardLimit)

	// Inverted limits are corrected rather than rejected.
	g = NewGate(4, 2)
	assert.Equal(t, 4, g.softLimit)
	assert.Equal(t, 6, g.hardLimit)
}

func TestGateCanSendMatchesState(t *testing.T) {
	g := NewGate(2, 3)
	for g.CanSend() {
		_, err := g.RecordMessage()
		require.NoError(t, err)
	}
	assert.Equal(t, GateHardBlocked, g.State())
	assert.Equal(t, 3, g.Count())
}
