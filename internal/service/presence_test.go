package service

import (
	"context"
	"testing"
	"time"

	"watopic/pkg/whatsapp/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresenceComposingThenPaused(t *testing.T) {
	wa := &fakeWAClient{}
	relay := NewPresenceRelay(wa, 30*time.Millisecond, testLogger())
	defer relay.Stop()

	relay.NotifyComposing(context.Background(), "1234567890@c.us")

	require.Eventually(t, func() bool {
		states := wa.presenceStates()
		return len(states) == 2 && states[1] == types.PresencePaused
	}, time.Second, 5*time.Millisecond)

	states := wa.presenceStates()
	assert.Equal(t, types.PresenceComposing, states[0])
}

func TestPresenceDebounceRestartsTimer(t *testing.T) {
	wa := &fakeWAClient{}
	relay := NewPresenceRelay(wa, 50*time.Millisecond, testLogger())
	defer relay.Stop()

	ctx := context.Background()
	relay.NotifyComposing(ctx, "1234567890@c.us")
	time.Sleep(25 * time.Millisecond)
	relay.NotifyComposing(ctx, "1234567890@c.us")
	time.Sleep(25 * time.Millisecond)

	// First timer was restarted; no paused signal yet.
	for _, st := range wa.presenceStates() {
		assert.Equal(t, types.PresenceComposing, st)
	}

	require.Eventually(t, func() bool {
		states := wa.presenceStates()
		return len(states) == 3 && states[2] == types.PresencePaused
	}, time.Second, 5*time.Millisecond)
}

func TestPresenceStopCancelsPendingTimers(t *testing.T) {
	wa := &fakeWAClient{}
	relay := NewPresenceRelay(wa, 20*time.Millisecond, testLogger())

	relay.NotifyComposing(context.Background(), "1234567890@c.us")
	relay.Stop()

	time.Sleep(60 * time.Millisecond)
	for _, st := range wa.presenceStates() {
		assert.NotEqual(t, types.PresencePaused, st)
	}

	// Notifications after Stop are ignored.
	relay.NotifyComposing(context.Background(), "1234567890@c.us")
	assert.Len(t, wa.presenceStates(), 1)
}
