package v1

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestVisitorLimiterEvictsIdleEntries(t *testing.T) {
	clock := time.Now()
	v := newVisitorLimiter(rate.Limit(2), 10, 15*time.Minute)
	v.now = func() time.Time { return clock }

	for i := 0; i < 100; i++ {
		require.True(t, v.allow(fmt.Sprintf("10.0.0.%d", i)))
	}
	require.Len(t, v.visitors, 100)

	// One client stays active past the idle window; the rest are swept on
	// the next lookup.
	clock = clock.Add(14 * time.Minute)
	require.True(t, v.allow("10.0.0.7"))
	clock = clock.Add(2 * time.Minute)
	require.True(t, v.allow("10.0.0.200"))
	require.Len(t, v.visitors, 2)
	_, ok := v.visitors["10.0.0.7"]
	require.True(t, ok)
}

func TestVisitorLimiterThrottlesBurst(t *testing.T) {
	v := newVisitorLimiter(rate.Limit(1), 3, time.Hour)

	for i := 0; i < 3; i++ {
		require.True(t, v.allow("10.0.0.1"))
	}
	require.False(t, v.allow("10.0.0.1"))

	// Other clients are unaffected.
	require.True(t, v.allow("10.0.0.2"))
}
