package relay

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSetConnLimits(t *testing.T) {
	ctl := NewController(NewHub())
	require.Equal(t, int64(defaultReadLimit), ctl.readLimit)
	require.Equal(t, defaultPingPeriod, ctl.pingPeriod)

	// Zero values keep the defaults.
	ctl.SetConnLimits(0, 0)
	require.Equal(t, int64(defaultReadLimit), ctl.readLimit)
	require.Equal(t, defaultPingPeriod, ctl.pingPeriod)

	ctl.SetConnLimits(1024, 30*time.Second)
	require.Equal(t, int64(1024), ctl.readLimit)
	require.Equal(t, 30*time.Second, ctl.pingPeriod)
}
