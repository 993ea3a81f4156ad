package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceStatus(t *testing.T) {
	tests := map[InstanceStatus]struct {
		rank     int
		terminal bool
		str      string
	}{
		StatusUnknown:    {rank: 0, str: "UNKNOWN"},
		StatusAllocating: {rank: 1, str: "ALLOCATING"},
		StatusStarting:   {rank: 2, str: "STARTING"},
		StatusHealthy:    {rank: 3, str: "HEALTHY"},
		StatusUnhealthy:  {rank: -1, str: "UNHEALTHY"},
		StatusSleeping:   {rank: -1, str: "SLEEPING"},
		StatusStopping:   {rank: -1, terminal: true, str: "STOPPING"},
		StatusStopped:    {rank: -1, terminal: true, str: "STOPPED"},
		StatusError:      {rank: -1, terminal: true, str: "ERROR"},
		StatusDeleting:   {rank: -1, terminal: true, str: "DELETING"},
		StatusDeleted:    {rank: -1, terminal: true, str: "DELETED"},
	}
	for status, tc := range tests {
		t.Run(tc.str, func(t *testing.T) {
			assert.Equal(t, tc.rank, status.Rank())
			assert.Equal(t, tc.terminal, status.IsTerminal())
			assert.Equal(t, tc.str, status.String())
		})
	}
}

func TestInstanceStatus_AtLeast(t *testing.T) {
	assert.True(t, StatusHealthy.AtLeast(StatusStarting))
	assert.True(t, StatusStarting.AtLeast(StatusStarting))
	assert.False(t, StatusAllocating.AtLeast(StatusStarting))
	assert.False(t, StatusUnknown.AtLeast(StatusAllocating))
	assert.True(t, StatusUnknown.AtLeast(StatusUnknown))
	assert.False(t, StatusError.AtLeast(StatusUnknown))
}
