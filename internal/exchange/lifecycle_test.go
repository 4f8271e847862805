package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusPending, StatusRejected, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusConfirmed, false},
		{StatusPending, StatusVideoCallScheduled, false},
		{StatusAccepted, StatusVideoCallScheduled, true},
		{StatusAccepted, StatusVideoCallCompleted, true},
		{StatusAccepted, StatusConfirmed, true},
		{StatusAccepted, StatusRejected, false},
		{StatusVideoCallScheduled, StatusVideoCallScheduled, true},
		{StatusVideoCallScheduled, StatusVideoCallCompleted, true},
		{StatusVideoCallCompleted, StatusConfirmed, true},
		{StatusVideoCallCompleted, StatusVideoCallScheduled, false},
		{StatusConfirmed, StatusCancelled, false},
		{StatusRejected, StatusAccepted, false},
		{StatusCancelled, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusSets(t *testing.T) {
	for _, s := range []string{StatusPending, StatusRejected, StatusCancelled} {
		assert.True(t, IsDeletable(s), s)
	}
	for _, s := range []string{StatusAccepted, StatusVideoCallScheduled, StatusVideoCallCompleted, StatusConfirmed} {
		assert.False(t, IsDeletable(s), s)
	}

	assert.True(t, IsPayable(StatusAccepted))
	assert.True(t, IsPayable(StatusVideoCallCompleted))
	assert.False(t, IsPayable(StatusPending))
	assert.False(t, IsPayable(StatusConfirmed))

	assert.False(t, IsOpen(StatusConfirmed))
	assert.True(t, IsOpen(StatusPending))
}
