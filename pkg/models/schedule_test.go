package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "org-1", "wf-1", "*/5 * * * *")
	require.NoError(t, err)

	assert.True(t, schedule.Active)
	assert.True(t, schedule.NextDueAt.After(time.Now().UTC().Add(-time.Minute)))

	_, err = NewSchedule("sched-2", "org-1", "wf-1", "not a cron")
	assert.Error(t, err)
}

func TestSchedule_IsDue(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "org-1", "wf-1", "0 0 * * *")
	require.NoError(t, err)

	assert.False(t, schedule.IsDue(time.Now().UTC()))
	assert.True(t, schedule.IsDue(schedule.NextDueAt.Add(time.Second)))

	schedule.Active = false
	assert.False(t, schedule.IsDue(schedule.NextDueAt.Add(time.Second)))
}

func TestSchedule_UpdateNextDueAt(t *testing.T) {
	schedule, err := NewSchedule("sched-1", "org-1", "wf-1", "* * * * *")
	require.NoError(t, err)

	first := schedule.NextDueAt

	require.NoError(t, schedule.UpdateNextDueAt())
	assert.False(t, schedule.NextDueAt.Before(first))
}
