package durable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/josedab/quicksilver/internal/vm"
)

func TestAlarmScheduleAndCancel(t *testing.T) {
	s := NewAlarmScheduler()
	s.SetAlarm("obj1", 5*time.Second, "onTick", nil)
	require.Equal(t, 1, s.PendingCount())

	alarm, ok := s.GetAlarm("obj1")
	require.True(t, ok)
	require.Equal(t, "onTick", alarm.CallbackName)

	require.True(t, s.CancelAlarm("obj1"))
	require.False(t, s.CancelAlarm("obj1"))
	require.Zero(t, s.PendingCount())
}

func TestAlarmReplacesPerObject(t *testing.T) {
	s := NewAlarmScheduler()
	s.SetAlarm("obj1", time.Second, "first", nil)
	s.SetAlarm("obj1", 2*time.Second, "second", nil)

	require.Equal(t, 1, s.PendingCount())
	alarm, _ := s.GetAlarm("obj1")
	require.Equal(t, "second", alarm.CallbackName)
}

func TestAlarmCollectDue(t *testing.T) {
	s := NewAlarmScheduler()
	s.SetAlarm("early", time.Second, "cb", nil)
	s.SetAlarm("late", 10*time.Second, "cb", nil)

	due := s.CollectDue(5 * time.Second)
	require.Len(t, due, 1)
	require.Equal(t, "early", due[0].ObjectID)

	// Due alarms are partitioned out atomically.
	require.Equal(t, 1, s.PendingCount())
	_, ok := s.GetAlarm("early")
	require.False(t, ok)

	// Collecting again at a later time drains the rest.
	due = s.CollectDue(10 * time.Second)
	require.Len(t, due, 1)
	require.Equal(t, "late", due[0].ObjectID)
	require.Zero(t, s.PendingCount())
}

func TestAlarmCarriesData(t *testing.T) {
	s := NewAlarmScheduler()
	payload := vm.StringVal("payload")
	s.SetAlarm("obj1", time.Second, "cb", &payload)

	due := s.CollectDue(time.Second)
	require.Len(t, due, 1)
	require.NotNil(t, due[0].Data)
	require.Equal(t, "payload", due[0].Data.Str)
}
