package durable

import (
	"time"

	"github.com/josedab/quicksilver/internal/vm"
)

// ScheduledAlarm is a one-shot callback bound to a durable object id.
// ScheduledAt is elapsed time relative to the scheduler's epoch.
type ScheduledAlarm struct {
	ObjectID     string
	ScheduledAt  time.Duration
	CallbackName string
	Data         *vm.Value
}

// AlarmScheduler keys at most one pending alarm per object id.
type AlarmScheduler struct {
	alarms map[string]ScheduledAlarm
}

// NewAlarmScheduler creates an empty scheduler.
func NewAlarmScheduler() *AlarmScheduler {
	return &AlarmScheduler{alarms: make(map[string]ScheduledAlarm)}
}

// SetAlarm schedules (or replaces) the alarm for an object.
func (s *AlarmScheduler) SetAlarm(objectID string, delay time.Duration, callbackName string, data *vm.Value) {
	s.alarms[objectID] = ScheduledAlarm{
		ObjectID:     objectID,
		ScheduledAt:  delay,
		CallbackName: callbackName,
		Data:         data,
	}
}

// CancelAlarm removes a pending alarm. Returns whether one existed.
func (s *AlarmScheduler) CancelAlarm(objectID string) bool {
	if _, ok := s.alarms[objectID]; !ok {
		return false
	}
	delete(s.alarms, objectID)
	return true
}

// GetAlarm returns the pending alarm for an object.
func (s *AlarmScheduler) GetAlarm(objectID string) (ScheduledAlarm, bool) {
	alarm, ok := s.alarms[objectID]
	return alarm, ok
}

// CollectDue atomically partitions out and returns every alarm whose
// scheduled time is at or before nowElapsed.
func (s *AlarmScheduler) CollectDue(nowElapsed time.Duration) []ScheduledAlarm {
	var due []ScheduledAlarm
	remaining := make(map[string]ScheduledAlarm)
	for id, alarm := range s.alarms {
		if alarm.ScheduledAt <= nowElapsed {
			due = append(due, alarm)
		} else {
			remaining[id] = alarm
		}
	}
	s.alarms = remaining
	return due
}

// PendingCount is the number of scheduled alarms.
func (s *AlarmScheduler) PendingCount() int {
	return len(s.alarms)
}
