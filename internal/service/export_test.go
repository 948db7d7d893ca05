package service

import "time"

var CleanupSchedule = cleanupSchedule

func SetSchedulerClock(s *Scheduler, now func() time.Time) {
	s.now = now
}
