package rundown

// Schedule describes when a group activates on its own.
type Schedule struct {
	Activate    bool   // Schedule is armed
	StartTime   int64  // First activation, epoch ms
	Interval    int64  // Repeat interval in ms, 0 means a single activation
	RepeatUntil *int64 // Last allowed activation, epoch ms, nil means forever
}

// NextOccurrence returns the first activation strictly after now.
func (s Schedule) NextOccurrence(now int64) (int64, bool) {
	if !s.Activate {
		return 0, false
	}
	if s.StartTime > now {
		return s.StartTime, s.withinLimit(s.StartTime)
	}
	if s.Interval <= 0 {
		return 0, false
	}
	n := (now-s.StartTime)/s.Interval + 1
	next := s.StartTime + n*s.Interval
	return next, s.withinLimit(next)
}

// DueOccurrence returns the latest activation in (after, now].
func (s Schedule) DueOccurrence(after, now int64) (int64, bool) {
	if !s.Activate || s.StartTime > now {
		return 0, false
	}
	latest := s.StartTime
	if s.Interval > 0 {
		latest = s.StartTime + ((now-s.StartTime)/s.Interval)*s.Interval
		if s.RepeatUntil != nil && latest > *s.RepeatUntil {
			latest = s.StartTime + ((*s.RepeatUntil-s.StartTime)/s.Interval)*s.Interval
		}
	}
	if latest <= after || !s.withinLimit(latest) {
		return 0, false
	}
	return latest, true
}

func (s Schedule) withinLimit(t int64) bool {
	return s.RepeatUntil == nil || t <= *s.RepeatUntil
}
