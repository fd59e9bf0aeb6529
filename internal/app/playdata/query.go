package playdata

// Query evaluates prepared play data at now.
// It is pure: the same arguments always produce the same result.
func Query(p *PreparedPlayData, now int64) GroupPlayData {
	data := GroupPlayData{
		Playheads:  make(map[string]Playhead),
		Countdowns: make(map[string][]Countdown),
	}
	if p == nil {
		return data
	}
	switch p.Kind {
	case KindSingle:
		querySingle(&data, p.Sections, now)
	case KindMulti:
		queryMulti(&data, p.Parts, now)
	}
	return data
}

// timeAt returns the position inside the section at now, if the section is active.
// Intervals are half-open: a section ending at t is no longer active at t.
func (s Section) timeAt(now int64) (int64, bool) {
	if s.IsEmpty() {
		return 0, false
	}
	if s.StopTime != nil && now >= *s.StopTime {
		return 0, false
	}
	if s.PauseTime != nil {
		return s.wrap(*s.PauseTime), true
	}
	if now < s.StartTime {
		return 0, false
	}
	if !s.Repeating && s.EndTime != nil && now >= *s.EndTime {
		return 0, false
	}
	return s.wrap(now - s.StartTime), true
}

func (s Section) wrap(t int64) int64 {
	if s.Repeating && s.Duration != nil && *s.Duration > 0 {
		return t % *s.Duration
	}
	return t
}

// partAt returns the index of the part playing at the given section time.
func (s Section) partAt(t int64) int {
	found := 0
	for i, p := range s.Parts {
		if p.Offset > t {
			break
		}
		if p.Duration == nil || t < p.Offset+*p.Duration {
			return i
		}
		found = i
	}
	return found
}

// timeToEnd returns the time left in the current run of the section.
func (s Section) timeToEnd(now, t int64) *int64 {
	if s.EndAction == EndActionInfinite || s.Duration == nil {
		return nil
	}
	if s.PauseTime != nil || s.Repeating {
		left := *s.Duration - t
		if s.StopTime != nil && s.PauseTime == nil && *s.StopTime-now < left {
			left = *s.StopTime - now
		}
		return ms(left)
	}
	end := *s.EndTime
	if s.StopTime != nil && *s.StopTime < end {
		end = *s.StopTime
	}
	return ms(end - now)
}

func querySingle(data *GroupPlayData, sections []Section, now int64) {
	active := -1
	var t int64
	for i, s := range sections {
		if st, ok := s.timeAt(now); ok {
			active, t = i, st
			break
		}
	}

	if active < 0 {
		addFutureCountdowns(data, sections, now)
		return
	}

	s := sections[active]
	j := s.partAt(t)
	followed := hasFollowingSection(sections, active)
	data.Playheads[s.Parts[j].PartID] = playhead(s, j, t, now, followed)

	paused := s.PauseTime != nil
	data.GroupIsPlaying = true
	data.AnyPartIsPlaying = true
	data.AllPlayingPartsArePaused = paused

	action := s.EndAction
	data.SectionEndAction = &action
	if left := s.timeToEnd(now, t); left != nil {
		data.SectionTimeToEnd = left
		data.SectionEndTime = ms(now + *left)
	}

	// base is the absolute start of the current run, as if resumed now when paused.
	base := now - t
	inSection := func(ts int64) bool {
		return paused || s.StopTime == nil || ts < *s.StopTime
	}
	for k := j + 1; k < len(s.Parts); k++ {
		if ts := base + s.Parts[k].Offset; inSection(ts) {
			addCountdown(data, s.Parts[k].PartID, ts, now)
		}
	}
	if s.Repeating && s.Duration != nil {
		for k := 0; k < j; k++ {
			if ts := base + *s.Duration + s.Parts[k].Offset; inSection(ts) {
				addCountdown(data, s.Parts[k].PartID, ts, now)
			}
		}
	}

	var shift int64
	if paused && !s.Repeating {
		shift = base - s.StartTime
	}
	for _, next := range sections[active+1:] {
		if next.IsEmpty() {
			continue
		}
		offset := shift
		if isScheduledStart(s, next) {
			offset = 0
		}
		for _, sp := range next.Parts {
			addCountdown(data, sp.PartID, next.StartTime+offset+sp.Offset, now)
		}
		if next.Repeating || next.EndAction == EndActionInfinite || next.EndAction == EndActionStop {
			break
		}
	}
}

// addFutureCountdowns lists starts of sections that have not begun yet.
func addFutureCountdowns(data *GroupPlayData, sections []Section, now int64) {
	for _, s := range sections {
		if s.IsEmpty() || s.StartTime <= now {
			continue
		}
		for _, sp := range s.Parts {
			addCountdown(data, sp.PartID, s.StartTime+sp.Offset, now)
		}
		if s.Repeating || s.EndAction == EndActionInfinite || s.EndAction == EndActionStop {
			return
		}
	}
}

// isScheduledStart reports whether next is a scheduled start that takes over
// from s at a fixed time rather than a continuation of the chain of s.
func isScheduledStart(s, next Section) bool {
	if !next.Schedule {
		return false
	}
	return !s.Schedule || (s.StopTime != nil && next.StartTime >= *s.StopTime)
}

func hasFollowingSection(sections []Section, i int) bool {
	for _, s := range sections[i+1:] {
		if !s.IsEmpty() {
			return true
		}
	}
	return false
}

// playhead describes part j of section s at section time t.
func playhead(s Section, j int, t, now int64, followed bool) Playhead {
	sp := s.Parts[j]
	elapsed := t - sp.Offset
	ph := Playhead{
		PartID:        sp.PartID,
		PlayheadTime:  elapsed,
		PartStartTime: now - elapsed,
		PartDuration:  sp.Duration,
		FromSchedule:  s.Schedule,
	}
	if s.PauseTime != nil {
		ph.PartPauseTime = ms(elapsed)
	}
	if sp.Duration != nil {
		ph.PartEndTime = ms(ph.PartStartTime + *sp.Duration)
	}
	ph.EndAction = partEndAction(s, j, followed)
	return ph
}

func partEndAction(s Section, j int, followed bool) PartEndAction {
	if s.Parts[j].Duration == nil {
		return PartEndInfinite
	}
	if j < len(s.Parts)-1 {
		return PartEndNextPart
	}
	switch s.EndAction {
	case EndActionStop:
		return PartEndStop
	case EndActionNextSection:
		if followed {
			return PartEndNextPart
		}
		return PartEndStop
	case EndActionLoopSelf:
		if len(s.Parts) == 1 {
			return PartEndLoopSelf
		}
		return PartEndNextPart
	case EndActionInfinite:
		return PartEndInfinite
	default:
		return PartEndStop
	}
}

func queryMulti(data *GroupPlayData, parts map[string]Section, now int64) {
	allPaused := true
	for id, s := range parts {
		t, ok := s.timeAt(now)
		if !ok {
			if !s.IsEmpty() && s.StartTime > now && s.PauseTime == nil {
				addCountdown(data, id, s.StartTime, now)
			}
			continue
		}
		data.Playheads[id] = playhead(s, 0, t, now, false)
		data.AnyPartIsPlaying = true
		if s.PauseTime == nil {
			allPaused = false
		}
	}
	// A multi-play group has no single through-line.
	data.GroupIsPlaying = false
	data.AllPlayingPartsArePaused = data.AnyPartIsPlaying && allPaused
}

func addCountdown(data *GroupPlayData, partID string, ts, now int64) {
	data.Countdowns[partID] = append(data.Countdowns[partID], Countdown{
		Duration:  ts - now,
		Timestamp: ts,
	})
}
