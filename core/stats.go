package core

// StatsSumsqBase scales the sum of squared loop times
const StatsSumsqBase = 256

// StatsIntervalUS is how often loop statistics are sent
const StatsIntervalUS = 5000000

type statsState struct {
	count, sum, sumsq uint32
	sendTime          uint32

	// 64-bit clock extension, advanced whenever the low word wraps
	lastCur, high uint32
}

func divRoundUp(n, d uint32) uint32 {
	return (n + d - 1) / d
}

// statsUpdate accumulates one task cycle that ran from start to cur
func (s *Scheduler) statsUpdate(start, cur uint32) {
	st := &s.stats
	if cur < st.lastCur {
		st.high++
	}
	st.lastCur = cur

	diff := cur - start
	st.count++
	st.sum += diff

	// Sum of squares saturates rather than wrapping
	var next uint32
	switch {
	case diff <= 0xffff:
		next = st.sumsq + divRoundUp(diff*diff, StatsSumsqBase)
	case diff <= 0xfffff:
		next = st.sumsq + divRoundUp(diff, StatsSumsqBase)*diff
	default:
		next = 0xffffffff
	}
	if next < st.sumsq {
		next = 0xffffffff
	}
	st.sumsq = next

	if TimerIsBefore(cur, st.sendTime) {
		return
	}
	s.out.Send("stats", st.count, st.sum, st.sumsq)
	st.sendTime = cur + TimerFromUS(StatsIntervalUS)
	st.count, st.sum, st.sumsq = 0, 0, 0
}

// Uptime returns the 64-bit tick count split into high and low words. The
// high word is maintained by the main loop, which the periodic timer wakes
// far more often than the low word wraps.
func (s *Scheduler) Uptime() (high, low uint32) {
	cur := s.timer.ReadTime()
	high = s.stats.high
	if cur < s.stats.lastCur {
		high++
	}
	return high, cur
}
