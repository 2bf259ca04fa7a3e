package core

// Timer is a node in the scheduler's timer list. Drivers own their timers
// (usually embedded in a per-object struct); the scheduler only links and
// unlinks them and never allocates one.
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

// Handler results
const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	// TimerFreq is the tick rate of the hardware counter (set by target code)
	TimerFreq uint32 = 12000000
)

// TimerIsBefore reports whether t1 is earlier than t2. Tick counts wrap, so
// "before" means the forward distance from t1 to t2 is under half the range.
func TimerIsBefore(t1, t2 uint32) bool {
	return int32(t1-t2) < 0
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * uint64(TimerFreq) / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / uint64(TimerFreq))
}

// SetTimerFreq is called by target code before the scheduler is created
func SetTimerFreq(freq uint32) {
	TimerFreq = freq
}
