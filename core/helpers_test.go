package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sentMsg struct {
	Name string
	Args []uint32
}

// recorder is a Sender that keeps every message
type recorder struct {
	msgs []sentMsg
}

func (r *recorder) Send(name string, args ...uint32) {
	r.msgs = append(r.msgs, sentMsg{Name: name, Args: append([]uint32(nil), args...)})
}

func (r *recorder) named(name string) []sentMsg {
	var out []sentMsg
	for _, m := range r.msgs {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

// newTestScheduler builds a scheduler on a simulated machine whose
// counter starts at start
func newTestScheduler(t *testing.T, start uint32) (*Scheduler, *SimMachine, *recorder) {
	t.Helper()
	m := NewSimMachine(start)
	rec := &recorder{}
	s := NewScheduler(m, m, rec)
	m.AttachTimerIRQ(s.TimerIRQ)
	return s, m, rec
}

// tracer records the order in which its timers fire
type tracer struct {
	fired []string
}

func (tr *tracer) timer(name string, waketime uint32) *Timer {
	return &Timer{
		WakeTime: waketime,
		Handler: func(*Timer) uint8 {
			tr.fired = append(tr.fired, name)
			return SF_DONE
		},
	}
}

// dispatchUntil calls Dispatch until n traced timers have fired
func dispatchUntil(t *testing.T, s *Scheduler, tr *tracer, n int) {
	t.Helper()
	for i := 0; len(tr.fired) < n; i++ {
		require.Less(t, i, 4*n+4, "timers did not fire: %v", tr.fired)
		s.Dispatch()
	}
}
