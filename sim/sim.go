package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"tickcore/core"
	"tickcore/host/link"
)

// ReasonInjectedFault is the shutdown reason of FaultInterrupt
var ReasonInjectedFault = core.StaticString("Simulated interrupt fault")

// pastOffset is how far behind the clock FaultRescheduledInPast keeps its
// timer; well over the one millisecond dispatch limit
const pastOffset = 20000

var errNoIdentifyResponse = errors.New("no identify_response")

// Record is one report with the iteration and clock it was seen at
type Record struct {
	Iteration int
	Clock     uint32
	Event     link.Event
}

// Result is the outcome of a run
type Result struct {
	Records       []Record
	Dictionary    *link.Dictionary
	Edges         []core.PinEdge
	State         core.ShutdownState
	WatchdogFeeds uint32
}

// Events returns the events in order, without their positions
func (r *Result) Events() []link.Event {
	out := make([]link.Event, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Event
	}
	return out
}

// board is the simulated machine and its captured serial output
type board struct {
	m    *core.SimMachine
	f    *core.Firmware
	wire []byte
}

func (b *board) deliver(blk []byte) {
	b.m.Raise(func() { b.f.Receive(blk) })
}

func (b *board) drain() []byte {
	out := b.wire
	b.wire = nil
	return out
}

// Run executes sc and returns the reports the host received. Firmware
// debug output goes to log at debug level.
func Run(ctx context.Context, sc *Scenario, log zerolog.Logger) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	core.SetDebugWriter(func(msg string) {
		log.Debug().Str("source", "firmware").Msg(msg)
	})
	core.SetDebugEnabled(sc.Debug)
	defer func() {
		core.SetDebugWriter(func(string) {})
		core.SetDebugEnabled(false)
	}()

	m := core.NewSimMachine(sc.StartClock)
	m.ReadStep = sc.ReadStep
	b := &board{m: m}
	b.f = core.NewFirmware(core.Hardware{Timer: m, IRQ: m, GPIO: m, Watchdog: m})
	m.AttachTimerIRQ(b.f.Sched.TimerIRQ)
	b.f.SetTx(func(p []byte) error {
		b.wire = append(b.wire, p...)
		return nil
	})
	b.f.Start()
	startup := b.drain()

	enc := link.NewEncoder(nil)
	dict, err := identify(b, enc)
	if err != nil {
		return nil, err
	}
	enc.SetDictionary(dict)
	log.Info().
		Str("scenario", sc.Name).
		Str("version", dict.Version).
		Int("iterations", sc.Iterations).
		Msg("dictionary loaded")

	res := &Result{Dictionary: dict}
	dec := link.NewDecoder(dict)
	collect := func(iter int, raw []byte) {
		msgs, err := dec.Feed(raw)
		if err != nil {
			log.Warn().Err(err).Int("iteration", iter).Msg("undecodable report")
		}
		for _, msg := range msgs {
			ev := link.ToEvent(dict, msg)
			res.Records = append(res.Records, Record{Iteration: iter, Clock: m.Now(), Event: ev})
			log.Debug().Int("iteration", iter).Str("message", msg.Name).Msg("report")
		}
	}
	collect(0, startup)

	for _, sig := range sc.Signals {
		startSignal(b, sig)
	}

	byIteration := make(map[int][]Step)
	for _, st := range sc.Steps {
		byIteration[st.At] = append(byIteration[st.At], st)
	}

	for iter := 0; iter < sc.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		for _, st := range byIteration[iter] {
			if err := runStep(b, enc, st, log); err != nil {
				return res, fmt.Errorf("iteration %d: %w", iter, err)
			}
		}
		b.f.RunOnce()
		collect(iter, b.drain())
	}

	res.Edges = m.Edges()
	res.State, _ = b.f.Sched.ShutdownStatus()
	res.WatchdogFeeds = m.WatchdogFeeds()
	log.Info().
		Str("scenario", sc.Name).
		Int("reports", len(res.Records)).
		Stringer("state", res.State).
		Msg("run complete")
	return res, nil
}

// identify downloads the dictionary the way a host does, one chunk per
// main loop cycle
func identify(b *board, enc *link.Encoder) (*link.Dictionary, error) {
	boot := link.NewDecoder(nil)
	return link.FetchDictionary(func(offset uint32, count uint8) (uint32, []byte, error) {
		blk, err := enc.Encode("identify", int64(offset), int64(count))
		if err != nil {
			return 0, nil, err
		}
		b.deliver(blk)
		b.f.RunOnce()
		// Reports the bootstrap dictionary cannot decode are dropped
		msgs, _ := boot.Feed(b.drain())
		for _, msg := range msgs {
			if msg.Name == "identify_response" {
				return msg.Uint("offset"), msg.Data, nil
			}
		}
		return 0, nil, errNoIdentifyResponse
	})
}

func runStep(b *board, enc *link.Encoder, st Step, log zerolog.Logger) error {
	s := b.f.Sched
	if st.Command != "" {
		args, err := st.resolveArgs(b.m.Now())
		if err != nil {
			return err
		}
		blk, err := enc.Encode(st.Command, args...)
		if err != nil {
			return err
		}
		log.Debug().Str("command", st.Command).Ints64("args", args).Msg("host command")
		b.deliver(blk)
		return nil
	}

	log.Debug().Str("fault", st.Fault).Msg("inject fault")
	switch st.Fault {
	case FaultTimerTooClose:
		s.Guard(func() {
			s.AddTimer(&core.Timer{
				WakeTime: s.ReadTime() - 1,
				Handler:  func(*core.Timer) uint8 { return core.SF_DONE },
			})
		})
	case FaultInterrupt:
		b.m.Raise(func() {
			s.InterruptGuard(func() { s.Shutdown(ReasonInjectedFault) })
		})
	case FaultRescheduledInPast:
		t := &core.Timer{WakeTime: s.ReadTime() + 1000}
		t.Handler = func(t *core.Timer) uint8 {
			t.WakeTime = s.ReadTime() - pastOffset
			return core.SF_RESCHEDULE
		}
		s.Guard(func() { s.AddTimer(t) })
	}
	return nil
}

// startSignal toggles an input pin from a timer for the rest of the run
func startSignal(b *board, sig Signal) {
	pin := core.GPIOPin(sig.Pin)
	level := false
	t := &core.Timer{WakeTime: b.m.Now() + sig.HalfPeriod}
	t.Handler = func(t *core.Timer) uint8 {
		level = !level
		b.m.SetInput(pin, level)
		t.WakeTime += sig.HalfPeriod
		return core.SF_RESCHEDULE
	}
	b.f.Sched.Guard(func() { b.f.Sched.AddTimer(t) })
}
