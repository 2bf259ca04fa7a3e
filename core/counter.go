package core

// Counter flags
const (
	CF_PENDING = 1 << 0 // a sample is waiting to be reported
)

// Counter counts edges on a GPIO input by polling it from a timer
type Counter struct {
	OID   uint8
	Pin   GPIOPin
	Timer Timer

	PollTicks      uint32
	SampleTicks    uint32
	nextSampleTime uint32
	count          uint32
	lastCountTime  uint32
	flags          uint8

	counters *Counters
}

// CounterSample is one counter_state report
type CounterSample struct {
	OID        uint8
	NextClock  uint32
	Count      uint32
	CountClock uint32
}

// Counters owns the pulse counters of one scheduler
type Counters struct {
	s     *Scheduler
	gpio  GPIODriver
	wake  TaskWake
	byOID map[uint8]*Counter
	order []*Counter
}

// RegisterCounterCommands registers config_counter and query_counter and
// the task that reports samples
func RegisterCounterCommands(s *Scheduler, reg *CommandRegistry, gpio GPIODriver) *Counters {
	c := &Counters{
		s:     s,
		gpio:  gpio,
		byOID: make(map[uint8]*Counter),
	}
	reg.Register("config_counter", "oid=%c pin=%u pull_up=%c", c.handleConfigCounter)
	reg.Register("query_counter", "oid=%c clock=%u poll_ticks=%u sample_ticks=%u", c.handleQueryCounter)
	reg.RegisterResponse("counter_state", "oid=%c next_clock=%u count=%u count_clock=%u")
	s.DeclareTask(c.task)
	s.DeclareShutdown(c.shutdown)
	return c
}

// Get returns the counter configured under oid
func (c *Counters) Get(oid uint8) (*Counter, bool) {
	ctr, ok := c.byOID[oid]
	return ctr, ok
}

func (c *Counters) handleConfigCounter(data *[]byte) error {
	var oid, pin, pullUp uint32
	if err := decodeArgs(data, &oid, &pin, &pullUp); err != nil {
		return err
	}
	if err := c.gpio.ConfigureInput(GPIOPin(pin), pullUp != 0); err != nil {
		return err
	}
	ctr := &Counter{OID: uint8(oid), Pin: GPIOPin(pin), counters: c}
	ctr.Timer.Handler = ctr.event
	if old, ok := c.byOID[ctr.OID]; ok {
		c.s.DelTimer(&old.Timer)
		for i, o := range c.order {
			if o == old {
				c.order[i] = ctr
			}
		}
	} else {
		c.order = append(c.order, ctr)
	}
	c.byOID[ctr.OID] = ctr
	return nil
}

// handleQueryCounter (re)starts polling at clock. The first sample is
// taken on the poll after clock.
func (c *Counters) handleQueryCounter(data *[]byte) error {
	var oid, clock, pollTicks, sampleTicks uint32
	if err := decodeArgs(data, &oid, &clock, &pollTicks, &sampleTicks); err != nil {
		return err
	}
	ctr, ok := c.byOID[uint8(oid)]
	if !ok {
		return ErrUnknownOID
	}
	c.s.DelTimer(&ctr.Timer)
	ctr.Timer.WakeTime = clock
	ctr.PollTicks = pollTicks
	ctr.SampleTicks = sampleTicks
	ctr.nextSampleTime = clock
	c.s.AddTimer(&ctr.Timer)
	return nil
}

// event polls the pin. The low bit of count always mirrors the last level
// seen, so a changed level means one more edge.
func (ctr *Counter) event(t *Timer) uint8 {
	now := t.WakeTime
	value := ctr.counters.gpio.ReadPin(ctr.Pin)
	if (ctr.count&1 != 0) != value {
		ctr.count++
		ctr.lastCountTime = now
	}

	if TimerIsBefore(ctr.nextSampleTime, now) {
		ctr.flags |= CF_PENDING
		ctr.nextSampleTime = now + ctr.SampleTicks
		RecordTiming(EvtCounterSample, ctr.OID, now, ctr.count, 0)
		ctr.counters.s.WakeTask(&ctr.counters.wake)
	}

	t.WakeTime += ctr.PollTicks
	return SF_RESCHEDULE
}

// snapshot takes a consistent copy of a pending sample and clears it
func (ctr *Counter) snapshot(s *Scheduler) (CounterSample, bool) {
	flag := s.irq.Save()
	defer s.irq.Restore(flag)
	if ctr.flags&CF_PENDING == 0 {
		return CounterSample{}, false
	}
	ctr.flags &^= CF_PENDING
	return CounterSample{
		OID:        ctr.OID,
		NextClock:  ctr.Timer.WakeTime,
		Count:      ctr.count,
		CountClock: ctr.lastCountTime,
	}, true
}

// task sends counter_state for every counter with a pending sample
func (c *Counters) task(s *Scheduler) {
	if !s.CheckWake(&c.wake) {
		return
	}
	for _, ctr := range c.order {
		smp, ok := ctr.snapshot(s)
		if !ok {
			continue
		}
		s.out.Send("counter_state", uint32(smp.OID), smp.NextClock, smp.Count, smp.CountClock)
	}
}

// shutdown drops unreported samples; the timers are already unlinked
func (c *Counters) shutdown(s *Scheduler) {
	for _, ctr := range c.order {
		ctr.flags &^= CF_PENDING
	}
}

// reset forgets every counter and releases its pin
func (c *Counters) reset() {
	for _, ctr := range c.order {
		c.gpio.ReleasePin(ctr.Pin)
	}
	clear(c.byOID)
	c.order = nil
}
