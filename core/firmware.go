package core

import "tickcore/protocol"

// InputBufferSize is the receive ring size
const InputBufferSize = 256

// Hardware is what a board provides to the firmware image
type Hardware struct {
	Timer    TimerDriver
	IRQ      IRQController
	GPIO     GPIODriver // optional
	Watchdog Watchdog   // optional
}

// Firmware is a complete image: the scheduler, the command set and the
// serial transport joined together. Boards and the simulator build one,
// feed it received bytes and drain its output.
type Firmware struct {
	Sched     *Scheduler
	Registry  *CommandRegistry
	Dict      *Dictionary
	Transport *protocol.Transport
	Sender    *TransportSender
	Base      *BaseCommands
	Outputs   *DigitalOutputs
	Counters  *Counters

	input  *protocol.FifoBuffer
	output *protocol.ScratchOutput
	rxWake TaskWake
	rxBusy bool // set while the transport is consuming input
	tx     func(p []byte) error
	txErrs uint32
}

// NewFirmware assembles an image on hw
func NewFirmware(hw Hardware) *Firmware {
	f := &Firmware{
		Registry: NewCommandRegistry(),
		input:    protocol.NewFifoBuffer(InputBufferSize),
		output:   protocol.NewScratchOutput(),
	}
	f.Dict = NewDictionary(f.Registry)
	f.Transport = protocol.NewTransport(f.output, f.handleCommand)
	f.Transport.SetFlushCallback(f.Flush)
	f.Sender = NewTransportSender(f.Registry, f.Transport)
	f.Sched = NewScheduler(hw.Timer, hw.IRQ, f.Sender)

	f.Base = RegisterBaseCommands(f.Sched, f.Registry, f.Dict, f.Sender)
	if hw.GPIO != nil {
		f.Outputs = RegisterDigitalOutCommands(f.Sched, f.Registry, hw.GPIO)
		f.Counters = RegisterCounterCommands(f.Sched, f.Registry, hw.GPIO)
		f.Base.DeclareConfigReset(f.Outputs.reset)
		f.Base.DeclareConfigReset(f.Counters.reset)
	}
	if hw.Watchdog != nil {
		RegisterWatchdog(f.Sched, hw.Watchdog)
	}
	f.Sched.DeclareTask(f.serialTask)
	return f
}

func (f *Firmware) handleCommand(cmdID uint16, data *[]byte) error {
	return f.Registry.Dispatch(f.Sched, cmdID, data)
}

// SetTx installs the function that writes framed output to the wire
func (f *Firmware) SetTx(tx func(p []byte) error) {
	f.tx = tx
}

// Start builds the dictionary and starts the scheduler. Every command
// must be registered before it is called.
func (f *Firmware) Start() {
	f.Dict.BuildDictionary()
	f.Sched.Start()
	f.Flush()
}

// RunOnce runs one main loop iteration and pushes out what it produced
func (f *Firmware) RunOnce() {
	f.Sched.RunOnce()
	if f.rxBusy {
		// A command shut the machine down mid-block; pick up what is
		// queued behind it on the next cycle
		f.rxBusy = false
		f.Sched.WakeTask(&f.rxWake)
	}
	f.Flush()
}

// RunForever is the board main loop
func (f *Firmware) RunForever() {
	f.Start()
	for {
		f.RunOnce()
	}
}

// Receive queues bytes from the wire. Called from the receive interrupt.
// It returns how many bytes fit.
func (f *Firmware) Receive(data []byte) int {
	n := f.input.Write(data)
	f.Sched.WakeTask(&f.rxWake)
	return n
}

// serialTask hands complete blocks to the transport
func (f *Firmware) serialTask(s *Scheduler) {
	if !s.CheckWake(&f.rxWake) || f.input.IsEmpty() {
		return
	}
	f.rxBusy = true
	f.Transport.Receive(f.input)
	f.rxBusy = false
	f.Flush()
}

// Flush writes buffered output through the tx function
func (f *Firmware) Flush() {
	result := f.output.Result()
	if len(result) == 0 || f.tx == nil {
		return
	}
	if err := f.tx(result); err != nil {
		f.txErrs++
		DebugPrintln("[serial] tx: " + err.Error())
	}
	f.output.Reset()
}

// TxErrors counts failed writes
func (f *Firmware) TxErrors() uint32 {
	return f.txErrs
}
