package core

import (
	"sync/atomic"

	"tickcore/protocol"
)

// DefaultMoveCount is reported in the config response
const DefaultMoveCount = 16

var ReasonConfigResetNotShutdown = StaticString("config_reset only available when shutdown")

// BaseCommands holds the state behind the commands every image carries:
// identification, clock queries, configuration and the shutdown controls.
type BaseCommands struct {
	s    *Scheduler
	dict *Dictionary
	rw   ResponseWriter

	configCRC uint32
	moveCount uint16

	// resetPending defers a reset until the ack has gone out
	resetPending atomic.Bool
	resetHandler func()

	configResets []func()
}

// RegisterBaseCommands registers the base protocol on reg.
//
// Registration order matters: the host's bootstrap dictionary expects
// identify_response as id 0 and identify as id 1.
func RegisterBaseCommands(s *Scheduler, reg *CommandRegistry, dict *Dictionary, rw ResponseWriter) *BaseCommands {
	b := &BaseCommands{
		s:         s,
		dict:      dict,
		rw:        rw,
		moveCount: DefaultMoveCount,
	}

	reg.RegisterResponse("identify_response", "offset=%u data=%.*s")                      // ID 0
	reg.RegisterFlags("identify", "offset=%u count=%c", HF_IN_SHUTDOWN, b.handleIdentify) // ID 1

	reg.RegisterFlags("get_uptime", "", HF_IN_SHUTDOWN, b.handleGetUptime)
	reg.RegisterFlags("get_clock", "", HF_IN_SHUTDOWN, b.handleGetClock)
	reg.RegisterFlags("get_config", "", HF_IN_SHUTDOWN, b.handleGetConfig)
	reg.Register("finalize_config", "crc=%u", b.handleFinalizeConfig)
	reg.RegisterFlags("config_reset", "", HF_IN_SHUTDOWN, b.handleConfigReset)
	reg.RegisterFlags("emergency_stop", "", HF_IN_SHUTDOWN, b.handleEmergencyStop)
	reg.RegisterFlags("clear_shutdown", "", HF_IN_SHUTDOWN, b.handleClearShutdown)
	reg.RegisterFlags("reset", "", HF_IN_SHUTDOWN, b.handleReset)

	// Response messages (MCU -> Host)
	reg.RegisterResponse("starting", "")
	reg.RegisterResponse("shutdown", "clock=%u static_string_id=%hu")
	reg.RegisterResponse("is_shutdown", "static_string_id=%hu")
	reg.RegisterResponse("stats", "count=%u sum=%u sumsq=%u")
	reg.RegisterResponse("clock", "clock=%u")
	reg.RegisterResponse("uptime", "high=%u clock=%u")
	reg.RegisterResponse("config", "is_config=%c crc=%u is_shutdown=%c move_count=%hu")

	dict.AddConstant("CLOCK_FREQ", TimerFreq)
	dict.AddConstant("STATS_SUMSQ_BASE", uint32(StatsSumsqBase))

	s.DeclareTask(b.resetTask)
	return b
}

// SetResetHandler sets the platform-specific reset routine
func (b *BaseCommands) SetResetHandler(handler func()) {
	b.resetHandler = handler
}

// DeclareConfigReset adds fn to the routines config_reset runs to drop
// configured objects. They run with interrupts masked.
func (b *BaseCommands) DeclareConfigReset(fn func()) {
	b.configResets = append(b.configResets, fn)
}

// IsConfigured reports whether the host has finalized a configuration
func (b *BaseCommands) IsConfigured() bool {
	return b.configCRC != 0
}

// handleIdentify returns chunks of the data dictionary
func (b *BaseCommands) handleIdentify(data *[]byte) error {
	offset, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	count, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}

	chunk := b.dict.GetChunk(offset, uint8(count))
	b.rw.SendResponse("identify_response", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQBytes(output, chunk)
	})
	return nil
}

func (b *BaseCommands) handleGetUptime(data *[]byte) error {
	high, low := b.s.Uptime()
	b.s.out.Send("uptime", high, low)
	return nil
}

func (b *BaseCommands) handleGetClock(data *[]byte) error {
	b.s.out.Send("clock", b.s.ReadTime())
	return nil
}

func (b *BaseCommands) handleGetConfig(data *[]byte) error {
	var isConfig, isShutdown uint32
	if b.IsConfigured() {
		isConfig = 1
	}
	if b.s.IsShutdown() {
		isShutdown = 1
	}
	b.s.out.Send("config", isConfig, b.configCRC, isShutdown, uint32(b.moveCount))
	return nil
}

func (b *BaseCommands) handleFinalizeConfig(data *[]byte) error {
	crc, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	b.configCRC = crc
	return nil
}

// handleConfigReset drops the configuration and leaves shutdown. It is
// only valid while shut down.
func (b *BaseCommands) handleConfigReset(data *[]byte) error {
	if !b.s.IsShutdown() {
		b.s.Shutdown(ReasonConfigResetNotShutdown)
	}
	flag := b.s.irq.Save()
	b.configCRC = 0
	b.s.timerReset()
	for _, fn := range b.configResets {
		fn()
	}
	b.s.irq.Restore(flag)
	b.s.ClearShutdown()
	return nil
}

func (b *BaseCommands) handleEmergencyStop(data *[]byte) error {
	b.s.Shutdown(ReasonCommandRequest)
	return nil
}

func (b *BaseCommands) handleClearShutdown(data *[]byte) error {
	b.s.ClearShutdown()
	return nil
}

func (b *BaseCommands) handleReset(data *[]byte) error {
	b.resetPending.Store(true)
	b.s.WakeTasks()
	return nil
}

// resetTask runs the platform reset one task cycle after the command,
// once the ack has been queued
func (b *BaseCommands) resetTask(s *Scheduler) {
	if !b.resetPending.Load() {
		return
	}
	b.resetPending.Store(false)
	if b.resetHandler == nil {
		DebugPrintln("[base] reset requested, no handler")
		return
	}
	b.resetHandler()
}
