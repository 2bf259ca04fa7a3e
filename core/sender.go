package core

import (
	"strings"

	"tickcore/protocol"
)

// ResponseWriter frames a response whose arguments are encoded by args.
// Responses carrying byte buffers (identify_response) need it.
type ResponseWriter interface {
	SendResponse(name string, args func(protocol.OutputBuffer)) bool
}

// TransportSender sends registered responses over a firmware Transport.
// It implements both Sender and ResponseWriter.
type TransportSender struct {
	reg       *CommandRegistry
	transport *protocol.Transport
	dropped   uint32
}

// NewTransportSender creates a sender resolving names through reg
func NewTransportSender(reg *CommandRegistry, transport *protocol.Transport) *TransportSender {
	return &TransportSender{reg: reg, transport: transport}
}

// SendResponse frames name with arguments written by args
func (ts *TransportSender) SendResponse(name string, args func(protocol.OutputBuffer)) bool {
	cmd, ok := ts.reg.GetCommandByName(name)
	if !ok {
		DebugPrintln("[send] unregistered response " + name)
		ts.dropped++
		return false
	}
	if !ts.transport.SendCommand(cmd.ID, args) {
		ts.dropped++
		return false
	}
	return true
}

// Send encodes integer arguments in format order. Signed parameters
// (%i, %hi) are sent as signed VLQ.
func (ts *TransportSender) Send(name string, args ...uint32) {
	cmd, ok := ts.reg.GetCommandByName(name)
	if !ok {
		DebugPrintln("[send] unregistered response " + name)
		ts.dropped++
		return
	}
	params := strings.Fields(cmd.Format)
	if !ts.transport.SendCommand(cmd.ID, func(out protocol.OutputBuffer) {
		for i, v := range args {
			if i < len(params) && argIsSigned(params[i]) {
				protocol.EncodeVLQInt(out, int32(v))
			} else {
				protocol.EncodeVLQUint(out, v)
			}
		}
	}) {
		ts.dropped++
	}
}

// Dropped counts responses that could not be framed
func (ts *TransportSender) Dropped() uint32 { return ts.dropped }
