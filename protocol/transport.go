package protocol

// CommandHandler receives each command decoded from a block. data is
// positioned after the command id; the handler consumes its own arguments.
type CommandHandler func(cmdID uint16, data *[]byte) error

// Transport is the firmware end of the link: it validates incoming blocks,
// acknowledges them, hands commands to a CommandHandler and frames responses.
type Transport struct {
	framer   Framer
	nextSeq  uint8
	output   OutputBuffer
	handler  CommandHandler
	onReset  func()
	onFlush  func()
	lastErr  error
	received uint32
}

// NewTransport creates a transport writing blocks to output
func NewTransport(output OutputBuffer, handler CommandHandler) *Transport {
	return &Transport{
		nextSeq: MessageDest,
		output:  output,
		handler: handler,
	}
}

// Receive consumes complete blocks from input, leaving partial data behind.
// Each block is popped from input before its commands run, so a handler
// that never returns does not cause the block to be parsed again.
func (t *Transport) Receive(input InputBuffer) {
	for input.Available() > 0 {
		data := input.Data()
		wasSyncing := t.framer.NeedSync()
		blk, n, ok := t.framer.Next(data)
		if n == 0 {
			break
		}
		if ok {
			// Payload aliases input; copy before releasing it
			blk.Payload = append([]byte(nil), blk.Payload...)
		}
		input.Pop(n)
		if !ok {
			if wasSyncing && !t.framer.NeedSync() {
				t.sendAck()
			}
			continue
		}
		t.received++
		if blk.Seq == MessageDest && t.nextSeq != MessageDest {
			// Host restarted its sequence
			t.nextSeq = MessageDest
			if t.onReset != nil {
				t.onReset()
			}
		}
		if blk.Seq == t.nextSeq {
			t.nextSeq = (blk.Seq+1)&MessageSeqMask | MessageDest
			t.lastErr = t.dispatch(blk.Payload)
		}
		// A mismatched sequence still gets an ack; it acts as a nak
		t.sendAck()
	}
}

func (t *Transport) dispatch(payload []byte) error {
	for len(payload) > 0 {
		id, err := DecodeVLQUint(&payload)
		if err != nil {
			return err
		}
		if t.handler == nil {
			continue
		}
		if err := t.handler(uint16(id), &payload); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) sendAck() {
	EncodeBlock(t.output, t.nextSeq, nil)
	if t.onFlush != nil {
		t.onFlush()
	}
}

// SendCommand frames a single message (command or response) to the host
func (t *Transport) SendCommand(cmdID uint16, args func(OutputBuffer)) bool {
	return EncodeBlock(t.output, t.nextSeq, func(out OutputBuffer) {
		EncodeVLQUint(out, uint32(cmdID))
		if args != nil {
			args(out)
		}
	})
}

// LastError returns the error from the most recent command block, if any
func (t *Transport) LastError() error { return t.lastErr }

// Received counts validated blocks
func (t *Transport) Received() uint32 { return t.received }

// Reset returns the transport to its power-on sequence state
func (t *Transport) Reset() {
	t.framer.Reset()
	t.nextSeq = MessageDest
	if t.onReset != nil {
		t.onReset()
	}
}

// SetResetCallback is invoked when the host restarts its sequence
func (t *Transport) SetResetCallback(cb func()) { t.onReset = cb }

// SetFlushCallback is invoked after each ack so it can be pushed out at once
func (t *Transport) SetFlushCallback(cb func()) { t.onFlush = cb }
