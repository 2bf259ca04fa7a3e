package protocol

// Block is one validated message block
type Block struct {
	Seq     uint8
	Payload []byte
}

// Framer splits a byte stream into message blocks. After a malformed block
// it discards input up to the next sync byte before trusting lengths again.
type Framer struct {
	needSync bool
}

// Next examines the front of data. It returns the number of bytes the
// caller should consume and, when ok, the block found in those bytes.
// A zero count with !ok means more input is required.
func (f *Framer) Next(data []byte) (blk Block, consumed int, ok bool) {
	if f.needSync {
		for i, b := range data {
			if b == MessageValueSync {
				f.needSync = false
				return Block{}, i + 1, false
			}
		}
		return Block{}, len(data), false
	}
	if len(data) == 0 {
		return Block{}, 0, false
	}
	if data[0] == MessageValueSync {
		return Block{}, 1, false
	}
	if len(data) < MessageLengthMin {
		return Block{}, 0, false
	}
	msgLen := int(data[MessagePositionLen])
	seq := data[MessagePositionSeq]
	if msgLen < MessageLengthMin || msgLen > MessageLengthMax || seq&^MessageSeqMask != MessageDest {
		return f.desync()
	}
	if len(data) < msgLen {
		return Block{}, 0, false
	}
	if data[msgLen-MessageTrailerSync] != MessageValueSync {
		return f.desync()
	}
	crc := uint16(data[msgLen-MessageTrailerCRC])<<8 | uint16(data[msgLen-MessageTrailerCRC+1])
	if crc != CRC16(data[:msgLen-MessageTrailerSize]) {
		return f.desync()
	}
	return Block{Seq: seq, Payload: data[MessageHeaderSize : msgLen-MessageTrailerSize]}, msgLen, true
}

// NeedSync reports whether the framer is discarding input
func (f *Framer) NeedSync() bool { return f.needSync }

// Reset clears any pending resynchronization
func (f *Framer) Reset() { f.needSync = false }

func (f *Framer) desync() (Block, int, bool) {
	f.needSync = true
	return Block{}, 1, false
}

// EncodeBlock writes a complete block with sequence seq whose payload is
// produced by body. It returns false if the block would exceed
// MessageLengthMax; a ScratchOutput is rewound to where the block started.
func EncodeBlock(output OutputBuffer, seq uint8, body func(OutputBuffer)) bool {
	start := output.CurPosition()
	output.Output([]byte{0, seq&MessageSeqMask | MessageDest})
	if body != nil {
		body(output)
	}
	msgLen := len(output.DataSince(start)) + MessageTrailerSize
	if msgLen > MessageLengthMax {
		if s, ok := output.(*ScratchOutput); ok {
			s.pos = start
		}
		return false
	}
	output.Update(start+MessagePositionLen, uint8(msgLen))
	crc := CRC16(output.DataSince(start))
	output.Output(appendCRC(nil, crc))
	return true
}

// BuildBlock returns a standalone encoded block
func BuildBlock(seq uint8, body func(OutputBuffer)) ([]byte, bool) {
	out := NewScratchOutput()
	ok := EncodeBlock(out, seq, body)
	return out.Drain(), ok
}
