// Package protocol implements the message block framing shared by the
// firmware and the host: VLQ argument encoding, CRC16 trailers and
// sequence-numbered blocks delimited by a sync byte.
package protocol

// Version is reported in the data dictionary
const Version = "tickcore-0.2.0"

// Message block layout
//
//	<len> <seq> <payload ...> <crc hi> <crc lo> <sync>
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F

	// MessageMax bounds a ScratchOutput (several blocks may be queued)
	MessageMax = 512
)
