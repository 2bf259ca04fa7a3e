package link

import (
	"fmt"

	"tickcore/protocol"
)

// Message is one decoded command or response. Integer parameters are
// keyed by name; a buffer parameter lands in Data.
type Message struct {
	Name   string
	Fields map[string]int64
	Data   []byte
}

// Uint returns an integer field as an unsigned value
func (m Message) Uint(name string) uint32 {
	return uint32(m.Fields[name])
}

// decodeMessage consumes one message from the front of payload
func decodeMessage(dict *Dictionary, payload *[]byte) (Message, error) {
	id, err := protocol.DecodeVLQUint(payload)
	if err != nil {
		return Message{}, err
	}
	mf, ok := dict.Lookup(uint16(id))
	if !ok {
		return Message{}, fmt.Errorf("%w: id %d", ErrUnknownMessage, id)
	}
	msg := Message{Name: mf.Name, Fields: make(map[string]int64, len(mf.Params))}
	for _, p := range mf.Params {
		switch p.Kind {
		case ParamBuffer:
			b, err := protocol.DecodeVLQBytes(payload)
			if err != nil {
				return Message{}, fmt.Errorf("%s.%s: %w", mf.Name, p.Name, err)
			}
			msg.Data = append([]byte(nil), b...)
		case ParamInt:
			v, err := protocol.DecodeVLQInt(payload)
			if err != nil {
				return Message{}, fmt.Errorf("%s.%s: %w", mf.Name, p.Name, err)
			}
			msg.Fields[p.Name] = int64(v)
		default:
			v, err := protocol.DecodeVLQUint(payload)
			if err != nil {
				return Message{}, fmt.Errorf("%s.%s: %w", mf.Name, p.Name, err)
			}
			msg.Fields[p.Name] = int64(v)
		}
	}
	return msg, nil
}

// Decoder turns the byte stream from the firmware into messages
type Decoder struct {
	dict   *Dictionary
	framer protocol.Framer
	buf    []byte
	acks   uint32
}

// NewDecoder creates a decoder using dict (Bootstrap if nil)
func NewDecoder(dict *Dictionary) *Decoder {
	if dict == nil {
		dict = Bootstrap()
	}
	return &Decoder{dict: dict}
}

// SetDictionary switches to a newly retrieved dictionary
func (d *Decoder) SetDictionary(dict *Dictionary) {
	d.dict = dict
}

// Feed appends received bytes and returns every message in the complete
// blocks now available. A message that fails to decode ends its block;
// the error is returned alongside the messages decoded so far.
func (d *Decoder) Feed(p []byte) ([]Message, error) {
	d.buf = append(d.buf, p...)
	var out []Message
	var firstErr error
	for {
		blk, n, ok := d.framer.Next(d.buf)
		if n == 0 {
			break
		}
		if !ok {
			d.buf = d.buf[n:]
			continue
		}
		payload := append([]byte(nil), blk.Payload...)
		d.buf = d.buf[n:]
		if len(payload) == 0 {
			d.acks++
			continue
		}
		for len(payload) > 0 {
			msg, err := decodeMessage(d.dict, &payload)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				break
			}
			out = append(out, msg)
		}
	}
	return out, firstErr
}

// Acks counts empty (acknowledgement) blocks seen
func (d *Decoder) Acks() uint32 { return d.acks }

// Encoder frames commands for the firmware, one command per block
type Encoder struct {
	dict *Dictionary
	seq  uint8
}

// NewEncoder creates an encoder using dict (Bootstrap if nil)
func NewEncoder(dict *Dictionary) *Encoder {
	if dict == nil {
		dict = Bootstrap()
	}
	return &Encoder{dict: dict}
}

// SetDictionary switches to a newly retrieved dictionary
func (e *Encoder) SetDictionary(dict *Dictionary) {
	e.dict = dict
}

// Encode returns a block carrying the named command. Arguments follow the
// command's format order; a buffer parameter is not supported here.
func (e *Encoder) Encode(name string, args ...int64) ([]byte, error) {
	mf, ok := e.dict.Message(name)
	if !ok || mf.Response {
		return nil, fmt.Errorf("%w: command %s", ErrUnknownMessage, name)
	}
	if len(args) != len(mf.Params) {
		return nil, fmt.Errorf("%s: want %d arguments, got %d", name, len(mf.Params), len(args))
	}
	for _, p := range mf.Params {
		if p.Kind == ParamBuffer {
			return nil, fmt.Errorf("%s: buffer parameter %s not supported", name, p.Name)
		}
	}
	blk, ok := protocol.BuildBlock(e.seq, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, uint32(mf.ID))
		for i, p := range mf.Params {
			if p.Kind == ParamInt {
				protocol.EncodeVLQInt(out, int32(args[i]))
			} else {
				protocol.EncodeVLQUint(out, uint32(args[i]))
			}
		}
	})
	if !ok {
		return nil, fmt.Errorf("%s: block too large", name)
	}
	e.seq = (e.seq + 1) & protocol.MessageSeqMask
	return blk, nil
}
