package link

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcore/core"
	"tickcore/protocol"
)

// simBoard is a firmware image on a simulated machine with its output
// captured in memory
type simBoard struct {
	f    *core.Firmware
	m    *core.SimMachine
	wire []byte
}

func newSimBoard() *simBoard {
	m := core.NewSimMachine(0)
	b := &simBoard{m: m}
	b.f = core.NewFirmware(core.Hardware{Timer: m, IRQ: m, GPIO: m, Watchdog: m})
	m.AttachTimerIRQ(b.f.Sched.TimerIRQ)
	b.f.SetTx(func(p []byte) error {
		b.wire = append(b.wire, p...)
		return nil
	})
	b.f.Start()
	return b
}

func (b *simBoard) deliver(blk []byte) {
	b.m.Raise(func() { b.f.Receive(blk) })
	b.f.RunOnce()
}

func (b *simBoard) drain() []byte {
	out := b.wire
	b.wire = nil
	return out
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		format string
		want   *MessageFormat
	}{
		{"get_clock", &MessageFormat{Name: "get_clock"}},
		{"clock clock=%u", &MessageFormat{Name: "clock", Params: []Param{{Name: "clock"}}}},
		{
			"identify_response offset=%u data=%.*s",
			&MessageFormat{Name: "identify_response", Params: []Param{
				{Name: "offset", Kind: ParamUint},
				{Name: "data", Kind: ParamBuffer},
			}},
		},
		{
			"move oid=%c interval=%u add=%hi",
			&MessageFormat{Name: "move", Params: []Param{
				{Name: "oid"},
				{Name: "interval"},
				{Name: "add", Kind: ParamInt},
			}},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.format, func(t *testing.T) {
			got, err := parseFormat(tt.format)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseFormat mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFormatErrors(t *testing.T) {
	for _, format := range []string{"", "   ", "cmd oid", "cmd oid=u"} {
		_, err := parseFormat(format)
		assert.ErrorIs(t, err, ErrBadFormat, "format %q", format)
	}
}

func TestParseDictionaryFromFirmware(t *testing.T) {
	b := newSimBoard()

	for name, raw := range map[string][]byte{
		"compressed": b.f.Dict.Generate(),
		"plain":      b.f.Dict.JSON(),
	} {
		name, raw := name, raw
		t.Run(name, func(t *testing.T) {
			d, err := ParseDictionary(raw)
			require.NoError(t, err)
			assert.Equal(t, protocol.Version, d.Version)
			assert.Equal(t, uint32(core.TimerFreq), d.ClockFreq())

			mf, ok := d.Message("shutdown")
			require.True(t, ok)
			assert.True(t, mf.Response)
			assert.Equal(t, []Param{{Name: "clock"}, {Name: "static_string_id"}}, mf.Params)

			id, ok := d.Message("identify")
			require.True(t, ok)
			assert.Equal(t, uint16(1), id.ID)

			assert.Equal(t, "Command request", d.Reason(uint16(core.ReasonCommandRequest)))
			assert.Equal(t, "static string 9999", d.Reason(9999))
			assert.Contains(t, d.CommandNames(), "emergency_stop")
			assert.NotContains(t, d.CommandNames(), "stats")
		})
	}
}

func TestParseDictionaryErrors(t *testing.T) {
	_, err := ParseDictionary([]byte("{not json"))
	assert.Error(t, err)

	_, err = ParseDictionary([]byte{0x78, 0x9C, 0x00})
	assert.Error(t, err)

	_, err = ParseDictionary([]byte(`{"commands":{"bad oid":2}}`))
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestFetchDictionary(t *testing.T) {
	b := newSimBoard()
	calls := 0
	d, err := FetchDictionary(func(offset uint32, count uint8) (uint32, []byte, error) {
		calls++
		return offset, b.f.Dict.GetChunk(offset, count), nil
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.Version, d.Version)
	assert.Equal(t, len(b.f.Dict.Generate())/IdentifyChunk+1, calls)
}

func TestFetchDictionaryErrors(t *testing.T) {
	errLink := errors.New("link down")
	_, err := FetchDictionary(func(offset uint32, count uint8) (uint32, []byte, error) {
		return 0, nil, errLink
	})
	assert.ErrorIs(t, err, errLink)

	_, err = FetchDictionary(func(offset uint32, count uint8) (uint32, []byte, error) {
		return offset + 1, make([]byte, count), nil
	})
	assert.ErrorContains(t, err, "response for offset 1")

	_, err = FetchDictionary(func(offset uint32, count uint8) (uint32, []byte, error) {
		return offset, make([]byte, count), nil
	})
	assert.ErrorIs(t, err, ErrDictionaryTooLarge)
}

func TestEncoderDecoderAgainstFirmware(t *testing.T) {
	b := newSimBoard()
	dict, err := ParseDictionary(b.f.Dict.Generate())
	require.NoError(t, err)
	b.drain()

	enc := NewEncoder(dict)
	dec := NewDecoder(dict)

	blk, err := enc.Encode("get_uptime")
	require.NoError(t, err)
	b.deliver(blk)

	// Byte at a time exercises reassembly of split blocks
	var msgs []Message
	for _, c := range b.drain() {
		got, err := dec.Feed([]byte{c})
		require.NoError(t, err)
		msgs = append(msgs, got...)
	}
	assert.Equal(t, uint32(1), dec.Acks())

	var events []Event
	for _, msg := range msgs {
		ev := ToEvent(dict, msg)
		if _, stats := ev.(Stats); !stats {
			events = append(events, ev)
		}
	}
	require.Len(t, events, 1)
	up, ok := events[0].(Uptime)
	require.True(t, ok, "got %#v", events[0])
	assert.Equal(t, uint32(0), up.High)
	assert.NotZero(t, up.Clock)
}

func TestDecoderSkipsGarbage(t *testing.T) {
	dec := NewDecoder(nil)
	blk, ok := protocol.BuildBlock(0, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 0)
		protocol.EncodeVLQUint(out, 40)
		protocol.EncodeVLQBytes(out, []byte("abc"))
	})
	require.True(t, ok)

	msgs, err := dec.Feed(append([]byte{0x01, 0x02, 0x7E}, blk...))
	require.NoError(t, err)
	want := []Message{{
		Name:   "identify_response",
		Fields: map[string]int64{"offset": 40},
		Data:   []byte("abc"),
	}}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestDecoderUnknownMessage(t *testing.T) {
	dec := NewDecoder(nil)
	blk, ok := protocol.BuildBlock(0, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, 77)
	})
	require.True(t, ok)
	_, err := dec.Feed(blk)
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestEncodeErrors(t *testing.T) {
	dict, err := ParseDictionary([]byte(`{
		"commands": {"identify offset=%u count=%c": 1, "echo data=%*s": 2},
		"responses": {"identify_response offset=%u data=%.*s": 0}
	}`))
	require.NoError(t, err)
	enc := NewEncoder(dict)

	_, err = enc.Encode("nope")
	assert.ErrorIs(t, err, ErrUnknownMessage)

	_, err = enc.Encode("identify_response", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownMessage, "responses are not sendable")

	_, err = enc.Encode("identify", 0)
	assert.ErrorContains(t, err, "want 2 arguments")

	_, err = enc.Encode("echo", 0)
	assert.ErrorContains(t, err, "buffer parameter")
}

func TestEncodeSequence(t *testing.T) {
	enc := NewEncoder(nil)
	for i := 0; i < 20; i++ {
		blk, err := enc.Encode("identify", 0, IdentifyChunk)
		require.NoError(t, err)
		assert.Equal(t, byte(protocol.MessageDest|i&protocol.MessageSeqMask), blk[1], "block %d", i)
	}
}
