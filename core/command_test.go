package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickcore/protocol"
)

func TestCommandRegistryIDs(t *testing.T) {
	reg := NewCommandRegistry()
	noop := func(*[]byte) error { return nil }

	assert.Equal(t, uint16(0), reg.RegisterResponse("first_response", "value=%u"))
	assert.Equal(t, uint16(1), reg.Register("first_command", "arg=%u", noop))
	assert.Equal(t, uint16(2), reg.RegisterFlags("second_command", "", HF_IN_SHUTDOWN, noop))
	assert.Equal(t, uint16(1), reg.Register("first_command", "other=%u", noop), "re-registering keeps the id")
	assert.Equal(t, 3, reg.Count())

	cmd, ok := reg.GetCommandByName("second_command")
	require.True(t, ok)
	assert.Equal(t, uint8(HF_IN_SHUTDOWN), cmd.Flags)

	_, ok = reg.GetCommand(99)
	assert.False(t, ok)
	_, ok = reg.GetCommandByName("missing")
	assert.False(t, ok)
}

func TestGetCommandsAndResponses(t *testing.T) {
	reg := NewCommandRegistry()
	reg.RegisterResponse("pong", "")
	reg.Register("ping", "seq=%u", func(*[]byte) error { return nil })

	commands, responses := reg.GetCommandsAndResponses()
	assert.Equal(t, map[string]int{"ping seq=%u": 1}, commands)
	assert.Equal(t, map[string]int{"pong": 0}, responses)
}

func encodeArgs(args ...uint32) []byte {
	out := protocol.NewScratchOutput()
	for _, a := range args {
		protocol.EncodeVLQUint(out, a)
	}
	return out.Drain()
}

func TestDispatchDecodesArguments(t *testing.T) {
	reg := NewCommandRegistry()
	var got []uint32
	id := reg.Register("set", "oid=%c value=%u", func(data *[]byte) error {
		var oid, value uint32
		if err := decodeArgs(data, &oid, &value); err != nil {
			return err
		}
		got = []uint32{oid, value}
		return nil
	})

	data := encodeArgs(3, 123456)
	require.NoError(t, reg.Dispatch(nil, id, &data))
	assert.Equal(t, []uint32{3, 123456}, got)
	assert.Empty(t, data)
}

func TestDispatchErrors(t *testing.T) {
	reg := NewCommandRegistry()
	resp := reg.RegisterResponse("status", "")

	var data []byte
	assert.ErrorIs(t, reg.Dispatch(nil, 42, &data), ErrUnknownCommand)
	assert.ErrorIs(t, reg.Dispatch(nil, resp, &data), ErrNotACommand)
}

func TestDispatchWhileShutdown(t *testing.T) {
	s, _, rec := newTestScheduler(t, 0)
	s.Start()
	s.Guard(func() { s.Shutdown(reasonTestFirst) })

	reg := NewCommandRegistry()
	ran := map[string]bool{}
	blocked := reg.Register("move", "oid=%c data=%*s", func(*[]byte) error {
		ran["move"] = true
		return nil
	})
	allowed := reg.RegisterFlags("status", "", HF_IN_SHUTDOWN, func(*[]byte) error {
		ran["status"] = true
		return nil
	})

	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, 7)
	protocol.EncodeVLQBytes(out, []byte{1, 2, 3})
	protocol.EncodeVLQUint(out, uint32(allowed))
	data := out.Drain()

	require.NoError(t, reg.Dispatch(s, blocked, &data))
	assert.False(t, ran["move"])
	reports := rec.named("is_shutdown")
	require.Len(t, reports, 1)
	assert.Equal(t, []uint32{uint32(reasonTestFirst)}, reports[0].Args)

	// Arguments were skipped, so the next command id is at the front
	id, err := protocol.DecodeVLQUint(&data)
	require.NoError(t, err)
	require.NoError(t, reg.Dispatch(s, uint16(id), &data))
	assert.True(t, ran["status"])
}

func TestSkipArgs(t *testing.T) {
	out := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(out, 1)
	protocol.EncodeVLQInt(out, -5)
	protocol.EncodeVLQBytes(out, []byte("abc"))
	protocol.EncodeVLQUint(out, 9)
	data := out.Drain()

	require.NoError(t, SkipArgs("oid=%c pos=%i msg=%.*s", &data))
	assert.Equal(t, encodeArgs(9), data)

	short := encodeArgs(1)
	assert.Error(t, SkipArgs("a=%u b=%u", &short))
}

func TestArgKinds(t *testing.T) {
	assert.True(t, argIsBuffer("data=%*s"))
	assert.True(t, argIsBuffer("data=%.*s"))
	assert.False(t, argIsBuffer("oid=%c"))
	assert.True(t, argIsSigned("pos=%i"))
	assert.True(t, argIsSigned("delta=%hi"))
	assert.False(t, argIsSigned("clock=%u"))
}
