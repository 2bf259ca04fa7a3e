package protocol

import "testing"

func TestVLQEncodeDecodeInt(t *testing.T) {
	testCases := []int32{
		0, 1, -1, 31, -32, 95, 96, 127, -127, 128, -128,
		1000, -1000, 65535, -65535, 1000000, -1000000,
		1 << 26, -(1 << 26) - 1, 0x7FFFFFFF, -0x80000000,
	}

	for _, expected := range testCases {
		output := NewScratchOutput()
		EncodeVLQInt(output, expected)
		encoded := output.Result()

		data := encoded
		decoded, err := DecodeVLQInt(&data)
		if err != nil {
			t.Errorf("Failed to decode VLQ for value %d: %v", expected, err)
			continue
		}
		if decoded != expected {
			t.Errorf("VLQ mismatch: expected %d, got %d (encoded as %v)", expected, decoded, encoded)
		}
		if len(data) != 0 {
			t.Errorf("VLQ decode left %d bytes for value %d", len(data), expected)
		}
	}
}

func TestVLQEncodedLength(t *testing.T) {
	testCases := []struct {
		value  uint32
		length int
	}{
		{0, 1},
		{95, 1},
		{96, 2},
		{12000, 2},
		{0x80000000, 5},
		{0xFFFFFFF0, 1}, // small negative when viewed as int32
	}

	for _, tc := range testCases {
		output := NewScratchOutput()
		EncodeVLQUint(output, tc.value)
		if got := len(output.Result()); got != tc.length {
			t.Errorf("EncodeVLQUint(%#x): expected %d bytes, got %d", tc.value, tc.length, got)
		}
		data := output.Result()
		v, err := DecodeVLQUint(&data)
		if err != nil || v != tc.value {
			t.Errorf("DecodeVLQUint(%#x) = %#x, %v", tc.value, v, err)
		}
	}
}

func TestVLQTruncated(t *testing.T) {
	data := []byte{0x81}
	if _, err := DecodeVLQInt(&data); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
	if len(data) != 1 {
		t.Errorf("Truncated decode must not consume input")
	}

	data = []byte{0x81, 0x81, 0x81, 0x81, 0x81, 0x01}
	if _, err := DecodeVLQInt(&data); err != ErrInvalidVLQ {
		t.Errorf("Expected ErrInvalidVLQ for overlong encoding, got %v", err)
	}
}

func TestVLQStringAndBytes(t *testing.T) {
	output := NewScratchOutput()
	EncodeVLQString(output, "Timer too close")
	EncodeVLQBytes(output, []byte{1, 2, 3})
	EncodeVLQUint(output, 42)

	data := output.Result()
	s, err := DecodeVLQString(&data)
	if err != nil || s != "Timer too close" {
		t.Fatalf("DecodeVLQString = %q, %v", s, err)
	}
	b, err := DecodeVLQBytes(&data)
	if err != nil || len(b) != 3 || b[2] != 3 {
		t.Fatalf("DecodeVLQBytes = %v, %v", b, err)
	}
	v, err := DecodeVLQUint(&data)
	if err != nil || v != 42 {
		t.Fatalf("DecodeVLQUint = %d, %v", v, err)
	}

	short := []byte{5, 'a'}
	if _, err := DecodeVLQBytes(&short); err != ErrBufferTooSmall {
		t.Errorf("Expected ErrBufferTooSmall, got %v", err)
	}
}
