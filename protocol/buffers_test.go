package protocol

import "testing"

func TestSliceInputBuffer(t *testing.T) {
	buf := NewSliceInputBuffer([]byte{1, 2, 3, 4, 5})

	if buf.Available() != 5 {
		t.Errorf("Expected 5 bytes available, got %d", buf.Available())
	}

	buf.Pop(2)
	if buf.Available() != 3 || buf.Data()[0] != 3 {
		t.Errorf("After popping 2, expected [3 4 5], got %v", buf.Data())
	}

	buf.Pop(10)
	if buf.Available() != 0 {
		t.Errorf("Popping past the end should empty the buffer")
	}
}

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output([]byte{1, 2, 3})
	mark := scratch.CurPosition()
	scratch.Output([]byte{4, 5})

	if got := scratch.DataSince(mark); len(got) != 2 || got[0] != 4 {
		t.Errorf("DataSince(%d) = %v", mark, got)
	}

	scratch.Update(0, 9)
	if scratch.Result()[0] != 9 {
		t.Errorf("Update did not patch byte 0")
	}

	out := scratch.Drain()
	if len(out) != 5 || scratch.CurPosition() != 0 {
		t.Errorf("Drain returned %v, position %d", out, scratch.CurPosition())
	}
}

func TestFifoBufferWrap(t *testing.T) {
	fifo := NewFifoBuffer(8)

	if n := fifo.Write([]byte{1, 2, 3, 4, 5}); n != 5 {
		t.Fatalf("Expected 5 bytes written, got %d", n)
	}
	fifo.Pop(4)
	if n := fifo.Write([]byte{6, 7, 8, 9, 10, 11, 12}); n != 6 {
		t.Fatalf("Expected 6 bytes written (capacity-1 total), got %d", n)
	}
	if fifo.Free() != 0 {
		t.Errorf("Expected full buffer, free=%d", fifo.Free())
	}

	data := fifo.Data()
	want := []byte{5, 6, 7, 8, 9, 10, 11}
	if len(data) != len(want) {
		t.Fatalf("Data() = %v, want %v", data, want)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("Data() = %v, want %v", data, want)
		}
	}

	out := make([]byte, 3)
	if n := fifo.Read(out); n != 3 || out[0] != 5 {
		t.Errorf("Read = %d %v", n, out)
	}
	fifo.Reset()
	if !fifo.IsEmpty() {
		t.Errorf("Reset should empty the buffer")
	}
}
