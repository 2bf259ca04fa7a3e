package protocol

// InputBuffer is a view over received bytes that the transport consumes
type InputBuffer interface {
	Data() []byte
	Available() int
	Pop(n int)
}

// OutputBuffer accumulates outgoing bytes. Blocks are built in place: the
// length byte is patched with Update once the payload size is known.
type OutputBuffer interface {
	Output(data []byte)
	CurPosition() int
	Update(pos int, val byte)
	DataSince(pos int) []byte
}

// SliceInputBuffer adapts a plain byte slice to InputBuffer
type SliceInputBuffer struct {
	data []byte
}

func NewSliceInputBuffer(data []byte) *SliceInputBuffer {
	return &SliceInputBuffer{data: data}
}

func (s *SliceInputBuffer) Data() []byte   { return s.data }
func (s *SliceInputBuffer) Available() int { return len(s.data) }

func (s *SliceInputBuffer) Pop(n int) {
	s.data = s.data[min(n, len(s.data)):]
}

// ScratchOutput is a fixed-size OutputBuffer; writes past MessageMax are dropped
type ScratchOutput struct {
	buf [MessageMax]byte
	pos int
}

func NewScratchOutput() *ScratchOutput {
	return &ScratchOutput{}
}

func (s *ScratchOutput) Output(data []byte) {
	s.pos += copy(s.buf[s.pos:], data)
}

func (s *ScratchOutput) CurPosition() int { return s.pos }

func (s *ScratchOutput) Update(pos int, val byte) {
	if pos >= 0 && pos < s.pos {
		s.buf[pos] = val
	}
}

func (s *ScratchOutput) DataSince(pos int) []byte {
	if pos < 0 || pos > s.pos {
		return nil
	}
	return s.buf[pos:s.pos]
}

// Result returns everything written since the last Reset
func (s *ScratchOutput) Result() []byte { return s.buf[:s.pos] }

// Reset discards buffered output
func (s *ScratchOutput) Reset() { s.pos = 0 }

// Drain returns a copy of the buffered output and resets the buffer
func (s *ScratchOutput) Drain() []byte {
	out := make([]byte, s.pos)
	copy(out, s.buf[:s.pos])
	s.pos = 0
	return out
}

// FifoBuffer is a byte ring used between a receive interrupt and the main loop
type FifoBuffer struct {
	buf         []byte
	read, write int
}

// NewFifoBuffer creates a ring holding up to capacity-1 bytes
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write copies as much of data as fits and returns the count written
func (f *FifoBuffer) Write(data []byte) int {
	n := min(len(data), f.Free())
	for _, b := range data[:n] {
		f.buf[f.write] = b
		f.write = (f.write + 1) % len(f.buf)
	}
	return n
}

// Read moves up to len(data) bytes out of the ring
func (f *FifoBuffer) Read(data []byte) int {
	n := min(len(data), f.Available())
	for i := 0; i < n; i++ {
		data[i] = f.buf[f.read]
		f.read = (f.read + 1) % len(f.buf)
	}
	return n
}

func (f *FifoBuffer) Available() int {
	return (f.write - f.read + len(f.buf)) % len(f.buf)
}

func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.Available() - 1
}

// Data returns the readable bytes contiguously, copying when the ring wraps
func (f *FifoBuffer) Data() []byte {
	if f.read <= f.write {
		return f.buf[f.read:f.write]
	}
	out := make([]byte, 0, f.Available())
	out = append(out, f.buf[f.read:]...)
	return append(out, f.buf[:f.write]...)
}

func (f *FifoBuffer) Pop(n int) {
	n = min(n, f.Available())
	f.read = (f.read + n) % len(f.buf)
}

func (f *FifoBuffer) IsEmpty() bool { return f.read == f.write }

func (f *FifoBuffer) Reset() { f.read, f.write = 0, 0 }
