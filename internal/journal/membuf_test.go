package journal

import "io"

// memFile is a minimal growable in-memory io.ReadWriteSeeker standing in
// for an *os.File in tests, so Archive can be exercised without touching
// disk.
type memFile struct {
	buf []byte
	pos int64
}

func (m *memFile) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memFile) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	n := copy(m.buf[m.pos:end], p)
	m.pos = end
	return n, nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = m.pos + offset
	case io.SeekEnd:
		target = int64(len(m.buf)) + offset
	}
	if target < 0 {
		return 0, io.ErrUnexpectedEOF
	}
	m.pos = target
	return m.pos, nil
}

// truncateBytes drops the last n bytes, simulating a torn write at the
// archive tail.
func (m *memFile) truncateBytes(n int) {
	if n > len(m.buf) {
		n = len(m.buf)
	}
	m.buf = m.buf[:len(m.buf)-n]
	if m.pos > int64(len(m.buf)) {
		m.pos = int64(len(m.buf))
	}
}
