package stream

import (
	"bytes"
	"strings"
)

// LineDecoder turns an arbitrary sequence of byte chunks into complete,
// newline-terminated lines. Chunk boundaries carry no meaning: a line, or a
// multi-byte character inside one, may be split across any number of chunks
// and the decoder reassembles it from its internal buffer. The same byte
// stream yields the same lines no matter how it was chunked.
type LineDecoder struct {
	buf []byte
}

// NewLineDecoder creates an empty decoder.
func NewLineDecoder() *LineDecoder {
	return &LineDecoder{}
}

// Push appends a chunk and returns every line completed by it, oldest first.
// Trailing bytes without a terminator stay buffered until a later Push or
// Flush. Invalid UTF-8 is replaced, never fatal.
func (d *LineDecoder) Push(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	for {
		idx := bytes.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, decodeLine(d.buf[:idx]))
		d.buf = d.buf[idx+1:]
	}
	return lines
}

// Flush returns the trailing partial line, if any, and resets the decoder.
// Call once when the stream ends.
func (d *LineDecoder) Flush() (string, bool) {
	if len(d.buf) == 0 {
		return "", false
	}
	line := decodeLine(d.buf)
	d.buf = nil
	return line, true
}

// decodeLine converts raw line bytes to a string, dropping a trailing CR and
// replacing malformed UTF-8 with U+FFFD. Splitting happens on the newline
// byte, which never occurs inside a multi-byte sequence, so characters split
// across chunks are already whole by the time a line is emitted.
func decodeLine(raw []byte) string {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	return strings.ToValidUTF8(string(raw), "�")
}
