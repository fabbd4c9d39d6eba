package sheets

// reader.go cleans uploaded bytes before they reach a parser.
//
// Spreadsheet exports are messy in predictable ways. The readers here fix
// the common ones while streaming, in constant memory:
//
//   - A UTF-8 byte order mark from Windows tools is dropped
//   - Invalid UTF-8 bytes are replaced with '?'
//   - Input beyond the configured size fails with ErrFileTooLarge
//
// Use newTextReader to apply all of them in the right order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// sanitizeChunk is the read size of the sanitizer.
const sanitizeChunk = 32 * 1024

// sanitizer replaces invalid UTF-8 bytes with '?' as data streams through.
// A multi-byte sequence split across two reads is carried over until the
// rest arrives.
type sanitizer struct {
	r     io.Reader
	buf   []byte
	out   []byte
	tail  [utf8.UTFMax]byte
	ntail int
	err   error
}

func newSanitizer(r io.Reader) *sanitizer {
	return &sanitizer{r: r, buf: make([]byte, sanitizeChunk)}
}

func (s *sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		n := copy(s.buf, s.tail[:s.ntail])
		m, err := s.r.Read(s.buf[n:])
		n += m
		s.err = err

		kept, tail := sanitize(s.buf[:n], err != nil)
		s.ntail = copy(s.tail[:], tail)
		s.out = s.buf[:kept]
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// sanitize rewrites data in place and returns the number of bytes kept.
// Unless final is set, an incomplete sequence at the end is returned as
// tail instead of being replaced.
func sanitize(data []byte, final bool) (int, []byte) {
	w := 0
	for r := 0; r < len(data); {
		c := data[r]
		if c < utf8.RuneSelf {
			data[w] = c
			w++
			r++
			continue
		}
		if !final && !utf8.FullRune(data[r:]) {
			return w, data[r:]
		}
		_, size := utf8.DecodeRune(data[r:])
		if size == 1 {
			// '?' keeps the output no longer than the input.
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w, nil
}

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

// sizeGuard fails once more than max bytes have been read. A max of zero
// disables the check.
type sizeGuard struct {
	r    io.Reader
	max  int64
	read int64
}

func (g *sizeGuard) Read(p []byte) (int, error) {
	n, err := g.r.Read(p)
	g.read += int64(n)
	if g.max > 0 && g.read > g.max {
		return n, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, g.max)
	}
	return n, err
}

// BytesRead returns how many raw bytes have passed through.
func (g *sizeGuard) BytesRead() int64 {
	return g.read
}

// newTextReader applies the size limit to the raw bytes, then strips the
// BOM, then sanitizes what remains.
func newTextReader(r io.Reader, maxBytes int64) (io.Reader, *sizeGuard) {
	guard := &sizeGuard{r: r, max: maxBytes}
	return newSanitizer(skipBOM(guard)), guard
}
