package core

import (
	"bufio"
	"io"
	"unicode/utf8"
)

// NewUploadReader prepares an uploaded file for parsing. A leading
// UTF-8 byte order mark is dropped and invalid UTF-8 bytes are
// replaced with '?', so the XML and CSV decoders see clean input
// without the whole file being buffered first.
func NewUploadReader(r io.Reader) io.Reader {
	return newUTF8Reader(skipBOM(r))
}

// skipBOM discards the UTF-8 byte order mark Windows tools like to
// prepend.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		br.Discard(3)
	}
	return br
}

// utf8Reader sanitizes its source chunk by chunk. A rune split across
// two reads is carried over so valid sequences crossing a chunk
// boundary stay intact.
type utf8Reader struct {
	src     io.Reader
	out     []byte // sanitized bytes not yet served
	pending []byte // possible start of a rune cut off at the chunk end
	err     error
}

func newUTF8Reader(r io.Reader) *utf8Reader {
	return &utf8Reader{src: r}
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	for len(u.out) == 0 {
		if u.err != nil {
			if len(u.pending) == 0 {
				return 0, u.err
			}
			// Source is done; whatever is pending can no longer be
			// completed and gets sanitized as-is.
			u.out = sanitizeChunk(u.pending)
			u.pending = nil
			break
		}
		u.fill()
	}

	n := copy(p, u.out)
	u.out = u.out[n:]
	return n, nil
}

func (u *utf8Reader) fill() {
	chunk := make([]byte, 4096)
	n, err := u.src.Read(chunk)
	u.err = err

	data := append(u.pending, chunk[:n]...)
	u.pending = nil

	if err == nil {
		if tail := incompleteTail(data); tail > 0 {
			u.pending = append([]byte(nil), data[len(data)-tail:]...)
			data = data[:len(data)-tail]
		}
	}
	u.out = sanitizeChunk(data)
}

// sanitizeChunk rewrites data into valid UTF-8, replacing each
// offending byte with '?'. The single-byte replacement keeps the
// output no longer than the input.
func sanitizeChunk(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	out := make([]byte, 0, len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			out = append(out, '?')
		} else {
			out = append(out, data[:size]...)
		}
		data = data[size:]
	}
	return out
}

// incompleteTail returns how many trailing bytes could be the start of
// a rune whose remaining bytes are still unread. At most three bytes
// qualify; a rune with all four bytes present is complete.
func incompleteTail(data []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(data); i++ {
		b := data[len(data)-i]
		if b < 0x80 {
			return 0
		}
		if b >= 0xC0 {
			if runeLen(b) > i {
				return i
			}
			return 0
		}
		// Continuation byte, keep scanning backwards.
	}
	return 0
}

// runeLen is the encoded length implied by a UTF-8 leading byte.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0 // continuation byte
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}
