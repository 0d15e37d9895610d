// Package utf8x reassembles UTF-8 text from a byte stream whose read
// boundaries may fall in the middle of a multi-byte character.
package utf8x

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxPending bounds the undecoded tail kept between reads.
const DefaultMaxPending = 4096

const replacement = "�"

// Output is what a single Feed produced. Raw, when set, precedes Text in
// the stream.
type Output struct {
	// Text is decoded text for the validated append path.
	Text string
	// Raw is the valid prefix of a chunk that could not be fully decoded.
	Raw []byte
}

// Empty reports whether nothing was emitted.
func (o Output) Empty() bool { return o.Text == "" && len(o.Raw) == 0 }

// Reassembler carries the undecodable suffix of one read over to the next.
// It is not safe for concurrent use; the drain loop owns it.
type Reassembler struct {
	pending    []byte
	maxPending int
}

// New returns a Reassembler that keeps at most maxPending undecoded bytes
// before falling back to replacement characters. maxPending <= 0 selects
// DefaultMaxPending.
func New(maxPending int) *Reassembler {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Reassembler{maxPending: maxPending}
}

// Feed appends p to the pending tail and decodes it.
//
// If the whole buffer is valid it is returned as Text and the tail is
// cleared. Otherwise the longest valid prefix is returned as Raw and the
// rest is kept. Once the kept rest grows past the bound, everything except
// an incomplete trailing character is emitted as Text with invalid bytes
// replaced by U+FFFD.
func (r *Reassembler) Feed(p []byte) Output {
	r.pending = append(r.pending, p...)
	if utf8.Valid(r.pending) {
		out := Output{Text: string(r.pending)}
		r.pending = r.pending[:0]
		return out
	}

	var out Output
	k := validPrefix(r.pending)
	if k > 0 {
		out.Raw = append([]byte(nil), r.pending[:k]...)
	}
	rest := r.pending[k:]
	if len(rest) > r.maxPending {
		keep := incompleteTail(rest)
		out.Text = strings.ToValidUTF8(string(rest[:len(rest)-keep]), replacement)
		rest = rest[len(rest)-keep:]
	}
	r.pending = append(r.pending[:0], rest...)
	return out
}

// Pending returns the number of bytes carried over to the next Feed.
func (r *Reassembler) Pending() int { return len(r.pending) }

// validPrefix returns the length of the longest prefix of b that decodes
// without error.
func validPrefix(b []byte) int {
	i := 0
	for i < len(b) {
		if b[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return i
}

// incompleteTail returns how many trailing bytes of b form the start of a
// character that more input could still complete.
func incompleteTail(b []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		start := len(b) - i
		if utf8.RuneStart(b[start]) {
			if utf8.FullRune(b[start:]) {
				return 0
			}
			return i
		}
	}
	return 0
}
