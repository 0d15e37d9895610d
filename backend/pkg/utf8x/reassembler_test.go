package utf8x

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "héllo wörld — 你好，世界 🎉 ok\r\n\x1b[1;31mHELLO\x1b[0m"

// collect feeds the chunks in order and returns everything emitted.
func collect(r *Reassembler, chunks [][]byte) string {
	var sb strings.Builder
	for _, c := range chunks {
		out := r.Feed(c)
		sb.Write(out.Raw)
		sb.WriteString(out.Text)
	}
	return sb.String()
}

func TestFeed_ValidChunkPassesThrough(t *testing.T) {
	r := New(0)
	out := r.Feed([]byte("plain ascii"))
	assert.Equal(t, "plain ascii", out.Text)
	assert.Empty(t, out.Raw)
	assert.Zero(t, r.Pending())
}

func TestFeed_TwoReadSplitAtEveryOffset(t *testing.T) {
	data := []byte(sample)
	for i := 0; i <= len(data); i++ {
		r := New(0)
		got := collect(r, [][]byte{data[:i], data[i:]})
		require.Equal(t, sample, got, "split at %d", i)
		require.Zero(t, r.Pending(), "split at %d", i)
		require.True(t, utf8.ValidString(got))
	}
}

func TestFeed_ArbitraryChunking(t *testing.T) {
	data := []byte(strings.Repeat(sample, 8))
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		var chunks [][]byte
		for rest := data; len(rest) > 0; {
			n := 1 + rng.Intn(7)
			if n > len(rest) {
				n = len(rest)
			}
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}
		r := New(0)
		require.Equal(t, string(data), collect(r, chunks), "round %d", round)
		require.Zero(t, r.Pending())
	}
}

func TestFeed_SplitCharacterKeptAsPending(t *testing.T) {
	r := New(0)
	euro := []byte("€") // e2 82 ac

	out := r.Feed(append([]byte("a"), euro[:2]...))
	assert.Equal(t, []byte("a"), out.Raw)
	assert.Empty(t, out.Text)
	assert.Equal(t, 2, r.Pending())

	out = r.Feed(euro[2:])
	assert.Equal(t, "€", out.Text)
	assert.Empty(t, out.Raw)
	assert.Zero(t, r.Pending())
}

func TestFeed_BellIsDecodedNotDropped(t *testing.T) {
	// suppression belongs to the drain loop; the reassembler keeps every byte
	r := New(0)
	assert.Equal(t, "\x07", r.Feed([]byte{0x07}).Text)
}

func TestFeed_BoundedOnPersistentCorruption(t *testing.T) {
	r := New(8)

	out := r.Feed([]byte{'o', 'k', 0xff, 'a', 'b'})
	assert.Equal(t, []byte("ok"), out.Raw)
	assert.Empty(t, out.Text)
	assert.Equal(t, 3, r.Pending())

	out = r.Feed([]byte("cdefgh\xe4\xbd"))
	assert.Empty(t, out.Raw)
	assert.Equal(t, "�abcdefgh", out.Text)
	assert.Equal(t, 2, r.Pending(), "incomplete trailing character survives the fallback")

	out = r.Feed([]byte{0xa0})
	assert.Equal(t, "你", out.Text)
	assert.Zero(t, r.Pending())
}

func TestIncompleteTail(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int
	}{
		{"empty", nil, 0},
		{"ascii", []byte("abc"), 0},
		{"two of three", []byte{'a', 0xe2, 0x82}, 2},
		{"one of four", []byte{0xf0}, 1},
		{"three of four", []byte{0xf0, 0x9f, 0x8e}, 3},
		{"invalid start", []byte{'a', 0xff}, 0},
		{"dangling continuation", []byte{'a', 0x82}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, incompleteTail(tt.in))
		})
	}
}
