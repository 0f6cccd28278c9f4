package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestNew_RejectsBadConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidChunking)
		})
	}
}

func TestSplit_ShortTextYieldsOneChunk(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)

	chunks := c.Split("doc-1", "short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 10, chunks[0].End)
	assert.Equal(t, "doc-1:0", chunks[0].ID)
}

func TestSplit_EmptyTextYieldsNothing(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)
	assert.Empty(t, c.Split("doc-1", ""))
}

func TestSplit_WindowsOverlap(t *testing.T) {
	c, err := New(10, 4)
	require.NoError(t, err)

	text := "abcdefghijklmnopqrstuvwxyz"
	chunks := c.Split("doc-1", text)

	require.Len(t, chunks, 4)
	assert.Equal(t, "abcdefghij", chunks[0].Content)
	assert.Equal(t, "ghijklmnop", chunks[1].Content)
	assert.Equal(t, "mnopqrstuv", chunks[2].Content)
	assert.Equal(t, "stuvwxyz", chunks[3].Content)

	// Each window starts size-overlap runes after the previous one.
	for i := 1; i < len(chunks); i++ {
		assert.Equal(t, chunks[i-1].Start+6, chunks[i].Start)
	}
}

func TestSplit_NoContentLoss(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)
	chunks := c.Split("doc-1", text)
	require.NotEmpty(t, chunks)

	// Reassemble by taking the non-overlapping suffix of each chunk.
	runes := []rune(text)
	var rebuilt strings.Builder
	prevEnd := 0
	for _, ch := range chunks {
		assert.Equal(t, string(runes[ch.Start:ch.End]), ch.Content)
		require.LessOrEqual(t, ch.Start, prevEnd, "windows must not leave gaps")
		rebuilt.WriteString(string(runes[prevEnd:ch.End]))
		prevEnd = ch.End
	}
	assert.Equal(t, text, rebuilt.String())
	assert.Equal(t, len(runes), chunks[len(chunks)-1].End)
}

func TestSplit_NeverSplitsMultibyteRunes(t *testing.T) {
	c, err := New(5, 2)
	require.NoError(t, err)

	text := "héllo wörld — grüße aus Zürich ééé"
	chunks := c.Split("doc-1", text)
	require.NotEmpty(t, chunks)

	for _, ch := range chunks {
		assert.True(t, strings.ToValidUTF8(ch.Content, "") == ch.Content,
			"chunk %d is not valid UTF-8: %q", ch.Ordinal, ch.Content)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	c, err := New(10, 3)
	require.NoError(t, err)

	text := "determinism is a property worth testing twice"
	first := c.Split("doc-1", text)
	second := c.Split("doc-1", text)
	assert.Equal(t, first, second)
}

func TestSplit_TrailingRemainderKept(t *testing.T) {
	c, err := New(10, 0)
	require.NoError(t, err)

	// 23 runes: two full windows plus a 3-rune tail.
	text := "aaaaaaaaaabbbbbbbbbbccc"
	chunks := c.Split("doc-1", text)
	require.Len(t, chunks, 3)
	assert.Equal(t, "ccc", chunks[2].Content)
}
