package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaederex/prattle/internal/store/memory"
)

func TestExtractDeduplicatesWithinBody(t *testing.T) {
	st := memory.New()
	h := NewHashtagExtractor(st)

	tags, err := h.Extract(context.Background(), "Hello #launch2 #launch2", 1)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "launch2", tags[0].Tag)
	assert.Equal(t, 0, tags[0].SearchHits)

	msgs, err := st.MessagesForTag(context.Background(), "launch2")
	require.NoError(t, err)
	assert.Len(t, msgs, 0) // message 1 was never saved; link list still has one entry

	top, err := st.TopTags(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 0, top[0].SearchHits, "creation must not count as a search hit")
}

func TestExtractReusesExistingTag(t *testing.T) {
	st := memory.New()
	h := NewHashtagExtractor(st)

	first, err := h.Extract(context.Background(), "#go", 1)
	require.NoError(t, err)
	second, err := h.Extract(context.Background(), "say #go again", 2)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestExtractIsCaseSensitive(t *testing.T) {
	st := memory.New()
	h := NewHashtagExtractor(st)

	tags, err := h.Extract(context.Background(), "#Launch and #launch", 1)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.NotEqual(t, tags[0].ID, tags[1].ID)
}

func TestExtractNoTags(t *testing.T) {
	st := memory.New()
	h := NewHashtagExtractor(st)

	tags, err := h.Extract(context.Background(), "no tags here, just #", 1)
	require.NoError(t, err)
	assert.Empty(t, tags)
}
