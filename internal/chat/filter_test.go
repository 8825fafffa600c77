package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaederex/prattle/internal/store/memory"
)

func TestMatchesIsCaseInsensitiveSubstring(t *testing.T) {
	keywords := []string{"Spam", "crypto"}

	assert.True(t, Matches(keywords, "free SPAM inside"))
	assert.True(t, Matches(keywords, "CryptoCurrency news"))
	assert.True(t, Matches(keywords, "unspammed")) // substring, not word match
	assert.False(t, Matches(keywords, "perfectly fine message"))
	assert.False(t, Matches(nil, "anything"))
}

func TestMatchesIgnoresEmptyKeywords(t *testing.T) {
	assert.False(t, Matches([]string{""}, "anything"))
}

func TestRecipientFilterBlocked(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.AddFilter(context.Background(), 7, "buy now"))

	f := NewRecipientFilter(st)
	blocked, err := f.Blocked(context.Background(), 7, "limited offer, BUY NOW!")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = f.Blocked(context.Background(), 7, "hello")
	require.NoError(t, err)
	assert.False(t, blocked)

	// users without filters block nothing
	blocked, err = f.Blocked(context.Background(), 99, "limited offer, BUY NOW!")
	require.NoError(t, err)
	assert.False(t, blocked)
}
