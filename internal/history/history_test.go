package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store/memory"
)

func newFixture(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	st.AddUser(models.User{ID: 1, Username: "alice"})
	st.AddUser(models.User{ID: 2, Username: "bob"})
	st.AddUser(models.User{ID: 3, Username: "eve"})
	return NewService(st, st, st), st
}

func save(t *testing.T, st *memory.Store, m models.Message) models.Message {
	t.Helper()
	require.NoError(t, st.Save(context.Background(), &m))
	return m
}

func TestConversationOrderedAndTwoWay(t *testing.T) {
	svc, st := newFixture(t)
	now := time.Now().UTC()
	save(t, st, models.Message{ID: 3, SenderID: 2, TargetID: 1, Body: "second", CreatedAt: now})
	save(t, st, models.Message{ID: 1, SenderID: 1, TargetID: 2, Body: "first", CreatedAt: now})
	save(t, st, models.Message{ID: 5, SenderID: 1, TargetID: 3, Body: "unrelated", CreatedAt: now})

	msgs, err := svc.Conversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Body)
	assert.Equal(t, "second", msgs[1].Body)
}

func TestConversationExcludesExpired(t *testing.T) {
	svc, st := newFixture(t)
	now := time.Now().UTC()
	save(t, st, models.Message{ID: 1, SenderID: 1, TargetID: 2, Body: "gone",
		CreatedAt: now.Add(-48 * time.Hour), SelfDestruct: true})
	save(t, st, models.Message{ID: 2, SenderID: 1, TargetID: 2, Body: "here", CreatedAt: now})

	msgs, err := svc.Conversation(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "here", msgs[0].Body)
}

func TestConversationNotFound(t *testing.T) {
	svc, _ := newFixture(t)
	_, err := svc.Conversation(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestUnreadCount(t *testing.T) {
	svc, st := newFixture(t)
	now := time.Now().UTC()
	save(t, st, models.Message{ID: 1, SenderID: 1, TargetID: 2, Body: "a", CreatedAt: now})
	save(t, st, models.Message{ID: 2, SenderID: 1, TargetID: 2, Body: "b", CreatedAt: now, Status: "read"})
	save(t, st, models.Message{ID: 3, SenderID: 2, TargetID: 1, Body: "c", CreatedAt: now})

	n, err := svc.UnreadCount(context.Background(), "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSearchByHashtagVisibility(t *testing.T) {
	svc, st := newFixture(t)
	st.AddGroup(models.Group{ID: 10, Name: "team"})
	st.AddMembership(models.Membership{GroupID: 10, UserID: 1, Member: true})
	now := time.Now().UTC()

	private := save(t, st, models.Message{ID: 1, SenderID: 2, TargetID: 1,
		Body: "#demo for you", CreatedAt: now.Add(-3 * time.Minute)})
	foreign := save(t, st, models.Message{ID: 2, SenderID: 2, TargetID: 3,
		Body: "#demo not for alice", CreatedAt: now.Add(-2 * time.Minute)})
	group := save(t, st, models.Message{ID: 3, SenderID: 2, TargetID: 10, Group: true,
		Body: "#demo for the team", CreatedAt: now.Add(-time.Minute)})
	broadcast := save(t, st, models.Message{ID: 4, SenderID: 2, Broadcast: true,
		Body: "#demo for everyone", CreatedAt: now})

	for _, m := range []models.Message{private, foreign, group, broadcast} {
		_, err := st.GetOrCreate(context.Background(), "demo", m.ID)
		require.NoError(t, err)
	}

	msgs, err := svc.SearchByHashtag(context.Background(), "demo", "alice")
	require.NoError(t, err)

	var ids []int
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []int{4, 3, 1}, ids, "newest first, foreign private message hidden")

	top, err := svc.TopTags(context.Background())
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 1, top[0].SearchHits, "searching bumps the hit counter")
}

func TestThread(t *testing.T) {
	svc, st := newFixture(t)
	now := time.Now().UTC()
	save(t, st, models.Message{ID: 2, ThreadRootID: 1, SenderID: 1, TargetID: 2,
		Body: "reply two", CreatedAt: now})
	save(t, st, models.Message{ID: 3, ThreadRootID: 1, SenderID: 2, TargetID: 1,
		Body: "reply one", CreatedAt: now.Add(-time.Minute)})

	msgs, err := svc.Thread(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "reply one", msgs[0].Body)
}
