package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
	"github.com/zaederex/prattle/internal/store/memory"
)

func seedGroups(st *memory.Store) {
	for i, name := range []string{"ann", "ben", "cleo", "dan"} {
		st.AddUser(models.User{ID: i + 1, Username: name})
	}
	// engineering(1) -> backend(2) -> oncall(3); oncall loops back to
	// engineering to exercise the cycle guard
	st.AddGroup(models.Group{ID: 1, Name: "engineering", SubgroupIDs: []int{2}})
	st.AddGroup(models.Group{ID: 2, Name: "backend", SubgroupIDs: []int{3}})
	st.AddGroup(models.Group{ID: 3, Name: "oncall", SubgroupIDs: []int{1}})

	st.AddMembership(models.Membership{GroupID: 1, UserID: 1, Member: true, Moderator: true})
	st.AddMembership(models.Membership{GroupID: 2, UserID: 2, Member: true})
	st.AddMembership(models.Membership{GroupID: 3, UserID: 3, Member: true, Follower: true})
	// ann appears again deeper in the graph; expansion must dedup her
	st.AddMembership(models.Membership{GroupID: 3, UserID: 1, Member: true})
}

func TestMembersOfExpandsSubgroups(t *testing.T) {
	st := memory.New()
	seedGroups(st)
	g := NewGroupResolver(st)

	members, err := g.MembersOf(context.Background(), 1, RoleFilter{})
	require.NoError(t, err)

	names := make([]string, 0, len(members))
	for _, u := range members {
		names = append(names, u.Username)
	}
	assert.ElementsMatch(t, []string{"ann", "ben", "cleo"}, names)
}

func TestMembersOfTerminatesOnCycle(t *testing.T) {
	st := memory.New()
	seedGroups(st)
	g := NewGroupResolver(st)

	// oncall -> engineering -> backend -> oncall is a full cycle
	members, err := g.MembersOf(context.Background(), 3, RoleFilter{})
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestMembersOfRoleFilter(t *testing.T) {
	st := memory.New()
	seedGroups(st)
	g := NewGroupResolver(st)

	mods, err := g.MembersOf(context.Background(), 1, RoleFilter{Moderator: true})
	require.NoError(t, err)
	require.Len(t, mods, 1)
	assert.Equal(t, "ann", mods[0].Username)

	followers, err := g.MembersOf(context.Background(), 1, RoleFilter{Follower: true})
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "cleo", followers[0].Username)
}

func TestMembersOfUnknownGroup(t *testing.T) {
	st := memory.New()
	g := NewGroupResolver(st)

	_, err := g.MembersOf(context.Background(), 42, RoleFilter{})
	assert.ErrorIs(t, err, store.ErrGroupNotFound)
}

func TestMembersOfSkipsMissingSubgroup(t *testing.T) {
	st := memory.New()
	st.AddUser(models.User{ID: 1, Username: "ann"})
	st.AddGroup(models.Group{ID: 1, Name: "root", SubgroupIDs: []int{99}})
	st.AddMembership(models.Membership{GroupID: 1, UserID: 1, Member: true})

	g := NewGroupResolver(st)
	members, err := g.MembersOf(context.Background(), 1, RoleFilter{})
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
