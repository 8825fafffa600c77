package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/zaederex/prattle/internal/models"
	"github.com/zaederex/prattle/internal/store"
)

// RoleFilter narrows a group expansion to members holding all of the
// requested roles. The zero value keeps everyone.
type RoleFilter struct {
	Member    bool
	Moderator bool
	Follower  bool
}

func (rf RoleFilter) allows(m models.Membership) bool {
	if rf.Member && !m.Member {
		return false
	}
	if rf.Moderator && !m.Moderator {
		return false
	}
	if rf.Follower && !m.Follower {
		return false
	}
	return true
}

// GroupResolver expands a group to its transitive member set across
// nested subgroups. Expansion tracks visited group ids so a cyclic
// subgroup graph terminates instead of recursing forever; a revisit is
// simply skipped.
type GroupResolver struct {
	directory store.Directory
}

func NewGroupResolver(d store.Directory) *GroupResolver {
	return &GroupResolver{directory: d}
}

// MembersOf returns the deduplicated users of groupID and every
// transitively reachable subgroup, depth-first, filtered by roles.
func (g *GroupResolver) MembersOf(ctx context.Context, groupID int, roles RoleFilter) ([]models.User, error) {
	visited := make(map[int]struct{})
	byID := make(map[int]struct{})
	var users []models.User
	if err := g.expand(ctx, groupID, roles, visited, byID, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (g *GroupResolver) expand(ctx context.Context, groupID int, roles RoleFilter,
	visited, byID map[int]struct{}, users *[]models.User) error {

	if _, again := visited[groupID]; again {
		return nil
	}
	visited[groupID] = struct{}{}

	group, err := g.directory.FindGroupByID(ctx, groupID)
	if err != nil {
		return fmt.Errorf("resolve group %d: %w", groupID, err)
	}
	rows, err := g.directory.GroupMemberships(ctx, groupID)
	if err != nil {
		return fmt.Errorf("roster of group %d: %w", groupID, err)
	}
	for _, row := range rows {
		if !roles.allows(row) {
			continue
		}
		if _, dup := byID[row.UserID]; dup {
			continue
		}
		user, err := g.directory.FindUserByID(ctx, row.UserID)
		if err != nil {
			// a roster row pointing at a deleted account is skipped,
			// not fatal for the rest of the group
			if errors.Is(err, store.ErrUserNotFound) {
				continue
			}
			return err
		}
		byID[row.UserID] = struct{}{}
		*users = append(*users, *user)
	}
	for _, subID := range group.SubgroupIDs {
		if err := g.expand(ctx, subID, roles, visited, byID, users); err != nil {
			// an unresolvable subgroup does not poison the parent
			if errors.Is(err, store.ErrGroupNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}
