package models

import "time"

// User is the directory view of an account. Account CRUD lives outside
// this service; the chat core only ever reads users.
type User struct {
	ID         int       `bson:"_id" json:"id"`
	Username   string    `bson:"username" json:"username"`
	Email      string    `bson:"email,omitempty" json:"email,omitempty"`
	LastLogout time.Time `bson:"last_logout,omitempty" json:"last_logout,omitempty"`
}

// Group is a named roster with optional nested subgroups. Subgroup links
// form a graph that is expected to be a DAG but is not guaranteed to be
// one, so traversals must guard against revisits.
type Group struct {
	ID          int    `bson:"_id" json:"id"`
	Name        string `bson:"name" json:"name"`
	Email       string `bson:"email,omitempty" json:"email,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	SubgroupIDs []int  `bson:"subgroup_ids,omitempty" json:"subgroup_ids,omitempty"`
}

// Membership links a user to a group. The three role booleans are
// independent; a user can hold any combination.
type Membership struct {
	GroupID   int  `bson:"group_id" json:"group_id"`
	UserID    int  `bson:"user_id" json:"user_id"`
	Member    bool `bson:"is_member" json:"is_member"`
	Moderator bool `bson:"is_moderator" json:"is_moderator"`
	Follower  bool `bson:"is_follower" json:"is_follower"`
}
