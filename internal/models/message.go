package models

import "time"

// SelfDestructTTL is how long a self-destruct message stays visible in
// history and stash views after it was created.
const SelfDestructTTL = 24 * time.Hour

// Message is one chat message. ID is assigned by the message store on
// first save and is always >= 1 afterwards. The meaning of TargetID
// depends on the delivery flags: a user id for direct messages, a group
// id for group messages, and it is ignored for broadcasts.
type Message struct {
	ID           int          `bson:"_id,omitempty" json:"id"`
	ThreadRootID int          `bson:"thread_root_id,omitempty" json:"thread_root_id,omitempty"`
	SenderID     int          `bson:"sender_id" json:"sender_id"`
	TargetID     int          `bson:"target_id" json:"target_id"`
	Body         string       `bson:"body" json:"body"`
	Subject      string       `bson:"subject,omitempty" json:"subject,omitempty"`
	Status       string       `bson:"status,omitempty" json:"status,omitempty"`
	Broadcast    bool         `bson:"is_broadcast" json:"is_broadcast"`
	Group        bool         `bson:"is_group" json:"is_group"`
	Private      bool         `bson:"is_private" json:"is_private"`
	Forwarded    bool         `bson:"is_forwarded" json:"is_forwarded"`
	SelfDestruct bool         `bson:"is_self_destruct" json:"is_self_destruct"`
	Encrypted    bool         `bson:"is_encrypted" json:"is_encrypted"`
	CreatedAt    time.Time    `bson:"created_at" json:"created_at"`
	Attachments  []Attachment `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Hashtags     []Hashtag    `bson:"hashtags,omitempty" json:"hashtags,omitempty"`
}

// Expired reports whether a self-destruct message has outlived its
// retention window at time now. Regular messages never expire.
func (m *Message) Expired(now time.Time) bool {
	return m.SelfDestruct && m.CreatedAt.Before(now.Add(-SelfDestructTTL))
}

// Attachment carries either an inline payload (Data, before upload) or a
// reference to blob storage (WebURL, after upload).
type Attachment struct {
	FileName    string `bson:"file_name,omitempty" json:"file_name,omitempty"`
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"`
	WebURL      string `bson:"web_url,omitempty" json:"web_url,omitempty"`
	Data        []byte `bson:"-" json:"data,omitempty"`
}
