package models

import "time"

// ChatKind classifies a source-side conversation.
type ChatKind string

const (
	ChatKindDirect  ChatKind = "direct"
	ChatKindGroup   ChatKind = "group"
	ChatKindStatus  ChatKind = "status"
	ChatKindCallLog ChatKind = "call-log"
)

// Reserved pseudo-conversation identifiers on the source side.
const (
	StatusBroadcastJID = "status@broadcast"
	CallLogJID         = "calls@log"
)

// Reserved topic names for the pseudo-conversations.
const (
	StatusTopicName  = "Status Updates"
	CallLogTopicName = "Call Logs"
)

// ConversationMapping links one source conversation to exactly one topic in
// the workspace channel. At most one mapping exists per chat JID.
type ConversationMapping struct {
	ID             int64     `json:"id"`
	ChatJID        string    `json:"chatJid"`
	TopicID        int64     `json:"topicId"`
	Kind           ChatKind  `json:"kind"`
	DisplayName    string    `json:"displayName"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}
