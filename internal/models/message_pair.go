package models

import "time"

// Direction indicates which way a message was forwarded.
type Direction string

const (
	DirectionToWorkspace Direction = "wa_to_ws"
	DirectionToSource    Direction = "ws_to_wa"
)

// MessagePair correlates a workspace message with the originating source
// message so replies and revokes can be routed back. Pairs are kept in
// memory only, bounded by capacity and TTL.
type MessagePair struct {
	TopicMessageID int64     `json:"topicMessageId"`
	ChatMessageID  string    `json:"chatMessageId"`
	ChatJID        string    `json:"chatJid"`
	Direction      Direction `json:"direction"`
	RecordedAt     time.Time `json:"recordedAt"`
}
