package models

import "time"

// MediaKind classifies the payload carried by a message.
type MediaKind string

const (
	MediaKindImage     MediaKind = "image"
	MediaKindSticker   MediaKind = "sticker"
	MediaKindVideo     MediaKind = "video"
	MediaKindVideoNote MediaKind = "video-note"
	MediaKindAudio     MediaKind = "audio"
	MediaKindDocument  MediaKind = "document"
)

// MediaRef points at downloadable media on the originating network together
// with the metadata the pipeline needs for transcoding decisions.
type MediaRef struct {
	URL         string    `json:"url"`
	FileID      string    `json:"fileId,omitempty"`
	Kind        MediaKind `json:"kind"`
	MimeType    string    `json:"mimeType"`
	FileName    string    `json:"fileName,omitempty"`
	SizeBytes   int64     `json:"sizeBytes"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	DurationSec int       `json:"durationSec,omitempty"`
	IsVoice     bool      `json:"isVoice,omitempty"`
	IsAnimated  bool      `json:"isAnimated,omitempty"`
}

// Location is a shared geographic point.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
}

// ContactCard is a shared contact, exchanged as vCard text at the boundary.
type ContactCard struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	VCard       string `json:"vcard,omitempty"`
}

// SourceMessage is an inbound message event from the source network.
type SourceMessage struct {
	MessageID string    `json:"messageId"`
	ChatJID   string    `json:"chatJid"`
	SenderJID string    `json:"senderJid"`
	PushName  string    `json:"pushName"`
	IsGroup   bool      `json:"isGroup"`
	Timestamp time.Time `json:"timestamp"`

	Body     string       `json:"body,omitempty"`
	Media    *MediaRef    `json:"media,omitempty"`
	Location *Location    `json:"location,omitempty"`
	Contact  *ContactCard `json:"contact,omitempty"`

	// QuotedID references another source message when this one is a reply.
	QuotedID string `json:"quotedId,omitempty"`
	// Revoke marks a deletion event for QuotedID / RevokeTargetID.
	RevokeTargetID string `json:"revokeTargetId,omitempty"`
}

// CallEvent is an inbound call signal (offer, ring, missed).
type CallEvent struct {
	CallID    string    `json:"callId"`
	FromJID   string    `json:"fromJid"`
	Status    string    `json:"status"`
	IsVideo   bool      `json:"isVideo"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusEvent is a status-broadcast post from a contact.
type StatusEvent struct {
	StatusID  string    `json:"statusId"`
	AuthorJID string    `json:"authorJid"`
	PushName  string    `json:"pushName"`
	Body      string    `json:"body,omitempty"`
	Media     *MediaRef `json:"media,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ContactChange notifies that a contact record changed on the source side.
type ContactChange struct {
	JID       string    `json:"jid"`
	NewName   string    `json:"newName"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SourceEvent wraps exactly one of the source network event payloads so a
// single queue can carry them in arrival order.
type SourceEvent struct {
	Message       *SourceMessage `json:"message,omitempty"`
	Call          *CallEvent     `json:"call,omitempty"`
	Status        *StatusEvent   `json:"status,omitempty"`
	ContactChange *ContactChange `json:"contactChange,omitempty"`
}

// WorkspaceMessage is an inbound message from the workspace side: a reply
// inside a topic, possibly an administrative command.
type WorkspaceMessage struct {
	MessageID    int64     `json:"messageId"`
	TopicID      int64     `json:"topicId"`
	SenderID     int64     `json:"senderId"`
	SenderName   string    `json:"senderName"`
	Text         string    `json:"text,omitempty"`
	FileID       string    `json:"fileId,omitempty"`
	FileName     string    `json:"fileName,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	IsVoice      bool      `json:"isVoice,omitempty"`
	ContactName  string    `json:"contactName,omitempty"`
	ContactPhone string    `json:"contactPhone,omitempty"`
	ReplyToID    int64     `json:"replyToId,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}
