package types

import "time"

// PresenceState is a presence signal sent to a chat.
type PresenceState string

const (
	PresenceComposing   PresenceState = "composing"
	PresencePaused      PresenceState = "paused"
	PresenceAvailable   PresenceState = "available"
	PresenceUnavailable PresenceState = "unavailable"
)

// SendMessageResponse is returned by every send endpoint.
type SendMessageResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// Contact is a contact-book record on the source network.
type Contact struct {
	JID         string `json:"jid"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
	PushName    string `json:"pushName"`
	IsGroup     bool   `json:"isGroup"`
	IsMyContact bool   `json:"isMyContact"`
}

// BestName returns the best available display name for the contact.
func (c *Contact) BestName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.PushName != "" {
		return c.PushName
	}
	if c.PhoneNumber != "" {
		return c.PhoneNumber
	}
	return c.JID
}

// GroupMetadata describes a group conversation.
type GroupMetadata struct {
	JID          string    `json:"jid"`
	Subject      string    `json:"subject"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"createdAt"`
}
