package models

import "time"

// NameSource records where a display name came from. An explicit contact
// record always beats the push name embedded in a message, which in turn
// beats the raw JID.
type NameSource string

const (
	NameSourceContact NameSource = "contact"
	NameSourcePush    NameSource = "push"
	NameSourceJID     NameSource = "jid"
)

// Identity is the directory record for a source-side participant or group.
type Identity struct {
	ID           int64      `json:"id"`
	JID          string     `json:"jid"`
	DisplayName  string     `json:"displayName"`
	NameSource   NameSource `json:"nameSource"`
	PhoneNumber  string     `json:"phoneNumber"`
	IsGroup      bool       `json:"isGroup"`
	AvatarURL    string     `json:"avatarUrl"`
	FirstSeenAt  time.Time  `json:"firstSeenAt"`
	LastSeenAt   time.Time  `json:"lastSeenAt"`
	MessageCount int64      `json:"messageCount"`
}

// BestName returns the best available display name for the identity.
func (i *Identity) BestName() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	if i.PhoneNumber != "" {
		return i.PhoneNumber
	}
	return i.JID
}

// outranks reports whether a name from src should overwrite one from cur.
func (s NameSource) Outranks(cur NameSource) bool {
	rank := map[NameSource]int{NameSourceJID: 0, NameSourcePush: 1, NameSourceContact: 2}
	return rank[s] > rank[cur]
}
