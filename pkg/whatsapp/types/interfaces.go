package types

import "context"

// Client is the contract the bridge consumes from the source network. The
// implementation wraps an external gateway; authentication and protocol
// state live entirely on the other side of it.
type Client interface {
	SendText(ctx context.Context, chatJID, text string) (*SendMessageResponse, error)
	SendReply(ctx context.Context, chatJID, text, quotedMessageID string) (*SendMessageResponse, error)
	SendMedia(ctx context.Context, chatJID, filePath, caption, mimeType string) (*SendMessageResponse, error)
	SendContactCard(ctx context.Context, chatJID, vcard string) (*SendMessageResponse, error)
	RevokeMessage(ctx context.Context, chatJID, messageID string) error

	DownloadMedia(ctx context.Context, ref string) ([]byte, error)
	GetGroupMetadata(ctx context.Context, groupJID string) (*GroupMetadata, error)
	GetProfileImageURL(ctx context.Context, jid string) (string, error)
	GetContact(ctx context.Context, jid string) (*Contact, error)
	GetAllContacts(ctx context.Context, limit, offset int) ([]Contact, error)
	GetJoinedGroups(ctx context.Context) ([]GroupMetadata, error)

	SendPresence(ctx context.Context, chatJID string, state PresenceState) error
	MarkRead(ctx context.Context, chatJID string, messageIDs []string) error
}
