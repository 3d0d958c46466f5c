package workspace

import "context"

// SendOpts carries optional parameters for send operations.
type SendOpts struct {
	Caption  string
	ReplyTo  int64
	MimeType string
	FileName string
}

// Client is the contract the bridge consumes from the workspace. All sends
// target a topic (thread) inside the single bridged channel, which the
// client is bound to at construction time.
type Client interface {
	CreateTopic(ctx context.Context, name string) (int64, error)
	EditTopicName(ctx context.Context, topicID int64, name string) error

	SendText(ctx context.Context, topicID int64, text string, opts *SendOpts) (int64, error)
	SendPhoto(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error)
	SendVideo(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error)
	SendVideoNote(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error)
	SendAudio(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error)
	SendVoice(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error)
	SendDocument(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error)
	SendSticker(ctx context.Context, topicID int64, filePath string, opts *SendOpts) (int64, error)
	SendLocation(ctx context.Context, topicID int64, latitude, longitude float64, name string) (int64, error)
	SendContact(ctx context.Context, topicID int64, fullName, phoneNumber string) (int64, error)

	SetReaction(ctx context.Context, messageID int64, emoji string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}
