package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"watopic/internal/constants"
	"watopic/internal/errors"
	"watopic/internal/models"
	watypes "watopic/pkg/whatsapp/types"
	"watopic/pkg/workspace"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SourceDownloader fetches raw media bytes from the source network.
type SourceDownloader interface {
	DownloadMedia(ctx context.Context, ref string) ([]byte, error)
}

// SourceSender delivers a media file to a source conversation.
type SourceSender interface {
	SendMedia(ctx context.Context, chatJID, filePath, caption, mimeType string) (*watypes.SendMessageResponse, error)
}

// TopicSender is the subset of the workspace client the pipeline uploads
// through.
type TopicSender interface {
	SendPhoto(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error)
	SendVideo(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error)
	SendVideoNote(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error)
	SendAudio(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error)
	SendVoice(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error)
	SendDocument(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error)
	SendSticker(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error)
}

// WorkspaceFiles fetches raw file bytes from the workspace.
type WorkspaceFiles interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Pipeline implements the download, transcode and upload path for media in
// both directions. Temporary artifacts are removed on every exit path.
type Pipeline struct {
	source  SourceDownloader
	topics  TopicSender
	files   WorkspaceFiles
	tempDir string
	limits  models.MediaSizeLimits
	logger  *logrus.Logger
}

func NewPipeline(source SourceDownloader, topics TopicSender, files WorkspaceFiles, cfg models.MediaConfig, logger *logrus.Logger) (*Pipeline, error) {
	if err := os.MkdirAll(cfg.TempDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &Pipeline{
		source:  source,
		topics:  topics,
		files:   files,
		tempDir: cfg.TempDir,
		limits:  cfg.MaxSizeMB,
		logger:  logger,
	}, nil
}

// TransferRequest describes one inbound media payload headed for a topic.
type TransferRequest struct {
	Media   models.MediaRef
	TopicID int64
	Caption string
	ReplyTo int64
}

// TransferToWorkspace downloads the referenced media, applies any required
// transcoding and uploads it into the topic. Returns the workspace message
// id of the delivered artifact.
func (p *Pipeline) TransferToWorkspace(ctx context.Context, req TransferRequest) (int64, error) {
	data, err := p.source.DownloadMedia(ctx, req.Media.URL)
	if err != nil {
		return 0, errors.NewMediaError(errors.ErrCodeMediaDownload, string(req.Media.Kind), err)
	}

	if err := p.checkSize(req.Media.Kind, int64(len(data))); err != nil {
		return 0, err
	}

	tempPath, err := p.writeTemp(data, tempExtension(req.Media))
	if err != nil {
		return 0, errors.NewMediaError(errors.ErrCodeMediaTranscode, string(req.Media.Kind), err)
	}
	defer p.removeTemp(tempPath)

	opts := &workspace.SendOpts{
		Caption:  req.Caption,
		ReplyTo:  req.ReplyTo,
		MimeType: req.Media.MimeType,
		FileName: req.Media.FileName,
	}

	var msgID int64
	switch req.Media.Kind {
	case models.MediaKindImage:
		msgID, err = p.topics.SendPhoto(ctx, req.TopicID, tempPath, opts)

	case models.MediaKindSticker:
		msgID, err = p.sendSticker(ctx, req.TopicID, tempPath, data, opts)

	case models.MediaKindVideoNote:
		msgID, err = p.sendVideoNote(ctx, req.TopicID, tempPath, req.Media, opts)

	case models.MediaKindVideo:
		msgID, err = p.topics.SendVideo(ctx, req.TopicID, tempPath, opts)

	case models.MediaKindAudio:
		msgID, err = p.sendAudio(ctx, req.TopicID, tempPath, req.Media, opts)

	case models.MediaKindDocument:
		opts.MimeType = documentMimeType(req.Media.FileName, data)
		msgID, err = p.topics.SendDocument(ctx, req.TopicID, tempPath, opts)

	default:
		return 0, errors.NewMediaError(errors.ErrCodeMediaTranscode, string(req.Media.Kind),
			fmt.Errorf("unsupported media kind"))
	}

	if err != nil {
		return 0, errors.NewMediaError(errors.ErrCodeMediaUpload, string(req.Media.Kind), err)
	}
	return msgID, nil
}

// TransferToSource moves a workspace attachment back onto the source
// network.
func (p *Pipeline) TransferToSource(ctx context.Context, sender SourceSender, chatJID string, msg *models.WorkspaceMessage) (string, error) {
	data, err := p.files.DownloadFile(ctx, msg.FileID)
	if err != nil {
		return "", errors.NewMediaError(errors.ErrCodeMediaDownload, "attachment", err)
	}

	ext := filepath.Ext(msg.FileName)
	if ext == "" {
		ext = mimetype.Detect(data).Extension()
	}

	tempPath, err := p.writeTemp(data, ext)
	if err != nil {
		return "", errors.NewMediaError(errors.ErrCodeMediaTranscode, "attachment", err)
	}
	defer p.removeTemp(tempPath)

	mimeType := msg.MimeType
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}

	resp, err := sender.SendMedia(ctx, chatJID, tempPath, msg.Text, mimeType)
	if err != nil {
		return "", errors.NewMediaError(errors.ErrCodeMediaUpload, "attachment", err)
	}
	return resp.MessageID, nil
}

// sendSticker first attempts a native sticker upload; if the destination
// rejects it (animated or unsupported codec), the image is normalized to a
// 512x512 transparent-padded raster and sent as a plain photo.
func (p *Pipeline) sendSticker(ctx context.Context, topicID int64, tempPath string, data []byte, opts *workspace.SendOpts) (int64, error) {
	msgID, err := p.topics.SendSticker(ctx, topicID, tempPath, opts)
	if err == nil {
		return msgID, nil
	}

	p.logger.WithError(err).Debug("Native sticker upload rejected, falling back to raster image")

	normalized, convErr := NormalizeSticker(data)
	if convErr != nil {
		return 0, fmt.Errorf("sticker fallback failed: %w", convErr)
	}

	fallbackPath, convErr := p.writeTemp(normalized, ".png")
	if convErr != nil {
		return 0, convErr
	}
	defer p.removeTemp(fallbackPath)

	fallbackOpts := *opts
	fallbackOpts.MimeType = "image/png"
	if fallbackOpts.Caption == "" {
		fallbackOpts.Caption = "(sticker)"
	} else {
		fallbackOpts.Caption += " (sticker)"
	}

	return p.topics.SendPhoto(ctx, topicID, fallbackPath, &fallbackOpts)
}

// sendVideoNote validates the round-note constraints and falls back to a
// regular video when they do not hold.
func (p *Pipeline) sendVideoNote(ctx context.Context, topicID int64, tempPath string, ref models.MediaRef, opts *workspace.SendOpts) (int64, error) {
	square := ref.Width > 0 && ref.Width == ref.Height
	short := ref.DurationSec > 0 && float64(ref.DurationSec) <= constants.MaxVideoNoteDuration.Seconds()

	if square && short {
		return p.topics.SendVideoNote(ctx, topicID, tempPath, opts)
	}

	p.logger.WithFields(logrus.Fields{
		"width":    ref.Width,
		"height":   ref.Height,
		"duration": ref.DurationSec,
	}).Debug("Video does not qualify as a video note, sending as regular video")

	return p.topics.SendVideo(ctx, topicID, tempPath, opts)
}

// sendAudio selects the voice-message vs. audio-file delivery method based
// on the push-to-talk flag.
func (p *Pipeline) sendAudio(ctx context.Context, topicID int64, tempPath string, ref models.MediaRef, opts *workspace.SendOpts) (int64, error) {
	if ref.IsVoice {
		opts.MimeType = constants.VoiceMimeType
		return p.topics.SendVoice(ctx, topicID, tempPath, opts)
	}
	if opts.MimeType == "" {
		opts.MimeType = constants.MusicMimeType
	}
	return p.topics.SendAudio(ctx, topicID, tempPath, opts)
}

func (p *Pipeline) checkSize(kind models.MediaKind, size int64) error {
	var maxMB int
	switch kind {
	case models.MediaKindImage, models.MediaKindSticker:
		maxMB = p.limits.Image
	case models.MediaKindVideo, models.MediaKindVideoNote:
		maxMB = p.limits.Video
	case models.MediaKindAudio:
		maxMB = p.limits.Voice
	default:
		maxMB = p.limits.Document
	}

	if maxMB > 0 && size > int64(maxMB)*1024*1024 {
		return errors.NewMediaError(errors.ErrCodeMediaDownload, string(kind),
			fmt.Errorf("%s too large: %d bytes exceeds %d MB", kind, size, maxMB))
	}
	return nil
}

func (p *Pipeline) writeTemp(data []byte, ext string) (string, error) {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	path := filepath.Join(p.tempDir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

func (p *Pipeline) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.logger.WithError(err).WithField("path", path).Warn("Failed to remove temp artifact")
	}
}

// CleanupTempFiles removes temp artifacts older than maxAge seconds. Runs
// from the cleanup scheduler and at shutdown.
func (p *Pipeline) CleanupTempFiles(maxAgeSec int64) error {
	entries, err := os.ReadDir(p.tempDir)
	if err != nil {
		return fmt.Errorf("failed to read temp directory: %w", err)
	}

	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if int64(time.Since(info.ModTime()).Seconds()) > maxAgeSec {
			if err := os.Remove(filepath.Join(p.tempDir, entry.Name())); err != nil {
				p.logger.WithError(err).Warn("Failed to remove stale temp file")
			}
		}
	}
	return nil
}

func tempExtension(ref models.MediaRef) string {
	if ext := filepath.Ext(ref.FileName); ext != "" {
		return ext
	}
	for ext, mt := range constants.MimeTypes {
		if mt == ref.MimeType {
			return ext
		}
	}
	switch ref.Kind {
	case models.MediaKindImage:
		return ".jpg"
	case models.MediaKindSticker:
		return ".webp"
	case models.MediaKindVideo, models.MediaKindVideoNote:
		return ".mp4"
	case models.MediaKindAudio:
		return ".ogg"
	}
	return ".bin"
}

// documentMimeType resolves a document's MIME type from its extension
// first, then by content sniffing.
func documentMimeType(fileName string, data []byte) string {
	if ext := strings.ToLower(filepath.Ext(fileName)); ext != "" {
		if mt, ok := constants.MimeTypes[ext]; ok {
			return mt
		}
	}
	if mt := mimetype.Detect(data); mt != nil {
		return mt.String()
	}
	return constants.DefaultMimeType
}
