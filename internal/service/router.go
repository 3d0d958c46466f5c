package service

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"watopic/internal/errors"
	"watopic/internal/models"
	"watopic/internal/privacy"
	"watopic/internal/tracing"
	"watopic/pkg/whatsapp/types"
	"watopic/pkg/workspace"

	"github.com/sirupsen/logrus"
)

// RouterDatabase defines the persistence operations the router needs.
type RouterDatabase interface {
	SaveMapping(ctx context.Context, m *models.ConversationMapping) error
	GetMapping(ctx context.Context, chatJID string) (*models.ConversationMapping, error)
	GetMappingByTopic(ctx context.Context, topicID int64) (*models.ConversationMapping, error)
	ListMappings(ctx context.Context) ([]*models.ConversationMapping, error)
	UpdateMappingName(ctx context.Context, chatJID, displayName string) error
	TouchMapping(ctx context.Context, chatJID string) error
	DeleteMapping(ctx context.Context, chatJID string) error
}

// TopicRouter owns the conversation-to-topic mapping. Creation is serialized
// per chat JID so concurrent first messages from the same conversation yield
// exactly one topic; different conversations never block each other.
type TopicRouter struct {
	db        RouterDatabase
	workspace workspace.Client
	waClient  types.Client
	directory *Directory
	logger    *logrus.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewTopicRouter(db RouterDatabase, ws workspace.Client, wa types.Client, directory *Directory, logger *logrus.Logger) *TopicRouter {
	return &TopicRouter{
		db:        db,
		workspace: ws,
		waClient:  wa,
		directory: directory,
		logger:    logger,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (r *TopicRouter) chatLock(chatJID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[chatJID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[chatJID] = l
	}
	return l
}

// ResolveOrCreate returns the topic for chatJID, creating it on first
// contact. The topic record is committed before any decoration, so a
// failed intro message can never roll back the mapping.
func (r *TopicRouter) ResolveOrCreate(ctx context.Context, chatJID string, kind models.ChatKind) (*models.ConversationMapping, error) {
	ctx, span := tracing.StartSpan(ctx, "router.ResolveOrCreate")
	defer span.End()

	if m, err := r.db.GetMapping(ctx, chatJID); err != nil {
		return nil, errors.NewDatabaseError("get mapping", err)
	} else if m != nil {
		return m, nil
	}

	lock := r.chatLock(chatJID)
	lock.Lock()
	defer lock.Unlock()

	// Re-check under the lock: another goroutine may have created the
	// topic while we waited.
	if m, err := r.db.GetMapping(ctx, chatJID); err != nil {
		return nil, errors.NewDatabaseError("get mapping", err)
	} else if m != nil {
		return m, nil
	}

	name := r.topicName(ctx, chatJID, kind)

	topicID, err := r.workspace.CreateTopic(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic for %s: %w", privacy.MaskJID(chatJID), err)
	}

	m := &models.ConversationMapping{
		ChatJID:        chatJID,
		TopicID:        topicID,
		Kind:           kind,
		DisplayName:    name,
		Active:         true,
		CreatedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
	if err := r.db.SaveMapping(ctx, m); err != nil {
		return nil, errors.NewDatabaseError("save mapping", err)
	}

	r.logger.WithFields(logrus.Fields{
		"chat":    privacy.MaskJID(chatJID),
		"topicId": topicID,
		"kind":    kind,
	}).Info("Created topic for conversation")

	r.decorateTopic(ctx, m)
	return m, nil
}

// topicName picks the display name for a new topic.
func (r *TopicRouter) topicName(ctx context.Context, chatJID string, kind models.ChatKind) string {
	switch kind {
	case models.ChatKindStatus:
		return models.StatusTopicName
	case models.ChatKindCallLog:
		return models.CallLogTopicName
	}
	return r.directory.Resolve(ctx, chatJID)
}

// decorateTopic posts the intro message and profile image into a freshly
// created topic. Failures are logged only.
func (r *TopicRouter) decorateTopic(ctx context.Context, m *models.ConversationMapping) {
	if m.Kind != models.ChatKindDirect && m.Kind != models.ChatKindGroup {
		return
	}

	intro := fmt.Sprintf("Conversation with %s", m.DisplayName)
	if m.Kind == models.ChatKindGroup {
		intro = fmt.Sprintf("Group: %s", m.DisplayName)
	}
	if _, err := r.workspace.SendText(ctx, m.TopicID, intro, nil); err != nil {
		r.logger.WithError(err).WithField("topicId", m.TopicID).Warn("Failed to post topic intro")
	}

	if m.Kind == models.ChatKindDirect {
		r.postProfileImage(ctx, m)
	}
}

// postProfileImage fetches the participant's profile picture and attaches it
// to the topic. Best effort only.
func (r *TopicRouter) postProfileImage(ctx context.Context, m *models.ConversationMapping) {
	url, err := r.waClient.GetProfileImageURL(ctx, m.ChatJID)
	if err != nil || url == "" {
		return
	}

	data, err := r.waClient.DownloadMedia(ctx, url)
	if err != nil {
		r.logger.WithError(err).WithField("topicId", m.TopicID).Debug("Failed to download profile image")
		return
	}

	tmp, err := os.CreateTemp("", "profile-*.jpg")
	if err != nil {
		r.logger.WithError(err).Debug("Failed to stage profile image")
		return
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		r.logger.WithError(err).Debug("Failed to stage profile image")
		return
	}
	tmp.Close()

	if _, err := r.workspace.SendPhoto(ctx, m.TopicID, path, nil); err != nil {
		r.logger.WithError(err).WithField("topicId", m.TopicID).Debug("Failed to post profile image")
	}
}

// ReverseResolve maps a topic back to its conversation. Unknown topics
// resolve to a not-found error so callers can answer in the topic.
func (r *TopicRouter) ReverseResolve(ctx context.Context, topicID int64) (*models.ConversationMapping, error) {
	m, err := r.db.GetMappingByTopic(ctx, topicID)
	if err != nil {
		return nil, errors.NewDatabaseError("get mapping by topic", err)
	}
	if m == nil {
		return nil, errors.NewNotFoundError("conversation for topic", fmt.Sprintf("%d", topicID))
	}
	return m, nil
}

// Rename updates the stored display name and the live topic title. The
// stored name is committed first: the contact change only fires once, so a
// destination-side failure (topic deleted, workspace down) must not leave
// the mapping stale. Topic edit failures are logged and swallowed.
func (r *TopicRouter) Rename(ctx context.Context, chatJID, newName string) error {
	m, err := r.db.GetMapping(ctx, chatJID)
	if err != nil {
		return errors.NewDatabaseError("get mapping", err)
	}
	if m == nil || m.DisplayName == newName {
		return nil
	}

	if err := r.db.UpdateMappingName(ctx, chatJID, newName); err != nil {
		return errors.NewDatabaseError("update mapping name", err)
	}

	if err := r.workspace.EditTopicName(ctx, m.TopicID, newName); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"chat":    privacy.MaskJID(chatJID),
			"topicId": m.TopicID,
		}).Warn("Failed to rename topic, stored name updated")
		return nil
	}

	r.logger.WithFields(logrus.Fields{
		"chat":    privacy.MaskJID(chatJID),
		"topicId": m.TopicID,
	}).Info("Renamed topic after contact change")
	return nil
}

// Touch bumps the conversation's last-activity stamp.
func (r *TopicRouter) Touch(ctx context.Context, chatJID string) {
	if err := r.db.TouchMapping(ctx, chatJID); err != nil {
		r.logger.WithError(err).WithField("chat", privacy.MaskJID(chatJID)).Debug("Failed to touch mapping")
	}
}

// Link binds an existing conversation to an explicit topic, replacing any
// previous mapping for that chat.
func (r *TopicRouter) Link(ctx context.Context, chatJID string, topicID int64, kind models.ChatKind, name string) error {
	m := &models.ConversationMapping{
		ChatJID:        chatJID,
		TopicID:        topicID,
		Kind:           kind,
		DisplayName:    name,
		Active:         true,
		CreatedAt:      time.Now(),
		LastActivityAt: time.Now(),
	}
	if err := r.db.SaveMapping(ctx, m); err != nil {
		return errors.NewDatabaseError("save mapping", err)
	}
	return nil
}

// Unlink removes the mapping for a conversation. The workspace topic is
// left in place; a later message recreates a fresh one.
func (r *TopicRouter) Unlink(ctx context.Context, chatJID string) error {
	if err := r.db.DeleteMapping(ctx, chatJID); err != nil {
		return errors.NewDatabaseError("delete mapping", err)
	}
	r.logger.WithField("chat", privacy.MaskJID(chatJID)).Info("Unlinked conversation from topic")
	return nil
}

// List returns every known mapping.
func (r *TopicRouter) List(ctx context.Context) ([]*models.ConversationMapping, error) {
	mappings, err := r.db.ListMappings(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("list mappings", err)
	}
	return mappings, nil
}
