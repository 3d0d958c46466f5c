package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"watopic/internal/media"
	"watopic/internal/models"
	"watopic/pkg/whatsapp/types"
	"watopic/pkg/workspace"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

// In-memory database fake shared by router, directory and settings tests.
type fakeDB struct {
	mu         sync.Mutex
	mappings   map[string]*models.ConversationMapping
	identities map[string]*models.Identity
	settings   map[string]*models.SettingFlag

	getMappingErr error
	nextMappingID int64
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		mappings:   make(map[string]*models.ConversationMapping),
		identities: make(map[string]*models.Identity),
		settings:   make(map[string]*models.SettingFlag),
	}
}

func (f *fakeDB) SaveMapping(ctx context.Context, m *models.ConversationMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == 0 {
		f.nextMappingID++
		m.ID = f.nextMappingID
	}
	cp := *m
	f.mappings[m.ChatJID] = &cp
	return nil
}

func (f *fakeDB) GetMapping(ctx context.Context, chatJID string) (*models.ConversationMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getMappingErr != nil {
		return nil, f.getMappingErr
	}
	m, ok := f.mappings[chatJID]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeDB) GetMappingByTopic(ctx context.Context, topicID int64) (*models.ConversationMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.mappings {
		if m.TopicID == topicID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeDB) ListMappings(ctx context.Context) ([]*models.ConversationMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ConversationMapping, 0, len(f.mappings))
	for _, m := range f.mappings {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeDB) UpdateMappingName(ctx context.Context, chatJID, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.mappings[chatJID]; ok {
		m.DisplayName = displayName
	}
	return nil
}

func (f *fakeDB) TouchMapping(ctx context.Context, chatJID string) error {
	return nil
}

func (f *fakeDB) DeleteMapping(ctx context.Context, chatJID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.mappings, chatJID)
	return nil
}

func (f *fakeDB) SaveIdentity(ctx context.Context, id *models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *id
	f.identities[id.JID] = &cp
	return nil
}

func (f *fakeDB) GetIdentity(ctx context.Context, jid string) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.identities[jid]
	if !ok {
		return nil, nil
	}
	cp := *id
	return &cp, nil
}

func (f *fakeDB) FindIdentitiesByName(ctx context.Context, fragment string) ([]*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Identity
	for _, id := range f.identities {
		if strings.Contains(strings.ToLower(id.DisplayName), strings.ToLower(fragment)) {
			cp := *id
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeDB) GetSetting(ctx context.Context, key string) (*models.SettingFlag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.settings[key]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeDB) SetSetting(ctx context.Context, key, value, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[key] = &models.SettingFlag{Key: key, Value: value, Description: description}
	return nil
}

// Workspace client fake. Topic ids are handed out atomically so concurrent
// creation tests can count real creations.
type fakeWorkspaceClient struct {
	mu sync.Mutex

	createTopicCalls int64
	createTopicErr   error
	nextTopicID      int64

	nextMessageID int64
	sentTexts     []sentText
	sentFiles     []sentFile
	reactions     []reaction

	sendErr        error
	sendStickerErr error
	editNameCalls  []string
	editNameErr    error

	downloadData []byte
	downloadErr  error
}

type sentText struct {
	topicID int64
	text    string
	replyTo int64
}

type sentFile struct {
	topicID int64
	method  string
	path    string
}

type reaction struct {
	messageID int64
	emoji     string
}

func newFakeWorkspaceClient() *fakeWorkspaceClient {
	return &fakeWorkspaceClient{nextTopicID: 100, nextMessageID: 1000}
}

func (f *fakeWorkspaceClient) CreateTopic(ctx context.Context, name string) (int64, error) {
	if f.createTopicErr != nil {
		atomic.AddInt64(&f.createTopicCalls, 1)
		return 0, f.createTopicErr
	}
	calls := atomic.AddInt64(&f.createTopicCalls, 1)
	return 100 + calls, nil
}

func (f *fakeWorkspaceClient) EditTopicName(ctx context.Context, topicID int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.editNameCalls = append(f.editNameCalls, name)
	return f.editNameErr
}

func (f *fakeWorkspaceClient) SendText(ctx context.Context, topicID int64, text string, opts *workspace.SendOpts) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	var replyTo int64
	if opts != nil {
		replyTo = opts.ReplyTo
	}
	f.sentTexts = append(f.sentTexts, sentText{topicID: topicID, text: text, replyTo: replyTo})
	f.nextMessageID++
	return f.nextMessageID, nil
}

func (f *fakeWorkspaceClient) sendMedia(method string, topicID int64, filePath string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.sentFiles = append(f.sentFiles, sentFile{topicID: topicID, method: method, path: filePath})
	f.nextMessageID++
	return f.nextMessageID, nil
}

func (f *fakeWorkspaceClient) SendPhoto(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error) {
	return f.sendMedia("photo", topicID, filePath)
}

func (f *fakeWorkspaceClient) SendVideo(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error) {
	return f.sendMedia("video", topicID, filePath)
}

func (f *fakeWorkspaceClient) SendVideoNote(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error) {
	return f.sendMedia("videoNote", topicID, filePath)
}

func (f *fakeWorkspaceClient) SendAudio(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error) {
	return f.sendMedia("audio", topicID, filePath)
}

func (f *fakeWorkspaceClient) SendVoice(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error) {
	return f.sendMedia("voice", topicID, filePath)
}

func (f *fakeWorkspaceClient) SendDocument(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error) {
	return f.sendMedia("document", topicID, filePath)
}

func (f *fakeWorkspaceClient) SendSticker(ctx context.Context, topicID int64, filePath string, opts *workspace.SendOpts) (int64, error) {
	if f.sendStickerErr != nil {
		return 0, f.sendStickerErr
	}
	return f.sendMedia("sticker", topicID, filePath)
}

func (f *fakeWorkspaceClient) SendLocation(ctx context.Context, topicID int64, latitude, longitude float64, name string) (int64, error) {
	return f.sendMedia("location", topicID, "")
}

func (f *fakeWorkspaceClient) SendContact(ctx context.Context, topicID int64, fullName, phoneNumber string) (int64, error) {
	return f.sendMedia("contact", topicID, fullName)
}

func (f *fakeWorkspaceClient) SetReaction(ctx context.Context, messageID int64, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, reaction{messageID: messageID, emoji: emoji})
	return nil
}

func (f *fakeWorkspaceClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	return f.downloadData, f.downloadErr
}

func (f *fakeWorkspaceClient) textCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sentTexts)
}

func (f *fakeWorkspaceClient) lastReaction() (reaction, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reactions) == 0 {
		return reaction{}, false
	}
	return f.reactions[len(f.reactions)-1], true
}

// Source network client fake.
type fakeWAClient struct {
	mu sync.Mutex

	sentTexts   []waText
	sentReplies []waReply
	sentCards   []waCard
	revoked     []string
	presences   []types.PresenceState
	markedRead  int

	sendErr    error
	revokeErr  error
	contact    *types.Contact
	contactErr error
	group      *types.GroupMetadata
	groups     []types.GroupMetadata
	contacts   []types.Contact
	profileURL string

	nextID int
}

type waText struct {
	chatJID string
	text    string
}

type waReply struct {
	chatJID  string
	text     string
	quotedID string
}

type waCard struct {
	chatJID string
	vcard   string
}

func (f *fakeWAClient) respond() (*types.SendMessageResponse, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.nextID++
	return &types.SendMessageResponse{MessageID: fmt.Sprintf("wa-msg-%d", f.nextID), Status: "sent"}, nil
}

func (f *fakeWAClient) SendText(ctx context.Context, chatJID, text string) (*types.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, err := f.respond()
	if err == nil {
		f.sentTexts = append(f.sentTexts, waText{chatJID: chatJID, text: text})
	}
	return resp, err
}

func (f *fakeWAClient) SendReply(ctx context.Context, chatJID, text, quotedMessageID string) (*types.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, err := f.respond()
	if err == nil {
		f.sentReplies = append(f.sentReplies, waReply{chatJID: chatJID, text: text, quotedID: quotedMessageID})
	}
	return resp, err
}

func (f *fakeWAClient) SendMedia(ctx context.Context, chatJID, filePath, caption, mimeType string) (*types.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.respond()
}

func (f *fakeWAClient) SendContactCard(ctx context.Context, chatJID, vcard string) (*types.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp, err := f.respond()
	if err == nil {
		f.sentCards = append(f.sentCards, waCard{chatJID: chatJID, vcard: vcard})
	}
	return resp, err
}

func (f *fakeWAClient) RevokeMessage(ctx context.Context, chatJID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, messageID)
	return nil
}

func (f *fakeWAClient) DownloadMedia(ctx context.Context, ref string) ([]byte, error) {
	return []byte("media-bytes"), nil
}

func (f *fakeWAClient) GetGroupMetadata(ctx context.Context, groupJID string) (*types.GroupMetadata, error) {
	return f.group, nil
}

func (f *fakeWAClient) GetProfileImageURL(ctx context.Context, jid string) (string, error) {
	return f.profileURL, nil
}

func (f *fakeWAClient) GetContact(ctx context.Context, jid string) (*types.Contact, error) {
	return f.contact, f.contactErr
}

func (f *fakeWAClient) GetAllContacts(ctx context.Context, limit, offset int) ([]types.Contact, error) {
	if offset >= len(f.contacts) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.contacts) {
		end = len(f.contacts)
	}
	return f.contacts[offset:end], nil
}

func (f *fakeWAClient) GetJoinedGroups(ctx context.Context) ([]types.GroupMetadata, error) {
	return f.groups, nil
}

func (f *fakeWAClient) SendPresence(ctx context.Context, chatJID string, state types.PresenceState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presences = append(f.presences, state)
	return nil
}

func (f *fakeWAClient) MarkRead(ctx context.Context, chatJID string, messageIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markedRead += len(messageIDs)
	return nil
}

func (f *fakeWAClient) presenceStates() []types.PresenceState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.PresenceState, len(f.presences))
	copy(out, f.presences)
	return out
}

// Media pipeline fake.
type fakePipeline struct {
	mu sync.Mutex

	toWorkspaceCalls []media.TransferRequest
	toWorkspaceErr   error
	toSourceCalls    int
	toSourceErr      error
	nextMessageID    int64
	nextChatMsgID    int
}

func (f *fakePipeline) TransferToWorkspace(ctx context.Context, req media.TransferRequest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toWorkspaceErr != nil {
		return 0, f.toWorkspaceErr
	}
	f.toWorkspaceCalls = append(f.toWorkspaceCalls, req)
	f.nextMessageID++
	return 5000 + f.nextMessageID, nil
}

func (f *fakePipeline) TransferToSource(ctx context.Context, sender media.SourceSender, chatJID string, msg *models.WorkspaceMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.toSourceErr != nil {
		return "", f.toSourceErr
	}
	f.toSourceCalls++
	f.nextChatMsgID++
	return fmt.Sprintf("wa-file-%d", f.nextChatMsgID), nil
}

func (f *fakePipeline) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.toWorkspaceCalls)
}
