package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"watopic/internal/errors"
	"watopic/internal/media"
	"watopic/internal/models"
	"watopic/internal/privacy"
	"watopic/internal/retry"
	"watopic/internal/tracing"
	"watopic/internal/vcard"
	"watopic/pkg/whatsapp/types"
	"watopic/pkg/workspace"

	"github.com/sirupsen/logrus"
)

// eventState tracks a single inbound event through the forwarding stages.
type eventState string

const (
	stateReceived         eventState = "received"
	stateIdentityResolved eventState = "identity-resolved"
	stateThreadResolved   eventState = "thread-resolved"
	stateFilterChecked    eventState = "filter-checked"
	stateDelivered        eventState = "delivered"
	stateDropped          eventState = "dropped"
	stateCorrelated       eventState = "correlated"
	stateFailed           eventState = "failed"
)

// Reaction markers applied to workspace messages.
const (
	ackReaction     = "✅"          // check mark
	failureReaction = "⚠️"         // warning sign
	revokeReaction  = "\U0001f5d1" // wastebasket
)

// MediaPipeline is the subset of the media package the orchestrator drives.
type MediaPipeline interface {
	TransferToWorkspace(ctx context.Context, req media.TransferRequest) (int64, error)
	TransferToSource(ctx context.Context, sender media.SourceSender, chatJID string, msg *models.WorkspaceMessage) (string, error)
}

// Orchestrator consumes typed events from both networks over channels and
// sequences the bridge components for each one. Events are processed one at
// a time off each queue, which preserves per-conversation ordering; a
// failure in one event never affects another.
type Orchestrator struct {
	gate      *SettingsGate
	router    *TopicRouter
	directory *Directory
	pairs     *PairTracker
	dedup     *Deduper
	pipeline  MediaPipeline
	presence  *PresenceRelay
	waClient  types.Client
	wsClient  workspace.Client
	admin     *AdminHandler
	backoff   *retry.Backoff
	logger    *logrus.Logger

	sourceEvents    chan models.SourceEvent
	workspaceEvents chan models.WorkspaceMessage
}

// OrchestratorDeps bundles the collaborators an Orchestrator needs.
type OrchestratorDeps struct {
	Gate      *SettingsGate
	Router    *TopicRouter
	Directory *Directory
	Pairs     *PairTracker
	Dedup     *Deduper
	Pipeline  MediaPipeline
	Presence  *PresenceRelay
	WAClient  types.Client
	WSClient  workspace.Client
	Admin     *AdminHandler
	Retry     models.RetryConfig
	Logger    *logrus.Logger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	backoffCfg := retry.BackoffConfig{
		InitialDelay: time.Duration(deps.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(deps.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  deps.Retry.MaxAttempts,
		Jitter:       true,
	}

	return &Orchestrator{
		gate:            deps.Gate,
		router:          deps.Router,
		directory:       deps.Directory,
		pairs:           deps.Pairs,
		dedup:           deps.Dedup,
		pipeline:        deps.Pipeline,
		presence:        deps.Presence,
		waClient:        deps.WAClient,
		wsClient:        deps.WSClient,
		admin:           deps.Admin,
		backoff:         retry.NewBackoff(backoffCfg),
		logger:          deps.Logger,
		sourceEvents:    make(chan models.SourceEvent, 64),
		workspaceEvents: make(chan models.WorkspaceMessage, 64),
	}
}

// SourceEvents is the inbound queue for source network events.
func (o *Orchestrator) SourceEvents() chan<- models.SourceEvent {
	return o.sourceEvents
}

// WorkspaceEvents is the inbound queue for workspace events.
func (o *Orchestrator) WorkspaceEvents() chan<- models.WorkspaceMessage {
	return o.workspaceEvents
}

// Run consumes both queues until the context is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			o.presence.Stop()
			return
		case ev := <-o.sourceEvents:
			o.dispatchSource(ctx, ev)
		case msg := <-o.workspaceEvents:
			o.safeRun(func() { o.handleWorkspaceMessage(ctx, &msg) })
		}
	}
}

func (o *Orchestrator) dispatchSource(ctx context.Context, ev models.SourceEvent) {
	switch {
	case ev.Message != nil:
		o.safeRun(func() { o.handleSourceMessage(ctx, ev.Message) })
	case ev.Call != nil:
		o.safeRun(func() { o.handleCall(ctx, ev.Call) })
	case ev.Status != nil:
		o.safeRun(func() { o.handleStatus(ctx, ev.Status) })
	case ev.ContactChange != nil:
		o.safeRun(func() { o.handleContactChange(ctx, ev.ContactChange) })
	default:
		o.logger.Warn("Discarding empty source event")
	}
}

// safeRun wraps one event's pipeline so a panic is logged and contained
// instead of taking down the loop.
func (o *Orchestrator) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithField("panic", r).Error("Recovered from panic while processing event")
		}
	}()
	fn()
}

func (o *Orchestrator) handleSourceMessage(ctx context.Context, msg *models.SourceMessage) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.handleSourceMessage")
	defer span.End()

	log := o.logger.WithFields(logrus.Fields{
		"chat":      privacy.MaskJID(msg.ChatJID),
		"messageId": privacy.MaskMessageID(msg.MessageID),
	})
	state := stateReceived

	if msg.RevokeTargetID != "" {
		o.handleSourceRevoke(ctx, msg, log)
		return
	}

	if !o.gate.IsEnabled(ctx, models.SettingBridgeEnabled) {
		log.WithField("state", stateDropped).Debug("Bridge disabled, dropping message")
		return
	}

	senderName := o.observeSender(ctx, msg)
	state = stateIdentityResolved

	kind := models.ChatKindDirect
	if msg.IsGroup {
		kind = models.ChatKindGroup
	}
	mapping, err := o.router.ResolveOrCreate(ctx, msg.ChatJID, kind)
	if err != nil {
		tracing.RecordError(ctx, err)
		log.WithError(err).WithField("state", stateFailed).Error("Failed to resolve topic")
		return
	}
	state = stateThreadResolved

	if msg.Media != nil && !o.gate.MediaAllowed(ctx, msg.Media.Kind) {
		log.WithFields(logrus.Fields{
			"state": stateDropped,
			"kind":  msg.Media.Kind,
		}).Debug("Media category disabled, dropping message")
		return
	}
	state = stateFilterChecked

	topicMsgID, err := o.deliverToTopic(ctx, msg, mapping, senderName)
	if err != nil {
		tracing.RecordError(ctx, err)
		log.WithError(err).WithField("state", stateFailed).Error("Failed to deliver message to topic")
		return
	}
	state = stateDelivered

	o.pairs.Record(topicMsgID, msg.MessageID, msg.ChatJID, models.DirectionToWorkspace)
	o.router.Touch(ctx, msg.ChatJID)
	if err := o.waClient.MarkRead(ctx, msg.ChatJID, []string{msg.MessageID}); err != nil {
		log.WithError(err).Debug("Failed to mark message read")
	}
	state = stateCorrelated

	log.WithFields(logrus.Fields{
		"state":   state,
		"topicId": mapping.TopicID,
	}).Info("Forwarded message to topic")
}

// observeSender records the message's originator in the directory and
// returns the attribution name for group messages.
func (o *Orchestrator) observeSender(ctx context.Context, msg *models.SourceMessage) string {
	jid := msg.ChatJID
	if msg.IsGroup && msg.SenderJID != "" {
		jid = msg.SenderJID
	}

	id, _, err := o.directory.Observe(ctx, jid, msg.PushName, models.NameSourcePush, false)
	if err != nil {
		o.logger.WithError(err).WithField("jid", privacy.MaskJID(jid)).Warn("Failed to record identity")
		if msg.PushName != "" {
			return msg.PushName
		}
		return jid
	}
	return id.BestName()
}

// deliverToTopic sends one message's content into the topic, returning the
// created workspace message id.
func (o *Orchestrator) deliverToTopic(ctx context.Context, msg *models.SourceMessage, mapping *models.ConversationMapping, senderName string) (int64, error) {
	caption := msg.Body
	if mapping.Kind == models.ChatKindGroup && senderName != "" {
		if caption != "" {
			caption = senderName + ": " + caption
		} else {
			caption = senderName
		}
	}

	var replyTo int64
	if msg.QuotedID != "" {
		if pair := o.pairs.FindBySourceMessage(msg.QuotedID); pair != nil {
			replyTo = pair.TopicMessageID
		}
	}

	switch {
	case msg.Media != nil:
		var msgID int64
		err := o.backoff.RetryWithPredicate(ctx, func() error {
			var innerErr error
			msgID, innerErr = o.pipeline.TransferToWorkspace(ctx, media.TransferRequest{
				Media:   *msg.Media,
				TopicID: mapping.TopicID,
				Caption: caption,
				ReplyTo: replyTo,
			})
			return innerErr
		}, errors.IsRetryable)
		return msgID, err

	case msg.Location != nil:
		name := msg.Location.Name
		if mapping.Kind == models.ChatKindGroup && senderName != "" {
			name = senderName
		}
		return o.wsClient.SendLocation(ctx, mapping.TopicID, msg.Location.Latitude, msg.Location.Longitude, name)

	case msg.Contact != nil:
		card := *msg.Contact
		if card.FullName == "" && card.VCard != "" {
			if parsed, err := vcard.Parse(card.VCard); err == nil {
				card.FullName = parsed.FullName
				card.PhoneNumber = parsed.PhoneNumber
			}
		}
		return o.wsClient.SendContact(ctx, mapping.TopicID, card.FullName, card.PhoneNumber)

	default:
		if caption == "" {
			return 0, fmt.Errorf("message has no forwardable content")
		}
		var msgID int64
		err := o.backoff.RetryWithPredicate(ctx, func() error {
			var innerErr error
			msgID, innerErr = o.wsClient.SendText(ctx, mapping.TopicID, caption, &workspace.SendOpts{ReplyTo: replyTo})
			return innerErr
		}, errors.IsRetryable)
		return msgID, err
	}
}

// handleSourceRevoke annotates the bridged copy of a message deleted on the
// source side.
func (o *Orchestrator) handleSourceRevoke(ctx context.Context, msg *models.SourceMessage, log *logrus.Entry) {
	pair := o.pairs.FindBySourceMessage(msg.RevokeTargetID)
	if pair == nil {
		log.Debug("Revoke target has no tracked pair, ignoring")
		return
	}

	if err := o.wsClient.SetReaction(ctx, pair.TopicMessageID, revokeReaction); err != nil {
		log.WithError(err).Warn("Failed to mark revoked message")
		return
	}
	log.WithField("topicMessageId", pair.TopicMessageID).Info("Marked revoked message in topic")
}

func (o *Orchestrator) handleCall(ctx context.Context, call *models.CallEvent) {
	if !o.gate.IsEnabled(ctx, models.SettingBridgeEnabled) {
		return
	}

	key := call.FromJID + ":" + call.CallID
	if !o.dedup.ShouldNotify(key) {
		o.logger.WithField("call", privacy.MaskMessageID(call.CallID)).Debug("Suppressed duplicate call event")
		return
	}

	mapping, err := o.router.ResolveOrCreate(ctx, models.CallLogJID, models.ChatKindCallLog)
	if err != nil {
		o.logger.WithError(err).Error("Failed to resolve call-log topic")
		return
	}

	callKind := "voice"
	if call.IsVideo {
		callKind = "video"
	}
	text := fmt.Sprintf("%s %s call from %s", titleCase(call.Status), callKind, o.directory.Resolve(ctx, call.FromJID))

	if _, err := o.wsClient.SendText(ctx, mapping.TopicID, text, nil); err != nil {
		o.logger.WithError(err).Error("Failed to post call notification")
		return
	}
	o.router.Touch(ctx, models.CallLogJID)
}

func (o *Orchestrator) handleStatus(ctx context.Context, status *models.StatusEvent) {
	if !o.gate.IsEnabled(ctx, models.SettingBridgeEnabled) || !o.gate.IsEnabled(ctx, models.SettingSyncStatus) {
		o.logger.Debug("Status forwarding disabled, dropping status event")
		return
	}

	key := status.AuthorJID + ":" + status.StatusID
	if !o.dedup.ShouldNotify(key) {
		return
	}

	mapping, err := o.router.ResolveOrCreate(ctx, models.StatusBroadcastJID, models.ChatKindStatus)
	if err != nil {
		o.logger.WithError(err).Error("Failed to resolve status topic")
		return
	}

	author := status.PushName
	if author == "" {
		author = o.directory.Resolve(ctx, status.AuthorJID)
	}
	caption := author
	if status.Body != "" {
		caption = author + ": " + status.Body
	}

	if status.Media != nil {
		if !o.gate.MediaAllowed(ctx, status.Media.Kind) {
			o.logger.WithFields(logrus.Fields{
				"state": stateDropped,
				"kind":  status.Media.Kind,
			}).Debug("Media category disabled, dropping status media")
			return
		}
		if _, err := o.pipeline.TransferToWorkspace(ctx, media.TransferRequest{
			Media:   *status.Media,
			TopicID: mapping.TopicID,
			Caption: caption,
		}); err != nil {
			o.logger.WithError(err).Error("Failed to forward status media")
		}
		return
	}

	if _, err := o.wsClient.SendText(ctx, mapping.TopicID, caption, nil); err != nil {
		o.logger.WithError(err).Error("Failed to forward status post")
	}
}

func (o *Orchestrator) handleContactChange(ctx context.Context, change *models.ContactChange) {
	if !o.gate.IsEnabled(ctx, models.SettingSyncContacts) {
		return
	}

	_, renamed, err := o.directory.Observe(ctx, change.JID, change.NewName, models.NameSourceContact, strings.HasSuffix(change.JID, "@g.us"))
	if err != nil {
		o.logger.WithError(err).WithField("jid", privacy.MaskJID(change.JID)).Error("Failed to apply contact change")
		return
	}
	if !renamed {
		return
	}

	if err := o.router.Rename(ctx, change.JID, change.NewName); err != nil {
		o.logger.WithError(err).WithField("jid", privacy.MaskJID(change.JID)).Warn("Failed to rename topic after contact change")
	}
}

func (o *Orchestrator) handleWorkspaceMessage(ctx context.Context, msg *models.WorkspaceMessage) {
	ctx, span := tracing.StartSpan(ctx, "orchestrator.handleWorkspaceMessage")
	defer span.End()

	if o.admin.IsCommand(msg.Text) {
		o.admin.Handle(ctx, msg)
		return
	}

	log := o.logger.WithFields(logrus.Fields{
		"topicId":   msg.TopicID,
		"messageId": msg.MessageID,
	})

	mapping, err := o.router.ReverseResolve(ctx, msg.TopicID)
	if err != nil {
		log.WithError(err).Warn("Cannot resolve conversation for topic reply")
		o.respondInTopic(ctx, msg, errors.GetUserMessage(err))
		return
	}

	if mapping.Kind == models.ChatKindStatus || mapping.Kind == models.ChatKindCallLog {
		o.respondInTopic(ctx, msg, "This topic is read-only.")
		return
	}

	o.presence.NotifyComposing(ctx, mapping.ChatJID)

	chatMsgID, err := o.deliverToSource(ctx, msg, mapping)
	if err != nil {
		tracing.RecordError(ctx, err)
		log.WithError(err).Error("Failed to deliver reply to source")
		o.react(ctx, msg.MessageID, failureReaction)
		return
	}

	o.pairs.Record(msg.MessageID, chatMsgID, mapping.ChatJID, models.DirectionToSource)
	o.admin.RecordOutbound(mapping.ChatJID, chatMsgID)
	o.router.Touch(ctx, mapping.ChatJID)
	o.react(ctx, msg.MessageID, ackReaction)

	log.WithField("chat", privacy.MaskJID(mapping.ChatJID)).Info("Forwarded reply to source")
}

func (o *Orchestrator) deliverToSource(ctx context.Context, msg *models.WorkspaceMessage, mapping *models.ConversationMapping) (string, error) {
	if msg.FileID != "" {
		return o.pipeline.TransferToSource(ctx, o.waClient, mapping.ChatJID, msg)
	}

	if msg.ContactName != "" {
		card := vcard.Card{FullName: msg.ContactName, PhoneNumber: msg.ContactPhone}
		var resp *types.SendMessageResponse
		err := o.backoff.RetryWithPredicate(ctx, func() error {
			var innerErr error
			resp, innerErr = o.waClient.SendContactCard(ctx, mapping.ChatJID, card.Marshal())
			return innerErr
		}, errors.IsRetryable)
		if err != nil {
			return "", err
		}
		return resp.MessageID, nil
	}

	if msg.Text == "" {
		return "", fmt.Errorf("reply has no forwardable content")
	}

	var quoted string
	if msg.ReplyToID != 0 {
		if pair := o.pairs.FindByTopicMessage(msg.ReplyToID); pair != nil {
			quoted = pair.ChatMessageID
		}
	}

	var resp *types.SendMessageResponse
	err := o.backoff.RetryWithPredicate(ctx, func() error {
		var innerErr error
		if quoted != "" {
			resp, innerErr = o.waClient.SendReply(ctx, mapping.ChatJID, msg.Text, quoted)
		} else {
			resp, innerErr = o.waClient.SendText(ctx, mapping.ChatJID, msg.Text)
		}
		return innerErr
	}, errors.IsRetryable)
	if err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

// respondInTopic posts an explanatory reply next to the triggering message.
func (o *Orchestrator) respondInTopic(ctx context.Context, msg *models.WorkspaceMessage, text string) {
	if _, err := o.wsClient.SendText(ctx, msg.TopicID, text, &workspace.SendOpts{ReplyTo: msg.MessageID}); err != nil {
		o.logger.WithError(err).Debug("Failed to post topic response")
	}
}

func (o *Orchestrator) react(ctx context.Context, messageID int64, emoji string) {
	if err := o.wsClient.SetReaction(ctx, messageID, emoji); err != nil {
		o.logger.WithError(err).Debug("Failed to set reaction")
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
