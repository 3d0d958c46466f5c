package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"watopic/internal/models"
	"watopic/internal/privacy"
	"watopic/internal/validation"
	"watopic/pkg/whatsapp/types"
	"watopic/pkg/workspace"

	"github.com/sirupsen/logrus"
)

const commandPrefix = "!"

// rejectionMessage is the fixed response for unauthorized callers.
const rejectionMessage = "You are not authorized to run bridge commands."

const helpText = `Available commands:
!status - show bridge state and settings
!enable / !disable - master forwarding switch
!set <key> <true|false> - change a setting flag
!send <number> <text> - send a message to a phone number
!sync - refresh the contact directory
!groups - list joined groups
!find <name> - search contacts by name
!revoke - revoke the last message sent into this conversation
!link <jid> - bind this topic to a conversation
!unlink - remove this topic's conversation binding`

// AdminHandler executes the administrative command set accepted from the
// workspace side. Every command is checked against the authorization list
// before any side effect.
type AdminHandler struct {
	adminIDs  map[int64]struct{}
	gate      *SettingsGate
	router    *TopicRouter
	directory *Directory
	pairs     *PairTracker
	waClient  types.Client
	wsClient  workspace.Client
	logger    *logrus.Logger

	mu           sync.Mutex
	lastOutbound map[string]string
}

func NewAdminHandler(adminIDs []int64, gate *SettingsGate, router *TopicRouter, directory *Directory, pairs *PairTracker, wa types.Client, ws workspace.Client, logger *logrus.Logger) *AdminHandler {
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &AdminHandler{
		adminIDs:     ids,
		gate:         gate,
		router:       router,
		directory:    directory,
		pairs:        pairs,
		waClient:     wa,
		wsClient:     ws,
		logger:       logger,
		lastOutbound: make(map[string]string),
	}
}

// IsCommand reports whether the text is an administrative command.
func (a *AdminHandler) IsCommand(text string) bool {
	return strings.HasPrefix(text, commandPrefix)
}

// RecordOutbound remembers the most recent message id delivered into a
// conversation, the target of a later revoke command.
func (a *AdminHandler) RecordOutbound(chatJID, messageID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastOutbound[chatJID] = messageID
}

// Handle parses and executes one command, replying in the topic. All
// responses go to the caller; commands never raise.
func (a *AdminHandler) Handle(ctx context.Context, msg *models.WorkspaceMessage) {
	if _, ok := a.adminIDs[msg.SenderID]; !ok {
		a.logger.WithFields(logrus.Fields{
			"senderId": msg.SenderID,
			"command":  firstWord(msg.Text),
		}).Warn("Rejected unauthorized command")
		a.reply(ctx, msg, rejectionMessage)
		return
	}

	fields := strings.Fields(msg.Text)
	command := strings.TrimPrefix(fields[0], commandPrefix)
	args := fields[1:]

	a.logger.WithFields(logrus.Fields{
		"senderId": msg.SenderID,
		"command":  command,
	}).Info("Executing admin command")

	var response string
	switch command {
	case "status":
		response = a.statusReport(ctx)
	case "enable":
		response = a.setFlag(ctx, models.SettingBridgeEnabled, "true")
	case "disable":
		response = a.setFlag(ctx, models.SettingBridgeEnabled, "false")
	case "set":
		if len(args) != 2 {
			response = "Usage: !set <key> <true|false>"
		} else {
			response = a.setFlag(ctx, args[0], args[1])
		}
	case "send":
		response = a.sendToNumber(ctx, args)
	case "sync":
		response = a.syncContacts(ctx)
	case "groups":
		response = a.listGroups(ctx)
	case "find":
		response = a.findContact(ctx, strings.Join(args, " "))
	case "revoke":
		response = a.revoke(ctx, msg)
	case "link":
		response = a.link(ctx, msg.TopicID, args)
	case "unlink":
		response = a.unlink(ctx, msg.TopicID)
	case "help":
		response = helpText
	default:
		response = fmt.Sprintf("Unknown command %q. Send !help for the command list.", command)
	}

	a.reply(ctx, msg, response)
}

func (a *AdminHandler) statusReport(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("Bridge status\n")

	flags := a.gate.Snapshot(ctx)
	keys := make([]string, 0, len(flags))
	for k := range flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %t\n", k, flags[k])
	}

	mappings, err := a.router.List(ctx)
	if err != nil {
		b.WriteString("  conversations: unavailable\n")
	} else {
		active := 0
		for _, m := range mappings {
			if m.Active {
				active++
			}
		}
		fmt.Fprintf(&b, "  conversations: %d (%d active)\n", len(mappings), active)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *AdminHandler) setFlag(ctx context.Context, key, value string) string {
	if err := a.gate.Set(ctx, key, value); err != nil {
		return fmt.Sprintf("Failed: %v", err)
	}
	return fmt.Sprintf("Set %s to %s.", key, value)
}

func (a *AdminHandler) sendToNumber(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "Usage: !send <number> <text>"
	}
	if err := validation.ValidatePhoneNumber(args[0]); err != nil {
		return fmt.Sprintf("Invalid phone number %q.", args[0])
	}

	number := strings.TrimPrefix(args[0], "+")
	chatJID := strings.TrimSuffix(number, "@c.us") + "@c.us"
	text := strings.Join(args[1:], " ")

	resp, err := a.waClient.SendText(ctx, chatJID, text)
	if err != nil {
		return fmt.Sprintf("Send failed: %v", err)
	}
	a.RecordOutbound(chatJID, resp.MessageID)
	return fmt.Sprintf("Sent to %s.", privacy.MaskPhoneNumber(number))
}

func (a *AdminHandler) syncContacts(ctx context.Context) string {
	count, err := a.directory.SyncAll(ctx)
	if err != nil {
		return fmt.Sprintf("Sync failed after %d records: %v", count, err)
	}
	return fmt.Sprintf("Synced %d directory records.", count)
}

func (a *AdminHandler) listGroups(ctx context.Context) string {
	groups, err := a.waClient.GetJoinedGroups(ctx)
	if err != nil {
		return fmt.Sprintf("Failed to list groups: %v", err)
	}
	if len(groups) == 0 {
		return "No joined groups."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Joined groups (%d):\n", len(groups))
	for i := range groups {
		fmt.Fprintf(&b, "  %s (%s)\n", groups[i].Subject, groups[i].JID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (a *AdminHandler) findContact(ctx context.Context, fragment string) string {
	if fragment == "" {
		return "Usage: !find <name>"
	}

	matches, err := a.directory.FindByName(ctx, fragment)
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}
	if len(matches) == 0 {
		return fmt.Sprintf("No contacts matching %q.", fragment)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matches for %q:\n", fragment)
	for _, m := range matches {
		fmt.Fprintf(&b, "  %s (%s)\n", m.BestName(), m.JID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// revoke deletes a previously bridged message on the source side. Replying
// to a bridged message targets that message through its tracked pair;
// otherwise the most recent outbound message in the conversation is used.
func (a *AdminHandler) revoke(ctx context.Context, msg *models.WorkspaceMessage) string {
	mapping, err := a.router.ReverseResolve(ctx, msg.TopicID)
	if err != nil {
		return "This topic is not bound to a conversation."
	}

	var messageID string
	if msg.ReplyToID != 0 {
		pair := a.pairs.FindByTopicMessage(msg.ReplyToID)
		if pair == nil {
			return "Cannot resolve a message pair for the replied-to message."
		}
		messageID = pair.ChatMessageID
	} else {
		a.mu.Lock()
		messageID = a.lastOutbound[mapping.ChatJID]
		a.mu.Unlock()
		if messageID == "" {
			return "Cannot resolve a message to revoke in this conversation."
		}
	}

	if err := a.waClient.RevokeMessage(ctx, mapping.ChatJID, messageID); err != nil {
		return fmt.Sprintf("Revoke failed: %v", err)
	}

	a.mu.Lock()
	if a.lastOutbound[mapping.ChatJID] == messageID {
		delete(a.lastOutbound, mapping.ChatJID)
	}
	a.mu.Unlock()
	return "Revoked the message."
}

func (a *AdminHandler) link(ctx context.Context, topicID int64, args []string) string {
	if len(args) != 1 {
		return "Usage: !link <jid>"
	}
	chatJID := args[0]
	if !strings.Contains(chatJID, "@") {
		return fmt.Sprintf("Invalid conversation id %q.", chatJID)
	}

	kind := models.ChatKindDirect
	if strings.HasSuffix(chatJID, "@g.us") {
		kind = models.ChatKindGroup
	}

	if err := a.router.Link(ctx, chatJID, topicID, kind, chatJID); err != nil {
		return fmt.Sprintf("Link failed: %v", err)
	}
	return fmt.Sprintf("Linked this topic to %s.", chatJID)
}

func (a *AdminHandler) unlink(ctx context.Context, topicID int64) string {
	mapping, err := a.router.ReverseResolve(ctx, topicID)
	if err != nil {
		return "This topic is not bound to a conversation."
	}
	if err := a.router.Unlink(ctx, mapping.ChatJID); err != nil {
		return fmt.Sprintf("Unlink failed: %v", err)
	}
	return "Unlinked. The next message will create a fresh topic."
}

func (a *AdminHandler) reply(ctx context.Context, msg *models.WorkspaceMessage, text string) {
	if _, err := a.wsClient.SendText(ctx, msg.TopicID, text, &workspace.SendOpts{ReplyTo: msg.MessageID}); err != nil {
		a.logger.WithError(err).Debug("Failed to post command response")
	}
}

func firstWord(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return s
}
