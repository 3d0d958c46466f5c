package validation

import (
	"fmt"
	"strings"
	"unicode"

	"watopic/internal/constants"
	"watopic/internal/errors"
	"watopic/internal/models"
)

// ValidatePhoneNumber checks the digits of a phone number, with or without
// a leading plus or JID suffix.
func ValidatePhoneNumber(phone string) error {
	if phone == "" {
		return errors.New(errors.ErrCodeInvalidInput, "phone number cannot be empty")
	}

	cleaned := strings.TrimPrefix(phone, "+")
	cleaned = strings.TrimSuffix(cleaned, "@c.us")

	if len(cleaned) < constants.MinPhoneNumberLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("phone number must be at least %d digits", constants.MinPhoneNumberLength))
	}
	if len(cleaned) > constants.MaxPhoneNumberLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("phone number too long (max %d digits)", constants.MaxPhoneNumberLength))
	}

	for _, char := range cleaned {
		if !unicode.IsDigit(char) {
			return errors.New(errors.ErrCodeInvalidInput, "phone number must contain only digits")
		}
	}
	return nil
}

// ValidateJID checks the shape of a conversation identifier. Reserved
// pseudo-conversation identifiers are always valid.
func ValidateJID(jid string) error {
	if jid == models.StatusBroadcastJID || jid == models.CallLogJID {
		return nil
	}

	local, domain, ok := strings.Cut(jid, "@")
	if !ok || local == "" {
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("malformed conversation id: %q", jid))
	}

	switch domain {
	case "c.us":
		return ValidatePhoneNumber(local)
	case "g.us":
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("unknown conversation domain: %q", domain))
	}
}

// ValidateMessageID bounds an opaque source-side message id.
func ValidateMessageID(messageID string) error {
	if messageID == "" {
		return errors.New(errors.ErrCodeInvalidInput, "message ID cannot be empty")
	}
	if len(messageID) > constants.MaxMessageIDLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("message ID too long (max %d characters)", constants.MaxMessageIDLength))
	}
	return nil
}

// ValidateSourceEvent rejects events that could not be processed or that
// carry ids outside the accepted shape. Exactly one payload must be set.
func ValidateSourceEvent(ev *models.SourceEvent) error {
	set := 0
	if ev.Message != nil {
		set++
	}
	if ev.Call != nil {
		set++
	}
	if ev.Status != nil {
		set++
	}
	if ev.ContactChange != nil {
		set++
	}
	if set != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "event must carry exactly one payload")
	}

	switch {
	case ev.Message != nil:
		if err := ValidateMessageID(ev.Message.MessageID); err != nil {
			return err
		}
		return ValidateJID(ev.Message.ChatJID)
	case ev.Call != nil:
		if ev.Call.CallID == "" {
			return errors.New(errors.ErrCodeInvalidInput, "call event missing call ID")
		}
		return ValidateJID(ev.Call.FromJID)
	case ev.Status != nil:
		if ev.Status.StatusID == "" {
			return errors.New(errors.ErrCodeInvalidInput, "status event missing status ID")
		}
		return ValidateJID(ev.Status.AuthorJID)
	default:
		return ValidateJID(ev.ContactChange.JID)
	}
}

// ValidateWorkspaceMessage rejects workspace events without an addressable
// origin.
func ValidateWorkspaceMessage(msg *models.WorkspaceMessage) error {
	if msg.MessageID == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workspace message missing id")
	}
	if msg.TopicID == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "workspace message missing topic id")
	}
	if msg.Text == "" && msg.FileID == "" && msg.ContactName == "" {
		return errors.New(errors.ErrCodeInvalidInput, "workspace message has no content")
	}
	if len(msg.Text) > constants.MaxTextLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("message text too long (max %d characters)", constants.MaxTextLength))
	}
	return nil
}
