package privacy

import (
	"strings"

	"watopic/internal/constants"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits.
// Example: "+1234567890" -> "+******7890"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	keep := constants.DefaultPhoneMaskLength
	if strings.HasPrefix(phone, "+") {
		digits := phone[1:]
		if len(digits) <= keep {
			return "+" + strings.Repeat("*", len(digits))
		}
		return "+" + strings.Repeat("*", len(digits)-keep) + digits[len(digits)-keep:]
	}

	if len(phone) <= keep {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-keep) + phone[len(phone)-keep:]
}

// MaskJID masks the local part of a source conversation id while keeping
// the server suffix visible. Example: "1234567890@c.us" -> "****7890@c.us"
func MaskJID(jid string) string {
	if jid == "" {
		return ""
	}

	at := strings.Index(jid, "@")
	if at < 0 {
		return MaskPhoneNumber(jid)
	}

	local, domain := jid[:at], jid[at:]
	keep := constants.DefaultPhoneMaskLength
	if len(local) <= keep {
		return strings.Repeat("*", len(local)) + domain
	}
	return strings.Repeat("*", len(local)-keep) + local[len(local)-keep:] + domain
}

// MaskMessageID truncates a message id for logging.
func MaskMessageID(id string) string {
	if len(id) <= constants.DefaultMessageIDLength {
		return id
	}
	return id[:constants.DefaultMessageIDLength] + "..."
}
