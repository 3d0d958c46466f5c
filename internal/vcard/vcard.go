// Package vcard builds and parses the minimal vCard 3.0 subset used for
// contact exchange between the two networks.
package vcard

import (
	"fmt"
	"strings"
)

// Card is a parsed contact card.
type Card struct {
	FullName    string
	PhoneNumber string
}

// Marshal renders the card as vCard text.
func (c Card) Marshal() string {
	var b strings.Builder
	b.WriteString("BEGIN:VCARD\n")
	b.WriteString("VERSION:3.0\n")
	fmt.Fprintf(&b, "FN:%s\n", escape(c.FullName))
	fmt.Fprintf(&b, "N:%s;;;;\n", escape(c.FullName))
	if c.PhoneNumber != "" {
		fmt.Fprintf(&b, "TEL;TYPE=CELL:%s\n", c.PhoneNumber)
	}
	b.WriteString("END:VCARD\n")
	return b.String()
}

// Parse extracts the full name and first telephone number from vCard text.
func Parse(text string) (Card, error) {
	var card Card
	seenBegin := false

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.EqualFold(line, "BEGIN:VCARD"):
			seenBegin = true
		case strings.HasPrefix(strings.ToUpper(line), "FN:"):
			card.FullName = unescape(line[3:])
		case strings.HasPrefix(strings.ToUpper(line), "TEL"):
			if idx := strings.Index(line, ":"); idx >= 0 && card.PhoneNumber == "" {
				card.PhoneNumber = strings.TrimSpace(line[idx+1:])
			}
		}
	}

	if !seenBegin {
		return Card{}, fmt.Errorf("not a vCard")
	}
	if card.FullName == "" && card.PhoneNumber == "" {
		return Card{}, fmt.Errorf("vCard has no name or number")
	}

	return card, nil
}

func escape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", ";", "\\;", ",", "\\,", "\n", "\\n")
	return r.Replace(s)
}

func unescape(s string) string {
	r := strings.NewReplacer("\\\\", "\\", "\\;", ";", "\\,", ",", "\\n", "\n")
	return r.Replace(s)
}
