package vcard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalParseRoundTrip(t *testing.T) {
	card := Card{FullName: "Alice Smith", PhoneNumber: "+1234567890"}

	parsed, err := Parse(card.Marshal())
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", parsed.FullName)
	assert.Equal(t, "+1234567890", parsed.PhoneNumber)
}

func TestParseRealWorldCard(t *testing.T) {
	text := "BEGIN:VCARD\r\nVERSION:3.0\r\nN:Smith;Alice;;;\r\nFN:Alice Smith\r\nTEL;TYPE=CELL;waid=1234567890:+1 234 567 890\r\nEND:VCARD\r\n"

	card, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", card.FullName)
	assert.Equal(t, "+1 234 567 890", card.PhoneNumber)
}

func TestParseTakesFirstTelephone(t *testing.T) {
	text := "BEGIN:VCARD\nFN:Alice\nTEL;TYPE=CELL:+111\nTEL;TYPE=HOME:+222\nEND:VCARD"

	card, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "+111", card.PhoneNumber)
}

func TestMarshalEscapesSpecialCharacters(t *testing.T) {
	card := Card{FullName: "Smith; Alice, Jr."}
	text := card.Marshal()
	assert.Contains(t, text, "FN:Smith\\; Alice\\, Jr.")

	parsed, err := Parse(text)
	require.NoError(t, err)
	assert.Equal(t, "Smith; Alice, Jr.", parsed.FullName)
}

func TestParseRejectsNonCard(t *testing.T) {
	_, err := Parse("just some text")
	assert.Error(t, err)
}

func TestParseRejectsEmptyCard(t *testing.T) {
	_, err := Parse("BEGIN:VCARD\nVERSION:3.0\nEND:VCARD")
	assert.Error(t, err)
}
