package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestEncryptionDisabledPassesThrough(t *testing.T) {
	enc, err := NewEncryptor()
	require.NoError(t, err)

	out, err := enc.EncryptIfEnabled("1234567890@c.us")
	require.NoError(t, err)
	assert.Equal(t, "1234567890@c.us", out)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Setenv("WATOPIC_ENABLE_ENCRYPTION", "true")
	t.Setenv("WATOPIC_ENCRYPTION_SECRET", testSecret)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("1234567890@c.us")
	require.NoError(t, err)
	assert.NotEqual(t, "1234567890@c.us", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "1234567890@c.us", plaintext)
}

func TestEncryptForLookupIsDeterministic(t *testing.T) {
	t.Setenv("WATOPIC_ENABLE_ENCRYPTION", "true")
	t.Setenv("WATOPIC_ENCRYPTION_SECRET", testSecret)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	first, err := enc.EncryptForLookup("1234567890@c.us")
	require.NoError(t, err)
	second, err := enc.EncryptForLookup("1234567890@c.us")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	random1, err := enc.Encrypt("1234567890@c.us")
	require.NoError(t, err)
	random2, err := enc.Encrypt("1234567890@c.us")
	require.NoError(t, err)
	assert.NotEqual(t, random1, random2)
}

func TestEncryptionRequiresSecret(t *testing.T) {
	t.Setenv("WATOPIC_ENABLE_ENCRYPTION", "true")
	t.Setenv("WATOPIC_ENCRYPTION_SECRET", "")

	_, err := NewEncryptor()
	assert.Error(t, err)

	t.Setenv("WATOPIC_ENCRYPTION_SECRET", "too-short")
	_, err = NewEncryptor()
	assert.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	t.Setenv("WATOPIC_ENABLE_ENCRYPTION", "true")
	t.Setenv("WATOPIC_ENCRYPTION_SECRET", testSecret)

	enc, err := NewEncryptor()
	require.NoError(t, err)

	_, err = enc.Decrypt("bm90IHJlYWwgY2lwaGVydGV4dCBhdCBhbGwsIHNvcnJ5")
	assert.Error(t, err)
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	t.Setenv("WATOPIC_ENABLE_ENCRYPTION", "true")
	t.Setenv("WATOPIC_ENCRYPTION_SECRET", testSecret)

	db, err := New(filepath.Join(t.TempDir(), "enc.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.SaveMapping(ctx, testMapping("1234567890@c.us", 42)))

	got, err := db.GetMapping(ctx, "1234567890@c.us")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "1234567890@c.us", got.ChatJID)
}
