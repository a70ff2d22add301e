package secrets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxEncryptor_EncryptDecryptRoundTrip(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	enc, err := newBoxEncryptor(key)
	require.NoError(t, err)

	ct, err := enc.Encrypt([]byte("super secret"))
	require.NoError(t, err)

	pt, err := enc.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "super secret", string(pt))
}

func TestBoxEncryptor_DecryptTamperedCiphertextFails(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	enc, err := newBoxEncryptor(key)
	require.NoError(t, err)

	ct, err := enc.Encrypt([]byte("super secret"))
	require.NoError(t, err)
	ct[len(ct)-1] ^= 0xFF

	_, err = enc.Decrypt(ct)
	assert.True(t, errors.Is(err, ErrInvalidCiphertext))
}

func TestBoxEncryptor_RejectsWrongKeySize(t *testing.T) {
	_, err := newBoxEncryptor([]byte("too-short"))
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestBoxEncryptor_StringRoundTrip(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	enc, err := newBoxEncryptor(key)
	require.NoError(t, err)

	ct, err := enc.EncryptString("hello")
	require.NoError(t, err)
	pt, err := enc.DecryptString(ct)
	require.NoError(t, err)
	assert.Equal(t, "hello", pt)
}

func TestBoxEncryptor_EmptyStringRoundTrip(t *testing.T) {
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	enc, err := newBoxEncryptor(key)
	require.NoError(t, err)

	ct, err := enc.EncryptString("")
	require.NoError(t, err)
	assert.Empty(t, ct)

	pt, err := enc.DecryptString("")
	require.NoError(t, err)
	assert.Empty(t, pt)
}
