package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey("0x"+devKeyHex, "correct horse")
	require.NoError(t, err)

	// The private key never appears in the stored blob.
	assert.NotContains(t, string(blob), devKeyHex)

	var stored struct {
		Version int `json:"version"`
	}
	require.NoError(t, json.Unmarshal(blob, &stored))
	assert.Equal(t, 1, stored.Version)

	got, err := DecryptKey(blob, "correct horse")
	require.NoError(t, err)
	assert.Equal(t, devKeyHex, got)
}

func TestDecryptKeyWrongPassphrase(t *testing.T) {
	blob, err := EncryptKey(devKeyHex, "right")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestEncryptKeyValidatesInput(t *testing.T) {
	_, err := EncryptKey(devKeyHex, "")
	require.Error(t, err)

	_, err = EncryptKey("zzzz", "pass")
	require.Error(t, err)

	_, err = EncryptKey("abcd", "pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 32-byte key")
}

func TestLoadKeyPrefersRawKey(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + devKeyHex})
	require.NoError(t, err)
	assert.Equal(t, devKeyHex, got)

	_, err = LoadKey(KeyConfig{RawPrivateKey: "not-hex"})
	require.Error(t, err)
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(devKeyHex, "file-pass")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, Passphrase: "file-pass"})
	require.NoError(t, err)
	assert.Equal(t, devKeyHex, got)

	_, err = LoadKey(KeyConfig{EncryptedKeyPath: filepath.Join(t.TempDir(), "missing.json"), Passphrase: "x"})
	require.Error(t, err)
}

func TestLoadKeyRequiresASource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no private key source")
}
