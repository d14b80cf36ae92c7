// ABOUTME: Tests for the crypto store helpers
// ABOUTME: Uses a throwaway sqlite file shaped like the mautrix crypto_account table

package matrix

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCryptoAccount(t *testing.T, path, deviceID string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("CREATE TABLE crypto_account (account_id TEXT PRIMARY KEY, device_id TEXT)")
	require.NoError(t, err)
	if deviceID != "" {
		_, err = db.Exec("INSERT INTO crypto_account VALUES ('bot', ?)", deviceID)
		require.NoError(t, err)
	}
}

func TestCheckDeviceIDMismatch(t *testing.T) {
	dir := t.TempDir()

	t.Run("no database", func(t *testing.T) {
		mismatch, err := checkDeviceIDMismatch(filepath.Join(dir, "missing.db"), "DEV1")
		require.NoError(t, err)
		assert.False(t, mismatch)
	})

	t.Run("no account", func(t *testing.T) {
		path := filepath.Join(dir, "empty.db")
		seedCryptoAccount(t, path, "")
		mismatch, err := checkDeviceIDMismatch(path, "DEV1")
		require.NoError(t, err)
		assert.False(t, mismatch)
	})

	t.Run("same device", func(t *testing.T) {
		path := filepath.Join(dir, "same.db")
		seedCryptoAccount(t, path, "DEV1")
		mismatch, err := checkDeviceIDMismatch(path, "DEV1")
		require.NoError(t, err)
		assert.False(t, mismatch)
	})

	t.Run("other device", func(t *testing.T) {
		path := filepath.Join(dir, "other.db")
		seedCryptoAccount(t, path, "DEV0")
		mismatch, err := checkDeviceIDMismatch(path, "DEV1")
		require.NoError(t, err)
		assert.True(t, mismatch)

		require.NoError(t, resetCryptoDatabase(path))
		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})
}

func TestDeriveStoreKey(t *testing.T) {
	a := deriveStoreKey("@bot:example.org")
	assert.Len(t, a, 32)
	assert.Equal(t, a, deriveStoreKey("@bot:example.org"))
	assert.NotEqual(t, a, deriveStoreKey("@other:example.org"))
}
