// ABOUTME: Optional end-to-end encryption for the Matrix bridge
// ABOUTME: Wraps mautrix cryptohelper and resets the store when the device changes

package matrix

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/crypto/cryptohelper"
)

// CryptoManager owns the bridge's encryption state.
type CryptoManager struct {
	helper *cryptohelper.CryptoHelper
	logger *slog.Logger
}

// SetupCrypto enables encryption on client with keys kept in dbPath. The
// client must be logged in. Cross-signing is verified when recoveryKey is set;
// a failed verification is logged and encryption stays on.
func SetupCrypto(ctx context.Context, client *mautrix.Client, recoveryKey, dbPath string, logger *slog.Logger) (*CryptoManager, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating crypto directory: %w", err)
	}
	logger.Info("setting up encryption", "db", dbPath, "device_id", client.DeviceID.String())

	helper, err := initCryptoHelper(ctx, client, deriveStoreKey(client.UserID.String()), dbPath, logger)
	if err != nil {
		return nil, err
	}
	client.Crypto = helper

	cm := &CryptoManager{helper: helper, logger: logger}
	if recoveryKey == "" {
		logger.Info("encryption initialized (no recovery key - cross-signing disabled)")
		return cm, nil
	}
	if err := cm.verifyWithRecoveryKey(ctx, recoveryKey); err != nil {
		logger.Warn("failed to verify with recovery key", "error", err)
	} else {
		logger.Info("encryption initialized with cross-signing verification")
	}
	return cm, nil
}

func (cm *CryptoManager) verifyWithRecoveryKey(ctx context.Context, recoveryKey string) error {
	machine := cm.helper.Machine()
	if machine == nil {
		return fmt.Errorf("crypto machine not initialized")
	}
	if err := machine.VerifyWithRecoveryKey(ctx, recoveryKey); err != nil {
		return fmt.Errorf("recovery key verification failed: %w", err)
	}
	return nil
}

// Close releases the crypto store.
func (cm *CryptoManager) Close() error {
	if cm.helper != nil {
		return cm.helper.Close()
	}
	return nil
}

// deriveStoreKey gives each account its own pickle key for the store.
func deriveStoreKey(userID string) []byte {
	h := sha256.Sum256([]byte("coven-bot-crypto:" + userID))
	return h[:]
}

func initCryptoHelper(ctx context.Context, client *mautrix.Client, storeKey []byte, dbPath string, logger *slog.Logger) (*cryptohelper.CryptoHelper, error) {
	// Checked before the helper opens the database so the file is not locked.
	if needsReset, err := checkDeviceIDMismatch(dbPath, client.DeviceID.String()); err != nil {
		logger.Debug("could not check device ID", "error", err)
	} else if needsReset {
		logger.Warn("device ID mismatch detected, resetting crypto database")
		if err := resetCryptoDatabase(dbPath); err != nil {
			return nil, err
		}
	}

	helper, err := cryptohelper.NewCryptoHelper(client, storeKey, dbPath)
	if err != nil {
		return nil, fmt.Errorf("creating crypto helper: %w", err)
	}
	if err := helper.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing crypto helper: %w", err)
	}
	return helper, nil
}

func resetCryptoDatabase(dbPath string) error {
	if err := os.Remove(dbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing old crypto database: %w", err)
	}
	_ = os.Remove(dbPath + "-wal")
	_ = os.Remove(dbPath + "-shm")
	return nil
}

// checkDeviceIDMismatch reports whether dbPath holds keys for a device other
// than currentDeviceID. A missing database or empty account is no mismatch.
func checkDeviceIDMismatch(dbPath, currentDeviceID string) (bool, error) {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return false, err
	}
	defer db.Close()

	var stored string
	err = db.QueryRow("SELECT device_id FROM crypto_account LIMIT 1").Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored != currentDeviceID, nil
}
