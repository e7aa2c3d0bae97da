// Package keyring provides secure credential storage.
// It uses the system keyring when available, falling back to
// encrypted local file storage when not.
package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"github.com/yllada/ovpnctl/common"
)

const (
	// serviceName is the identifier used in the system keyring.
	serviceName = "ovpnctl"
	// accountName is the single entry holding the OpenVPN credential pair.
	accountName = "openvpn-credentials"
	// keySalt seasons the derived local encryption key.
	keySalt = "ovpnctl-credential-store"
	// keyIterations is the PBKDF2 round count for the local key.
	keyIterations = 4096
)

// Storage backend state
var (
	useLocalStorage bool
	localStoreMu    sync.RWMutex
	localCreds      *common.Credentials
	localStoreFile  string
	encryptionKey   []byte
	initialized     bool
)

// init initializes the storage backend
func init() {
	initStorage()
}

func initStorage() {
	if initialized {
		return
	}

	// Try system keyring first
	testKey := "ovpnctl-test-init"
	err := keyring.Set(serviceName, testKey, "test")
	if err == nil {
		keyring.Delete(serviceName, testKey)
		useLocalStorage = false
	} else {
		useLocalStorage = true
		initLocalStorage()
	}
	initialized = true
}

func initLocalStorage() {
	homeDir, _ := os.UserHomeDir()
	configDir := filepath.Join(homeDir, ".config", common.ConfigDirName)
	os.MkdirAll(configDir, 0700)
	localStoreFile = filepath.Join(configDir, common.CredentialsFileName)

	// Derive the encryption key from machine-specific data
	hostname, _ := os.Hostname()
	machineID := getMachineID()
	keyData := fmt.Sprintf("ovpnctl-%s-%s-%d", hostname, machineID, os.Getuid())
	encryptionKey = pbkdf2.Key([]byte(keyData), []byte(keySalt), keyIterations, 32, sha256.New)

	loadLocalStore()
}

func getMachineID() string {
	// Try to read machine-id
	data, err := os.ReadFile("/etc/machine-id")
	if err == nil {
		return strings.TrimSpace(string(data))
	}
	// Fallback
	return "default-machine-id"
}

func loadLocalStore() {
	data, err := os.ReadFile(localStoreFile)
	if err != nil {
		return
	}

	decrypted, err := decrypt(data)
	if err != nil {
		return
	}

	var creds common.Credentials
	if err := json.Unmarshal(decrypted, &creds); err != nil {
		return
	}

	localStoreMu.Lock()
	localCreds = &creds
	localStoreMu.Unlock()
}

func saveLocalStore() error {
	localStoreMu.RLock()
	creds := localCreds
	localStoreMu.RUnlock()

	if creds == nil {
		return os.Remove(localStoreFile)
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	encrypted, err := encrypt(data)
	if err != nil {
		return err
	}

	return os.WriteFile(localStoreFile, encrypted, 0600)
}

func encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(ciphertext)), nil
}

func decrypt(data []byte) ([]byte, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// Save stores the OpenVPN credential pair.
func Save(creds common.Credentials) error {
	if creds.Username == "" {
		return errors.New("username cannot be empty")
	}
	if creds.Password == "" {
		return errors.New("password cannot be empty")
	}

	if useLocalStorage {
		localStoreMu.Lock()
		localCreds = &creds
		localStoreMu.Unlock()
		return saveLocalStore()
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := keyring.Set(serviceName, accountName, string(data)); err != nil {
		// Fallback to local storage
		useLocalStorage = true
		initLocalStorage()
		localStoreMu.Lock()
		localCreds = &creds
		localStoreMu.Unlock()
		return saveLocalStore()
	}
	return nil
}

// Load retrieves the stored OpenVPN credential pair.
func Load() (common.Credentials, error) {
	if useLocalStorage {
		localStoreMu.RLock()
		creds := localCreds
		localStoreMu.RUnlock()
		if creds == nil {
			return common.Credentials{}, common.ErrCredentialsNotFound
		}
		return *creds, nil
	}

	data, err := keyring.Get(serviceName, accountName)
	if err != nil {
		if err == keyring.ErrNotFound {
			return common.Credentials{}, common.ErrCredentialsNotFound
		}
		// Try local storage as fallback
		localStoreMu.RLock()
		creds := localCreds
		localStoreMu.RUnlock()
		if creds != nil {
			return *creds, nil
		}
		return common.Credentials{}, common.ErrCredentialsNotFound
	}

	var creds common.Credentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return common.Credentials{}, common.WrapError(err, "corrupt keyring entry")
	}
	return creds, nil
}

// Delete removes the stored OpenVPN credential pair.
func Delete() error {
	if useLocalStorage {
		localStoreMu.Lock()
		localCreds = nil
		localStoreMu.Unlock()
		if err := saveLocalStore(); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}

	keyring.Delete(serviceName, accountName)

	// Also remove from local storage if present
	localStoreMu.Lock()
	localCreds = nil
	localStoreMu.Unlock()
	if localStoreFile != "" {
		os.Remove(localStoreFile)
	}

	return nil
}

// Exists checks if a credential pair is stored.
func Exists() bool {
	_, err := Load()
	return err == nil
}

// Store adapts the package functions to common.CredentialStore.
type Store struct{}

func (Store) Save(creds common.Credentials) error { return Save(creds) }
func (Store) Load() (common.Credentials, error)   { return Load() }
func (Store) Delete() error                       { return Delete() }
func (Store) Exists() bool                        { return Exists() }

var _ common.CredentialStore = Store{}
