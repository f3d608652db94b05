package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "taskeer"

// TokenKey is the credential key under which the Taskeer auth token is
// stored. It matches the web client's local-storage key.
const TokenKey = "auth_token"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/taskeer/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("taskeer-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// LoadToken returns the auth token from the keyring, falling back to the
// provided store when the keyring is unavailable (headless machines).
// An empty string means no token is stored anywhere.
func LoadToken(fallback TokenStore) string {
	if token, err := Get(TokenKey); err == nil && token != "" {
		return token
	}
	if fallback == nil {
		return ""
	}
	token, err := fallback.Token()
	if err != nil {
		return ""
	}
	return token
}

// SaveToken writes the auth token to the keyring and mirrors it into the
// fallback store so the pipeline can read it synchronously.
func SaveToken(token string, fallback TokenStore) error {
	if err := Set(TokenKey, token); err != nil && fallback == nil {
		return err
	}
	if fallback != nil {
		return fallback.SetToken(token)
	}
	return nil
}

// TokenStore is the subset of the local store used for token fallback.
type TokenStore interface {
	Token() (string, error)
	SetToken(token string) error
}
