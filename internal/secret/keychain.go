package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const keychainService = "csvhouse"

// notFoundExit is the exit code of `security` when no item matches.
const notFoundExit = 44

// KeychainStore implements SecretStore using the macOS Keychain
// via the `security` CLI tool.
type KeychainStore struct {
	// Service groups csvhouse entries in the keychain. Defaults to "csvhouse".
	Service string
}

// NewKeychainStore creates a new KeychainStore.
func NewKeychainStore() *KeychainStore {
	return &KeychainStore{Service: keychainService}
}

func (k *KeychainStore) service() string {
	if k.Service == "" {
		return keychainService
	}
	return k.Service
}

func (k *KeychainStore) security(args ...string) (*exec.Cmd, error) {
	bin, err := exec.LookPath("security")
	if err != nil {
		return nil, fmt.Errorf("keychain unavailable: %w", err)
	}
	return exec.Command(bin, args...), nil
}

// Set stores a secret in the macOS Keychain, replacing any previous value.
func (k *KeychainStore) Set(key string, value []byte) error {
	cmd, err := k.security("add-generic-password",
		"-a", key,
		"-s", k.service(),
		"-w", string(value),
		"-U", // update if exists
	)
	if err != nil {
		return err
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("keychain set: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Get retrieves a secret from the macOS Keychain.
// Returns empty slice and nil error if the key doesn't exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	cmd, err := k.security("find-generic-password",
		"-a", key,
		"-s", k.service(),
		"-w", // output only the password
	)
	if err != nil {
		return nil, err
	}
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == notFoundExit {
			return nil, nil
		}
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Delete removes a secret from the macOS Keychain. A missing key is not
// an error.
func (k *KeychainStore) Delete(key string) error {
	cmd, err := k.security("delete-generic-password",
		"-a", key,
		"-s", k.service(),
	)
	if err != nil {
		return err
	}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == notFoundExit {
			return nil
		}
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}
