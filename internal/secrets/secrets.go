// Package secrets provides a platform-abstracted store for the opaque
// access token passed through on the channel URL. On macOS the token lives
// in the system Keychain; elsewhere a no-op fallback is used and the token
// has to be supplied through configuration or flags.
package secrets

import "errors"

// Service name used for Halyard credentials in the system keychain.
const ServiceName = "Halyard"

// AccountAccessToken is the account name of the channel access token.
const AccountAccessToken = "access-token"

// ErrNotFound is returned when a credential is not found in the store.
var ErrNotFound = errors.New("credential not found")

// ErrNotSupported is returned when the secret store is not supported on the
// current platform.
var ErrNotSupported = errors.New("secret store not supported on this platform")

// Store provides an interface for secure credential storage.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a password for the given service and account.
	// Returns ErrNotFound if the credential does not exist.
	Get(service, account string) (string, error)

	// Set stores a password for the given service and account,
	// replacing any existing credential.
	Set(service, account, password string) error

	// Delete removes a credential for the given service and account.
	// Returns ErrNotFound if the credential does not exist.
	Delete(service, account string) error

	// IsSupported reports whether this store works on the current platform.
	IsSupported() bool
}

// store is the package-level instance, set by the platform init().
var store Store

// Default returns the Store for the current platform. It always returns a
// valid store; unsupported platforms get a NoopStore.
func Default() Store {
	if store == nil {
		store = &NoopStore{}
	}
	return store
}

// AccessToken retrieves the channel access token.
// Returns ErrNotFound when no token is stored.
func AccessToken() (string, error) {
	return Default().Get(ServiceName, AccountAccessToken)
}

// SetAccessToken stores the channel access token.
func SetAccessToken(token string) error {
	return Default().Set(ServiceName, AccountAccessToken, token)
}

// DeleteAccessToken removes the channel access token.
func DeleteAccessToken() error {
	return Default().Delete(ServiceName, AccountAccessToken)
}

// NoopStore is the fallback store for platforms without secure storage.
type NoopStore struct{}

// Get always returns ErrNotSupported.
func (n *NoopStore) Get(service, account string) (string, error) {
	return "", ErrNotSupported
}

// Set always returns ErrNotSupported.
func (n *NoopStore) Set(service, account, password string) error {
	return ErrNotSupported
}

// Delete always returns ErrNotSupported.
func (n *NoopStore) Delete(service, account string) error {
	return ErrNotSupported
}

// IsSupported returns false.
func (n *NoopStore) IsSupported() bool { return false }
