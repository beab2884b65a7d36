// Package credstore persists the two durable client values: the bearer
// token and the consent flag. Writes go to the OS keyring first and fall
// back to a plain JSON file when no keyring backend is usable.
package credstore

// Store is the credential persistence boundary. Reads and writes are
// atomic per key and survive process restart.
type Store interface {
	Token() (string, error)
	SetToken(token string) error
	ClearToken() error
	Consent() (bool, error)
	SetConsent(consent bool) error
}
