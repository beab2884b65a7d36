package credstore

import (
	"errors"
	"strconv"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "attendify-kiosk"
	keyToken       = "token"
	keyConsent     = "consent"
)

// keyringStore keeps credentials in the OS keyring (Secret Service,
// Keychain, or Credential Manager depending on platform).
type keyringStore struct{}

func (keyringStore) Token() (string, error) {
	tok, err := keyring.Get(keyringService, keyToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

func (keyringStore) SetToken(token string) error {
	return keyring.Set(keyringService, keyToken, token)
}

func (keyringStore) ClearToken() error {
	err := keyring.Delete(keyringService, keyToken)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func (keyringStore) Consent() (bool, error) {
	raw, err := keyring.Get(keyringService, keyConsent)
	if errors.Is(err, keyring.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(raw)
}

func (keyringStore) SetConsent(consent bool) error {
	return keyring.Set(keyringService, keyConsent, strconv.FormatBool(consent))
}

// Layered writes secure storage first and falls back to the plain store
// when the secure backend fails. Reads prefer the secure store and fall
// through to the plain one, so credentials written before a keyring became
// available are still found.
type Layered struct {
	secure Store
	plain  Store
}

// NewLayered composes a secure-first store over a plain fallback.
func NewLayered(secure, plain Store) *Layered {
	return &Layered{secure: secure, plain: plain}
}

// Open returns the default credential store: OS keyring with a JSON file
// fallback under the user config directory.
func Open() (Store, error) {
	path, err := DefaultFilePath()
	if err != nil {
		return nil, err
	}
	return NewLayered(keyringStore{}, NewFile(path)), nil
}

func (l *Layered) Token() (string, error) {
	if tok, err := l.secure.Token(); err == nil && tok != "" {
		return tok, nil
	}
	return l.plain.Token()
}

func (l *Layered) SetToken(token string) error {
	if err := l.secure.SetToken(token); err == nil {
		// Reads fall through to the plain layer, so a stale copy written
		// while the keyring was unavailable must not shadow this token.
		_ = l.plain.ClearToken()
		return nil
	}
	return l.plain.SetToken(token)
}

func (l *Layered) ClearToken() error {
	// Clear both layers; the token must not survive logout in either.
	secureErr := l.secure.ClearToken()
	plainErr := l.plain.ClearToken()
	if secureErr != nil && plainErr != nil {
		return secureErr
	}
	return nil
}

func (l *Layered) Consent() (bool, error) {
	if consent, err := l.secure.Consent(); err == nil && consent {
		return true, nil
	}
	return l.plain.Consent()
}

func (l *Layered) SetConsent(consent bool) error {
	// Consent reads fall through to the plain layer when the secure flag is
	// unset, so both layers must carry the flag or a stale plain true would
	// shadow a later revocation.
	secureErr := l.secure.SetConsent(consent)
	plainErr := l.plain.SetConsent(consent)
	if secureErr != nil && plainErr != nil {
		return secureErr
	}
	return nil
}
