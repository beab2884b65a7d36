package cmd

import (
	"errors"
	"fmt"

	"github.com/attendify/kiosk/internal/attendify"
	"github.com/attendify/kiosk/internal/config"
	"github.com/attendify/kiosk/internal/credstore"
	"github.com/attendify/kiosk/internal/session"
)

// newSessionController wires the credential store, remote client, and
// session controller that nearly every command needs.
func newSessionController() (*session.Controller, *attendify.Client, *config.Config, error) {
	cfg := config.Load()
	if cfg.Attendify.URL == "" {
		return nil, nil, nil, errors.New("ATTENDIFY_URL environment variable is required")
	}

	store, err := credstore.Open()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not open credential store: %w", err)
	}

	client, err := attendify.NewWithTimeout(cfg.Attendify.URL, store, cfg.Attendify.Timeout)
	if err != nil {
		return nil, nil, nil, err
	}

	sess, err := session.NewController(store, client)
	if err != nil {
		return nil, nil, nil, err
	}

	return sess, client, cfg, nil
}

// requireGate fails with a helpful message when the session is not yet in
// the needed mode.
func requireGate(sess *session.Controller, gate session.Gate) error {
	current := sess.Gate()
	if current == gate {
		return nil
	}
	switch current {
	case session.GateConsentPending:
		return errors.New("biometric consent has not been accepted; run 'attendify-kiosk consent accept' first")
	case session.GateUnauthenticated:
		return errors.New("not logged in; run 'attendify-kiosk login' first")
	default:
		return fmt.Errorf("session gate is %s, need %s", current, gate)
	}
}
