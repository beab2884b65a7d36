// Package session owns the client-wide session state and the coarse gate
// deciding which features are reachable: consent pending, unauthenticated,
// or authenticated with a role. All mutation goes through the Controller;
// other components only read.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/attendify/kiosk/internal/attendify"
	"github.com/attendify/kiosk/internal/credstore"
	"github.com/attendify/kiosk/internal/events"
)

// Gate is the top-level mode the rest of the client may run in.
type Gate int

const (
	GateConsentPending Gate = iota
	GateUnauthenticated
	GateAuthenticated
)

func (g Gate) String() string {
	switch g {
	case GateConsentPending:
		return "consent_pending"
	case GateUnauthenticated:
		return "unauthenticated"
	default:
		return "authenticated"
	}
}

// Event is emitted on every gate change.
type Event struct {
	ID   string `json:"id"`
	Gate Gate   `json:"gate"`
	Role Role   `json:"role,omitempty"`
}

// ErrLoginRejected is returned by Login when the backend rejected the
// credentials at the application level.
var ErrLoginRejected = errors.New("login rejected")

// Controller composes the credential store into the session gate and is
// the single writer of session state.
type Controller struct {
	store  credstore.Store
	client *attendify.Client

	mu      sync.Mutex
	token   string
	consent bool
	role    Role

	broadcaster *events.Broadcaster[Event]
}

// NewController reads the credential store and builds the initial session.
func NewController(store credstore.Store, client *attendify.Client) (*Controller, error) {
	token, err := store.Token()
	if err != nil {
		return nil, fmt.Errorf("could not read stored token: %w", err)
	}
	consent, err := store.Consent()
	if err != nil {
		return nil, fmt.Errorf("could not read stored consent: %w", err)
	}
	c := &Controller{
		store:       store,
		client:      client,
		token:       token,
		consent:     consent,
		broadcaster: events.NewBroadcaster[Event](events.DefaultBuffer),
	}
	if token != "" {
		// Decode failure falls back to the least-privileged role.
		c.role, _ = DecodeRole(token)
	}
	return c, nil
}

// Gate returns the current gate.
func (c *Controller) Gate() Gate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gateLocked()
}

func (c *Controller) gateLocked() Gate {
	if !c.consent {
		return GateConsentPending
	}
	if c.token == "" {
		return GateUnauthenticated
	}
	return GateAuthenticated
}

// Role returns the derived role. Only meaningful when the gate is
// GateAuthenticated.
func (c *Controller) Role() Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// Subscribe returns a channel of gate change events.
func (c *Controller) Subscribe() chan Event {
	return c.broadcaster.AddListener()
}

// Unsubscribe releases a channel obtained from Subscribe.
func (c *Controller) Unsubscribe(ch chan Event) {
	c.broadcaster.RemoveListener(ch)
}

func (c *Controller) emitLocked() {
	c.broadcaster.Send(Event{
		ID:   uuid.NewString(),
		Gate: c.gateLocked(),
		Role: c.role,
	})
}

// AcceptConsent persists the consent flag and recomputes the gate. The
// backend is informed best-effort; a remote failure does not undo the
// local flag, which is the source of truth for gating.
func (c *Controller) AcceptConsent(ctx context.Context) error {
	if err := c.store.SetConsent(true); err != nil {
		return fmt.Errorf("could not persist consent: %w", err)
	}

	c.mu.Lock()
	c.consent = true
	c.emitLocked()
	authenticated := c.token != ""
	c.mu.Unlock()

	if authenticated && c.client != nil {
		_, _ = c.client.UpdateConsent(ctx, true)
	}
	return nil
}

// RevokeConsent clears the consent flag, which drops the gate back to
// GateConsentPending.
func (c *Controller) RevokeConsent(ctx context.Context) error {
	c.mu.Lock()
	authenticated := c.token != ""
	c.mu.Unlock()

	if authenticated && c.client != nil {
		_, _ = c.client.UpdateConsent(ctx, false)
	}

	if err := c.store.SetConsent(false); err != nil {
		return fmt.Errorf("could not persist consent: %w", err)
	}

	c.mu.Lock()
	c.consent = false
	c.emitLocked()
	c.mu.Unlock()
	return nil
}

// Login delegates to the remote client. On success the gate is recomputed
// from the new token; on any failure the gate is unchanged and the error
// is surfaced for display.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	if c.client == nil {
		return errors.New("no remote client configured")
	}
	resp, err := c.client.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	if resp.AccessToken == "" {
		if resp.Error != "" {
			return fmt.Errorf("%w: %s", ErrLoginRejected, resp.Error)
		}
		return fmt.Errorf("%w: no token in response", ErrLoginRejected)
	}

	role, _ := DecodeRole(resp.AccessToken)

	c.mu.Lock()
	c.token = resp.AccessToken
	c.role = role
	c.emitLocked()
	c.mu.Unlock()
	return nil
}

// Logout clears the stored token and recomputes the gate.
func (c *Controller) Logout() error {
	if err := c.store.ClearToken(); err != nil {
		return fmt.Errorf("could not clear token: %w", err)
	}

	c.mu.Lock()
	c.token = ""
	c.role = ""
	c.emitLocked()
	c.mu.Unlock()
	return nil
}

// Close releases the event broadcaster.
func (c *Controller) Close() {
	c.broadcaster.Close()
}
