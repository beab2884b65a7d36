package credstore

import "sync"

// Memory is an in-process store for tests and ephemeral sessions.
type Memory struct {
	mu      sync.Mutex
	token   string
	consent bool
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, nil
}

func (m *Memory) SetToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *Memory) ClearToken() error {
	return m.SetToken("")
}

func (m *Memory) Consent() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consent, nil
}

func (m *Memory) SetConsent(consent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consent = consent
	return nil
}
