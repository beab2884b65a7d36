package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// File is the plain-storage fallback: a mode 0600 JSON file under the user
// config directory. Each write rewrites the whole file via temp+rename so
// individual keys are never observed half-written.
type File struct {
	path string
	mu   sync.Mutex
}

type fileData struct {
	Token   string `json:"token,omitempty"`
	Consent bool   `json:"consent"`
}

// NewFile creates a file store at the given path. The parent directory is
// created on first write.
func NewFile(path string) *File {
	return &File{path: path}
}

// DefaultFilePath returns the fallback credentials path under the user
// config directory.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "attendify-kiosk", "credentials.json"), nil
}

func (f *File) load() (*fileData, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read credentials file: %w", err)
	}
	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("could not parse credentials file: %w", err)
	}
	return &data, nil
}

func (f *File) save(data *fileData) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("could not create credentials directory: %w", err)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("could not marshal credentials: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return fmt.Errorf("could not write credentials file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("could not replace credentials file: %w", err)
	}
	return nil
}

func (f *File) Token() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return "", err
	}
	return data.Token, nil
}

func (f *File) SetToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return err
	}
	data.Token = token
	return f.save(data)
}

func (f *File) ClearToken() error {
	return f.SetToken("")
}

func (f *File) Consent() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return false, err
	}
	return data.Consent, nil
}

func (f *File) SetConsent(consent bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.load()
	if err != nil {
		return err
	}
	data.Consent = consent
	return f.save(data)
}
