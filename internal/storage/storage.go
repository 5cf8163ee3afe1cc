package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KeyCacheData is the user's cache-enable preference.
const KeyCacheData = "CACHE_DATA"

// Preferences is a named preference store persisted as one flat JSON object.
type Preferences struct {
	path string
	mu   sync.RWMutex
}

// NewPreferences opens the preference store <basePath>/<name>.json.
// The file itself is created on first write.
func NewPreferences(basePath, name string) (*Preferences, error) {
	if name == "" {
		return nil, errors.New("preference store name is required")
	}

	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create preferences directory: %w", err)
	}

	return &Preferences{
		path: filepath.Join(basePath, name+".json"),
	}, nil
}

// Path returns the backing file path.
func (p *Preferences) Path() string {
	return p.path
}

// Bool returns the flag stored under key, or defaultValue when unset.
func (p *Preferences) Bool(ctx context.Context, key string, defaultValue bool) (bool, error) {
	select {
	case <-ctx.Done():
		return defaultValue, ctx.Err()
	default:
		p.mu.RLock()
		defer p.mu.RUnlock()

		values, err := p.readLocked()
		if err != nil {
			return defaultValue, err
		}

		raw, ok := values[key]
		if !ok {
			return defaultValue, nil
		}

		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return defaultValue, fmt.Errorf("preference %s is not a bool: %w", key, err)
		}
		return v, nil
	}
}

// SetBool stores value under key, keeping all other keys.
func (p *Preferences) SetBool(ctx context.Context, key string, value bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.mu.Lock()
		defer p.mu.Unlock()

		values, err := p.readLocked()
		if err != nil {
			return err
		}

		raw, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal preference %s: %w", key, err)
		}
		values[key] = raw

		return p.writeLocked(values)
	}
}

func (p *Preferences) readLocked() (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)

	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}

	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}
	return values, nil
}

// writeLocked replaces the file via a temp file and rename.
func (p *Preferences) writeLocked(values map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p.path), filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create preferences temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}

	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("failed to replace preferences file: %w", err)
	}
	return nil
}
