package locate

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wagiedev/spx-launcher-go/internal/errors"
)

const (
	// AppDirName is the per-user configuration directory of the launcher.
	AppDirName = "SPX"

	// ConfigFileName is the saved sidecar configuration file.
	ConfigFileName = "config.json"
)

// savedConfig is the on-disk shape of the sidecar configuration.
type savedConfig struct {
	SpxPath string `json:"spxPath"`
}

// Store reads and writes the saved sidecar path.
type Store struct {
	path string
}

// NewStore creates a store backed by the file at path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultConfigFile returns <user-config-dir>/SPX/config.json.
func DefaultConfigFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine config directory: %w", err)
	}

	return filepath.Join(dir, AppDirName, ConfigFileName), nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved sidecar path.
//
// Returns ErrConfigNotFound when the file does not exist, and
// ConfigInvalidError when it cannot be read, is not a JSON object, or lacks
// a non-empty string spxPath.
func (s *Store) Load() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return "", errors.ErrConfigNotFound
		}

		return "", &errors.ConfigInvalidError{Path: s.path, Err: fmt.Errorf("failed to read config: %w", err)}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", &errors.ConfigInvalidError{Path: s.path, Err: fmt.Errorf("invalid config JSON: %w", err)}
	}

	field, ok := raw["spxPath"]
	if !ok {
		return "", &errors.ConfigInvalidError{Path: s.path, Err: stderrors.New("missing or invalid 'spxPath' in config")}
	}

	var spxPath string
	if err := json.Unmarshal(field, &spxPath); err != nil || spxPath == "" {
		return "", &errors.ConfigInvalidError{Path: s.path, Err: stderrors.New("missing or invalid 'spxPath' in config")}
	}

	return spxPath, nil
}

// Save persists path, creating parent directories as needed. The file is
// written as pretty-printed JSON with the single spxPath field.
func (s *Store) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(savedConfig{SpxPath: path}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Forget removes the saved configuration. Removing a missing file is not
// an error.
func (s *Store) Forget() error {
	if err := os.Remove(s.path); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove config: %w", err)
	}

	return nil
}
