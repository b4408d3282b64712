package locate

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/spx-launcher-go/internal/errors"
)

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", AppDirName, ConfigFileName)
	store := NewStore(path)

	require.NoError(t, store.Save("/opt/spx/spx-server"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n  \"spxPath\": \"/opt/spx/spx-server\"\n}", string(data))

	got, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "/opt/spx/spx-server", got)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), ConfigFileName))

	_, err := store.Load()
	require.ErrorIs(t, err, errors.ErrConfigNotFound)
}

func TestStore_LoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "spxPath=/opt/spx"},
		{"truncated", `{"spxPath": "/opt`},
		{"array", `["/opt/spx"]`},
		{"null", `null`},
		{"missing field", `{"path": "/opt/spx"}`},
		{"wrong type", `{"spxPath": 42}`},
		{"empty", `{"spxPath": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ConfigFileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			_, err := NewStore(path).Load()

			cfgErr, ok := stderrors.AsType[*errors.ConfigInvalidError](err)
			require.True(t, ok, "expected ConfigInvalidError, got %v", err)
			require.Equal(t, path, cfgErr.Path)
		})
	}
}

func TestStore_Forget(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)
	store := NewStore(path)

	require.NoError(t, store.Forget(), "forgetting a missing file is a no-op")
	require.NoError(t, store.Save("/opt/spx/spx-server"))
	require.NoError(t, store.Forget())

	_, err := store.Load()
	require.ErrorIs(t, err, errors.ErrConfigNotFound)
}
