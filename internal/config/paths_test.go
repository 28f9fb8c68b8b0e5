package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readyparser/internal/shared/testutil"
)

func TestGetPaths(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name     string
		cfg      PathsConfig
		media    string
		logs     string
		unparsed string
	}{
		{
			name:     "defaults under base",
			cfg:      PathsConfig{BaseDir: base},
			media:    filepath.Join(base, "media"),
			logs:     filepath.Join(base, "logs"),
			unparsed: filepath.Join(base, "media", "unparsed"),
		},
		{
			name:     "relative overrides",
			cfg:      PathsConfig{BaseDir: base, MediaDir: "var/media", LogsDir: "var/log"},
			media:    filepath.Join(base, "var", "media"),
			logs:     filepath.Join(base, "var", "log"),
			unparsed: filepath.Join(base, "var", "media", "unparsed"),
		},
		{
			name:     "absolute media dir",
			cfg:      PathsConfig{BaseDir: base, MediaDir: filepath.Join(base, "elsewhere")},
			media:    filepath.Join(base, "elsewhere"),
			logs:     filepath.Join(base, "logs"),
			unparsed: filepath.Join(base, "elsewhere", "unparsed"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths, err := GetPaths(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, base, paths.BaseDir)
			assert.Equal(t, tt.media, paths.MediaDir)
			assert.Equal(t, tt.logs, paths.LogsDir)
			assert.Equal(t, tt.unparsed, paths.UnparsedDir)
			assert.Equal(t, filepath.Join(tt.media, "parsed"), paths.ParsedDir)
		})
	}
}

func TestGetPaths_DefaultsToExecutableDir(t *testing.T) {
	exeDir, err := ExecutableDir()
	require.NoError(t, err)

	paths, err := GetPaths(PathsConfig{})
	require.NoError(t, err)
	assert.Equal(t, exeDir, paths.BaseDir)
}

func TestEnsureDirectories(t *testing.T) {
	paths, err := GetPaths(PathsConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)

	require.NoError(t, paths.EnsureDirectories())
	for _, dir := range []string{paths.MediaDir, paths.UnparsedDir, paths.ParsedDir, paths.LogsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}

	// Idempotent.
	require.NoError(t, paths.EnsureDirectories())
}

func TestEnsureDirectories_Failure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "media")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	paths, err := GetPaths(PathsConfig{BaseDir: base})
	require.NoError(t, err)
	assert.Error(t, paths.EnsureDirectories())
}

func TestLogPathResolution(t *testing.T) {
	paths, err := GetPaths(PathsConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)

	logger, handler := testutil.NewTestLogger(t)
	paths.LogPathResolution(logger)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Path resolution summary")
	assert.Equal(t, "app.log", filepath.Base(paths.GetLogPath("app.log")))
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "present.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	assert.True(t, FileExists(file))
	assert.True(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "absent.txt")))
}
