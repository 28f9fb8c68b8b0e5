package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved application directories.
type Paths struct {
	BaseDir     string
	MediaDir    string
	UnparsedDir string
	ParsedDir   string
	LogsDir     string
}

// ExecutableDir returns the directory holding the running binary, with
// symlinks resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// GetPaths resolves the configured directories. Relative entries are joined to
// BaseDir, which itself defaults to the executable directory.
//
//	<base>/
//	  ├── media/
//	  │   ├── unparsed/   (uploaded inventories)
//	  │   └── parsed/     (generated reports)
//	  └── logs/
func GetPaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		base = dir
	}

	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	mediaDir := resolve(cfg.MediaDir, "media")
	return &Paths{
		BaseDir:     base,
		MediaDir:    mediaDir,
		UnparsedDir: filepath.Join(mediaDir, "unparsed"),
		ParsedDir:   filepath.Join(mediaDir, "parsed"),
		LogsDir:     resolve(cfg.LogsDir, "logs"),
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.MediaDir,
		p.UnparsedDir,
		p.ParsedDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// GetLogPath returns the path for a log file
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved directories.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("media", p.MediaDir),
			slog.String("unparsed", p.UnparsedDir),
			slog.String("parsed", p.ParsedDir),
			slog.String("logs", p.LogsDir),
		))
}

// FileExists checks if a file exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
