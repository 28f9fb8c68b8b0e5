package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"readyparser/internal/config"
	apierrors "readyparser/internal/errors"
	"readyparser/internal/infrastructure"
	"readyparser/internal/validation"
)

// ErrUnsupportedFile is returned when an upload is not an accepted workbook.
var ErrUnsupportedFile = errors.New("unsupported file type")

// ParsedSuffix is appended to the report name of every generated workbook.
const ParsedSuffix = "_parsed.xlsx"

// Stager owns the media/unparsed and media/parsed trees.
type Stager struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewStager creates a stager rooted at the configured media directories.
func NewStager(paths *config.Paths, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stager{
		paths:  paths,
		logger: infrastructure.WithComponent(logger, "stager"),
	}
}

// Workspace is the pair of directories reserved for one request.
type Workspace struct {
	ID          string
	UnparsedDir string
	ParsedDir   string

	logger *slog.Logger
}

// NewWorkspace reserves uuid-named directories under unparsed and parsed.
func (s *Stager) NewWorkspace() (*Workspace, error) {
	id := uuid.New().String()
	ws := &Workspace{
		ID:          id,
		UnparsedDir: filepath.Join(s.paths.UnparsedDir, id),
		ParsedDir:   filepath.Join(s.paths.ParsedDir, id),
		logger:      s.logger.With(slog.String("workspace", id)),
	}

	for _, dir := range []string{ws.UnparsedDir, ws.ParsedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			ws.Cleanup()
			return nil, apierrors.NewStorageError("failed to create staging directory", err).
				WithContext("path", dir)
		}
	}

	ws.logger.Debug("Workspace created",
		slog.String("unparsed_dir", ws.UnparsedDir),
		slog.String("parsed_dir", ws.ParsedDir))
	return ws, nil
}

// Save copies an uploaded workbook into the unparsed directory and returns
// its staged path. Only the base name of filename is used; when that name is
// already staged the copy gets a _2, _3, ... suffix instead of replacing it.
func (ws *Workspace) Save(filename string, r io.Reader) (string, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || !validation.IsWorkbookName(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	f, err := ws.createUnique(name)
	if err != nil {
		return "", apierrors.NewStorageError("failed to create staged file", err).
			WithContext("file", name)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return "", apierrors.NewStorageError("failed to write staged file", err).
			WithContext("file", f.Name())
	}
	if err := f.Sync(); err != nil {
		return "", apierrors.NewStorageError("failed to sync staged file", err).
			WithContext("file", f.Name())
	}

	ws.logger.Info("Upload staged",
		slog.String("upload", filename),
		slog.String("file", filepath.Base(f.Name())),
		slog.Int64("size_bytes", n))
	return f.Name(), nil
}

// maxStagedCopies bounds the suffix search for one base name.
const maxStagedCopies = 1000

func (ws *Workspace) createUnique(name string) (*os.File, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 2; i <= maxStagedCopies+1; i++ {
		f, err := os.OpenFile(filepath.Join(ws.UnparsedDir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, err
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	return nil, fmt.Errorf("more than %d uploads named %s", maxStagedCopies, name)
}

// OutputPath returns where the report for reportName is written.
func (ws *Workspace) OutputPath(reportName string) string {
	return filepath.Join(ws.ParsedDir, ReportFileName(reportName))
}

// ZipPath returns the location of the batch archive. It sits next to the
// parsed directory so it is never swept into itself.
func (ws *Workspace) ZipPath() string {
	return filepath.Join(filepath.Dir(ws.ParsedDir), ws.ID+"-"+ArchiveName)
}

// Cleanup removes both staging directories and the archive if present.
func (ws *Workspace) Cleanup() {
	for _, p := range []string{ws.UnparsedDir, ws.ParsedDir, ws.ZipPath()} {
		if err := os.RemoveAll(p); err != nil {
			infrastructure.WithError(ws.logger, err).Warn("Failed to remove staging path",
				slog.String("path", p))
		}
	}
}

// FormatFileName returns the file name without its directory and extension.
func FormatFileName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReportFileName returns the output file name for a report.
func ReportFileName(reportName string) string {
	return reportName + ParsedSuffix
}
