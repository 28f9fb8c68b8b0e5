package files

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ArchiveName is the download name of a batch archive.
const ArchiveName = "download.zip"

// ZipFiles writes the given files into a flat zip archive at dst and returns
// the number of entries written.
func ZipFiles(dst string, paths []string) (int, error) {
	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	written := 0
	for _, p := range paths {
		if err := addToZip(zw, p); err != nil {
			zw.Close()
			out.Close()
			os.Remove(dst)
			return 0, err
		}
		written++
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}
	return written, nil
}

func addToZip(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", path, err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to copy %s into archive: %w", path, err)
	}
	return nil
}
