package archive

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/quantmind-br/spclone-go/internal/domain"
	"github.com/quantmind-br/spclone-go/internal/utils"
)

// Format identifies the archive container format
type Format int

const (
	FormatUnknown Format = iota
	FormatTarGz
	FormatZip
)

// SniffFormat detects the archive format from magic bytes
func SniffFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	magic := make([]byte, 2)
	if _, err := io.ReadFull(f, magic); err != nil {
		return FormatUnknown, &domain.ExtractError{Archive: path, Err: domain.ErrCorruptArchive}
	}

	switch {
	case magic[0] == 0x1f && magic[1] == 0x8b:
		return FormatTarGz, nil
	case magic[0] == 'P' && magic[1] == 'K':
		return FormatZip, nil
	default:
		return FormatUnknown, &domain.ExtractError{Archive: path, Err: domain.ErrCorruptArchive}
	}
}

// Extractor unpacks downloaded repository archives. GitHub archives nest all
// entries under a single generated root folder (name-ref); stripping that
// root is the default and can be disabled with KeepRoot.
type Extractor struct {
	keepRoot bool
	subPath  string
	logger   *utils.Logger
}

// ExtractorOptions contains options for creating an Extractor
type ExtractorOptions struct {
	// KeepRoot preserves the generated root folder instead of stripping it
	KeepRoot bool

	// SubPath limits extraction to one subdirectory of the repository; the
	// output is re-rooted at that subdirectory and KeepRoot is ignored.
	SubPath string

	Logger *utils.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(opts ExtractorOptions) *Extractor {
	return &Extractor{
		keepRoot: opts.KeepRoot,
		subPath:  strings.Trim(opts.SubPath, "/"),
		logger:   opts.Logger,
	}
}

// Extract unpacks archivePath into destDir. Extraction is staged in a
// temporary directory and moved into place only on success, so a corrupt
// archive never leaves a partial destination. An existing destination is an
// error unless force is set.
func (e *Extractor) Extract(archivePath, destDir string, force bool) error {
	format, err := SniffFormat(archivePath)
	if err != nil {
		return err
	}

	staging, err := os.MkdirTemp("", "spclone-extract-*")
	if err != nil {
		return &domain.ExtractError{Archive: archivePath, Err: err}
	}
	defer os.RemoveAll(staging)

	switch format {
	case FormatTarGz:
		err = e.extractTarGz(archivePath, staging)
	case FormatZip:
		err = e.extractZip(archivePath, staging)
	}
	if err != nil {
		return err
	}

	if _, statErr := os.Stat(destDir); statErr == nil {
		if !force {
			return &domain.ExtractError{Archive: archivePath, Path: destDir, Err: domain.ErrDestinationExists}
		}
		if e.logger != nil {
			e.logger.Info().Str("path", destDir).Msg("Removing existing destination")
		}
		if err := os.RemoveAll(destDir); err != nil {
			return &domain.ExtractError{Archive: archivePath, Path: destDir, Err: err}
		}
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0755); err != nil {
		return &domain.ExtractError{Archive: archivePath, Path: destDir, Err: err}
	}
	if err := utils.MoveDir(staging, destDir); err != nil {
		return &domain.ExtractError{Archive: archivePath, Path: destDir, Err: err}
	}
	// MkdirTemp creates the staging dir 0700; open it up once it is final
	if err := os.Chmod(destDir, 0755); err != nil {
		return &domain.ExtractError{Archive: archivePath, Path: destDir, Err: err}
	}

	return nil
}

func (e *Extractor) extractTarGz(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return &domain.ExtractError{Archive: archivePath, Err: err}
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return &domain.ExtractError{Archive: archivePath, Err: fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)}
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	extracted := 0

	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &domain.ExtractError{Archive: archivePath, Err: fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)}
		}

		rel, ok := e.entryPath(header.Name)
		if !ok {
			continue
		}

		targetPath := filepath.Join(destDir, rel)
		if !strings.HasPrefix(filepath.Clean(targetPath), filepath.Clean(destDir)) {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return &domain.ExtractError{Archive: archivePath, Path: targetPath, Err: err}
			}
		case tar.TypeReg:
			if err := writeEntry(targetPath, tr, os.FileMode(header.Mode)); err != nil {
				return &domain.ExtractError{Archive: archivePath, Path: targetPath, Err: err}
			}
			extracted++
		}
	}

	if e.logger != nil {
		e.logger.Debug().Int("files", extracted).Msg("Archive extracted")
	}
	return nil
}

func (e *Extractor) extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return &domain.ExtractError{Archive: archivePath, Err: fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)}
	}
	defer zr.Close()

	extracted := 0
	for _, entry := range zr.File {
		rel, ok := e.entryPath(entry.Name)
		if !ok {
			continue
		}

		targetPath := filepath.Join(destDir, rel)
		if !strings.HasPrefix(filepath.Clean(targetPath), filepath.Clean(destDir)) {
			continue
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return &domain.ExtractError{Archive: archivePath, Path: targetPath, Err: err}
			}
			continue
		}
		if !entry.FileInfo().Mode().IsRegular() {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return &domain.ExtractError{Archive: archivePath, Path: targetPath, Err: fmt.Errorf("%w: %v", domain.ErrCorruptArchive, err)}
		}
		err = writeEntry(targetPath, rc, entry.FileInfo().Mode().Perm())
		rc.Close()
		if err != nil {
			return &domain.ExtractError{Archive: archivePath, Path: targetPath, Err: err}
		}
		extracted++
	}

	if e.logger != nil {
		e.logger.Debug().Int("files", extracted).Msg("Archive extracted")
	}
	return nil
}

// entryPath maps an archive entry name to its destination-relative path,
// applying root stripping and the subpath filter. ok is false when the entry
// should be skipped.
func (e *Extractor) entryPath(name string) (string, bool) {
	name = strings.Trim(filepath.ToSlash(name), "/")
	if name == "" {
		return "", false
	}

	if e.subPath != "" {
		stripped, hasRoot := stripRoot(name)
		if !hasRoot {
			return "", false
		}
		if stripped == e.subPath {
			return "", false // The subpath directory itself becomes the destination root
		}
		rel, ok := strings.CutPrefix(stripped, e.subPath+"/")
		if !ok {
			return "", false
		}
		return rel, true
	}

	if e.keepRoot {
		return name, true
	}

	stripped, hasRoot := stripRoot(name)
	if !hasRoot || stripped == "" {
		return "", false
	}
	return stripped, true
}

func stripRoot(name string) (string, bool) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}

func writeEntry(targetPath string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return err
	}

	if perm == 0 {
		perm = 0644
	}
	file, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
