package archive_test

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/spclone-go/internal/archive"
	"github.com/quantmind-br/spclone-go/internal/domain"
)

// writeTarGz builds a tar.gz archive file from name -> content pairs.
// Directory entries are emitted for names ending in "/".
func writeTarGz(t *testing.T, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for name, content := range entries {
		if name[len(name)-1] == '/' {
			require.NoError(t, tw.WriteHeader(&tar.Header{
				Name:     name,
				Mode:     0755,
				Typeflag: tar.TypeDir,
			}))
			continue
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0644,
			Typeflag: tar.TypeReg,
			Size:     int64(len(content)),
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "archive.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestSniffFormat(t *testing.T) {
	tarGz := writeTarGz(t, map[string]string{"repo-main/README.md": "hi"})
	zipFile := writeZip(t, map[string]string{"repo-main/README.md": "hi"})

	format, err := archive.SniffFormat(tarGz)
	require.NoError(t, err)
	assert.Equal(t, archive.FormatTarGz, format)

	format, err = archive.SniffFormat(zipFile)
	require.NoError(t, err)
	assert.Equal(t, archive.FormatZip, format)
}

func TestSniffFormat_Unknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	require.NoError(t, os.WriteFile(path, []byte("not an archive"), 0644))

	_, err := archive.SniffFormat(path)

	assert.ErrorIs(t, err, domain.ErrCorruptArchive)
}

func TestExtract_TarGzStripsRoot(t *testing.T) {
	archivePath := writeTarGz(t, map[string]string{
		"repo-main/":            "",
		"repo-main/README.md":   "Hello World",
		"repo-main/docs/":       "",
		"repo-main/docs/api.md": "API",
		"repo-main/src/main.py": "print('hi')",
	})
	dest := filepath.Join(t.TempDir(), "out")

	e := archive.NewExtractor(archive.ExtractorOptions{})
	require.NoError(t, e.Extract(archivePath, dest, false))

	assert.Equal(t, "Hello World", readFile(t, filepath.Join(dest, "README.md")))
	assert.Equal(t, "API", readFile(t, filepath.Join(dest, "docs", "api.md")))
	assert.Equal(t, "print('hi')", readFile(t, filepath.Join(dest, "src", "main.py")))
	assert.NoDirExists(t, filepath.Join(dest, "repo-main"))
}

func TestExtract_TarGzKeepRoot(t *testing.T) {
	archivePath := writeTarGz(t, map[string]string{
		"repo-main/README.md": "Hello",
	})
	dest := filepath.Join(t.TempDir(), "out")

	e := archive.NewExtractor(archive.ExtractorOptions{KeepRoot: true})
	require.NoError(t, e.Extract(archivePath, dest, false))

	assert.Equal(t, "Hello", readFile(t, filepath.Join(dest, "repo-main", "README.md")))
}

func TestExtract_Zip(t *testing.T) {
	archivePath := writeZip(t, map[string]string{
		"repo-main/README.md":   "Hello",
		"repo-main/docs/api.md": "API",
	})
	dest := filepath.Join(t.TempDir(), "out")

	e := archive.NewExtractor(archive.ExtractorOptions{})
	require.NoError(t, e.Extract(archivePath, dest, false))

	assert.Equal(t, "Hello", readFile(t, filepath.Join(dest, "README.md")))
	assert.Equal(t, "API", readFile(t, filepath.Join(dest, "docs", "api.md")))
}

func TestExtract_SubPath(t *testing.T) {
	archivePath := writeTarGz(t, map[string]string{
		"repo-main/README.md":           "top",
		"repo-main/docs/api.md":         "API",
		"repo-main/docs/guide/usage.md": "Usage",
		"repo-main/src/main.py":         "code",
	})
	dest := filepath.Join(t.TempDir(), "out")

	e := archive.NewExtractor(archive.ExtractorOptions{SubPath: "docs"})
	require.NoError(t, e.Extract(archivePath, dest, false))

	assert.Equal(t, "API", readFile(t, filepath.Join(dest, "api.md")))
	assert.Equal(t, "Usage", readFile(t, filepath.Join(dest, "guide", "usage.md")))
	assert.NoFileExists(t, filepath.Join(dest, "README.md"))
	assert.NoFileExists(t, filepath.Join(dest, "main.py"))
}

func TestExtract_DestinationExists(t *testing.T) {
	archivePath := writeTarGz(t, map[string]string{"repo-main/README.md": "new"})
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "old.txt"), []byte("old"), 0644))

	e := archive.NewExtractor(archive.ExtractorOptions{})
	err := e.Extract(archivePath, dest, false)

	assert.ErrorIs(t, err, domain.ErrDestinationExists)
	assert.FileExists(t, filepath.Join(dest, "old.txt"), "existing content must survive")
}

func TestExtract_ForceOverwrites(t *testing.T) {
	archivePath := writeTarGz(t, map[string]string{"repo-main/README.md": "new"})
	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "old.txt"), []byte("old"), 0644))

	e := archive.NewExtractor(archive.ExtractorOptions{})
	require.NoError(t, e.Extract(archivePath, dest, true))

	assert.Equal(t, "new", readFile(t, filepath.Join(dest, "README.md")))
	assert.NoFileExists(t, filepath.Join(dest, "old.txt"))
}

func TestExtract_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tar.gz")
	// Valid gzip magic followed by garbage
	require.NoError(t, os.WriteFile(path, []byte{0x1f, 0x8b, 0xff, 0x00, 0x01, 0x02}, 0644))
	dest := filepath.Join(t.TempDir(), "out")

	e := archive.NewExtractor(archive.ExtractorOptions{})
	err := e.Extract(path, dest, false)

	assert.ErrorIs(t, err, domain.ErrCorruptArchive)
	assert.NoDirExists(t, dest, "a corrupt archive must not leave a partial destination")
}

func TestExtract_TruncatedTar(t *testing.T) {
	full := writeTarGz(t, map[string]string{"repo-main/README.md": "Hello World"})
	content, err := os.ReadFile(full)
	require.NoError(t, err)

	// Re-compress a truncated tar stream so the gzip layer stays valid
	gzr, err := gzip.NewReader(bytes.NewReader(content))
	require.NoError(t, err)
	raw := new(bytes.Buffer)
	_, err = raw.ReadFrom(gzr)
	require.NoError(t, err)

	// Cut mid-content so the tar stream ends inside a file block
	require.Greater(t, raw.Len(), 700)
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write(raw.Bytes()[:700])
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	path := filepath.Join(t.TempDir(), "truncated.tar.gz")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
	dest := filepath.Join(t.TempDir(), "out")

	e := archive.NewExtractor(archive.ExtractorOptions{})
	err = e.Extract(path, dest, false)

	assert.Error(t, err)
	assert.NoDirExists(t, dest)
}

func TestExtract_PathTraversalSkipped(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "repo-main/../../evil.txt",
		Mode:     0644,
		Typeflag: tar.TypeReg,
		Size:     4,
	}))
	_, err := tw.Write([]byte("evil"))
	require.NoError(t, err)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "repo-main/safe.txt",
		Mode:     0644,
		Typeflag: tar.TypeReg,
		Size:     4,
	}))
	_, err = tw.Write([]byte("safe"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	base := t.TempDir()
	archivePath := filepath.Join(base, "archive.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0644))
	dest := filepath.Join(base, "nested", "out")

	e := archive.NewExtractor(archive.ExtractorOptions{})
	require.NoError(t, e.Extract(archivePath, dest, false))

	assert.Equal(t, "safe", readFile(t, filepath.Join(dest, "safe.txt")))
	assert.NoFileExists(t, filepath.Join(base, "evil.txt"))
	assert.NoFileExists(t, filepath.Join(base, "nested", "evil.txt"))
}

func TestExtract_MissingArchive(t *testing.T) {
	e := archive.NewExtractor(archive.ExtractorOptions{})

	err := e.Extract(filepath.Join(t.TempDir(), "nope.tar.gz"), filepath.Join(t.TempDir(), "out"), false)

	assert.Error(t, err)
}
