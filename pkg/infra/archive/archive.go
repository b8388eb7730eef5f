package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/gdfetch/pkg/domain/model"
)

// ErrUnsafePath is returned for an entry that would be written outside the
// extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes target directory")

// candidatePatterns are the names a previously downloaded archive may have.
var candidatePatterns = []string{"*.zip", "*.tar", "*.tar.gz", "*.tgz", "*.tar.bz2", "*.tar.xz"}

// Sniff classifies the file at path by content. Zip is tested first, then tar
// under any supported compression. The file name is never consulted.
func Sniff(path string) (*model.ArchiveArtifact, error) {
	artifact := &model.ArchiveArtifact{Path: path, Kind: model.ArchiveUnsupported}

	if isZip(path) {
		artifact.Kind = model.ArchiveZip
		return artifact, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open file for sniffing", goerr.V("path", path))
	}
	defer f.Close()

	br := bufio.NewReader(f)
	c := detectCompression(br)
	r, release, err := decompress(br, c)
	if err != nil {
		// A compression magic number on a broken stream is not an archive.
		return artifact, nil
	}
	defer release()

	if _, err := tar.NewReader(r).Next(); err != nil && !errors.Is(err, tar.ErrInsecurePath) {
		return artifact, nil
	}

	artifact.Kind = model.ArchiveTar
	artifact.Compression = c
	return artifact, nil
}

func isZip(path string) bool {
	zr, err := openZip(path)
	if err != nil {
		return false
	}
	_ = zr.Close()
	return true
}

// ExtractIfArchive extracts the archive at path into targetDir and deletes
// the archive. It returns false and leaves the file untouched when the
// content is not a supported archive. Entries extracted before a failure are
// left on disk.
func ExtractIfArchive(ctx context.Context, path, targetDir string) (bool, error) {
	logger := ctxlog.From(ctx)

	artifact, err := Sniff(path)
	if err != nil {
		return false, err
	}

	var count int
	switch artifact.Kind {
	case model.ArchiveZip:
		logger.Info("Extracting zip archive", "path", path, "target", targetDir)
		count, err = extractZip(path, targetDir)
	case model.ArchiveTar:
		logger.Info("Extracting tar archive",
			"path", path,
			"target", targetDir,
			"compression", artifact.Compression,
		)
		count, err = extractTar(path, artifact.Compression, targetDir)
	default:
		logger.Debug("Not a supported archive", "path", path)
		return false, nil
	}
	if err != nil {
		return false, goerr.Wrap(err, "failed to extract archive",
			goerr.V("path", path),
			goerr.V("kind", artifact.Kind.String()),
		)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return true, goerr.Wrap(err, "failed to remove extracted archive", goerr.V("path", path))
	}

	logger.Info("Extracted archive", "path", path, "entries", count)
	return true, nil
}

// FindCandidates lists files directly in dir whose names look like archives,
// sorted by name.
func FindCandidates(dir string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	for _, pattern := range candidatePatterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, goerr.Wrap(err, "invalid archive pattern", goerr.V("pattern", pattern))
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			if info, err := os.Stat(m); err != nil || !info.Mode().IsRegular() {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return filepath.Base(out[i]) < filepath.Base(out[j])
	})
	return out, nil
}

// safeJoin resolves name under root and rejects paths that leave it.
func safeJoin(root, name string) (string, error) {
	destPath := filepath.Join(root, filepath.FromSlash(name))
	cleanRoot := filepath.Clean(root)
	if destPath != cleanRoot && !strings.HasPrefix(destPath, cleanRoot+string(os.PathSeparator)) {
		return "", goerr.Wrap(ErrUnsafePath, "invalid file path detected",
			goerr.V("name", name),
			goerr.V("dest", destPath),
		)
	}
	return destPath, nil
}

// openZip tolerates insecure entry names; they are rejected per entry during
// extraction.
func openZip(path string) (*zip.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		return zr, nil
	}
	return zr, err
}

func extractZip(path, targetDir string) (int, error) {
	zr, err := openZip(path)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to open zip")
	}
	defer zr.Close()

	var count int
	for _, file := range zr.File {
		if err := extractZipFile(file, targetDir); err != nil {
			return count, goerr.Wrap(err, "failed to extract file", goerr.V("name", file.Name))
		}
		count++
	}
	return count, nil
}

func extractZipFile(file *zip.File, destDir string) error {
	destPath, err := safeJoin(destDir, file.Name)
	if err != nil {
		return err
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0755)
	}

	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip")
	}
	defer rc.Close()

	return writeFile(destPath, rc, file.Mode().Perm())
}

func extractTar(path string, c model.Compression, targetDir string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to open tar")
	}
	defer f.Close()

	r, release, err := decompress(bufio.NewReader(f), c)
	if err != nil {
		return 0, err
	}
	defer release()

	tr := tar.NewReader(r)
	var count int
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return count, nil
		}
		if err != nil && !errors.Is(err, tar.ErrInsecurePath) {
			return count, goerr.Wrap(err, "failed to read tar header")
		}

		if err := extractTarEntry(tr, hdr, targetDir); err != nil {
			return count, goerr.Wrap(err, "failed to extract entry", goerr.V("name", hdr.Name))
		}
		count++
	}
}

func extractTarEntry(tr *tar.Reader, hdr *tar.Header, destDir string) error {
	destPath, err := safeJoin(destDir, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(destPath, 0755)

	case tar.TypeReg:
		return writeFile(destPath, tr, os.FileMode(hdr.Mode).Perm())

	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) {
			return goerr.Wrap(ErrUnsafePath, "absolute symlink target", goerr.V("link", hdr.Linkname))
		}
		if _, err := safeJoin(destDir, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return goerr.Wrap(err, "failed to create parent directories")
		}
		return os.Symlink(hdr.Linkname, destPath)

	case tar.TypeLink:
		target, err := safeJoin(destDir, hdr.Linkname)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return goerr.Wrap(err, "failed to create parent directories")
		}
		return os.Link(target, destPath)

	default:
		// Devices, fifos and the like have no place in a model archive.
		return nil
	}
}

func writeFile(destPath string, src io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories", goerr.V("dir", filepath.Dir(destPath)))
	}
	if perm == 0 {
		perm = 0644
	}

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file", goerr.V("path", destPath))
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, src); err != nil {
		return goerr.Wrap(err, "failed to copy file content", goerr.V("path", destPath))
	}
	return nil
}
