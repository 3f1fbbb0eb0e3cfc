// FilePath: internal/repository/files/files.storage.go
package files

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rainwatch/rainhub/internal/errors"
	nuts "github.com/vaudience/go-nuts"
)

const (
	defaultPermissions = 0755
	defaultExtension   = ".jpg"
	bucketFormat       = "2006-01" // YYYY-MM
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// StoreConfig holds configuration for the blob store
type StoreConfig struct {
	BasePath     string
	PublicPrefix string // URL prefix mapped 1:1 to BasePath, e.g. "uploads"
}

// Store places device image blobs under a configured storage root,
// partitioned into UTC year-month buckets
type Store struct {
	config StoreConfig
	// now is swappable for tests
	now func() time.Time
}

// NewStore creates the blob store and ensures the storage root exists
func NewStore(config StoreConfig) (*Store, error) {
	if err := createDirectoryIfNotExists(config.BasePath); err != nil {
		return nil, err
	}
	return &Store{config: config, now: time.Now}, nil
}

// Place writes the blob to <root>/<YYYY-MM>/<safeKey>_<epochMs><ext> and
// returns the absolute path plus the forward-slash public path. The
// bucket directory is created on demand; creating an existing directory
// is not an error. A same-millisecond write from the same device
// overwrites silently (last writer wins).
func (s *Store) Place(deviceKey string, src io.Reader, originalFilename string) (string, string, error) {
	now := s.now().UTC()
	bucket := now.Format(bucketFormat)

	dir := filepath.Join(s.config.BasePath, bucket)
	if err := createDirectoryIfNotExists(dir); err != nil {
		return "", "", err
	}

	filename := SanitizeDeviceKey(deviceKey) +
		"_" + strconv.FormatInt(now.UnixMilli(), 10) +
		extensionFor(originalFilename)

	absPath := filepath.Join(dir, filename)
	dst, err := os.Create(absPath)
	if err != nil {
		return "", "", errors.NewInternalError("failed to create destination file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(absPath)
		return "", "", errors.NewInternalError("failed to write file", err)
	}

	publicPath := path.Join(s.config.PublicPrefix, bucket, filename)
	nuts.L.Infof("[BlobStore] Stored file: %s", publicPath)
	return absPath, publicPath, nil
}

// Remove deletes the blob addressed by a public path previously returned
// from Place
func (s *Store) Remove(publicPath string) error {
	rel := strings.TrimPrefix(publicPath, s.config.PublicPrefix+"/")
	err := os.Remove(filepath.Join(s.config.BasePath, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return errors.NewInternalError("failed to delete file", err)
	}
	return nil
}

// DeleteOldFiles removes blobs last modified before the cutoff
func (s *Store) DeleteOldFiles(before time.Time) error {
	var deletedCount int
	err := filepath.Walk(s.config.BasePath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if info.ModTime().Before(before) {
			if err := os.Remove(p); err != nil {
				nuts.L.Errorf("[BlobStore] Failed to delete old file %s: %v", p, err)
				return nil
			}
			deletedCount++
		}
		return nil
	})

	if err != nil {
		return errors.NewInternalError("failed to delete old files", err)
	}

	nuts.L.Infof("[BlobStore] Deleted %d files older than %v", deletedCount, before)
	return nil
}

// BasePath returns the storage root, for static serving
func (s *Store) BasePath() string {
	return s.config.BasePath
}

// SanitizeDeviceKey reduces a device key to letters, digits, hyphen and
// underscore; anything else becomes an underscore
func SanitizeDeviceKey(key string) string {
	if key == "" {
		return "unknown"
	}
	var b strings.Builder
	b.Grow(len(key))
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func extensionFor(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if allowedExtensions[ext] {
		return ext
	}
	return defaultExtension
}

func createDirectoryIfNotExists(path string) error {
	if err := os.MkdirAll(path, defaultPermissions); err != nil {
		return errors.NewInternalError("failed to create directory", err)
	}
	return nil
}
