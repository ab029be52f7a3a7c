package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docflow/internal/apperr"
)

// BlobStore keeps uploaded files under a single root directory, addressed by
// generated keys. Keys never contain path separators, so a stored key can be
// joined to the root without traversal risk.
type BlobStore struct {
	root string
}

func NewBlobStore(root string) (*BlobStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.Storage("create upload directory", err)
	}
	return &BlobStore{root: root}, nil
}

// GenerateKey derives a collision-resistant storage key from the original
// filename: timestamp, a short random component, then the sanitized name.
func GenerateKey(original string) string {
	return time.Now().Format("20060102150405") + "_" + uuid.NewString()[:8] + "_" + Sanitize(original)
}

// Sanitize strips any directory component and replaces every byte outside
// [A-Za-z0-9._-] with an underscore.
func Sanitize(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func (s *BlobStore) Save(key string, r io.Reader) error {
	f, err := os.Create(filepath.Join(s.root, key))
	if err != nil {
		return apperr.Storage("store file", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return apperr.Storage("store file", err)
	}
	if err := f.Close(); err != nil {
		return apperr.Storage("store file", err)
	}
	return nil
}

// Path returns the on-disk location of a stored key, for serving downloads.
func (s *BlobStore) Path(key string) string {
	return filepath.Join(s.root, key)
}

func (s *BlobStore) Remove(key string) error {
	if err := os.Remove(filepath.Join(s.root, key)); err != nil {
		return apperr.Storage("remove file", err)
	}
	return nil
}
