// Package media stores uploaded asset images and hands back a durable URL.
package media

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/zeebo/blake3"
)

var (
	ErrTooLarge    = errors.New("image exceeds size limit")
	ErrNotAnImage  = errors.New("uploaded file is not an image")
	ErrEmptyUpload = errors.New("uploaded file is empty")
)

// Object is a stored image.
type Object struct {
	URL string
	// New is false when identical content was already stored, in which case
	// the file may be shared and must not be removed on rollback.
	New bool
}

// Store accepts image uploads and returns the URL they are served from.
type Store interface {
	Upload(ctx context.Context, r io.Reader) (Object, error)
	Delete(ctx context.Context, url string) error
}

// LocalStore keeps images on disk, named by the blake3 digest of their content.
type LocalStore struct {
	dir      string
	baseURL  string
	maxBytes int64
}

func NewLocalStore(dir, baseURL string, maxBytes int64) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), maxBytes: maxBytes}, nil
}

// Dir is the directory files are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

func (s *LocalStore) Upload(ctx context.Context, r io.Reader) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return Object{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) == 0 {
		return Object{}, ErrEmptyUpload
	}
	if int64(len(data)) > s.maxBytes {
		return Object{}, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Object{}, fmt.Errorf("%w: detected %s", ErrNotAnImage, mt.String())
	}

	sum := blake3.Sum256(data)
	name := hex.EncodeToString(sum[:]) + mt.Extension()
	target := filepath.Join(s.dir, name)

	url := s.baseURL + "/" + name

	// Same content means same name, so an existing file is already correct.
	if _, err := os.Stat(target); err == nil {
		return Object{URL: url}, nil
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return Object{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return Object{}, fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to write image: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return Object{}, fmt.Errorf("failed to store image: %w", err)
	}

	return Object{URL: url, New: true}, nil
}

// Delete removes a file previously returned by Upload. Unknown URLs are ignored.
func (s *LocalStore) Delete(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, s.baseURL+"/") {
		return nil
	}
	name := path.Base(url)
	if name == "." || name == "/" || strings.HasPrefix(name, ".") {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
