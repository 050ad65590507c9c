package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// PhotoStorage is the blob store for uploaded photos and clips. Paths are
// slash-separated object keys; Put returns the public URL of the object.
type PhotoStorage interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
	PathFromURL(url string) (string, bool)
}

var ErrInvalidPath = errors.New("invalid object path")

// LocalPhotoStorage keeps objects on local disk under Directory and serves them
// from BaseURL.
type LocalPhotoStorage struct {
	Directory string
	BaseURL   string
}

func (s *LocalPhotoStorage) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	filePath, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return "", err
	}

	file, err := os.Create(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err = io.Copy(file, r); err != nil {
		os.Remove(filePath)
		return "", err
	}

	return s.url(path), nil
}

func (s *LocalPhotoStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	filePath, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return file, err
}

func (s *LocalPhotoStorage) Remove(ctx context.Context, path string) error {
	filePath, err := s.resolve(path)
	if err != nil {
		return err
	}
	err = os.Remove(filePath)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (s *LocalPhotoStorage) PathFromURL(url string) (string, bool) {
	return trimBase(url, s.BaseURL)
}

// Handler serves stored objects by key. Directories are reported as missing
// so nobody can list user ids or file names.
func (s *LocalPhotoStorage) Handler() http.Handler {
	return http.FileServer(filesOnly{http.Dir(s.Directory)})
}

type filesOnly struct {
	http.FileSystem
}

func (fs filesOnly) Open(name string) (http.File, error) {
	f, err := fs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func (s *LocalPhotoStorage) url(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + path
}

// resolve maps an object key to a file inside Directory, refusing keys that
// would escape it.
func (s *LocalPhotoStorage) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if path == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Join(s.Directory, clean), nil
}

func trimBase(url, base string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	path := strings.TrimPrefix(url, prefix)
	return path, path != ""
}
