// Package upload pushes batches of user files to object storage and streams
// stored albums back out.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"couple-journal/media"
	"couple-journal/model"
	"couple-journal/storage"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrBatchFailed = errors.New("upload batch failed")
	ErrNotAllowed  = errors.New("uploads are not allowed for this session")
	ErrNoFiles     = errors.New("no files uploaded")
	ErrForeignPath = errors.New("object does not belong to this user")
)

const (
	DefaultFolder  = "general"
	nameAlphabet   = "0123456789abcdefghijklmnopqrstuvwxyz"
	nameLength     = 6
	maxConcurrency = 4
)

type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Result is the outcome for one file of a batch: a public URL or an error.
type Result struct {
	Name    string     `json:"name"`
	URL     string     `json:"url,omitempty"`
	Path    string     `json:"path,omitempty"`
	TakenAt *time.Time `json:"takenAt,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// BatchError is returned when any file of a batch is rejected or fails. None
// of the batch's objects are left in storage when it is returned.
type BatchError struct {
	Results []Result
}

func (e *BatchError) Error() string {
	failed := 0
	for _, r := range e.Results {
		if r.Error != "" {
			failed++
		}
	}
	return fmt.Sprintf("%d of %d files failed", failed, len(e.Results))
}

func (e *BatchError) Unwrap() error { return ErrBatchFailed }

type Uploader struct {
	Storage  storage.PhotoStorage
	Compress media.CompressOptions
	Log      *zap.Logger

	now func() time.Time
}

func NewUploader(store storage.PhotoStorage, log *zap.Logger) *Uploader {
	return &Uploader{
		Storage:  store,
		Compress: media.DefaultCompressOptions,
		Log:      log,
		now:      time.Now,
	}
}

// UploadBatch validates every file first and uploads nothing if one is
// invalid. Valid batches upload concurrently; if any upload fails the objects
// that did land are removed again and a *BatchError is returned.
func (u *Uploader) UploadBatch(ctx context.Context, userID, folder string, files []File) ([]Result, error) {
	if userID == "" || userID == model.GuestUserID {
		return nil, ErrNotAllowed
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	folder = sanitizeFolder(folder)

	results := make([]Result, len(files))
	invalid := false
	for i, f := range files {
		results[i].Name = f.Name
		if err := media.Validate(f.ContentType, int64(len(f.Data)), f.Data); err != nil {
			results[i].Error = err.Error()
			invalid = true
		}
	}
	if invalid {
		u.Log.Warn("upload batch rejected", zap.String("user_id", userID), zap.Int("files", len(files)))
		return nil, &BatchError{Results: results}
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrency)
	for i, f := range files {
		g.Go(func() error {
			results[i] = u.uploadOne(ctx, userID, folder, f)
			return nil
		})
	}
	g.Wait()

	failed := false
	for _, r := range results {
		if r.Error != "" {
			failed = true
			break
		}
	}
	if failed {
		u.discard(context.WithoutCancel(ctx), results)
		for i := range results {
			results[i].URL = ""
			results[i].Path = ""
		}
		return nil, &BatchError{Results: results}
	}

	u.Log.Info("upload batch stored", zap.String("user_id", userID), zap.String("folder", folder), zap.Int("files", len(files)))
	return results, nil
}

func (u *Uploader) uploadOne(ctx context.Context, userID, folder string, f File) Result {
	res := Result{Name: f.Name}
	data, contentType := f.Data, media.CanonicalType(f.ContentType)

	if contentType == "image/jpeg" {
		if t, ok := media.TakenAt(bytes.NewReader(data)); ok {
			res.TakenAt = &t
		}
	}

	if media.Compressible(contentType) {
		wide, err := media.NeedsCompress(bytes.NewReader(data), u.Compress)
		if err == nil && wide {
			var compressed []byte
			if compressed, err = media.Compress(bytes.NewReader(data), u.Compress); err == nil {
				data, contentType = compressed, "image/jpeg"
			}
		}
		if err != nil {
			u.Log.Error("failed to compress image", zap.String("file", f.Name), zap.Error(err))
			res.Error = "could not process image"
			return res
		}
	}

	path, err := ObjectPath(userID, folder, media.Extension(contentType), u.now())
	if err != nil {
		res.Error = "upload failed, please retry"
		return res
	}

	url, err := u.Storage.Put(ctx, path, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		u.Log.Error("failed to store object", zap.String("path", path), zap.Error(err))
		res.Error = "upload failed, please retry"
		return res
	}

	res.URL = url
	res.Path = path
	return res
}

func (u *Uploader) discard(ctx context.Context, results []Result) {
	for _, r := range results {
		if r.Path == "" {
			continue
		}
		if err := u.Storage.Remove(ctx, r.Path); err != nil {
			u.Log.Warn("failed to remove object of failed batch", zap.String("path", r.Path), zap.Error(err))
		}
	}
}

// Remove deletes one of the user's stored objects.
func (u *Uploader) Remove(ctx context.Context, userID, objectPath string) error {
	if userID == "" || userID == model.GuestUserID {
		return ErrNotAllowed
	}
	if !ownedBy(userID, objectPath) {
		return ErrForeignPath
	}
	if err := u.Storage.Remove(ctx, objectPath); err != nil {
		return err
	}
	u.Log.Info("object removed", zap.String("path", objectPath))
	return nil
}

// ownedBy reports whether objectPath is a plain key under the user's prefix.
// Keys that only land there after cleaning are refused.
func ownedBy(userID, objectPath string) bool {
	if path.Clean(objectPath) != objectPath {
		return false
	}
	for _, seg := range strings.Split(objectPath, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return strings.HasPrefix(objectPath, userID+"/")
}

var folderPattern = regexp.MustCompile(`[^a-z0-9_-]+`)

func sanitizeFolder(folder string) string {
	folder = folderPattern.ReplaceAllString(strings.ToLower(folder), "")
	if folder == "" {
		return DefaultFolder
	}
	return folder
}

// ObjectPath builds the storage key {userID}/{folder}/{millis}_{random}.{ext}.
func ObjectPath(userID, folder, ext string, now time.Time) (string, error) {
	suffix, err := gonanoid.Generate(nameAlphabet, nameLength)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%d_%s.%s", userID, sanitizeFolder(folder), now.UnixMilli(), suffix, ext), nil
}
