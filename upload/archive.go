package upload

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"couple-journal/storage"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Archiver streams a list of stored photos as one zip file. Objects are
// fetched one at a time, at most one per Delay.
type Archiver struct {
	Storage storage.PhotoStorage
	Delay   time.Duration
	Log     *zap.Logger
}

// WriteZip writes every photo it can read to w and returns how many were
// added. URLs outside the storage and objects that no longer exist are
// skipped.
func (a *Archiver) WriteZip(ctx context.Context, w io.Writer, urls []string) (int, error) {
	limit := rate.Inf
	if a.Delay > 0 {
		limit = rate.Every(a.Delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	zw := zip.NewWriter(w)
	added := 0
	for i, url := range urls {
		objectPath, ok := a.Storage.PathFromURL(url)
		if !ok {
			a.Log.Debug("skipping photo outside object storage", zap.String("url", url))
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			return added, err
		}

		ok, err := a.addEntry(ctx, zw, fmt.Sprintf("%03d_%s", i+1, path.Base(objectPath)), objectPath)
		if err != nil {
			return added, err
		}
		if ok {
			added++
		}
	}

	if err := zw.Close(); err != nil {
		return added, err
	}
	return added, nil
}

func (a *Archiver) addEntry(ctx context.Context, zw *zip.Writer, name, objectPath string) (bool, error) {
	rc, err := a.Storage.Open(ctx, objectPath)
	if errors.Is(err, storage.ErrNotFound) {
		a.Log.Warn("photo missing from storage", zap.String("path", objectPath))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer rc.Close()

	// Photos are already compressed; store them as-is.
	entry, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store, Modified: time.Now()})
	if err != nil {
		return false, err
	}
	if _, err := io.Copy(entry, rc); err != nil {
		return false, err
	}
	return true, nil
}
