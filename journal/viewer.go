// Package journal holds the couple's shared records: timeline, discovery
// cards, anniversaries and the visited-provinces map, and the workflows that
// keep them in step with each other.
package journal

import (
	"errors"
	"fmt"

	"couple-journal/model"
	"couple-journal/storage"
)

var (
	ErrReadOnly = errors.New("guest sessions are read-only")
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid input")
)

// Viewer is who a request acts for. The guest viewer reads every user's rows
// and may not write.
type Viewer struct {
	UserID string
}

func GuestViewer() Viewer {
	return Viewer{UserID: model.GuestUserID}
}

func (v Viewer) IsGuest() bool {
	return v.UserID == model.GuestUserID
}

// scope is the owner filter for reads: everyone for guests, the user
// otherwise.
func (v Viewer) scope() string {
	if v.IsGuest() {
		return ""
	}
	return v.UserID
}

func (v Viewer) canWrite() error {
	if v.UserID == "" || v.IsGuest() {
		return ErrReadOnly
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func translate(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
