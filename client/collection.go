package client

import (
	"context"
	"errors"
	"slices"
	"sync"

	"couple-journal/journal"
	"couple-journal/model"
)

var errReadOnlyCollection = errors.New("collection does not support adding")

// Collection is a client-side copy of one list on the server. Reload replaces
// it wholesale; Add creates on the server and inserts the stored result.
type Collection[T any] struct {
	fetch   func(context.Context) ([]T, error)
	create  func(context.Context, T) (T, error)
	prepend bool

	mu      sync.Mutex
	items   []T
	loading bool
	err     error
	gen     uint64
}

func newCollection[T any](fetch func(context.Context) ([]T, error), create func(context.Context, T) (T, error), prepend bool) *Collection[T] {
	return &Collection[T]{fetch: fetch, create: create, prepend: prepend}
}

// Reload fetches the whole list again. When reloads overlap, the one started
// last decides the contents.
func (c *Collection[T]) Reload(ctx context.Context) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.loading = true
	c.mu.Unlock()

	items, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return err
	}
	c.loading = false
	c.err = err
	if err == nil {
		c.items = items
	}
	return err
}

func (c *Collection[T]) Add(ctx context.Context, item T) (T, error) {
	var zero T
	if c.create == nil {
		return zero, errReadOnlyCollection
	}
	created, err := c.create(ctx, item)
	if err != nil {
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prepend {
		c.items = append([]T{created}, c.items...)
	} else {
		c.items = append(c.items, created)
	}
	return created, nil
}

func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.items)
}

func (c *Collection[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err is the error of the last completed reload, if it failed.
func (c *Collection[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) TimelineCollection() *Collection[model.TimelineEvent] {
	return newCollection(c.Timeline, c.CreateTimelineEvent, true)
}

func (c *Client) DiscoveryCollection() *Collection[model.DiscoveryItem] {
	return newCollection(c.DiscoveryItems, c.CreateDiscoveryItem, true)
}

func (c *Client) AnniversaryCollection() *Collection[model.Anniversary] {
	return newCollection(c.Anniversaries, func(ctx context.Context, ann model.Anniversary) (model.Anniversary, error) {
		res, err := c.AddAnniversary(ctx, journal.AnniversaryInput{
			Title:    ann.Title,
			Date:     ann.Date,
			Image:    ann.Image,
			Location: ann.Location,
		})
		return res.Anniversary, err
	}, false)
}

// ProvinceMap is the province list with the viewer's visits merged in.
type ProvinceMap struct {
	*Collection[model.Province]
	client *Client
}

func (c *Client) ProvinceMap() *ProvinceMap {
	return &ProvinceMap{Collection: newCollection[model.Province](c.Provinces, nil, false), client: c}
}

// MarkVisited records the visit and reloads the map.
func (m *ProvinceMap) MarkVisited(ctx context.Context, provinceID, city, date string, photos []string) error {
	if _, err := m.client.MarkVisited(ctx, provinceID, city, date, photos); err != nil {
		return err
	}
	return m.Reload(ctx)
}
