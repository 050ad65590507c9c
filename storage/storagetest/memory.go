// Package storagetest provides in-memory implementations of the storage
// interfaces for tests, with hooks for injecting failures.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"couple-journal/model"
	"couple-journal/storage"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore implements every repository interface of package storage.
// Set Fail to make a named method return an error.
type MemoryStore struct {
	mu    sync.Mutex
	clock time.Time

	Users         []model.UserDB
	Events        []model.TimelineEventDB
	Provinces     []model.ProvinceDB
	Visits        []model.UserProvinceVisitDB
	Discovery     []model.DiscoveryItemDB
	Anniversaries []model.AnniversaryDB

	Fail  map[string]error
	Calls []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Fail:  map[string]error{},
	}
}

func (m *MemoryStore) enter(method string) error {
	m.Calls = append(m.Calls, method)
	return m.Fail[method]
}

// tick hands out strictly increasing creation times so ordering is
// deterministic.
func (m *MemoryStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

// CallCount reports how many times method was invoked.
func (m *MemoryStore) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == method {
			n++
		}
	}
	return n
}

func owned(rowUser, userID string) bool {
	return userID == "" || rowUser == userID
}

func parseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

func reversed[T any](in []T) []T {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}

// Users

func (m *MemoryStore) CreateUser(ctx context.Context, user model.UserDB) (model.UserDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("CreateUser"); err != nil {
		return model.UserDB{}, err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range m.Users {
		if u.Email == user.Email {
			return model.UserDB{}, storage.ErrAlreadyExists
		}
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = m.tick()
	m.Users = append(m.Users, user)
	return user, nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*model.UserDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetUserByEmail"); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.Users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, storage.ErrNotFound
}

// Timeline

func (m *MemoryStore) ListTimelineEvents(ctx context.Context, userID string) ([]model.TimelineEventDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListTimelineEvents"); err != nil {
		return nil, err
	}
	out := []model.TimelineEventDB{}
	for _, e := range reversed(m.Events) {
		if owned(e.UserID, userID) {
			e.Images = slices.Clone(e.Images)
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetTimelineEvent(ctx context.Context, id, userID string) (*model.TimelineEventDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetTimelineEvent"); err != nil {
		return nil, err
	}
	oid, _ := parseID(id)
	for _, e := range m.Events {
		if e.ID == oid && owned(e.UserID, userID) {
			e.Images = slices.Clone(e.Images)
			return &e, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *MemoryStore) InsertTimelineEvent(ctx context.Context, event model.TimelineEventDB) (model.TimelineEventDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertTimelineEvent"); err != nil {
		return model.TimelineEventDB{}, err
	}
	event.ID = primitive.NewObjectID()
	event.CreatedAt = m.tick()
	event.Images = slices.Clone(event.Images)
	m.Events = append(m.Events, event)
	return event, nil
}

func (m *MemoryStore) UpdateTimelineEvent(ctx context.Context, id, userID string, fields map[string]any) (model.TimelineEventDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateTimelineEvent"); err != nil {
		return model.TimelineEventDB{}, err
	}
	oid, _ := parseID(id)
	for i, e := range m.Events {
		if e.ID != oid || !owned(e.UserID, userID) {
			continue
		}
		for k, v := range fields {
			switch k {
			case "date":
				e.Date = v.(string)
			case "day_of_week":
				e.DayOfWeek = v.(string)
			case "month":
				e.Month = v.(string)
			case "year":
				e.Year = v.(string)
			case "title":
				e.Title = v.(string)
			case "location":
				e.Location = v.(string)
			case "images":
				e.Images = slices.Clone(v.([]string))
			case "note":
				note := v.(string)
				e.Note = &note
			case "is_special":
				e.IsSpecial = v.(bool)
			}
		}
		m.Events[i] = e
		return e, nil
	}
	return model.TimelineEventDB{}, storage.ErrNotFound
}

func (m *MemoryStore) DeleteTimelineEvent(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteTimelineEvent"); err != nil {
		return err
	}
	oid, _ := parseID(id)
	for i, e := range m.Events {
		if e.ID == oid && owned(e.UserID, userID) {
			m.Events = slices.Delete(m.Events, i, i+1)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *MemoryStore) RemoveImageFromTimelineEvents(ctx context.Context, userID, imageURL string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RemoveImageFromTimelineEvents"); err != nil {
		return 0, err
	}
	var n int64
	for i, e := range m.Events {
		if !owned(e.UserID, userID) {
			continue
		}
		if images, changed := model.RemoveString(e.Images, imageURL); changed {
			m.Events[i].Images = images
			n++
		}
	}
	return n, nil
}

// Provinces

func (m *MemoryStore) ListProvinces(ctx context.Context) ([]model.ProvinceDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListProvinces"); err != nil {
		return nil, err
	}
	return slices.Clone(m.Provinces), nil
}

func (m *MemoryStore) SeedProvinces(ctx context.Context, provinces []model.ProvinceDB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("SeedProvinces"); err != nil {
		return err
	}
	if len(m.Provinces) == 0 {
		m.Provinces = slices.Clone(provinces)
	}
	return nil
}

func (m *MemoryStore) listVisits(match func(model.UserProvinceVisitDB) bool) []model.UserProvinceVisitDB {
	out := []model.UserProvinceVisitDB{}
	for _, v := range m.Visits {
		if match(v) {
			v.Photos = slices.Clone(v.Photos)
			out = append(out, v)
		}
	}
	return out
}

func (m *MemoryStore) ListVisits(ctx context.Context, userID string) ([]model.UserProvinceVisitDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListVisits"); err != nil {
		return nil, err
	}
	return m.listVisits(func(v model.UserProvinceVisitDB) bool { return owned(v.UserID, userID) }), nil
}

func (m *MemoryStore) ListProvinceVisits(ctx context.Context, userID, provinceID string) ([]model.UserProvinceVisitDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListProvinceVisits"); err != nil {
		return nil, err
	}
	return m.listVisits(func(v model.UserProvinceVisitDB) bool {
		return owned(v.UserID, userID) && v.ProvinceID == provinceID
	}), nil
}

func (m *MemoryStore) ListVisitsWithPhoto(ctx context.Context, userID, photoURL string) ([]model.UserProvinceVisitDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListVisitsWithPhoto"); err != nil {
		return nil, err
	}
	return m.listVisits(func(v model.UserProvinceVisitDB) bool {
		return owned(v.UserID, userID) && slices.Contains(v.Photos, photoURL)
	}), nil
}

func (m *MemoryStore) FindVisit(ctx context.Context, userID, provinceID, city string) (*model.UserProvinceVisitDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("FindVisit"); err != nil {
		return nil, err
	}
	for _, v := range m.Visits {
		if v.UserID == userID && v.ProvinceID == provinceID && v.City == city {
			v.Photos = slices.Clone(v.Photos)
			return &v, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *MemoryStore) InsertVisit(ctx context.Context, visit model.UserProvinceVisitDB) (model.UserProvinceVisitDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertVisit"); err != nil {
		return model.UserProvinceVisitDB{}, err
	}
	for _, v := range m.Visits {
		if v.UserID == visit.UserID && v.ProvinceID == visit.ProvinceID && v.City == visit.City {
			return model.UserProvinceVisitDB{}, storage.ErrAlreadyExists
		}
	}
	visit.ID = primitive.NewObjectID()
	visit.CreatedAt = m.tick()
	visit.UpdatedAt = visit.CreatedAt
	visit.Photos = slices.Clone(visit.Photos)
	if visit.Photos == nil {
		visit.Photos = []string{}
	}
	m.Visits = append(m.Visits, visit)
	return visit, nil
}

func (m *MemoryStore) UpdateVisit(ctx context.Context, id primitive.ObjectID, visitDate string, photos []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateVisit"); err != nil {
		return err
	}
	for i, v := range m.Visits {
		if v.ID == id {
			m.Visits[i].Photos = slices.Clone(photos)
			if visitDate != "" {
				m.Visits[i].VisitDate = visitDate
			}
			m.Visits[i].UpdatedAt = m.tick()
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *MemoryStore) DeleteVisit(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteVisit"); err != nil {
		return err
	}
	for i, v := range m.Visits {
		if v.ID == id {
			m.Visits = slices.Delete(m.Visits, i, i+1)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *MemoryStore) RestoreVisit(ctx context.Context, visit model.UserProvinceVisitDB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("RestoreVisit"); err != nil {
		return err
	}
	visit.Photos = slices.Clone(visit.Photos)
	for i, v := range m.Visits {
		if v.ID == visit.ID {
			m.Visits[i] = visit
			return nil
		}
	}
	// Keep creation order so merges stay deterministic.
	idx := len(m.Visits)
	for i, v := range m.Visits {
		if v.CreatedAt.After(visit.CreatedAt) {
			idx = i
			break
		}
	}
	m.Visits = slices.Insert(m.Visits, idx, visit)
	return nil
}

// Discovery

func (m *MemoryStore) ListDiscoveryItems(ctx context.Context, userID string) ([]model.DiscoveryItemDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListDiscoveryItems"); err != nil {
		return nil, err
	}
	out := []model.DiscoveryItemDB{}
	for _, d := range reversed(m.Discovery) {
		if owned(d.UserID, userID) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryStore) GetDiscoveryItem(ctx context.Context, id, userID string) (*model.DiscoveryItemDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("GetDiscoveryItem"); err != nil {
		return nil, err
	}
	oid, _ := parseID(id)
	for _, d := range m.Discovery {
		if d.ID == oid && owned(d.UserID, userID) {
			return &d, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *MemoryStore) InsertDiscoveryItem(ctx context.Context, item model.DiscoveryItemDB) (model.DiscoveryItemDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertDiscoveryItem"); err != nil {
		return model.DiscoveryItemDB{}, err
	}
	item.ID = primitive.NewObjectID()
	item.CreatedAt = m.tick()
	m.Discovery = append(m.Discovery, item)
	return item, nil
}

func (m *MemoryStore) UpdateDiscoveryItem(ctx context.Context, id, userID string, fields map[string]any) (model.DiscoveryItemDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("UpdateDiscoveryItem"); err != nil {
		return model.DiscoveryItemDB{}, err
	}
	oid, _ := parseID(id)
	for i, d := range m.Discovery {
		if d.ID != oid || !owned(d.UserID, userID) {
			continue
		}
		for k, v := range fields {
			switch k {
			case "image":
				d.Image = v.(string)
			case "title":
				d.Title = v.(string)
			case "location":
				d.Location = v.(string)
			case "date":
				d.Date = v.(string)
			case "type":
				d.Type = v.(model.DiscoveryType)
			case "checked":
				d.Checked = v.(bool)
			case "top_badge":
				d.TopBadge = v.(bool)
			}
		}
		m.Discovery[i] = d
		return d, nil
	}
	return model.DiscoveryItemDB{}, storage.ErrNotFound
}

func (m *MemoryStore) DeleteDiscoveryItem(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteDiscoveryItem"); err != nil {
		return err
	}
	oid, _ := parseID(id)
	for i, d := range m.Discovery {
		if d.ID == oid && owned(d.UserID, userID) {
			m.Discovery = slices.Delete(m.Discovery, i, i+1)
			return nil
		}
	}
	return storage.ErrNotFound
}

// Anniversaries

func (m *MemoryStore) ListAnniversaries(ctx context.Context, userID string) ([]model.AnniversaryDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("ListAnniversaries"); err != nil {
		return nil, err
	}
	out := []model.AnniversaryDB{}
	for _, a := range m.Anniversaries {
		if owned(a.UserID, userID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertAnniversary(ctx context.Context, ann model.AnniversaryDB) (model.AnniversaryDB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("InsertAnniversary"); err != nil {
		return model.AnniversaryDB{}, err
	}
	ann.ID = primitive.NewObjectID()
	ann.CreatedAt = m.tick()
	m.Anniversaries = append(m.Anniversaries, ann)
	return ann, nil
}

func (m *MemoryStore) DeleteAnniversary(ctx context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter("DeleteAnniversary"); err != nil {
		return err
	}
	oid, _ := parseID(id)
	for i, a := range m.Anniversaries {
		if a.ID == oid && owned(a.UserID, userID) {
			m.Anniversaries = slices.Delete(m.Anniversaries, i, i+1)
			return nil
		}
	}
	return storage.ErrNotFound
}

// MemoryPhotoStorage is an in-memory storage.PhotoStorage.
type MemoryPhotoStorage struct {
	mu      sync.Mutex
	BaseURL string
	Objects map[string][]byte
	// FailPut makes Put fail for paths whose file name contains the given
	// substring.
	FailPut string
}

func NewMemoryPhotoStorage() *MemoryPhotoStorage {
	return &MemoryPhotoStorage{BaseURL: "https://cdn.test/photos", Objects: map[string][]byte{}}
}

func (s *MemoryPhotoStorage) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != "" && strings.Contains(path, s.FailPut) {
		return "", io.ErrUnexpectedEOF
	}
	s.Objects[path] = data
	return s.BaseURL + "/" + path, nil
}

func (s *MemoryPhotoStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.Objects[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryPhotoStorage) Remove(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.Objects[path]; !ok {
		return storage.ErrNotFound
	}
	delete(s.Objects, path)
	return nil
}

func (s *MemoryPhotoStorage) PathFromURL(url string) (string, bool) {
	prefix := s.BaseURL + "/"
	if !strings.HasPrefix(url, prefix) || url == prefix {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// Len reports how many objects are stored.
func (s *MemoryPhotoStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}

var (
	_ storage.UserDB        = (*MemoryStore)(nil)
	_ storage.TimelineDB    = (*MemoryStore)(nil)
	_ storage.ProvinceDB    = (*MemoryStore)(nil)
	_ storage.DiscoveryDB   = (*MemoryStore)(nil)
	_ storage.AnniversaryDB = (*MemoryStore)(nil)
	_ storage.PhotoStorage  = (*MemoryPhotoStorage)(nil)
)
