package client

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"couple-journal/api"
	"couple-journal/auth"
	"couple-journal/journal"
	"couple-journal/model"
	"couple-journal/storage/storagetest"
	"couple-journal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	store    *storagetest.MemoryStore
	requests atomic.Int64
	url      string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := storagetest.NewMemoryStore()
	photos := storagetest.NewMemoryPhotoStorage()
	s := api.NewServer(
		auth.NewService(store, "test-secret-key-at-least-32-chars", log),
		journal.New(store, store, store, store, log),
		upload.NewUploader(photos, log),
		&upload.Archiver{Storage: photos, Log: log},
		log,
	)

	ts := &testServer{store: store}
	routes := s.Routes()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		routes.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	ts.url = srv.URL
	return ts
}

func signedIn(t *testing.T, ts *testServer, email string) *Client {
	t.Helper()
	c := New(ts.url, zap.NewNop())
	_, err := c.SignUp(context.Background(), email, "secret1")
	require.NoError(t, err)
	return c
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		img.Set(x, x, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestGuestWritesStayLocal(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	owner := signedIn(t, ts, "a@example.com")
	_, err := owner.Publish(ctx, journal.PublishInput{Image: "x.jpg", Title: "火锅", Type: model.DiscoveryFood, Date: "2024-03-05"})
	require.NoError(t, err)

	guest := New(ts.url, zap.NewNop())
	_, err = guest.EnterGuest(ctx)
	require.NoError(t, err)
	assert.True(t, guest.IsGuest())

	items, err := guest.DiscoveryItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	before := ts.requests.Load()
	_, err = guest.Publish(ctx, journal.PublishInput{Image: "x.jpg", Title: "t", Type: model.DiscoveryFun, Date: "2024-03-05"})
	assert.ErrorIs(t, err, ErrGuestReadOnly)
	_, err = guest.CreateTimelineEvent(ctx, model.TimelineEvent{Title: "t"})
	assert.ErrorIs(t, err, ErrGuestReadOnly)
	assert.ErrorIs(t, guest.SyncDeletePhoto(ctx, "x.jpg"), ErrGuestReadOnly)
	_, err = guest.Upload(ctx, "footprints", []upload.File{{Name: "a.png", ContentType: "image/png", Data: pngBytes(t)}})
	assert.ErrorIs(t, err, ErrGuestReadOnly)

	_, err = guest.TimelineCollection().Add(ctx, model.TimelineEvent{Title: "t"})
	assert.ErrorIs(t, err, ErrGuestReadOnly)

	require.NoError(t, guest.SignOut(ctx))
	assert.Equal(t, before, ts.requests.Load())
	_, ok := guest.Session()
	assert.False(t, ok)
}

func TestWritesNeedSession(t *testing.T) {
	ts := newTestServer(t)
	c := New(ts.url, zap.NewNop())

	_, err := c.CreateDiscoveryItem(context.Background(), model.DiscoveryItem{Title: "t"})
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Zero(t, ts.requests.Load())
}

func TestAPIErrors(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	c := signedIn(t, ts, "a@example.com")

	err := c.DeleteTimelineEvent(ctx, "65f000000000000000000000")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)

	other := New(ts.url, zap.NewNop())
	_, err = other.SignIn(ctx, "a@example.com", "wrong")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.NotEmpty(t, apiErr.Message)
}

func TestCollections(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	c := signedIn(t, ts, "a@example.com")

	timeline := c.TimelineCollection()
	require.NoError(t, timeline.Reload(ctx))
	assert.Empty(t, timeline.Items())
	assert.False(t, timeline.Loading())

	_, err := timeline.Add(ctx, model.TimelineEvent{Title: "first", Year: "2023", Month: "1月", Date: "1"})
	require.NoError(t, err)
	_, err = timeline.Add(ctx, model.TimelineEvent{Title: "second", Year: "2022", Month: "1月", Date: "1"})
	require.NoError(t, err)
	items := timeline.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "second", items[0].Title)

	// A reload puts the server's order back.
	require.NoError(t, timeline.Reload(ctx))
	assert.Equal(t, "first", timeline.Items()[0].Title)

	anns := c.AnniversaryCollection()
	_, err = anns.Add(ctx, model.Anniversary{Title: "初见", Date: "2022-12-24"})
	require.NoError(t, err)
	_, err = anns.Add(ctx, model.Anniversary{Title: "旅行", Date: "2023-08-01"})
	require.NoError(t, err)
	assert.Equal(t, "初见", anns.Items()[0].Title)
	assert.Equal(t, "旅行", anns.Items()[1].Title)

	primary, err := c.PrimaryAnniversary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "初见", primary.Title)

	provinces := c.ProvinceMap()
	require.NoError(t, provinces.MarkVisited(ctx, "yunnan", "大理", "2024-02-01", []string{"p.jpg"}))
	for _, p := range provinces.Items() {
		if p.ID == "yunnan" {
			assert.True(t, p.Visited)
			assert.Equal(t, "2024.02.01", p.Date)
			assert.Equal(t, []string{"p.jpg"}, p.Photos)
		}
	}
	_, err = provinces.Add(ctx, model.Province{})
	assert.Error(t, err)
}

func TestCollection_ReloadFailureKeepsItems(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("offline")
	fail := false
	c := newCollection(func(context.Context) ([]string, error) {
		if fail {
			return nil, boom
		}
		return []string{"a"}, nil
	}, nil, true)

	require.NoError(t, c.Reload(ctx))
	fail = true
	assert.ErrorIs(t, c.Reload(ctx), boom)
	assert.Equal(t, []string{"a"}, c.Items())
	assert.ErrorIs(t, c.Err(), boom)
}

func TestCollection_LastReloadWins(t *testing.T) {
	ctx := context.Background()
	releaseSlow := make(chan struct{})
	slowStarted := make(chan struct{})
	var calls atomic.Int64

	c := newCollection(func(context.Context) ([]string, error) {
		if calls.Add(1) == 1 {
			close(slowStarted)
			<-releaseSlow
			return []string{"stale"}, nil
		}
		return []string{"fresh"}, nil
	}, nil, true)

	done := make(chan error)
	go func() { done <- c.Reload(ctx) }()
	<-slowStarted

	require.NoError(t, c.Reload(ctx))
	close(releaseSlow)
	require.NoError(t, <-done)

	assert.Equal(t, []string{"fresh"}, c.Items())
	assert.False(t, c.Loading())
}

func TestPublishUploadAndDetail(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	c := signedIn(t, ts, "a@example.com")

	results, err := c.Upload(ctx, "discovery", []upload.File{{Name: "a.png", ContentType: "image/png", Data: pngBytes(t)}})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res, err := c.Publish(ctx, journal.PublishInput{Image: results[0].URL, Title: "好店", Type: model.DiscoveryShop, Date: "2024-03-05"})
	require.NoError(t, err)

	d, err := c.Detail(ctx, model.DetailDiscovery, res.Item.ID)
	require.NoError(t, err)
	detail, ok := d.(model.DiscoveryDetail)
	require.True(t, ok)
	assert.Equal(t, "好店", detail.Label)
	assert.Equal(t, results[0].URL, detail.Image)

	d, err = c.Detail(ctx, model.DetailTimeline, res.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, "[发布好店] 好店", d.(model.TimelineDetail).Note)

	_, err = c.Upload(ctx, "discovery", []upload.File{{Name: "a.txt", ContentType: "text/plain", Data: []byte("hi")}})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Len(t, apiErr.Files, 1)
	assert.NotEmpty(t, apiErr.Files[0].Error)
}

func TestFootprintAndAlbumDownload(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	c := signedIn(t, ts, "a@example.com")

	results, err := c.Upload(ctx, "footprints", []upload.File{{Name: "a.png", ContentType: "image/png", Data: pngBytes(t)}})
	require.NoError(t, err)

	_, err = c.RecordFootprint(ctx, journal.FootprintInput{Province: "zhejiang", City: "杭州", Date: "2024-04-01", Photos: []string{results[0].URL}})
	require.NoError(t, err)

	var zipped bytes.Buffer
	require.NoError(t, c.DownloadAlbum(ctx, "zhejiang", &zipped))
	assert.NotZero(t, zipped.Len())

	require.NoError(t, c.DeleteAlbumPhoto(ctx, "zhejiang", results[0].URL))
	stats, err := c.ProvinceStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Visited)

	events, err := c.Timeline(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Empty(t, events[0].Images)
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	c := signedIn(t, ts, "a@example.com")
	session, _ := c.Session()

	require.NoError(t, c.SignOut(ctx))

	stale := New(ts.url, zap.NewNop())
	stale.setSession(&session)
	_, err := stale.Timeline(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}
