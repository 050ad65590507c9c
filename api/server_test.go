package api

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"

	"couple-journal/auth"
	"couple-journal/journal"
	"couple-journal/model"
	"couple-journal/storage"
	"couple-journal/storage/storagetest"
	"couple-journal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEnv struct {
	store  *storagetest.MemoryStore
	photos *storagetest.MemoryPhotoStorage
	srv    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	store := storagetest.NewMemoryStore()
	photos := storagetest.NewMemoryPhotoStorage()

	s := NewServer(
		auth.NewService(store, "test-secret-key-at-least-32-chars", log),
		journal.New(store, store, store, store, log),
		upload.NewUploader(photos, log),
		&upload.Archiver{Storage: photos, Log: log},
		log,
	)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return &testEnv{store: store, photos: photos, srv: srv}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) signUp(t *testing.T, email string) auth.Session {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeBody[auth.Session](t, resp)
}

func (e *testEnv) guest(t *testing.T) auth.Session {
	t.Helper()
	resp := e.request(t, http.MethodPost, "/auth/guest", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decodeBody[auth.Session](t, resp)
}

type part struct {
	name        string
	contentType string
	data        []byte
}

func (e *testEnv) upload(t *testing.T, token, folder string, parts ...part) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("folder", folder))
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, p.name))
		h.Set("Content-Type", p.contentType)
		pw, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = pw.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/uploads", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	resp := e.request(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(t, http.MethodGet, "/timeline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.NotEmpty(t, body["error"])

	resp = e.request(t, http.MethodGet, "/timeline", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)
	session := e.signUp(t, "love@example.com")
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "love@example.com", session.User.Email)

	resp := e.request(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "love@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = e.request(t, http.MethodPost, "/auth/signin", "", map[string]string{"email": "love@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.request(t, http.MethodGet, "/auth/session", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decodeBody[auth.Session](t, resp)
	assert.Equal(t, session.User.ID, current.User.ID)

	resp = e.request(t, http.MethodPost, "/auth/signout", session.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.request(t, http.MethodGet, "/timeline", session.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSignUp_Validation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.request(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "love@example.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.request(t, http.MethodPost, "/auth/signup", "", map[string]string{"email": "nope", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTimelineCrud(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "a@example.com").Token

	resp := e.request(t, http.MethodPost, "/timeline", token, map[string]any{
		"title":    "第一次约会",
		"location": "外滩",
		"on":       "2023-10-24",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[model.TimelineEvent](t, resp)
	assert.Equal(t, "24", created.Date)
	assert.Equal(t, "周二", created.DayOfWeek)
	assert.Equal(t, "10月", created.Month)
	assert.Equal(t, "2023", created.Year)

	resp = e.request(t, http.MethodPatch, "/timeline/"+created.ID, token, map[string]any{"title": "约会"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "约会", decodeBody[model.TimelineEvent](t, resp).Title)

	resp = e.request(t, http.MethodGet, "/timeline", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]model.TimelineEvent](t, resp), 1)

	resp = e.request(t, http.MethodDelete, "/timeline/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.request(t, http.MethodDelete, "/timeline/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublish(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "a@example.com").Token

	resp := e.request(t, http.MethodPost, "/discovery/publish", token, map[string]any{
		"image": "https://cdn.test/photos/x.jpg",
		"title": "火锅",
		"type":  "food",
		"date":  "2024-03-05",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	res := decodeBody[journal.PublishResult](t, resp)
	assert.Equal(t, "[发布美食] 火锅", res.Event.Note)

	resp = e.request(t, http.MethodGet, "/timeline", token, nil)
	events := decodeBody[[]model.TimelineEvent](t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, res.Event.ID, events[0].ID)

	resp = e.request(t, http.MethodGet, "/details/discovery/"+res.Item.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "discovery", detail["kind"])

	resp = e.request(t, http.MethodGet, "/details/shop/"+res.Item.ID, token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPublish_Validation(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "a@example.com").Token

	resp := e.request(t, http.MethodPost, "/discovery/publish", token, map[string]any{"image": "x", "type": "food", "date": "2024-03-05"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.request(t, http.MethodPost, "/discovery/publish", token, map[string]any{"image": "x", "title": "t", "type": "drinks", "date": "2024-03-05"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Zero(t, e.store.CallCount("InsertDiscoveryItem"))
}

func TestGuestIsReadOnly(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "a@example.com").Token
	resp := e.request(t, http.MethodPost, "/anniversaries", token, map[string]any{"title": "在一起", "date": "2023-05-20"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	guest := e.guest(t)
	assert.True(t, guest.IsGuest())
	assert.Equal(t, model.GuestEmail, guest.User.Email)

	resp = e.request(t, http.MethodGet, "/timeline", guest.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeBody[[]model.TimelineEvent](t, resp), 1)

	resp = e.request(t, http.MethodGet, "/anniversaries/primary", guest.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "在一起", decodeBody[model.Anniversary](t, resp).Title)

	inserts := e.store.CallCount("InsertTimelineEvent")
	resp = e.request(t, http.MethodPost, "/discovery/publish", guest.Token, map[string]any{"image": "x", "title": "t", "type": "fun", "date": "2024-03-05"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = e.request(t, http.MethodDelete, "/photos?url=x", guest.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = e.upload(t, guest.Token, "footprints", part{name: "a.png", contentType: "image/png", data: pngBytes(t)})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	assert.Zero(t, e.store.CallCount("InsertDiscoveryItem"))
	assert.Equal(t, inserts, e.store.CallCount("InsertTimelineEvent"))
	assert.Zero(t, e.photos.Len())
}

func TestUploadFootprintAndAlbum(t *testing.T) {
	e := newTestEnv(t)
	session := e.signUp(t, "a@example.com")
	token := session.Token

	resp := e.upload(t, token, "footprints",
		part{name: "a.png", contentType: "image/png", data: pngBytes(t)},
		part{name: "b.png", contentType: "image/png", data: pngBytes(t)},
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploaded := decodeBody[uploadResponse](t, resp)
	require.Len(t, uploaded.Files, 2)
	for _, f := range uploaded.Files {
		assert.Contains(t, f.Path, session.User.ID+"/footprints/")
		assert.Contains(t, f.URL, ".png")
	}
	urls := []string{uploaded.Files[0].URL, uploaded.Files[1].URL}

	resp = e.request(t, http.MethodPost, "/footprints", token, map[string]any{
		"provinceId": "sichuan",
		"city":       "成都",
		"date":       "2024-03-05",
		"photos":     urls,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	footprint := decodeBody[journal.FootprintResult](t, resp)
	assert.Equal(t, "2024.03.05", footprint.Province.Date)
	assert.Equal(t, urls, footprint.Event.Images)

	resp = e.request(t, http.MethodGet, "/provinces/stats", token, nil)
	assert.Equal(t, 1, decodeBody[model.FootprintStats](t, resp).Visited)

	resp = e.request(t, http.MethodGet, "/provinces/sichuan/album.zip", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/zip", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)

	resp = e.request(t, http.MethodGet, "/provinces/"+url.PathEscape("四川")+"/album.zip", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "sichuan.zip")

	resp = e.request(t, http.MethodGet, "/provinces/atlantis/album.zip", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.request(t, http.MethodDelete, "/provinces/sichuan/photos?url="+url.QueryEscape(urls[0]), token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.request(t, http.MethodGet, "/timeline", token, nil)
	events := decodeBody[[]model.TimelineEvent](t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, []string{urls[1]}, events[0].Images)

	resp = e.request(t, http.MethodDelete, "/photos?url="+url.QueryEscape(urls[1]), token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = e.request(t, http.MethodGet, "/provinces/stats", token, nil)
	assert.Equal(t, 0, decodeBody[model.FootprintStats](t, resp).Visited)

	resp = e.request(t, http.MethodGet, "/provinces/sichuan/album.zip", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpload_RejectsWholeBatch(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "a@example.com").Token

	resp := e.upload(t, token, "footprints",
		part{name: "a.png", contentType: "image/png", data: pngBytes(t)},
		part{name: "notes.txt", contentType: "text/plain", data: []byte("hello")},
	)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeBody[struct {
		Error string          `json:"error"`
		Files []upload.Result `json:"files"`
	}](t, resp)
	require.Len(t, body.Files, 2)
	assert.Empty(t, body.Files[0].Error)
	assert.NotEmpty(t, body.Files[1].Error)
	assert.Zero(t, e.photos.Len())
}

func TestDeleteUpload(t *testing.T) {
	e := newTestEnv(t)
	session := e.signUp(t, "a@example.com")
	other := e.signUp(t, "b@example.com")

	resp := e.upload(t, session.Token, "avatars", part{name: "a.png", contentType: "image/png", data: pngBytes(t)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	path := decodeBody[uploadResponse](t, resp).Files[0].Path

	resp = e.request(t, http.MethodDelete, "/uploads?path="+url.QueryEscape(path), other.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = e.request(t, http.MethodDelete, "/uploads?path="+url.QueryEscape(other.User.ID+"/../"+path), other.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, e.photos.Len())

	resp = e.request(t, http.MethodDelete, "/uploads?path="+url.QueryEscape(path), session.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Zero(t, e.photos.Len())
}

func TestLocalFiles_NoDirectoryListing(t *testing.T) {
	log := zap.NewNop()
	store := storagetest.NewMemoryStore()
	local := &storage.LocalPhotoStorage{Directory: t.TempDir()}

	s := NewServer(
		auth.NewService(store, "test-secret-key-at-least-32-chars", log),
		journal.New(store, store, store, store, log),
		upload.NewUploader(local, log),
		&upload.Archiver{Storage: local, Log: log},
		log,
	)
	s.Files = local.Handler()
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	local.BaseURL = srv.URL + "/files"
	e := &testEnv{store: store, srv: srv}

	session := e.signUp(t, "a@example.com")
	resp := e.upload(t, session.Token, "general", part{name: "a.png", contentType: "image/png", data: pngBytes(t)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	uploaded := decodeBody[uploadResponse](t, resp).Files[0]

	for _, dir := range []string{"/files/", "/files/" + session.User.ID + "/", "/files/" + session.User.ID + "/general/"} {
		resp = e.request(t, http.MethodGet, dir, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, dir)
	}

	resp, err := http.Get(uploaded.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
