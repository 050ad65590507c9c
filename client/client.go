// Package client talks to the journal API on behalf of an app: it keeps the
// signed-in session, refuses writes for guests locally, and keeps reloadable
// copies of each collection.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"couple-journal/auth"
	"couple-journal/journal"
	"couple-journal/model"
	"couple-journal/upload"

	"go.uber.org/zap"
)

var (
	ErrGuestReadOnly = errors.New("guest sessions are read-only")
	ErrNotSignedIn   = errors.New("not signed in")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
	// Files carries per-file outcomes when an upload batch was refused.
	Files []upload.Result
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger

	mu      sync.RWMutex
	session *auth.Session
}

func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    http.DefaultClient,
		Log:     log,
	}
}

// Session returns the current session, if any.
func (c *Client) Session() (auth.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return auth.Session{}, false
	}
	return *c.session, true
}

func (c *Client) IsGuest() bool {
	s, ok := c.Session()
	return ok && s.IsGuest()
}

func (c *Client) setSession(s *auth.Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

func (c *Client) token() string {
	s, ok := c.Session()
	if !ok {
		return ""
	}
	return s.Token
}

// writable is checked before every write so guest writes never leave the
// device.
func (c *Client) writable() error {
	s, ok := c.Session()
	if !ok {
		return ErrNotSignedIn
	}
	if s.IsGuest() {
		return ErrGuestReadOnly
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, contentType, r, out)
}

func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Log.Error("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if w, ok := out.(io.Writer); ok {
		_, err := io.Copy(w, resp.Body)
		return err
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var body struct {
		Error string          `json:"error"`
		Files []upload.Result `json:"files"`
	}
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Error
		apiErr.Files = body.Files
	}
	return apiErr
}

// Auth

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *Client) SignUp(ctx context.Context, email, password string) (auth.Session, error) {
	var s auth.Session
	if err := c.do(ctx, http.MethodPost, "/auth/signup", credentials{email, password}, &s); err != nil {
		return auth.Session{}, err
	}
	c.setSession(&s)
	return s, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (auth.Session, error) {
	var s auth.Session
	if err := c.do(ctx, http.MethodPost, "/auth/signin", credentials{email, password}, &s); err != nil {
		return auth.Session{}, err
	}
	c.setSession(&s)
	return s, nil
}

// EnterGuest starts a read-only visitor session.
func (c *Client) EnterGuest(ctx context.Context) (auth.Session, error) {
	var s auth.Session
	if err := c.do(ctx, http.MethodPost, "/auth/guest", nil, &s); err != nil {
		return auth.Session{}, err
	}
	c.setSession(&s)
	return s, nil
}

// SignOut ends the session. Leaving guest mode is local only.
func (c *Client) SignOut(ctx context.Context) error {
	s, ok := c.Session()
	if !ok {
		return nil
	}
	defer c.setSession(nil)
	if s.IsGuest() {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/signout", nil, nil)
}

// Timeline

func (c *Client) Timeline(ctx context.Context) ([]model.TimelineEvent, error) {
	var events []model.TimelineEvent
	err := c.do(ctx, http.MethodGet, "/timeline", nil, &events)
	return events, err
}

func (c *Client) CreateTimelineEvent(ctx context.Context, event model.TimelineEvent) (model.TimelineEvent, error) {
	if err := c.writable(); err != nil {
		return model.TimelineEvent{}, err
	}
	var created model.TimelineEvent
	err := c.do(ctx, http.MethodPost, "/timeline", event, &created)
	return created, err
}

func (c *Client) UpdateTimelineEvent(ctx context.Context, id string, patch model.TimelineEventPatch) (model.TimelineEvent, error) {
	if err := c.writable(); err != nil {
		return model.TimelineEvent{}, err
	}
	var updated model.TimelineEvent
	err := c.do(ctx, http.MethodPatch, "/timeline/"+url.PathEscape(id), patch, &updated)
	return updated, err
}

func (c *Client) DeleteTimelineEvent(ctx context.Context, id string) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/timeline/"+url.PathEscape(id), nil, nil)
}

// Discovery

func (c *Client) DiscoveryItems(ctx context.Context) ([]model.DiscoveryItem, error) {
	var items []model.DiscoveryItem
	err := c.do(ctx, http.MethodGet, "/discovery", nil, &items)
	return items, err
}

func (c *Client) CreateDiscoveryItem(ctx context.Context, item model.DiscoveryItem) (model.DiscoveryItem, error) {
	if err := c.writable(); err != nil {
		return model.DiscoveryItem{}, err
	}
	var created model.DiscoveryItem
	err := c.do(ctx, http.MethodPost, "/discovery", item, &created)
	return created, err
}

func (c *Client) UpdateDiscoveryItem(ctx context.Context, id string, patch model.DiscoveryItemPatch) (model.DiscoveryItem, error) {
	if err := c.writable(); err != nil {
		return model.DiscoveryItem{}, err
	}
	var updated model.DiscoveryItem
	err := c.do(ctx, http.MethodPatch, "/discovery/"+url.PathEscape(id), patch, &updated)
	return updated, err
}

func (c *Client) DeleteDiscoveryItem(ctx context.Context, id string) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/discovery/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Publish(ctx context.Context, in journal.PublishInput) (journal.PublishResult, error) {
	if err := c.writable(); err != nil {
		return journal.PublishResult{}, err
	}
	var res journal.PublishResult
	err := c.do(ctx, http.MethodPost, "/discovery/publish", in, &res)
	return res, err
}

// Anniversaries

func (c *Client) Anniversaries(ctx context.Context) ([]model.Anniversary, error) {
	var anns []model.Anniversary
	err := c.do(ctx, http.MethodGet, "/anniversaries", nil, &anns)
	return anns, err
}

func (c *Client) PrimaryAnniversary(ctx context.Context) (model.Anniversary, error) {
	var ann model.Anniversary
	err := c.do(ctx, http.MethodGet, "/anniversaries/primary", nil, &ann)
	return ann, err
}

func (c *Client) AddAnniversary(ctx context.Context, in journal.AnniversaryInput) (journal.AnniversaryResult, error) {
	if err := c.writable(); err != nil {
		return journal.AnniversaryResult{}, err
	}
	var res journal.AnniversaryResult
	err := c.do(ctx, http.MethodPost, "/anniversaries", in, &res)
	return res, err
}

// Provinces

func (c *Client) Provinces(ctx context.Context) ([]model.Province, error) {
	var provinces []model.Province
	err := c.do(ctx, http.MethodGet, "/provinces", nil, &provinces)
	return provinces, err
}

func (c *Client) ProvinceStats(ctx context.Context) (model.FootprintStats, error) {
	var stats model.FootprintStats
	err := c.do(ctx, http.MethodGet, "/provinces/stats", nil, &stats)
	return stats, err
}

func (c *Client) MarkVisited(ctx context.Context, provinceID, city, date string, photos []string) (model.Province, error) {
	if err := c.writable(); err != nil {
		return model.Province{}, err
	}
	body := map[string]any{"city": city, "date": date, "photos": photos}
	var p model.Province
	err := c.do(ctx, http.MethodPost, "/provinces/"+url.PathEscape(provinceID)+"/visits", body, &p)
	return p, err
}

func (c *Client) RecordFootprint(ctx context.Context, in journal.FootprintInput) (journal.FootprintResult, error) {
	if err := c.writable(); err != nil {
		return journal.FootprintResult{}, err
	}
	var res journal.FootprintResult
	err := c.do(ctx, http.MethodPost, "/footprints", in, &res)
	return res, err
}

// DeleteAlbumPhoto removes a photo from a province album and the timeline.
func (c *Client) DeleteAlbumPhoto(ctx context.Context, provinceID, photoURL string) error {
	if err := c.writable(); err != nil {
		return err
	}
	path := "/provinces/" + url.PathEscape(provinceID) + "/photos?url=" + url.QueryEscape(photoURL)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// SyncDeletePhoto removes a photo from every album and timeline event.
func (c *Client) SyncDeletePhoto(ctx context.Context, photoURL string) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/photos?url="+url.QueryEscape(photoURL), nil, nil)
}

// DownloadAlbum writes a province album as a zip archive to w.
func (c *Client) DownloadAlbum(ctx context.Context, provinceID string, w io.Writer) error {
	return c.send(ctx, http.MethodGet, "/provinces/"+url.PathEscape(provinceID)+"/album.zip", "", nil, w)
}

// Details

type rawDetail struct {
	Kind   model.DetailKind `json:"kind"`
	Detail json.RawMessage  `json:"detail"`
}

func (c *Client) Detail(ctx context.Context, kind model.DetailKind, id string) (model.Detail, error) {
	var raw rawDetail
	if err := c.do(ctx, http.MethodGet, "/details/"+string(kind)+"/"+url.PathEscape(id), nil, &raw); err != nil {
		return nil, err
	}
	switch raw.Kind {
	case model.DetailTimeline:
		var d model.TimelineDetail
		err := json.Unmarshal(raw.Detail, &d)
		return d, err
	case model.DetailDiscovery:
		var d model.DiscoveryDetail
		err := json.Unmarshal(raw.Detail, &d)
		return d, err
	}
	return nil, fmt.Errorf("unknown detail kind %q", raw.Kind)
}

// Uploads

// Upload sends files as one batch. Either every file is stored or none is.
func (c *Client) Upload(ctx context.Context, folder string, files []upload.File) ([]upload.Result, error) {
	if err := c.writable(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("folder", folder); err != nil {
		return nil, err
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
		h.Set("Content-Type", f.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var res struct {
		Files []upload.Result `json:"files"`
	}
	if err := c.send(ctx, http.MethodPost, "/uploads", mw.FormDataContentType(), &buf, &res); err != nil {
		return nil, err
	}
	return res.Files, nil
}

func (c *Client) DeleteUpload(ctx context.Context, path string) error {
	if err := c.writable(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/uploads?path="+url.QueryEscape(path), nil, nil)
}
