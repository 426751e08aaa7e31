package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/cache"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/models"
)

type testEnv struct {
	t        *testing.T
	db       *memoryDB
	uploader *fakeUploader
	events   *recordingPublisher
	deps     Dependencies
	handler  http.Handler
}

func newTestEnv(t *testing.T, opts ...func(*Dependencies)) *testEnv {
	t.Helper()

	db := newMemoryDB()
	users := fakeUsers{db: db}
	uploader := &fakeUploader{duration: 42.5}
	publisher := &recordingPublisher{}

	deps := Dependencies{
		Users: users,
		Sessions: auth.NewManager(auth.Options{
			AccessSecret:  "test-access-secret",
			AccessTTL:     time.Minute,
			RefreshSecret: "test-refresh-secret",
			RefreshTTL:    time.Hour,
		}, users),
		Videos:        fakeVideos{db: db},
		Comments:      fakeComments{db: db},
		Tweets:        fakeTweets{db: db},
		Likes:         fakeLikes{db: db},
		Subscriptions: fakeSubscriptions{db: db},
		Playlists:     fakePlaylists{db: db},
		Dashboard:     fakeStats{db: db},
		StatsCache:    cache.NewMemoryStatsCache(16, time.Minute),
		Uploader:      uploader,
		Events:        publisher,
		Cookies:       config.CookieConfig{Secure: true},
		Staging:       Staging{Dir: t.TempDir(), MaxBytes: 1 << 20},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)

	return &testEnv{t: t, db: db, uploader: uploader, events: publisher, deps: deps, handler: mux}
}

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Errors     []string        `json:"errors"`
	Data       json.RawMessage `json:"data"`
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// do sends a JSON request, authenticated with the bearer token when one is given.
func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.serve(req)
}

type formFile struct {
	field, name string
	content     []byte
}

func (e *testEnv) multipart(method, path, token string, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			e.t.Fatalf("write field: %v", err)
		}
	}
	for _, file := range files {
		part, err := writer.CreateFormFile(file.field, file.name)
		if err != nil {
			e.t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(file.content); err != nil {
			e.t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		e.t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.serve(req)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %q)", err, rec.Body.String())
	}
	if env.StatusCode != rec.Code {
		t.Fatalf("envelope status %d does not echo response status %d", env.StatusCode, rec.Code)
	}
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	env := decodeEnvelope(t, rec)
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d got %d: %s", want, rec.Code, rec.Body.String())
	}
}

var avatarFile = formFile{field: "avatar", name: "avatar.png", content: []byte("\x89PNG\r\n\x1a\nfake")}

func (e *testEnv) register(username, email, password string) models.User {
	e.t.Helper()
	rec := e.multipart(http.MethodPost, "/api/v1/users/register", "", map[string]string{
		"fullName": username + " Example",
		"email":    email,
		"username": username,
		"password": password,
	}, avatarFile)
	expectStatus(e.t, rec, http.StatusCreated)
	return decodeData[models.User](e.t, rec)
}

func (e *testEnv) login(username, password string) loginResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/users/login", "", map[string]string{"username": username, "password": password})
	expectStatus(e.t, rec, http.StatusOK)
	return decodeData[loginResponse](e.t, rec)
}

// signUp registers and logs a user in, returning the user and an access token.
func (e *testEnv) signUp(username string) (models.User, string) {
	e.t.Helper()
	user := e.register(username, username+"@example.com", "supersafe")
	return user, e.login(username, "supersafe").AccessToken
}

func (e *testEnv) publishVideo(token, title string, published bool) models.Video {
	e.t.Helper()
	rec := e.multipart(http.MethodPost, "/api/v1/videos", token, map[string]string{
		"title":       title,
		"description": "about " + title,
		"isPublished": boolString(published),
	},
		formFile{field: "videoFile", name: "clip.mp4", content: []byte("fake video")},
		formFile{field: "thumbnail", name: "thumb.jpg", content: []byte("fake image")},
	)
	expectStatus(e.t, rec, http.StatusCreated)
	return decodeData[models.Video](e.t, rec)
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func httpRequestWithCookie(method, path, name, value string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.AddCookie(&http.Cookie{Name: name, Value: value})
	return req
}
