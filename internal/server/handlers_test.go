package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"rubato/internal/config"
	"rubato/internal/database"
)

// newTestServer builds a server against a temp database with auth disabled.
func newTestServer(t *testing.T) (*LyricServer, *http.ServeMux, func()) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Auth.Enabled = false
	cfg.Library.WatchForChanges = false
	cfg.Logging.RequestLogging = false

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	ls, err := NewLyricServer(cfg, db, logger)
	if err != nil {
		db.Close()
		t.Fatalf("failed to create server: %v", err)
	}

	cleanup := func() {
		ls.syncSessions.Close()
		ls.lyricsCache.Close()
		db.Close()
	}

	return ls, ls.setupRoutes(), cleanup
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func createTestSong(t *testing.T, mux *http.ServeMux, title, artist string) string {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/songs", map[string]string{
		"title":  title,
		"artist": artist,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating song, got %d: %s", rec.Code, rec.Body.String())
	}

	var song struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &song)
	return song.ID
}

func TestCreateAndGetSong(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	id := createTestSong(t, mux, "Test Song", "Test Artist")

	rec := doJSON(t, mux, http.MethodGet, "/api/songs/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var song struct {
		Title      string `json:"title"`
		ArtistName string `json:"artistName"`
		Status     string `json:"status"`
	}
	decodeBody(t, rec, &song)

	if song.Title != "Test Song" || song.ArtistName != "Test Artist" {
		t.Errorf("unexpected song: %+v", song)
	}
	if song.Status != "draft" {
		t.Errorf("expected draft status, got %s", song.Status)
	}
}

func TestCreateSongRejectsDuplicate(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	createTestSong(t, mux, "Same Song", "Same Artist")

	rec := doJSON(t, mux, http.MethodPost, "/api/songs", map[string]string{
		"title":  "Same Song",
		"artist": "Same Artist",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate song, got %d", rec.Code)
	}
}

func TestCreateSongRequiresTitle(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, mux, http.MethodPost, "/api/songs", map[string]string{
		"artist": "No Title",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing title, got %d", rec.Code)
	}
}

func TestGetSongNotFound(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, mux, http.MethodGet, "/api/songs/a2aa9ad2-22a5-4c4a-9d83-02b823cd0362", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestGetSongInvalidID(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, mux, http.MethodGet, "/api/songs/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestSearchSongs(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	createTestSong(t, mux, "Yellow Submarine", "The Beatles")
	createTestSong(t, mux, "Paint It Black", "The Rolling Stones")

	rec := doJSON(t, mux, http.MethodGet, "/api/songs?search=yellow", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var songs []struct {
		Title string `json:"title"`
	}
	decodeBody(t, rec, &songs)

	if len(songs) != 1 || songs[0].Title != "Yellow Submarine" {
		t.Errorf("unexpected search results: %+v", songs)
	}
}

func TestSongCount(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	createTestSong(t, mux, "One", "Artist")
	createTestSong(t, mux, "Two", "Artist")

	rec := doJSON(t, mux, http.MethodGet, "/api/songs/count", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 2 {
		t.Errorf("expected count 2, got %d", body.Count)
	}
}

func TestUploadAndGetLrc(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	id := createTestSong(t, mux, "Synced Song", "Artist")

	lrcText := "[ti:Synced Song]\n[00:01.50]First line\n[00:05.00]Second line\n"
	rec := doJSON(t, mux, http.MethodPost, "/api/songs/"+id+"/lrc", map[string]string{
		"lrc":    lrcText,
		"source": "manual",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 uploading lrc, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/songs/"+id+"/lrc", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Lrc    string `json:"lrc"`
		Source string `json:"source"`
		Lines  []struct {
			Time float64 `json:"time"`
			Text string  `json:"text"`
		} `json:"lines"`
	}
	decodeBody(t, rec, &body)

	if body.Lrc != lrcText {
		t.Error("raw LRC text not preserved")
	}
	if body.Source != "manual" {
		t.Errorf("expected manual source, got %s", body.Source)
	}
	if len(body.Lines) != 2 || body.Lines[0].Time != 1.5 || body.Lines[1].Text != "Second line" {
		t.Errorf("unexpected synced lines: %+v", body.Lines)
	}

	// Upload marks the song published
	rec = doJSON(t, mux, http.MethodGet, "/api/songs/"+id, nil)
	var song struct {
		Status string `json:"status"`
	}
	decodeBody(t, rec, &song)
	if song.Status != "published" {
		t.Errorf("expected published status after upload, got %s", song.Status)
	}
}

func TestUploadLrcWithoutSyncedLines(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	id := createTestSong(t, mux, "Plain Song", "Artist")

	rec := doJSON(t, mux, http.MethodPost, "/api/songs/"+id+"/lrc", map[string]string{
		"lrc": "just some text\nwithout any time codes\n",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for untimed text, got %d", rec.Code)
	}

	var result ValidationResult
	decodeBody(t, rec, &result)
	if len(result.Errors) != 1 || result.Errors[0].Code != "NO_SYNCED_LINES" {
		t.Errorf("unexpected validation errors: %+v", result.Errors)
	}
}

func TestGetPlainLyrics(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	id := createTestSong(t, mux, "Lyric Song", "Artist")

	doJSON(t, mux, http.MethodPost, "/api/songs/"+id+"/lrc", map[string]string{
		"lrc": "[ti:Lyric Song]\n[00:01.00]Hello\n[00:02.00]World\n",
	})

	rec := doJSON(t, mux, http.MethodGet, "/api/songs/"+id+"/lyrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Lyrics string `json:"lyrics"`
	}
	decodeBody(t, rec, &body)
	if body.Lyrics != "Hello\nWorld" {
		t.Errorf("expected plain lyrics, got %q", body.Lyrics)
	}
}

func TestHealthCheck(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, mux, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var health HealthStatus
	decodeBody(t, rec, &health)
	if health.Status != "healthy" || health.Database != "ok" {
		t.Errorf("unexpected health: %+v", health)
	}
}

func TestStats(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	for i := 0; i < 3; i++ {
		createTestSong(t, mux, fmt.Sprintf("Song %d", i), "Shared Artist")
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats struct {
		SongCount   int `json:"songCount"`
		ArtistCount int `json:"artistCount"`
	}
	decodeBody(t, rec, &stats)
	if stats.SongCount != 3 || stats.ArtistCount != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}
