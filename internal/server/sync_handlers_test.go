package server

import (
	"net/http"
	"strings"
	"testing"
)

type snapshotBody struct {
	SessionID string `json:"sessionId"`
	Snapshot  struct {
		State       string    `json:"state"`
		Lines       []string  `json:"lines"`
		Timestamps  []float64 `json:"timestamps"`
		ActiveIndex int       `json:"activeIndex"`
		SyncedCount int       `json:"syncedCount"`
		CanUndo     bool      `json:"canUndo"`
	} `json:"snapshot"`
}

func startSyncSession(t *testing.T, ls *LyricServer, mux *http.ServeMux, lyrics string) string {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/start", map[string]string{
		"lyrics": lyrics,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 starting session, got %d: %s", rec.Code, rec.Body.String())
	}

	var body snapshotBody
	decodeBody(t, rec, &body)
	if body.Snapshot.State != "lyrics-entered" {
		t.Fatalf("expected lyrics-entered state, got %s", body.Snapshot.State)
	}
	return body.SessionID
}

func TestSyncFlowOverHTTP(t *testing.T) {
	ls, mux, cleanup := newTestServer(t)
	defer cleanup()

	sessionID := startSyncSession(t, ls, mux, "First line\nSecond line\nThird line")

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/start", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 starting capture, got %d: %s", rec.Code, rec.Body.String())
	}

	// Drive the playback clock between taps the way the audio element would.
	times := []float64{1.5, 4.25, 8.0}
	for i, tm := range times {
		ls.playerState.UpdateTime(tm, 200)

		rec = doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/tap", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("tap %d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}

	var body snapshotBody
	decodeBody(t, rec, &body)
	if body.Snapshot.State != "fully-synced" {
		t.Errorf("expected fully-synced after final tap, got %s", body.Snapshot.State)
	}
	if body.Snapshot.SyncedCount != 3 {
		t.Errorf("expected 3 synced lines, got %d", body.Snapshot.SyncedCount)
	}
	if body.Snapshot.Timestamps[1] != 4.25 {
		t.Errorf("expected second timestamp 4.25, got %v", body.Snapshot.Timestamps[1])
	}

	rec = doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/commit", map[string]string{
		"title":  "Committed Song",
		"artist": "Committed Artist",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 committing, got %d: %s", rec.Code, rec.Body.String())
	}

	var commit struct {
		Success bool   `json:"success"`
		SongID  string `json:"songId"`
		Lrc     string `json:"lrc"`
	}
	decodeBody(t, rec, &commit)
	if !commit.Success || commit.SongID == "" {
		t.Fatalf("unexpected commit response: %+v", commit)
	}
	if !strings.Contains(commit.Lrc, "[00:01.50]First line") {
		t.Errorf("generated LRC missing first line: %q", commit.Lrc)
	}
	if !strings.Contains(commit.Lrc, "[ti:Committed Song]") {
		t.Errorf("generated LRC missing title header: %q", commit.Lrc)
	}

	// Session is gone after commit
	rec = doJSON(t, mux, http.MethodGet, "/api/sync/"+sessionID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for committed session, got %d", rec.Code)
	}

	// The song and its lyrics were persisted
	rec = doJSON(t, mux, http.MethodGet, "/api/songs/"+commit.SongID+"/lrc", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected stored lrc after commit, got %d", rec.Code)
	}
}

func TestSyncCommitRefusedWhileIncomplete(t *testing.T) {
	ls, mux, cleanup := newTestServer(t)
	defer cleanup()

	sessionID := startSyncSession(t, ls, mux, "One\nTwo")
	doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/start", nil)

	ls.playerState.UpdateTime(2.0, 100)
	doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/tap", nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/commit", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409 committing incomplete session, got %d", rec.Code)
	}

	// Session survives the refused commit
	rec = doJSON(t, mux, http.MethodGet, "/api/sync/"+sessionID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected session to survive refused commit, got %d", rec.Code)
	}
}

func TestSyncUndoOverHTTP(t *testing.T) {
	ls, mux, cleanup := newTestServer(t)
	defer cleanup()

	sessionID := startSyncSession(t, ls, mux, "One\nTwo")
	doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/start", nil)

	ls.playerState.UpdateTime(1.0, 100)
	doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/tap", nil)
	ls.playerState.UpdateTime(2.0, 100)
	doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/tap", nil)

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 undoing, got %d", rec.Code)
	}

	var body snapshotBody
	decodeBody(t, rec, &body)
	if body.Snapshot.SyncedCount != 1 || body.Snapshot.ActiveIndex != 1 {
		t.Errorf("expected one synced line with active index 1, got %+v", body.Snapshot)
	}
}

func TestSyncAdjustUsesConfiguredStep(t *testing.T) {
	ls, mux, cleanup := newTestServer(t)
	defer cleanup()

	sessionID := startSyncSession(t, ls, mux, "Only line")
	doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/start", nil)

	ls.playerState.UpdateTime(5.0, 100)
	doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/tap", nil)

	// Zero delta falls back to the configured adjust step
	rec := doJSON(t, mux, http.MethodPost, "/api/sync/"+sessionID+"/adjust", map[string]interface{}{
		"line": 0,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 adjusting, got %d: %s", rec.Code, rec.Body.String())
	}

	var body snapshotBody
	decodeBody(t, rec, &body)
	want := 5.0 + ls.config.Sync.AdjustStep
	if body.Snapshot.Timestamps[0] != want {
		t.Errorf("expected timestamp %v, got %v", want, body.Snapshot.Timestamps[0])
	}
}

func TestSyncAbandon(t *testing.T) {
	ls, mux, cleanup := newTestServer(t)
	defer cleanup()

	sessionID := startSyncSession(t, ls, mux, "One\nTwo")

	rec := doJSON(t, mux, http.MethodDelete, "/api/sync/"+sessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 abandoning, got %d", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/sync/"+sessionID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after abandon, got %d", rec.Code)
	}

	// Nothing was persisted
	rec = doJSON(t, mux, http.MethodGet, "/api/songs/count", nil)
	var count struct {
		Count int `json:"count"`
	}
	decodeBody(t, rec, &count)
	if count.Count != 0 {
		t.Errorf("expected no songs after abandon, got %d", count.Count)
	}
}

func TestSyncStartRequiresLyrics(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/start", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 starting without lyrics, got %d", rec.Code)
	}
}

func TestSyncUnknownSession(t *testing.T) {
	_, mux, cleanup := newTestServer(t)
	defer cleanup()

	rec := doJSON(t, mux, http.MethodPost, "/api/sync/a2aa9ad2-22a5-4c4a-9d83-02b823cd0362/tap", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown session, got %d", rec.Code)
	}
}
