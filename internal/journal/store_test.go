package journal_test

import (
	"context"
	"encoding/json"
	"testing"

	"examsight/internal/journal"
)

func openStore(t *testing.T) *journal.Store {
	t.Helper()
	store, err := journal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCheckpointRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "exam1")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if session == "" {
		t.Fatal("empty session id")
	}

	payload := map[string]any{"heart_rate": 72, "detection_state": "calculating"}
	if err := store.AddCheckpoint(ctx, session, "exam1", journal.KindHeart, payload); err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}
	if err := store.AddCheckpoint(ctx, session, "exam1", journal.KindHeart, map[string]any{"heart_rate": 74}); err != nil {
		t.Fatalf("AddCheckpoint: %v", err)
	}

	recent, err := store.Recent(ctx, session, journal.KindHeart, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d checkpoints, want 2", len(recent))
	}

	var decoded struct {
		HeartRate int `json:"heart_rate"`
	}
	if err := json.Unmarshal(recent[0].Payload, &decoded); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.HeartRate != 74 {
		t.Fatalf("newest checkpoint heart_rate = %d, want 74", decoded.HeartRate)
	}
}

func TestRecentFiltersByKind(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "exam1")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := store.AddCheckpoint(ctx, session, "exam1", journal.KindVideo, "v"); err != nil {
		t.Fatalf("AddCheckpoint video: %v", err)
	}
	if err := store.AddCheckpoint(ctx, session, "exam1", journal.KindAudio, "a"); err != nil {
		t.Fatalf("AddCheckpoint audio: %v", err)
	}

	video, err := store.Recent(ctx, session, journal.KindVideo, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(video) != 1 || video[0].Kind != journal.KindVideo {
		t.Fatalf("kind filter broken: %+v", video)
	}
}

func TestAddCheckpointRejectsUnknownKind(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "exam1")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := store.AddCheckpoint(ctx, session, "exam1", "telemetry", nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestBeginSessionRequiresStream(t *testing.T) {
	store := openStore(t)
	if _, err := store.BeginSession(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank stream name")
	}
}

func TestEndSession(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session, err := store.BeginSession(ctx, "exam1")
	if err != nil {
		t.Fatalf("BeginSession: %v", err)
	}
	if err := store.EndSession(ctx, session); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
}
